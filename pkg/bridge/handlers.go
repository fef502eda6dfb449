// ABOUTME: Standard command handler set mapped onto the player capability
// ABOUTME: Decodes parameter shapes and translates failures into responses
package bridge

import (
	"fmt"

	"github.com/jpmarques19/amora-os/pkg/broker"
	"github.com/jpmarques19/amora-os/pkg/player"
)

// registerStandardHandlers wires the full command vocabulary onto the
// bridge's player. Mutating commands nudge the status loop afterwards so
// the new state reaches subscribers without waiting for the next poll.
func (b *Bridge) registerStandardHandlers() {
	d := b.dispatcher

	simple := map[string]func() error{
		"play":           b.player.Play,
		"pause":          b.player.Pause,
		"stop":           b.player.Stop,
		"next":           b.player.Next,
		"previous":       b.player.Previous,
		"updateDatabase": b.player.UpdateDatabase,
	}
	for name, op := range simple {
		name, op := name, op
		d.Register(name, func(broker.Command) (bool, string, any) {
			if err := b.withPlayer(op); err != nil {
				return false, err.Error(), nil
			}
			b.status.forceRefresh()
			return true, name + " ok", nil
		})
	}

	d.Register("setVolume", func(cmd broker.Command) (bool, string, any) {
		var p struct {
			Volume int `json:"volume"`
		}
		if err := cmd.DecodeParams(&p); err != nil {
			return false, err.Error(), nil
		}
		if !player.ValidVolume(p.Volume) {
			return false, fmt.Sprintf("%v: volume %d not in 0..100", broker.ErrInvalidArgument, p.Volume), nil
		}
		if err := b.withPlayer(func() error { return b.player.SetVolume(p.Volume) }); err != nil {
			return false, err.Error(), nil
		}
		b.status.forceRefresh()
		return true, "setVolume ok", nil
	})

	d.Register("getVolume", func(broker.Command) (bool, string, any) {
		var v int
		err := b.withPlayer(func() (err error) {
			v, err = b.player.Volume()
			return
		})
		if err != nil {
			return false, err.Error(), nil
		}
		return true, "getVolume ok", map[string]int{"volume": v}
	})

	d.Register("setRepeat", func(cmd broker.Command) (bool, string, any) {
		var p struct {
			Repeat bool `json:"repeat"`
		}
		if err := cmd.DecodeParams(&p); err != nil {
			return false, err.Error(), nil
		}
		if err := b.withPlayer(func() error { return b.player.SetRepeat(p.Repeat) }); err != nil {
			return false, err.Error(), nil
		}
		b.status.forceRefresh()
		return true, "setRepeat ok", nil
	})

	d.Register("setRandom", func(cmd broker.Command) (bool, string, any) {
		var p struct {
			Random bool `json:"random"`
		}
		if err := cmd.DecodeParams(&p); err != nil {
			return false, err.Error(), nil
		}
		if err := b.withPlayer(func() error { return b.player.SetRandom(p.Random) }); err != nil {
			return false, err.Error(), nil
		}
		b.status.forceRefresh()
		return true, "setRandom ok", nil
	})

	d.Register("getStatus", func(broker.Command) (bool, string, any) {
		st, err := b.getStatus()
		if err != nil {
			return false, err.Error(), nil
		}
		return true, "getStatus ok", st
	})

	d.Register("getPlaylists", func(broker.Command) (bool, string, any) {
		var playlists []player.Playlist
		err := b.withPlayer(func() error {
			names, err := b.player.Playlists()
			if err != nil {
				return err
			}
			playlists = make([]player.Playlist, 0, len(names))
			for _, name := range names {
				items, err := b.player.PlaylistSongs(name)
				if err != nil {
					return err
				}
				playlists = append(playlists, player.Playlist{Name: name, Items: items})
			}
			return nil
		})
		if err != nil {
			return false, err.Error(), nil
		}
		return true, "getPlaylists ok", map[string]any{"playlists": playlists}
	})

	d.Register("playPlaylist", func(cmd broker.Command) (bool, string, any) {
		var p struct {
			Name string `json:"name"`
		}
		if err := cmd.DecodeParams(&p); err != nil {
			return false, err.Error(), nil
		}
		if p.Name == "" {
			return false, fmt.Sprintf("%v: missing playlist name", broker.ErrInvalidArgument), nil
		}
		if err := b.withPlayer(func() error { return b.player.PlayPlaylist(p.Name) }); err != nil {
			return false, err.Error(), nil
		}
		b.status.forceRefresh()
		return true, "playPlaylist ok", nil
	})

	d.Register("getPlaylistSongs", func(cmd broker.Command) (bool, string, any) {
		var p struct {
			Name string `json:"name"`
		}
		if err := cmd.DecodeParams(&p); err != nil {
			return false, err.Error(), nil
		}
		var songs []player.Song
		err := b.withPlayer(func() (err error) {
			songs, err = b.player.PlaylistSongs(p.Name)
			return
		})
		if err != nil {
			return false, err.Error(), nil
		}
		return true, "getPlaylistSongs ok", map[string]any{"songs": songs}
	})

	d.Register("createPlaylist", func(cmd broker.Command) (bool, string, any) {
		var p struct {
			Name  string   `json:"name"`
			Files []string `json:"files"`
		}
		if err := cmd.DecodeParams(&p); err != nil {
			return false, err.Error(), nil
		}
		if p.Name == "" {
			return false, fmt.Sprintf("%v: missing playlist name", broker.ErrInvalidArgument), nil
		}
		if err := b.withPlayer(func() error { return b.player.CreatePlaylist(p.Name, p.Files) }); err != nil {
			return false, err.Error(), nil
		}
		return true, "createPlaylist ok", nil
	})

	d.Register("deletePlaylist", func(cmd broker.Command) (bool, string, any) {
		var p struct {
			Name string `json:"name"`
		}
		if err := cmd.DecodeParams(&p); err != nil {
			return false, err.Error(), nil
		}
		if err := b.withPlayer(func() error { return b.player.DeletePlaylist(p.Name) }); err != nil {
			return false, err.Error(), nil
		}
		return true, "deletePlaylist ok", nil
	})

	// playTrack refers to the index in the playlist most recently returned
	// to the client; a stale or out-of-range index fails.
	d.Register("playTrack", func(cmd broker.Command) (bool, string, any) {
		var p struct {
			Index int `json:"index"`
		}
		if err := cmd.DecodeParams(&p); err != nil {
			return false, err.Error(), nil
		}
		if p.Index < 0 {
			return false, fmt.Sprintf("%v: track index %d", broker.ErrInvalidArgument, p.Index), nil
		}
		if err := b.withPlayer(func() error { return b.player.PlayTrack(p.Index) }); err != nil {
			return false, err.Error(), nil
		}
		b.status.forceRefresh()
		return true, "playTrack ok", nil
	})

	d.Register("addTrack", func(cmd broker.Command) (bool, string, any) {
		var p struct {
			File     string `json:"file"`
			Playlist string `json:"playlist"`
		}
		if err := cmd.DecodeParams(&p); err != nil {
			return false, err.Error(), nil
		}
		if p.File == "" {
			return false, fmt.Sprintf("%v: missing file", broker.ErrInvalidArgument), nil
		}
		if err := b.withPlayer(func() error { return b.player.AddTrack(p.File, p.Playlist) }); err != nil {
			return false, err.Error(), nil
		}
		b.status.forceRefresh()
		return true, "addTrack ok", nil
	})

	d.Register("removeTrack", func(cmd broker.Command) (bool, string, any) {
		var p struct {
			Index    int    `json:"index"`
			Playlist string `json:"playlist"`
		}
		if err := cmd.DecodeParams(&p); err != nil {
			return false, err.Error(), nil
		}
		if p.Index < 0 {
			return false, fmt.Sprintf("%v: track index %d", broker.ErrInvalidArgument, p.Index), nil
		}
		if err := b.withPlayer(func() error { return b.player.RemoveTrack(p.Index, p.Playlist) }); err != nil {
			return false, err.Error(), nil
		}
		b.status.forceRefresh()
		return true, "removeTrack ok", nil
	})

	d.Register("reorderTrack", func(cmd broker.Command) (bool, string, any) {
		var p struct {
			From     int    `json:"from"`
			To       int    `json:"to"`
			Playlist string `json:"playlist"`
		}
		if err := cmd.DecodeParams(&p); err != nil {
			return false, err.Error(), nil
		}
		if p.From < 0 || p.To < 0 {
			return false, fmt.Sprintf("%v: track indexes %d..%d", broker.ErrInvalidArgument, p.From, p.To), nil
		}
		if err := b.withPlayer(func() error { return b.player.MoveTrack(p.From, p.To, p.Playlist) }); err != nil {
			return false, err.Error(), nil
		}
		b.status.forceRefresh()
		return true, "reorderTrack ok", nil
	})
}
