// ABOUTME: MPD-backed implementation of the player capability
// ABOUTME: Normalizes MPD status into wire-domain state snapshots
package mpdplayer

import (
	"fmt"
	"strconv"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/rs/zerolog"

	"github.com/jpmarques19/amora-os/pkg/player"
)

// Config locates the MPD daemon.
type Config struct {
	Host string // default "localhost"
	Port int    // default 6600

	Logger zerolog.Logger
}

// Player drives an MPD daemon. It reconnects lazily on each call, so a
// daemon restart does not wedge the bridge. Not safe for concurrent use;
// the bridge serializes access.
type Player struct {
	addr string
	log  zerolog.Logger

	client *mpd.Client

	// currentPlaylist tracks the name of the playlist last loaded through
	// PlayPlaylist; MPD itself does not report it.
	currentPlaylist string
}

var _ player.Player = (*Player)(nil)

// New builds an MPD player. No connection is made until the first call.
func New(cfg Config) *Player {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6600
	}
	return &Player{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		log:  cfg.Logger.With().Str("component", "mpd").Logger(),
	}
}

// Close drops the MPD connection.
func (p *Player) Close() {
	if p.client != nil {
		_ = p.client.Close()
		p.client = nil
	}
}

// ensureConnected pings the daemon and re-dials when the connection is gone.
func (p *Player) ensureConnected() error {
	if p.client != nil {
		if err := p.client.Ping(); err == nil {
			return nil
		}
		_ = p.client.Close()
		p.client = nil
	}
	client, err := mpd.Dial("tcp", p.addr)
	if err != nil {
		return fmt.Errorf("connect to mpd at %s: %w", p.addr, err)
	}
	p.client = client
	p.log.Info().Str("addr", p.addr).Msg("connected to mpd")
	return nil
}

func (p *Player) do(op func(c *mpd.Client) error) error {
	if err := p.ensureConnected(); err != nil {
		return err
	}
	return op(p.client)
}

func (p *Player) Play() error { return p.do(func(c *mpd.Client) error { return c.Play(-1) }) }
func (p *Player) Pause() error { return p.do(func(c *mpd.Client) error { return c.Pause(true) }) }
func (p *Player) Stop() error { return p.do(func(c *mpd.Client) error { return c.Stop() }) }
func (p *Player) Next() error { return p.do(func(c *mpd.Client) error { return c.Next() }) }
func (p *Player) Previous() error { return p.do(func(c *mpd.Client) error { return c.Previous() }) }

func (p *Player) SetVolume(volume int) error {
	volume = player.ClampVolume(volume)
	return p.do(func(c *mpd.Client) error { return c.SetVolume(volume) })
}

func (p *Player) Volume() (int, error) {
	var v int
	err := p.do(func(c *mpd.Client) error {
		status, err := c.Status()
		if err != nil {
			return err
		}
		v, _ = strconv.Atoi(status["volume"])
		return nil
	})
	return v, err
}

// Status builds a full snapshot from MPD's status, current song, and queue.
func (p *Player) Status() (player.State, error) {
	var st player.State
	err := p.do(func(c *mpd.Client) error {
		status, err := c.Status()
		if err != nil {
			return err
		}
		st = player.State{
			State:    normalizeState(status["state"]),
			Volume:   atoi(status["volume"]),
			Repeat:   status["repeat"] == "1",
			Random:   status["random"] == "1",
			Playlist: p.currentPlaylist,
		}

		if st.State == player.StatePlaying || st.State == player.StatePaused {
			song, err := c.CurrentSong()
			if err != nil {
				return err
			}
			cs := songFromAttrs(song)
			cs.Position = atof(status["elapsed"])
			if d := atof(status["duration"]); d > 0 {
				cs.Duration = d
			}
			st.CurrentSong = &cs
		}

		queue, err := c.PlaylistInfo(-1, -1)
		if err != nil {
			return err
		}
		current := status["song"]
		for _, attrs := range queue {
			song := songFromAttrs(attrs)
			song.IsCurrent = current != "" && attrs["Pos"] == current
			st.PlaylistTracks = append(st.PlaylistTracks, song)
		}
		return nil
	})
	if err != nil {
		return player.State{}, err
	}
	st.Normalize()
	return st, nil
}

func (p *Player) Playlists() ([]string, error) {
	var names []string
	err := p.do(func(c *mpd.Client) error {
		lists, err := c.ListPlaylists()
		if err != nil {
			return err
		}
		for _, attrs := range lists {
			names = append(names, attrs["playlist"])
		}
		return nil
	})
	return names, err
}

// PlayPlaylist replaces the queue with the named playlist and starts it.
func (p *Player) PlayPlaylist(name string) error {
	return p.do(func(c *mpd.Client) error {
		if err := c.Clear(); err != nil {
			return err
		}
		if err := c.PlaylistLoad(name, -1, -1); err != nil {
			return err
		}
		if err := c.Play(-1); err != nil {
			return err
		}
		p.currentPlaylist = name
		return nil
	})
}

func (p *Player) PlaylistSongs(name string) ([]player.Song, error) {
	var songs []player.Song
	err := p.do(func(c *mpd.Client) error {
		contents, err := c.PlaylistContents(name)
		if err != nil {
			return err
		}
		for _, attrs := range contents {
			songs = append(songs, songFromAttrs(attrs))
		}
		return nil
	})
	return songs, err
}

func (p *Player) CreatePlaylist(name string, files []string) error {
	return p.do(func(c *mpd.Client) error {
		for _, file := range files {
			if err := c.PlaylistAdd(name, file); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Player) DeletePlaylist(name string) error {
	return p.do(func(c *mpd.Client) error {
		if err := c.PlaylistRemove(name); err != nil {
			return err
		}
		if p.currentPlaylist == name {
			p.currentPlaylist = ""
		}
		return nil
	})
}

func (p *Player) PlayTrack(index int) error {
	return p.do(func(c *mpd.Client) error {
		status, err := c.Status()
		if err != nil {
			return err
		}
		if length := atoi(status["playlistlength"]); index >= length {
			return fmt.Errorf("track index %d out of range (queue has %d)", index, length)
		}
		return c.Play(index)
	})
}

func (p *Player) AddTrack(file, playlist string) error {
	return p.do(func(c *mpd.Client) error {
		if playlist == "" {
			return c.Add(file)
		}
		return c.PlaylistAdd(playlist, file)
	})
}

func (p *Player) RemoveTrack(index int, playlist string) error {
	return p.do(func(c *mpd.Client) error {
		if playlist == "" {
			return c.Delete(index, index+1)
		}
		return c.PlaylistDelete(playlist, index)
	})
}

func (p *Player) MoveTrack(from, to int, playlist string) error {
	return p.do(func(c *mpd.Client) error {
		if playlist == "" {
			return c.Move(from, from+1, to)
		}
		return c.PlaylistMove(playlist, from, to)
	})
}

func (p *Player) SetRepeat(on bool) error {
	return p.do(func(c *mpd.Client) error { return c.Repeat(on) })
}

func (p *Player) SetRandom(on bool) error {
	return p.do(func(c *mpd.Client) error { return c.Random(on) })
}

func (p *Player) UpdateDatabase() error {
	return p.do(func(c *mpd.Client) error {
		_, err := c.Update("")
		return err
	})
}

// normalizeState maps MPD's state names onto the wire domain.
func normalizeState(s string) player.PlaybackState {
	switch s {
	case "play":
		return player.StatePlaying
	case "pause":
		return player.StatePaused
	case "stop":
		return player.StateStopped
	case "":
		return player.StateUnknown
	default:
		return player.StateUnknown
	}
}

func songFromAttrs(attrs mpd.Attrs) player.Song {
	return player.Song{
		Title:    attrs["Title"],
		Artist:   attrs["Artist"],
		Album:    attrs["Album"],
		File:     attrs["file"],
		Duration: atof(attrs["duration"]),
	}
}

func atoi(s string) int {
	v, _ := strconv.Atoi(s)
	return v
}

func atof(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
