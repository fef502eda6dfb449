// ABOUTME: Typed command methods mirroring the player capability
// ABOUTME: Each publishes one command envelope and decodes the response data
package session

import (
	"context"

	"github.com/jpmarques19/amora-os/pkg/player"
)

// Play starts or resumes playback.
func (s *Session) Play(ctx context.Context) error {
	_, err := s.Do(ctx, "play", nil)
	return err
}

// Pause pauses playback.
func (s *Session) Pause(ctx context.Context) error {
	_, err := s.Do(ctx, "pause", nil)
	return err
}

// Stop stops playback.
func (s *Session) Stop(ctx context.Context) error {
	_, err := s.Do(ctx, "stop", nil)
	return err
}

// Next skips to the next track.
func (s *Session) Next(ctx context.Context) error {
	_, err := s.Do(ctx, "next", nil)
	return err
}

// Previous returns to the previous track.
func (s *Session) Previous(ctx context.Context) error {
	_, err := s.Do(ctx, "previous", nil)
	return err
}

// SetVolume sets the device volume. The device rejects values outside
// 0..100.
func (s *Session) SetVolume(ctx context.Context, volume int) error {
	_, err := s.Do(ctx, "setVolume", map[string]int{"volume": volume})
	return err
}

// GetVolume returns the device volume.
func (s *Session) GetVolume(ctx context.Context) (int, error) {
	resp, err := s.Do(ctx, "getVolume", nil)
	if err != nil {
		return 0, err
	}
	var data struct {
		Volume int `json:"volume"`
	}
	if err := resp.DecodeData(&data); err != nil {
		return 0, err
	}
	return data.Volume, nil
}

// SetRepeat toggles repeat mode.
func (s *Session) SetRepeat(ctx context.Context, on bool) error {
	_, err := s.Do(ctx, "setRepeat", map[string]bool{"repeat": on})
	return err
}

// SetRandom toggles random mode.
func (s *Session) SetRandom(ctx context.Context, on bool) error {
	_, err := s.Do(ctx, "setRandom", map[string]bool{"random": on})
	return err
}

// GetStatus asks the device for a fresh snapshot and returns it.
func (s *Session) GetStatus(ctx context.Context) (player.State, error) {
	resp, err := s.Do(ctx, "getStatus", nil)
	if err != nil {
		return player.State{}, err
	}
	var st player.State
	if err := resp.DecodeData(&st); err != nil {
		return player.State{}, err
	}
	st.Normalize()
	return st, nil
}

// GetPlaylists returns the device's playlists and refreshes the session
// cache.
func (s *Session) GetPlaylists(ctx context.Context) ([]player.Playlist, error) {
	resp, err := s.Do(ctx, "getPlaylists", nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		Playlists []player.Playlist `json:"playlists"`
	}
	if err := resp.DecodeData(&data); err != nil {
		return nil, err
	}
	return data.Playlists, nil
}

// PlayPlaylist loads and starts the named playlist.
func (s *Session) PlayPlaylist(ctx context.Context, name string) error {
	_, err := s.Do(ctx, "playPlaylist", map[string]string{"name": name})
	return err
}

// GetPlaylistSongs returns the tracks of the named playlist.
func (s *Session) GetPlaylistSongs(ctx context.Context, name string) ([]player.Song, error) {
	resp, err := s.Do(ctx, "getPlaylistSongs", map[string]string{"name": name})
	if err != nil {
		return nil, err
	}
	var data struct {
		Songs []player.Song `json:"songs"`
	}
	if err := resp.DecodeData(&data); err != nil {
		return nil, err
	}
	return data.Songs, nil
}

// CreatePlaylist creates a playlist from the given files.
func (s *Session) CreatePlaylist(ctx context.Context, name string, files []string) error {
	_, err := s.Do(ctx, "createPlaylist", map[string]any{"name": name, "files": files})
	return err
}

// DeletePlaylist removes the named playlist.
func (s *Session) DeletePlaylist(ctx context.Context, name string) error {
	_, err := s.Do(ctx, "deletePlaylist", map[string]string{"name": name})
	return err
}

// PlayTrack plays the track at index in the playlist most recently returned
// by GetPlaylists or GetPlaylistSongs. The device may reject a stale index.
func (s *Session) PlayTrack(ctx context.Context, index int) error {
	_, err := s.Do(ctx, "playTrack", map[string]int{"index": index})
	return err
}

// AddTrack appends a file to the named playlist, or to the queue when
// playlist is empty.
func (s *Session) AddTrack(ctx context.Context, file, playlist string) error {
	_, err := s.Do(ctx, "addTrack", map[string]string{"file": file, "playlist": playlist})
	return err
}

// RemoveTrack removes the track at index from the named playlist, or from
// the queue when playlist is empty.
func (s *Session) RemoveTrack(ctx context.Context, index int, playlist string) error {
	_, err := s.Do(ctx, "removeTrack", map[string]any{"index": index, "playlist": playlist})
	return err
}

// ReorderTrack moves a track between positions.
func (s *Session) ReorderTrack(ctx context.Context, from, to int, playlist string) error {
	_, err := s.Do(ctx, "reorderTrack", map[string]any{"from": from, "to": to, "playlist": playlist})
	return err
}

// UpdateDatabase triggers a daemon library rescan.
func (s *Session) UpdateDatabase(ctx context.Context) error {
	_, err := s.Do(ctx, "updateDatabase", nil)
	return err
}
