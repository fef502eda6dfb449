// ABOUTME: Event callbacks surfaced by a session
// ABOUTME: Invoked after cache mutation, never under internal locks
package session

import (
	"github.com/jpmarques19/amora-os/pkg/broker"
	"github.com/jpmarques19/amora-os/pkg/player"
)

// Handlers holds the optional event callbacks a session fires. Callbacks run
// on the session's inbound goroutine after the cache mutation they describe;
// they should return quickly and must not call back into the session's
// blocking command methods.
type Handlers struct {
	// OnStateChange fires when the playback state field changes.
	OnStateChange func(state player.State)

	// OnPositionChange fires when the current song's position changes.
	OnPositionChange func(position float64)

	// OnVolumeChange fires when the volume changes.
	OnVolumeChange func(volume int)

	// OnPlaylistChange fires when a response refreshes the playlist cache.
	OnPlaylistChange func(playlists []player.Playlist)

	// OnConnectionChange observes the transport connection state.
	OnConnectionChange func(state broker.ConnState)

	// OnResponse observes every response envelope, matched or not.
	OnResponse func(resp broker.Response)

	// OnError observes dropped malformed messages and similar non-fatal
	// conditions.
	OnError func(err error)
}

func (h Handlers) stateChange(st player.State) {
	if h.OnStateChange != nil {
		h.OnStateChange(st)
	}
}

func (h Handlers) positionChange(pos float64) {
	if h.OnPositionChange != nil {
		h.OnPositionChange(pos)
	}
}

func (h Handlers) volumeChange(v int) {
	if h.OnVolumeChange != nil {
		h.OnVolumeChange(v)
	}
}

func (h Handlers) playlistChange(p []player.Playlist) {
	if h.OnPlaylistChange != nil {
		h.OnPlaylistChange(p)
	}
}

func (h Handlers) connectionChange(s broker.ConnState) {
	if h.OnConnectionChange != nil {
		h.OnConnectionChange(s)
	}
}

func (h Handlers) response(resp broker.Response) {
	if h.OnResponse != nil {
		h.OnResponse(resp)
	}
}

func (h Handlers) error(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}
