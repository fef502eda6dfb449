// Package player defines the playback-daemon capability consumed by the
// device bridge, together with the state snapshot types shared by the wire
// protocol. The daemon itself (MPD or otherwise) lives behind the Player
// interface; see internal/mpdplayer for an implementation.
package player
