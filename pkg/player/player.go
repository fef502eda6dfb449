// ABOUTME: Player capability interface consumed by the device bridge
// ABOUTME: Abstracts the local playback daemon behind typed operations
package player

// Player is the capability the bridge consumes to drive the local playback
// daemon. Implementations are not expected to be safe for concurrent use;
// callers serialize access.
//
// Every operation returns an error on daemon failure. Status is the
// canonical source of truth for the status publisher and should return
// within a bounded time.
type Player interface {
	Play() error
	Pause() error
	Stop() error
	Next() error
	Previous() error

	SetVolume(volume int) error
	Volume() (int, error)

	Status() (State, error)

	Playlists() ([]string, error)
	PlayPlaylist(name string) error
	PlaylistSongs(name string) ([]Song, error)
	CreatePlaylist(name string, files []string) error
	DeletePlaylist(name string) error

	// PlayTrack refers to the index in the playlist most recently returned
	// by Playlists/PlaylistSongs; implementations reject stale or
	// out-of-range indexes.
	PlayTrack(index int) error
	AddTrack(file, playlist string) error
	RemoveTrack(index int, playlist string) error
	MoveTrack(from, to int, playlist string) error

	SetRepeat(on bool) error
	SetRandom(on bool) error

	UpdateDatabase() error
}
