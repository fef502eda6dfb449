// ABOUTME: Core data types for player state snapshots
// ABOUTME: Defines playback states, song metadata, and playlists
package player

// PlaybackState is the coarse state of the playback daemon.
type PlaybackState string

const (
	StatePlaying PlaybackState = "playing"
	StatePaused  PlaybackState = "paused"
	StateStopped PlaybackState = "stopped"
	StateLoading PlaybackState = "loading"
	StateError   PlaybackState = "error"
	StateUnknown PlaybackState = "unknown"
)

// Valid reports whether s is one of the known playback states.
func (s PlaybackState) Valid() bool {
	switch s {
	case StatePlaying, StatePaused, StateStopped, StateLoading, StateError, StateUnknown:
		return true
	}
	return false
}

// Song describes one track as reported by the daemon.
// Duration and Position are in seconds with fractional precision.
type Song struct {
	Title     string  `json:"title"`
	Artist    string  `json:"artist"`
	Album     string  `json:"album"`
	File      string  `json:"file"`
	Duration  float64 `json:"duration"`
	Position  float64 `json:"position"`
	IsCurrent bool    `json:"isCurrent,omitempty"`
}

// Playlist is a named, ordered collection of songs.
type Playlist struct {
	Name  string `json:"name"`
	Items []Song `json:"items,omitempty"`
}

// State is a snapshot of the daemon at one instant.
type State struct {
	State          PlaybackState `json:"state"`
	CurrentSong    *Song         `json:"currentSong,omitempty"`
	Volume         int           `json:"volume"`
	Repeat         bool          `json:"repeat"`
	Random         bool          `json:"random"`
	Playlist       string        `json:"playlist,omitempty"`
	PlaylistTracks []Song        `json:"playlistTracks,omitempty"`
}

// Normalize clamps a snapshot into its documented domain: volume to 0..100,
// position to [0, duration], unknown states to StateUnknown, and at most one
// IsCurrent marker among the playlist tracks.
func (s *State) Normalize() {
	if !s.State.Valid() {
		s.State = StateUnknown
	}
	s.Volume = ClampVolume(s.Volume)
	if cs := s.CurrentSong; cs != nil {
		if cs.Position < 0 {
			cs.Position = 0
		}
		if cs.Duration > 0 && cs.Position > cs.Duration {
			cs.Position = cs.Duration
		}
	}
	seen := false
	for i := range s.PlaylistTracks {
		if s.PlaylistTracks[i].IsCurrent {
			if seen {
				s.PlaylistTracks[i].IsCurrent = false
			}
			seen = true
		}
	}
}

// ClampVolume forces v into the 0..100 range.
func ClampVolume(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// ValidVolume reports whether v is inside the documented 0..100 domain.
func ValidVolume(v int) bool {
	return v >= 0 && v <= 100
}
