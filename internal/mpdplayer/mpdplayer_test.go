// ABOUTME: Tests for MPD attribute mapping helpers
// ABOUTME: Covers state normalization and song construction from attrs
package mpdplayer

import (
	"testing"

	"github.com/fhs/gompd/v2/mpd"
	"github.com/stretchr/testify/assert"

	"github.com/jpmarques19/amora-os/pkg/player"
)

func TestNormalizeState(t *testing.T) {
	cases := map[string]player.PlaybackState{
		"play":  player.StatePlaying,
		"pause": player.StatePaused,
		"stop":  player.StateStopped,
		"":      player.StateUnknown,
		"weird": player.StateUnknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizeState(in), "state %q", in)
	}
}

func TestSongFromAttrs(t *testing.T) {
	song := songFromAttrs(mpd.Attrs{
		"Title":    "Song A",
		"Artist":   "Artist A",
		"Album":    "Album A",
		"file":     "music/a.flac",
		"duration": "182.5",
	})
	assert.Equal(t, "Song A", song.Title)
	assert.Equal(t, "Artist A", song.Artist)
	assert.Equal(t, "Album A", song.Album)
	assert.Equal(t, "music/a.flac", song.File)
	assert.Equal(t, 182.5, song.Duration)
}

func TestSongFromAttrsMissingFields(t *testing.T) {
	song := songFromAttrs(mpd.Attrs{"file": "a.flac"})
	assert.Equal(t, "a.flac", song.File)
	assert.Empty(t, song.Title)
	assert.Zero(t, song.Duration)
}

func TestNewDefaults(t *testing.T) {
	p := New(Config{})
	assert.Equal(t, "localhost:6600", p.addr)

	p = New(Config{Host: "mpd.local", Port: 6601})
	assert.Equal(t, "mpd.local:6601", p.addr)
}

func TestAtoiAtof(t *testing.T) {
	assert.Equal(t, 42, atoi("42"))
	assert.Equal(t, 0, atoi("not a number"))
	assert.Equal(t, 1.5, atof("1.5"))
	assert.Equal(t, 0.0, atof(""))
}
