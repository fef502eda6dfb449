// ABOUTME: Tests for the console TUI model
// ABOUTME: Covers status application, key handling, and render helpers
package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpmarques19/amora-os/pkg/player"
)

func TestNewModel(t *testing.T) {
	m := NewModel("dev1", nil)

	assert.False(t, m.connected)
	assert.False(t, m.online)
	assert.Equal(t, player.StateUnknown, m.state)
	assert.Equal(t, "dev1", m.deviceID)
}

func TestApplyStatusState(t *testing.T) {
	m := NewModel("dev1", nil)

	m.applyStatus(StatusMsg{
		State: &player.State{
			State:       player.StatePlaying,
			Volume:      70,
			Repeat:      true,
			Playlist:    "jazz",
			CurrentSong: &player.Song{Title: "Song A", Artist: "Artist A", Position: 30, Duration: 180},
		},
	})

	assert.Equal(t, player.StatePlaying, m.state)
	assert.Equal(t, 70, m.volume)
	assert.True(t, m.repeat)
	assert.Equal(t, "jazz", m.playlist)
	assert.Equal(t, "Song A", m.title)
	assert.Equal(t, 30.0, m.position)
}

func TestApplyStatusClearsSong(t *testing.T) {
	m := NewModel("dev1", nil)
	m.applyStatus(StatusMsg{
		State: &player.State{
			State:       player.StatePlaying,
			CurrentSong: &player.Song{Title: "Song A"},
		},
	})
	m.applyStatus(StatusMsg{
		State: &player.State{State: player.StateStopped},
	})

	assert.Empty(t, m.title)
	assert.Zero(t, m.position)
}

func TestApplyStatusPartialUpdates(t *testing.T) {
	m := NewModel("dev1", nil)

	connected := true
	online := true
	position := 42.0
	volume := 80

	m.applyStatus(StatusMsg{Connected: &connected})
	assert.True(t, m.connected)

	m.applyStatus(StatusMsg{Online: &online})
	assert.True(t, m.online)

	m.applyStatus(StatusMsg{Position: &position})
	assert.Equal(t, 42.0, m.position)

	m.applyStatus(StatusMsg{Volume: &volume})
	assert.Equal(t, 80, m.volume)

	m.applyStatus(StatusMsg{Message: "play ok"})
	assert.Equal(t, "play ok", m.lastMessage)
}

func TestSpaceTogglesPlayPause(t *testing.T) {
	actions := make(chan Action, 4)
	m := NewModel("dev1", actions)

	m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{' '}})
	require.Len(t, actions, 1)
	assert.Equal(t, ActionPlay, <-actions)

	m.state = player.StatePlaying
	m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{' '}})
	require.Len(t, actions, 1)
	assert.Equal(t, ActionPause, <-actions)
}

func TestKeyBindings(t *testing.T) {
	actions := make(chan Action, 8)
	m := NewModel("dev1", actions)

	cases := []struct {
		key  tea.KeyMsg
		want Action
	}{
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}}, ActionStop},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'n'}}, ActionNext},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}}, ActionPrevious},
		{tea.KeyMsg{Type: tea.KeyUp}, ActionVolumeUp},
		{tea.KeyMsg{Type: tea.KeyDown}, ActionVolumeDown},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}}, ActionToggleRepeat},
		{tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'z'}}, ActionToggleRandom},
	}
	for _, tc := range cases {
		m.handleKey(tc.key)
		require.Len(t, actions, 1, "key %s", tc.key.String())
		assert.Equal(t, tc.want, <-actions)
	}
}

func TestQuitKey(t *testing.T) {
	m := NewModel("dev1", nil)
	_, cmd := m.handleKey(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestRenderBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░", renderBar(50, 100, 10))
	assert.Equal(t, "░░░░░░░░░░", renderBar(0, 100, 10))
	assert.Equal(t, "██████████", renderBar(100, 100, 10))
	assert.Equal(t, "██████████", renderBar(150, 100, 10))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a very ...", truncate("a very long string", 10))
}

func TestClock(t *testing.T) {
	assert.Equal(t, "0:00", clock(0))
	assert.Equal(t, "1:05", clock(65))
	assert.Equal(t, "10:00", clock(600))
}

func TestProgressPct(t *testing.T) {
	assert.Equal(t, 50.0, progressPct(90, 180))
	assert.Equal(t, 0.0, progressPct(10, 0))
}
