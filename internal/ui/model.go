// ABOUTME: Bubbletea model for the device console
// ABOUTME: Renders live player state and maps keys to remote commands
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jpmarques19/amora-os/pkg/player"
)

// Action is a remote command request emitted by the TUI.
type Action int

const (
	ActionPlay Action = iota
	ActionPause
	ActionStop
	ActionNext
	ActionPrevious
	ActionVolumeUp
	ActionVolumeDown
	ActionToggleRepeat
	ActionToggleRandom
)

// Model represents the console state.
type Model struct {
	// Device
	deviceID string
	online   bool

	// Connection
	connected bool

	// Playback
	state    player.PlaybackState
	title    string
	artist   string
	album    string
	position float64
	duration float64
	volume   int
	repeat   bool
	random   bool
	playlist string

	// Last command result
	lastMessage string

	// Dimensions
	width  int
	height int

	actions chan<- Action
}

// NewModel creates a console model emitting actions on the given channel.
func NewModel(deviceID string, actions chan<- Action) Model {
	return Model{
		deviceID: deviceID,
		state:    player.StateUnknown,
		actions:  actions,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the console
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderNowPlaying()
	s += m.renderControls()
	s += m.renderHelp()

	return s
}

func (m Model) renderHeader() string {
	connStatus := "Disconnected"
	if m.connected {
		connStatus = "Connected"
	}
	presence := "offline"
	if m.online {
		presence = "online"
	}

	return fmt.Sprintf(`┌─ Amora Console ──────────────────────────────────────┐
│ Broker:  %-44s│
│ Device:  %-22s presence: %-11s│
├──────────────────────────────────────────────────────┤
`, connStatus, truncate(m.deviceID, 22), presence)
}

func (m Model) renderNowPlaying() string {
	s := fmt.Sprintf("│ State: %-46s│\n", m.state)
	if m.title != "" || m.artist != "" {
		s += fmt.Sprintf("│   Track:  %-43s│\n", truncate(m.title, 43))
		s += fmt.Sprintf("│   Artist: %-43s│\n", truncate(m.artist, 43))
		s += fmt.Sprintf("│   Album:  %-43s│\n", truncate(m.album, 43))
		s += fmt.Sprintf("│   %s %-29s│\n",
			renderBar(int(progressPct(m.position, m.duration)), 100, 20),
			fmt.Sprintf("%s / %s", clock(m.position), clock(m.duration)))
	} else {
		s += "│   (nothing playing)                                  │\n"
	}
	if m.playlist != "" {
		s += fmt.Sprintf("│ Playlist: %-43s│\n", truncate(m.playlist, 43))
	}
	return s
}

func (m Model) renderControls() string {
	flags := ""
	if m.repeat {
		flags += " repeat"
	}
	if m.random {
		flags += " random"
	}
	if flags == "" {
		flags = " -"
	}

	s := fmt.Sprintf("│ Volume: [%s] %d%%%-27s│\n", renderBar(m.volume, 100, 10), m.volume, "")
	s += fmt.Sprintf("│ Modes:%-47s│\n", flags)
	if m.lastMessage != "" {
		s += fmt.Sprintf("│ Last:  %-46s│\n", truncate(m.lastMessage, 46))
	}
	return s
}

func (m Model) renderHelp() string {
	return `├──────────────────────────────────────────────────────┤
│ space:Play/Pause  s:Stop  n/p:Track  ↑/↓:Vol  q:Quit │
└──────────────────────────────────────────────────────┘
`
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		if m.state == player.StatePlaying {
			m.emit(ActionPause)
		} else {
			m.emit(ActionPlay)
		}
	case "s":
		m.emit(ActionStop)
	case "n":
		m.emit(ActionNext)
	case "p":
		m.emit(ActionPrevious)
	case "up":
		m.emit(ActionVolumeUp)
	case "down":
		m.emit(ActionVolumeDown)
	case "r":
		m.emit(ActionToggleRepeat)
	case "z":
		m.emit(ActionToggleRandom)
	}

	return m, nil
}

func (m Model) emit(a Action) {
	select {
	case m.actions <- a:
	default:
	}
}

// applyStatus updates the model from a status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Connected != nil {
		m.connected = *msg.Connected
	}
	if msg.Online != nil {
		m.online = *msg.Online
	}
	if msg.State != nil {
		st := msg.State
		m.state = st.State
		m.volume = st.Volume
		m.repeat = st.Repeat
		m.random = st.Random
		m.playlist = st.Playlist
		if st.CurrentSong != nil {
			m.title = st.CurrentSong.Title
			m.artist = st.CurrentSong.Artist
			m.album = st.CurrentSong.Album
			m.position = st.CurrentSong.Position
			m.duration = st.CurrentSong.Duration
		} else {
			m.title, m.artist, m.album = "", "", ""
			m.position, m.duration = 0, 0
		}
	}
	if msg.Position != nil {
		m.position = *msg.Position
	}
	if msg.Volume != nil {
		m.volume = *msg.Volume
	}
	if msg.Message != "" {
		m.lastMessage = msg.Message
	}
}

// StatusMsg pushes session events into the TUI
type StatusMsg struct {
	Connected *bool
	Online    *bool
	State     *player.State
	Position  *float64
	Volume    *int
	Message   string
}

// Utility functions
func renderBar(value, max, width int) string {
	if max <= 0 {
		max = 1
	}
	filled := (value * width) / max
	if filled > width {
		filled = width
	}
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func progressPct(position, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return position / duration * 100
}

func clock(seconds float64) string {
	s := int(seconds)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
