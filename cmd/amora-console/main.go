// ABOUTME: Interactive console client for one device namespace
// ABOUTME: Binds session events to the TUI and keys to remote commands
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jpmarques19/amora-os/internal/log"
	"github.com/jpmarques19/amora-os/internal/ui"
	"github.com/jpmarques19/amora-os/pkg/broker"
	"github.com/jpmarques19/amora-os/pkg/player"
	"github.com/jpmarques19/amora-os/pkg/session"
)

var (
	brokerURL  = flag.String("broker", "localhost", "MQTT broker host")
	brokerPort = flag.Int("port", 0, "MQTT broker port (default 1883, 8883 with TLS)")
	deviceID   = flag.String("device", "amora-player-001", "Device ID")
	username   = flag.String("username", "", "Broker username")
	password   = flag.String("password", "", "Broker password")
	useTLS     = flag.Bool("tls", false, "Connect with TLS")
)

func main() {
	flag.Parse()

	// The TUI owns the terminal; keep logs out of it.
	log.Configure(log.Config{Output: os.Stderr, Level: "error"})

	actions := make(chan ui.Action, 8)
	program := tea.NewProgram(ui.NewModel(*deviceID, actions), tea.WithAltScreen())

	cfg := broker.Config{
		BrokerURL: *brokerURL,
		Port:      *brokerPort,
		DeviceID:  *deviceID,
		Username:  *username,
		Password:  *password,
		UseTLS:    *useTLS,
		Logger:    log.Base(),
	}

	sess, err := session.New(cfg, session.Handlers{
		OnStateChange: func(st player.State) {
			// State traffic is the device's liveness signal.
			online := true
			program.Send(ui.StatusMsg{State: &st, Online: &online})
		},
		OnPositionChange: func(pos float64) {
			program.Send(ui.StatusMsg{Position: &pos})
		},
		OnVolumeChange: func(v int) {
			program.Send(ui.StatusMsg{Volume: &v})
		},
		OnConnectionChange: func(s broker.ConnState) {
			connected := s == broker.ConnConnected
			program.Send(ui.StatusMsg{Connected: &connected})
		},
		OnResponse: func(resp broker.Response) {
			program.Send(ui.StatusMsg{Message: resp.Message})
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "session: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = sess.Connect(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	defer sess.Disconnect()

	done := make(chan struct{})
	go runActions(sess, actions, done)

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tui: %v\n", err)
	}
	close(done)
}

// runActions translates key presses into session commands. Each command gets
// its own bounded wait so a dead device never wedges the TUI.
func runActions(sess *session.Session, actions <-chan ui.Action, done <-chan struct{}) {
	for {
		select {
		case a := <-actions:
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			runAction(ctx, sess, a)
			cancel()
		case <-done:
			return
		}
	}
}

func runAction(ctx context.Context, sess *session.Session, a ui.Action) {
	st, _ := sess.CachedState()
	switch a {
	case ui.ActionPlay:
		_ = sess.Play(ctx)
	case ui.ActionPause:
		_ = sess.Pause(ctx)
	case ui.ActionStop:
		_ = sess.Stop(ctx)
	case ui.ActionNext:
		_ = sess.Next(ctx)
	case ui.ActionPrevious:
		_ = sess.Previous(ctx)
	case ui.ActionVolumeUp:
		_ = sess.SetVolume(ctx, player.ClampVolume(st.Volume+5))
	case ui.ActionVolumeDown:
		_ = sess.SetVolume(ctx, player.ClampVolume(st.Volume-5))
	case ui.ActionToggleRepeat:
		_ = sess.SetRepeat(ctx, !st.Repeat)
	case ui.ActionToggleRandom:
		_ = sess.SetRandom(ctx, !st.Random)
	}
}
