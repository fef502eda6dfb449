// ABOUTME: Device-side bridge lifecycle: transport, dispatcher, status loop
// ABOUTME: Publishes presence with a retained last-will offline envelope
package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jpmarques19/amora-os/pkg/broker"
	"github.com/jpmarques19/amora-os/pkg/player"
)

// Bridge connects a local playback daemon to remote clients over the
// messaging fabric. It owns the transport, the command dispatcher, and the
// status publisher for one device namespace.
//
// All player access is serialized through the bridge; the player capability
// is not assumed to be safe for concurrent use.
type Bridge struct {
	cfg       broker.Config
	topics    broker.Topics
	transport broker.Transport
	log       zerolog.Logger

	player   player.Player
	playerMu sync.Mutex

	dispatcher *Dispatcher
	status     *statusLoop

	mu      sync.Mutex
	started bool
	// announced flips after Start's initial announce; only then does a
	// connected transition mean a reconnect worth re-announcing.
	announced bool
}

// Option adjusts bridge construction.
type Option func(*Bridge)

// WithTransport substitutes the transport, primarily for tests against the
// loopback broker.
func WithTransport(t broker.Transport) Option {
	return func(b *Bridge) { b.transport = t }
}

// New builds a bridge for the given configuration and player capability.
func New(cfg broker.Config, p player.Player, opts ...Option) (*Bridge, error) {
	cfg, err := cfg.Finalize()
	if err != nil {
		return nil, err
	}
	b := &Bridge{
		cfg:    cfg,
		topics: cfg.Topics(),
		log:    cfg.Logger.With().Str("component", "bridge").Str("device_id", cfg.DeviceID).Logger(),
		player: p,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.transport == nil {
		t, err := broker.NewMQTT(cfg)
		if err != nil {
			return nil, err
		}
		b.transport = t
	}
	b.dispatcher = NewDispatcher(b.transport, b.topics, cfg.DefaultQoS, cfg.Logger)
	b.status = newStatusLoop(b.getStatus, b.transport, b.topics, cfg)
	b.registerStandardHandlers()
	return b, nil
}

// Register exposes the dispatcher's extension point for host-defined
// commands.
func (b *Bridge) Register(name string, h Handler) {
	b.dispatcher.Register(name, h)
}

// ObserveCommands adds an observer for every decoded command.
func (b *Bridge) ObserveCommands(obs Observer) {
	b.dispatcher.Observe(obs)
}

// Start connects to the broker with the offline envelope as last will,
// subscribes to the commands topic, starts the dispatcher and status loop,
// and announces presence. It returns ErrTransportUnavailable when the broker
// cannot be reached.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return fmt.Errorf("bridge already started")
	}
	b.started = true
	b.mu.Unlock()

	will, err := broker.Encode(broker.NewConnection(broker.StatusOffline))
	if err != nil {
		return err
	}
	b.transport.SetWill(b.topics.Connection(), will, b.cfg.DefaultQoS, true)
	b.transport.OnMessage(b.route)
	b.transport.OnStateChange(b.handleConnState)

	if err := b.transport.Connect(ctx); err != nil {
		return err
	}
	if err := b.transport.Subscribe(b.topics.Commands(), b.cfg.DefaultQoS); err != nil {
		return err
	}

	b.dispatcher.Start()
	b.status.start()
	b.announce()
	b.mu.Lock()
	b.announced = true
	b.mu.Unlock()
	b.log.Info().Msg("bridge started")
	return nil
}

// Stop publishes the offline envelope best-effort, halts the loops, and
// closes the transport.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return
	}
	b.started = false
	b.announced = false
	b.mu.Unlock()

	b.publishPresence(broker.StatusOffline)
	b.status.stop()
	b.dispatcher.Stop()
	b.transport.Disconnect()
	b.log.Info().Msg("bridge stopped")
}

func (b *Bridge) route(topic string, payload []byte) {
	kind, ok := b.topics.Parse(topic)
	if !ok || kind != broker.TopicCommands {
		return
	}
	b.dispatcher.HandleMessage(payload)
}

// handleConnState re-announces presence and state after a reconnect; the
// retained offline will may have fired in between. The initial connect is
// announced by Start itself.
func (b *Bridge) handleConnState(s broker.ConnState) {
	b.log.Debug().Stringer("state", s).Msg("transport state")
	if s != broker.ConnConnected {
		return
	}
	b.mu.Lock()
	announced := b.announced
	b.mu.Unlock()
	if announced {
		go b.announce()
	}
}

// announce publishes the retained online envelope and forces a fresh state
// publish.
func (b *Bridge) announce() {
	b.publishPresence(broker.StatusOnline)
	b.status.forceRefresh()
}

func (b *Bridge) publishPresence(status broker.ConnStatus) {
	payload, err := broker.Encode(broker.NewConnection(status))
	if err != nil {
		b.log.Error().Err(err).Msg("encode connection envelope")
		return
	}
	if err := b.transport.Publish(b.topics.Connection(), payload, b.cfg.DefaultQoS, true); err != nil {
		b.log.Warn().Err(err).Str("status", string(status)).Msg("publish presence")
	}
}

// getStatus serializes player access and clamps the snapshot.
func (b *Bridge) getStatus() (player.State, error) {
	b.playerMu.Lock()
	defer b.playerMu.Unlock()
	st, err := b.player.Status()
	if err != nil {
		return player.State{}, fmt.Errorf("%w: %v", broker.ErrHandlerFailure, err)
	}
	st.Normalize()
	return st, nil
}

// withPlayer serializes one player call and classifies its failure.
func (b *Bridge) withPlayer(op func() error) error {
	b.playerMu.Lock()
	defer b.playerMu.Unlock()
	if err := op(); err != nil {
		return fmt.Errorf("%w: %v", broker.ErrHandlerFailure, err)
	}
	return nil
}
