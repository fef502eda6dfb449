// ABOUTME: Client-side session against one device namespace
// ABOUTME: Caches state, tracks pending commands, correlates responses
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jpmarques19/amora-os/pkg/broker"
	"github.com/jpmarques19/amora-os/pkg/player"
)

const sweepInterval = time.Second

// Session maintains last-known player state and outstanding commands for one
// device namespace. It is safe for concurrent use.
type Session struct {
	cfg       broker.Config
	topics    broker.Topics
	transport broker.Transport
	handlers  Handlers
	log       zerolog.Logger

	mu        sync.Mutex
	lastState *player.State
	playlists []player.Playlist
	pending   map[string]*pendingCommand
	started   bool

	done chan struct{}
	wg   sync.WaitGroup
}

type pendingCommand struct {
	ch         chan outcome // buffered; delivered at most once
	enqueuedAt time.Time
}

type outcome struct {
	resp broker.Response
	err  error
}

// Option adjusts session construction.
type Option func(*Session)

// WithTransport substitutes the transport, primarily for tests against the
// loopback broker.
func WithTransport(t broker.Transport) Option {
	return func(s *Session) { s.transport = t }
}

// New builds a session for the given configuration. Handlers may be the zero
// value when no events are wanted.
func New(cfg broker.Config, handlers Handlers, opts ...Option) (*Session, error) {
	cfg, err := cfg.Finalize()
	if err != nil {
		return nil, err
	}
	s := &Session{
		cfg:      cfg,
		topics:   cfg.Topics(),
		handlers: handlers,
		log:      cfg.Logger.With().Str("component", "session").Str("device_id", cfg.DeviceID).Logger(),
		pending:  make(map[string]*pendingCommand),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.transport == nil {
		t, err := broker.NewMQTT(cfg)
		if err != nil {
			return nil, err
		}
		s.transport = t
	}
	return s, nil
}

// Connect opens the transport, subscribes to the state and responses topics,
// and primes the state cache. The retained state envelope arrives with the
// subscription; a getStatus command additionally asks the device for a fresh
// snapshot.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return fmt.Errorf("session already connected")
	}
	s.started = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.transport.OnMessage(s.route)
	s.transport.OnStateChange(s.handleConnState)

	if err := s.transport.Connect(ctx); err != nil {
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		return err
	}
	if err := s.subscribe(); err != nil {
		s.transport.Disconnect()
		s.mu.Lock()
		s.started = false
		s.mu.Unlock()
		return err
	}

	s.wg.Add(1)
	go s.sweepLoop()
	s.primeState()
	return nil
}

// Disconnect rejects every pending command with ErrDisconnected and closes
// the transport.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	expired := s.takePendingLocked()
	done := s.done
	s.mu.Unlock()

	for _, pc := range expired {
		pc.ch <- outcome{err: broker.ErrDisconnected}
	}
	close(done)
	s.wg.Wait()
	s.transport.Disconnect()
	s.log.Info().Msg("session disconnected")
}

// ConnectionStatus returns the transport's observable connection state.
func (s *Session) ConnectionStatus() broker.ConnState {
	return s.transport.State()
}

// CachedState returns the last state envelope received, if any.
func (s *Session) CachedState() (player.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastState == nil {
		return player.State{}, false
	}
	return *s.lastState, true
}

// CachedPlaylists returns the playlists from the most recent response that
// carried them.
func (s *Session) CachedPlaylists() []player.Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]player.Playlist(nil), s.playlists...)
}

// Do publishes one command and blocks until its response, the command
// timeout, session shutdown, or ctx cancellation. A response with
// result=false is returned as a *CommandError carrying the device's message.
func (s *Session) Do(ctx context.Context, name string, params any) (broker.Response, error) {
	cmd, err := broker.NewCommand(name, params)
	if err != nil {
		return broker.Response{}, err
	}
	payload, err := broker.Encode(cmd)
	if err != nil {
		return broker.Response{}, err
	}

	pc := &pendingCommand{ch: make(chan outcome, 1), enqueuedAt: time.Now()}
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return broker.Response{}, broker.ErrDisconnected
	}
	s.pending[cmd.CommandID] = pc
	s.mu.Unlock()

	if err := s.transport.Publish(s.topics.Commands(), payload, s.cfg.DefaultQoS, false); err != nil {
		s.removePending(cmd.CommandID)
		return broker.Response{}, err
	}

	select {
	case out := <-pc.ch:
		if out.err != nil {
			return broker.Response{}, out.err
		}
		if !out.resp.Result {
			return out.resp, &CommandError{Command: name, Message: out.resp.Message}
		}
		return out.resp, nil
	case <-ctx.Done():
		// The command may still execute on the device; only the wait is
		// cancelled.
		s.removePending(cmd.CommandID)
		return broker.Response{}, ctx.Err()
	}
}

// CommandError is a device-reported command failure.
type CommandError struct {
	Command string
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}

func (s *Session) subscribe() error {
	for _, topic := range []string{s.topics.State(), s.topics.Responses()} {
		if err := s.transport.Subscribe(topic, s.cfg.DefaultQoS); err != nil {
			return err
		}
	}
	return nil
}

// primeState asks the device for a fresh snapshot without blocking the
// caller; the resulting state envelope refreshes the cache.
func (s *Session) primeState() {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CommandTimeout)
		defer cancel()
		if _, err := s.Do(ctx, "getStatus", nil); err != nil {
			s.log.Debug().Err(err).Msg("state prime failed")
		}
	}()
}

// handleConnState forwards transport transitions to the observer and
// re-primes the cache after a reconnect. Subscriptions are restored by the
// transport before it reports connected.
func (s *Session) handleConnState(state broker.ConnState) {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	s.handlers.connectionChange(state)
	if started && state == broker.ConnConnected {
		s.primeState()
	}
}

// route classifies one inbound message by topic kind. Malformed payloads are
// logged, surfaced to OnError, and dropped.
func (s *Session) route(topic string, payload []byte) {
	kind, ok := s.topics.Parse(topic)
	if !ok {
		return
	}
	switch kind {
	case broker.TopicState:
		st, err := broker.DecodeState(payload)
		if err != nil {
			s.dropMalformed(topic, err)
			return
		}
		s.applyState(st.State)
	case broker.TopicResponses:
		resp, err := broker.DecodeResponse(payload)
		if err != nil {
			s.dropMalformed(topic, err)
			return
		}
		s.applyResponse(resp)
	case broker.TopicConnection:
		// Presence envelopes are not consumed; the transport's own state
		// observer is authoritative.
	}
}

func (s *Session) dropMalformed(topic string, err error) {
	s.log.Warn().Err(err).Str("topic", topic).Msg("dropping malformed message")
	s.handlers.error(err)
}

// applyState diffs an inbound snapshot against the cache, updates it, and
// fires the change events. A duplicate identical snapshot produces no
// events. The latest received snapshot is authoritative; the receiver does
// not reorder.
func (s *Session) applyState(st player.State) {
	s.mu.Lock()
	last := s.lastState
	s.lastState = &st
	s.mu.Unlock()

	stateChanged := last == nil || last.State != st.State
	volumeChanged := (last == nil && st.Volume != 0) || (last != nil && last.Volume != st.Volume)

	lastPos, lastHasSong := songPosition(last)
	curPos, hasSong := songPosition(&st)
	positionChanged := hasSong && (!lastHasSong || lastPos != curPos)

	if stateChanged {
		s.handlers.stateChange(st)
	}
	if positionChanged {
		s.handlers.positionChange(curPos)
	}
	if volumeChanged {
		s.handlers.volumeChange(st.Volume)
	}
}

func songPosition(st *player.State) (float64, bool) {
	if st == nil || st.CurrentSong == nil {
		return 0, false
	}
	return st.CurrentSong.Position, true
}

// applyResponse resolves the matching pending command, refreshes the
// playlist cache when the data carries playlists, and notifies observers.
// A response matching no pending entry is silently discarded; duplicates at
// QoS 1 land there too.
func (s *Session) applyResponse(resp broker.Response) {
	s.handlers.response(resp)

	if len(resp.Data) > 0 {
		var data struct {
			Playlists []player.Playlist `json:"playlists"`
		}
		if err := json.Unmarshal(resp.Data, &data); err == nil && data.Playlists != nil {
			s.mu.Lock()
			s.playlists = data.Playlists
			s.mu.Unlock()
			s.handlers.playlistChange(data.Playlists)
		}
	}

	s.mu.Lock()
	pc, ok := s.pending[resp.CommandID]
	if ok {
		delete(s.pending, resp.CommandID)
	}
	s.mu.Unlock()
	if ok {
		pc.ch <- outcome{resp: resp}
	}
}

// sweepLoop rejects pending commands older than the command timeout, at
// 1 Hz.
func (s *Session) sweepLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep(time.Now())
		case <-s.done:
			return
		}
	}
}

func (s *Session) sweep(now time.Time) {
	var expired []*pendingCommand
	s.mu.Lock()
	for id, pc := range s.pending {
		if now.Sub(pc.enqueuedAt) >= s.cfg.CommandTimeout {
			delete(s.pending, id)
			expired = append(expired, pc)
		}
	}
	s.mu.Unlock()
	for _, pc := range expired {
		pc.ch <- outcome{err: broker.ErrTimeout}
	}
}

func (s *Session) removePending(commandID string) {
	s.mu.Lock()
	delete(s.pending, commandID)
	s.mu.Unlock()
}

func (s *Session) takePendingLocked() []*pendingCommand {
	out := make([]*pendingCommand, 0, len(s.pending))
	for id, pc := range s.pending {
		delete(s.pending, id)
		out = append(out, pc)
	}
	return out
}
