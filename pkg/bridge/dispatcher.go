// ABOUTME: Command dispatcher for the device bridge
// ABOUTME: Routes inbound command envelopes to handlers and publishes responses
package bridge

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jpmarques19/amora-os/pkg/broker"
)

// Handler executes one command and reports (result, message, data). Handlers
// must tolerate duplicate deliveries of the same command ID; the dispatcher
// does not deduplicate.
type Handler func(cmd broker.Command) (ok bool, message string, data any)

// Observer is notified of every decoded command, after its handler ran.
type Observer func(cmd broker.Command)

const inboundQueueSize = 32

// Dispatcher routes command envelopes from the commands topic to registered
// handlers and publishes one response per command, correlated by command ID.
// Commands are processed in order of arrival by a single worker, so a slow
// handler delays later commands but never drops them (up to the queue bound).
type Dispatcher struct {
	transport broker.Transport
	topics    broker.Topics
	qos       byte
	log       zerolog.Logger

	mu        sync.RWMutex
	handlers  map[string]Handler
	observers []Observer

	queue chan []byte
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewDispatcher builds a dispatcher publishing responses on the namespace's
// responses topic.
func NewDispatcher(t broker.Transport, topics broker.Topics, qos byte, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		transport: t,
		topics:    topics,
		qos:       qos,
		log:       log.With().Str("component", "dispatcher").Logger(),
		handlers:  make(map[string]Handler),
		queue:     make(chan []byte, inboundQueueSize),
		done:      make(chan struct{}),
	}
}

// Register installs a handler for a command name, replacing any previous
// one. This is the extension point for non-standard commands.
func (d *Dispatcher) Register(name string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = h
}

// Observe adds an observer called for every decoded command.
func (d *Dispatcher) Observe(obs Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, obs)
}

// Start launches the worker. Stop must be called exactly once afterwards.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop drains nothing: queued commands not yet processed are dropped, which
// is acceptable under at-least-once delivery.
func (d *Dispatcher) Stop() {
	close(d.done)
	d.wg.Wait()
}

// HandleMessage enqueues a raw payload from the commands topic. When the
// queue is full the payload is dropped; the client times out and retries.
func (d *Dispatcher) HandleMessage(payload []byte) {
	select {
	case d.queue <- payload:
	default:
		d.log.Warn().Msg("command queue full, dropping command")
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case payload := <-d.queue:
			d.dispatch(payload)
		case <-d.done:
			return
		}
	}
}

func (d *Dispatcher) dispatch(payload []byte) {
	cmd, err := broker.DecodeCommand(payload)
	if err != nil {
		d.log.Warn().Err(err).Msg("malformed command")
		d.respond("", false, "malformed command", nil)
		return
	}

	d.mu.RLock()
	h, known := d.handlers[cmd.Command]
	observers := append([]Observer(nil), d.observers...)
	d.mu.RUnlock()

	if !known {
		d.log.Warn().Str("command", cmd.Command).Str("command_id", cmd.CommandID).Msg("unknown command")
		d.respond(cmd.CommandID, false, broker.ErrUnknownCommand.Error(), nil)
	} else {
		ok, message, data := d.invoke(h, cmd)
		d.respond(cmd.CommandID, ok, message, data)
	}

	for _, obs := range observers {
		obs(cmd)
	}
}

// invoke runs a handler, converting a panic into a failed response so one
// bad command never takes down the dispatcher.
func (d *Dispatcher) invoke(h Handler, cmd broker.Command) (ok bool, message string, data any) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Str("command", cmd.Command).Interface("panic", r).Msg("handler panicked")
			ok, message, data = false, fmt.Sprintf("internal error: %v", r), nil
		}
	}()
	return h(cmd)
}

func (d *Dispatcher) respond(commandID string, ok bool, message string, data any) {
	resp, err := broker.NewResponse(commandID, ok, message, data)
	if err != nil {
		d.log.Error().Err(err).Msg("encode response")
		return
	}
	payload, err := broker.Encode(resp)
	if err != nil {
		d.log.Error().Err(err).Msg("encode response")
		return
	}
	if err := d.transport.Publish(d.topics.Responses(), payload, d.qos, false); err != nil {
		d.log.Warn().Err(err).Str("command_id", commandID).Msg("publish response")
	}
}
