// ABOUTME: Transport capability consumed by the bridge and the session
// ABOUTME: Pub/sub with retained messages, QoS, last will, and state observer
package broker

import "context"

// ConnState is the observable connection state of a transport.
type ConnState int

const (
	ConnDisconnected ConnState = iota
	ConnConnecting
	ConnConnected
	ConnError
)

func (s ConnState) String() string {
	switch s {
	case ConnDisconnected:
		return "disconnected"
	case ConnConnecting:
		return "connecting"
	case ConnConnected:
		return "connected"
	case ConnError:
		return "error"
	}
	return "unknown"
}

// MessageHandler receives every inbound message delivered to a subscription.
type MessageHandler func(topic string, payload []byte)

// StateHandler observes connection-state transitions.
type StateHandler func(state ConnState)

// Transport is a typed wrapper around a publish/subscribe transport with
// at-least-once delivery, retained messages, and last-will support.
//
// Publish and Subscribe reject with ErrNotConnected while the transport is
// not connected; nothing is queued. After a reconnect, all previously
// requested subscriptions are re-established before the state observer sees
// ConnConnected.
type Transport interface {
	// Connect makes one attempt within the configured timeout and returns
	// ErrTransportUnavailable when the broker is unreachable. The automatic
	// reconnect loop, when enabled, takes over after a later loss.
	Connect(ctx context.Context) error

	// Disconnect closes the connection and stops any reconnect loop.
	Disconnect()

	Subscribe(topic string, qos byte) error
	Unsubscribe(topic string) error
	Publish(topic string, payload []byte, qos byte, retain bool) error

	// SetWill configures the last-will message. Effective only before
	// Connect.
	SetWill(topic string, payload []byte, qos byte, retain bool)

	// OnMessage and OnStateChange install the inbound and state observers.
	// Both must be set before Connect.
	OnMessage(h MessageHandler)
	OnStateChange(h StateHandler)

	// State returns the current connection state.
	State() ConnState
}
