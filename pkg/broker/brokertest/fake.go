// ABOUTME: In-memory loopback broker for tests
// ABOUTME: Implements broker.Transport with retained messages and last will
package brokertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/jpmarques19/amora-os/pkg/broker"
)

// Broker is an in-process stand-in for an MQTT broker. Every Transport
// obtained from Client delivers to and receives from the same topic space,
// including retained messages and last-will delivery on Drop.
type Broker struct {
	mu       sync.Mutex
	retained map[string][]byte
	log      map[string][][]byte
	clients  []*Transport
}

// NewBroker creates an empty loopback broker.
func NewBroker() *Broker {
	return &Broker{
		retained: make(map[string][]byte),
		log:      make(map[string][][]byte),
	}
}

// Client attaches a new, disconnected fake transport.
func (b *Broker) Client() *Transport {
	t := &Transport{
		b:     b,
		state: broker.ConnDisconnected,
		subs:  make(map[string]byte),
	}
	b.mu.Lock()
	b.clients = append(b.clients, t)
	b.mu.Unlock()
	return t
}

// Retained returns the retained payload on a topic, or nil.
func (b *Broker) Retained(topic string) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.retained[topic]...)
}

// Messages returns every payload published on a topic, in order.
func (b *Broker) Messages(topic string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]byte, len(b.log[topic]))
	for i, p := range b.log[topic] {
		out[i] = append([]byte(nil), p...)
	}
	return out
}

func (b *Broker) publish(topic string, payload []byte, retain bool) {
	b.mu.Lock()
	if retain {
		if len(payload) == 0 {
			delete(b.retained, topic)
		} else {
			b.retained[topic] = append([]byte(nil), payload...)
		}
	}
	b.log[topic] = append(b.log[topic], append([]byte(nil), payload...))
	targets := make([]*Transport, 0, len(b.clients))
	for _, c := range b.clients {
		if c.wants(topic) {
			targets = append(targets, c)
		}
	}
	b.mu.Unlock()

	for _, c := range targets {
		c.deliver(topic, payload)
	}
}

// Transport is one fake client session on the loopback broker.
type Transport struct {
	b *Broker

	mu      sync.Mutex
	state   broker.ConnState
	subs    map[string]byte
	will    *willMsg
	onMsg   broker.MessageHandler
	onState broker.StateHandler

	// FailConnect makes the next Connect return ErrTransportUnavailable.
	FailConnect bool
}

type willMsg struct {
	topic   string
	payload []byte
	retain  bool
}

var _ broker.Transport = (*Transport)(nil)

func (t *Transport) Connect(_ context.Context) error {
	t.mu.Lock()
	if t.FailConnect {
		t.mu.Unlock()
		return fmt.Errorf("%w: fake broker refused", broker.ErrTransportUnavailable)
	}
	t.mu.Unlock()
	t.setState(broker.ConnConnecting)
	t.setState(broker.ConnConnected)
	return nil
}

// Disconnect closes the session gracefully; the last will does not fire.
func (t *Transport) Disconnect() {
	t.setState(broker.ConnDisconnected)
}

// Drop simulates an ungraceful connection loss: the broker publishes the
// last will and the state observer sees disconnected.
func (t *Transport) Drop() {
	t.mu.Lock()
	will := t.will
	t.mu.Unlock()
	t.setState(broker.ConnDisconnected)
	if will != nil {
		t.b.publish(will.topic, will.payload, will.retain)
	}
}

// Reconnect restores the session. Subscriptions survive and retained
// messages are re-delivered, mirroring the real adapter's resubscribe.
func (t *Transport) Reconnect() {
	t.setState(broker.ConnConnecting)
	t.setState(broker.ConnConnected)
	t.mu.Lock()
	subs := make([]string, 0, len(t.subs))
	for topic := range t.subs {
		subs = append(subs, topic)
	}
	t.mu.Unlock()
	for _, topic := range subs {
		t.deliverRetained(topic)
	}
}

func (t *Transport) Subscribe(topic string, qos byte) error {
	t.mu.Lock()
	connected := t.state == broker.ConnConnected
	t.subs[topic] = qos
	t.mu.Unlock()
	if !connected {
		return fmt.Errorf("%w: subscribe %s", broker.ErrNotConnected, topic)
	}
	t.deliverRetained(topic)
	return nil
}

func (t *Transport) Unsubscribe(topic string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != broker.ConnConnected {
		return fmt.Errorf("%w: unsubscribe %s", broker.ErrNotConnected, topic)
	}
	delete(t.subs, topic)
	return nil
}

func (t *Transport) Publish(topic string, payload []byte, _ byte, retain bool) error {
	t.mu.Lock()
	connected := t.state == broker.ConnConnected
	t.mu.Unlock()
	if !connected {
		return fmt.Errorf("%w: publish %s", broker.ErrNotConnected, topic)
	}
	t.b.publish(topic, payload, retain)
	return nil
}

func (t *Transport) SetWill(topic string, payload []byte, _ byte, retain bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.will = &willMsg{topic: topic, payload: append([]byte(nil), payload...), retain: retain}
}

func (t *Transport) OnMessage(h broker.MessageHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMsg = h
}

func (t *Transport) OnStateChange(h broker.StateHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onState = h
}

func (t *Transport) State() broker.ConnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transport) setState(s broker.ConnState) {
	t.mu.Lock()
	if t.state == s {
		t.mu.Unlock()
		return
	}
	t.state = s
	h := t.onState
	t.mu.Unlock()
	if h != nil {
		h(s)
	}
}

func (t *Transport) wants(topic string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != broker.ConnConnected {
		return false
	}
	_, ok := t.subs[topic]
	return ok
}

func (t *Transport) deliver(topic string, payload []byte) {
	t.mu.Lock()
	h := t.onMsg
	connected := t.state == broker.ConnConnected
	t.mu.Unlock()
	if connected && h != nil {
		h(topic, payload)
	}
}

func (t *Transport) deliverRetained(topic string) {
	payload := t.b.Retained(topic)
	if len(payload) > 0 {
		t.deliver(topic, payload)
	}
}
