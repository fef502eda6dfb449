// ABOUTME: MQTT transport adapter built on the paho client
// ABOUTME: Handles TLS, last will, and reconnect with capped backoff
package broker

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

// MQTT is the production Transport backed by an MQTT broker. The zero value
// is not usable; construct with NewMQTT.
type MQTT struct {
	cfg    Config
	log    zerolog.Logger
	client mqtt.Client

	mu        sync.Mutex
	state     ConnState
	subs      map[string]byte // desired subscriptions, topic -> qos
	closed    bool
	will      *willMessage
	onMsg     MessageHandler
	onState   StateHandler
	connected chan struct{} // closed by handleConnect, renewed per Connect
	reconnMu  sync.Mutex    // at most one reconnect loop
}

type willMessage struct {
	topic   string
	payload []byte
	qos     byte
	retain  bool
}

// NewMQTT builds an MQTT transport from a finalized configuration.
func NewMQTT(cfg Config) (*MQTT, error) {
	cfg, err := cfg.Finalize()
	if err != nil {
		return nil, err
	}
	return &MQTT{
		cfg:   cfg,
		log:   cfg.Logger.With().Str("component", "mqtt").Logger(),
		state: ConnDisconnected,
		subs:  make(map[string]byte),
	}, nil
}

// SetWill configures the last-will message; effective only before Connect.
func (t *MQTT) SetWill(topic string, payload []byte, qos byte, retain bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.will = &willMessage{topic: topic, payload: payload, qos: qos, retain: retain}
}

// OnMessage installs the inbound message observer.
func (t *MQTT) OnMessage(h MessageHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMsg = h
}

// OnStateChange installs the connection-state observer.
func (t *MQTT) OnStateChange(h StateHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onState = h
}

// State returns the current connection state.
func (t *MQTT) State() ConnState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *MQTT) setState(s ConnState) {
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

// Connect makes a single attempt against the broker within the configured
// timeout. Reconnects after a later connection loss are automatic when
// ReconnectOnFailure is set.
func (t *MQTT) Connect(ctx context.Context) error {
	opts, err := t.clientOptions()
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.closed = false
	t.connected = make(chan struct{})
	ready := t.connected
	t.client = mqtt.NewClient(opts)
	client := t.client
	t.mu.Unlock()

	t.setState(ConnConnecting)
	if err := t.waitToken(ctx, client.Connect()); err != nil {
		t.setState(ConnError)
		return fmt.Errorf("%w: connect to %s:%d: %v", ErrTransportUnavailable, t.cfg.BrokerURL, t.cfg.Port, err)
	}

	// The connect handler runs on the client's goroutine and flips the state
	// to connected once subscriptions are restored. Subscribe and Publish
	// require that state, so wait for it before returning.
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: connect to %s:%d: %v", ErrTransportUnavailable, t.cfg.BrokerURL, t.cfg.Port, ctx.Err())
	}
}

func (t *MQTT) clientOptions() (*mqtt.ClientOptions, error) {
	scheme := "tcp"
	if t.cfg.UseTLS {
		scheme = "ssl"
	}
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, t.cfg.BrokerURL, t.cfg.Port)).
		SetClientID(t.cfg.ClientID).
		SetCleanSession(*t.cfg.CleanSession).
		SetKeepAlive(t.cfg.KeepAlive).
		SetConnectTimeout(t.cfg.ConnectTimeout).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetOrderMatters(true).
		SetOnConnectHandler(t.handleConnect).
		SetConnectionLostHandler(t.handleConnectionLost)

	if t.cfg.Username != "" {
		opts.SetUsername(t.cfg.Username)
		opts.SetPassword(t.cfg.Password)
	}
	if t.cfg.UseTLS {
		tlsCfg, err := t.tlsConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	t.mu.Lock()
	will := t.will
	t.mu.Unlock()
	if will != nil {
		opts.SetBinaryWill(will.topic, will.payload, will.qos, will.retain)
	}
	return opts, nil
}

func (t *MQTT) tlsConfig() (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if t.cfg.CAFile != "" {
		pem, err := os.ReadFile(t.cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates in CA file %s", t.cfg.CAFile)
		}
		cfg.RootCAs = pool
	}
	if t.cfg.CertFile != "" && t.cfg.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(t.cfg.CertFile, t.cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// handleConnect re-establishes every desired subscription before the state
// observer sees ConnConnected.
func (t *MQTT) handleConnect(client mqtt.Client) {
	t.mu.Lock()
	subs := make(map[string]byte, len(t.subs))
	for topic, qos := range t.subs {
		subs[topic] = qos
	}
	t.mu.Unlock()

	for topic, qos := range subs {
		if err := t.subscribeOn(client, topic, qos); err != nil {
			t.log.Error().Err(err).Str("topic", topic).Msg("resubscribe failed")
		}
	}
	t.log.Info().Str("broker", t.cfg.BrokerURL).Msg("connected")
	t.setState(ConnConnected)

	// Wake a Connect waiting on this attempt. Reconnects find the channel
	// already closed.
	t.mu.Lock()
	ready := t.connected
	t.mu.Unlock()
	if ready != nil {
		select {
		case <-ready:
		default:
			close(ready)
		}
	}
}

func (t *MQTT) handleConnectionLost(_ mqtt.Client, err error) {
	t.log.Warn().Err(err).Msg("connection lost")
	t.mu.Lock()
	closed := t.closed
	reconnect := *t.cfg.ReconnectOnFailure
	t.mu.Unlock()

	if closed || !reconnect {
		t.setState(ConnDisconnected)
		return
	}
	t.setState(ConnConnecting)
	go t.reconnectLoop()
}

// reconnectLoop retries the broker with exponential backoff and jitter,
// capped at MaxReconnectDelay, until it succeeds or the transport closes.
func (t *MQTT) reconnectLoop() {
	t.reconnMu.Lock()
	defer t.reconnMu.Unlock()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = t.cfg.MaxReconnectDelay
	bo.MaxElapsedTime = 0

	for {
		t.mu.Lock()
		closed := t.closed
		client := t.client
		t.mu.Unlock()
		if closed {
			return
		}

		token := client.Connect()
		token.Wait()
		if token.Error() == nil {
			return // handleConnect restores subscriptions and state
		}

		delay := bo.NextBackOff()
		t.log.Warn().Err(token.Error()).Dur("retry_in", delay).Msg("reconnect failed")
		time.Sleep(delay)
	}
}

// Disconnect closes the connection, preventing further reconnect attempts.
func (t *MQTT) Disconnect() {
	t.mu.Lock()
	t.closed = true
	client := t.client
	t.mu.Unlock()

	if client != nil && client.IsConnectionOpen() {
		client.Disconnect(250)
	}
	t.setState(ConnDisconnected)
}

// Subscribe adds a subscription, which survives reconnects.
func (t *MQTT) Subscribe(topic string, qos byte) error {
	t.mu.Lock()
	client := t.client
	connected := t.state == ConnConnected
	t.subs[topic] = qos
	t.mu.Unlock()

	if !connected {
		return fmt.Errorf("%w: subscribe %s", ErrNotConnected, topic)
	}
	return t.subscribeOn(client, topic, qos)
}

func (t *MQTT) subscribeOn(client mqtt.Client, topic string, qos byte) error {
	token := client.Subscribe(topic, qos, func(_ mqtt.Client, m mqtt.Message) {
		t.mu.Lock()
		h := t.onMsg
		t.mu.Unlock()
		if h != nil {
			h(m.Topic(), m.Payload())
		}
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// Unsubscribe removes a subscription from the broker and the desired set.
func (t *MQTT) Unsubscribe(topic string) error {
	t.mu.Lock()
	client := t.client
	connected := t.state == ConnConnected
	delete(t.subs, topic)
	t.mu.Unlock()

	if !connected {
		return fmt.Errorf("%w: unsubscribe %s", ErrNotConnected, topic)
	}
	token := client.Unsubscribe(topic)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", topic, err)
	}
	return nil
}

// Publish sends a message. Messages are rejected, not queued, while the
// transport is not connected.
func (t *MQTT) Publish(topic string, payload []byte, qos byte, retain bool) error {
	t.mu.Lock()
	client := t.client
	connected := t.state == ConnConnected
	t.mu.Unlock()

	if !connected {
		return fmt.Errorf("%w: publish %s", ErrNotConnected, topic)
	}
	token := client.Publish(topic, qos, retain, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (t *MQTT) waitToken(ctx context.Context, token mqtt.Token) error {
	done := make(chan struct{})
	go func() {
		token.Wait()
		close(done)
	}()
	select {
	case <-done:
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
