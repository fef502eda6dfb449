// ABOUTME: Single initialization structure for bridge and session instances
// ABOUTME: Transport options plus device identity, intervals, and timeouts
package broker

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config gathers everything needed to open a device namespace, on either
// side of the wire. The zero value of every optional field is replaced by
// its documented default.
type Config struct {
	// BrokerURL is the broker host name or IP, without scheme. Required.
	BrokerURL string `yaml:"broker_url"`

	// Port is the broker TCP port. Default 8883 with TLS, 1883 without.
	Port int `yaml:"port"`

	// ClientID is the transport session identity. Default: a generated
	// "amora-" UUID string, unique per process.
	ClientID string `yaml:"client_id"`

	// DeviceID selects the device namespace. Required.
	DeviceID string `yaml:"device_id"`

	// TopicPrefix namespaces all four topics. Default "amora/devices".
	TopicPrefix string `yaml:"topic_prefix"`

	// Username and Password enable credential authentication when set.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// UseTLS enables TLS; CAFile, CertFile, and KeyFile configure server
	// verification and optional mutual TLS.
	UseTLS   bool   `yaml:"use_tls"`
	CAFile   string `yaml:"ca_file"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// KeepAlive is the transport heartbeat interval. Default 60s.
	KeepAlive time.Duration `yaml:"keep_alive"`

	// CleanSession controls whether server-side subscription state persists
	// across reconnects. Default true.
	CleanSession *bool `yaml:"clean_session"`

	// ConnectTimeout bounds the single connect attempt. Default 10s.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// ReconnectOnFailure enables the automatic reconnect loop. Default true.
	ReconnectOnFailure *bool `yaml:"reconnect_on_failure"`

	// MaxReconnectDelay caps the exponential reconnect backoff. Default 5m.
	MaxReconnectDelay time.Duration `yaml:"max_reconnect_delay"`

	// DefaultQoS is used when no explicit QoS is given. Default 1.
	DefaultQoS byte `yaml:"default_qos"`

	// CommandTimeout bounds how long a session waits for a response before
	// rejecting the pending command. Default 10s.
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// UpdateInterval is the status poll cadence. Default 1s.
	UpdateInterval time.Duration `yaml:"update_interval"`

	// PositionUpdateInterval is the publish cadence for position progress
	// while playing. Default 1s.
	PositionUpdateInterval time.Duration `yaml:"position_update_interval"`

	// FullUpdateInterval is the maximum gap between publishes regardless of
	// change. Default 5s.
	FullUpdateInterval time.Duration `yaml:"full_update_interval"`

	// Logger receives structured logs. Default: a disabled logger.
	Logger zerolog.Logger `yaml:"-"`
}

// withDefaults returns a copy of c with every unset field filled in.
func (c Config) withDefaults() Config {
	if c.Port == 0 {
		if c.UseTLS {
			c.Port = 8883
		} else {
			c.Port = 1883
		}
	}
	if c.ClientID == "" {
		c.ClientID = "amora-" + uuid.NewString()
	}
	if c.TopicPrefix == "" {
		c.TopicPrefix = DefaultTopicPrefix
	}
	if c.KeepAlive == 0 {
		c.KeepAlive = 60 * time.Second
	}
	if c.CleanSession == nil {
		t := true
		c.CleanSession = &t
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.ReconnectOnFailure == nil {
		t := true
		c.ReconnectOnFailure = &t
	}
	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = 5 * time.Minute
	}
	if c.DefaultQoS == 0 {
		c.DefaultQoS = 1
	}
	if c.CommandTimeout == 0 {
		c.CommandTimeout = 10 * time.Second
	}
	if c.UpdateInterval == 0 {
		c.UpdateInterval = time.Second
	}
	if c.PositionUpdateInterval == 0 {
		c.PositionUpdateInterval = time.Second
	}
	if c.FullUpdateInterval == 0 {
		c.FullUpdateInterval = 5 * time.Second
	}
	return c
}

// Validate checks the required fields.
func (c Config) Validate() error {
	if c.BrokerURL == "" {
		return fmt.Errorf("broker: missing broker URL")
	}
	if c.DeviceID == "" {
		return fmt.Errorf("broker: missing device ID")
	}
	if c.DefaultQoS > 2 {
		return fmt.Errorf("broker: QoS %d out of range", c.DefaultQoS)
	}
	return nil
}

// Finalize validates c and fills defaults. Callers outside this module use
// it before constructing a bridge or session by hand.
func (c Config) Finalize() (Config, error) {
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c.withDefaults(), nil
}

// Topics returns the topic helper for this configuration's namespace.
func (c Config) Topics() Topics {
	return NewTopics(c.TopicPrefix, c.DeviceID)
}
