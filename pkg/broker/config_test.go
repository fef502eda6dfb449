// ABOUTME: Tests for configuration defaults and validation
// ABOUTME: Covers port selection, generated client IDs, and required fields
package broker

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg, err := Config{BrokerURL: "broker.local", DeviceID: "dev1"}.Finalize()
	require.NoError(t, err)

	assert.Equal(t, 1883, cfg.Port)
	assert.True(t, strings.HasPrefix(cfg.ClientID, "amora-"))
	assert.Equal(t, DefaultTopicPrefix, cfg.TopicPrefix)
	assert.Equal(t, 60*time.Second, cfg.KeepAlive)
	require.NotNil(t, cfg.CleanSession)
	assert.True(t, *cfg.CleanSession)
	assert.Equal(t, 10*time.Second, cfg.ConnectTimeout)
	require.NotNil(t, cfg.ReconnectOnFailure)
	assert.True(t, *cfg.ReconnectOnFailure)
	assert.Equal(t, 5*time.Minute, cfg.MaxReconnectDelay)
	assert.Equal(t, byte(1), cfg.DefaultQoS)
	assert.Equal(t, 10*time.Second, cfg.CommandTimeout)
	assert.Equal(t, time.Second, cfg.UpdateInterval)
	assert.Equal(t, time.Second, cfg.PositionUpdateInterval)
	assert.Equal(t, 5*time.Second, cfg.FullUpdateInterval)
}

func TestFinalizeTLSPort(t *testing.T) {
	cfg, err := Config{BrokerURL: "broker.local", DeviceID: "dev1", UseTLS: true}.Finalize()
	require.NoError(t, err)
	assert.Equal(t, 8883, cfg.Port)
}

func TestFinalizeKeepsExplicitValues(t *testing.T) {
	f := false
	cfg, err := Config{
		BrokerURL:    "broker.local",
		DeviceID:     "dev1",
		Port:         9001,
		ClientID:     "fixed",
		CleanSession: &f,
	}.Finalize()
	require.NoError(t, err)
	assert.Equal(t, 9001, cfg.Port)
	assert.Equal(t, "fixed", cfg.ClientID)
	assert.False(t, *cfg.CleanSession)
}

func TestValidateRequiredFields(t *testing.T) {
	_, err := Config{DeviceID: "dev1"}.Finalize()
	assert.Error(t, err)

	_, err = Config{BrokerURL: "broker.local"}.Finalize()
	assert.Error(t, err)

	_, err = Config{BrokerURL: "broker.local", DeviceID: "dev1", DefaultQoS: 3}.Finalize()
	assert.Error(t, err)
}

func TestConfigTopics(t *testing.T) {
	cfg, err := Config{BrokerURL: "broker.local", DeviceID: "dev1"}.Finalize()
	require.NoError(t, err)
	assert.Equal(t, "amora/devices/dev1/state", cfg.Topics().State())
}
