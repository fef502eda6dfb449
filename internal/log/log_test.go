// ABOUTME: Tests for the process-wide logger bootstrap
// ABOUTME: Covers one-time configuration and component annotation
package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigureOnce(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf})

	// A second call is a no-op; the first writer stays in effect.
	Configure(Config{Level: "error", Output: &bytes.Buffer{}})

	logger := WithComponent("test")
	logger.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "amora", entry["service"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, "hello", entry["message"])
}
