// ABOUTME: Tests for the envelope codec
// ABOUTME: Covers shape classification, decode round trips, and malformed payloads
package broker

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpmarques19/amora-os/pkg/player"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    Kind
	}{
		{"command", `{"command":"play","commandId":"abc","timestamp":1}`, KindCommand},
		{"response", `{"commandId":"abc","result":true,"message":"ok","timestamp":1}`, KindResponse},
		{"failed response", `{"commandId":"abc","result":false,"message":"no","timestamp":1}`, KindResponse},
		{"state", `{"state":"playing","volume":60,"timestamp":1}`, KindState},
		{"connection online", `{"status":"online","timestamp":1}`, KindConnection},
		{"connection offline", `{"status":"offline","timestamp":1}`, KindConnection},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Classify([]byte(tc.payload))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyMalformed(t *testing.T) {
	for _, payload := range []string{
		`not json`,
		`{}`,
		`{"command":"play"}`,
		`{"commandId":"abc"}`,
		`{"status":"sleeping"}`,
		`{"foo":"bar"}`,
	} {
		_, err := Classify([]byte(payload))
		assert.ErrorIs(t, err, ErrMalformedMessage, "payload %s", payload)
	}
}

func TestCommandRoundTrip(t *testing.T) {
	cmd, err := NewCommand("setVolume", map[string]int{"volume": 40})
	require.NoError(t, err)
	assert.NotEmpty(t, cmd.CommandID)
	assert.NotZero(t, cmd.Timestamp)

	payload, err := Encode(cmd)
	require.NoError(t, err)

	kind, err := Classify(payload)
	require.NoError(t, err)
	assert.Equal(t, KindCommand, kind)

	got, err := DecodeCommand(payload)
	require.NoError(t, err)
	assert.Equal(t, cmd.Command, got.Command)
	assert.Equal(t, cmd.CommandID, got.CommandID)

	var params struct {
		Volume int `json:"volume"`
	}
	require.NoError(t, got.DecodeParams(&params))
	assert.Equal(t, 40, params.Volume)
}

func TestCommandIDsUnique(t *testing.T) {
	a, err := NewCommand("play", nil)
	require.NoError(t, err)
	b, err := NewCommand("play", nil)
	require.NoError(t, err)
	assert.NotEqual(t, a.CommandID, b.CommandID)
}

func TestDecodeParamsMissing(t *testing.T) {
	cmd, err := NewCommand("play", nil)
	require.NoError(t, err)
	var v struct{}
	assert.ErrorIs(t, cmd.DecodeParams(&v), ErrInvalidArgument)
}

func TestResponseRoundTrip(t *testing.T) {
	resp, err := NewResponse("cmd-1", true, "ok", map[string]int{"volume": 55})
	require.NoError(t, err)

	payload, err := Encode(resp)
	require.NoError(t, err)

	got, err := DecodeResponse(payload)
	require.NoError(t, err)
	assert.Equal(t, "cmd-1", got.CommandID)
	assert.True(t, got.Result)
	assert.Equal(t, "ok", got.Message)

	var data struct {
		Volume int `json:"volume"`
	}
	require.NoError(t, got.DecodeData(&data))
	assert.Equal(t, 55, data.Volume)
}

// A response with an empty commandId is what the device publishes for a
// malformed command; it must decode so receivers can discard it.
func TestDecodeResponseEmptyID(t *testing.T) {
	resp, err := DecodeResponse([]byte(`{"commandId":"","result":false,"message":"malformed command","timestamp":1}`))
	require.NoError(t, err)
	assert.Empty(t, resp.CommandID)
	assert.False(t, resp.Result)
	assert.Equal(t, "malformed command", resp.Message)
}

func TestStateRoundTrip(t *testing.T) {
	st := player.State{
		State:       player.StatePlaying,
		Volume:      70,
		Repeat:      true,
		Playlist:    "jazz",
		CurrentSong: &player.Song{Title: "Song A", File: "a.flac", Duration: 180, Position: 42.5},
	}
	payload, err := Encode(NewState(st))
	require.NoError(t, err)

	kind, err := Classify(payload)
	require.NoError(t, err)
	assert.Equal(t, KindState, kind)

	got, err := DecodeState(payload)
	require.NoError(t, err)
	assert.Equal(t, st, got.State)
}

func TestStateWireFieldNames(t *testing.T) {
	st := player.State{
		State:          player.StatePaused,
		CurrentSong:    &player.Song{File: "a.flac"},
		PlaylistTracks: []player.Song{{File: "a.flac", IsCurrent: true}},
	}
	payload, err := Encode(NewState(st))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(payload, &raw))
	assert.Contains(t, raw, "currentSong")
	assert.Contains(t, raw, "playlistTracks")
	assert.Contains(t, raw, "timestamp")
	assert.NotContains(t, raw, "current_song")
}

func TestDecodeStateNormalizes(t *testing.T) {
	payload := []byte(`{"state":"warming-up","volume":250,"currentSong":{"file":"a","duration":10,"position":99},"timestamp":1}`)
	got, err := DecodeState(payload)
	require.NoError(t, err)
	assert.Equal(t, player.StateUnknown, got.State.State)
	assert.Equal(t, 100, got.Volume)
	assert.Equal(t, 10.0, got.CurrentSong.Position)
}

func TestConnectionRoundTrip(t *testing.T) {
	payload, err := Encode(NewConnection(StatusOffline))
	require.NoError(t, err)

	kind, err := Classify(payload)
	require.NoError(t, err)
	assert.Equal(t, KindConnection, kind)

	got, err := DecodeConnection(payload)
	require.NoError(t, err)
	assert.Equal(t, StatusOffline, got.Status)
}

func TestDecodeConnectionRejectsUnknownStatus(t *testing.T) {
	_, err := DecodeConnection([]byte(`{"status":"away","timestamp":1}`))
	assert.ErrorIs(t, err, ErrMalformedMessage)
}
