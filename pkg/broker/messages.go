// ABOUTME: Envelope codec for the four wire message kinds
// ABOUTME: Encodes UTF-8 JSON and classifies inbound payloads by field shape
package broker

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jpmarques19/amora-os/pkg/player"
)

// Kind identifies a decoded envelope variant.
type Kind int

const (
	KindCommand Kind = iota + 1
	KindResponse
	KindState
	KindConnection
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindResponse:
		return "response"
	case KindState:
		return "state"
	case KindConnection:
		return "connection"
	}
	return "unknown"
}

// ConnStatus is the presence value carried by a connection envelope.
type ConnStatus string

const (
	StatusOnline  ConnStatus = "online"
	StatusOffline ConnStatus = "offline"
)

// Command asks a device to execute one player operation. CommandID is a
// version-4 UUID unique per producing session; Timestamp is the producer's
// wall clock in Unix seconds and is diagnostic only.
type Command struct {
	Command   string          `json:"command"`
	CommandID string          `json:"commandId"`
	Params    json.RawMessage `json:"params,omitempty"`
	Timestamp float64         `json:"timestamp"`
}

// NewCommand builds a command envelope with a fresh UUID. params may be nil.
func NewCommand(name string, params any) (Command, error) {
	cmd := Command{
		Command:   name,
		CommandID: uuid.NewString(),
		Timestamp: nowUnix(),
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return Command{}, fmt.Errorf("encode params for %q: %w", name, err)
		}
		cmd.Params = raw
	}
	return cmd, nil
}

// DecodeParams unmarshals the command parameters into v.
func (c Command) DecodeParams(v any) error {
	if len(c.Params) == 0 {
		return fmt.Errorf("%w: missing params", ErrInvalidArgument)
	}
	if err := json.Unmarshal(c.Params, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return nil
}

// Response answers exactly one command, correlated by CommandID. Duplicates
// are possible at QoS 1 and are dropped by the receiver.
type Response struct {
	CommandID string          `json:"commandId"`
	Result    bool            `json:"result"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp float64         `json:"timestamp"`
}

// NewResponse builds a response envelope. data may be nil.
func NewResponse(commandID string, result bool, message string, data any) (Response, error) {
	resp := Response{
		CommandID: commandID,
		Result:    result,
		Message:   message,
		Timestamp: nowUnix(),
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return Response{}, fmt.Errorf("encode response data: %w", err)
		}
		resp.Data = raw
	}
	return resp, nil
}

// DecodeData unmarshals the response data into v.
func (r Response) DecodeData(v any) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("%w: response carries no data", ErrMalformedMessage)
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return nil
}

// StateMessage carries a full player state snapshot. It is published
// retained so late subscribers receive the last known value.
type StateMessage struct {
	player.State
	Timestamp float64 `json:"timestamp"`
}

// NewState wraps a player snapshot in a state envelope.
func NewState(s player.State) StateMessage {
	return StateMessage{State: s, Timestamp: nowUnix()}
}

// Connection announces device presence. Published retained; the offline
// variant doubles as the device session's last will.
type Connection struct {
	Status    ConnStatus `json:"status"`
	Timestamp float64    `json:"timestamp"`
}

// NewConnection builds a connection envelope for the given status.
func NewConnection(status ConnStatus) Connection {
	return Connection{Status: status, Timestamp: nowUnix()}
}

// Encode renders any envelope as UTF-8 JSON.
func Encode(msg any) ([]byte, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return raw, nil
}

// probe mirrors the discriminating fields of all envelope kinds.
type probe struct {
	Command   *string `json:"command"`
	CommandID *string `json:"commandId"`
	Result    *bool   `json:"result"`
	State     *string `json:"state"`
	Status    *string `json:"status"`
}

// Classify inspects a payload and reports which envelope kind it carries:
// command+commandId is a command, commandId+result a response, a top-level
// state field a state snapshot, and status online/offline a connection
// envelope. Anything else is ErrMalformedMessage.
func Classify(payload []byte) (Kind, error) {
	var p probe
	if err := json.Unmarshal(payload, &p); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	switch {
	case p.Command != nil && p.CommandID != nil:
		return KindCommand, nil
	case p.CommandID != nil && p.Result != nil:
		return KindResponse, nil
	case p.State != nil:
		return KindState, nil
	case p.Status != nil:
		if s := ConnStatus(*p.Status); s == StatusOnline || s == StatusOffline {
			return KindConnection, nil
		}
		return 0, fmt.Errorf("%w: unknown connection status %q", ErrMalformedMessage, *p.Status)
	default:
		return 0, fmt.Errorf("%w: no discriminating fields", ErrMalformedMessage)
	}
}

// DecodeCommand parses a command envelope.
func DecodeCommand(payload []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if cmd.Command == "" || cmd.CommandID == "" {
		return Command{}, fmt.Errorf("%w: command envelope missing command or commandId", ErrMalformedMessage)
	}
	return cmd, nil
}

// DecodeResponse parses a response envelope. An empty CommandID is a valid
// wire shape: the device answers a malformed command with one, and receivers
// discard it as matching no pending entry.
func DecodeResponse(payload []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return resp, nil
}

// DecodeState parses a state envelope and clamps it into its documented
// domain.
func DecodeState(payload []byte) (StateMessage, error) {
	var st StateMessage
	if err := json.Unmarshal(payload, &st); err != nil {
		return StateMessage{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	st.Normalize()
	return st, nil
}

// DecodeConnection parses a connection envelope.
func DecodeConnection(payload []byte) (Connection, error) {
	var conn Connection
	if err := json.Unmarshal(payload, &conn); err != nil {
		return Connection{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if conn.Status != StatusOnline && conn.Status != StatusOffline {
		return Connection{}, fmt.Errorf("%w: unknown connection status %q", ErrMalformedMessage, conn.Status)
	}
	return conn, nil
}

func nowUnix() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
