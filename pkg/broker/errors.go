// ABOUTME: Error taxonomy shared by the transport, bridge, and session
// ABOUTME: Sentinel values classified with errors.Is
package broker

import "errors"

var (
	// ErrTransportUnavailable means the broker was unreachable or rejected
	// authentication on the initial connect attempt.
	ErrTransportUnavailable = errors.New("transport unavailable")

	// ErrNotConnected means an operation was attempted while the transport
	// was not in the connected state. Messages are rejected, not queued.
	ErrNotConnected = errors.New("not connected")

	// ErrMalformedMessage means an envelope failed to decode or was missing
	// required fields.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrUnknownCommand means the command name is not registered with the
	// dispatcher.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrHandlerFailure means the player capability returned a failure while
	// executing a command.
	ErrHandlerFailure = errors.New("handler failure")

	// ErrTimeout means a pending command was not answered within the
	// configured command timeout.
	ErrTimeout = errors.New("command timed out")

	// ErrDisconnected means a pending command was rejected because the
	// session closed.
	ErrDisconnected = errors.New("session disconnected")

	// ErrInvalidArgument means a command parameter was outside its
	// documented domain.
	ErrInvalidArgument = errors.New("invalid argument")
)
