package gdbremote

import "fmt"

// ProtocolError reports a response byte the tokenizer could not make
// sense of: neither a framed reply nor an acknowledgment.
type ProtocolError struct {
	Byte byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("gdbremote: unrecognised response byte 0x%02x", e.Byte)
}

// TransportError wraps a failure from the underlying connection, such as
// a peer disconnect observed by the receiver goroutine.
type TransportError struct {
	Reason string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gdbremote: transport: %s", e.Reason)
}

// CommandTimeout reports that a command's response did not arrive within
// the 1-second window. Recoverable; the caller may retry or abort.
type CommandTimeout struct {
	Command string
}

func (e *CommandTimeout) Error() string {
	return fmt.Sprintf("gdbremote: command %q timed out waiting for a response", e.Command)
}

// NegativeAck reports the peer responded "-".
type NegativeAck struct{}

func (e *NegativeAck) Error() string { return "gdbremote: peer sent a negative acknowledgment" }
