// Package sideband implements a sideband multiplexer, used by the smart
// protocol to multiplex pack data, progress messages and error messages
// over a single connection.
package sideband

import "fmt"

// Type defines which sideband mode is in use: regular sideband (up to
// 1000-byte packets) or sideband-64k (up to 65520-byte packets).
type Type int8

const (
	// Sideband is the regular sideband mode, announced by the
	// side-band capability.
	Sideband Type = iota
	// Sideband64k is the sideband mode with larger packets, announced by
	// the side-band-64k capability.
	Sideband64k
)

// MaxPackedSize returns the biggest packet payload, including the leading
// channel byte, allowed for this sideband Type.
func (t Type) MaxPackedSize() int {
	switch t {
	case Sideband:
		return MaxPackedSize
	case Sideband64k:
		return MaxPackedSize64k
	default:
		return -1
	}
}

const (
	// MaxPackedSize is the max packet size, including the channel byte,
	// for the regular sideband mode.
	MaxPackedSize = 1000
	// MaxPackedSize64k is the max packet size, including the channel
	// byte, for the sideband-64k mode.
	MaxPackedSize64k = 65520
)

// Channel defines the destination of a sideband packet: packfile data,
// progress information or a fatal error message.
type Channel byte

const (
	// PackData is the channel used for packfile data.
	PackData Channel = 1
	// ProgressMessage is the channel used for progress messages.
	ProgressMessage Channel = 2
	// ErrorMessage is the channel used for fatal error messages.
	ErrorMessage Channel = 3
)

// WithPayload prepends the channel byte to a payload, producing the bytes
// to be written as a pkt-line.
func (ch Channel) WithPayload(p []byte) []byte {
	return append([]byte{byte(ch)}, p...)
}

// String returns a human readable representation of the channel.
func (ch Channel) String() string {
	switch ch {
	case PackData:
		return "pack-data"
	case ProgressMessage:
		return "progress-message"
	case ErrorMessage:
		return "error-message"
	default:
		return fmt.Sprintf("unknown-channel-%d", byte(ch))
	}
}
