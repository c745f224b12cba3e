package socket

import (
	"github.com/multisocket/thrbench/errs"
	"github.com/multisocket/thrbench/message"
	"github.com/multisocket/thrbench/options"
)

type (
	// Type is socket type
	Type int

	// Socket is a PUSH or PULL socket of a Context.
	Socket interface {
		options.Options

		Type() Type
		// Bind listen on addr, the address may carry option values in its query.
		Bind(addr string) error
		// Connect dial addr asynchronously and reconnect when the connection is lost.
		Connect(addr string) error
		// LastEndpoint is the address of the last Bind, with the picked port.
		LastEndpoint() string

		Send(content []byte) error
		SendMsg(msg *message.Message) error
		Recv() ([]byte, error)
		RecvMsg() (*message.Message, error)

		Close() error
	}
)

// socket types
const (
	// Push distributes messages to connected pulls, one message to one peer.
	Push Type = iota
	// Pull fair-queues messages from connected pushes.
	Pull
)

// errors
const (
	ErrBadSocketType = errs.ErrBadSocketType
)

func (t Type) String() string {
	switch t {
	case Push:
		return "PUSH"
	case Pull:
		return "PULL"
	}
	return "UNKNOWN"
}
