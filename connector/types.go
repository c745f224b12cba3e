package connector

import (
	"github.com/multisocket/thrbench/options"
	"github.com/multisocket/thrbench/transport"
)

type (
	// Pipe is a negotiated connection between two peers.
	Pipe interface {
		ID() uint32
		LocalAddress() string
		RemoteAddress() string
		// Options are the merged socket, endpoint and address options of the pipe.
		Options() options.Options
		// Sealer is the negotiated message sealer, nil for plain pipes.
		Sealer() Sealer

		Read(b []byte) (n int, err error)
		Write(b []byte) (n int, err error)
		Close() error
	}

	// Sealer seals and opens message contents of a pipe.
	Sealer interface {
		Overhead() int
		Seal(dst, msg []byte) []byte
		Open(dst, sealed []byte) ([]byte, error)
	}
)

type (
	// PipeEvent is pipe event
	PipeEvent int

	// PipeEventHandler can handle pipe event
	PipeEventHandler interface {
		HandlePipeEvent(PipeEvent, Pipe)
	}
)

// pipe events
const (
	PipeEventAdd PipeEvent = iota
	PipeEventRemove
)

type (
	// Negotiator is used for handshaking before adding pipe
	Negotiator interface {
		Negotiate(conn transport.Connection, opts options.Options) (Sealer, error)
	}

	// NegotiatorFunc is a function Negotiator
	NegotiatorFunc func(conn transport.Connection, opts options.Options) (Sealer, error)

	// Dialer is for connecting a listening socket.
	Dialer interface {
		options.Options

		Dial() error
		Close() error
	}

	// Listener is for listening and accepting connections.
	Listener interface {
		options.Options

		Listen() error
		Address() string
		Close() error
	}

	// Connector controls socket's connections
	Connector interface {
		options.Options

		SetNegotiator(Negotiator)
		SetPipeEventHandler(PipeEventHandler)

		DialOptions(addr string, ovs options.OptionValues) error
		NewDialer(addr string, ovs options.OptionValues) (Dialer, error)
		StopDial(addr string)

		ListenOptions(addr string, ovs options.OptionValues) (Listener, error)
		NewListener(addr string, ovs options.OptionValues) (Listener, error)
		StopListen(addr string)

		PipeCount() int
		Close()
	}
)

// Negotiate calls f(conn, opts)
func (f NegotiatorFunc) Negotiate(conn transport.Connection, opts options.Options) (Sealer, error) {
	return f(conn, opts)
}
