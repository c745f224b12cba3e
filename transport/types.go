package transport

import (
	"io"

	"github.com/multisocket/thrbench/options"
)

type (
	// Connection is a byte stream between peers.
	Connection interface {
		io.ReadWriteCloser
		Transport() Transport

		LocalAddress() string
		RemoteAddress() string
	}

	// Dialer is dialer
	Dialer interface {
		options.Options

		Dial() (Connection, error)
	}

	// Listener is listener
	Listener interface {
		options.Options

		Listen() error
		Accept() (Connection, error)
		// Address is the bound address after Listen, e.g. with the picked port.
		Address() string
		Close() error
	}

	// Transport is transport
	Transport interface {
		Scheme() string
		NewDialer(address string) (Dialer, error)
		NewListener(address string) (Listener, error)
	}
)
