//go:build windows

// Package ipc implements the IPC transport on top of Windows Named Pipes.
package ipc

import (
	"net"

	"github.com/Microsoft/go-winio"

	"github.com/multisocket/thrbench/errs"
	"github.com/multisocket/thrbench/options"
	"github.com/multisocket/thrbench/transport"
)

// OptionSecurityDescriptor represents a Windows security
// descriptor in SDDL format. It must be set before the Listener is started.
var OptionSecurityDescriptor = options.NewStringOption("ipc.SecurityDescriptor", "")

const pipePrefix = `\\.\pipe\`

type (
	dialer struct {
		options.Options
		path string
	}

	listener struct {
		options.Options
		path     string
		listener net.Listener
	}
)

func (d *dialer) Dial() (transport.Connection, error) {
	conn, err := winio.DialPipe(pipePrefix+d.path, nil)
	if err != nil {
		return nil, err
	}
	return transport.NewConnection(Transport, conn), nil
}

func (l *listener) Listen() error {
	// pipe buffers take the kernel buffer sizes
	recv, send := transport.Buffers(l.Options)
	config := &winio.PipeConfig{
		InputBufferSize:    int32(recv),
		OutputBufferSize:   int32(send),
		SecurityDescriptor: OptionSecurityDescriptor.ValueFrom(l.Options),
		MessageMode:        false,
	}

	listener, err := winio.ListenPipe(pipePrefix+l.path, config)
	if err != nil {
		return err
	}
	l.listener = listener
	return nil
}

func (l *listener) Accept() (transport.Connection, error) {
	if l.listener == nil {
		return nil, errs.ErrBadOperateState
	}

	conn, err := l.listener.Accept()
	if err != nil {
		return nil, err
	}
	return transport.NewConnection(Transport, conn), nil
}

func (l *listener) Address() string {
	return "ipc://" + l.path
}

func (l *listener) Close() error {
	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

func (t ipcTran) NewDialer(address string) (transport.Dialer, error) {
	var err error
	if address, err = transport.StripScheme(t, address); err != nil {
		return nil, err
	}

	d := &dialer{Options: options.NewOptions(), path: address}

	return d, nil
}

// NewListener implements the Transport NewListener method.
func (t ipcTran) NewListener(address string) (transport.Listener, error) {
	var err error
	if address, err = transport.StripScheme(t, address); err != nil {
		return nil, err
	}

	l := &listener{Options: options.NewOptions(), path: address}

	return l, nil
}
