// Package kcp implements a reliable UDP transport on top of KCP sessions in stream mode.
package kcp

import (
	"net"

	log "github.com/sirupsen/logrus"
	kcp "github.com/xtaci/kcp-go"

	"github.com/multisocket/thrbench/errs"
	"github.com/multisocket/thrbench/options"
	"github.com/multisocket/thrbench/transport"
)

// Options
var (
	OptionSendWindow = options.NewIntOption("kcp.SendWindow", 1024)
	OptionRecvWindow = options.NewIntOption("kcp.RecvWindow", 1024)
	// OptionNoDelay enables the fast mode of kcp.
	OptionNoDelay = options.NewBoolOption("kcp.NoDelay", true)
)

const (
	// Transport is a transport.Transport for KCP.
	Transport = kcpTran("kcp")
)

func init() {
	transport.RegisterTransport(Transport)
}

func configSession(sess *kcp.UDPSession, opts options.Options) {
	sess.SetStreamMode(true)
	sess.SetWindowSize(OptionSendWindow.ValueFrom(opts), OptionRecvWindow.ValueFrom(opts))
	if OptionNoDelay.ValueFrom(opts) {
		sess.SetNoDelay(1, 10, 2, 1)
	} else {
		sess.SetNoDelay(0, 40, 0, 0)
	}
}

type bufferSetter interface {
	SetReadBuffer(bytes int) error
	SetWriteBuffer(bytes int) error
}

// setBuffers sets the UDP socket buffers, failures are logged.
func setBuffers(s bufferSetter, opts options.Options) {
	recv, send := transport.Buffers(opts)
	if recv > 0 {
		if err := s.SetReadBuffer(recv); err != nil {
			log.WithField("domain", "kcp").WithError(err).Warn("set read buffer")
		}
	}
	if send > 0 {
		if err := s.SetWriteBuffer(send); err != nil {
			log.WithField("domain", "kcp").WithError(err).Warn("set write buffer")
		}
	}
}

type dialer struct {
	options.Options

	addr string
}

func (d *dialer) Dial() (transport.Connection, error) {
	sess, err := kcp.DialWithOptions(d.addr, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	setBuffers(sess, d.Options)
	configSession(sess, d.Options)
	return transport.NewConnection(Transport, sess), nil
}

type listener struct {
	options.Options

	addr     string
	listener *kcp.Listener
}

func (l *listener) Listen() (err error) {
	if l.listener, err = kcp.ListenWithOptions(l.addr, nil, 0, 0); err != nil {
		return
	}
	setBuffers(l.listener, l.Options)
	return nil
}

func (l *listener) Accept() (transport.Connection, error) {
	if l.listener == nil {
		return nil, errs.ErrBadOperateState
	}
	sess, err := l.listener.AcceptKCP()
	if err != nil {
		return nil, err
	}
	configSession(sess, l.Options)
	return transport.NewConnection(Transport, sess), nil
}

func (l *listener) Address() string {
	if l.listener != nil {
		return "kcp://" + l.listener.Addr().String()
	}
	return "kcp://" + l.addr
}

func (l *listener) Close() error {
	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

type kcpTran string

func (t kcpTran) Scheme() string {
	return string(t)
}

func resolve(t kcpTran, addr string) (string, error) {
	var (
		err   error
		uaddr *net.UDPAddr
	)
	if addr, err = transport.StripScheme(t, addr); err != nil {
		return "", err
	}
	if uaddr, err = transport.ResolveUDPAddr(addr); err != nil {
		return "", err
	}
	return uaddr.String(), nil
}

func (t kcpTran) NewDialer(addr string) (transport.Dialer, error) {
	addr, err := resolve(t, addr)
	if err != nil {
		return nil, err
	}
	return &dialer{Options: options.NewOptions(), addr: addr}, nil
}

func (t kcpTran) NewListener(addr string) (transport.Listener, error) {
	addr, err := resolve(t, addr)
	if err != nil {
		return nil, err
	}
	return &listener{Options: options.NewOptions(), addr: addr}, nil
}
