// Package tcp implements the TCP transport. To enable it simply import it.
package tcp

import (
	"context"
	"net"

	"github.com/conduitio/bwlimit"
	log "github.com/sirupsen/logrus"

	"github.com/multisocket/thrbench/errs"
	"github.com/multisocket/thrbench/options"
	"github.com/multisocket/thrbench/transport"
)

const (
	// Transport is a transport.Transport for TCP.
	Transport = tcpTran("tcp")
)

func init() {
	transport.RegisterTransport(Transport)
}

func configTCP(conn *net.TCPConn, opts options.Options) error {
	if err := conn.SetNoDelay(OptionNoDelay.ValueFrom(opts)); err != nil {
		return err
	}
	if err := conn.SetKeepAlive(OptionKeepAlive.ValueFrom(opts)); err != nil {
		return err
	}
	if d := OptionKeepAliveTime.ValueFrom(opts); d > 0 {
		if err := conn.SetKeepAlivePeriod(d); err != nil {
			return err
		}
	}
	return nil
}

// limits returns bandwidth limits, 0 is unlimited.
func limits(opts options.Options) (write, read bwlimit.Byte) {
	return bwlimit.Byte(OptionWriteLimit.ValueFrom(opts)), bwlimit.Byte(OptionReadLimit.ValueFrom(opts))
}

type dialer struct {
	options.Options

	addr string
}

func (d *dialer) Dial() (_ transport.Connection, err error) {
	var (
		addr *net.TCPAddr
		conn net.Conn
	)

	if addr, err = transport.ResolveTCPAddr(d.addr); err != nil {
		return nil, err
	}

	nd := &net.Dialer{Control: bufferControl(transport.Buffers(d.Options))}
	if conn, err = nd.DialContext(context.Background(), "tcp", addr.String()); err != nil {
		return nil, err
	}
	if err = configTCP(conn.(*net.TCPConn), d.Options); err != nil {
		conn.Close()
		return nil, err
	}

	if write, read := limits(d.Options); write > 0 || read > 0 {
		conn = bwlimit.NewConn(conn, write, read)
	}
	return transport.NewConnection(Transport, conn), nil
}

type listener struct {
	options.Options

	addr     *net.TCPAddr
	bound    net.Addr
	listener net.Listener
}

func (l *listener) Accept() (transport.Connection, error) {
	if l.listener == nil {
		return nil, errs.ErrBadOperateState
	}
	conn, err := l.listener.Accept()
	if err != nil {
		return nil, err
	}
	if err = configTCP(conn.(*net.TCPConn), l.Options); err != nil {
		conn.Close()
		return nil, err
	}
	if write, read := limits(l.Options); write > 0 || read > 0 {
		conn = bwlimit.NewConn(conn, write, read)
	}
	return transport.NewConnection(Transport, conn), nil
}

func (l *listener) Listen() (err error) {
	lc := net.ListenConfig{Control: bufferControl(transport.Buffers(l.Options))}
	var ln net.Listener
	if ln, err = lc.Listen(context.Background(), "tcp", l.addr.String()); err != nil {
		return
	}
	l.bound = ln.Addr()
	l.listener = ln

	if write, read := limits(l.Options); write > 0 || read > 0 {
		if log.IsLevelEnabled(log.DebugLevel) {
			log.WithField("domain", "tcp").
				WithFields(log.Fields{"addr": l.bound, "write": write, "read": read}).
				Debug("bandwidth limited")
		}
	}
	return
}

func (l *listener) Address() string {
	if b := l.bound; b != nil {
		return "tcp://" + b.String()
	}
	return "tcp://" + l.addr.String()
}

func (l *listener) Close() error {
	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

type tcpTran string

func (t tcpTran) Scheme() string {
	return string(t)
}

func (t tcpTran) NewDialer(addr string) (transport.Dialer, error) {
	var err error
	if addr, err = transport.StripScheme(t, addr); err != nil {
		return nil, err
	}

	// check to ensure the provided addr resolves correctly.
	if _, err = transport.ResolveTCPAddr(addr); err != nil {
		return nil, err
	}

	d := &dialer{Options: options.NewOptions(), addr: addr}

	return d, nil
}

func (t tcpTran) NewListener(addr string) (transport.Listener, error) {
	var err error
	l := &listener{Options: options.NewOptions()}

	if addr, err = transport.StripScheme(t, addr); err != nil {
		return nil, err
	}

	if l.addr, err = transport.ResolveTCPAddr(addr); err != nil {
		return nil, err
	}

	return l, nil
}
