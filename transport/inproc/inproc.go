// Package inproc implements an intra-process transport on top of net.Pipe,
// kernel buffer options have no effect.
package inproc

import (
	"net"
	"sync"

	"github.com/multisocket/thrbench/errs"
	"github.com/multisocket/thrbench/options"
	"github.com/multisocket/thrbench/transport"
)

type (
	inprocTran string

	dialer struct {
		options.Options
		addr string
	}

	listener struct {
		options.Options
		addr    string
		accepts chan chan net.Conn
		closedq chan struct{}
		once    sync.Once
	}

	pipe struct {
		net.Conn
		laddr addr
		raddr addr
	}

	addr string
)

const (
	// Transport is a transport.Transport for intra-process communication.
	Transport = inprocTran("inproc")

	defaultAcceptQueueSize = 8
)

var listeners struct {
	sync.RWMutex
	// Who is listening, on which "address"?
	byAddr map[string]*listener
}

func init() {
	listeners.byAddr = make(map[string]*listener)

	transport.RegisterTransport(Transport)
}

func (a addr) Network() string {
	return string(Transport)
}

func (a addr) String() string {
	return string(a)
}

func (p *pipe) LocalAddr() net.Addr {
	return p.laddr
}

func (p *pipe) RemoteAddr() net.Addr {
	return p.raddr
}

func newPipe(laddr, raddr addr) (*pipe, *pipe) {
	lc, rc := net.Pipe()
	return &pipe{Conn: lc, laddr: laddr, raddr: raddr},
		&pipe{Conn: rc, laddr: raddr, raddr: laddr}
}

// dialer

func (d *dialer) Dial() (transport.Connection, error) {
	listeners.RLock()
	l, ok := listeners.byAddr[d.addr]
	listeners.RUnlock()
	if !ok {
		return nil, transport.ErrConnRefused
	}

	ac := make(chan net.Conn, 1)
	select {
	case <-l.closedq:
		return nil, transport.ErrConnRefused
	case l.accepts <- ac:
	}

	select {
	case <-l.closedq:
		return nil, transport.ErrConnRefused
	case dc := <-ac:
		return transport.NewConnection(Transport, dc), nil
	}
}

// listener

func (l *listener) Listen() error {
	select {
	case <-l.closedq:
		return errs.ErrClosed
	default:
	}

	listeners.Lock()
	defer listeners.Unlock()
	if xl, ok := listeners.byAddr[l.addr]; ok {
		if xl != l {
			return errs.ErrAddrInUse
		}
		// already in listening
		return nil
	}

	listeners.byAddr[l.addr] = l
	return nil
}

func (l *listener) Accept() (transport.Connection, error) {
	listeners.RLock()
	listening := listeners.byAddr[l.addr] == l
	listeners.RUnlock()
	if !listening {
		select {
		case <-l.closedq:
			return nil, errs.ErrClosed
		default:
			return nil, transport.ErrNotListening
		}
	}

	select {
	case <-l.closedq:
		return nil, errs.ErrClosed
	case ac := <-l.accepts:
		lc, dc := newPipe(addr(l.addr), addr(l.addr+".dialer"))
		// buffered, the dialer never blocks us
		ac <- dc
		return transport.NewConnection(Transport, lc), nil
	}
}

func (l *listener) Address() string {
	return "inproc://" + l.addr
}

func (l *listener) Close() (err error) {
	err = errs.ErrClosed
	l.once.Do(func() {
		err = nil
		close(l.closedq)

		listeners.Lock()
		if listeners.byAddr[l.addr] == l {
			delete(listeners.byAddr, l.addr)
		}
		listeners.Unlock()
	})
	return
}

// inprocTran

func (t inprocTran) Scheme() string {
	return string(t)
}

func (t inprocTran) NewDialer(addr string) (transport.Dialer, error) {
	var err error
	if addr, err = transport.StripScheme(t, addr); err != nil {
		return nil, err
	}

	d := &dialer{Options: options.NewOptions(), addr: addr}
	return d, nil
}

func (t inprocTran) NewListener(addr string) (transport.Listener, error) {
	var err error
	if addr, err = transport.StripScheme(t, addr); err != nil {
		return nil, err
	}

	l := &listener{
		Options: options.NewOptions(),
		addr:    addr,
		accepts: make(chan chan net.Conn, defaultAcceptQueueSize),
		closedq: make(chan struct{}),
	}
	return l, nil
}
