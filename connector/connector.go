package connector

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/multisocket/thrbench/errs"
	"github.com/multisocket/thrbench/options"
	"github.com/multisocket/thrbench/transport"
)

type (
	connector struct {
		options.Options

		sync.Mutex
		negotiator       Negotiator
		dialers          map[*dialer]struct{} // can dial to any address any times
		listeners        map[*listener]struct{}
		pipes            map[uint32]*pipe
		pipeEventHandler PipeEventHandler
		closed           bool
	}
)

// New create a Connector
func New() Connector {
	return NewWithOptions(options.NewOptions())
}

// NewWithOptions create a Connector with options, they are the fallback of
// dialer, listener and pipe options.
func NewWithOptions(opts options.Options) Connector {
	c := &connector{
		Options:   opts,
		dialers:   make(map[*dialer]struct{}),
		listeners: make(map[*listener]struct{}),
		pipes:     make(map[uint32]*pipe),
	}

	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("domain", "connector").Debug("create")
	}
	return c
}

func (c *connector) pipeFields(p *pipe) log.Fields {
	return log.Fields{"id": p.ID(), "localAddress": p.LocalAddress(), "remoteAddress": p.RemoteAddress(), "pipes": len(c.pipes)}
}

// negotiate runs the negotiator on a new connection, it may block.
func (c *connector) negotiate(tc transport.Connection, opts options.Options) (Sealer, error) {
	c.Lock()
	negotiator := c.negotiator
	c.Unlock()
	if negotiator == nil {
		return nil, nil
	}
	return negotiator.Negotiate(tc, opts)
}

func (c *connector) addPipe(p *pipe) bool {
	c.Lock()
	defer c.Unlock()

	if c.closed {
		go p.Close()
		return false
	}

	c.pipes[p.ID()] = p
	if c.pipeEventHandler != nil {
		c.pipeEventHandler.HandlePipeEvent(PipeEventAdd, p)
	}

	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("domain", "connector").
			WithFields(c.pipeFields(p)).
			Debug("add pipe")
	}
	return true
}

func (c *connector) remPipe(p *pipe) {
	c.Lock()
	if _, ok := c.pipes[p.ID()]; ok {
		delete(c.pipes, p.ID())
		if c.pipeEventHandler != nil {
			c.pipeEventHandler.HandlePipeEvent(PipeEventRemove, p)
		}
	}
	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("domain", "connector").
			WithFields(c.pipeFields(p)).
			Debug("remove pipe")
	}
	c.Unlock()

	// If the pipe was from a dialer, inform it so that it can redial.
	if d := p.d; d != nil {
		go d.pipeClosed()
	}
}

func (c *connector) SetNegotiator(negotiator Negotiator) {
	c.Lock()
	c.negotiator = negotiator
	c.Unlock()
}

func (c *connector) SetPipeEventHandler(handler PipeEventHandler) {
	c.Lock()
	c.pipeEventHandler = handler
	c.Unlock()
}

// transportOptions pass connector and endpoint options down to transport dialers and listeners.
func (c *connector) transportOptions(to options.Options, ovs options.OptionValues) {
	for o, v := range options.Merge(c.Options.OptionValues(), ovs) {
		to.SetOption(o, v)
	}
}

func (c *connector) DialOptions(addr string, ovs options.OptionValues) error {
	d, err := c.NewDialer(addr, ovs)
	if err != nil {
		return err
	}
	return d.Dial()
}

func (c *connector) NewDialer(addr string, ovs options.OptionValues) (d Dialer, err error) {
	c.Lock()
	defer c.Unlock()

	if c.closed {
		err = errs.ErrClosed
		return
	}

	var (
		t  transport.Transport
		td transport.Dialer
	)

	if t = transport.GetTransportFromAddr(addr); t == nil {
		err = errs.ErrBadTransport
		return
	}

	if td, err = t.NewDialer(addr); err != nil {
		return
	}
	c.transportOptions(td, ovs)

	xd := newDialer(c, addr, td, ovs)
	c.dialers[xd] = struct{}{}
	return xd, nil
}

func (c *connector) remDialer(d *dialer) {
	c.Lock()
	delete(c.dialers, d)
	c.Unlock()
	d.Close()
}

func (c *connector) StopDial(addr string) {
	// NOTE: keep connected pipes
	c.Lock()
	for d := range c.dialers {
		if d.addr == addr {
			delete(c.dialers, d)
			d.Close()
		}
	}
	c.Unlock()
}

func (c *connector) ListenOptions(addr string, ovs options.OptionValues) (Listener, error) {
	l, err := c.NewListener(addr, ovs)
	if err != nil {
		return nil, err
	}
	if err = l.Listen(); err != nil {
		c.Lock()
		delete(c.listeners, l.(*listener))
		c.Unlock()
		return nil, err
	}
	return l, nil
}

func (c *connector) NewListener(addr string, ovs options.OptionValues) (l Listener, err error) {
	c.Lock()
	defer c.Unlock()

	if c.closed {
		err = errs.ErrClosed
		return
	}

	var (
		t  transport.Transport
		tl transport.Listener
	)

	if t = transport.GetTransportFromAddr(addr); t == nil {
		err = errs.ErrBadTransport
		return
	}

	if tl, err = t.NewListener(addr); err != nil {
		return
	}
	c.transportOptions(tl, ovs)

	xl := newListener(c, addr, tl, ovs)
	c.listeners[xl] = struct{}{}
	return xl, nil
}

func (c *connector) StopListen(addr string) {
	// NOTE: keep accepted pipes
	c.Lock()
	for l := range c.listeners {
		if l.addr == addr {
			delete(c.listeners, l)
			l.Close()
		}
	}
	c.Unlock()
}

func (c *connector) PipeCount() int {
	c.Lock()
	n := len(c.pipes)
	c.Unlock()
	return n
}

func (c *connector) Close() {
	c.Lock()
	if c.closed {
		c.Unlock()
		return
	}
	c.closed = true
	listeners := c.listeners
	dialers := c.dialers
	pipes := make([]*pipe, 0, len(c.pipes))
	for _, p := range c.pipes {
		pipes = append(pipes, p)
	}

	c.listeners = nil
	c.dialers = nil
	c.Unlock()

	for l := range listeners {
		l.Close()
	}
	for d := range dialers {
		d.Close()
	}

	for _, p := range pipes {
		p.Close()
	}
}
