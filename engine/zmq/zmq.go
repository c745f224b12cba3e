// Package zmq runs the harness over github.com/go-zeromq/zmq4, for measuring
// against libzmq's own perf tools.
package zmq

import (
	"context"
	"strings"
	"sync"
	"time"

	zmq "github.com/go-zeromq/zmq4"
	log "github.com/sirupsen/logrus"

	"github.com/multisocket/thrbench/errs"
	"github.com/multisocket/thrbench/perf"
)

// errors
const (
	ErrCurveUnsupported = errs.Err("curve security is not supported by zmq4")
)

// redial interval while the peer is not up
const dialRetry = 250 * time.Millisecond

type (
	engine struct{}

	zmqContext struct {
		ctx    context.Context
		cancel context.CancelFunc

		sync.Mutex
		endpoints map[*endpoint]struct{}
		closed    bool
	}

	endpoint struct {
		parent *zmqContext
		sck    zmq.Socket

		sync.Mutex
		sendTimeout time.Duration
		closed      bool
	}
)

// Engine is the zmq4 engine.
var Engine perf.Engine = engine{}

func (engine) Name() string {
	return "zmq"
}

func (engine) NewContext(ioThreads int) (perf.Context, error) {
	if ioThreads < 0 {
		return nil, errs.ErrBadOption
	}
	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("domain", "zmq").WithField("ioThreads", ioThreads).Debug("io threads have no effect")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &zmqContext{
		ctx:       ctx,
		cancel:    cancel,
		endpoints: make(map[*endpoint]struct{}),
	}, nil
}

func (c *zmqContext) NewEndpoint(role perf.Role) (perf.Endpoint, error) {
	c.Lock()
	defer c.Unlock()
	if c.closed {
		return nil, errs.ErrClosed
	}

	opts := []zmq.Option{
		zmq.WithDialerRetry(dialRetry),
		zmq.WithDialerMaxRetries(-1),
	}
	var sck zmq.Socket
	switch role {
	case perf.Pull:
		sck = zmq.NewPull(c.ctx, opts...)
	case perf.Push:
		sck = zmq.NewPush(c.ctx, opts...)
	default:
		return nil, errs.ErrBadSocketType
	}
	ep := &endpoint{parent: c, sck: sck, sendTimeout: -1}
	c.endpoints[ep] = struct{}{}
	return ep, nil
}

func (c *zmqContext) remEndpoint(ep *endpoint) {
	c.Lock()
	delete(c.endpoints, ep)
	c.Unlock()
}

func (c *zmqContext) Term() (err error) {
	c.Lock()
	if c.closed {
		c.Unlock()
		return errs.ErrClosed
	}
	c.closed = true
	eps := make([]*endpoint, 0, len(c.endpoints))
	for ep := range c.endpoints {
		eps = append(eps, ep)
	}
	c.Unlock()

	for _, ep := range eps {
		if cerr := ep.Close(); cerr != nil && cerr != errs.ErrClosed && err == nil {
			err = cerr
		}
	}
	c.cancel()
	return
}

func (ep *endpoint) SetOption(key perf.OptionKey, val interface{}) error {
	switch key {
	case perf.HWM:
		return ep.sck.SetOption(zmq.OptionHWM, val)
	case perf.RecvBuffer, perf.SendBuffer, perf.InBatchSize, perf.OutBatchSize, perf.Linger:
		if log.IsLevelEnabled(log.DebugLevel) {
			log.WithField("domain", "zmq").WithField("option", key).Debug("option has no effect")
		}
		return nil
	case perf.CurveServer, perf.CurveSecretKey, perf.CurvePublicKey, perf.CurveServerKey:
		return ErrCurveUnsupported
	case perf.SendTimeout:
		d, ok := val.(time.Duration)
		if !ok {
			return errs.ErrBadOption
		}
		ep.Lock()
		ep.sendTimeout = d
		ep.Unlock()
		return nil
	}
	return errs.ErrBadOption
}

// endpointAddr replace a * host with all interfaces.
func endpointAddr(addr string) string {
	return strings.Replace(addr, "://*:", "://0.0.0.0:", 1)
}

func (ep *endpoint) Bind(addr string) error {
	return ep.sck.Listen(endpointAddr(addr))
}

func (ep *endpoint) Connect(addr string) error {
	return ep.sck.Dial(endpointAddr(addr))
}

func (ep *endpoint) Recv(f *perf.Frame) error {
	msg, err := ep.sck.Recv()
	if err != nil {
		return err
	}
	f.Set(msg.Bytes(), nil)
	return nil
}

func (ep *endpoint) Send(b []byte) error {
	ep.Lock()
	timeout := ep.sendTimeout
	ep.Unlock()

	msg := zmq.NewMsg(b)
	if timeout < 0 {
		return ep.sck.Send(msg)
	}

	done := make(chan error, 1)
	go func() {
		done <- ep.sck.Send(msg)
	}()
	tm := time.NewTimer(timeout)
	defer tm.Stop()
	select {
	case err := <-done:
		return err
	case <-tm.C:
		return errs.ErrTimeout
	}
}

func (ep *endpoint) Close() error {
	ep.Lock()
	if ep.closed {
		ep.Unlock()
		return errs.ErrClosed
	}
	ep.closed = true
	ep.Unlock()

	ep.parent.remEndpoint(ep)
	return ep.sck.Close()
}
