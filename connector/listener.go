package connector

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/multisocket/thrbench/errs"
	"github.com/multisocket/thrbench/options"
	"github.com/multisocket/thrbench/transport"
)

type listener struct {
	options.Options

	parent *connector
	addr   string
	tl     transport.Listener
	sync.Mutex
	closed bool
}

func newListener(parent *connector, addr string, tl transport.Listener, ovs options.OptionValues) *listener {
	return &listener{
		Options: options.NewOptionsWithValues(ovs),
		parent:  parent,
		addr:    addr,
		tl:      tl,
	}
}

func (l *listener) isClosed() bool {
	l.Lock()
	defer l.Unlock()
	return l.closed
}

func (l *listener) accepted(tc transport.Connection) {
	opts := newPipeOptions(l.Options, l.parent.Options)
	sealer, err := l.parent.negotiate(tc, opts)
	if err != nil {
		log.WithField("domain", "connector").
			WithFields(log.Fields{"addr": l.addr, "remoteAddress": tc.RemoteAddress()}).
			WithError(err).
			Warn("negotiate")
		tc.Close()
		return
	}
	l.parent.addPipe(newPipe(l.parent, tc, nil, opts, sealer))
}

// serve spins in a loop, calling the accepter's Accept routine.
func (l *listener) serve() {
	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("domain", "connector").
			WithFields(log.Fields{"addr": l.Address(), "action": "start"}).Debug("accept")
	}
	for {
		// If the underlying Listener is closed, or not
		// listening, we expect to return back with an error.
		tc, err := l.tl.Accept()
		if err == nil {
			go l.accepted(tc)
			continue
		}
		if err == errs.ErrClosed || l.isClosed() {
			break
		}
		// Debounce a little bit, to avoid thrashing the CPU.
		time.Sleep(time.Second / 100)
	}
	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("domain", "connector").
			WithFields(log.Fields{"addr": l.addr, "action": "end"}).Debug("accept")
	}
}

func (l *listener) Listen() error {
	if err := l.tl.Listen(); err != nil {
		return err
	}

	go l.serve()
	return nil
}

func (l *listener) Address() string {
	return l.tl.Address()
}

func (l *listener) Close() error {
	l.Lock()
	defer l.Unlock()
	if l.closed {
		return errs.ErrClosed
	}
	l.closed = true
	return l.tl.Close()
}
