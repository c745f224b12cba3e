package connector

import (
	"math/rand"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/multisocket/thrbench/errs"
	"github.com/multisocket/thrbench/options"
	"github.com/multisocket/thrbench/transport"
)

type dialer struct {
	options.Options
	parent *connector
	addr   string
	d      transport.Dialer

	sync.Mutex
	closedq    chan struct{}
	active     bool
	dialing    bool
	connected  bool
	redialer   *time.Timer
	reconnTime time.Duration
}

func newDialer(parent *connector, addr string, td transport.Dialer, ovs options.OptionValues) *dialer {
	return &dialer{
		Options: options.NewOptionsWithValues(ovs),
		parent:  parent,
		addr:    addr,
		d:       td,
		closedq: make(chan struct{}),
	}
}

// options
func (d *dialer) minReconnectTime() time.Duration {
	return OptionMinReconnectTime.ValueFrom(d.Options, d.parent.Options)
}

func (d *dialer) maxReconnectTime() time.Duration {
	return OptionMaxReconnectTime.ValueFrom(d.Options, d.parent.Options)
}

func (d *dialer) dialAsync() bool {
	return OptionDialAsync.ValueFrom(d.Options, d.parent.Options)
}

func (d *dialer) reconnect() bool {
	return OptionReconnect.ValueFrom(d.Options, d.parent.Options)
}

func (d *dialer) Dial() error {
	select {
	case <-d.closedq:
		return errs.ErrClosed
	default:
	}
	d.Lock()
	if d.active {
		d.Unlock()
		return errs.ErrAddrInUse
	}

	d.active = true
	d.reconnTime = d.minReconnectTime()
	d.Unlock()
	if d.dialAsync() {
		go d.redial()
		return nil
	}
	return d.dial(false)
}

func (d *dialer) Close() error {
	d.Lock()
	defer d.Unlock()
	select {
	case <-d.closedq:
		return errs.ErrClosed
	default:
		close(d.closedq)
	}
	if d.redialer != nil {
		d.redialer.Stop()
		d.redialer = nil
	}
	return nil
}

func (d *dialer) reconn() bool {
	select {
	case <-d.closedq:
		return true
	default:
	}

	if !d.reconnect() {
		return false
	}

	d.Lock()
	if d.redialer != nil {
		d.redialer.Stop()
	}
	d.redialer = time.AfterFunc(d.reconnTime, d.redial)
	d.Unlock()
	return true
}

func (d *dialer) pipeClosed() {
	d.Lock()
	d.connected = false
	d.Unlock()

	if !d.reconn() {
		d.parent.remDialer(d)
	}
}

func (d *dialer) connect() (p *pipe, err error) {
	tc, err := d.d.Dial()
	if err != nil {
		return nil, err
	}
	opts := newPipeOptions(d.Options, d.parent.Options)
	sealer, err := d.parent.negotiate(tc, opts)
	if err != nil {
		tc.Close()
		return nil, err
	}
	return newPipe(d.parent, tc, d, opts, sealer), nil
}

func (d *dialer) dial(redial bool) error {
	select {
	case <-d.closedq:
		return errs.ErrClosed
	default:
	}

	d.Lock()
	if d.dialing || d.connected {
		d.Unlock()
		return errs.ErrAddrInUse
	}
	if d.redialer != nil {
		d.redialer.Stop()
		d.redialer = nil
	}
	d.dialing = true
	d.Unlock()

	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("domain", "connector").
			WithFields(log.Fields{"addr": d.addr, "action": "start"}).Debug("dial")
	}
	p, err := d.connect()
	if err == nil {
		if log.IsLevelEnabled(log.DebugLevel) {
			log.WithField("domain", "connector").
				WithFields(log.Fields{"addr": d.addr, "action": "success"}).Debug("dial")
		}

		d.Lock()
		d.dialing = false
		d.connected = true
		d.reconnTime = d.minReconnectTime()
		d.Unlock()

		d.parent.addPipe(p)
		return nil
	}
	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("domain", "connector").
			WithError(err).WithFields(log.Fields{"addr": d.addr, "action": "failed"}).Debug("dial")
	}

	d.Lock()
	defer d.Unlock()
	d.dialing = false

	if !redial {
		return err
	}
	select {
	case <-d.closedq:
		return errs.ErrClosed
	default:
	}

	// Exponential backoff, and jitter.  Our backoff grows at
	// about 1.3x on average, so we don't penalize a failed
	// connection too badly.
	minfact := float64(1.1)
	maxfact := float64(1.5)
	actfact := rand.Float64()*(maxfact-minfact) + minfact
	rtime := d.reconnTime
	d.reconnTime = time.Duration(actfact * float64(d.reconnTime))
	if reconnMaxTime := d.maxReconnectTime(); reconnMaxTime != 0 {
		if d.reconnTime > reconnMaxTime {
			d.reconnTime = reconnMaxTime
		}
	}
	d.redialer = time.AfterFunc(rtime, d.redial)
	return err
}

func (d *dialer) redial() {
	d.dial(true)
}
