package perf

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/multisocket/thrbench/errs"
)

// sender defaults
const (
	// PeerTimeoutAfter is the number of messages sent before the peer timeout is set.
	PeerTimeoutAfter = 10000
	// PeerTimeout is the send timeout that tells the receiver has ended.
	PeerTimeout = 500 * time.Millisecond
)

type (
	// SendSummary is the result of a sender run.
	SendSummary struct {
		Sent    uint64
		Elapsed time.Duration
		// PeerGone is set when sending stopped because the receiver ended.
		PeerGone bool
		Writes   WriteStats
	}

	// Sender streams fixed size messages to a receiver.
	Sender struct {
		engine    Engine
		ioThreads int
		cfg       EndpointConfig
		// Count stops the sender after Count messages, 0 to send until the receiver ends.
		Count uint64

		sent atomic.Uint64

		mu      sync.Mutex
		ctx     Context
		ep      Endpoint
		stopped bool
	}
)

// NewSender create a sender sending with engine.
func NewSender(engine Engine, ioThreads int, cfg EndpointConfig) *Sender {
	return &Sender{
		engine:    engine,
		ioThreads: ioThreads,
		cfg:       cfg,
	}
}

// Progress returns the number of messages sent so far.
func (s *Sender) Progress() uint64 {
	return s.sent.Load()
}

// Stop ends a running Run from another goroutine, Run then returns as if the receiver ended.
func (s *Sender) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.ep != nil {
		s.ep.Close()
	}
}

// WriteStats returns the write counts of the current or last run's context,
// zero when the engine does not count writes.
func (s *Sender) WriteStats() WriteStats {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ws, ok := ctx.(WriteStatser); ok {
		return ws.WriteStats()
	}
	return WriteStats{}
}

func (s *Sender) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// attach makes ep closable by Stop, it fails when already stopped.
func (s *Sender) attach(ep Endpoint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	s.ep = ep
	return true
}

// detach returns the endpoint for teardown, nil when Stop closed it.
func (s *Sender) detach() Endpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	ep := s.ep
	s.ep = nil
	if s.stopped {
		return nil
	}
	return ep
}

// Run connects a PUSH endpoint to addr and sends messages of size bytes.
func (s *Sender) Run(addr string, size int) (sum *SendSummary, err error) {
	s.sent.Store(0)
	ctx, err := s.engine.NewContext(s.ioThreads)
	if err != nil {
		return nil, newError(ContextError, "init", err)
	}
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	var ep Endpoint
	defer func() {
		if ep != nil && s.detach() == nil {
			// closed by Stop
			ep = nil
		}
		terr := teardown(&Frame{}, ep, ctx)
		if terr == nil {
			return
		}
		if err != nil {
			log.WithField("domain", "perf").WithError(terr).Warn("teardown after failure")
			return
		}
		sum, err = nil, terr
	}()

	if ep, err = ctx.NewEndpoint(Push); err != nil {
		err = newError(ContextError, "socket", err)
		return
	}
	if !s.attach(ep) {
		ep.Close()
		ep = nil
		return &SendSummary{PeerGone: true}, nil
	}
	if err = Configure(ep, s.cfg); err != nil {
		return
	}
	if s.Count == 0 {
		// unsent messages are useless once the receiver has ended
		if err = ep.SetOption(Linger, time.Duration(0)); err != nil {
			err = newError(ConfigurationError, "setsockopt "+Linger.String(), err)
			return
		}
	}
	if err = ep.Connect(addr); err != nil {
		if s.isStopped() {
			return &SendSummary{PeerGone: true}, nil
		}
		err = newError(ConnectError, "connect", err)
		return
	}

	sum = &SendSummary{}
	payload := make([]byte, size)
	watch := NewStopwatch()
	watch.Start()
	for s.Count == 0 || sum.Sent < s.Count {
		if err = ep.Send(payload); err != nil {
			if s.isStopped() {
				sum.PeerGone, err = true, nil
				break
			}
			if sum.Sent >= PeerTimeoutAfter && s.Count == 0 && errors.Is(err, errs.ErrTimeout) {
				log.WithField("domain", "perf").WithField("sent", sum.Sent).Info("receiver has ended")
				sum.PeerGone, err = true, nil
				break
			}
			err = newError(SendError, "sendmsg", err)
			sum = nil
			return
		}
		sum.Sent = s.sent.Add(1)

		if sum.Sent == PeerTimeoutAfter && s.Count == 0 {
			log.WithField("domain", "perf").Info("changing send timeout to detect when the receiver has ended")
			if err = ep.SetOption(SendTimeout, PeerTimeout); err != nil {
				err = newError(ConfigurationError, "setsockopt "+SendTimeout.String(), err)
				sum = nil
				return
			}
		}
	}
	sum.Elapsed = watch.Stop()
	sum.Writes = s.WriteStats()
	return
}
