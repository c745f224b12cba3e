package socket

import (
	"context"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/multisocket/thrbench/errs"
)

// write size classes
const (
	SmallWrite  = 1024
	MediumWrite = 64 * 1024
)

type (
	// WriteStats counts connection writes by size: small < 1KiB <= medium < 64KiB <= large.
	WriteStats struct {
		Small  uint64
		Medium uint64
		Large  uint64
	}

	// Context owns sockets and bounds their batch encoding and decoding work to ioThreads at once.
	Context struct {
		ioThreads int
		sem       *semaphore.Weighted
		small     atomic.Uint64
		medium    atomic.Uint64
		large     atomic.Uint64

		sync.Mutex
		sockets    map[*socket]struct{}
		terminated bool
	}
)

// NewContext create a context with ioThreads workers, 0 is treated as 1.
func NewContext(ioThreads int) (*Context, error) {
	if ioThreads < 0 {
		return nil, errs.ErrBadOption
	}
	n := ioThreads
	if n == 0 {
		n = 1
	}
	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("domain", "context").WithField("ioThreads", ioThreads).Debug("create")
	}
	return &Context{
		ioThreads: ioThreads,
		sem:       semaphore.NewWeighted(int64(n)),
		sockets:   make(map[*socket]struct{}),
	}, nil
}

// IOThreads returns the configured worker count.
func (ctx *Context) IOThreads() int {
	return ctx.ioThreads
}

// NewSocket create a socket of type t.
func (ctx *Context) NewSocket(t Type) (Socket, error) {
	if t != Push && t != Pull {
		return nil, ErrBadSocketType
	}
	ctx.Lock()
	defer ctx.Unlock()
	if ctx.terminated {
		return nil, errs.ErrClosed
	}
	s := newSocket(ctx, t)
	ctx.sockets[s] = struct{}{}
	return s, nil
}

func (ctx *Context) remSocket(s *socket) {
	ctx.Lock()
	delete(ctx.sockets, s)
	ctx.Unlock()
}

// acquire admits one batch of encoding or decoding work.
func (ctx *Context) acquire() {
	// never fails with a background context
	ctx.sem.Acquire(context.Background(), 1)
}

func (ctx *Context) release() {
	ctx.sem.Release(1)
}

func (ctx *Context) recordWrite(n int) {
	switch {
	case n < SmallWrite:
		ctx.small.Add(1)
	case n < MediumWrite:
		ctx.medium.Add(1)
	default:
		ctx.large.Add(1)
	}
}

// WriteStats returns the write counts of all sockets of the context.
func (ctx *Context) WriteStats() WriteStats {
	return WriteStats{
		Small:  ctx.small.Load(),
		Medium: ctx.medium.Load(),
		Large:  ctx.large.Load(),
	}
}

// Term closes every socket of the context, each lingering per its options.
// Sockets can not be created after Term.
func (ctx *Context) Term() (err error) {
	ctx.Lock()
	if ctx.terminated {
		ctx.Unlock()
		return errs.ErrClosed
	}
	ctx.terminated = true
	sockets := make([]*socket, 0, len(ctx.sockets))
	for s := range ctx.sockets {
		sockets = append(sockets, s)
	}
	ctx.Unlock()

	for _, s := range sockets {
		if cerr := s.Close(); cerr != nil && cerr != errs.ErrClosed && err == nil {
			err = cerr
		}
	}
	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("domain", "context").WithField("sockets", len(sockets)).Debug("term")
	}
	return
}
