package perf

import (
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// State is the harness state.
type State int32

// harness states
const (
	Unconfigured State = iota
	Bound
	WarmedUp
	Measuring
	Finished
	Failed
)

var stateNames = [...]string{
	Unconfigured: "Unconfigured",
	Bound:        "Bound",
	WarmedUp:     "WarmedUp",
	Measuring:    "Measuring",
	Finished:     "Finished",
	Failed:       "Failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// CheckInterval is the number of messages between deadline checks.
const CheckInterval = 1000

type (
	// Run is a measurement run.
	Run struct {
		Size     int
		Duration time.Duration
		Count    uint64
		Elapsed  time.Duration
	}

	// Report is the result of a finished run.
	Report struct {
		Elapsed time.Duration
		Size    int
		Count   uint64
		// Throughput is in messages per second.
		Throughput float64
		// Megabits is in Mb/s.
		Megabits float64
	}

	// Harness measures the receive throughput of an engine.
	Harness struct {
		engine    Engine
		ioThreads int
		cfg       EndpointConfig
		watch     Stopwatch

		state atomic.Int32
		count atomic.Uint64
	}
)

// Report computes the run's report.
func (r *Run) Report() *Report {
	elapsed := r.Elapsed
	if elapsed < time.Microsecond {
		elapsed = time.Microsecond
	}
	throughput := float64(r.Count) / elapsed.Seconds()
	return &Report{
		Elapsed:    elapsed,
		Size:       r.Size,
		Count:      r.Count,
		Throughput: throughput,
		Megabits:   throughput * float64(r.Size) * 8 / 1e6,
	}
}

// NewHarness create a harness receiving with engine.
func NewHarness(engine Engine, ioThreads int, cfg EndpointConfig) *Harness {
	return &Harness{
		engine:    engine,
		ioThreads: ioThreads,
		cfg:       cfg,
		watch:     NewStopwatch(),
	}
}

// SetStopwatch replace the stopwatch, it must be called before Run.
func (h *Harness) SetStopwatch(w Stopwatch) {
	h.watch = w
}

// State returns the current state.
func (h *Harness) State() State {
	return State(h.state.Load())
}

// Progress returns the number of messages measured so far.
func (h *Harness) Progress() uint64 {
	return h.count.Load()
}

func (h *Harness) setState(s State) {
	h.state.Store(int32(s))
	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("domain", "perf").WithField("state", s).Debug("harness")
	}
}

func (h *Harness) recv(ep Endpoint, f *Frame, size int) error {
	if err := ep.Recv(f); err != nil {
		return newError(ReceiveError, "recvmsg", err)
	}
	if f.Size() != size {
		return newError(SizeMismatchError, "recvmsg", ErrIncorrectSize)
	}
	return nil
}

// teardown release frame, close ep and terminate ctx, the first error is returned.
func teardown(f *Frame, ep Endpoint, ctx Context) (err error) {
	f.Close()
	if ep != nil {
		if cerr := ep.Close(); cerr != nil {
			err = newError(TeardownError, "close", cerr)
		}
	}
	if terr := ctx.Term(); terr != nil && err == nil {
		err = newError(TeardownError, "ctx_term", terr)
	}
	return
}

// Run binds a PULL endpoint to addr, receives one warm-up message, then
// measures messages of size bytes until duration elapses.
// The deadline is checked every CheckInterval messages starting with the first.
func (h *Harness) Run(addr string, size int, duration time.Duration) (rep *Report, err error) {
	h.count.Store(0)
	h.setState(Unconfigured)

	ctx, err := h.engine.NewContext(h.ioThreads)
	if err != nil {
		h.setState(Failed)
		return nil, newError(ContextError, "init", err)
	}

	var (
		ep    Endpoint
		frame Frame
	)
	defer func() {
		terr := teardown(&frame, ep, ctx)
		switch {
		case err != nil:
			if terr != nil {
				log.WithField("domain", "perf").WithError(terr).Warn("teardown after failure")
			}
			rep = nil
			h.setState(Failed)
		case terr != nil:
			rep, err = nil, terr
			h.setState(Failed)
		default:
			h.setState(Finished)
		}
	}()

	if ep, err = ctx.NewEndpoint(Pull); err != nil {
		err = newError(ContextError, "socket", err)
		return
	}
	if err = Configure(ep, h.cfg); err != nil {
		return
	}
	if err = ep.Bind(addr); err != nil {
		err = newError(BindError, "bind", err)
		return
	}
	h.setState(Bound)

	if err = h.recv(ep, &frame, size); err != nil {
		return
	}
	h.setState(WarmedUp)

	h.watch.Start()
	h.setState(Measuring)
	var n uint64
	for {
		if err = h.recv(ep, &frame, size); err != nil {
			h.watch.Stop()
			return
		}
		n = h.count.Add(1)
		if (n-1)%CheckInterval == 0 && h.watch.Intermediate() >= duration {
			break
		}
	}

	run := &Run{Size: size, Duration: duration, Count: n, Elapsed: h.watch.Stop()}
	rep = run.Report()
	log.WithField("domain", "perf").
		WithFields(log.Fields{"count": rep.Count, "elapsed": rep.Elapsed}).
		Debug("run finished")
	return
}
