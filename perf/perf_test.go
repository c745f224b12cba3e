package perf

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/multisocket/thrbench/errs"
)

type (
	fakeEngine struct {
		ep         *fakeEndpoint
		ctxErr     error
		termErr    error
		terminated bool
		ioThreads  int
	}

	fakeContext struct {
		e *fakeEngine
	}

	fakeEndpoint struct {
		role     Role
		settings []OptionKey
		values   map[OptionKey]interface{}
		failOn   OptionKey
		bindErr  error
		closeErr error
		closed   bool
		closedq  chan struct{}

		// recv returns the size of the i-th received message
		recv     func(i int) (int, error)
		recvs    int
		released int

		send  func(i int) error
		sends int
	}

	fakeWatch struct {
		elapsed []time.Duration
		checks  int
		stop    time.Duration
		started bool
	}
)

func newFakeEngine(ep *fakeEndpoint) *fakeEngine {
	if ep.values == nil {
		ep.values = make(map[OptionKey]interface{})
	}
	if ep.failOn == 0 {
		ep.failOn = -1
	}
	return &fakeEngine{ep: ep}
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) NewContext(ioThreads int) (Context, error) {
	if e.ctxErr != nil {
		return nil, e.ctxErr
	}
	e.ioThreads = ioThreads
	return &fakeContext{e}, nil
}

func (c *fakeContext) NewEndpoint(role Role) (Endpoint, error) {
	c.e.ep.role = role
	return c.e.ep, nil
}

func (c *fakeContext) Term() error {
	c.e.terminated = true
	return c.e.termErr
}

func (c *fakeContext) WriteStats() WriteStats {
	return WriteStats{Small: 1, Medium: 2, Large: 3}
}

func (ep *fakeEndpoint) SetOption(key OptionKey, val interface{}) error {
	if key == ep.failOn {
		return errs.ErrBadOption
	}
	ep.settings = append(ep.settings, key)
	ep.values[key] = val
	return nil
}

func (ep *fakeEndpoint) Bind(addr string) error    { return ep.bindErr }
func (ep *fakeEndpoint) Connect(addr string) error { return nil }

func (ep *fakeEndpoint) Recv(f *Frame) error {
	size, err := ep.recv(ep.recvs)
	if err != nil {
		return err
	}
	ep.recvs++
	f.Set(make([]byte, size), func() { ep.released++ })
	return nil
}

func (ep *fakeEndpoint) Send(b []byte) error {
	if err := ep.send(ep.sends); err != nil {
		return err
	}
	ep.sends++
	return nil
}

func (ep *fakeEndpoint) Close() error {
	ep.closed = true
	if ep.closedq != nil {
		close(ep.closedq)
	}
	return ep.closeErr
}

func (w *fakeWatch) Start() { w.started = true }

func (w *fakeWatch) Intermediate() time.Duration {
	i := w.checks
	w.checks++
	if i < len(w.elapsed) {
		return w.elapsed[i]
	}
	return w.elapsed[len(w.elapsed)-1]
}

func (w *fakeWatch) Stop() time.Duration { return w.stop }

func sized(size int) func(int) (int, error) {
	return func(int) (int, error) { return size, nil }
}

func TestRunReport(t *testing.T) {
	rep := (&Run{Size: 100, Count: 1000, Elapsed: time.Second}).Report()
	if rep.Throughput != 1000 {
		t.Errorf("throughput %f", rep.Throughput)
	}
	if math.Abs(rep.Megabits-0.8) > 1e-9 {
		t.Errorf("megabits %f", rep.Megabits)
	}

	rep = (&Run{Size: 1, Count: 1}).Report()
	if rep.Elapsed != time.Microsecond || rep.Throughput != 1e6 {
		t.Errorf("elapsed floor not applied: %+v", rep)
	}
}

func TestHarnessRun(t *testing.T) {
	for _, tc := range []struct {
		name     string
		duration time.Duration
		elapsed  []time.Duration
		count    uint64
	}{
		{"zero duration", 0, []time.Duration{0}, 1},
		{"first check", time.Second, []time.Duration{2 * time.Second}, 1},
		{"third check", time.Second, []time.Duration{0, time.Millisecond, time.Second}, 2001},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ep := &fakeEndpoint{recv: sized(64)}
			e := newFakeEngine(ep)
			w := &fakeWatch{elapsed: tc.elapsed, stop: 2 * time.Second}
			h := NewHarness(e, 3, DefaultEndpointConfig())
			h.SetStopwatch(w)

			rep, err := h.Run("tcp://*:5555", 64, tc.duration)
			if err != nil {
				t.Fatalf("Run error: %s", err)
			}
			if rep.Count != tc.count || h.Progress() != tc.count {
				t.Errorf("count %d, progress %d, want %d", rep.Count, h.Progress(), tc.count)
			}
			if ep.recvs != int(tc.count)+1 {
				t.Errorf("received %d messages with warm-up", ep.recvs)
			}
			if rep.Elapsed != 2*time.Second || rep.Size != 64 {
				t.Errorf("bad report %+v", rep)
			}
			if !w.started || h.State() != Finished {
				t.Errorf("state %s", h.State())
			}
			if ep.role != Pull || e.ioThreads != 3 {
				t.Errorf("role %s, ioThreads %d", ep.role, e.ioThreads)
			}
			if !ep.closed || !e.terminated || ep.released != ep.recvs {
				t.Errorf("teardown incomplete: closed=%v terminated=%v released=%d", ep.closed, e.terminated, ep.released)
			}
		})
	}
}

func TestHarnessFailures(t *testing.T) {
	errRecv := errors.New("interrupted")
	for _, tc := range []struct {
		name  string
		setup func(e *fakeEngine)
		kind  Kind
		msg   string
	}{
		{"context", func(e *fakeEngine) { e.ctxErr = errs.ErrBadOption }, ContextError, "error in init: invalid or unsupported option"},
		{"configure", func(e *fakeEngine) { e.ep.failOn = SendBuffer }, ConfigurationError, "error in setsockopt SendBuffer: invalid or unsupported option"},
		{"bind", func(e *fakeEngine) { e.ep.bindErr = errs.ErrAddrInUse }, BindError, "error in bind: address already in use"},
		{"warm-up size", func(e *fakeEngine) { e.ep.recv = sized(10) }, SizeMismatchError, "message of incorrect size received"},
		{"measuring size", func(e *fakeEngine) {
			e.ep.recv = func(i int) (int, error) {
				if i == 5 {
					return 63, nil
				}
				return 64, nil
			}
		}, SizeMismatchError, "message of incorrect size received"},
		{"receive", func(e *fakeEngine) {
			e.ep.recv = func(i int) (int, error) {
				if i == 3 {
					return 0, errRecv
				}
				return 64, nil
			}
		}, ReceiveError, "error in recvmsg: interrupted"},
		{"failure wins over teardown", func(e *fakeEngine) {
			e.ep.bindErr = errs.ErrBadAddr
			e.termErr = errs.ErrClosed
		}, BindError, "error in bind: invalid address"},
		{"teardown", func(e *fakeEngine) { e.termErr = errs.ErrClosed }, TeardownError, "error in ctx_term: object is closed"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ep := &fakeEndpoint{recv: sized(64)}
			e := newFakeEngine(ep)
			tc.setup(e)
			h := NewHarness(e, 1, DefaultEndpointConfig())
			h.SetStopwatch(&fakeWatch{elapsed: []time.Duration{0, 0, 0, 0, 0, 0, 0, 0, time.Hour}})

			rep, err := h.Run("tcp://*:5555", 64, time.Second)
			if rep != nil {
				t.Errorf("report on failure: %+v", rep)
			}
			if KindOf(err) != tc.kind {
				t.Fatalf("kind %s, want %s: %v", KindOf(err), tc.kind, err)
			}
			if err.Error() != tc.msg {
				t.Errorf("message %q, want %q", err.Error(), tc.msg)
			}
			if ExitCode(err) != -1 {
				t.Errorf("exit code %d", ExitCode(err))
			}
			if h.State() != Failed {
				t.Errorf("state %s", h.State())
			}
			if tc.kind != ContextError && (!ep.closed || !e.terminated || ep.released != ep.recvs) {
				t.Error("teardown not run")
			}
		})
	}
}

func TestConfigure(t *testing.T) {
	for _, tc := range []struct {
		name string
		cfg  EndpointConfig
		keys []OptionKey
	}{
		{"default", DefaultEndpointConfig(), []OptionKey{RecvBuffer, SendBuffer, InBatchSize, OutBatchSize}},
		{"zero sizes skipped", EndpointConfig{SendBuffer: 4096}, []OptionKey{SendBuffer}},
		{"server", EndpointConfig{Security: ServerSecurity(), RecvBuffer: 1},
			[]OptionKey{CurveSecretKey, CurveServer, RecvBuffer}},
		{"client", EndpointConfig{Security: ClientSecurity(), OutBatchSize: 1},
			[]OptionKey{CurveSecretKey, CurvePublicKey, CurveServerKey, OutBatchSize}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ep := &fakeEndpoint{values: map[OptionKey]interface{}{}, failOn: -1}
			if err := Configure(ep, tc.cfg); err != nil {
				t.Fatalf("Configure error: %s", err)
			}
			if len(ep.settings) != len(tc.keys) {
				t.Fatalf("settings %v, want %v", ep.settings, tc.keys)
			}
			for i, k := range tc.keys {
				if ep.settings[i] != k {
					t.Errorf("setting %d is %s, want %s", i, ep.settings[i], k)
				}
			}
		})
	}

	ep := &fakeEndpoint{values: map[OptionKey]interface{}{}, failOn: RecvBuffer}
	err := Configure(ep, DefaultEndpointConfig())
	if KindOf(err) != ConfigurationError || !errors.Is(err, errs.ErrBadOption) {
		t.Errorf("expected ConfigurationError wrapping ErrBadOption, got %v", err)
	}
	if len(ep.settings) != 0 {
		t.Errorf("options applied after a failure: %v", ep.settings)
	}
}

func TestSender(t *testing.T) {
	t.Run("peer gone", func(t *testing.T) {
		ep := &fakeEndpoint{send: func(i int) error {
			if i >= PeerTimeoutAfter+5 {
				return errs.ErrTimeout
			}
			return nil
		}}
		e := newFakeEngine(ep)
		s := NewSender(e, 1, DefaultEndpointConfig())
		sum, err := s.Run("tcp://127.0.0.1:5555", 16)
		if err != nil {
			t.Fatalf("Run error: %s", err)
		}
		if !sum.PeerGone || sum.Sent != PeerTimeoutAfter+5 || s.Progress() != sum.Sent {
			t.Errorf("bad summary %+v", sum)
		}
		if ep.role != Push || ep.values[Linger] != time.Duration(0) || ep.values[SendTimeout] != PeerTimeout {
			t.Errorf("options %v", ep.values)
		}
		if sum.Writes != (WriteStats{Small: 1, Medium: 2, Large: 3}) {
			t.Errorf("writes %+v", sum.Writes)
		}
		if st := s.WriteStats(); st != sum.Writes {
			t.Errorf("sender write stats %+v", st)
		}
		if !ep.closed || !e.terminated {
			t.Error("teardown not run")
		}
	})

	t.Run("count", func(t *testing.T) {
		ep := &fakeEndpoint{send: func(int) error { return nil }}
		s := NewSender(newFakeEngine(ep), 1, EndpointConfig{})
		s.Count = 5
		sum, err := s.Run("inproc://thr", 16)
		if err != nil || sum.Sent != 5 || sum.PeerGone {
			t.Errorf("summary %+v, error %v", sum, err)
		}
		if _, set := ep.values[Linger]; set {
			t.Error("linger changed for a counted run")
		}
		if st := NewSender(newFakeEngine(ep), 1, EndpointConfig{}).WriteStats(); st != (WriteStats{}) {
			t.Errorf("write stats before a run %+v", st)
		}
	})

	t.Run("stop", func(t *testing.T) {
		ep := &fakeEndpoint{closedq: make(chan struct{})}
		ep.send = func(i int) error {
			if i == 100 {
				<-ep.closedq
				return errs.ErrClosed
			}
			return nil
		}
		e := newFakeEngine(ep)
		s := NewSender(e, 1, EndpointConfig{})
		go func() {
			for s.Progress() < 100 {
				time.Sleep(time.Millisecond)
			}
			s.Stop()
		}()
		sum, err := s.Run("inproc://thr", 16)
		if err != nil || !sum.PeerGone || sum.Sent != 100 {
			t.Errorf("summary %+v, error %v", sum, err)
		}
		if !ep.closed || !e.terminated {
			t.Error("teardown not run")
		}
	})

	t.Run("early timeout", func(t *testing.T) {
		ep := &fakeEndpoint{send: func(i int) error {
			if i == 3 {
				return errs.ErrTimeout
			}
			return nil
		}}
		_, err := NewSender(newFakeEngine(ep), 1, EndpointConfig{}).Run("tcp://127.0.0.1:5555", 16)
		if KindOf(err) != SendError || err.Error() != "error in sendmsg: operation time out" {
			t.Errorf("expected SendError, got %v", err)
		}
	})
}

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != 0 {
		t.Error("nil error")
	}
	if ExitCode(Usage("usage: local_thr")) != 1 {
		t.Error("usage error")
	}
	if ExitCode(errors.New("x")) != -1 || KindOf(errors.New("x")) != Other {
		t.Error("foreign error")
	}
	var frame Frame
	frame.Close()
	if frame.Size() != 0 || frame.Bytes() != nil {
		t.Error("empty frame")
	}
}
