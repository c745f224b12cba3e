package native

import (
	"fmt"
	"testing"
	"time"

	"github.com/multisocket/thrbench/errs"
	"github.com/multisocket/thrbench/options"
	"github.com/multisocket/thrbench/perf"
	"github.com/multisocket/thrbench/socket"
)

func TestHarnessOverInproc(t *testing.T) {
	for _, size := range []int{1, 1000, 10000} {
		t.Run(fmt.Sprint(size), func(t *testing.T) {
			addr := fmt.Sprintf("inproc://native.thr.%d", size)
			h := perf.NewHarness(Engine, 1, perf.DefaultEndpointConfig())

			done := make(chan *perf.SendSummary, 1)
			go func() {
				sum, err := perf.NewSender(Engine, 1, perf.DefaultEndpointConfig()).Run(addr, size)
				if err != nil {
					t.Errorf("sender error: %s", err)
				}
				done <- sum
			}()

			rep, err := h.Run(addr, size, 300*time.Millisecond)
			if err != nil {
				t.Fatalf("Run error: %s", err)
			}
			if rep.Count == 0 || rep.Throughput <= 0 || rep.Size != size {
				t.Errorf("bad report %+v", rep)
			}
			if h.State() != perf.Finished {
				t.Errorf("state %s", h.State())
			}

			select {
			case sum := <-done:
				if sum != nil && (!sum.PeerGone || sum.Sent <= rep.Count) {
					t.Errorf("bad summary %+v for %d received", sum, rep.Count)
				}
				if sum != nil && sum.Writes.Small+sum.Writes.Medium+sum.Writes.Large == 0 {
					t.Errorf("no writes counted %+v", sum.Writes)
				}
			case <-time.After(10 * time.Second):
				t.Fatal("sender did not detect the receiver end")
			}
		})
	}
}

func TestHarnessCurveTCP(t *testing.T) {
	server := perf.DefaultEndpointConfig()
	server.Security = perf.ServerSecurity()
	client := perf.DefaultEndpointConfig()
	client.Security = perf.ClientSecurity()

	h := perf.NewHarness(Engine, 2, server)
	s := perf.NewSender(Engine, 2, client)
	s.Count = 1000
	go s.Run("tcp://127.0.0.1:39517", 100)

	rep, err := h.Run("tcp://127.0.0.1:39517", 100, 0)
	if err != nil {
		t.Fatalf("Run error: %s", err)
	}
	if rep.Count != 1 {
		t.Errorf("count %d", rep.Count)
	}
}

func TestSizeMismatch(t *testing.T) {
	s := perf.NewSender(Engine, 1, perf.EndpointConfig{})
	s.Count = 10
	go s.Run("inproc://native.mismatch", 10)

	rep, err := perf.NewHarness(Engine, 1, perf.EndpointConfig{}).Run("inproc://native.mismatch", 11, time.Second)
	if rep != nil || perf.KindOf(err) != perf.SizeMismatchError {
		t.Errorf("expected SizeMismatchError, got %v", err)
	}
}

func TestEndpointOptions(t *testing.T) {
	e := New(options.OptionValues{socket.OptionRecvTimeout: 10 * time.Millisecond})
	ctx, err := e.NewContext(0)
	if err != nil {
		t.Fatalf("NewContext error: %s", err)
	}
	defer ctx.Term()

	ep, err := ctx.NewEndpoint(perf.Pull)
	if err != nil {
		t.Fatalf("NewEndpoint error: %s", err)
	}
	if err = ep.SetOption(perf.HWM, 10); err != nil {
		t.Errorf("HWM: %s", err)
	}
	if err = ep.SetOption(perf.OptionKey(99), 1); err != errs.ErrBadOption {
		t.Errorf("expected ErrBadOption, got %v", err)
	}
	if err = ep.SetOption(perf.CurveSecretKey, "short"); err == nil {
		t.Error("bad key accepted")
	}
	var f perf.Frame
	if err = ep.Recv(&f); err != errs.ErrTimeout {
		t.Errorf("expected ErrTimeout from extra option, got %v", err)
	}

	if _, err = e.NewContext(-1); err != errs.ErrBadOption {
		t.Errorf("expected ErrBadOption, got %v", err)
	}
}
