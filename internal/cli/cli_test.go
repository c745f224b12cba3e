package cli

import (
	"testing"

	"github.com/multisocket/thrbench/config"
	"github.com/multisocket/thrbench/engine/native"
	"github.com/multisocket/thrbench/metrics"
	"github.com/multisocket/thrbench/perf"
	"github.com/multisocket/thrbench/security/curve"
	"github.com/multisocket/thrbench/socket"
)

func metricNames(t *testing.T, src metrics.Source) map[string]bool {
	mfs, err := metrics.NewRegistry(src).Gather()
	if err != nil {
		t.Fatalf("Gather error: %s", err)
	}
	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	return names
}

func TestSources(t *testing.T) {
	cfg := perf.DefaultEndpointConfig()

	src := SenderSource("remote_thr", 64, perf.NewSender(native.Engine, 1, cfg))
	if src.Writes == nil {
		t.Fatal("sender source without writes")
	}
	names := metricNames(t, src)
	for _, name := range []string{"thrbench_messages_total", "thrbench_writes_total"} {
		if !names[name] {
			t.Errorf("missing %s in %v", name, names)
		}
	}

	names = metricNames(t, ReceiverSource("local_thr", 64, perf.NewHarness(native.Engine, 1, cfg)))
	if !names["thrbench_messages_total"] || names["thrbench_writes_total"] {
		t.Errorf("receiver metrics %v", names)
	}
}

func TestParseSize(t *testing.T) {
	for _, tc := range []struct {
		arg string
		ok  bool
	}{
		{"0", true},
		{"1024", true},
		{"-1", false},
		{"1k", false},
	} {
		_, err := ParseSize(tc.arg)
		if (err == nil) != tc.ok {
			t.Errorf("ParseSize(%q) error %v", tc.arg, err)
		}
		if err != nil && perf.KindOf(err) != perf.UsageError {
			t.Errorf("ParseSize(%q) kind %v", tc.arg, perf.KindOf(err))
		}
	}
}

func TestRecvLimit(t *testing.T) {
	cfg := config.Default()
	if ovs := RecvLimit(cfg, 1<<20); ovs != nil {
		t.Errorf("limit raised for a small size: %v", ovs)
	}
	ovs := RecvLimit(cfg, socket.DefaultMaxRecvSize)
	if ovs[socket.OptionMaxRecvSize] != uint32(socket.DefaultMaxRecvSize+curve.Overhead) {
		t.Errorf("limit %v", ovs)
	}

	cfg.Options = map[string]interface{}{socket.OptionMaxRecvSize.Name(): 0}
	if ovs = RecvLimit(cfg, socket.DefaultMaxRecvSize); ovs != nil {
		t.Errorf("configured limit overridden: %v", ovs)
	}
	cfg.Options = nil
	cfg.Engine = config.EngineZMQ
	if ovs = RecvLimit(cfg, socket.DefaultMaxRecvSize); ovs != nil {
		t.Errorf("zmq engine got native options: %v", ovs)
	}
}
