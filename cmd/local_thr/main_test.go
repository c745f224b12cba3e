package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/multisocket/thrbench/engine/native"
	"github.com/multisocket/thrbench/perf"
)

func TestUsage(t *testing.T) {
	for _, args := range [][]string{
		nil,
		{"tcp://*:5555"},
		{"tcp://*:5555", "100", "1", "0", "1", "extra"},
		{"tcp://*:5555", "big"},
		{"tcp://*:5555", "-1"},
		{"tcp://*:5555", "100", "1", "0", "1", "--format", "xml"},
		{"tcp://*:5555", "100", "--no-such-flag"},
	} {
		var out bytes.Buffer
		if code := run(args, &out); code != 1 {
			t.Errorf("%v: exit code %d, want 1", args, code)
		}
		if !strings.Contains(out.String(), "usage: local_thr <bind-to> <message-size>") {
			t.Errorf("%v: usage not printed:\n%s", args, out.String())
		}
	}
}

func TestBindError(t *testing.T) {
	var out bytes.Buffer
	if code := run([]string{"nosuch://x", "10", "0"}, &out); code != -1 {
		t.Errorf("exit code %d, want -1", code)
	}
	if !strings.HasPrefix(out.String(), "error in bind: ") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestRun(t *testing.T) {
	const addr = "inproc://local_thr.test"
	s := perf.NewSender(native.Engine, 1, perf.EndpointConfig{})
	done := make(chan struct{})
	go func() {
		s.Run(addr, 100)
		close(done)
	}()
	defer func() {
		s.Stop()
		<-done
	}()

	var out bytes.Buffer
	if code := run([]string{addr, "100", "0", "0", "2"}, &out); code != 0 {
		t.Fatalf("exit code %d: %s", code, out.String())
	}
	for _, line := range []string{"elapsed: ", "message size: 100 [B]", "message count: 1", "[msg/s]", "[Mb/s]"} {
		if !strings.Contains(out.String(), line) {
			t.Errorf("missing %q in:\n%s", line, out.String())
		}
	}
}
