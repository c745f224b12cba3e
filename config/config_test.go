package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/multisocket/thrbench/socket"
	"github.com/multisocket/thrbench/transport/tcp"
)

func TestDecode(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
engine: native
io_threads: 4
endpoint:
  recv_buffer: 65536
  out_batch_size: 8192
  security:
    server: true
    secret_key: "abc"
options:
  tcp.NoDelay: false
  socket.SendQueueSize: 5000
  socket.SendTimeout: 250ms
format: csv
link_gbps: 10
`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if cfg.IOThreads != 4 || cfg.Format != FormatCSV || cfg.LinkGbps != 10 {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.Endpoint.RecvBuffer != 65536 || cfg.Endpoint.OutBatchSize != 8192 {
		t.Errorf("unexpected endpoint: %+v", cfg.Endpoint)
	}
	if cfg.Endpoint.SendBuffer != 1024*1024 {
		t.Errorf("default send buffer lost: %d", cfg.Endpoint.SendBuffer)
	}
	if s := cfg.Endpoint.Security; s == nil || !s.Server || s.SecretKey != "abc" {
		t.Errorf("unexpected security: %+v", s)
	}

	ovs, err := cfg.OptionValues()
	if err != nil {
		t.Fatalf("OptionValues failed: %v", err)
	}
	if ovs[tcp.OptionNoDelay] != false {
		t.Errorf("tcp.NoDelay=%v", ovs[tcp.OptionNoDelay])
	}
	if ovs[socket.OptionSendQueueSize] != 5000 {
		t.Errorf("socket.SendQueueSize=%v", ovs[socket.OptionSendQueueSize])
	}
	if ovs[socket.OptionSendTimeout] != 250*time.Millisecond {
		t.Errorf("socket.SendTimeout=%v", ovs[socket.OptionSendTimeout])
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown field", "engines: zmq\n", "field engines not found"},
		{"engine", "engine: nanomsg\n", "unknown engine"},
		{"format", "format: xml\n", "unknown format"},
		{"threads", "io_threads: -2\n", "negative io_threads"},
		{"option name", "options:\n  tcp.Nagle: true\n", "unknown option"},
		{"option value", "options:\n  socket.SendQueueSize: many\n", "invalid option value"},
		{"zmq options", "engine: zmq\noptions:\n  tcp.NoDelay: true\n", "only supported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thr.yaml")
	if err := os.WriteFile(path, []byte("engine: zmq\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Engine != EngineZMQ || cfg.IOThreads != 1 {
		t.Errorf("unexpected config: %+v", cfg)
	}

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	os.WriteFile(empty, nil, 0o644)
	if cfg, err = Load(empty); err != nil || cfg.Engine != EngineNative {
		t.Errorf("empty file: %+v, %v", cfg, err)
	}

	if _, err = Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file loaded")
	}
}
