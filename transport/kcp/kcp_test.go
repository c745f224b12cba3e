package kcp

import (
	"bytes"
	"errors"
	"io"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/multisocket/thrbench/options"
	"github.com/multisocket/thrbench/transport"
)

func TestKCP(t *testing.T) {
	l, err := Transport.NewListener("kcp://127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewListener error: %s", err)
	}
	if err = l.Listen(); err != nil {
		t.Fatalf("Listen error: %s", err)
	}
	defer l.Close()

	d, err := Transport.NewDialer(l.Address())
	if err != nil {
		t.Fatalf("NewDialer error: %s", err)
	}
	dc, err := d.Dial()
	if err != nil {
		t.Fatalf("Dial error: %s", err)
	}
	defer dc.Close()

	data := bytes.Repeat([]byte("kcp!"), 4096)
	go dc.Write(data)

	// a session is accepted on its first packet
	lc, err := l.Accept()
	if err != nil {
		t.Fatalf("Accept error: %s", err)
	}
	defer lc.Close()

	got := make([]byte, len(data))
	if _, err = io.ReadFull(lc, got); err != nil {
		t.Fatalf("ReadFull error: %s", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("data mismatch")
	}
}

type failingBuffers struct {
	recv, send int
}

func (f *failingBuffers) SetReadBuffer(n int) error {
	f.recv = n
	return errors.New("no read buffer")
}

func (f *failingBuffers) SetWriteBuffer(n int) error {
	f.send = n
	return errors.New("no write buffer")
}

func TestSetBuffersLogsFailures(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()

	f := &failingBuffers{}
	opts := options.NewOptions().
		WithOption(transport.OptionRecvBuffer, 4096).
		WithOption(transport.OptionSendBuffer, 8192)
	setBuffers(f, opts)
	if f.recv != 4096 || f.send != 8192 {
		t.Errorf("buffers set to %d/%d", f.recv, f.send)
	}

	warnings := 0
	for _, e := range hook.AllEntries() {
		if e.Level == log.WarnLevel && e.Data["domain"] == "kcp" {
			warnings++
		}
	}
	if warnings != 2 {
		t.Errorf("%d warnings logged, want 2", warnings)
	}
}
