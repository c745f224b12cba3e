package inproc

import (
	"bytes"
	"io"
	"testing"

	"github.com/multisocket/thrbench/errs"
	"github.com/multisocket/thrbench/transport"
)

func TestInproc(t *testing.T) {
	l, err := Transport.NewListener("inproc://test.inproc")
	if err != nil {
		t.Fatalf("NewListener error: %s", err)
	}
	if err = l.Listen(); err != nil {
		t.Fatalf("Listen error: %s", err)
	}
	defer l.Close()

	l2, _ := Transport.NewListener("inproc://test.inproc")
	if err = l2.Listen(); err != errs.ErrAddrInUse {
		t.Errorf("expected ErrAddrInUse, got %v", err)
	}

	d, _ := Transport.NewDialer("inproc://test.inproc")
	accepted := make(chan transport.Connection, 1)
	go func() {
		c, err := l.Accept()
		if err != nil {
			t.Errorf("Accept error: %s", err)
		}
		accepted <- c
	}()
	dc, err := d.Dial()
	if err != nil {
		t.Fatalf("Dial error: %s", err)
	}
	lc := <-accepted
	if lc.LocalAddress() != "inproc://test.inproc" || dc.RemoteAddress() != "inproc://test.inproc" {
		t.Errorf("addresses: %s %s", lc.LocalAddress(), dc.RemoteAddress())
	}

	data := bytes.Repeat([]byte{1, 2, 3}, 10000)
	go func() {
		dc.Write(data)
		dc.Close()
	}()
	got, err := io.ReadAll(lc)
	if err != nil {
		t.Fatalf("ReadAll error: %s", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("received %d bytes", len(got))
	}
}

func TestInprocRefused(t *testing.T) {
	d, _ := Transport.NewDialer("inproc://test.nobody")
	if _, err := d.Dial(); err != transport.ErrConnRefused {
		t.Errorf("expected ErrConnRefused, got %v", err)
	}

	l, _ := Transport.NewListener("inproc://test.closed")
	l.Listen()
	l.Close()
	if _, err := l.Accept(); err != errs.ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := l.Close(); err != errs.ErrClosed {
		t.Errorf("expected ErrClosed on second close, got %v", err)
	}
	if _, err := d.Dial(); err != transport.ErrConnRefused {
		t.Errorf("expected ErrConnRefused after close, got %v", err)
	}
}
