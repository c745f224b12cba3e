package socket

import (
	"path/filepath"
	"testing"
)

var benchSizes = []struct {
	name string
	sz   int
}{
	{"0B", 0},
	{"64B", 64},
	{"1KB", 1024},
	{"8KB", 8 * 1024},
	{"64KB", 64 * 1024},
	{"1MB", 1024 * 1024},
}

// BenchmarkThroughput measures one way messages from a push to a pull.
func BenchmarkThroughput(b *testing.B) {
	transports := []struct {
		name string
		addr string
	}{
		{"inproc", "inproc://benchmark"},
		{"ipc", "ipc://" + filepath.Join(b.TempDir(), "benchmark.sock")},
		{"tcp", "tcp://127.0.0.1:0"},
	}

	for idx := range benchSizes {
		size := benchSizes[idx]
		b.Run(size.name, func(b *testing.B) {
			for idx := range transports {
				tp := transports[idx]
				b.Run(tp.name, func(b *testing.B) {
					benchmarkThroughput(b, tp.addr, size.sz)
				})
			}
		})
	}
}

func benchmarkThroughput(b *testing.B, addr string, sz int) {
	ctx, _ := NewContext(1)
	defer ctx.Term()

	pull, _ := ctx.NewSocket(Pull)
	push, _ := ctx.NewSocket(Push)
	if err := pull.Bind(addr); err != nil {
		b.Fatalf("bind error: %s", err)
	}
	if err := push.Connect(pull.LastEndpoint()); err != nil {
		b.Fatalf("connect error: %s", err)
	}

	content := make([]byte, sz)
	go func() {
		for i := 0; i < b.N+1; i++ {
			if err := push.Send(content); err != nil {
				return
			}
		}
	}()

	// warm up with the connection
	msg, err := pull.RecvMsg()
	if err != nil {
		b.Fatalf("recv error: %s", err)
	}
	msg.FreeAll()

	b.SetBytes(int64(sz))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if msg, err = pull.RecvMsg(); err != nil {
			b.Fatalf("recv error: %s", err)
		}
		msg.FreeAll()
	}
	b.StopTimer()
}
