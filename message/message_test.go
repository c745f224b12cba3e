package message

import (
	"bytes"
	"io"
	"testing"

	"github.com/multisocket/thrbench/errs"
)

func TestHeader(t *testing.T) {
	var b [HeaderSize]byte
	h := Header{Flags: MsgFlagSealed, Length: 0x01020304}
	h.EncodeTo(b[:])
	if !bytes.Equal(b[:], []byte{MsgFlagSealed, 0, 0, 0, 1, 2, 3, 4}) {
		t.Errorf("encoded=%v", b)
	}
	d := DecodeHeader(b[:])
	if d != h {
		t.Errorf("decoded=%+v", d)
	}
	if !d.HasFlags(MsgFlagSealed) || d.HasFlags(MsgFlagControl) {
		t.Errorf("flags=%x", d.Flags)
	}
}

func payload(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i)
	}
	return b
}

// smallReader returns at most n bytes per Read.
type smallReader struct {
	r io.Reader
	n int
}

func (r *smallReader) Read(p []byte) (int, error) {
	if len(p) > r.n {
		p = p[:r.n]
	}
	return r.r.Read(p)
}

func decodeAll(t *testing.T, d *Decoder) (msgs []*Message) {
	for {
		msg, err := d.Next()
		if err != nil {
			t.Fatalf("Next error: %s", err)
		}
		if msg != nil {
			msgs = append(msgs, msg)
			continue
		}
		if err = d.Fill(); err != nil {
			if err != io.EOF {
				t.Fatalf("Fill error: %s", err)
			}
			return
		}
	}
}

func TestCodec(t *testing.T) {
	for _, tc := range []struct {
		name  string
		batch int
		read  int
		sizes []int
	}{
		{"small", 1024, 1 << 20, []int{0, 1, 10, 100, 1000}},
		{"exact batch", 256, 1 << 20, []int{256 - HeaderSize, 256 - HeaderSize, 3}},
		{"bigger than batch", 256, 1 << 20, []int{10, 1000, 10, 5000, 7}},
		{"short reads", 128, 5, []int{1, 100, 300, 2, 0, 127}},
		{"min batch", 1, 3, []int{70, 1, 64}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var (
				out    bytes.Buffer
				writes []int
			)
			enc := NewEncoder(&out, tc.batch, func(n int) { writes = append(writes, n) })
			for i, sz := range tc.sizes {
				msg := NewMessage(0, payload(sz, byte(i)))
				if err := enc.Encode(msg); err != nil {
					t.Fatalf("Encode error: %s", err)
				}
				msg.FreeAll()
			}
			if err := enc.Flush(); err != nil {
				t.Fatalf("Flush error: %s", err)
			}
			enc.Free()

			total := 0
			for _, n := range writes {
				total += n
			}
			if total != out.Len() {
				t.Errorf("write stats %d != %d", total, out.Len())
			}

			d := NewDecoder(&smallReader{&out, tc.read}, tc.batch, 0)
			msgs := decodeAll(t, d)
			d.Free()
			if len(msgs) != len(tc.sizes) {
				t.Fatalf("decoded %d messages, want %d", len(msgs), len(tc.sizes))
			}
			for i, msg := range msgs {
				if !bytes.Equal(msg.Content, payload(tc.sizes[i], byte(i))) {
					t.Errorf("message %d content mismatch", i)
				}
				msg.FreeAll()
			}
		})
	}
}

func TestEncoderBatches(t *testing.T) {
	var (
		out    bytes.Buffer
		writes []int
	)
	enc := NewEncoder(&out, 100, func(n int) { writes = append(writes, n) })
	for i := 0; i < 10; i++ {
		msg := NewMessage(0, payload(12, 0))
		enc.Encode(msg)
		msg.FreeAll()
	}
	enc.Flush()
	// 20 bytes per message, 5 per batch
	if len(writes) != 2 || writes[0] != 100 || writes[1] != 100 {
		t.Errorf("writes=%v", writes)
	}
}

func TestEncoderBigMessage(t *testing.T) {
	var (
		out    bytes.Buffer
		writes []int
	)
	enc := NewEncoder(&out, 100, func(n int) { writes = append(writes, n) })
	small := NewMessage(0, payload(10, 1))
	big := NewMessage(0, payload(1000, 2))
	enc.Encode(small)
	enc.Encode(big)
	enc.Flush()
	small.FreeAll()
	big.FreeAll()
	// the pending batch, then the big message as a single write
	if len(writes) != 2 || writes[0] != 18 || writes[1] != 1008 {
		t.Errorf("writes=%v", writes)
	}
	if out.Len() != 18+1008 {
		t.Errorf("wrote %d bytes", out.Len())
	}
}

func TestDecoderMaxSize(t *testing.T) {
	var out bytes.Buffer
	enc := NewEncoder(&out, 1024, nil)
	msg := NewMessage(0, payload(100, 0))
	enc.Encode(msg)
	enc.Flush()
	msg.FreeAll()

	d := NewDecoder(&out, 1024, 99)
	defer d.Free()
	if err := d.Fill(); err != nil {
		t.Fatalf("Fill error: %s", err)
	}
	if _, err := d.Next(); err != errs.ErrMsgTooLong {
		t.Errorf("expected ErrMsgTooLong, got %v", err)
	}
}
