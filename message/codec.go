package message

import (
	"io"
	"net"

	"github.com/multisocket/thrbench/bytespool"
	"github.com/multisocket/thrbench/errs"
)

// MinBatchSize is the smallest usable batch size.
const MinBatchSize = 64

func batchSize(sz int) int {
	if sz < MinBatchSize {
		return MinBatchSize
	}
	return sz
}

// Encoder packs messages into batches of at most batch size bytes,
// bigger messages are written on their own.
type Encoder struct {
	w     io.Writer
	buf   []byte
	limit int
	hdr   [HeaderSize]byte
	wrote func(n int)
}

// NewEncoder create an encoder writing to w, wrote is called with each kernel write size.
func NewEncoder(w io.Writer, batch int, wrote func(n int)) *Encoder {
	limit := batchSize(batch)
	return &Encoder{
		w:     w,
		buf:   bytespool.Alloc(limit)[:0],
		limit: limit,
		wrote: wrote,
	}
}

func (e *Encoder) write(b []byte) error {
	n, err := e.w.Write(b)
	if n > 0 && e.wrote != nil {
		e.wrote(n)
	}
	return err
}

// Encode add a message to the current batch, the batch is flushed when full.
func (e *Encoder) Encode(msg *Message) (err error) {
	total := msg.WireSize()
	if len(e.buf)+total > e.limit {
		if err = e.Flush(); err != nil {
			return
		}
	}
	if total > e.limit {
		// header and content go out in one vectored write where the writer supports it
		bufs := net.Buffers{msg.Header.EncodeTo(e.hdr[:]), msg.Content}
		n, err := bufs.WriteTo(e.w)
		if n > 0 && e.wrote != nil {
			e.wrote(int(n))
		}
		return err
	}

	n := len(e.buf)
	e.buf = e.buf[:n+HeaderSize]
	msg.Header.EncodeTo(e.buf[n:])
	e.buf = append(e.buf, msg.Content...)
	return nil
}

// Fits reports whether msg can be added to the current batch without a write.
func (e *Encoder) Fits(msg *Message) bool {
	return len(e.buf)+msg.WireSize() <= e.limit
}

// Buffered returns the number of bytes in the current batch.
func (e *Encoder) Buffered() int {
	return len(e.buf)
}

// Available returns the free space of the current batch.
func (e *Encoder) Available() int {
	return e.limit - len(e.buf)
}

// Flush write the current batch.
func (e *Encoder) Flush() (err error) {
	if len(e.buf) == 0 {
		return nil
	}
	err = e.write(e.buf)
	e.buf = e.buf[:0]
	return
}

// Free release the batch buffer.
func (e *Encoder) Free() {
	bytespool.Free(e.buf)
	e.buf = nil
}

// Decoder reads batches of at most batch size bytes and decodes the complete messages in them,
// bigger messages are read into their own buffer.
type Decoder struct {
	r          io.Reader
	buf        []byte
	start, end int
	maxSize    uint32
	pending    *Message
	filled     int
}

// NewDecoder create a decoder reading from r, messages bigger than maxSize are rejected, 0 for no limit.
func NewDecoder(r io.Reader, batch int, maxSize uint32) *Decoder {
	return &Decoder{
		r:       r,
		buf:     bytespool.Alloc(batchSize(batch)),
		maxSize: maxSize,
	}
}

// Fill reads more bytes, it blocks until some bytes are read.
func (d *Decoder) Fill() (err error) {
	var n int
	if d.pending != nil {
		n, err = d.r.Read(d.pending.Content[d.filled:])
		d.filled += n
	} else {
		if d.start > 0 {
			copy(d.buf, d.buf[d.start:d.end])
			d.end -= d.start
			d.start = 0
		}
		n, err = d.r.Read(d.buf[d.end:])
		d.end += n
	}
	if n > 0 {
		// a later Fill will return the error again
		return nil
	}
	if err == nil {
		err = io.ErrNoProgress
	}
	return
}

// Next decode the next complete message from read bytes,
// returns nil message when more bytes are needed.
func (d *Decoder) Next() (msg *Message, err error) {
	if d.pending != nil {
		if d.filled < len(d.pending.Content) {
			return nil, nil
		}
		msg, d.pending, d.filled = d.pending, nil, 0
		return msg, nil
	}

	avail := d.end - d.start
	if avail < HeaderSize {
		return nil, nil
	}
	h := DecodeHeader(d.buf[d.start:])
	if d.maxSize > 0 && h.Length > d.maxSize {
		return nil, errs.ErrMsgTooLong
	}
	total := HeaderSize + int(h.Length)
	if total <= avail {
		msg = newMessage(h)
		copy(msg.Content, d.buf[d.start+HeaderSize:d.start+total])
		d.start += total
		return msg, nil
	}
	if total <= len(d.buf) {
		return nil, nil
	}

	// bigger than a batch, move what is read into the message
	msg = newMessage(h)
	d.filled = copy(msg.Content, d.buf[d.start+HeaderSize:d.end])
	d.start, d.end = 0, 0
	d.pending = msg
	return nil, nil
}

// Free release the batch buffer and any partially read message.
func (d *Decoder) Free() {
	if d.pending != nil {
		d.pending.FreeAll()
		d.pending = nil
	}
	bytespool.Free(d.buf)
	d.buf = nil
}
