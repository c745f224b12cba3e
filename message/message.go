package message

import (
	"encoding/binary"
	"sync"

	"github.com/multisocket/thrbench/bytespool"
)

type (
	// Header message meta data
	Header struct {
		Flags uint8 // 1 byte flags, followed by 3 reserved bytes
		// Length is the content length
		Length uint32
	}

	// Message is a message
	Message struct {
		Header  Header
		Content []byte
		buf     []byte
	}
)

// HeaderSize is the Header's wire byte size.
const HeaderSize = 8

// Msg Flags
const (
	// MsgFlagSealed is set when the content is sealed by a security mechanism.
	MsgFlagSealed uint8 = 1 << iota
	// MsgFlagControl marks connection control messages, they are not delivered to sockets.
	MsgFlagControl
)

var (
	msgPool = &sync.Pool{
		New: func() interface{} { return &Message{} },
	}
)

// HasFlags check if header has flags setted.
func (h *Header) HasFlags(flags uint8) bool {
	return h.Flags&flags == flags
}

// EncodeTo encode header to b, b must have at least HeaderSize bytes.
func (h *Header) EncodeTo(b []byte) []byte {
	b[0] = h.Flags
	b[1], b[2], b[3] = 0, 0, 0
	binary.BigEndian.PutUint32(b[4:], h.Length)
	return b[:HeaderSize]
}

// DecodeHeader decode a header from b, b must have at least HeaderSize bytes.
func DecodeHeader(b []byte) (h Header) {
	h.Flags = b[0]
	h.Length = binary.BigEndian.Uint32(b[4:])
	return
}

func newMessage(h Header) *Message {
	msg := msgPool.Get().(*Message)
	msg.Header = h
	msg.buf = bytespool.Alloc(int(h.Length))
	msg.Content = msg.buf[:h.Length:h.Length]
	return msg
}

// NewMessage create a message with a copy of content.
func NewMessage(flags uint8, content []byte) *Message {
	msg := newMessage(Header{Flags: flags, Length: uint32(len(content))})
	copy(msg.Content, content)
	return msg
}

// NewMessageSize create a message with size bytes of uninitialized content.
func NewMessageSize(flags uint8, size int) *Message {
	return newMessage(Header{Flags: flags, Length: uint32(size)})
}

// Size is the message's content size.
func (msg *Message) Size() int {
	return len(msg.Content)
}

// WireSize is the message's encoded size.
func (msg *Message) WireSize() int {
	return HeaderSize + len(msg.Content)
}

// SetContent replace the message content, the old buffer is freed.
func (msg *Message) SetContent(buf []byte, content []byte) {
	bytespool.Free(msg.buf)
	msg.buf = buf
	msg.Content = content
	msg.Header.Length = uint32(len(content))
}

// FreeAll put msg and buf to pools
func (msg *Message) FreeAll() {
	bytespool.Free(msg.buf)

	msg.buf = nil
	msg.Header = Header{}
	msg.Content = nil
	msgPool.Put(msg)
}
