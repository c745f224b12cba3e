package transport

import (
	"github.com/multisocket/thrbench/options"
)

// Options
var (
	// OptionRecvBuffer is the kernel receive buffer size, SO_RCVBUF. 0 keeps the system default.
	OptionRecvBuffer = options.NewIntOption("transport.RecvBuffer", 0)
	// OptionSendBuffer is the kernel send buffer size, SO_SNDBUF. 0 keeps the system default.
	OptionSendBuffer = options.NewIntOption("transport.SendBuffer", 0)
)

// Buffers get kernel buffer sizes from option sets.
func Buffers(opts ...options.Options) (recv, send int) {
	return OptionRecvBuffer.ValueFrom(opts...), OptionSendBuffer.ValueFrom(opts...)
}
