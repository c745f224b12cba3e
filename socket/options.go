package socket

import (
	"time"

	"github.com/multisocket/thrbench/options"
	"github.com/multisocket/thrbench/security/curve"
)

func validateCurveKey(s string) error {
	_, err := curve.ParseKey(s)
	return err
}

// DefaultMaxRecvSize is the default receive limit, including any security overhead.
const DefaultMaxRecvSize = 64 << 20

// Options
var (
	// OptionSendQueueSize is the number of messages queued for sending, the high water mark.
	OptionSendQueueSize = options.NewIntOption("socket.SendQueueSize", 1000)
	// OptionRecvQueueSize is the number of received messages queued for Recv.
	OptionRecvQueueSize = options.NewIntOption("socket.RecvQueueSize", 1000)
	// OptionSendTimeout bounds a blocked Send, negative to block forever, 0 to never block.
	OptionSendTimeout = options.NewTimeDurationOption("socket.SendTimeout", -1)
	// OptionRecvTimeout bounds a blocked Recv, negative to block forever, 0 to never block.
	OptionRecvTimeout = options.NewTimeDurationOption("socket.RecvTimeout", -1)
	// OptionLinger is how long Close waits for queued messages to be written, negative to wait forever.
	OptionLinger = options.NewTimeDurationOption("socket.Linger", 30*time.Second)
	// OptionInBatchSize is the maximum bytes read from a connection at once.
	OptionInBatchSize = options.NewIntOption("socket.InBatchSize", 8192)
	// OptionOutBatchSize is the maximum bytes written to a connection at once.
	OptionOutBatchSize = options.NewIntOption("socket.OutBatchSize", 8192)
	// OptionMaxRecvSize rejects bigger messages and drops their connection, 0 for no limit.
	OptionMaxRecvSize = options.NewUint32Option("socket.MaxRecvSize", DefaultMaxRecvSize)

	// OptionCurveServer makes the socket the curve server.
	OptionCurveServer = options.NewBoolOption("socket.CurveServer", false)
	// OptionCurveSecretKey is the own secret key in Z85, setting it enables curve security.
	OptionCurveSecretKey = options.NewStringOptionWithValidator("socket.CurveSecretKey", "", validateCurveKey)
	// OptionCurvePublicKey is the own public key in Z85, derived from the secret key when empty.
	OptionCurvePublicKey = options.NewStringOptionWithValidator("socket.CurvePublicKey", "", validateCurveKey)
	// OptionCurveServerKey is the server public key in Z85, required on curve clients.
	OptionCurveServerKey = options.NewStringOptionWithValidator("socket.CurveServerKey", "", validateCurveKey)
)
