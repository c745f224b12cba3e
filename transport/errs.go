package transport

import (
	"github.com/multisocket/thrbench/errs"
)

// errors
const (
	ErrClosed       = errs.ErrClosed
	ErrBadTran      = errs.ErrBadTransport
	ErrConnRefused  = errs.ErrConnRefused
	ErrNotListening = errs.Err("not listening")
)
