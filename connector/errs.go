package connector

import (
	"github.com/multisocket/thrbench/errs"
)

// errors
const (
	ErrStopped = errs.Err("object is stopped")
)
