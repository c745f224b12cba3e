package perf

import (
	"errors"
	"fmt"
)

// Kind classifies harness failures.
type Kind int

// error kinds
const (
	Other Kind = iota
	UsageError
	ContextError
	ConfigurationError
	BindError
	ConnectError
	ReceiveError
	SendError
	SizeMismatchError
	TeardownError
)

var kindNames = [...]string{
	Other:              "Other",
	UsageError:         "UsageError",
	ContextError:       "ContextError",
	ConfigurationError: "ConfigurationError",
	BindError:          "BindError",
	ConnectError:       "ConnectError",
	ReceiveError:       "ReceiveError",
	SendError:          "SendError",
	SizeMismatchError:  "SizeMismatchError",
	TeardownError:      "TeardownError",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Unknown"
}

// ErrIncorrectSize is the cause of SizeMismatchError.
var ErrIncorrectSize = errors.New("message of incorrect size received")

// Error is a fatal harness error.
type Error struct {
	Kind Kind
	// Op is the failed operation, such as bind or recvmsg.
	Op  string
	Err error
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Kind == SizeMismatchError {
		return ErrIncorrectSize.Error()
	}
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("error in %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Usage returns a UsageError with msg.
func Usage(msg string) error {
	return newError(UsageError, "", errors.New(msg))
}

// KindOf returns the kind of err, Other for errors not from the harness.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Other
}

// ExitCode maps err to a process exit code: 0 for nil, 1 for usage errors, -1 otherwise.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case KindOf(err) == UsageError:
		return 1
	}
	return -1
}
