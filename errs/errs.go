package errs

// Err is a constant error.
type Err string

func (e Err) Error() string {
	return string(e)
}

// errors
const (
	ErrClosed                = Err("object is closed")
	ErrTimeout               = Err("operation time out")
	ErrBadOperateState       = Err("bad operation state")
	ErrAddrInUse             = Err("address already in use")
	ErrBadAddr               = Err("invalid address")
	ErrOperationNotSupported = Err("operation not supported")
	ErrBadTransport          = Err("invalid or unsupported transport")
	ErrBadOption             = Err("invalid or unsupported option")
	ErrBadMsg                = Err("bad message")
	ErrMsgTooLong            = Err("message is too long")
	ErrConnRefused           = Err("connection refused")
	ErrBadSocketType         = Err("invalid socket type")
)
