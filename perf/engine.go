package perf

type (
	// Role is the role of an endpoint in a run.
	Role int

	// OptionKey names an endpoint option independently of the engine.
	OptionKey int

	// Engine is a messaging library the harness measures.
	Engine interface {
		Name() string
		// NewContext create a context with ioThreads background I/O workers.
		NewContext(ioThreads int) (Context, error)
	}

	// Context owns endpoints and their background I/O.
	Context interface {
		NewEndpoint(role Role) (Endpoint, error)
		// Term closes every endpoint still open and releases the context.
		Term() error
	}

	// WriteStats counts connection writes by size: small < 1KiB <= medium < 64KiB <= large.
	WriteStats struct {
		Small  uint64
		Medium uint64
		Large  uint64
	}

	// WriteStatser is implemented by contexts that count their kernel writes.
	WriteStatser interface {
		WriteStats() WriteStats
	}

	// Endpoint is a messaging socket.
	Endpoint interface {
		SetOption(key OptionKey, val interface{}) error
		Bind(addr string) error
		Connect(addr string) error
		// Recv blocks until a message is received into f, f's previous content is released.
		Recv(f *Frame) error
		Send(b []byte) error
		Close() error
	}
)

// roles
const (
	// Pull receives messages.
	Pull Role = iota
	// Push sends messages.
	Push
)

// option keys
const (
	RecvBuffer OptionKey = iota
	SendBuffer
	InBatchSize
	OutBatchSize
	CurveServer
	CurveSecretKey
	CurvePublicKey
	CurveServerKey
	// Linger is a time.Duration.
	Linger
	// SendTimeout is a time.Duration, negative to block forever.
	SendTimeout
	// HWM is the send and receive queue size in messages.
	HWM
)

var optionNames = map[OptionKey]string{
	RecvBuffer:     "RecvBuffer",
	SendBuffer:     "SendBuffer",
	InBatchSize:    "InBatchSize",
	OutBatchSize:   "OutBatchSize",
	CurveServer:    "CurveServer",
	CurveSecretKey: "CurveSecretKey",
	CurvePublicKey: "CurvePublicKey",
	CurveServerKey: "CurveServerKey",
	Linger:         "Linger",
	SendTimeout:    "SendTimeout",
	HWM:            "HWM",
}

func (k OptionKey) String() string {
	if name, ok := optionNames[k]; ok {
		return name
	}
	return "Unknown"
}

func (r Role) String() string {
	switch r {
	case Pull:
		return "PULL"
	case Push:
		return "PUSH"
	}
	return "unknown"
}

// Frame is one received message, it is reused across receives.
type Frame struct {
	data    []byte
	release func()
}

// Set replace the frame content, release is called when the content is no longer used.
func (f *Frame) Set(data []byte, release func()) {
	f.Close()
	f.data = data
	f.release = release
}

// Bytes returns the content, valid until the next Recv or Close.
func (f *Frame) Bytes() []byte {
	return f.data
}

// Size returns the content size.
func (f *Frame) Size() int {
	return len(f.data)
}

// Close release the content.
func (f *Frame) Close() {
	if f.release != nil {
		f.release()
		f.release = nil
	}
	f.data = nil
}
