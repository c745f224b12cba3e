// Package native runs the harness over the socket package.
package native

import (
	"github.com/multisocket/thrbench/errs"
	"github.com/multisocket/thrbench/options"
	"github.com/multisocket/thrbench/perf"
	"github.com/multisocket/thrbench/socket"
	"github.com/multisocket/thrbench/transport"
	_ "github.com/multisocket/thrbench/transport/all"
)

type (
	engine struct {
		extra options.OptionValues
	}

	socketContext struct {
		*socket.Context
		extra options.OptionValues
	}

	endpoint struct {
		socket.Socket
	}
)

// Engine is the native engine without extra options.
var Engine perf.Engine = New(nil)

// New create a native engine, extra option values are set on every endpoint after creation.
func New(extra options.OptionValues) perf.Engine {
	return &engine{extra: extra}
}

func (e *engine) Name() string {
	return "native"
}

func (e *engine) NewContext(ioThreads int) (perf.Context, error) {
	ctx, err := socket.NewContext(ioThreads)
	if err != nil {
		return nil, err
	}
	return &socketContext{Context: ctx, extra: e.extra}, nil
}

func (c *socketContext) WriteStats() perf.WriteStats {
	st := c.Context.WriteStats()
	return perf.WriteStats{Small: st.Small, Medium: st.Medium, Large: st.Large}
}

func (c *socketContext) NewEndpoint(role perf.Role) (perf.Endpoint, error) {
	t := socket.Pull
	if role == perf.Push {
		t = socket.Push
	}
	s, err := c.NewSocket(t)
	if err != nil {
		return nil, err
	}
	for opt, val := range c.extra {
		if err = s.SetOption(opt, val); err != nil {
			s.Close()
			return nil, &options.OptionError{Name: opt.Name(), Err: err}
		}
	}
	return &endpoint{s}, nil
}

var optionOf = map[perf.OptionKey]options.Option{
	perf.RecvBuffer:     transport.OptionRecvBuffer,
	perf.SendBuffer:     transport.OptionSendBuffer,
	perf.InBatchSize:    socket.OptionInBatchSize,
	perf.OutBatchSize:   socket.OptionOutBatchSize,
	perf.CurveServer:    socket.OptionCurveServer,
	perf.CurveSecretKey: socket.OptionCurveSecretKey,
	perf.CurvePublicKey: socket.OptionCurvePublicKey,
	perf.CurveServerKey: socket.OptionCurveServerKey,
	perf.Linger:         socket.OptionLinger,
	perf.SendTimeout:    socket.OptionSendTimeout,
}

func (ep *endpoint) SetOption(key perf.OptionKey, val interface{}) error {
	if key == perf.HWM {
		if err := ep.Socket.SetOption(socket.OptionSendQueueSize, val); err != nil {
			return err
		}
		return ep.Socket.SetOption(socket.OptionRecvQueueSize, val)
	}
	opt, ok := optionOf[key]
	if !ok {
		return errs.ErrBadOption
	}
	return ep.Socket.SetOption(opt, val)
}

func (ep *endpoint) Recv(f *perf.Frame) error {
	msg, err := ep.RecvMsg()
	if err != nil {
		return err
	}
	f.Set(msg.Content, msg.FreeAll)
	return nil
}
