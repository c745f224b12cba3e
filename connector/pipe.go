package connector

import (
	"sync"

	"github.com/multisocket/thrbench/errs"
	"github.com/multisocket/thrbench/options"
	"github.com/multisocket/thrbench/transport"
	"github.com/multisocket/thrbench/utils"
)

// pipe wraps the transport.Connection data structure with the stuff we need to keep.
// It implements the Pipe interface.
type pipe struct {
	transport.Connection
	opts   options.Options
	id     uint32
	parent *connector
	d      *dialer
	sealer Sealer

	sync.Mutex
	closed bool
}

var (
	pipeID = utils.NewRecyclableIDGenerator()
)

// newPipeOptions merge endpoint option values over the connector's ones.
func newPipeOptions(endpoint options.Options, parent options.Options) options.Options {
	return options.NewOptionsWithValues(options.Merge(parent.OptionValues(), endpoint.OptionValues()))
}

func newPipe(parent *connector, tc transport.Connection, d *dialer, opts options.Options, sealer Sealer) *pipe {
	return &pipe{
		Connection: tc,
		opts:       opts,
		id:         pipeID.NextID(),
		parent:     parent,
		d:          d,
		sealer:     sealer,
	}
}

func (p *pipe) ID() uint32 {
	return p.id
}

func (p *pipe) Options() options.Options {
	return p.opts
}

func (p *pipe) Sealer() Sealer {
	return p.sealer
}

// Close closes the connection and removes the pipe, it is safe to call many times.
func (p *pipe) Close() error {
	p.Lock()
	if p.closed {
		p.Unlock()
		return errs.ErrClosed
	}
	p.closed = true
	p.Unlock()

	p.Connection.Close()
	p.parent.remPipe(p)

	pipeID.Recycle(p.id)

	return nil
}
