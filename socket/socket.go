package socket

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/multisocket/thrbench/address"
	"github.com/multisocket/thrbench/connector"
	"github.com/multisocket/thrbench/errs"
	"github.com/multisocket/thrbench/message"
	"github.com/multisocket/thrbench/options"
	"github.com/multisocket/thrbench/security/curve"
	"github.com/multisocket/thrbench/transport"
)

type (
	socket struct {
		options.Options
		ctx       *Context
		typ       Type
		connector connector.Connector

		initOnce sync.Once
		sendq    chan *message.Message
		recvq    chan *message.Message
		// messages taken from sendq and not yet written
		inflight atomic.Int64

		sync.Mutex
		pipes        map[uint32]*pipe
		lastEndpoint string
		closing      bool
		closedq      chan struct{}
	}

	pipe struct {
		connector.Pipe
		stopq chan struct{}
		once  sync.Once
	}
)

func newSocket(ctx *Context, t Type) *socket {
	s := &socket{
		Options: options.NewOptions(),
		ctx:     ctx,
		typ:     t,
		pipes:   make(map[uint32]*pipe),
		closedq: make(chan struct{}),
	}
	s.connector = connector.NewWithOptions(s.Options)
	s.connector.SetNegotiator(connector.NegotiatorFunc(negotiate))
	s.connector.SetPipeEventHandler(s)

	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("domain", "socket").WithField("type", t).Debug("create")
	}
	return s
}

// init creates queues on first use, queue sizes are read then.
func (s *socket) init() {
	s.initOnce.Do(func() {
		s.sendq = make(chan *message.Message, OptionSendQueueSize.ValueFrom(s.Options))
		s.recvq = make(chan *message.Message, OptionRecvQueueSize.ValueFrom(s.Options))
	})
}

func (s *socket) Type() Type {
	return s.typ
}

// negotiate runs the curve handshake when a secret key is configured.
func negotiate(conn transport.Connection, opts options.Options) (connector.Sealer, error) {
	secret := OptionCurveSecretKey.ValueFrom(opts)
	if secret == "" {
		return nil, nil
	}
	var (
		cfg = &curve.Config{Server: OptionCurveServer.ValueFrom(opts)}
		err error
	)
	if cfg.Secret, err = curve.ParseKey(secret); err != nil {
		return nil, err
	}
	if pub := OptionCurvePublicKey.ValueFrom(opts); pub != "" {
		if cfg.Public, err = curve.ParseKey(pub); err != nil {
			return nil, err
		}
	}
	if !cfg.Server {
		if cfg.ServerKey, err = curve.ParseKey(OptionCurveServerKey.ValueFrom(opts)); err != nil {
			return nil, err
		}
	}
	sess, err := cfg.Handshake(conn)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *socket) isClosing() bool {
	s.Lock()
	defer s.Unlock()
	return s.closing
}

func (s *socket) Bind(addr string) error {
	if s.isClosing() {
		return errs.ErrClosed
	}
	s.init()
	ea, err := address.Parse(addr)
	if err != nil {
		return err
	}
	l, err := s.connector.ListenOptions(ea.Address(), ea.OptionValues())
	if err != nil {
		return err
	}
	s.Lock()
	s.lastEndpoint = l.Address()
	s.Unlock()
	return nil
}

func (s *socket) Connect(addr string) error {
	if s.isClosing() {
		return errs.ErrClosed
	}
	s.init()
	ea, err := address.Parse(addr)
	if err != nil {
		return err
	}
	return s.connector.DialOptions(ea.Address(), ea.OptionValues())
}

func (s *socket) LastEndpoint() string {
	s.Lock()
	defer s.Unlock()
	return s.lastEndpoint
}

// wait returns a channel fired after a timeout, nil for no timeout.
func wait(timeout time.Duration) (<-chan time.Time, *time.Timer) {
	if timeout <= 0 {
		return nil, nil
	}
	tm := time.NewTimer(timeout)
	return tm.C, tm
}

func (s *socket) Send(content []byte) error {
	if s.typ != Push {
		return errs.ErrOperationNotSupported
	}
	msg := message.NewMessage(0, content)
	if err := s.SendMsg(msg); err != nil {
		msg.FreeAll()
		return err
	}
	return nil
}

// SendMsg queues msg, the socket owns msg when it returns nil.
func (s *socket) SendMsg(msg *message.Message) error {
	if s.typ != Push {
		return errs.ErrOperationNotSupported
	}
	if s.isClosing() {
		return errs.ErrClosed
	}
	s.init()

	// fast path
	select {
	case s.sendq <- msg:
		return nil
	default:
	}

	timeout := OptionSendTimeout.ValueFrom(s.Options)
	if timeout == 0 {
		return errs.ErrTimeout
	}
	tq, tm := wait(timeout)
	if tm != nil {
		defer tm.Stop()
	}
	select {
	case s.sendq <- msg:
		return nil
	case <-s.closedq:
		return errs.ErrClosed
	case <-tq:
		return errs.ErrTimeout
	}
}

func (s *socket) Recv() ([]byte, error) {
	msg, err := s.RecvMsg()
	if err != nil {
		return nil, err
	}
	b := make([]byte, len(msg.Content))
	copy(b, msg.Content)
	msg.FreeAll()
	return b, nil
}

// RecvMsg returns the next message, the caller owns it and should FreeAll it.
func (s *socket) RecvMsg() (*message.Message, error) {
	if s.typ != Pull {
		return nil, errs.ErrOperationNotSupported
	}
	s.init()

	select {
	case msg := <-s.recvq:
		return msg, nil
	case <-s.closedq:
		return nil, errs.ErrClosed
	default:
	}

	timeout := OptionRecvTimeout.ValueFrom(s.Options)
	if timeout == 0 {
		return nil, errs.ErrTimeout
	}
	tq, tm := wait(timeout)
	if tm != nil {
		defer tm.Stop()
	}
	select {
	case msg := <-s.recvq:
		return msg, nil
	case <-s.closedq:
		return nil, errs.ErrClosed
	case <-tq:
		return nil, errs.ErrTimeout
	}
}

// linger waits for queued messages to be written.
func (s *socket) linger() {
	if s.typ != Push || s.sendq == nil {
		return
	}
	d := OptionLinger.ValueFrom(s.Options)
	if d == 0 {
		return
	}
	var deadline time.Time
	if d > 0 {
		deadline = time.Now().Add(d)
	}
	for len(s.sendq) > 0 || s.inflight.Load() > 0 {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func (s *socket) Close() error {
	s.Lock()
	if s.closing {
		s.Unlock()
		return errs.ErrClosed
	}
	s.closing = true
	s.Unlock()

	s.linger()

	close(s.closedq)
	s.connector.Close()
	s.ctx.remSocket(s)

	// drop unsent and unreceived messages
	for _, q := range []chan *message.Message{s.sendq, s.recvq} {
	DRAIN:
		for q != nil {
			select {
			case msg := <-q:
				msg.FreeAll()
			default:
				break DRAIN
			}
		}
	}
	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("domain", "socket").WithField("type", s.typ).Debug("close")
	}
	return nil
}

func (s *socket) HandlePipeEvent(e connector.PipeEvent, cp connector.Pipe) {
	switch e {
	case connector.PipeEventAdd:
		s.addPipe(cp)
	case connector.PipeEventRemove:
		s.remPipe(cp.ID())
	}
}

func (s *socket) addPipe(cp connector.Pipe) {
	s.init()
	p := &pipe{Pipe: cp, stopq: make(chan struct{})}
	s.Lock()
	s.pipes[cp.ID()] = p
	s.Unlock()

	switch s.typ {
	case Push:
		go s.runWriter(p)
		go s.watchPeer(p)
	case Pull:
		go s.runReader(p)
	}
}

func (s *socket) remPipe(id uint32) {
	s.Lock()
	p, ok := s.pipes[id]
	delete(s.pipes, id)
	s.Unlock()
	if ok {
		p.stop()
	}
}

func (p *pipe) stop() {
	p.once.Do(func() { close(p.stopq) })
}

// watchPeer detects a lost peer of a push pipe, pulls never write.
func (s *socket) watchPeer(p *pipe) {
	io.Copy(io.Discard, p)
	p.Close()
}

func (s *socket) seal(p *pipe, msg *message.Message) *message.Message {
	sealer := p.Sealer()
	if sealer == nil {
		return msg
	}
	sealed := message.NewMessageSize(message.MsgFlagSealed, len(msg.Content)+sealer.Overhead())
	sealed.Content = sealer.Seal(sealed.Content[:0], msg.Content)
	msg.FreeAll()
	return sealed
}

func (s *socket) open(p *pipe, msg *message.Message) (*message.Message, error) {
	sealer := p.Sealer()
	if sealer == nil {
		return msg, nil
	}
	if !msg.Header.HasFlags(message.MsgFlagSealed) || len(msg.Content) < sealer.Overhead() {
		msg.FreeAll()
		return nil, curve.ErrDecrypt
	}
	plain := message.NewMessageSize(0, len(msg.Content)-sealer.Overhead())
	content, err := sealer.Open(plain.Content[:0], msg.Content)
	msg.FreeAll()
	if err != nil {
		plain.FreeAll()
		return nil, err
	}
	plain.Content = content
	return plain, nil
}

func (s *socket) runWriter(p *pipe) {
	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("domain", "socket").WithField("id", p.ID()).Debug("writer start")
	}
	enc := message.NewEncoder(p, OptionOutBatchSize.ValueFrom(p.Options(), s.Options), s.ctx.recordWrite)
	var (
		err    error
		msg    *message.Message
		sealed bool
		carry  *message.Message // sealed, waiting for an empty batch
	)

WRITING:
	for {
		if msg, carry = carry, nil; msg != nil {
			sealed = true
		} else {
			select {
			case <-s.closedq:
				break WRITING
			case <-p.stopq:
				break WRITING
			case msg = <-s.sendq:
				s.inflight.Add(1)
				sealed = false
			}
		}

		// fill one batch
		s.ctx.acquire()
		for msg != nil {
			if !sealed {
				msg, sealed = s.seal(p, msg), true
			}
			if !enc.Fits(msg) {
				if enc.Buffered() > 0 {
					carry, msg = msg, nil
				}
				// else bigger than a batch, written on its own
				break
			}
			enc.Encode(msg)
			msg.FreeAll()
			s.inflight.Add(-1)
			msg = nil

			select {
			case msg = <-s.sendq:
				s.inflight.Add(1)
				sealed = false
			default:
			}
		}
		s.ctx.release()

		if err = enc.Flush(); err != nil {
			break
		}
		if msg != nil {
			err = enc.Encode(msg)
			msg.FreeAll()
			s.inflight.Add(-1)
			msg = nil
			if err != nil {
				break
			}
		}
	}
	for _, m := range []*message.Message{msg, carry} {
		if m != nil {
			m.FreeAll()
			s.inflight.Add(-1)
		}
	}
	enc.Free()
	p.Close()

	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("domain", "socket").WithField("id", p.ID()).WithError(err).Debug("writer end")
	}
}

func (s *socket) runReader(p *pipe) {
	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("domain", "socket").WithField("id", p.ID()).Debug("reader start")
	}
	dec := message.NewDecoder(p,
		OptionInBatchSize.ValueFrom(p.Options(), s.Options),
		OptionMaxRecvSize.ValueFrom(p.Options(), s.Options))
	var (
		err   error
		batch []*message.Message
	)

READING:
	for {
		if err = dec.Fill(); err != nil {
			break
		}

		s.ctx.acquire()
		for {
			var msg *message.Message
			if msg, err = dec.Next(); err != nil || msg == nil {
				break
			}
			if msg.Header.HasFlags(message.MsgFlagControl) {
				msg.FreeAll()
				continue
			}
			if msg, err = s.open(p, msg); err != nil {
				break
			}
			batch = append(batch, msg)
		}
		s.ctx.release()

		for i, msg := range batch {
			select {
			case s.recvq <- msg:
			case <-s.closedq:
				freeAll(batch[i:])
				break READING
			case <-p.stopq:
				freeAll(batch[i:])
				break READING
			}
		}
		batch = batch[:0]
		if err != nil {
			break
		}
	}
	dec.Free()
	p.Close()

	if log.IsLevelEnabled(log.DebugLevel) {
		log.WithField("domain", "socket").WithField("id", p.ID()).WithError(err).Debug("reader end")
	}
}

func freeAll(msgs []*message.Message) {
	for _, msg := range msgs {
		msg.FreeAll()
	}
}
