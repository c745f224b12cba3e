// Package ws implements a websocket transport, the stream is carried in binary messages.
package ws

import (
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/multisocket/thrbench/errs"
	"github.com/multisocket/thrbench/options"
	"github.com/multisocket/thrbench/transport"
)

type (
	wsTran string

	dialer struct {
		options.Options
		addr string
		url  *url.URL
	}

	// Listener websocket listener, exported for add handler or self serving
	Listener struct {
		options.Options
		addr     string
		URL      *url.URL
		upgrader websocket.Upgrader
		*http.ServeMux
		htsvr    *http.Server
		listener net.Listener
		pending  chan *wsConn
		sync.Mutex
		closedq chan struct{}
	}

	wsConn struct {
		*websocket.Conn
		laddr net.Addr
		raddr net.Addr
		r     io.Reader
		wmu   sync.Mutex
	}

	address string
)

const (
	// Transport is a transport.Transport for Websocket.
	Transport = wsTran("ws")

	subprotocol = "thrbench.binary"
)

func init() {
	transport.RegisterTransport(Transport)
}

func noCheckOrigin(r *http.Request) bool {
	return true
}

// address
func (a address) Network() string {
	return string(Transport)
}

func (a address) String() string {
	return string(a)
}

// ws
func (c *wsConn) LocalAddr() net.Addr {
	return c.laddr
}

func (c *wsConn) RemoteAddr() net.Addr {
	return c.raddr
}

func (c *wsConn) Read(b []byte) (n int, err error) {
	for {
		if c.r == nil {
			var mt int
			if mt, c.r, err = c.Conn.NextReader(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					err = io.EOF
				}
				return
			}
			if mt != websocket.BinaryMessage {
				c.r = nil
				continue
			}
		}
		n, err = c.r.Read(b)
		if err == io.EOF {
			c.r = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return
	}
}

func (c *wsConn) Write(b []byte) (n int, err error) {
	c.wmu.Lock()
	err = c.Conn.WriteMessage(websocket.BinaryMessage, b)
	c.wmu.Unlock()
	if err == nil {
		n = len(b)
	}
	return
}

func (c *wsConn) Close() error {
	c.wmu.Lock()
	c.Conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.wmu.Unlock()
	return c.Conn.Close()
}

func (c *wsConn) SetDeadline(t time.Time) (err error) {
	if err = c.Conn.SetReadDeadline(t); err != nil {
		return
	}
	return c.Conn.SetWriteDeadline(t)
}

func setBuffers(ws *websocket.Conn, opts options.Options) {
	tc, ok := ws.UnderlyingConn().(*net.TCPConn)
	if !ok {
		return
	}
	recv, send := transport.Buffers(opts)
	if recv > 0 {
		tc.SetReadBuffer(recv)
	}
	if send > 0 {
		tc.SetWriteBuffer(send)
	}
}

// dialer

func (d *dialer) Dial() (_ transport.Connection, err error) {
	var ws *websocket.Conn

	wd := &websocket.Dialer{
		ReadBufferSize:  OptionReadBufferSize.ValueFrom(d.Options),
		WriteBufferSize: OptionWriteBufferSize.ValueFrom(d.Options),
		Subprotocols:    []string{subprotocol},
	}

	if ws, _, err = wd.Dial(d.url.String(), nil); err != nil {
		return nil, err
	}
	if ws.Subprotocol() != subprotocol {
		ws.Close()
		err = errs.ErrBadTransport
		return
	}
	setBuffers(ws, d.Options)

	c := &wsConn{
		Conn:  ws,
		laddr: ws.LocalAddr(),
		raddr: address(d.addr),
	}

	return transport.NewConnection(Transport, c), nil
}

// listener

// Listen start listen
func (l *Listener) Listen() (err error) {
	select {
	case <-l.closedq:
		return errs.ErrClosed
	default:
	}

	l.pending = make(chan *wsConn, OptionPendingSize.ValueFrom(l.Options))
	l.upgrader.ReadBufferSize = OptionReadBufferSize.ValueFrom(l.Options)
	l.upgrader.WriteBufferSize = OptionWriteBufferSize.ValueFrom(l.Options)
	if !OptionCheckOrigin.ValueFrom(l.Options) {
		l.upgrader.CheckOrigin = noCheckOrigin
	}

	var taddr *net.TCPAddr
	if taddr, err = transport.ResolveTCPAddr(l.URL.Host); err != nil {
		return err
	}

	if l.listener, err = net.ListenTCP("tcp", taddr); err != nil {
		return
	}
	l.htsvr = &http.Server{Handler: l.ServeMux}
	go l.htsvr.Serve(l.listener)
	return nil
}

// Accept start accept
func (l *Listener) Accept() (transport.Connection, error) {
	if l.listener == nil {
		return nil, errs.ErrBadOperateState
	}

	select {
	case c := <-l.pending:
		return transport.NewConnection(Transport, c), nil
	case <-l.closedq:
		return nil, errs.ErrClosed
	}
}

// Address returns the bound address.
func (l *Listener) Address() string {
	if l.listener == nil {
		return l.URL.String()
	}
	u := *l.URL
	u.Host = l.listener.Addr().String()
	return u.String()
}

// Close stop listen
func (l *Listener) Close() error {
	l.Lock()
	select {
	case <-l.closedq:
		l.Unlock()
		return errs.ErrClosed
	default:
		close(l.closedq)
	}
	l.Unlock()

	if l.htsvr != nil {
		l.htsvr.Close()
	}

CLOSING:
	for {
		select {
		case c := <-l.pending:
			c.Close()
		default:
			break CLOSING
		}
	}
	return nil
}

func (l *Listener) ServeHTTP(resp http.ResponseWriter, req *http.Request) {
	ws, err := l.upgrader.Upgrade(resp, req, nil)
	if err != nil {
		log.WithField("domain", "ws").WithError(err).Debug("upgrade")
		return
	}

	if ws.Subprotocol() != subprotocol {
		ws.Close()
		return
	}
	setBuffers(ws, l.Options)

	c := &wsConn{
		Conn:  ws,
		laddr: address(l.addr),
		raddr: ws.RemoteAddr(),
	}

	select {
	case <-l.closedq:
		ws.Close()
	case l.pending <- c:
	}
}

func (t wsTran) Scheme() string {
	return string(t)
}

func (t wsTran) NewDialer(address string) (transport.Dialer, error) {
	var (
		err  error
		url  *url.URL
		addr string
	)
	if url, addr, err = parseAddressToURL(t, address); err != nil {
		return nil, err
	}

	d := &dialer{
		Options: options.NewOptions(),
		addr:    addr,
		url:     url,
	}
	return d, nil
}

func (t wsTran) NewListener(address string) (transport.Listener, error) {
	var (
		err  error
		url  *url.URL
		addr string
	)
	if url, addr, err = parseAddressToURL(t, address); err != nil {
		return nil, err
	}
	if url.Path == "" {
		url.Path = "/"
	}

	l := &Listener{
		Options: options.NewOptions(),
		addr:    addr,
		URL:     url,
		upgrader: websocket.Upgrader{
			Subprotocols: []string{subprotocol},
		},
		closedq: make(chan struct{}),
	}
	l.ServeMux = http.NewServeMux()
	l.ServeMux.Handle(l.URL.Path, l)

	return l, nil
}

func parseAddressToURL(t transport.Transport, address string) (u *url.URL, addr string, err error) {
	if addr, err = transport.StripScheme(t, address); err != nil {
		return
	}
	u, err = url.Parse(address)
	return
}
