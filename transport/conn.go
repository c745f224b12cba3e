package transport

import (
	"fmt"
	"net"
	"sync"
)

// connection implements the Connection interface on top of net.Conn.
type connection struct {
	net.Conn
	transport Transport

	sync.Mutex
	closed bool
}

func (conn *connection) Transport() Transport {
	return conn.transport
}

// Close implements the Connection Close method, it is safe to call many times.
func (conn *connection) Close() error {
	conn.Lock()
	defer conn.Unlock()
	if conn.closed {
		return nil
	}
	conn.closed = true

	return conn.Conn.Close()
}

func (conn *connection) LocalAddress() string {
	return fmt.Sprintf("%s://%s", conn.transport.Scheme(), conn.Conn.LocalAddr().String())
}

func (conn *connection) RemoteAddress() string {
	return fmt.Sprintf("%s://%s", conn.transport.Scheme(), conn.Conn.RemoteAddr().String())
}

// NewConnection allocates a new Connection using the supplied net.Conn
func NewConnection(transport Transport, c net.Conn) Connection {
	return &connection{
		Conn:      c,
		transport: transport,
	}
}
