package transport

import (
	"net"
	"sort"
	"strings"
	"sync"
)

// StripScheme removes the leading scheme (such as "tcp://") from an address
// string.  This is mostly a utility for benefit of transport providers.
func StripScheme(t Transport, addr string) (string, error) {
	if !strings.HasPrefix(addr, t.Scheme()+"://") {
		return addr, ErrBadTran
	}
	return addr[len(t.Scheme()+"://"):], nil
}

// ParseScheme parse scheme from address
func ParseScheme(addr string) (scheme string) {
	var i int

	if i = strings.Index(addr, "://"); i < 0 {
		return
	}

	scheme = addr[:i]
	return
}

// ResolveTCPAddr is like net.ResolveTCPAddr, but it handles the
// wildcard used in zeromq addresses, replacing it with an empty
// string to indicate that all local interfaces be used.
func ResolveTCPAddr(addr string) (*net.TCPAddr, error) {
	return ResolveNetAddr("tcp", addr)
}

// ResolveUDPAddr is ResolveTCPAddr for udp based transports.
func ResolveUDPAddr(addr string) (*net.UDPAddr, error) {
	return net.ResolveUDPAddr("udp", StripWildcard(addr))
}

// ResolveNetAddr resolve a tcp address with wildcard host.
func ResolveNetAddr(network, addr string) (*net.TCPAddr, error) {
	return net.ResolveTCPAddr(network, StripWildcard(addr))
}

// StripWildcard replace the "*" host with all interfaces.
func StripWildcard(addr string) string {
	if strings.HasPrefix(addr, "*") {
		return addr[1:]
	}
	return addr
}

var (
	lock       sync.RWMutex
	transports = map[string]Transport{}
)

// GetTransportFromAddr get transport for the address scheme
func GetTransportFromAddr(addr string) Transport {
	return GetTransport(ParseScheme(addr))
}

// RegisterTransport is used to register the transport globally,
// after which it will be available for all sockets.  The
// transport will override any others registered for the same
// scheme.
func RegisterTransport(t Transport) {
	lock.Lock()
	transports[t.Scheme()] = t
	lock.Unlock()
}

// GetTransport is used by a socket to lookup the transport
// for a given scheme.
func GetTransport(scheme string) Transport {
	lock.RLock()
	t := transports[scheme]
	lock.RUnlock()
	return t
}

// Schemes returns the registered schemes, sorted.
func Schemes() []string {
	lock.RLock()
	schemes := make([]string, 0, len(transports))
	for s := range transports {
		schemes = append(schemes, s)
	}
	lock.RUnlock()
	sort.Strings(schemes)
	return schemes
}
