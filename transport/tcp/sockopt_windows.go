//go:build windows

package tcp

import (
	"syscall"

	"golang.org/x/sys/windows"
)

// bufferControl sets kernel buffers on the socket before bind or connect.
func bufferControl(recv, send int) func(network, address string, c syscall.RawConn) error {
	if recv <= 0 && send <= 0 {
		return nil
	}
	return func(network, address string, c syscall.RawConn) error {
		var serr error
		err := c.Control(func(fd uintptr) {
			if recv > 0 {
				if serr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_RCVBUF, recv); serr != nil {
					return
				}
			}
			if send > 0 {
				serr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_SNDBUF, send)
			}
		})
		if err != nil {
			return err
		}
		return serr
	}
}
