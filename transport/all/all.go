// Package all is used to register all transports.  This allows a program
// to support all known transports with a single import.
package all

import (
	// import transports
	_ "github.com/multisocket/thrbench/transport/inproc"
	_ "github.com/multisocket/thrbench/transport/ipc"
	_ "github.com/multisocket/thrbench/transport/kcp"
	_ "github.com/multisocket/thrbench/transport/tcp"
	_ "github.com/multisocket/thrbench/transport/ws"
)
