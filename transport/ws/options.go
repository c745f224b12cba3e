package ws

import (
	"github.com/multisocket/thrbench/options"
)

// Options for websocket
var (
	OptionReadBufferSize  = options.NewIntOption("ws.ReadBufferSize", 64*1024)
	OptionWriteBufferSize = options.NewIntOption("ws.WriteBufferSize", 64*1024)
	OptionCheckOrigin     = options.NewBoolOption("ws.CheckOrigin", false)
	// OptionPendingSize is the number of upgraded connections waiting for Accept.
	OptionPendingSize = options.NewIntOption("ws.PendingSize", 16)
)
