package tcp

import (
	"github.com/multisocket/thrbench/options"
)

// Options
var (
	OptionNoDelay       = options.NewBoolOption("tcp.NoDelay", true)
	OptionKeepAlive     = options.NewBoolOption("tcp.KeepAlive", true)
	OptionKeepAliveTime = options.NewTimeDurationOption("tcp.KeepAliveTime", 0)
	// OptionReadLimit limits the read bandwidth of each connection in bytes/s, 0 for unlimited.
	OptionReadLimit = options.NewIntOption("tcp.ReadLimit", 0)
	// OptionWriteLimit limits the write bandwidth of each connection in bytes/s, 0 for unlimited.
	OptionWriteLimit = options.NewIntOption("tcp.WriteLimit", 0)
)
