package connector

import (
	"time"

	"github.com/multisocket/thrbench/options"
)

// Options
var (
	// Dialer
	OptionMinReconnectTime = options.NewTimeDurationOption("connector.MinReconnectTime", 100*time.Millisecond)
	OptionMaxReconnectTime = options.NewTimeDurationOption("connector.MaxReconnectTime", 8*time.Second)
	OptionDialAsync        = options.NewBoolOption("connector.DialAsync", true)
	OptionReconnect        = options.NewBoolOption("connector.Reconnect", true)
)
