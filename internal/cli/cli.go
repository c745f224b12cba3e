// Package cli holds what the benchmark commands share: flags, config, engines and output.
package cli

import (
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/multisocket/thrbench/config"
	"github.com/multisocket/thrbench/engine/native"
	"github.com/multisocket/thrbench/engine/zmq"
	"github.com/multisocket/thrbench/metrics"
	"github.com/multisocket/thrbench/options"
	"github.com/multisocket/thrbench/perf"
	"github.com/multisocket/thrbench/security/curve"
	"github.com/multisocket/thrbench/socket"
)

// Flags are the flags common to all commands.
type Flags struct {
	Engine      string
	ConfigPath  string
	Format      string
	LinkGbps    float64
	MetricsAddr string
	LogLevel    string
}

// Register adds the flags to cmd, format defaults to defFormat.
func (f *Flags) Register(cmd *cobra.Command, defFormat string) {
	flags := cmd.Flags()
	flags.StringVar(&f.Engine, "engine", config.EngineNative,
		"Messaging engine: native, zmq")
	flags.StringVar(&f.ConfigPath, "config", "",
		"YAML run configuration file")
	flags.StringVar(&f.Format, "format", defFormat,
		"Output format: text, json, csv")
	flags.Float64Var(&f.LinkGbps, "link-gbps", 0,
		"Link speed for the theoretical message rate (0 = skip)")
	flags.StringVar(&f.MetricsAddr, "metrics-addr", "",
		"Serve Prometheus metrics on host:port")
	flags.StringVar(&f.LogLevel, "log-level", "info",
		"Log level: debug, info, warn, error")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return perf.Usage(err.Error())
	})
}

// Load returns the run configuration. Without a config file every flag applies,
// with one only the flags given on the command line override it.
func (f *Flags) Load(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if f.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(f.ConfigPath); err != nil {
			return nil, err
		}
	}
	use := func(name string) bool {
		return f.ConfigPath == "" || cmd.Flags().Changed(name)
	}
	if use("engine") {
		cfg.Engine = f.Engine
	}
	if use("format") {
		cfg.Format = f.Format
	}
	if use("link-gbps") {
		cfg.LinkGbps = f.LinkGbps
	}
	if use("metrics-addr") {
		cfg.MetricsAddr = f.MetricsAddr
	}
	if use("log-level") {
		cfg.LogLevel = f.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, perf.Usage(err.Error())
	}
	if err := SetupLogging(cfg.LogLevel, os.Stderr); err != nil {
		return nil, perf.Usage(err.Error())
	}
	return cfg, nil
}

// SetupLogging sends logs at level and above to w.
func SetupLogging(level string, w io.Writer) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	log.SetOutput(w)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return nil
}

// NewEngine returns the engine of cfg, extra option values go to native endpoints.
func NewEngine(cfg *config.Config, extra options.OptionValues) (perf.Engine, error) {
	ovs, err := cfg.OptionValues()
	if err != nil {
		return nil, perf.Usage(err.Error())
	}
	switch cfg.Engine {
	case config.EngineZMQ:
		if len(extra) > 0 {
			return nil, perf.Usage("option not supported by the zmq engine")
		}
		return zmq.Engine, nil
	default:
		return native.New(options.Merge(ovs, extra)), nil
	}
}

// ParseInt parses the positional argument name.
func ParseInt(name, arg string) (int, error) {
	v, err := strconv.Atoi(arg)
	if err != nil {
		return 0, perf.Usage(fmt.Sprintf("invalid %s %q", name, arg))
	}
	return v, nil
}

// ParseSize parses a message size.
func ParseSize(arg string) (int, error) {
	v, err := ParseInt("message size", arg)
	if err == nil && v < 0 {
		err = perf.Usage(fmt.Sprintf("invalid message size %q", arg))
	}
	return v, err
}

// Scheme returns the transport scheme of addr.
func Scheme(addr string) string {
	if i := strings.Index(addr, "://"); i > 0 {
		return addr[:i]
	}
	return ""
}

// ArgsRange accepts between min and max positional arguments.
func ArgsRange(min, max int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < min || len(args) > max {
			return perf.Usage(fmt.Sprintf("wrong number of arguments: %d", len(args)))
		}
		return nil
	}
}

// RecvLimit returns the native options letting messages of size bytes through when
// they exceed the default receive limit, nil when the default fits or the limit is configured.
func RecvLimit(cfg *config.Config, size int) options.OptionValues {
	if cfg.Engine == config.EngineZMQ {
		return nil
	}
	if _, set := cfg.Options[socket.OptionMaxRecvSize.Name()]; set {
		return nil
	}
	limit := uint64(size) + curve.Overhead
	if limit <= socket.DefaultMaxRecvSize {
		return nil
	}
	if limit > math.MaxUint32 {
		limit = 0
	}
	return options.OptionValues{socket.OptionMaxRecvSize: uint32(limit)}
}

// ReceiverSource is the metrics source of a harness.
func ReceiverSource(role string, size int, h *perf.Harness) metrics.Source {
	return metrics.Source{Role: role, Size: size, Messages: h.Progress}
}

// SenderSource is the metrics source of a sender, with the write counts of its context.
func SenderSource(role string, size int, s *perf.Sender) metrics.Source {
	return metrics.Source{Role: role, Size: size, Messages: s.Progress, Writes: s.WriteStats}
}

// StartMetrics serves src's metrics when cfg has a metrics address, the returned stop is never nil.
func StartMetrics(cfg *config.Config, src metrics.Source) (stop func(), err error) {
	if cfg.MetricsAddr == "" {
		return func() {}, nil
	}
	l, err := net.Listen("tcp", cfg.MetricsAddr)
	if err != nil {
		return nil, err
	}
	srv := metrics.Serve(l, metrics.NewRegistry(src))
	return func() { closeServer(srv) }, nil
}

func closeServer(srv *http.Server) {
	if err := srv.Close(); err != nil {
		log.WithField("domain", "metrics").WithError(err).Warn("close")
	}
}

// Execute runs cmd with args and returns the exit code.
// Errors are printed to out, usage errors with the usage line.
func Execute(cmd *cobra.Command, args []string, out io.Writer) int {
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(out, err)
		if perf.KindOf(err) == perf.UsageError {
			fmt.Fprintln(out, "usage: "+cmd.UseLine())
		}
	}
	return perf.ExitCode(err)
}
