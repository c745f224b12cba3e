// Command local_thr binds a PULL endpoint and measures the throughput of the
// messages remote_thr sends to it.
package main

import (
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/multisocket/thrbench/config"
	"github.com/multisocket/thrbench/internal/cli"
	"github.com/multisocket/thrbench/perf"
	"github.com/multisocket/thrbench/report"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	return cli.Execute(newCmd(stdout), args, stdout)
}

func newCmd(stdout io.Writer) *cobra.Command {
	var flags cli.Flags

	cmd := &cobra.Command{
		Use:   "local_thr <bind-to> <message-size> [duration-sec] [enable-curve] [bg-threads]",
		Short: "Measure the throughput of received messages",
		Long: `local_thr binds to an address, waits for a first message, then receives
messages of the given size for duration-sec seconds (default 10) and reports
the message rate and bit rate. A non-zero enable-curve secures the endpoint
with the benchmark curve keys; bg-threads sets the engine I/O threads (default 1).`,
		Args: cli.ArgsRange(2, 5),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.Load(cmd)
			if err != nil {
				return err
			}
			return runLocal(cfg, args, stdout)
		},
	}
	flags.Register(cmd, config.FormatText)

	return cmd
}

func runLocal(cfg *config.Config, args []string, stdout io.Writer) error {
	addr := args[0]
	size, err := cli.ParseSize(args[1])
	if err != nil {
		return err
	}
	duration := 10
	if len(args) >= 3 {
		if duration, err = cli.ParseInt("duration", args[2]); err != nil {
			return err
		}
	}
	if len(args) >= 4 {
		curve, err := cli.ParseInt("enable-curve", args[3])
		if err != nil {
			return err
		}
		if curve != 0 {
			cfg.Endpoint.Security = perf.ServerSecurity()
		}
	}
	if len(args) >= 5 {
		if cfg.IOThreads, err = cli.ParseInt("bg-threads", args[4]); err != nil {
			return err
		}
	}

	engine, err := cli.NewEngine(cfg, cli.RecvLimit(cfg, size))
	if err != nil {
		return err
	}
	h := perf.NewHarness(engine, cfg.IOThreads, cfg.Endpoint)
	stop, err := cli.StartMetrics(cfg, cli.ReceiverSource("local_thr", size, h))
	if err != nil {
		return err
	}
	defer stop()

	rep, err := h.Run(addr, size, time.Duration(duration)*time.Second)
	if err != nil {
		return err
	}

	switch cfg.Format {
	case config.FormatJSON:
		return report.JSON(stdout, report.NewResult(engine.Name(), cli.Scheme(addr), rep, cfg.LinkGbps))
	case config.FormatCSV:
		return report.CSV(stdout, []report.Row{report.NewRow(rep)}, false)
	}
	return report.Text(stdout, rep, cfg.LinkGbps)
}
