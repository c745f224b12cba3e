// Command remote_thr connects a PUSH endpoint and sends messages to local_thr
// until local_thr ends.
package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/multisocket/thrbench/config"
	"github.com/multisocket/thrbench/internal/cli"
	"github.com/multisocket/thrbench/options"
	"github.com/multisocket/thrbench/perf"
	"github.com/multisocket/thrbench/report"
	"github.com/multisocket/thrbench/transport/tcp"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	return cli.Execute(newCmd(stdout), args, stdout)
}

func newCmd(stdout io.Writer) *cobra.Command {
	var (
		flags     cli.Flags
		count     uint64
		rateLimit int
	)

	cmd := &cobra.Command{
		Use:   "remote_thr <connect-to> <message-size> [enable-curve] [bg-threads]",
		Short: "Send messages to local_thr",
		Long: `remote_thr connects to local_thr and sends messages of the given size
until local_thr stops receiving. A non-zero enable-curve secures the endpoint
with the benchmark curve keys; bg-threads sets the engine I/O threads (default 1).`,
		Args: cli.ArgsRange(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.Load(cmd)
			if err != nil {
				return err
			}
			if cfg.Format == config.FormatCSV {
				return perf.Usage("csv format is not supported by remote_thr")
			}
			var extra options.OptionValues
			if rateLimit > 0 {
				extra = options.OptionValues{tcp.OptionWriteLimit: rateLimit}
			}
			return runRemote(cfg, extra, count, args, stdout)
		},
	}
	flags.Register(cmd, config.FormatText)
	cmd.Flags().Uint64Var(&count, "count", 0,
		"Messages to send (0 = until the receiver ends)")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 0,
		"Limit tcp connections to bytes/s (native engine, 0 = unlimited)")

	return cmd
}

func runRemote(cfg *config.Config, extra options.OptionValues, count uint64, args []string, stdout io.Writer) error {
	addr := args[0]
	size, err := cli.ParseSize(args[1])
	if err != nil {
		return err
	}
	if len(args) >= 3 {
		curve, err := cli.ParseInt("enable-curve", args[2])
		if err != nil {
			return err
		}
		if curve != 0 {
			cfg.Endpoint.Security = perf.ClientSecurity()
		}
	}
	if len(args) >= 4 {
		if cfg.IOThreads, err = cli.ParseInt("bg-threads", args[3]); err != nil {
			return err
		}
	}

	engine, err := cli.NewEngine(cfg, extra)
	if err != nil {
		return err
	}
	s := perf.NewSender(engine, cfg.IOThreads, cfg.Endpoint)
	s.Count = count
	stop, err := cli.StartMetrics(cfg, cli.SenderSource("remote_thr", size, s))
	if err != nil {
		return err
	}
	defer stop()

	sum, err := s.Run(addr, size)
	if err != nil {
		return err
	}
	if cfg.Format == config.FormatJSON {
		return report.JSON(stdout, report.NewSendResult(engine.Name(), cli.Scheme(addr), sum))
	}
	return report.SendText(stdout, sum)
}
