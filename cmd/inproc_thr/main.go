// Command inproc_thr runs local_thr and remote_thr in one process over inproc
// for each message size and prints a throughput row per size.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/multisocket/thrbench/config"
	"github.com/multisocket/thrbench/internal/cli"
	"github.com/multisocket/thrbench/metrics"
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
	var (
		flags  cli.Flags
		header bool
	)

	cmd := &cobra.Command{
		Use:   "inproc_thr <message-size>[,message-size...] [duration-sec]",
		Short: "Measure in-process throughput for a list of message sizes",
		Long: `inproc_thr measures each message size for duration-sec seconds (default 1)
with a sender and a receiver in the same process, and prints one
size,count,pps,mbps row per size.`,
		Args: cli.ArgsRange(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.Load(cmd)
			if err != nil {
				return err
			}
			return runInproc(cfg, header, args, stdout)
		},
	}
	flags.Register(cmd, config.FormatCSV)
	cmd.Flags().BoolVar(&header, "header", false,
		"Print a CSV header line")

	return cmd
}

func parseSizes(arg string) ([]int, error) {
	var sizes []int
	for _, s := range strings.Split(arg, ",") {
		size, err := cli.ParseSize(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		sizes = append(sizes, size)
	}
	return sizes, nil
}

func runInproc(cfg *config.Config, header bool, args []string, stdout io.Writer) error {
	sizes, err := parseSizes(args[0])
	if err != nil {
		return err
	}
	duration := 1
	if len(args) >= 2 {
		if duration, err = cli.ParseInt("duration", args[1]); err != nil {
			return err
		}
	}
	engine, err := cli.NewEngine(cfg, nil)
	if err != nil {
		return err
	}

	var (
		rows    []report.Row
		results []report.Result
	)
	for _, size := range sizes {
		rep, err := measure(cfg, engine, size, time.Duration(duration)*time.Second)
		if err != nil {
			return err
		}
		switch cfg.Format {
		case config.FormatText:
			if err = report.Text(stdout, rep, cfg.LinkGbps); err != nil {
				return err
			}
		case config.FormatJSON:
			results = append(results, report.NewResult(engine.Name(), "inproc", rep, cfg.LinkGbps))
		default:
			rows = append(rows, report.NewRow(rep))
		}
	}

	switch cfg.Format {
	case config.FormatJSON:
		return report.JSON(stdout, results)
	case config.FormatCSV:
		return report.CSV(stdout, rows, header)
	}
	return nil
}

// measure runs a harness and a sender for one message size.
func measure(cfg *config.Config, engine perf.Engine, size int, duration time.Duration) (*perf.Report, error) {
	addr := fmt.Sprintf("inproc://inproc_thr.%d", size)
	h := perf.NewHarness(engine, cfg.IOThreads, cfg.Endpoint)
	s := perf.NewSender(engine, cfg.IOThreads, cfg.Endpoint)

	stop, err := cli.StartMetrics(cfg, metrics.Source{
		Role:     "inproc_thr",
		Size:     size,
		Messages: h.Progress,
		Writes:   s.WriteStats,
	})
	if err != nil {
		return nil, err
	}
	defer stop()

	type sent struct {
		sum *perf.SendSummary
		err error
	}
	done := make(chan sent, 1)
	go func() {
		sum, err := s.Run(addr, size)
		done <- sent{sum, err}
	}()

	rep, err := h.Run(addr, size, duration)
	s.Stop()
	res := <-done
	if err != nil {
		return nil, err
	}
	if res.err != nil {
		return nil, res.err
	}
	log.WithField("domain", "inproc_thr").
		WithFields(log.Fields{"size": size, "sent": res.sum.Sent, "received": rep.Count}).
		Debug("measured")
	return rep, nil
}
