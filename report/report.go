// Package report formats harness results.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/multisocket/thrbench/perf"
)

// EthernetOverhead is the per packet overhead of TCP over IPv4 over Ethernet:
// header, FCS, preamble, inter-frame gap, IPv4 and TCP headers.
const EthernetOverhead = 14 + 4 + 8 + 12 + 20 + 20

// Result is the JSON form of a report.
type Result struct {
	Engine         string  `json:"engine,omitempty"`
	Transport      string  `json:"transport,omitempty"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	MessageSize    int     `json:"message_size"`
	MessageCount   uint64  `json:"message_count"`
	MsgPerSec      float64 `json:"msg_per_sec"`
	Mbps           float64 `json:"mbps"`
	// LinkUtilisation is the measured packet rate over its theoretical bound.
	LinkUtilisation float64 `json:"link_utilisation,omitempty"`
}

// SendResult is the JSON form of a sender summary.
type SendResult struct {
	Engine         string  `json:"engine,omitempty"`
	Transport      string  `json:"transport,omitempty"`
	MessagesSent   uint64  `json:"messages_sent"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	PeerGone       bool    `json:"peer_gone"`
	SmallWrites    uint64  `json:"small_writes"`
	MediumWrites   uint64  `json:"medium_writes"`
	LargeWrites    uint64  `json:"large_writes"`
}

// Row is one line of a throughput CSV: size,count,pps,mbps.
type Row struct {
	Size  int
	Count uint64
	PPS   float64
	Mbps  float64
}

// TheoreticalPPS returns the maximum packets per second of size byte messages
// over a linkGbps Ethernet link, one message per packet.
func TheoreticalPPS(size int, linkGbps float64) float64 {
	if linkGbps <= 0 || size < 0 {
		return 0
	}
	bytesPerSec := linkGbps * 1e9 / 8
	return bytesPerSec / float64(size+EthernetOverhead)
}

// Utilisation returns rep's packet rate over the link's bound, 0 without a link speed.
func Utilisation(rep *perf.Report, linkGbps float64) float64 {
	bound := TheoreticalPPS(rep.Size, linkGbps)
	if bound == 0 {
		return 0
	}
	return rep.Throughput / bound
}

// Text writes the report lines, and the link utilisation when linkGbps > 0.
func Text(w io.Writer, rep *perf.Report, linkGbps float64) error {
	_, err := fmt.Fprintf(w,
		"elapsed: %.6f [s]\nmessage size: %d [B]\nmessage count: %d\nmean throughput: %d [msg/s]\nmean throughput: %.3f [Mb/s]\n",
		rep.Elapsed.Seconds(), rep.Size, rep.Count, uint64(rep.Throughput), rep.Megabits)
	if err != nil || linkGbps <= 0 {
		return err
	}
	_, err = fmt.Fprintf(w, "link utilisation: %.1f%% of %.0f [msg/s] on %g [Gb/s]\n",
		Utilisation(rep, linkGbps)*100, TheoreticalPPS(rep.Size, linkGbps), linkGbps)
	return err
}

// SendText writes the sender summary.
func SendText(w io.Writer, sum *perf.SendSummary) error {
	_, err := fmt.Fprintf(w, "messages sent: %d\nsmall writes: %d\nmed writes: %d\nlarge writes: %d\n",
		sum.Sent, sum.Writes.Small, sum.Writes.Medium, sum.Writes.Large)
	return err
}

// NewResult converts rep.
func NewResult(engine, transport string, rep *perf.Report, linkGbps float64) Result {
	return Result{
		Engine:          engine,
		Transport:       transport,
		ElapsedSeconds:  rep.Elapsed.Seconds(),
		MessageSize:     rep.Size,
		MessageCount:    rep.Count,
		MsgPerSec:       rep.Throughput,
		Mbps:            rep.Megabits,
		LinkUtilisation: Utilisation(rep, linkGbps),
	}
}

// NewSendResult converts sum.
func NewSendResult(engine, transport string, sum *perf.SendSummary) SendResult {
	return SendResult{
		Engine:         engine,
		Transport:      transport,
		MessagesSent:   sum.Sent,
		ElapsedSeconds: sum.Elapsed.Seconds(),
		PeerGone:       sum.PeerGone,
		SmallWrites:    sum.Writes.Small,
		MediumWrites:   sum.Writes.Medium,
		LargeWrites:    sum.Writes.Large,
	}
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// NewRow converts rep.
func NewRow(rep *perf.Report) Row {
	return Row{
		Size:  rep.Size,
		Count: rep.Count,
		PPS:   rep.Throughput,
		Mbps:  rep.Megabits,
	}
}

// CSV writes rows, with a header line when header is set.
// Plotting scripts load the file as numbers only, so header is usually off.
func CSV(w io.Writer, rows []Row, header bool) error {
	cw := csv.NewWriter(w)
	if header {
		if err := cw.Write([]string{"size", "count", "pps", "mbps"}); err != nil {
			return err
		}
	}
	for _, r := range rows {
		err := cw.Write([]string{
			strconv.Itoa(r.Size),
			strconv.FormatUint(r.Count, 10),
			strconv.FormatFloat(r.PPS, 'f', 0, 64),
			strconv.FormatFloat(r.Mbps, 'f', 3, 64),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()

	return cw.Error()
}
