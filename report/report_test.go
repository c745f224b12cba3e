package report

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/multisocket/thrbench/perf"
)

func testReport() *perf.Report {
	return (&perf.Run{Size: 1000, Count: 250000, Elapsed: 1500 * time.Millisecond}).Report()
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	if err := Text(&buf, testReport(), 0); err != nil {
		t.Fatalf("Text failed: %v", err)
	}

	want := "elapsed: 1.500000 [s]\n" +
		"message size: 1000 [B]\n" +
		"message count: 250000\n" +
		"mean throughput: 166666 [msg/s]\n" +
		"mean throughput: 1333.333 [Mb/s]\n"
	if buf.String() != want {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}

func TestTextLink(t *testing.T) {
	var buf bytes.Buffer
	if err := Text(&buf, testReport(), 10); err != nil {
		t.Fatalf("Text failed: %v", err)
	}
	if !strings.Contains(buf.String(), "link utilisation: 14.4%") {
		t.Errorf("expected link utilisation line, got:\n%s", buf.String())
	}
}

func TestTheoreticalPPS(t *testing.T) {
	tests := []struct {
		size int
		gbps float64
		want float64
	}{
		{0, 10, 1e10 / 8 / 78},
		{1422, 10, 1e10 / 8 / 1500},
		{64, 0, 0},
	}

	for _, tt := range tests {
		if got := TheoreticalPPS(tt.size, tt.gbps); math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("TheoreticalPPS(%d, %g)=%f, want %f", tt.size, tt.gbps, got, tt.want)
		}
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, NewResult("native", "tcp", testReport(), 0)); err != nil {
		t.Fatalf("JSON failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["message_count"] != float64(250000) || decoded["engine"] != "native" {
		t.Errorf("unexpected JSON: %s", buf.String())
	}
	if _, ok := decoded["link_utilisation"]; ok {
		t.Error("link utilisation without a link speed")
	}
}

func TestCSV(t *testing.T) {
	rows := []Row{
		NewRow(testReport()),
		{Size: 64, Count: 10, PPS: 1234.56, Mbps: 0.5},
	}

	var buf bytes.Buffer
	if err := CSV(&buf, rows, false); err != nil {
		t.Fatalf("CSV failed: %v", err)
	}
	want := "1000,250000,166667,1333.333\n64,10,1235,0.500\n"
	if buf.String() != want {
		t.Errorf("unexpected CSV:\n%s", buf.String())
	}

	buf.Reset()
	CSV(&buf, rows[:1], true)
	if !strings.HasPrefix(buf.String(), "size,count,pps,mbps\n") {
		t.Errorf("missing header:\n%s", buf.String())
	}
}

func TestSendText(t *testing.T) {
	var buf bytes.Buffer
	sum := &perf.SendSummary{Sent: 12, Writes: perf.WriteStats{Small: 1, Medium: 2, Large: 3}}
	if err := SendText(&buf, sum); err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	want := "messages sent: 12\nsmall writes: 1\nmed writes: 2\nlarge writes: 3\n"
	if buf.String() != want {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}
