// Package metrics exports harness progress to Prometheus.
package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/multisocket/thrbench/perf"
)

const namespace = "thrbench"

// Source is what a run exposes, Writes may be nil.
type Source struct {
	// Role is the label of every metric, such as local_thr.
	Role     string
	Size     int
	Messages func() uint64
	Writes   func() perf.WriteStats
}

type writesCollector struct {
	desc   *prometheus.Desc
	writes func() perf.WriteStats
}

func (c *writesCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *writesCollector) Collect(ch chan<- prometheus.Metric) {
	st := c.writes()
	for class, v := range map[string]uint64{"small": st.Small, "medium": st.Medium, "large": st.Large} {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.CounterValue, float64(v), class)
	}
}

// NewRegistry returns a registry with the collectors of src.
func NewRegistry(src Source) *prometheus.Registry {
	labels := prometheus.Labels{"role": src.Role}
	size := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "message_size_bytes",
		Help:        "Configured message size.",
		ConstLabels: labels,
	})
	size.Set(float64(src.Size))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "messages_total",
			Help:        "Messages measured.",
			ConstLabels: labels,
		}, func() float64 { return float64(src.Messages()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "bytes_total",
			Help:        "Message content bytes measured.",
			ConstLabels: labels,
		}, func() float64 { return float64(src.Messages()) * float64(src.Size) }),
		size,
	)
	if src.Writes != nil {
		reg.MustRegister(&writesCollector{
			desc: prometheus.NewDesc(prometheus.BuildFQName(namespace, "", "writes_total"),
				"Connection writes by size class.", []string{"class"}, labels),
			writes: src.Writes,
		})
	}
	return reg
}

// Serve serves reg on l at /metrics until the returned server is closed.
func Serve(l net.Listener, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux}
	go func() {
		if err := srv.Serve(l); err != nil && err != http.ErrServerClosed {
			log.WithField("domain", "metrics").WithError(err).Warn("serve")
		}
	}()
	log.WithField("domain", "metrics").WithField("addr", l.Addr().String()).Info("serving metrics")
	return srv
}
