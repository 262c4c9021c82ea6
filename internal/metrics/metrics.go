// Package metrics records the outcome of runs for the node_exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Travis-Britz/cfddns"
)

// Recorder holds the gauges describing the most recent run.
type Recorder struct {
	reg      *prometheus.Registry
	lastRun  prometheus.Gauge
	success  prometheus.Gauge
	duration prometheus.Gauge
	records  *prometheus.GaugeVec
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cf_ddns_last_run_timestamp_seconds",
			Help: "Unix time the last run finished.",
		}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cf_ddns_last_run_success",
			Help: "Whether the last run finished without error (1) or not (0).",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cf_ddns_run_duration_seconds",
			Help: "Wall time of the last run.",
		}),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cf_ddns_records_total",
			Help: "Records handled by the last run, by action.",
		}, []string{"action"}),
	}
	r.reg.MustRegister(r.lastRun, r.success, r.duration, r.records)
	return r
}

// Observe replaces the gauges with the outcome of one run that started at start.
func (r *Recorder) Observe(start time.Time, results []ddns.Result, err error) {
	now := time.Now()
	r.lastRun.Set(float64(now.Unix()))
	r.duration.Set(now.Sub(start).Seconds())
	if err != nil {
		r.success.Set(0)
	} else {
		r.success.Set(1)
	}
	for _, a := range []ddns.Action{ddns.Unchanged, ddns.Updated, ddns.Created} {
		r.records.WithLabelValues(a.String()).Set(0)
	}
	for _, res := range results {
		r.records.WithLabelValues(res.Action.String()).Inc()
	}
}

// WriteFile atomically writes the gauges in the Prometheus text format.
func (r *Recorder) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
