// Package metrics exposes run progress as prometheus collectors.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"instacomments/pkg/comments"
)

// Metrics bundles the collectors of one run. It is both a comments.ProgressSink
// and a request observer for the instagram client.
type Metrics struct {
	PagesFetched       prometheus.Counter
	CommentsCollected  prometheus.Gauge
	ReplyWarnings      prometheus.Counter
	RequestsTotal      *prometheus.CounterVec
	RequestDurationSec *prometheus.HistogramVec
	RunSuccess         prometheus.Gauge
	LastRunTimestamp   prometheus.Gauge

	registry *prometheus.Registry
}

func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		PagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "instacomments_pages_fetched_total",
			Help: "Total number of parent comment pages fetched.",
		}),
		CommentsCollected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "instacomments_comments_collected",
			Help: "Number of entries collected so far in the current run.",
		}),
		ReplyWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "instacomments_reply_warnings_total",
			Help: "Total number of parents whose replies were fetched only partially.",
		}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "instacomments_requests_total",
			Help: "Total number of GraphQL requests by stream and outcome.",
		}, []string{"stream", "outcome"}),
		RequestDurationSec: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "instacomments_request_duration_seconds",
			Help:    "GraphQL request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"stream"}),
		RunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "instacomments_run_success",
			Help: "1 when the last run finished without a fatal error, 0 otherwise.",
		}),
		LastRunTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "instacomments_last_run_timestamp_seconds",
			Help: "Unix time at which the last run finished.",
		}),
		registry: registry,
	}

	registry.MustRegister(
		m.PagesFetched,
		m.CommentsCollected,
		m.ReplyWarnings,
		m.RequestsTotal,
		m.RequestDurationSec,
		m.RunSuccess,
		m.LastRunTimestamp,
	)

	return m
}

func (m *Metrics) OnPage(p comments.Progress) {
	m.PagesFetched.Inc()
	m.CommentsCollected.Set(float64(p.Comments))
}

func (m *Metrics) OnWarning(comments.Warning) {
	m.ReplyWarnings.Inc()
}

func (m *Metrics) OnDone(p comments.Progress, err error) {
	m.CommentsCollected.Set(float64(p.Comments))
	if err != nil {
		m.RunSuccess.Set(0)
	} else {
		m.RunSuccess.Set(1)
	}
	m.LastRunTimestamp.SetToCurrentTime()
}

// ObserveRequest records one finished request
func (m *Metrics) ObserveRequest(stream comments.Stream, outcome string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(string(stream), outcome).Inc()
	m.RequestDurationSec.WithLabelValues(string(stream)).Observe(duration.Seconds())
}

// WriteTextfile writes the registry in text exposition format, e.g. for the
// node_exporter textfile collector
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
