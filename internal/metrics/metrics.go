// Package metrics exposes Prometheus counters for journal streams.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/setevik/journalstream/internal/journal"
)

const namespace = "journalstream"

// Metrics holds the collectors for every observed stream. It uses its own
// registry so the Go runtime collectors are not exported.
type Metrics struct {
	registry     *prometheus.Registry
	records      prometheus.Counter
	decodeErrors prometheus.Counter
	streamErrors prometheus.Counter
	exits        *prometheus.CounterVec
	active       prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Journal records decoded and delivered.",
		}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Output lines that could not be decoded.",
		}),
		streamErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_errors_total",
			Help:      "Spawn failures and abnormal process exits.",
		}),
		exits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_exited_total",
			Help:      "Streams that terminated, by outcome.",
		}, []string{"outcome"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "streams_active",
			Help:      "Streams observed that have not terminated yet.",
		}),
	}
	m.registry.MustRegister(m.records, m.decodeErrors, m.streamErrors, m.exits, m.active)
	return m
}

// Observe subscribes to stream. Call it before Start so the stream is
// counted as active from the beginning.
func (m *Metrics) Observe(stream *journal.Stream) func() {
	m.active.Inc()

	failed := false
	ended := false
	finish := func() {
		if ended {
			return
		}
		ended = true
		m.active.Dec()
		outcome := "clean"
		if failed {
			outcome = "failed"
		}
		m.exits.WithLabelValues(outcome).Inc()
	}

	return stream.Subscribe(func(sig journal.Signal) {
		switch sig.Kind {
		case journal.SignalMessage:
			m.records.Inc()
		case journal.SignalError:
			var decodeErr *journal.DecodeError
			if errors.As(sig.Err, &decodeErr) {
				m.decodeErrors.Inc()
				return
			}
			m.streamErrors.Inc()
			failed = true
			// A spawn failure is never followed by an exit signal.
			var spawnErr *journal.SpawnError
			if errors.As(sig.Err, &spawnErr) {
				finish()
			}
		case journal.SignalExit:
			finish()
		}
	})
}

// Gatherer returns the registry backing Handler.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
