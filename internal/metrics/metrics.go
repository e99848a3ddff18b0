// Package metrics exports pipeline activity as Prometheus metrics.
//
// Metrics live on a private registry so that tests and multiple pipelines
// do not collide on the default one. Expose them with Handler or Serve:
//
//	m := metrics.New()
//	go m.Serve(ctx, ":9100", logger)
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/luhtfiimanal/go-serial-stream/internal/convert"
	"github.com/luhtfiimanal/go-serial-stream/internal/pipeline"
)

const namespace = "serialstream"

// Metrics implements pipeline.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	BytesRead prometheus.Counter
	Words     prometheus.Counter
	Commas    prometheus.Counter
	Lines     prometheus.Counter
	Timeouts  prometheus.Counter
	Reports   prometheus.Counter

	// Rate holds the last reported per-second rate, labelled by counter.
	Rate *prometheus.GaugeVec
}

var _ pipeline.Recorder = (*Metrics)(nil)

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BytesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_read_total",
			Help:      "Raw bytes read from the serial device",
		}),
		Words: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "words_total",
			Help:      "Spaces seen in raw mode",
		}),
		Commas: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commas_total",
			Help:      "Commas seen in raw mode",
		}),
		Lines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_total",
			Help:      "Newlines seen in raw mode",
		}),
		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "read_timeouts_total",
			Help:      "Reads that returned no data within the read timeout",
		}),
		Reports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Rate reports emitted",
		}),
		Rate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rate",
			Help:      "Per-second rate from the last report window",
		}, []string{"counter"}),
	}
	m.registry.MustRegister(m.BytesRead, m.Words, m.Commas, m.Lines, m.Timeouts, m.Reports, m.Rate)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveChunk(n int, c convert.Counts) {
	m.BytesRead.Add(float64(n))
	m.Words.Add(float64(c.Words))
	m.Commas.Add(float64(c.Commas))
	m.Lines.Add(float64(c.Lines))
}

func (m *Metrics) ObserveTimeout() {
	m.Timeouts.Inc()
}

func (m *Metrics) ObserveReport(r pipeline.Rates) {
	m.Reports.Inc()
	m.Rate.WithLabelValues("words").Set(r.Words)
	m.Rate.WithLabelValues("commas").Set(r.Commas)
	m.Rate.WithLabelValues("bytes").Set(r.Bytes)
	m.Rate.WithLabelValues("lines").Set(r.Lines)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info("metrics listening", zap.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
