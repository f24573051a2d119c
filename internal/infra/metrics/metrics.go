// Package metrics provides Prometheus instrumentation for the engine.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	zlog "github.com/rs/zerolog/log"
)

const namespace = "soundbridge"

// Transition results.
const (
	ResultCompleted = "completed"
	ResultRejected  = "rejected"
	ResultCancelled = "cancelled"
)

// Metrics holds every collector exported by the engine.
type Metrics struct {
	CacheHits      prometheus.Counter
	CacheMisses    prometheus.Counter
	CacheEvictions prometheus.Counter
	CacheBytes     prometheus.Gauge
	CacheEntries   prometheus.Gauge
	LoadErrors     prometheus.Counter
	LoadDuration   prometheus.Histogram

	ResolveRequests *prometheus.CounterVec // resolver, result

	Transitions      *prometheus.CounterVec // result
	PlaybackState    *prometheus.GaugeVec   // state
	SessionSaveFails prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "hits_total",
			Help: "Buffer cache lookups served from memory.",
		}),
		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "misses_total",
			Help: "Buffer cache lookups that required a load.",
		}),
		CacheEvictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "evictions_total",
			Help: "Buffers evicted to stay within the byte limit.",
		}),
		CacheBytes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "cache", Name: "bytes",
			Help: "Decoded PCM bytes held by the buffer cache.",
		}),
		CacheEntries: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "cache", Name: "entries",
			Help: "Buffers held by the buffer cache.",
		}),
		LoadErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache", Name: "load_errors_total",
			Help: "Buffer loads that failed to fetch or decode.",
		}),
		LoadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "cache", Name: "load_duration_seconds",
			Help:    "Time to fetch and decode one buffer.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		ResolveRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "storage", Name: "resolve_requests_total",
			Help: "Storage URL resolutions by resolver and result.",
		}, []string{"resolver", "result"}),
		Transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "playback", Name: "transitions_total",
			Help: "Bridge transitions by result.",
		}, []string{"result"}),
		PlaybackState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "playback", Name: "state",
			Help: "1 for the current playback state, 0 otherwise.",
		}, []string{"state"}),
		SessionSaveFails: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "session", Name: "save_failures_total",
			Help: "Session saves that failed after all retries.",
		}),
	}
}

// NewNop returns collectors registered on a private registry.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// SetState marks state as the only active playback state among states.
func (m *Metrics) SetState(state string, states []string) {
	for _, s := range states {
		v := 0.0
		if s == state {
			v = 1
		}
		m.PlaybackState.WithLabelValues(s).Set(v)
	}
}

// Serve exposes g on addr at /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, g prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("metrics listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "metrics server failed")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "failed to shut down metrics server")
		}
		return nil
	}
}
