package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "board",
		Subsystem: "gateway",
		Name:      "requests_total",
		Help:      "Outbound API requests by method and status class.",
	}, []string{"method", "status"})

	GatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "board",
		Subsystem: "gateway",
		Name:      "request_duration_seconds",
		Help:      "Outbound API request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	StoreMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "board",
		Subsystem: "store",
		Name:      "mutations_total",
		Help:      "Entity store mutations by collection and outcome.",
	}, []string{"collection", "outcome"})

	StoreConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "board",
		Subsystem: "store",
		Name:      "cas_conflicts_total",
		Help:      "Compare-and-swap conflicts that forced a re-apply.",
	}, []string{"collection"})

	SideEffectFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "board",
		Name:      "side_effect_failures_total",
		Help:      "Best-effort side effects (view count, events) that failed.",
	}, []string{"kind"})
)

// ServeMetrics expose /metrics jusqu'à l'annulation du contexte. Adresse vide = désactivé.
func ServeMetrics(ctx context.Context, addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		slog.Info("📈 Metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
