package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every casegraph collector. It is separate from the global
// default registry so tests can gather it without interference.
var Registry = prometheus.NewRegistry()

var (
	// GatewayFetches counts gateway calls.
	// Labels: op (full, project, search, projects), outcome (ok, empty, error)
	GatewayFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "casegraph",
		Subsystem: "gateway",
		Name:      "fetch_total",
		Help:      "Total graph fetches by operation and outcome",
	}, []string{"op", "outcome"})

	// StaleResults counts fetch results discarded because a newer request
	// was issued before they arrived.
	StaleResults = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "casegraph",
		Name:      "stale_results_total",
		Help:      "Fetch results dropped by last-request-wins sequencing",
	})

	// OperationSeconds times each pipeline stage. Fed by TimingMetric.
	OperationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "casegraph",
		Name:      "operation_duration_seconds",
		Help:      "Pipeline stage duration in seconds",
		Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.2, 0.3, 0.5, 1, 2},
	}, []string{"stage"})

	// SnapshotNodes tracks the node count of the committed snapshot.
	SnapshotNodes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "casegraph",
		Subsystem: "view",
		Name:      "snapshot_nodes",
		Help:      "Node count of the currently displayed snapshot",
	})
)

func init() {
	Registry.MustRegister(
		GatewayFetches,
		StaleResults,
		OperationSeconds,
		SnapshotNodes,
		collectors.NewGoCollector(),
	)
}

// Serve exposes Registry on addr at /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
