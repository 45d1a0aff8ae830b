package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Measurements groups the prometheus instruments of the central node.
type Measurements struct {
	syncDuration       prometheus.Histogram
	transfersConfirmed prometheus.Counter
	transfersFailed    prometheus.Counter
}

// NewMeasurements creates and registers the instruments.
func NewMeasurements() *Measurements {
	return &Measurements{
		syncDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "pecunia_sync_duration_seconds",
			Help:    "Duration of one reconciled sync batch",
			Buckets: prometheus.DefBuckets,
		}),
		transfersConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pecunia_transfers_confirmed_total",
			Help: "The total number of confirmed offline transfers",
		}),
		transfersFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "pecunia_transfers_failed_total",
			Help: "The total number of rejected offline transfers",
		}),
	}
}

// MeasureSyncDuration records the duration of one sync batch.
func (m *Measurements) MeasureSyncDuration(start time.Time) {
	m.syncDuration.Observe(time.Since(start).Seconds())
}

// AddConfirmed counts confirmed transfers of a batch.
func (m *Measurements) AddConfirmed(n int) {
	m.transfersConfirmed.Add(float64(n))
}

// AddFailed counts rejected transfers of a batch.
func (m *Measurements) AddFailed(n int) {
	m.transfersFailed.Add(float64(n))
}

// Run starts the server with prometheus telemetry endpoint.
// This function blocks. To stop cancel ctx.
func Run(ctx context.Context, cancel context.CancelFunc, port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

	var err error
	go func() {
		if err = srv.ListenAndServe(); err != nil {
			cancel()
			return
		}
	}()

	<-ctx.Done()

	err = srv.Shutdown(ctx)
	return err
}
