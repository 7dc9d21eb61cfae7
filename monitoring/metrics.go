package monitoring

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"intradaytick/utils"
)

var (
	MemoryUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "intradaytick_memory_bytes",
		Help: "Current memory usage in bytes",
	})

	GoroutineCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "intradaytick_goroutines",
		Help: "Current number of goroutines",
	})
)

// StartMetricsCollection samples runtime gauges every five seconds until ctx
// is done.
func StartMetricsCollection(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		collectSystemMetrics()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				collectSystemMetrics()
			}
		}
	}()
}

func collectSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	MemoryUsage.Set(float64(m.Alloc))
	GoroutineCount.Set(float64(runtime.NumGoroutine()))
}

// NewHandler serves /health and /metrics behind the request logger.
func NewHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthCheckHandler)
	mux.Handle("/metrics", promhttp.Handler())
	return utils.RequestLogger(mux)
}

// StartServer listens on addr in the background. The returned server is
// shut down by the caller.
func StartServer(addr string) *http.Server {
	server := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Error(err, "Metrics server error", "addr", addr)
		}
	}()

	utils.Logger.Infow("Metrics server listening", "addr", addr)
	return server
}
