package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticksWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intradaytick_ticks_written_total",
		Help: "Tick rows appended to CSV files, by event type",
	}, []string{"event_type"})

	filesOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intradaytick_csv_files_opened_total",
		Help: "CSV files opened for appending",
	})

	eventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intradaytick_events_total",
		Help: "Session events received, by event type",
	}, []string{"event_type"})

	responseErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intradaytick_response_errors_total",
		Help: "Response messages carrying a responseError, by category",
	}, []string{"category"})

	sinkErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intradaytick_sink_errors_total",
		Help: "Failed secondary sink inserts",
	})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "intradaytick_request_duration_seconds",
		Help:    "Time from sending the request to the final response",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	processedTicks uint64
	errorCount     uint64
	lastProcessed  atomic.Int64
	startTime      = time.Now()
)

func RecordTickWritten(eventType string) {
	atomic.AddUint64(&processedTicks, 1)
	ticksWritten.WithLabelValues(eventType).Inc()
	lastProcessed.Store(time.Now().UnixNano())
}

func RecordFileOpened() {
	filesOpened.Inc()
}

func RecordEvent(eventType string) {
	eventsProcessed.WithLabelValues(eventType).Inc()
}

func RecordResponseError(category string) {
	atomic.AddUint64(&errorCount, 1)
	responseErrors.WithLabelValues(category).Inc()
}

func RecordSinkError() {
	atomic.AddUint64(&errorCount, 1)
	sinkErrors.Inc()
}

func RecordRequestDuration(d time.Duration) {
	requestDuration.Observe(d.Seconds())
}

// GetStats returns ticks written, errors, time of the last tick and uptime.
func GetStats() (uint64, uint64, time.Time, time.Duration) {
	var last time.Time
	if ns := lastProcessed.Load(); ns != 0 {
		last = time.Unix(0, ns)
	}
	return atomic.LoadUint64(&processedTicks),
		atomic.LoadUint64(&errorCount),
		last,
		time.Since(startTime)
}
