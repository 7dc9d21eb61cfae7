package monitoring

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"time"

	"intradaytick/metrics"
)

type HealthStatus struct {
	Status          string            `json:"status"`
	Uptime          string            `json:"uptime"`
	StartTime       time.Time         `json:"start_time"`
	MemoryUsage     uint64            `json:"memory_usage"`
	GoroutineCount  int               `json:"goroutine_count"`
	TicksWritten    uint64            `json:"ticks_written"`
	Errors          uint64            `json:"errors"`
	LastTick        *time.Time        `json:"last_tick,omitempty"`
	ComponentStatus map[string]string `json:"component_status"`
}

var (
	startTime    = time.Now()
	mu           sync.RWMutex
	healthChecks = make(map[string]func() bool)
)

func RegisterHealthCheck(name string, check func() bool) {
	mu.Lock()
	defer mu.Unlock()
	healthChecks[name] = check
}

func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	ticks, errs, last, _ := metrics.GetStats()
	status := HealthStatus{
		Status:          "ok",
		Uptime:          time.Since(startTime).String(),
		StartTime:       startTime,
		MemoryUsage:     m.Alloc,
		GoroutineCount:  runtime.NumGoroutine(),
		TicksWritten:    ticks,
		Errors:          errs,
		ComponentStatus: make(map[string]string),
	}
	if !last.IsZero() {
		status.LastTick = &last
	}

	mu.RLock()
	for name, check := range healthChecks {
		if check() {
			status.ComponentStatus[name] = "healthy"
		} else {
			status.ComponentStatus[name] = "unhealthy"
			status.Status = "degraded"
		}
	}
	mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if status.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(status)
}
