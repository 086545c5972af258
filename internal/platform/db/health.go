package db

import (
	"context"
	"time"
)

// Pinger is the minimal pool surface the health check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports the database connectivity status.
type Health struct {
	Status    string        `json:"status"`
	Latency   time.Duration `json:"latency_ns"`
	LatencyMS float64       `json:"latency_ms"`
	Error     string        `json:"error,omitempty"`
}

// Check pings the database with a short timeout and reports the outcome.
func Check(ctx context.Context, p Pinger) Health {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := p.Ping(ctx)
	elapsed := time.Since(start)

	h := Health{Status: "ok", Latency: elapsed, LatencyMS: float64(elapsed.Microseconds()) / 1000}
	if err != nil {
		h.Status = "unavailable"
		h.Error = err.Error()
	}
	return h
}
