package dto

import "time"

// MetricsSnapshot is a compact JSON view of the service counters.
type MetricsSnapshot struct {
	RequestsTotal     uint64    `json:"requests_total"`
	CacheHitRatio     float64   `json:"cache_hit_ratio"`
	SweepRuns         uint64    `json:"sweep_runs"`
	SweepTransitioned uint64    `json:"sweep_transitioned"`
	SweepFailed       uint64    `json:"sweep_failed"`
	Goroutines        int       `json:"goroutines"`
	GeneratedAt       time.Time `json:"generated_at"`
}
