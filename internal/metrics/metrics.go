package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RoundsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memory_rounds_started_total",
		Help: "Rounds started, by difficulty.",
	}, []string{"difficulty"})

	RoundsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memory_rounds_completed_total",
		Help: "Rounds that reached the completed phase, by difficulty.",
	}, []string{"difficulty"})

	Flips = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memory_flips_total",
		Help: "Flip requests, by outcome (accepted/ignored).",
	}, []string{"outcome"})

	ResultsSaved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memory_results_saved_total",
		Help: "Round results persisted, by difficulty.",
	}, []string{"difficulty"})

	ResultSaveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "memory_result_save_failures_total",
		Help: "Round results that could not be persisted.",
	})

	RoundDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "memory_round_duration_seconds",
		Help:    "Time taken by completed rounds.",
		Buckets: []float64{5, 10, 20, 30, 45, 60, 90, 120, 180, 300},
	}, []string{"difficulty"})

	FailedAttempts = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "memory_failed_attempts",
		Help:    "Mismatched pairs per completed round.",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
	}, []string{"difficulty"})

	ActiveRounds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "memory_active_rounds",
		Help: "Engines currently held by the memory service.",
	})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "memory_rate_limited_total",
		Help: "Requests rejected by the rate limiter.",
	})
)
