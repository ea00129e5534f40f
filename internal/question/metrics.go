package question

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizforge",
		Subsystem: "generation",
		Name:      "results_total",
		Help:      "Question sets returned, by source.",
	}, []string{"source"})

	completionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizforge",
		Subsystem: "generation",
		Name:      "completion_failures_total",
		Help:      "Failed completion calls, by failure kind.",
	}, []string{"kind"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizforge",
		Subsystem: "generation",
		Name:      "cache_lookups_total",
		Help:      "Generation cache lookups, by result.",
	}, []string{"result"})

	completionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "quizforge",
		Subsystem: "generation",
		Name:      "completion_seconds",
		Help:      "Latency of completion calls.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
	})

	parsedQuestions = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "quizforge",
		Subsystem: "generation",
		Name:      "parsed_questions",
		Help:      "Questions recovered from a completion, by parse strategy.",
		Buckets:   prometheus.LinearBuckets(0, 5, 6),
	}, []string{"strategy"})
)
