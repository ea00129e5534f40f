package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizforge",
		Subsystem: "session",
		Name:      "started_total",
		Help:      "Sessions started, by flow.",
	}, []string{"flow"})

	sessionsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizforge",
		Subsystem: "session",
		Name:      "completed_total",
		Help:      "Sessions completed, by flow.",
	}, []string{"flow"})

	answersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "quizforge",
		Subsystem: "session",
		Name:      "answers_total",
		Help:      "Recorded answers, by result.",
	}, []string{"result"})

	persistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "quizforge",
		Subsystem: "session",
		Name:      "persist_failures_total",
		Help:      "Completed sessions whose persister call failed.",
	})

	liveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "quizforge",
		Subsystem: "session",
		Name:      "live",
		Help:      "Sessions held by the manager.",
	})
)
