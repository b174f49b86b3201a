package command

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricDispatch = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shellpane",
		Name:      "dispatch_total",
		Help:      "Number of dispatched console lines by outcome.",
	}, []string{"outcome"})
	metricCandidates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shellpane",
		Name:      "discovery_candidates_total",
		Help:      "Number of command candidates seen during discovery by status.",
	}, []string{"status"})
)

// Dispatch outcomes used as metric labels and in the dispatch log.
const (
	outcomeEmpty    = "empty"
	outcomeUnknown  = "unknown"
	outcomeOK       = "ok"
	outcomeNonZero  = "nonzero"
	outcomeError    = "error"
	outcomeTimeout  = "timeout"
	outcomeCanceled = "canceled"
	outcomeBusy     = "busy"
)

func recordDispatch(outcome string) {
	metricDispatch.WithLabelValues(outcome).Inc()
}

func recordCandidate(status Status) {
	metricCandidates.WithLabelValues(string(status)).Inc()
}
