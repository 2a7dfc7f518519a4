package warehouse

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	statementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lakehouse_statements_total",
			Help: "Total number of warehouse statements by executor and outcome.",
		},
		[]string{"executor", "outcome"},
	)

	statementPolls = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lakehouse_statement_polls",
			Help:    "Status polls issued per statement before it left PENDING/RUNNING.",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 40, 60},
		},
	)

	statementDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lakehouse_statement_duration_seconds",
			Help:    "Wall-clock time to execute and materialize a statement.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 180},
		},
		[]string{"executor"},
	)
)

func init() {
	prometheus.MustRegister(statementsTotal, statementPolls, statementDurationSeconds)
}

// outcome maps an execution error to a metric label.
func outcome(err error) string {
	switch {
	case err == nil:
		return "succeeded"
	case errors.Is(err, ErrTimeoutExceeded):
		return "timeout"
	case errors.Is(err, ErrSubmissionFailed):
		return "submission_failed"
	case errors.Is(err, ErrQueryExecutionFailed):
		return "failed"
	default:
		return "error"
	}
}

func observeStatement(executor string, err error, elapsed time.Duration) {
	statementsTotal.WithLabelValues(executor, outcome(err)).Inc()
	statementDurationSeconds.WithLabelValues(executor).Observe(elapsed.Seconds())
}
