package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	MetricsNamespace = "metatests"
)

var (
	Debug                bool = false
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Result of browser test runs",
	}, []string{
		"run_id",
		"result",
	})

	browserTestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "browser_tests_total",
		Help:      "Total number of tests reported by a browser session",
	}, []string{
		"browser",
		"run_id",
	})

	browserSessionsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "browser_sessions_failed",
		Help:      "Number of browser sessions that completed with a failure",
	}, []string{
		"browser",
		"run_id",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of the whole browser test run",
	}, []string{
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

// RecordBrowserSession records the outcome of a single browser session.
func RecordBrowserSession(browser string, runID string, total int, failed bool) {
	if Debug {
		log.Debug("metric inc",
			"m", "browser_tests_total",
			"browser", browser,
			"run_id", runID,
			"total", total,
			"failed", failed)
	}
	browserTestsTotal.WithLabelValues(browser, runID).Add(float64(total))
	if failed {
		browserSessionsFailed.WithLabelValues(browser, runID).Inc()
	}
}

// RecordRun records the aggregate result of a complete run.
func RecordRun(runID string, result string, duration time.Duration) {
	runResults.WithLabelValues(runID, result).Set(1)
	runDuration.WithLabelValues(runID).Set(duration.Seconds())
}
