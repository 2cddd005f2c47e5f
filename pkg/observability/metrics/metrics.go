// Package metrics exposes screening counters in Prometheus text format
// without pulling in a metrics client library.
package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/trialscreen-ai/platform/pkg/common/models"
)

var (
	screeningsEligible   atomic.Int64
	screeningsIneligible atomic.Int64
	screeningsUncertain  atomic.Int64
	explanationFallbacks atomic.Int64
	batchJobsProcessed   atomic.Int64
)

func ObserveDecision(decision models.Decision) {
	switch decision {
	case models.DecisionEligible:
		screeningsEligible.Add(1)
	case models.DecisionIneligible:
		screeningsIneligible.Add(1)
	case models.DecisionUncertain:
		screeningsUncertain.Add(1)
	}
}

func ObserveExplanationFallback() {
	explanationFallbacks.Add(1)
}

func ObserveBatchJob() {
	batchJobsProcessed.Add(1)
}

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP trialscreen_screenings_total Screening evaluations completed, by decision.\n")
	fmt.Fprintf(w, "# TYPE trialscreen_screenings_total counter\n")
	fmt.Fprintf(w, "trialscreen_screenings_total{decision=\"eligible\"} %d\n", screeningsEligible.Load())
	fmt.Fprintf(w, "trialscreen_screenings_total{decision=\"ineligible\"} %d\n", screeningsIneligible.Load())
	fmt.Fprintf(w, "trialscreen_screenings_total{decision=\"uncertain\"} %d\n", screeningsUncertain.Load())

	fmt.Fprintf(w, "# HELP trialscreen_explanation_fallbacks_total Explanations served from the deterministic fallback.\n")
	fmt.Fprintf(w, "# TYPE trialscreen_explanation_fallbacks_total counter\n")
	fmt.Fprintf(w, "trialscreen_explanation_fallbacks_total %d\n", explanationFallbacks.Load())

	fmt.Fprintf(w, "# HELP trialscreen_batch_jobs_processed_total Batch screening jobs completed by the worker.\n")
	fmt.Fprintf(w, "# TYPE trialscreen_batch_jobs_processed_total counter\n")
	fmt.Fprintf(w, "trialscreen_batch_jobs_processed_total %d\n", batchJobsProcessed.Load())
}

func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WritePrometheus(w)
	}
}
