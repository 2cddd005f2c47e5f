// Package eligibility implements the trial eligibility evaluation engine:
// per-criterion matching, decision aggregation, and the deterministic
// explanation fallback. The engine is pure and side-effect free; it produces
// identical results whether invoked from the HTTP layer, the batch worker,
// or a test.
package eligibility

import (
	"github.com/trialscreen-ai/platform/pkg/common/models"
)

// Engine is the single entry point for eligibility evaluation. The zero
// value is usable; there is no shared state and instances are safe for
// concurrent use.
type Engine struct {
	evaluator Evaluator
}

func NewEngine(opts Options) Engine {
	return Engine{evaluator: NewEvaluator(opts)}
}

// Evaluate runs every inclusion and exclusion criterion against the patient,
// in input order, and aggregates the results into a final decision.
// AIExplanation and Recommendation are left empty; filling them is the
// caller's responsibility.
func (e Engine) Evaluate(patient models.PatientRecord, inclusionCriteria, exclusionCriteria []models.Criterion) models.EligibilityResult {
	inclusionResults := make([]models.CriterionResult, 0, len(inclusionCriteria))
	for _, criterion := range inclusionCriteria {
		inclusionResults = append(inclusionResults, e.evaluator.EvaluateInclusion(criterion, patient))
	}

	exclusionResults := make([]models.CriterionResult, 0, len(exclusionCriteria))
	for _, criterion := range exclusionCriteria {
		exclusionResults = append(exclusionResults, e.evaluator.EvaluateExclusion(criterion, patient))
	}

	decision, missing := Aggregate(inclusionResults, exclusionResults)

	return models.EligibilityResult{
		Decision:         decision,
		InclusionResults: inclusionResults,
		ExclusionResults: exclusionResults,
		MissingData:      missing,
	}
}
