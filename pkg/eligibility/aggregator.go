package eligibility

import (
	"github.com/trialscreen-ai/platform/pkg/common/models"
)

// Aggregate combines all per-criterion results into a final decision plus the
// deduplicated set of fields whose values were missing or unusable.
//
// Priority order, first match wins:
//  1. any inclusion NOT_MET        -> INELIGIBLE
//  2. any exclusion EXCLUDES       -> INELIGIBLE
//  3. any UNKNOWN in either list   -> UNCERTAIN
//  4. otherwise                    -> ELIGIBLE
//
// A definite disqualification therefore always beats uncertainty.
func Aggregate(inclusionResults, exclusionResults []models.CriterionResult) (models.Decision, []string) {
	missing := collectMissingData(inclusionResults, exclusionResults)

	for _, r := range inclusionResults {
		if r.Status == models.StatusNotMet {
			return models.DecisionIneligible, missing
		}
	}
	for _, r := range exclusionResults {
		if r.Status == models.StatusExcludes {
			return models.DecisionIneligible, missing
		}
	}
	if len(missing) > 0 {
		return models.DecisionUncertain, missing
	}
	return models.DecisionEligible, missing
}

// collectMissingData gathers a field identifier for every UNKNOWN result,
// deduplicated, in first-seen order for deterministic output.
func collectMissingData(inclusionResults, exclusionResults []models.CriterionResult) []string {
	missing := make([]string, 0)
	seen := make(map[string]struct{})
	appendUnknown := func(results []models.CriterionResult) {
		for _, r := range results {
			if r.Status != models.StatusUnknown {
				continue
			}
			key := r.Field
			if key == "" {
				key = r.CriterionText
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			missing = append(missing, key)
		}
	}
	appendUnknown(inclusionResults)
	appendUnknown(exclusionResults)
	return missing
}
