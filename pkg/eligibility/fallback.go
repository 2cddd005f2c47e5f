package eligibility

import (
	"strings"

	"github.com/trialscreen-ai/platform/pkg/common/models"
)

// Deterministic explanation templates, one per decision.
const (
	explanationEligible   = "The patient meets all inclusion criteria and is not disqualified by any exclusion criterion."
	explanationIneligible = "The patient does not meet all inclusion criteria or is disqualified by an exclusion criterion."
	explanationUncertain  = "Eligibility cannot be determined because required data is missing."

	recommendationEligible   = "Schedule a comprehensive intake visit with the patient."
	recommendationIneligible = "Do not proceed with recruitment for this trial."
	recommendationUncertain  = "Complete the missing data before making a final decision."
)

// FallbackExplain produces a deterministic explanation and recommendation
// from an eligibility result. It is used whenever the AI explanation service
// is disabled, unreachable, or returns an error, so screening never blocks
// on an external collaborator. Same input always yields the same output.
func FallbackExplain(result models.EligibilityResult) (string, string) {
	var explanation, recommendation string
	switch result.Decision {
	case models.DecisionEligible:
		explanation = explanationEligible
		recommendation = recommendationEligible
	case models.DecisionIneligible:
		explanation = explanationIneligible
		recommendation = recommendationIneligible
	case models.DecisionUncertain:
		explanation = explanationUncertain
		recommendation = recommendationUncertain
	}

	switch result.Decision {
	case models.DecisionIneligible:
		if notMet := criterionTexts(result.InclusionResults, models.StatusNotMet); len(notMet) > 0 {
			explanation += " Unmet inclusion criteria: " + strings.Join(notMet, "; ") + "."
		}
		if excludes := criterionTexts(result.ExclusionResults, models.StatusExcludes); len(excludes) > 0 {
			explanation += " Disqualifying exclusion criteria: " + strings.Join(excludes, "; ") + "."
		}
	case models.DecisionUncertain:
		if len(result.MissingData) > 0 {
			explanation += " Missing data: " + strings.Join(result.MissingData, "; ") + "."
		}
	}

	return explanation, recommendation
}

func criterionTexts(results []models.CriterionResult, status models.CriterionStatus) []string {
	var texts []string
	for _, r := range results {
		if r.Status == status {
			texts = append(texts, r.CriterionText)
		}
	}
	return texts
}
