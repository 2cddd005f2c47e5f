package eligibility

import (
	"strings"
	"testing"

	"github.com/trialscreen-ai/platform/pkg/common/models"
)

func TestFallbackExplainEligible(t *testing.T) {
	explanation, recommendation := FallbackExplain(models.EligibilityResult{Decision: models.DecisionEligible})
	if explanation != explanationEligible {
		t.Fatalf("unexpected explanation: %q", explanation)
	}
	if recommendation != recommendationEligible {
		t.Fatalf("unexpected recommendation: %q", recommendation)
	}
}

func TestFallbackExplainIneligibleListsFailedCriteria(t *testing.T) {
	res := models.EligibilityResult{
		Decision: models.DecisionIneligible,
		InclusionResults: []models.CriterionResult{
			{CriterionID: "INC04", CriterionText: "eGFR > 45 mL/min/1.73m²", Field: "egfr", Status: models.StatusNotMet},
		},
		ExclusionResults: []models.CriterionResult{
			{CriterionID: "EXC02", CriterionText: "Insulin treatment in the last 3 months", Field: "current_medications", Status: models.StatusExcludes},
		},
	}

	explanation, recommendation := FallbackExplain(res)
	if !strings.Contains(explanation, "eGFR > 45") {
		t.Fatalf("expected failed inclusion criterion in explanation, got %q", explanation)
	}
	if !strings.Contains(explanation, "Insulin treatment") {
		t.Fatalf("expected triggering exclusion criterion in explanation, got %q", explanation)
	}
	if recommendation != recommendationIneligible {
		t.Fatalf("unexpected recommendation: %q", recommendation)
	}
}

func TestFallbackExplainUncertainListsMissingData(t *testing.T) {
	res := models.EligibilityResult{
		Decision:    models.DecisionUncertain,
		MissingData: []string{"hba1c", "egfr"},
	}

	explanation, recommendation := FallbackExplain(res)
	if !strings.Contains(explanation, "hba1c") || !strings.Contains(explanation, "egfr") {
		t.Fatalf("expected missing fields in explanation, got %q", explanation)
	}
	if recommendation != recommendationUncertain {
		t.Fatalf("unexpected recommendation: %q", recommendation)
	}
}

func TestFallbackExplainIsDeterministic(t *testing.T) {
	res := models.EligibilityResult{
		Decision: models.DecisionIneligible,
		InclusionResults: []models.CriterionResult{
			{CriterionID: "INC01", CriterionText: "Age 18-75 years", Field: "age", Status: models.StatusNotMet},
		},
	}

	e1, r1 := FallbackExplain(res)
	for i := 0; i < 10; i++ {
		e2, r2 := FallbackExplain(res)
		if e1 != e2 || r1 != r2 {
			t.Fatalf("fallback output changed between identical calls")
		}
	}
}
