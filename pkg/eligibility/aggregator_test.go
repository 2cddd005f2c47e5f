package eligibility

import (
	"testing"

	"github.com/trialscreen-ai/platform/pkg/common/models"
)

func result(id, field string, status models.CriterionStatus) models.CriterionResult {
	return models.CriterionResult{CriterionID: id, CriterionText: id, Field: field, Status: status}
}

func TestAggregatePriorityOrder(t *testing.T) {
	cases := []struct {
		name      string
		inclusion []models.CriterionResult
		exclusion []models.CriterionResult
		decision  models.Decision
	}{
		{
			name:      "all met and clear",
			inclusion: []models.CriterionResult{result("INC01", "age", models.StatusMet)},
			exclusion: []models.CriterionResult{result("EXC01", "pregnancy_status", models.StatusClear)},
			decision:  models.DecisionEligible,
		},
		{
			name:      "inclusion not met",
			inclusion: []models.CriterionResult{result("INC01", "age", models.StatusNotMet)},
			exclusion: []models.CriterionResult{result("EXC01", "pregnancy_status", models.StatusClear)},
			decision:  models.DecisionIneligible,
		},
		{
			name:      "exclusion triggered",
			inclusion: []models.CriterionResult{result("INC01", "age", models.StatusMet)},
			exclusion: []models.CriterionResult{result("EXC02", "current_medications", models.StatusExcludes)},
			decision:  models.DecisionIneligible,
		},
		{
			name:      "unknown only",
			inclusion: []models.CriterionResult{result("INC03", "hba1c", models.StatusUnknown)},
			exclusion: []models.CriterionResult{result("EXC01", "pregnancy_status", models.StatusClear)},
			decision:  models.DecisionUncertain,
		},
		{
			name: "definite failure beats uncertainty",
			inclusion: []models.CriterionResult{
				result("INC03", "hba1c", models.StatusUnknown),
				result("INC01", "age", models.StatusNotMet),
			},
			exclusion: []models.CriterionResult{result("EXC04", "comorbidities", models.StatusUnknown)},
			decision:  models.DecisionIneligible,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision, _ := Aggregate(tc.inclusion, tc.exclusion)
			if decision != tc.decision {
				t.Fatalf("expected %s, got %s", tc.decision, decision)
			}
		})
	}
}

func TestAggregateCollectsMissingDataAcrossBothSides(t *testing.T) {
	inclusion := []models.CriterionResult{
		result("INC03", "hba1c", models.StatusUnknown),
		result("INC04", "egfr", models.StatusUnknown),
	}
	exclusion := []models.CriterionResult{
		result("EXC04", "comorbidities", models.StatusUnknown),
	}

	decision, missing := Aggregate(inclusion, exclusion)
	if decision != models.DecisionUncertain {
		t.Fatalf("expected UNCERTAIN, got %s", decision)
	}
	if len(missing) != 3 {
		t.Fatalf("expected 3 missing fields, got %v", missing)
	}
}

func TestAggregateDeduplicatesMissingData(t *testing.T) {
	inclusion := []models.CriterionResult{
		result("INC03", "hba1c", models.StatusUnknown),
		result("INC05", "hba1c", models.StatusUnknown),
	}

	_, missing := Aggregate(inclusion, nil)
	if len(missing) != 1 || missing[0] != "hba1c" {
		t.Fatalf("expected deduplicated [hba1c], got %v", missing)
	}
}

func TestAggregateEmptyInputsAreEligible(t *testing.T) {
	decision, missing := Aggregate(nil, nil)
	if decision != models.DecisionEligible {
		t.Fatalf("expected ELIGIBLE for empty criteria, got %s", decision)
	}
	if len(missing) != 0 {
		t.Fatalf("expected no missing data, got %v", missing)
	}
}
