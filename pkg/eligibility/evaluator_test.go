package eligibility

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/trialscreen-ai/platform/pkg/common/models"
)

func fptr(f float64) *float64 { return &f }
func iptr(i int) *int         { return &i }
func sptr(s string) *string   { return &s }

func unmarshal(data string, v interface{}) error {
	return json.Unmarshal([]byte(data), v)
}

func TestInclusionRangeBoundsAreInclusive(t *testing.T) {
	evaluator := NewEvaluator(Options{})
	criterion := models.Criterion{ID: "INC01", Text: "Age 18-75 years", Field: "age", Min: fptr(18), Max: fptr(75)}

	cases := []struct {
		name   string
		age    int
		status models.CriterionStatus
	}{
		{"at minimum", 18, models.StatusMet},
		{"at maximum", 75, models.StatusMet},
		{"inside range", 52, models.StatusMet},
		{"below minimum", 17, models.StatusNotMet},
		{"above maximum", 77, models.StatusNotMet},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			patient := models.PatientRecord{PatientID: "P100", Age: iptr(tc.age)}
			result := evaluator.EvaluateInclusion(criterion, patient)
			if result.Status != tc.status {
				t.Fatalf("age %d: expected %s, got %s (%s)", tc.age, tc.status, result.Status, result.Reason)
			}
		})
	}
}

func TestInclusionRangeReasonNamesBothValues(t *testing.T) {
	evaluator := NewEvaluator(Options{})
	criterion := models.Criterion{ID: "INC01", Text: "Age 18-75 years", Field: "age", Min: fptr(18), Max: fptr(75)}
	patient := models.PatientRecord{PatientID: "P100", Age: iptr(77)}

	result := evaluator.EvaluateInclusion(criterion, patient)
	if result.Status != models.StatusNotMet {
		t.Fatalf("expected NOT_MET, got %s", result.Status)
	}
	if !strings.Contains(result.Reason, "77") || !strings.Contains(result.Reason, "75") {
		t.Fatalf("expected reason to cite 77 and 75, got %q", result.Reason)
	}
}

func TestInclusionMissingValueIsUnknown(t *testing.T) {
	evaluator := NewEvaluator(Options{})
	criterion := models.Criterion{ID: "INC03", Text: "HbA1c between 7.0% and 10.0%", Field: "hba1c", Min: fptr(7), Max: fptr(10)}
	patient := models.PatientRecord{PatientID: "P100"}

	result := evaluator.EvaluateInclusion(criterion, patient)
	if result.Status != models.StatusUnknown {
		t.Fatalf("expected UNKNOWN for missing value, got %s", result.Status)
	}
	if result.Reason != "missing data" {
		t.Fatalf("unexpected reason: %q", result.Reason)
	}
}

func TestInclusionUnknownFieldIsUnknown(t *testing.T) {
	evaluator := NewEvaluator(Options{})
	criterion := models.Criterion{ID: "INC99", Text: "Serum unobtainium", Field: "unobtainium", Min: fptr(1)}
	patient := models.PatientRecord{PatientID: "P100", Age: iptr(40)}

	result := evaluator.EvaluateInclusion(criterion, patient)
	if result.Status != models.StatusUnknown {
		t.Fatalf("expected UNKNOWN for unknown field, got %s", result.Status)
	}
}

func TestInclusionCoercionFailureIsUnknown(t *testing.T) {
	evaluator := NewEvaluator(Options{})
	criterion := models.Criterion{ID: "INC05", Text: "Gender numeric", Field: "gender", Min: fptr(1)}
	patient := models.PatientRecord{PatientID: "P100", Gender: sptr("female")}

	result := evaluator.EvaluateInclusion(criterion, patient)
	if result.Status != models.StatusUnknown {
		t.Fatalf("expected UNKNOWN for non-numeric value, got %s", result.Status)
	}
	if result.Reason != "cannot convert to numeric value" {
		t.Fatalf("unexpected reason: %q", result.Reason)
	}
}

func TestInclusionExactValueMatch(t *testing.T) {
	evaluator := NewEvaluator(Options{})
	criterion := models.Criterion{ID: "INC02", Text: "Confirmed Type 2 Diabetes diagnosis", Field: "diagnosis", Value: sptr("Type 2 Diabetes")}

	matched := evaluator.EvaluateInclusion(criterion, models.PatientRecord{PatientID: "P1", Diagnosis: sptr("  Type 2 Diabetes ")})
	if matched.Status != models.StatusMet {
		t.Fatalf("expected MET for trimmed match, got %s (%s)", matched.Status, matched.Reason)
	}

	mismatched := evaluator.EvaluateInclusion(criterion, models.PatientRecord{PatientID: "P1", Diagnosis: sptr("Type 1 Diabetes")})
	if mismatched.Status != models.StatusNotMet {
		t.Fatalf("expected NOT_MET for mismatch, got %s", mismatched.Status)
	}
	if !strings.Contains(mismatched.Reason, "Type 1 Diabetes") || !strings.Contains(mismatched.Reason, "Type 2 Diabetes") {
		t.Fatalf("expected reason to cite observed and expected values, got %q", mismatched.Reason)
	}
}

func TestInclusionContainsMatchesSubstringsCaseInsensitively(t *testing.T) {
	evaluator := NewEvaluator(Options{})
	criterion := models.Criterion{ID: "INC06", Text: "On metformin therapy", Field: "current_medications", Contains: models.KeywordSet{"metformin"}}

	found := evaluator.EvaluateInclusion(criterion, models.PatientRecord{
		PatientID:          "P1",
		CurrentMedications: []string{"Metformin 1000mg x2", "Amlodipine 5mg"},
	})
	if found.Status != models.StatusMet {
		t.Fatalf("expected MET, got %s (%s)", found.Status, found.Reason)
	}

	missing := evaluator.EvaluateInclusion(criterion, models.PatientRecord{
		PatientID:          "P1",
		CurrentMedications: []string{"Amlodipine 5mg"},
	})
	if missing.Status != models.StatusNotMet {
		t.Fatalf("expected NOT_MET, got %s", missing.Status)
	}
}

func TestInclusionRangeTakesPrecedenceOverOtherPayloads(t *testing.T) {
	evaluator := NewEvaluator(Options{})
	// Malformed authoring: range and exact value on the same criterion. The
	// priority chain runs the range check only.
	criterion := models.Criterion{
		ID: "INC07", Text: "Age check", Field: "age",
		Min: fptr(18), Max: fptr(75), Value: sptr("52"),
	}
	result := evaluator.EvaluateInclusion(criterion, models.PatientRecord{PatientID: "P1", Age: iptr(80)})
	if result.Status != models.StatusNotMet {
		t.Fatalf("expected range check to run first, got %s (%s)", result.Status, result.Reason)
	}
}

func TestInclusionNoPayloadDefaultsByMode(t *testing.T) {
	criterion := models.Criterion{ID: "INC08", Text: "Diagnosis documented", Field: "diagnosis"}
	patient := models.PatientRecord{PatientID: "P1", Diagnosis: sptr("Type 2 Diabetes")}

	permissive := NewEvaluator(Options{}).EvaluateInclusion(criterion, patient)
	if permissive.Status != models.StatusMet {
		t.Fatalf("permissive mode: expected MET, got %s", permissive.Status)
	}

	strict := NewEvaluator(Options{Strict: true}).EvaluateInclusion(criterion, patient)
	if strict.Status != models.StatusUnknown {
		t.Fatalf("strict mode: expected UNKNOWN, got %s", strict.Status)
	}
}

func TestExclusionMissingPregnancyStatusIsClear(t *testing.T) {
	evaluator := NewEvaluator(Options{})
	criterion := models.Criterion{ID: "EXC01", Text: "Pregnancy or breastfeeding", Field: "pregnancy_status", Excludes: []string{"pregnant", "breastfeeding"}}
	patient := models.PatientRecord{PatientID: "P1"}

	result := evaluator.EvaluateExclusion(criterion, patient)
	if result.Status != models.StatusClear {
		t.Fatalf("expected CLEAR for unreported pregnancy status, got %s", result.Status)
	}
	if result.Reason != "no pregnancy reported" {
		t.Fatalf("unexpected reason: %q", result.Reason)
	}
}

func TestExclusionMissingValueIsUnknown(t *testing.T) {
	evaluator := NewEvaluator(Options{})
	criterion := models.Criterion{ID: "EXC05", Text: "Smoker", Field: "clinical_notes", Excludes: []string{"smoker"}}
	patient := models.PatientRecord{PatientID: "P1"}

	result := evaluator.EvaluateExclusion(criterion, patient)
	if result.Status != models.StatusUnknown {
		t.Fatalf("expected UNKNOWN, got %s", result.Status)
	}
}

func TestExclusionExcludesMembership(t *testing.T) {
	evaluator := NewEvaluator(Options{})
	criterion := models.Criterion{ID: "EXC01", Text: "Pregnancy or breastfeeding", Field: "pregnancy_status", Excludes: []string{"pregnant", "breastfeeding"}}

	excluded := evaluator.EvaluateExclusion(criterion, models.PatientRecord{PatientID: "P1", PregnancyStatus: sptr("pregnant")})
	if excluded.Status != models.StatusExcludes {
		t.Fatalf("expected EXCLUDES, got %s", excluded.Status)
	}

	clear := evaluator.EvaluateExclusion(criterion, models.PatientRecord{PatientID: "P1", PregnancyStatus: sptr("not pregnant")})
	if clear.Status != models.StatusClear {
		t.Fatalf("expected CLEAR, got %s (%s)", clear.Status, clear.Reason)
	}
}

func TestExclusionContainsDisqualifies(t *testing.T) {
	evaluator := NewEvaluator(Options{})
	criterion := models.Criterion{ID: "EXC03", Text: "Heart failure NYHA Class III or IV", Field: "comorbidities", Contains: models.KeywordSet{"NYHA III", "NYHA IV"}}

	excluded := evaluator.EvaluateExclusion(criterion, models.PatientRecord{
		PatientID:     "P1",
		Comorbidities: []string{"Heart failure NYHA III", "Hypertension"},
	})
	if excluded.Status != models.StatusExcludes {
		t.Fatalf("expected EXCLUDES, got %s", excluded.Status)
	}

	// NYHA II must not be swept up by the NYHA III keyword.
	clear := evaluator.EvaluateExclusion(criterion, models.PatientRecord{
		PatientID:     "P1",
		Comorbidities: []string{"Heart failure NYHA II"},
	})
	if clear.Status != models.StatusClear {
		t.Fatalf("expected CLEAR for NYHA II, got %s (%s)", clear.Status, clear.Reason)
	}
}

func TestEmptyListPolicies(t *testing.T) {
	criterion := models.Criterion{ID: "EXC02", Text: "Insulin treatment", Field: "current_medications", Contains: models.KeywordSet{"insulin"}}
	patient := models.PatientRecord{PatientID: "P1"}

	evaluated := NewEvaluator(Options{}).EvaluateExclusion(criterion, patient)
	if evaluated.Status != models.StatusClear {
		t.Fatalf("default policy: expected CLEAR for empty medication list, got %s", evaluated.Status)
	}

	asMissing := NewEvaluator(Options{EmptyListIsMissing: true}).EvaluateExclusion(criterion, patient)
	if asMissing.Status != models.StatusUnknown {
		t.Fatalf("missing policy: expected UNKNOWN for empty medication list, got %s", asMissing.Status)
	}

	inclusion := models.Criterion{ID: "INC06", Text: "On metformin therapy", Field: "current_medications", Contains: models.KeywordSet{"metformin"}}
	notMet := NewEvaluator(Options{}).EvaluateInclusion(inclusion, patient)
	if notMet.Status != models.StatusNotMet {
		t.Fatalf("default policy: expected NOT_MET for empty list on inclusion, got %s", notMet.Status)
	}
}

func TestKeywordSetUnmarshalAcceptsStringAndList(t *testing.T) {
	var c models.Criterion
	if err := unmarshal(`{"id":"EXC02","text":"Insulin","field":"current_medications","contains":"insulin"}`, &c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Contains) != 1 || c.Contains[0] != "insulin" {
		t.Fatalf("expected single keyword, got %v", c.Contains)
	}

	if err := unmarshal(`{"id":"EXC03","text":"NYHA","field":"comorbidities","contains":["NYHA III","NYHA IV"]}`, &c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Contains) != 2 {
		t.Fatalf("expected two keywords, got %v", c.Contains)
	}
}
