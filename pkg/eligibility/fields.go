package eligibility

import (
	"strings"

	"github.com/trialscreen-ai/platform/pkg/common/models"
)

// fieldAccessor resolves one patient attribute. The second return value is
// false when the attribute was never recorded for the patient.
type fieldAccessor func(p models.PatientRecord) (interface{}, bool)

// patientFields is the closed set of attributes a criterion may reference.
// Criteria naming any other field evaluate to UNKNOWN.
var patientFields = map[string]fieldAccessor{
	"age": func(p models.PatientRecord) (interface{}, bool) {
		if p.Age == nil {
			return nil, false
		}
		return float64(*p.Age), true
	},
	"gender":              textField(func(p models.PatientRecord) *string { return p.Gender }),
	"diagnosis":           textField(func(p models.PatientRecord) *string { return p.Diagnosis }),
	"diagnosis_date":      textField(func(p models.PatientRecord) *string { return p.DiagnosisDate }),
	"hba1c":               numericField(func(p models.PatientRecord) *float64 { return p.HbA1c }),
	"egfr":                numericField(func(p models.PatientRecord) *float64 { return p.EGFR }),
	"creatinine":          numericField(func(p models.PatientRecord) *float64 { return p.Creatinine }),
	"pregnancy_status":    textField(func(p models.PatientRecord) *string { return p.PregnancyStatus }),
	"clinical_notes":      textField(func(p models.PatientRecord) *string { return p.ClinicalNotes }),
	"current_medications": listField(func(p models.PatientRecord) []string { return p.CurrentMedications }),
	"comorbidities":       listField(func(p models.PatientRecord) []string { return p.Comorbidities }),
}

func textField(get func(p models.PatientRecord) *string) fieldAccessor {
	return func(p models.PatientRecord) (interface{}, bool) {
		v := get(p)
		if v == nil {
			return nil, false
		}
		return *v, true
	}
}

func numericField(get func(p models.PatientRecord) *float64) fieldAccessor {
	return func(p models.PatientRecord) (interface{}, bool) {
		v := get(p)
		if v == nil {
			return nil, false
		}
		return *v, true
	}
}

// List attributes are always considered recorded; an absent list is the
// empty list, and how empty lists are judged is an evaluator option.
func listField(get func(p models.PatientRecord) []string) fieldAccessor {
	return func(p models.PatientRecord) (interface{}, bool) {
		v := get(p)
		if v == nil {
			return []string{}, true
		}
		return v, true
	}
}

// resolvePatientValue maps a criterion's field name, case-insensitively, to
// the patient's value. ok is false for unrecorded values and for field names
// outside the known set.
func resolvePatientValue(p models.PatientRecord, field string) (interface{}, bool) {
	accessor, known := patientFields[strings.ToLower(strings.TrimSpace(field))]
	if !known {
		return nil, false
	}
	return accessor(p)
}
