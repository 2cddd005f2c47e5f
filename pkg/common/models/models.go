package models

import (
	"encoding/json"
	"time"
)

// Eligibility decision values
type Decision string

const (
	DecisionEligible   Decision = "ELIGIBLE"
	DecisionIneligible Decision = "INELIGIBLE"
	DecisionUncertain  Decision = "UNCERTAIN"
)

// Per-criterion status values. MET/NOT_MET are used on the inclusion side,
// CLEAR/EXCLUDES on the exclusion side, UNKNOWN on both.
type CriterionStatus string

const (
	StatusMet      CriterionStatus = "MET"
	StatusNotMet   CriterionStatus = "NOT_MET"
	StatusClear    CriterionStatus = "CLEAR"
	StatusExcludes CriterionStatus = "EXCLUDES"
	StatusUnknown  CriterionStatus = "UNKNOWN"
)

// KeywordSet is the "contains" payload of a criterion. Trial authors write it
// either as a single string or as a list of strings; the shape is resolved
// once at unmarshal time.
type KeywordSet []string

func (k *KeywordSet) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*k = KeywordSet{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*k = KeywordSet(list)
	return nil
}

// Criterion is one testable inclusion or exclusion condition. Exactly one
// condition payload is meaningful; when several are present the evaluator
// applies them in priority order: range, exact value, excludes, contains.
type Criterion struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Field string `json:"field"`

	// Numeric range, bounds inclusive
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`

	// Exact value match after trimming
	Value *string `json:"value,omitempty"`

	// Disqualifying exact values
	Excludes []string `json:"excludes,omitempty"`

	// Case-insensitive substring keywords against list-valued fields
	Contains KeywordSet `json:"contains,omitempty"`
}

// PatientRecord is the subject of a screening. Every clinical attribute is
// independently optional; a nil pointer means "not measured", not zero.
type PatientRecord struct {
	PatientID          string   `json:"patient_id"`
	Age                *int     `json:"age,omitempty"`
	Gender             *string  `json:"gender,omitempty"`
	Diagnosis          *string  `json:"diagnosis,omitempty"`
	DiagnosisDate      *string  `json:"diagnosis_date,omitempty"`
	HbA1c              *float64 `json:"hba1c,omitempty"`
	EGFR               *float64 `json:"egfr,omitempty"`
	Creatinine         *float64 `json:"creatinine,omitempty"`
	CurrentMedications []string `json:"current_medications,omitempty"`
	Comorbidities      []string `json:"comorbidities,omitempty"`
	PregnancyStatus    *string  `json:"pregnancy_status,omitempty"`
	ClinicalNotes      *string  `json:"clinical_notes,omitempty"`
}

// CriterionResult is the outcome of evaluating one criterion against one
// patient. Immutable once produced.
type CriterionResult struct {
	CriterionID   string          `json:"criterion_id"`
	CriterionText string          `json:"criterion_text"`
	Field         string          `json:"field,omitempty"`
	Status        CriterionStatus `json:"status"`
	ActualValue   interface{}     `json:"actual_value,omitempty"`
	Reason        string          `json:"reason,omitempty"`
}

// EligibilityResult is the complete outcome of one screening evaluation.
// AIExplanation and Recommendation stay empty until the caller fills them,
// either from the explanation service or from the deterministic fallback.
type EligibilityResult struct {
	Decision         Decision          `json:"decision"`
	InclusionResults []CriterionResult `json:"inclusion_results"`
	ExclusionResults []CriterionResult `json:"exclusion_results"`
	MissingData      []string          `json:"missing_data"`
	AIExplanation    string            `json:"ai_explanation,omitempty"`
	Recommendation   string            `json:"recommendation,omitempty"`
}

// Trial models
type Trial struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Phase             string      `json:"phase"`
	Sponsor           string      `json:"sponsor"`
	Description       string      `json:"description,omitempty"`
	InclusionCriteria []Criterion `json:"inclusion_criteria"`
	ExclusionCriteria []Criterion `json:"exclusion_criteria"`
	IsActive          bool        `json:"is_active"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

type TrialListItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Phase    string `json:"phase"`
	Sponsor  string `json:"sponsor"`
	IsActive bool   `json:"is_active"`
}

type CreateTrialRequest struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Phase             string      `json:"phase"`
	Sponsor           string      `json:"sponsor"`
	Description       string      `json:"description,omitempty"`
	InclusionCriteria []Criterion `json:"inclusion_criteria"`
	ExclusionCriteria []Criterion `json:"exclusion_criteria"`
}

// Screening models
type ScreeningRequest struct {
	TrialID               string        `json:"trial_id"`
	Patient               PatientRecord `json:"patient"`
	GenerateAIExplanation *bool         `json:"generate_ai_explanation,omitempty"`
}

type ScreeningResponse struct {
	TrialID    string            `json:"trial_id"`
	TrialName  string            `json:"trial_name"`
	PatientID  string            `json:"patient_id"`
	Result     EligibilityResult `json:"result"`
	ScreenedAt time.Time         `json:"screened_at"`
}

type BatchScreeningRequest struct {
	TrialID               string          `json:"trial_id"`
	Patients              []PatientRecord `json:"patients"`
	GenerateAIExplanation bool            `json:"generate_ai_explanation"`
}

type BatchScreeningResult struct {
	PatientID string   `json:"patient_id"`
	Decision  Decision `json:"decision"`
	Summary   string   `json:"summary"`
}

type BatchScreeningResponse struct {
	TrialID         string                 `json:"trial_id"`
	TotalPatients   int                    `json:"total_patients"`
	EligibleCount   int                    `json:"eligible_count"`
	IneligibleCount int                    `json:"ineligible_count"`
	UncertainCount  int                    `json:"uncertain_count"`
	Results         []BatchScreeningResult `json:"results"`
}

// ScreeningRecord is one row of the screening audit trail.
type ScreeningRecord struct {
	ID               int64             `json:"id"`
	TrialID          string            `json:"trial_id"`
	PatientID        string            `json:"patient_id"`
	Decision         Decision          `json:"decision"`
	InclusionResults []CriterionResult `json:"inclusion_results"`
	ExclusionResults []CriterionResult `json:"exclusion_results"`
	MissingData      []string          `json:"missing_data,omitempty"`
	AIExplanation    string            `json:"ai_explanation,omitempty"`
	Recommendation   string            `json:"recommendation,omitempty"`
	ScreenedBy       string            `json:"screened_by,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // screening.completed, screening.batch-requested
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// BatchScreeningJob is the payload carried by a screening.batch-requested
// event, consumed by the batch worker.
type BatchScreeningJob struct {
	JobID       string          `json:"job_id"`
	TrialID     string          `json:"trial_id"`
	Patients    []PatientRecord `json:"patients"`
	RequestedBy string          `json:"requested_by,omitempty"`
}
