package screening

import (
	"errors"
	"fmt"
	"strings"

	"github.com/trialscreen-ai/platform/pkg/common/models"
)

var (
	errMissingTrialID   = errors.New("trial_id is required")
	errMissingPatientID = errors.New("patient_id is required")
	errEmptyBatch       = errors.New("batch contains no patients")
	errBatchTooLarge    = errors.New("batch exceeds maximum size")
)

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

type Validator struct {
	maxBatchSize int
}

func NewValidator(maxBatchSize int) *Validator {
	if maxBatchSize <= 0 {
		maxBatchSize = 500
	}
	return &Validator{maxBatchSize: maxBatchSize}
}

func (v *Validator) ValidateRequest(req models.ScreeningRequest) error {
	if strings.TrimSpace(req.TrialID) == "" {
		return ValidationError{reason: errMissingTrialID}
	}
	if strings.TrimSpace(req.Patient.PatientID) == "" {
		return ValidationError{reason: errMissingPatientID}
	}
	return nil
}

func (v *Validator) ValidateBatch(req models.BatchScreeningRequest) error {
	if strings.TrimSpace(req.TrialID) == "" {
		return ValidationError{reason: errMissingTrialID}
	}
	if len(req.Patients) == 0 {
		return ValidationError{reason: errEmptyBatch}
	}
	if len(req.Patients) > v.maxBatchSize {
		return ValidationError{reason: fmt.Errorf("%w: %d > %d", errBatchTooLarge, len(req.Patients), v.maxBatchSize)}
	}
	for i, patient := range req.Patients {
		if strings.TrimSpace(patient.PatientID) == "" {
			return ValidationError{reason: fmt.Errorf("patient at index %d: %w", i, errMissingPatientID)}
		}
	}
	return nil
}
