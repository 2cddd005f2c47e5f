package patients

import (
	"context"
	"errors"
	"fmt"

	"github.com/trialscreen-ai/platform/pkg/common/logger"
	"github.com/trialscreen-ai/platform/pkg/common/models"
)

var errInvalidRecord = errors.New("invalid patient record")

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Save(ctx context.Context, record models.PatientRecord) (models.PatientRecord, error) {
	if err := validateRecord(record); err != nil {
		return models.PatientRecord{}, err
	}
	return s.repo.Upsert(ctx, record)
}

func (s *Service) Get(ctx context.Context, patientID string) (models.PatientRecord, error) {
	return s.repo.Get(ctx, patientID)
}

func (s *Service) List(ctx context.Context, offset, limit int) ([]models.PatientRecord, error) {
	return s.repo.List(ctx, offset, limit)
}

func (s *Service) Delete(ctx context.Context, patientID string) error {
	return s.repo.Delete(ctx, patientID)
}

// SeedIfEmpty stores the records when the patient table is empty.
func (s *Service) SeedIfEmpty(ctx context.Context, records []models.PatientRecord) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 || len(records) == 0 {
		return nil
	}
	for _, record := range records {
		if _, err := s.repo.Upsert(ctx, record); err != nil {
			return err
		}
	}
	logger.Log.WithField("count", len(records)).Info("Seeded patient records")
	return nil
}

func IsInvalid(err error) bool {
	return errors.Is(err, errInvalidRecord)
}

func validateRecord(record models.PatientRecord) error {
	if record.PatientID == "" {
		return fmt.Errorf("%w: patient_id is required", errInvalidRecord)
	}
	if record.Age != nil && (*record.Age < 0 || *record.Age > 150) {
		return fmt.Errorf("%w: age %d out of range", errInvalidRecord, *record.Age)
	}
	for name, value := range map[string]*float64{
		"hba1c":      record.HbA1c,
		"egfr":       record.EGFR,
		"creatinine": record.Creatinine,
	} {
		if value != nil && *value < 0 {
			return fmt.Errorf("%w: %s must not be negative", errInvalidRecord, name)
		}
	}
	return nil
}
