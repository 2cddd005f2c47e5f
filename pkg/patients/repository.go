package patients

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/trialscreen-ai/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("patient not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type patientModel struct {
	PatientID          string         `gorm:"primaryKey;column:patient_id"`
	Age                *int           `gorm:"column:age"`
	Gender             *string        `gorm:"column:gender"`
	Diagnosis          *string        `gorm:"column:diagnosis"`
	DiagnosisDate      *string        `gorm:"column:diagnosis_date"`
	HbA1c              *float64       `gorm:"column:hba1c"`
	EGFR               *float64       `gorm:"column:egfr"`
	Creatinine         *float64       `gorm:"column:creatinine"`
	CurrentMedications datatypes.JSON `gorm:"column:current_medications"`
	Comorbidities      datatypes.JSON `gorm:"column:comorbidities"`
	PregnancyStatus    *string        `gorm:"column:pregnancy_status"`
	ClinicalNotes      *string        `gorm:"column:clinical_notes"`
	CreatedAt          time.Time      `gorm:"column:created_at"`
	UpdatedAt          time.Time      `gorm:"column:updated_at"`
}

func (patientModel) TableName() string { return "patients" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&patientModel{})
}

// Upsert inserts the record or replaces the existing row for the same
// patient_id.
func (r *Repository) Upsert(ctx context.Context, record models.PatientRecord) (models.PatientRecord, error) {
	row, err := toModel(record)
	if err != nil {
		return models.PatientRecord{}, err
	}

	var existing patientModel
	lookup := r.db.WithContext(ctx).First(&existing, "patient_id = ?", record.PatientID).Error
	now := time.Now().UTC()
	if errors.Is(lookup, gorm.ErrRecordNotFound) {
		row.CreatedAt = now
		row.UpdatedAt = now
		if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
			return models.PatientRecord{}, err
		}
		return record, nil
	}
	if lookup != nil {
		return models.PatientRecord{}, lookup
	}

	row.CreatedAt = existing.CreatedAt
	row.UpdatedAt = now
	if err := r.db.WithContext(ctx).Save(row).Error; err != nil {
		return models.PatientRecord{}, err
	}
	return record, nil
}

func (r *Repository) Get(ctx context.Context, patientID string) (models.PatientRecord, error) {
	var row patientModel
	err := r.db.WithContext(ctx).First(&row, "patient_id = ?", patientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.PatientRecord{}, ErrNotFound
	}
	if err != nil {
		return models.PatientRecord{}, err
	}
	return toRecord(row)
}

func (r *Repository) List(ctx context.Context, offset, limit int) ([]models.PatientRecord, error) {
	var rows []patientModel
	err := r.db.WithContext(ctx).
		Order("patient_id").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]models.PatientRecord, 0, len(rows))
	for _, row := range rows {
		record, err := toRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *Repository) Delete(ctx context.Context, patientID string) error {
	result := r.db.WithContext(ctx).Delete(&patientModel{}, "patient_id = ?", patientID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&patientModel{}).Count(&count).Error
	return count, err
}

func toModel(record models.PatientRecord) (*patientModel, error) {
	medications, err := json.Marshal(record.CurrentMedications)
	if err != nil {
		return nil, err
	}
	comorbidities, err := json.Marshal(record.Comorbidities)
	if err != nil {
		return nil, err
	}
	return &patientModel{
		PatientID:          record.PatientID,
		Age:                record.Age,
		Gender:             record.Gender,
		Diagnosis:          record.Diagnosis,
		DiagnosisDate:      record.DiagnosisDate,
		HbA1c:              record.HbA1c,
		EGFR:               record.EGFR,
		Creatinine:         record.Creatinine,
		CurrentMedications: datatypes.JSON(medications),
		Comorbidities:      datatypes.JSON(comorbidities),
		PregnancyStatus:    record.PregnancyStatus,
		ClinicalNotes:      record.ClinicalNotes,
	}, nil
}

func toRecord(row patientModel) (models.PatientRecord, error) {
	record := models.PatientRecord{
		PatientID:       row.PatientID,
		Age:             row.Age,
		Gender:          row.Gender,
		Diagnosis:       row.Diagnosis,
		DiagnosisDate:   row.DiagnosisDate,
		HbA1c:           row.HbA1c,
		EGFR:            row.EGFR,
		Creatinine:      row.Creatinine,
		PregnancyStatus: row.PregnancyStatus,
		ClinicalNotes:   row.ClinicalNotes,
	}
	if len(row.CurrentMedications) > 0 {
		if err := json.Unmarshal(row.CurrentMedications, &record.CurrentMedications); err != nil {
			return models.PatientRecord{}, err
		}
	}
	if len(row.Comorbidities) > 0 {
		if err := json.Unmarshal(row.Comorbidities, &record.Comorbidities); err != nil {
			return models.PatientRecord{}, err
		}
	}
	return record, nil
}
