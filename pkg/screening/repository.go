package screening

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/trialscreen-ai/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrRecordNotFound = errors.New("screening record not found")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type screeningResultModel struct {
	ID               int64          `gorm:"primaryKey;autoIncrement;column:id"`
	TrialID          string         `gorm:"column:trial_id;index"`
	PatientID        string         `gorm:"column:patient_id;index"`
	Decision         string         `gorm:"column:decision"`
	InclusionResults datatypes.JSON `gorm:"column:inclusion_results"`
	ExclusionResults datatypes.JSON `gorm:"column:exclusion_results"`
	MissingData      datatypes.JSON `gorm:"column:missing_data"`
	AIExplanation    string         `gorm:"column:ai_explanation"`
	Recommendation   string         `gorm:"column:recommendation"`
	ScreenedBy       string         `gorm:"column:screened_by"`
	CreatedAt        time.Time      `gorm:"column:created_at"`
}

func (screeningResultModel) TableName() string { return "screening_results" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&screeningResultModel{})
}

func (r *Repository) Create(ctx context.Context, record models.ScreeningRecord) (models.ScreeningRecord, error) {
	row, err := toResultModel(record)
	if err != nil {
		return models.ScreeningRecord{}, err
	}
	row.CreatedAt = time.Now().UTC()
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return models.ScreeningRecord{}, err
	}
	record.ID = row.ID
	record.CreatedAt = row.CreatedAt
	return record, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (models.ScreeningRecord, error) {
	var row screeningResultModel
	err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ScreeningRecord{}, ErrRecordNotFound
	}
	if err != nil {
		return models.ScreeningRecord{}, err
	}
	return toScreeningRecord(row)
}

// List returns the most recent records first, optionally filtered by trial
// and/or patient.
func (r *Repository) List(ctx context.Context, trialID, patientID string, limit int) ([]models.ScreeningRecord, error) {
	query := r.db.WithContext(ctx).Model(&screeningResultModel{})
	if trialID != "" {
		query = query.Where("trial_id = ?", trialID)
	}
	if patientID != "" {
		query = query.Where("patient_id = ?", patientID)
	}

	var rows []screeningResultModel
	if err := query.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]models.ScreeningRecord, 0, len(rows))
	for _, row := range rows {
		record, err := toScreeningRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func toResultModel(record models.ScreeningRecord) (*screeningResultModel, error) {
	inclusion, err := json.Marshal(record.InclusionResults)
	if err != nil {
		return nil, err
	}
	exclusion, err := json.Marshal(record.ExclusionResults)
	if err != nil {
		return nil, err
	}
	missing, err := json.Marshal(record.MissingData)
	if err != nil {
		return nil, err
	}
	return &screeningResultModel{
		TrialID:          record.TrialID,
		PatientID:        record.PatientID,
		Decision:         string(record.Decision),
		InclusionResults: datatypes.JSON(inclusion),
		ExclusionResults: datatypes.JSON(exclusion),
		MissingData:      datatypes.JSON(missing),
		AIExplanation:    record.AIExplanation,
		Recommendation:   record.Recommendation,
		ScreenedBy:       record.ScreenedBy,
	}, nil
}

func toScreeningRecord(row screeningResultModel) (models.ScreeningRecord, error) {
	record := models.ScreeningRecord{
		ID:             row.ID,
		TrialID:        row.TrialID,
		PatientID:      row.PatientID,
		Decision:       models.Decision(row.Decision),
		AIExplanation:  row.AIExplanation,
		Recommendation: row.Recommendation,
		ScreenedBy:     row.ScreenedBy,
		CreatedAt:      row.CreatedAt,
	}
	if len(row.InclusionResults) > 0 {
		if err := json.Unmarshal(row.InclusionResults, &record.InclusionResults); err != nil {
			return models.ScreeningRecord{}, err
		}
	}
	if len(row.ExclusionResults) > 0 {
		if err := json.Unmarshal(row.ExclusionResults, &record.ExclusionResults); err != nil {
			return models.ScreeningRecord{}, err
		}
	}
	if len(row.MissingData) > 0 {
		if err := json.Unmarshal(row.MissingData, &record.MissingData); err != nil {
			return models.ScreeningRecord{}, err
		}
	}
	return record, nil
}
