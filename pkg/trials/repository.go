package trials

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/trialscreen-ai/platform/pkg/common/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("trial not found")
var ErrAlreadyExists = errors.New("trial already exists")

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type trialModel struct {
	ID                string         `gorm:"primaryKey;column:id"`
	Name              string         `gorm:"column:name"`
	Phase             string         `gorm:"column:phase"`
	Sponsor           string         `gorm:"column:sponsor"`
	Description       string         `gorm:"column:description"`
	InclusionCriteria datatypes.JSON `gorm:"column:inclusion_criteria"`
	ExclusionCriteria datatypes.JSON `gorm:"column:exclusion_criteria"`
	IsActive          bool           `gorm:"column:is_active"`
	CreatedAt         time.Time      `gorm:"column:created_at"`
	UpdatedAt         time.Time      `gorm:"column:updated_at"`
}

func (trialModel) TableName() string { return "trials" }

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&trialModel{})
}

func (r *Repository) Create(ctx context.Context, req models.CreateTrialRequest) (models.Trial, error) {
	var existing trialModel
	err := r.db.WithContext(ctx).First(&existing, "id = ?", req.ID).Error
	if err == nil {
		return models.Trial{}, ErrAlreadyExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Trial{}, err
	}

	now := time.Now().UTC()
	row := &trialModel{
		ID:          req.ID,
		Name:        req.Name,
		Phase:       req.Phase,
		Sponsor:     req.Sponsor,
		Description: req.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := row.setCriteria(req.InclusionCriteria, req.ExclusionCriteria); err != nil {
		return models.Trial{}, err
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return models.Trial{}, err
	}
	return row.toTrial()
}

func (r *Repository) Update(ctx context.Context, trialID string, req models.CreateTrialRequest) (models.Trial, error) {
	var row trialModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", trialID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Trial{}, ErrNotFound
		}
		return models.Trial{}, err
	}

	row.Name = req.Name
	row.Phase = req.Phase
	row.Sponsor = req.Sponsor
	row.Description = req.Description
	row.UpdatedAt = time.Now().UTC()
	if err := row.setCriteria(req.InclusionCriteria, req.ExclusionCriteria); err != nil {
		return models.Trial{}, err
	}
	if err := r.db.WithContext(ctx).Save(&row).Error; err != nil {
		return models.Trial{}, err
	}
	return row.toTrial()
}

func (r *Repository) Get(ctx context.Context, trialID string) (models.Trial, error) {
	var row trialModel
	if err := r.db.WithContext(ctx).First(&row, "id = ?", trialID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Trial{}, ErrNotFound
		}
		return models.Trial{}, err
	}
	return row.toTrial()
}

func (r *Repository) List(ctx context.Context, activeOnly bool, limit int) ([]models.TrialListItem, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Model(&trialModel{}).Order("created_at DESC").Limit(limit)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	var rows []trialModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]models.TrialListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, models.TrialListItem{
			ID:       row.ID,
			Name:     row.Name,
			Phase:    row.Phase,
			Sponsor:  row.Sponsor,
			IsActive: row.IsActive,
		})
	}
	return items, nil
}

func (r *Repository) Deactivate(ctx context.Context, trialID string) error {
	result := r.db.WithContext(ctx).Model(&trialModel{}).Where("id = ?", trialID).Updates(map[string]interface{}{
		"is_active":  false,
		"updated_at": time.Now().UTC(),
	})
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
	err := r.db.WithContext(ctx).Model(&trialModel{}).Count(&count).Error
	return count, err
}

func (m *trialModel) setCriteria(inclusion, exclusion []models.Criterion) error {
	inclusionJSON, err := json.Marshal(inclusion)
	if err != nil {
		return err
	}
	exclusionJSON, err := json.Marshal(exclusion)
	if err != nil {
		return err
	}
	m.InclusionCriteria = datatypes.JSON(inclusionJSON)
	m.ExclusionCriteria = datatypes.JSON(exclusionJSON)
	return nil
}

func (m *trialModel) toTrial() (models.Trial, error) {
	trial := models.Trial{
		ID:          m.ID,
		Name:        m.Name,
		Phase:       m.Phase,
		Sponsor:     m.Sponsor,
		Description: m.Description,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if len(m.InclusionCriteria) > 0 {
		if err := json.Unmarshal(m.InclusionCriteria, &trial.InclusionCriteria); err != nil {
			return models.Trial{}, err
		}
	}
	if len(m.ExclusionCriteria) > 0 {
		if err := json.Unmarshal(m.ExclusionCriteria, &trial.ExclusionCriteria); err != nil {
			return models.Trial{}, err
		}
	}
	return trial, nil
}
