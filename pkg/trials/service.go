package trials

import (
	"context"
	"errors"
	"strings"

	"github.com/trialscreen-ai/platform/pkg/common/logger"
	"github.com/trialscreen-ai/platform/pkg/common/models"
)

var errInvalidTrial = errors.New("invalid trial definition")

// Cache is notified when a trial definition changes so that stale cached
// copies are dropped.
type Cache interface {
	Invalidate(ctx context.Context, trialID string) error
}

type Service struct {
	repo  *Repository
	cache Cache
}

func NewService(repo *Repository, cache Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// SetCache attaches the cache after construction. The cache wraps this
// service as its read-through source, so it cannot exist first.
func (s *Service) SetCache(cache Cache) {
	s.cache = cache
}

func (s *Service) Create(ctx context.Context, req models.CreateTrialRequest) (models.Trial, error) {
	if err := validateTrial(req); err != nil {
		return models.Trial{}, err
	}
	return s.repo.Create(ctx, req)
}

func (s *Service) Update(ctx context.Context, trialID string, req models.CreateTrialRequest) (models.Trial, error) {
	if err := validateTrial(req); err != nil {
		return models.Trial{}, err
	}
	trial, err := s.repo.Update(ctx, trialID, req)
	if err != nil {
		return models.Trial{}, err
	}
	s.invalidate(ctx, trialID)
	return trial, nil
}

func (s *Service) Get(ctx context.Context, trialID string) (models.Trial, error) {
	return s.repo.Get(ctx, trialID)
}

// GetTrial satisfies the screening trial source interface.
func (s *Service) GetTrial(ctx context.Context, trialID string) (models.Trial, error) {
	return s.repo.Get(ctx, trialID)
}

func (s *Service) List(ctx context.Context, activeOnly bool, limit int) ([]models.TrialListItem, error) {
	return s.repo.List(ctx, activeOnly, limit)
}

func (s *Service) Deactivate(ctx context.Context, trialID string) error {
	if err := s.repo.Deactivate(ctx, trialID); err != nil {
		return err
	}
	s.invalidate(ctx, trialID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, trialID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, trialID); err != nil {
		logger.Log.WithError(err).WithField("trial_id", trialID).Warn("failed to invalidate trial cache")
	}
}

func IsInvalid(err error) bool {
	return errors.Is(err, errInvalidTrial)
}

func validateTrial(req models.CreateTrialRequest) error {
	if strings.TrimSpace(req.ID) == "" || strings.TrimSpace(req.Name) == "" {
		return errInvalidTrial
	}
	for _, c := range append(append([]models.Criterion{}, req.InclusionCriteria...), req.ExclusionCriteria...) {
		if strings.TrimSpace(c.ID) == "" || strings.TrimSpace(c.Field) == "" {
			return errInvalidTrial
		}
	}
	return nil
}
