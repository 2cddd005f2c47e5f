package screening

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trialscreen-ai/platform/pkg/common/logger"
	"github.com/trialscreen-ai/platform/pkg/common/models"
)

// TrialCache fronts a TrialSource with a Redis read-through cache so repeated
// screenings of the same trial skip the database. Cache failures degrade to
// direct source reads.
type TrialCache struct {
	client *redis.Client
	source TrialSource
	ttl    time.Duration
}

func NewTrialCache(client *redis.Client, source TrialSource, ttl time.Duration) *TrialCache {
	return &TrialCache{client: client, source: source, ttl: ttl}
}

func trialKey(trialID string) string {
	return fmt.Sprintf("trial:%s", trialID)
}

func (c *TrialCache) GetTrial(ctx context.Context, trialID string) (models.Trial, error) {
	if c.client != nil {
		raw, err := c.client.Get(ctx, trialKey(trialID)).Bytes()
		if err == nil {
			var trial models.Trial
			if err := json.Unmarshal(raw, &trial); err == nil {
				return trial, nil
			}
			logger.Log.WithField("trial_id", trialID).Warn("Discarding unreadable cached trial")
		} else if !errors.Is(err, redis.Nil) {
			logger.Log.WithError(err).Warn("Trial cache read failed")
		}
	}

	trial, err := c.source.GetTrial(ctx, trialID)
	if err != nil {
		return models.Trial{}, err
	}

	if c.client != nil {
		if raw, err := json.Marshal(trial); err == nil {
			if err := c.client.Set(ctx, trialKey(trialID), raw, c.ttl).Err(); err != nil {
				logger.Log.WithError(err).Warn("Trial cache write failed")
			}
		}
	}
	return trial, nil
}

// Invalidate drops the cached copy after a trial mutation.
func (c *TrialCache) Invalidate(ctx context.Context, trialID string) error {
	if c.client == nil {
		return nil
	}
	return c.client.Del(ctx, trialKey(trialID)).Err()
}
