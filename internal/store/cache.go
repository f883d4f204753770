package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	stderrors "credit-assessment/internal/common/errors"
	"credit-assessment/internal/common/logger"
	"credit-assessment/internal/models"
)

const (
	DefaultReportTTL = 24 * time.Hour
	reportKeyPrefix  = "credit:report:"
)

// CachedRepository serves reports from Redis and falls back to the wrapped
// repository on a miss. With no repository it is a cache-only store whose
// reports expire after the TTL.
type CachedRepository struct {
	redis  redis.Cmdable
	repo   Repository
	ttl    time.Duration
	logger logger.Logger
}

var _ Repository = (*CachedRepository)(nil)

func NewCachedRepository(rdb redis.Cmdable, repo Repository, ttl time.Duration, log logger.Logger) *CachedRepository {
	if ttl <= 0 {
		ttl = DefaultReportTTL
	}
	return &CachedRepository{
		redis:  rdb,
		repo:   repo,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"store": "redis"}),
	}
}

func reportKey(id string) string {
	return reportKeyPrefix + id
}

// Save writes through: the repository first, then the cache. A cache write
// failure is logged and does not fail the save when a repository exists.
func (c *CachedRepository) Save(ctx context.Context, report *models.CreditAssessmentReport) error {
	if c.repo != nil {
		if err := c.repo.Save(ctx, report); err != nil {
			return err
		}
	}
	err := c.put(ctx, report)
	if err != nil && c.repo != nil {
		c.logger.Warn("report cache write failed", map[string]interface{}{
			"reportId": report.ReportID,
			"error":    err.Error(),
		})
		return nil
	}
	return err
}

func (c *CachedRepository) Get(ctx context.Context, reportID string) (*models.CreditAssessmentReport, error) {
	raw, err := c.redis.Get(ctx, reportKey(reportID)).Bytes()
	switch {
	case err == nil:
		var r models.CreditAssessmentReport
		if jsonErr := json.Unmarshal(raw, &r); jsonErr == nil {
			return &r, nil
		}
		c.logger.Warn("discarding corrupt cache entry", map[string]interface{}{"reportId": reportID})
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("report cache read failed", map[string]interface{}{
			"reportId": reportID,
			"error":    err.Error(),
		})
	}

	if c.repo == nil {
		return nil, stderrors.NewReportNotFoundError(reportID)
	}
	r, err := c.repo.Get(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if err := c.put(ctx, r); err != nil {
		c.logger.Warn("report cache fill failed", map[string]interface{}{
			"reportId": reportID,
			"error":    err.Error(),
		})
	}
	return r, nil
}

func (c *CachedRepository) put(ctx context.Context, report *models.CreditAssessmentReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return stderrors.NewStoreFailedError("encode", err)
	}
	if err := c.redis.Set(ctx, reportKey(report.ReportID), body, c.ttl).Err(); err != nil {
		return stderrors.NewStoreFailedError("cache", err)
	}
	return nil
}

func (c *CachedRepository) Name() string { return "report-store" }

func (c *CachedRepository) Deliver(ctx context.Context, report *models.CreditAssessmentReport) error {
	return c.Save(ctx, report)
}
