package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const defaultGuestCartTTL = 30 * 24 * time.Hour

type staleCartRepo interface {
	DeleteStaleGuestLines(ctx context.Context, cutoff time.Time) (int64, error)
}

type CartCleanupJobParams struct {
	Logger     *logger.Logger
	Repository staleCartRepo
	TTL        time.Duration
}

// NewCartCleanupJob removes guest cart lines nobody touched within TTL.
func NewCartCleanupJob(params CartCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultGuestCartTTL
	}
	return &cartCleanupJob{
		logg: params.Logger,
		repo: params.Repository,
		ttl:  ttl,
		now:  time.Now,
	}, nil
}

type cartCleanupJob struct {
	logg *logger.Logger
	repo staleCartRepo
	ttl  time.Duration
	now  func() time.Time
}

func (j *cartCleanupJob) Name() string { return "guest-cart-cleanup" }

func (j *cartCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	deleted, err := j.repo.DeleteStaleGuestLines(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("guest cart cleanup: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":        cutoff,
		"lines_deleted": deleted,
	}), "guest cart cleanup complete")
	return nil
}
