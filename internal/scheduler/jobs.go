package scheduler

import (
	"context"
	"time"

	"github.com/ahrie-ai/backend/internal/logger"
)

// TranslationPurger deletes old translation cache rows.
type TranslationPurger interface {
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// IdleCloser closes conversations with no recent activity.
type IdleCloser interface {
	CloseIdle(ctx context.Context, idle time.Duration) (int64, error)
}

// RegisterMaintenance adds the hourly translation purge and the half-hourly idle conversation sweep.
func RegisterMaintenance(s *Scheduler, translations TranslationPurger, conversations IdleCloser, cacheTTL, sessionTTL time.Duration) error {
	if err := s.Add(JobPurgeTranslations, "@every 1h", func(ctx context.Context) error {
		n, err := translations.PurgeOlderThan(ctx, cacheTTL)
		if err != nil {
			return err
		}
		logger.FromContext(ctx).Info("purged translation cache", "rows", n, "older_than", cacheTTL)
		return nil
	}); err != nil {
		return err
	}

	return s.Add(JobCloseIdle, "@every 30m", func(ctx context.Context) error {
		n, err := conversations.CloseIdle(ctx, sessionTTL)
		if err != nil {
			return err
		}
		logger.FromContext(ctx).Info("closed idle conversations", "count", n, "idle_for", sessionTTL)
		return nil
	})
}
