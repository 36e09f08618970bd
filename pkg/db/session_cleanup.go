package db

import (
	"context"
	"time"

	"github.com/smith3v/lexicon-clash/pkg/logger"
)

const SessionCleanupInterval = time.Hour

// CleanupExpiredSessions deletes sessions whose expiry is at or before now.
func CleanupExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	if DB == nil {
		return 0, nil
	}
	res := DB.WithContext(ctx).Where("expires_at <= ?", now).Delete(&GameSession{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// StartSessionCleanup sweeps expired sessions every interval until ctx ends.
func StartSessionCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = SessionCleanupInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := CleanupExpiredSessions(ctx, time.Now().UTC())
			if err != nil {
				logger.Error("failed to cleanup expired sessions", "error", err)
				continue
			}
			if deleted > 0 {
				logger.Info("expired sessions removed", "count", deleted)
			}
		}
	}
}
