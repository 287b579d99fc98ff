package jobs

import (
	"context"
	"time"

	"giveora.backend/internal/domain/repositories"
	"giveora.backend/pkg/logger"
	"go.uber.org/zap"
)

const cleanupBatchSize = 500

// PendingRegistrationCleanupJob purges durable sign-ups that were never verified
type PendingRegistrationCleanupJob struct {
	repo     repositories.PendingRegistrationCleaner
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
	stop     chan struct{}
}

// NewPendingRegistrationCleanupJob removes rows whose code expired more than grace ago
func NewPendingRegistrationCleanupJob(repo repositories.PendingRegistrationCleaner, interval, grace time.Duration) *PendingRegistrationCleanupJob {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &PendingRegistrationCleanupJob{
		repo:     repo,
		interval: interval,
		grace:    grace,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

func (j *PendingRegistrationCleanupJob) Start(ctx context.Context) {
	logger.Info(ctx, "Starting pending registration cleanup job", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Pending registration cleanup job stopped (context cancelled)")
			return
		case <-j.stop:
			logger.Info(ctx, "Pending registration cleanup job stopped")
			return
		case <-ticker.C:
			j.purgeExpired(ctx)
		}
	}
}

func (j *PendingRegistrationCleanupJob) Stop() {
	close(j.stop)
}

func (j *PendingRegistrationCleanupJob) purgeExpired(ctx context.Context) {
	cutoff := j.now().Add(-j.grace)
	var total int64

	for {
		n, err := j.repo.DeleteExpired(ctx, cutoff, cleanupBatchSize)
		if err != nil {
			logger.Error(ctx, "Failed to purge expired pending registrations", zap.Error(err))
			break
		}
		total += n
		if n < cleanupBatchSize {
			break
		}
	}

	if total > 0 {
		logger.Info(ctx, "Purged expired pending registrations",
			zap.Int64("count", total),
			zap.Time("cutoff", cutoff),
		)
	}
}
