package repositories

import (
	"context"
	"time"

	"giveora.backend/internal/domain/entities"
)

// PendingRegistrationRepository stores unverified sign-ups. Implementations
// exist for the shared durable table and for the per-client session.
type PendingRegistrationRepository interface {
	// Save stores reg, replacing any existing entry for the same email.
	Save(ctx context.Context, reg *entities.PendingRegistration) error
	// GetByEmail returns ErrNotFound when no entry exists.
	GetByEmail(ctx context.Context, email string) (*entities.PendingRegistration, error)
	// IncrementAttempts records one wrong submission and returns the new count.
	// It returns ErrMaxAttempts when the entry is already locked.
	IncrementAttempts(ctx context.Context, reg *entities.PendingRegistration, maxAttempts int) (int, error)
	// Regenerate swaps in reg's new code hash, token and expiry, resets attempts
	// and increments resend_count. It returns ErrResendLimit at the cap.
	Regenerate(ctx context.Context, reg *entities.PendingRegistration, maxResends int) error
	// Consume removes the entry once. A second call returns ErrInvalidCode.
	Consume(ctx context.Context, reg *entities.PendingRegistration) error
	// Delete removes any entry for email.
	Delete(ctx context.Context, email string) error
}

// PendingRegistrationCleaner purges abandoned durable sign-ups
type PendingRegistrationCleaner interface {
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int64, error)
}
