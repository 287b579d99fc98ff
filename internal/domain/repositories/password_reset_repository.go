package repositories

import (
	"context"

	"github.com/google/uuid"
	"giveora.backend/internal/domain/entities"
)

// PasswordResetCodeRepository stores issued password-reset codes
type PasswordResetCodeRepository interface {
	// Create marks every unused code for the email as used, then stores code.
	Create(ctx context.Context, code *entities.PasswordResetCode) error
	// LatestUnused returns the newest unused code or ErrNotFound.
	LatestUnused(ctx context.Context, email string) (*entities.PasswordResetCode, error)
	// IncrementAttempts records one wrong submission and returns the new count.
	IncrementAttempts(ctx context.Context, id uuid.UUID, maxAttempts int) (int, error)
	// MarkUsed flips used once. A second call returns ErrInvalidCode.
	MarkUsed(ctx context.Context, id uuid.UUID) error
}
