package repositories

import (
	"context"

	"github.com/google/uuid"
	"giveora.backend/internal/domain/entities"
)

// UserRepository defines user data operations
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	// UpsertByEmail creates the user or overwrites name, password, role and status
	UpsertByEmail(ctx context.Context, user *entities.User) error
}

// ProfileRepository creates the role-specific record that accompanies a new account
type ProfileRepository interface {
	CreateDonorProfile(ctx context.Context, profile *entities.DonorProfile) error
	CreateCharity(ctx context.Context, charity *entities.Charity) error
}
