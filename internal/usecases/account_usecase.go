package usecases

import (
	"context"

	"github.com/google/uuid"
	"giveora.backend/internal/domain/entities"
	"giveora.backend/internal/domain/repositories"
)

// AccountUsecase serves the signed-in user's own account
type AccountUsecase struct {
	userRepo repositories.UserRepository
}

// NewAccountUsecase creates a new account usecase
func NewAccountUsecase(userRepo repositories.UserRepository) *AccountUsecase {
	return &AccountUsecase{userRepo: userRepo}
}

// GetUserByID gets a user by ID
func (u *AccountUsecase) GetUserByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	return u.userRepo.GetByID(ctx, id)
}
