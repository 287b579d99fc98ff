package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// PasswordResetCode is an issued password-reset code. Rows are kept for audit.
type PasswordResetCode struct {
	ID        uuid.UUID
	Email     string
	TokenHash string
	Attempts  int
	IP        string
	ExpiresAt time.Time
	Used      bool
	UsedAt    null.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Challenge returns the verifiable view of the reset code
func (p *PasswordResetCode) Challenge() CodeChallenge {
	return CodeChallenge{CodeHash: p.TokenHash, ExpiresAt: p.ExpiresAt, Attempts: p.Attempts}
}

// ResetPasswordInput represents input for completing a password reset
type ResetPasswordInput struct {
	Email                string `json:"email" binding:"required,email,max=255"`
	Code                 string `json:"code" binding:"required,numeric,min=4,max=10"`
	Password             string `json:"password" binding:"required,password_policy"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required,eqfield=Password"`
}
