package entities

import (
	"time"

	"github.com/google/uuid"
)

// PendingRegistration is a sign-up awaiting email code confirmation.
// CodeHash never holds the plaintext code.
type PendingRegistration struct {
	ID                uuid.UUID              `json:"id"`
	Name              string                 `json:"name"`
	Email             string                 `json:"email"`
	PasswordHash      string                 `json:"passwordHash"`
	Role              UserRole               `json:"role"`
	CodeHash          string                 `json:"codeHash"`
	VerificationToken string                 `json:"verificationToken"`
	ExpiresAt         time.Time              `json:"expiresAt"`
	Attempts          int                    `json:"attempts"`
	ResendCount       int                    `json:"resendCount"`
	RegistrationData  map[string]interface{} `json:"registrationData,omitempty"`
	CreatedAt         time.Time              `json:"createdAt"`
	UpdatedAt         time.Time              `json:"updatedAt"`
}

// Challenge returns the verifiable view of the pending code
func (p *PendingRegistration) Challenge() CodeChallenge {
	return CodeChallenge{CodeHash: p.CodeHash, ExpiresAt: p.ExpiresAt, Attempts: p.Attempts}
}

// CodeChallenge is the storage-agnostic state of an outstanding one-time code
type CodeChallenge struct {
	CodeHash  string
	ExpiresAt time.Time
	Attempts  int
}

// RegisterInput represents input for starting a registration
type RegisterInput struct {
	Name                 string                 `json:"name" binding:"required,min=2,max=255"`
	Email                string                 `json:"email" binding:"required,email,max=255"`
	Password             string                 `json:"password" binding:"required,password_policy"`
	PasswordConfirmation string                 `json:"password_confirmation" binding:"required,eqfield=Password"`
	Role                 UserRole               `json:"role" binding:"omitempty,oneof=donor charity_admin"`
	RegistrationData     map[string]interface{} `json:"registration_data"`
}

// EmailInput carries a single address (resend, forgot-password)
type EmailInput struct {
	Email string `json:"email" binding:"required,email,max=255"`
}

// VerifyCodeInput carries a code submission
type VerifyCodeInput struct {
	Email string `json:"email" binding:"required,email,max=255"`
	Code  string `json:"code" binding:"required,numeric,min=4,max=10"`
}

// RegistrationTicket is returned after a code has been issued
type RegistrationTicket struct {
	Email     string
	ExpiresIn time.Duration
}

// ResendTicket is returned after a code has been re-issued
type ResendTicket struct {
	RemainingResends int
	ExpiresIn        time.Duration
}
