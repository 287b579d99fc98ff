package entities

import (
	"time"

	"github.com/google/uuid"
)

// CharityVerificationStatus tracks admin review of a charity
type CharityVerificationStatus string

const (
	CharityPending  CharityVerificationStatus = "pending"
	CharityApproved CharityVerificationStatus = "approved"
	CharityRejected CharityVerificationStatus = "rejected"
)

// DonorProfile is created alongside every donor account
type DonorProfile struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	FullName  string    `json:"fullName"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Charity is created alongside every charity_admin account
type Charity struct {
	ID                 uuid.UUID                 `json:"id"`
	OwnerID            uuid.UUID                 `json:"ownerId"`
	Name               string                    `json:"name"`
	Description        string                    `json:"description"`
	ContactEmail       string                    `json:"contactEmail"`
	VerificationStatus CharityVerificationStatus `json:"verificationStatus"`
	CreatedAt          time.Time                 `json:"createdAt"`
	UpdatedAt          time.Time                 `json:"updatedAt"`
}

// VerifiedAccount is the outcome of a successful registration verification
type VerifiedAccount struct {
	User         *User
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}
