package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PendingRegistration struct {
	ID                uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Name              string         `gorm:"type:varchar(255);not null"`
	Email             string         `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash      string         `gorm:"column:password;type:varchar(255);not null"`
	Role              string         `gorm:"type:varchar(32);not null;default:'donor'"`
	CodeHash          string         `gorm:"column:verification_code;type:varchar(255);not null"`
	VerificationToken string         `gorm:"type:varchar(128);not null"`
	ExpiresAt         time.Time      `gorm:"not null;index"`
	Attempts          int            `gorm:"not null;default:0"`
	ResendCount       int            `gorm:"not null;default:0"`
	RegistrationData  datatypes.JSON `gorm:"type:json"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (PendingRegistration) TableName() string { return "pending_registrations" }
