package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name            string     `gorm:"type:varchar(255);not null"`
	Email           string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash    string     `gorm:"column:password_hash;type:varchar(255);not null"`
	Role            string     `gorm:"type:varchar(32);not null;default:'donor'"`
	Status          string     `gorm:"type:varchar(32);not null;default:'active'"`
	EmailVerifiedAt *time.Time `gorm:"type:timestamp"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

func (User) TableName() string { return "users" }

type DonorProfile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	FullName  string    `gorm:"type:varchar(255)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (DonorProfile) TableName() string { return "donor_profiles" }

type Charity struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID            uuid.UUID `gorm:"type:uuid;not null;index"`
	Name               string    `gorm:"type:varchar(255);not null"`
	Description        string    `gorm:"type:text"`
	ContactEmail       string    `gorm:"type:varchar(255)"`
	VerificationStatus string    `gorm:"type:varchar(32);not null;default:'pending'"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          gorm.DeletedAt `gorm:"index"`
}

func (Charity) TableName() string { return "charities" }
