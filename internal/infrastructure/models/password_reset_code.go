package models

import (
	"time"

	"github.com/google/uuid"
)

type PasswordResetCode struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email     string     `gorm:"type:varchar(255);not null;index;index:idx_reset_lookup,priority:1"`
	TokenHash string     `gorm:"type:varchar(255);not null"`
	Attempts  int        `gorm:"not null;default:0"`
	IP        string     `gorm:"column:ip;type:varchar(45)"`
	ExpiresAt time.Time  `gorm:"not null;index:idx_reset_lookup,priority:3"`
	Used      bool       `gorm:"not null;default:false;index:idx_reset_lookup,priority:2"`
	UsedAt    *time.Time `gorm:"type:timestamp"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PasswordResetCode) TableName() string { return "password_reset_codes" }
