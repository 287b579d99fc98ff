package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"giveora.backend/internal/domain/entities"
	domainerrors "giveora.backend/internal/domain/errors"
	"giveora.backend/internal/infrastructure/models"
	"gorm.io/gorm"
)

// PasswordResetCodeRepositoryImpl stores reset codes. Used rows are kept.
type PasswordResetCodeRepositoryImpl struct {
	db *gorm.DB
}

// NewPasswordResetCodeRepository creates a new password reset code repository
func NewPasswordResetCodeRepository(db *gorm.DB) *PasswordResetCodeRepositoryImpl {
	return &PasswordResetCodeRepositoryImpl{db: db}
}

// Create retires every outstanding code for the email and stores the new one
func (r *PasswordResetCodeRepositoryImpl) Create(ctx context.Context, code *entities.PasswordResetCode) error {
	m := toResetModel(code)
	now := time.Now()

	err := GetDB(ctx, r.db).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PasswordResetCode{}).
			Where("email = ? AND used = ?", m.Email, false).
			Updates(map[string]interface{}{"used": true, "used_at": now, "updated_at": now}).Error; err != nil {
			return err
		}
		return tx.Create(m).Error
	})
	if err != nil {
		return fmt.Errorf("create password reset code: %w", err)
	}
	return nil
}

// LatestUnused returns the newest unused code for email
func (r *PasswordResetCodeRepositoryImpl) LatestUnused(ctx context.Context, email string) (*entities.PasswordResetCode, error) {
	var m models.PasswordResetCode
	err := GetDB(ctx, r.db).WithContext(ctx).
		Where("email = ? AND used = ?", entities.NormalizeEmail(email), false).
		Order("created_at DESC").
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toResetEntity(&m), nil
}

// IncrementAttempts bumps attempts on an unused code while below the cap
func (r *PasswordResetCodeRepositoryImpl) IncrementAttempts(ctx context.Context, id uuid.UUID, maxAttempts int) (int, error) {
	db := GetDB(ctx, r.db).WithContext(ctx)
	result := db.Model(&models.PasswordResetCode{}).
		Where("id = ? AND used = ? AND attempts < ?", id, false, maxAttempts).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}

	var m models.PasswordResetCode
	if err := db.Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, domainerrors.ErrNotFound
		}
		return 0, err
	}
	if result.RowsAffected == 0 {
		if m.Used {
			return m.Attempts, domainerrors.ErrInvalidCode
		}
		return m.Attempts, domainerrors.ErrMaxAttempts
	}
	return m.Attempts, nil
}

// MarkUsed flips used exactly once
func (r *PasswordResetCodeRepositoryImpl) MarkUsed(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	result := GetDB(ctx, r.db).WithContext(ctx).Model(&models.PasswordResetCode{}).
		Where("id = ? AND used = ?", id, false).
		Updates(map[string]interface{}{"used": true, "used_at": now, "updated_at": now})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrInvalidCode
	}
	return nil
}

func toResetModel(c *entities.PasswordResetCode) *models.PasswordResetCode {
	return &models.PasswordResetCode{
		ID:        c.ID,
		Email:     entities.NormalizeEmail(c.Email),
		TokenHash: c.TokenHash,
		Attempts:  c.Attempts,
		IP:        c.IP,
		ExpiresAt: c.ExpiresAt,
		Used:      c.Used,
		UsedAt:    c.UsedAt.Ptr(),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toResetEntity(m *models.PasswordResetCode) *entities.PasswordResetCode {
	return &entities.PasswordResetCode{
		ID:        m.ID,
		Email:     m.Email,
		TokenHash: m.TokenHash,
		Attempts:  m.Attempts,
		IP:        m.IP,
		ExpiresAt: m.ExpiresAt,
		Used:      m.Used,
		UsedAt:    null.TimeFromPtr(m.UsedAt),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
