package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"giveora.backend/internal/domain/entities"
	domainerrors "giveora.backend/internal/domain/errors"
	"giveora.backend/internal/infrastructure/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PendingRegistrationRepositoryImpl keeps pending sign-ups in the shared
// pending_registrations table, one row per email.
type PendingRegistrationRepositoryImpl struct {
	db *gorm.DB
}

// NewPendingRegistrationRepository creates a new durable pending registration repository
func NewPendingRegistrationRepository(db *gorm.DB) *PendingRegistrationRepositoryImpl {
	return &PendingRegistrationRepositoryImpl{db: db}
}

// Save upserts on email so a re-submitted registration supersedes the previous row
func (r *PendingRegistrationRepositoryImpl) Save(ctx context.Context, reg *entities.PendingRegistration) error {
	m, err := toPendingModel(reg)
	if err != nil {
		return err
	}

	err = GetDB(ctx, r.db).WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"id", "name", "password", "role", "verification_code", "verification_token",
			"expires_at", "attempts", "resend_count", "registration_data", "created_at", "updated_at",
		}),
	}).Create(m).Error
	if err != nil {
		return fmt.Errorf("save pending registration: %w", err)
	}
	return nil
}

// GetByEmail returns the pending registration for email
func (r *PendingRegistrationRepositoryImpl) GetByEmail(ctx context.Context, email string) (*entities.PendingRegistration, error) {
	var m models.PendingRegistration
	err := GetDB(ctx, r.db).WithContext(ctx).
		Where("email = ?", entities.NormalizeEmail(email)).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toPendingEntity(&m)
}

// IncrementAttempts bumps attempts only while below the cap
func (r *PendingRegistrationRepositoryImpl) IncrementAttempts(ctx context.Context, reg *entities.PendingRegistration, maxAttempts int) (int, error) {
	db := GetDB(ctx, r.db).WithContext(ctx)
	result := db.Model(&models.PendingRegistration{}).
		Where("id = ? AND attempts < ?", reg.ID, maxAttempts).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, result.Error
	}

	current, err := r.reload(ctx, reg)
	if err != nil {
		return 0, err
	}
	reg.Attempts = current.Attempts
	if result.RowsAffected == 0 {
		return current.Attempts, domainerrors.ErrMaxAttempts
	}
	return current.Attempts, nil
}

// Regenerate stores a fresh code for reg while resend_count is below the cap
func (r *PendingRegistrationRepositoryImpl) Regenerate(ctx context.Context, reg *entities.PendingRegistration, maxResends int) error {
	db := GetDB(ctx, r.db).WithContext(ctx)
	result := db.Model(&models.PendingRegistration{}).
		Where("id = ? AND resend_count < ?", reg.ID, maxResends).
		Updates(map[string]interface{}{
			"verification_code":  reg.CodeHash,
			"verification_token": reg.VerificationToken,
			"expires_at":         reg.ExpiresAt,
			"attempts":           0,
			"resend_count":       gorm.Expr("resend_count + 1"),
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := r.reload(ctx, reg); err != nil {
			return err
		}
		return domainerrors.ErrResendLimit
	}

	current, err := r.reload(ctx, reg)
	if err != nil {
		return err
	}
	reg.Attempts = current.Attempts
	reg.ResendCount = current.ResendCount
	return nil
}

// Consume deletes the row if it still carries the verified code
func (r *PendingRegistrationRepositoryImpl) Consume(ctx context.Context, reg *entities.PendingRegistration) error {
	result := GetDB(ctx, r.db).WithContext(ctx).
		Where("id = ? AND verification_code = ?", reg.ID, reg.CodeHash).
		Delete(&models.PendingRegistration{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrInvalidCode
	}
	return nil
}

// Delete removes the row for email, if any
func (r *PendingRegistrationRepositoryImpl) Delete(ctx context.Context, email string) error {
	return GetDB(ctx, r.db).WithContext(ctx).
		Where("email = ?", entities.NormalizeEmail(email)).
		Delete(&models.PendingRegistration{}).Error
}

// DeleteExpired removes up to limit rows that expired before the cutoff
func (r *PendingRegistrationRepositoryImpl) DeleteExpired(ctx context.Context, before time.Time, limit int) (int64, error) {
	db := GetDB(ctx, r.db).WithContext(ctx)
	ids := db.Model(&models.PendingRegistration{}).
		Select("id").
		Where("expires_at < ?", before).
		Limit(limit)

	result := db.Where("id IN (?)", ids).Delete(&models.PendingRegistration{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *PendingRegistrationRepositoryImpl) reload(ctx context.Context, reg *entities.PendingRegistration) (*models.PendingRegistration, error) {
	var m models.PendingRegistration
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("id = ?", reg.ID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func toPendingModel(reg *entities.PendingRegistration) (*models.PendingRegistration, error) {
	var data datatypes.JSON
	if len(reg.RegistrationData) > 0 {
		raw, err := json.Marshal(reg.RegistrationData)
		if err != nil {
			return nil, fmt.Errorf("encode registration data: %w", err)
		}
		data = datatypes.JSON(raw)
	}
	return &models.PendingRegistration{
		ID:                reg.ID,
		Name:              reg.Name,
		Email:             entities.NormalizeEmail(reg.Email),
		PasswordHash:      reg.PasswordHash,
		Role:              string(reg.Role),
		CodeHash:          reg.CodeHash,
		VerificationToken: reg.VerificationToken,
		ExpiresAt:         reg.ExpiresAt,
		Attempts:          reg.Attempts,
		ResendCount:       reg.ResendCount,
		RegistrationData:  data,
		CreatedAt:         reg.CreatedAt,
		UpdatedAt:         reg.UpdatedAt,
	}, nil
}

func toPendingEntity(m *models.PendingRegistration) (*entities.PendingRegistration, error) {
	var data map[string]interface{}
	if len(m.RegistrationData) > 0 {
		if err := json.Unmarshal(m.RegistrationData, &data); err != nil {
			return nil, fmt.Errorf("decode registration data: %w", err)
		}
	}
	return &entities.PendingRegistration{
		ID:                m.ID,
		Name:              m.Name,
		Email:             m.Email,
		PasswordHash:      m.PasswordHash,
		Role:              entities.UserRole(m.Role),
		CodeHash:          m.CodeHash,
		VerificationToken: m.VerificationToken,
		ExpiresAt:         m.ExpiresAt,
		Attempts:          m.Attempts,
		ResendCount:       m.ResendCount,
		RegistrationData:  data,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}, nil
}
