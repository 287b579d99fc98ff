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
	"gorm.io/gorm/clause"
)

// UserRepository implements user data operations
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user. A taken email yields ErrAlreadyExists.
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	m := toUserModel(user)
	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetByID gets a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	var m models.User
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toUserEntity(&m), nil
}

// GetByEmail gets a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	var m models.User
	if err := GetDB(ctx, r.db).WithContext(ctx).Where("email = ?", entities.NormalizeEmail(email)).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toUserEntity(&m), nil
}

// UpdatePassword replaces the password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	result := GetDB(ctx, r.db).WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"password_hash": passwordHash,
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// UpsertByEmail inserts the user or refreshes an existing row with the same email
func (r *UserRepository) UpsertByEmail(ctx context.Context, user *entities.User) error {
	m := toUserModel(user)
	err := GetDB(ctx, r.db).WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "password_hash", "role", "status", "email_verified_at", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func toUserModel(user *entities.User) *models.User {
	return &models.User{
		ID:              user.ID,
		Name:            user.Name,
		Email:           entities.NormalizeEmail(user.Email),
		PasswordHash:    user.PasswordHash,
		Role:            string(user.Role),
		Status:          string(user.Status),
		EmailVerifiedAt: user.EmailVerifiedAt.Ptr(),
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}
}

func toUserEntity(m *models.User) *entities.User {
	return &entities.User{
		ID:              m.ID,
		Name:            m.Name,
		Email:           m.Email,
		PasswordHash:    m.PasswordHash,
		Role:            entities.UserRole(m.Role),
		Status:          entities.UserStatus(m.Status),
		EmailVerifiedAt: null.TimeFromPtr(m.EmailVerifiedAt),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// ProfileRepository implements role profile creation
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// CreateDonorProfile creates the donor profile for a new donor account
func (r *ProfileRepository) CreateDonorProfile(ctx context.Context, profile *entities.DonorProfile) error {
	m := &models.DonorProfile{
		ID:        profile.ID,
		UserID:    profile.UserID,
		FullName:  profile.FullName,
		CreatedAt: profile.CreatedAt,
		UpdatedAt: profile.UpdatedAt,
	}
	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrAlreadyExists
		}
		return fmt.Errorf("create donor profile: %w", err)
	}
	return nil
}

// CreateCharity creates the charity owned by a new charity admin
func (r *ProfileRepository) CreateCharity(ctx context.Context, charity *entities.Charity) error {
	m := &models.Charity{
		ID:                 charity.ID,
		OwnerID:            charity.OwnerID,
		Name:               charity.Name,
		Description:        charity.Description,
		ContactEmail:       charity.ContactEmail,
		VerificationStatus: string(charity.VerificationStatus),
		CreatedAt:          charity.CreatedAt,
		UpdatedAt:          charity.UpdatedAt,
	}
	if err := GetDB(ctx, r.db).WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("create charity: %w", err)
	}
	return nil
}
