package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"giveora.backend/internal/domain/entities"
	domainerrors "giveora.backend/internal/domain/errors"
	"giveora.backend/internal/domain/repositories"
	"giveora.backend/internal/infrastructure/notification"
	"giveora.backend/pkg/crypto"
	"giveora.backend/pkg/jwt"
	"giveora.backend/pkg/logger"
	"giveora.backend/pkg/metrics"
	"go.uber.org/zap"
)

// TokenIssuer mints the session tokens handed out after verification
type TokenIssuer interface {
	GenerateTokenPair(userID uuid.UUID, email, role string) (*jwt.TokenPair, error)
}

// RegistrationUsecase runs sign-up by emailed code. Donors are staged in the
// client session, charity admins in the shared pending_registrations table.
type RegistrationUsecase struct {
	userRepo       repositories.UserRepository
	profileRepo    repositories.ProfileRepository
	sessionStore   repositories.PendingRegistrationRepository
	durableStore   repositories.PendingRegistrationRepository
	uow            repositories.UnitOfWork
	passwordHasher crypto.SecretHasher
	codeHasher     crypto.SecretHasher
	verifier       *CodeVerifier
	tokens         TokenIssuer
	notifier       Notifier
	policy         CodePolicy
	dashboardURL   string
	now            func() time.Time
}

// NewRegistrationUsecase creates a new registration usecase
func NewRegistrationUsecase(
	userRepo repositories.UserRepository,
	profileRepo repositories.ProfileRepository,
	sessionStore repositories.PendingRegistrationRepository,
	durableStore repositories.PendingRegistrationRepository,
	uow repositories.UnitOfWork,
	passwordHasher crypto.SecretHasher,
	codeHasher crypto.SecretHasher,
	tokens TokenIssuer,
	notifier Notifier,
	policy CodePolicy,
	dashboardURL string,
) *RegistrationUsecase {
	return &RegistrationUsecase{
		userRepo:       userRepo,
		profileRepo:    profileRepo,
		sessionStore:   sessionStore,
		durableStore:   durableStore,
		uow:            uow,
		passwordHasher: passwordHasher,
		codeHasher:     codeHasher,
		verifier:       NewCodeVerifier(codeHasher, policy.MaxAttempts),
		tokens:         tokens,
		notifier:       notifier,
		policy:         policy,
		dashboardURL:   strings.TrimRight(dashboardURL, "/"),
		now:            time.Now,
	}
}

// Start stages a registration and sends its verification code.
// Re-submitting for the same email replaces the staged entry.
func (u *RegistrationUsecase) Start(ctx context.Context, input *entities.RegisterInput) (*entities.RegistrationTicket, error) {
	email := entities.NormalizeEmail(input.Email)
	role := input.Role
	if role == "" {
		role = entities.UserRoleDonor
	}
	if !role.SelfRegistrable() {
		return nil, domainerrors.ErrInvalidInput
	}

	_, err := u.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil, domainerrors.ErrAlreadyExists
	}
	if !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, err
	}

	passwordHash, err := u.passwordHasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	code, codeHash, err := issueCode(u.codeHasher, u.policy.Length)
	if err != nil {
		return nil, fmt.Errorf("issue code: %w", err)
	}
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := u.now()
	reg := &entities.PendingRegistration{
		ID:                uuid.New(),
		Name:              strings.TrimSpace(input.Name),
		Email:             email,
		PasswordHash:      passwordHash,
		Role:              role,
		CodeHash:          codeHash,
		VerificationToken: token,
		ExpiresAt:         now.Add(u.policy.TTL),
		RegistrationData:  input.RegistrationData,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := u.storeFor(role).Save(ctx, reg); err != nil {
		return nil, err
	}
	if !role.UsesSessionStore() {
		// a donor attempt earlier in this session must not shadow the durable row
		if err := u.sessionStore.Delete(ctx, email); err != nil {
			logger.Warn(ctx, "Failed to clear registration session entry", zap.Error(err))
		}
	}

	metrics.CodesIssued.WithLabelValues(flowRegistration, "start").Inc()
	logger.Info(ctx, "Registration started",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("role", string(role)),
	)
	u.sendCode(ctx, reg, code)

	return &entities.RegistrationTicket{Email: email, ExpiresIn: u.policy.TTL}, nil
}

// Resend replaces the pending code with a fresh one
func (u *RegistrationUsecase) Resend(ctx context.Context, email string) (*entities.ResendTicket, error) {
	reg, store, err := u.findPending(ctx, email)
	if err != nil {
		return nil, err
	}
	if reg.ResendCount >= u.policy.MaxResends {
		return nil, domainerrors.ErrResendLimit
	}

	code, codeHash, err := issueCode(u.codeHasher, u.policy.Length)
	if err != nil {
		return nil, fmt.Errorf("issue code: %w", err)
	}
	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	reg.CodeHash = codeHash
	reg.VerificationToken = token
	reg.ExpiresAt = u.now().Add(u.policy.TTL)

	if err := store.Regenerate(ctx, reg, u.policy.MaxResends); err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.ErrInvalidCode
		}
		return nil, err
	}

	metrics.CodesIssued.WithLabelValues(flowRegistration, "resend").Inc()
	logger.Info(ctx, "Registration code resent",
		zap.String("email", logger.MaskEmail(reg.Email)),
		zap.Int("resend_count", reg.ResendCount),
	)
	u.sendCode(ctx, reg, code)

	return &entities.ResendTicket{
		RemainingResends: u.policy.MaxResends - reg.ResendCount,
		ExpiresIn:        u.policy.TTL,
	}, nil
}

// Verify checks the code and, on a match, creates the account in one transaction
func (u *RegistrationUsecase) Verify(ctx context.Context, email, code string) (*entities.VerifiedAccount, error) {
	reg, store, err := u.findPending(ctx, email)
	if err != nil {
		recordVerification(flowRegistration, "invalid")
		return nil, err
	}

	switch u.verifier.Evaluate(reg.Challenge(), code, u.now()) {
	case VerdictExpired:
		recordVerification(flowRegistration, "expired")
		return nil, domainerrors.ErrCodeExpired
	case VerdictLocked:
		recordVerification(flowRegistration, "locked")
		return nil, domainerrors.ErrMaxAttempts
	case VerdictMismatch:
		recordVerification(flowRegistration, "mismatch")
		return nil, u.rejectCode(ctx, store, reg)
	}

	user, err := u.materialize(ctx, store, reg)
	if err != nil {
		return nil, err
	}
	recordVerification(flowRegistration, "accepted")
	logger.Info(ctx, "Registration verified",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)

	notify(ctx, u.notifier, notification.Message{
		To:       user.Email,
		Name:     user.Name,
		Template: notification.TemplateWelcome,
		Data: map[string]any{
			"Role":         string(user.Role),
			"DashboardURL": u.dashboardFor(user.Role),
		},
	})

	account := &entities.VerifiedAccount{User: user}
	// the account is already committed; token failures do not undo it
	pair, err := u.tokens.GenerateTokenPair(user.ID, user.Email, string(user.Role))
	if err != nil {
		logger.Error(ctx, "Failed to issue tokens for verified account",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return account, nil
	}
	account.AccessToken = pair.AccessToken
	account.RefreshToken = pair.RefreshToken
	account.ExpiresIn = pair.ExpiresIn
	return account, nil
}

func (u *RegistrationUsecase) rejectCode(ctx context.Context, store repositories.PendingRegistrationRepository, reg *entities.PendingRegistration) error {
	maxAttempts := u.verifier.MaxAttempts()
	attempts, err := store.IncrementAttempts(ctx, reg, maxAttempts)
	if err != nil {
		switch {
		case errors.Is(err, domainerrors.ErrMaxAttempts):
			return domainerrors.ErrMaxAttempts
		case errors.Is(err, domainerrors.ErrNotFound):
			return domainerrors.ErrInvalidCode
		}
		return err
	}
	if attempts >= maxAttempts {
		logger.Warn(ctx, "Registration locked after failed attempts",
			zap.String("email", logger.MaskEmail(reg.Email)),
			zap.Int("attempts", attempts),
		)
		return domainerrors.ErrMaxAttempts
	}
	return &domainerrors.CodeRejectedError{RemainingAttempts: maxAttempts - attempts}
}

// materialize creates the user and role profile and consumes the pending entry atomically
func (u *RegistrationUsecase) materialize(ctx context.Context, store repositories.PendingRegistrationRepository, reg *entities.PendingRegistration) (*entities.User, error) {
	now := u.now()
	user := &entities.User{
		ID:              uuid.New(),
		Name:            reg.Name,
		Email:           reg.Email,
		PasswordHash:    reg.PasswordHash,
		Role:            reg.Role,
		Status:          entities.UserStatusActive,
		EmailVerifiedAt: null.TimeFrom(now),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := u.uow.Do(ctx, func(txCtx context.Context) error {
		if err := u.userRepo.Create(txCtx, user); err != nil {
			if errors.Is(err, domainerrors.ErrAlreadyExists) {
				// a concurrent verify already created the account
				return domainerrors.ErrInvalidCode
			}
			return err
		}
		if err := u.createProfile(txCtx, user, reg); err != nil {
			return err
		}
		return store.Consume(txCtx, reg)
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrInvalidCode) {
			recordVerification(flowRegistration, "invalid")
		}
		return nil, err
	}
	return user, nil
}

func (u *RegistrationUsecase) createProfile(ctx context.Context, user *entities.User, reg *entities.PendingRegistration) error {
	now := u.now()
	if user.Role == entities.UserRoleCharityAdmin {
		name := stringField(reg.RegistrationData, "charity_name")
		if name == "" {
			name = user.Name
		}
		return u.profileRepo.CreateCharity(ctx, &entities.Charity{
			ID:                 uuid.New(),
			OwnerID:            user.ID,
			Name:               name,
			Description:        stringField(reg.RegistrationData, "description"),
			ContactEmail:       user.Email,
			VerificationStatus: entities.CharityPending,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
	}
	return u.profileRepo.CreateDonorProfile(ctx, &entities.DonorProfile{
		ID:        uuid.New(),
		UserID:    user.ID,
		FullName:  user.Name,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// findPending looks in the client session first, then in the shared table
func (u *RegistrationUsecase) findPending(ctx context.Context, email string) (*entities.PendingRegistration, repositories.PendingRegistrationRepository, error) {
	email = entities.NormalizeEmail(email)
	for _, store := range []repositories.PendingRegistrationRepository{u.sessionStore, u.durableStore} {
		reg, err := store.GetByEmail(ctx, email)
		if err == nil {
			return reg, store, nil
		}
		if !errors.Is(err, domainerrors.ErrNotFound) {
			return nil, nil, err
		}
	}
	return nil, nil, domainerrors.ErrInvalidCode
}

func (u *RegistrationUsecase) storeFor(role entities.UserRole) repositories.PendingRegistrationRepository {
	if role.UsesSessionStore() {
		return u.sessionStore
	}
	return u.durableStore
}

func (u *RegistrationUsecase) sendCode(ctx context.Context, reg *entities.PendingRegistration, code string) {
	notify(ctx, u.notifier, notification.Message{
		To:       reg.Email,
		Name:     reg.Name,
		Template: notification.TemplateVerificationCode,
		Data: map[string]any{
			"Code":             code,
			"ExpiresAt":        reg.ExpiresAt.Format("3:04 PM, January 2, 2006"),
			"ExpiresInMinutes": int(u.policy.TTL / time.Minute),
			"MaxAttempts":      u.policy.MaxAttempts,
			"MaxResends":       u.policy.MaxResends,
		},
	})
}

func (u *RegistrationUsecase) dashboardFor(role entities.UserRole) string {
	if role == entities.UserRoleCharityAdmin {
		return u.dashboardURL + "/charity/dashboard"
	}
	return u.dashboardURL + "/donor/dashboard"
}

func stringField(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
