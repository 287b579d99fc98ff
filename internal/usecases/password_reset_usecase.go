package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"giveora.backend/internal/domain/entities"
	domainerrors "giveora.backend/internal/domain/errors"
	"giveora.backend/internal/domain/repositories"
	"giveora.backend/internal/infrastructure/notification"
	"giveora.backend/pkg/crypto"
	"giveora.backend/pkg/logger"
	"giveora.backend/pkg/metrics"
	"go.uber.org/zap"
)

const forgotPasswordAction = "forgot-password"

// RateLimitPolicy caps requests per key inside a window
type RateLimitPolicy struct {
	MaxAttempts int
	Window      time.Duration
}

// PasswordResetUsecase handles forgot-password and reset-by-code
type PasswordResetUsecase struct {
	userRepo       repositories.UserRepository
	resetRepo      repositories.PasswordResetCodeRepository
	limiter        repositories.RateLimiter
	uow            repositories.UnitOfWork
	passwordHasher crypto.SecretHasher
	codeHasher     crypto.SecretHasher
	verifier       *CodeVerifier
	notifier       Notifier
	policy         CodePolicy
	limit          RateLimitPolicy
	now            func() time.Time
}

// NewPasswordResetUsecase creates a new password reset usecase
func NewPasswordResetUsecase(
	userRepo repositories.UserRepository,
	resetRepo repositories.PasswordResetCodeRepository,
	limiter repositories.RateLimiter,
	uow repositories.UnitOfWork,
	passwordHasher crypto.SecretHasher,
	codeHasher crypto.SecretHasher,
	notifier Notifier,
	policy CodePolicy,
	limit RateLimitPolicy,
) *PasswordResetUsecase {
	return &PasswordResetUsecase{
		userRepo:       userRepo,
		resetRepo:      resetRepo,
		limiter:        limiter,
		uow:            uow,
		passwordHasher: passwordHasher,
		codeHasher:     codeHasher,
		verifier:       NewCodeVerifier(codeHasher, policy.MaxAttempts),
		notifier:       notifier,
		policy:         policy,
		limit:          limit,
		now:            time.Now,
	}
}

// ForgotPassword issues a reset code when the email belongs to an account.
// The result is the same whether or not it does.
func (u *PasswordResetUsecase) ForgotPassword(ctx context.Context, email, ip string) error {
	email = entities.NormalizeEmail(email)

	decision, err := u.limiter.Attempt(ctx, rateLimitKeys(forgotPasswordAction, email, ip), u.limit.MaxAttempts, u.limit.Window)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if !decision.Allowed {
		metrics.RateLimited.WithLabelValues(forgotPasswordAction).Inc()
		logger.Warn(ctx, "Forgot-password rate limited",
			zap.String("email", logger.MaskEmail(email)),
			zap.String("ip", ip),
			zap.Duration("retry_after", decision.RetryAfter),
		)
		return &domainerrors.RateLimitError{RetryAfter: decision.RetryAfter}
	}

	user, err := u.userRepo.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, domainerrors.ErrNotFound) {
		return err
	}

	// unknown emails still hash a code and take the locked lookup
	code, codeHash, err := issueCode(u.codeHasher, u.policy.Length)
	if err != nil {
		return fmt.Errorf("issue code: %w", err)
	}

	now := u.now()
	reset := &entities.PasswordResetCode{
		ID:        uuid.New(),
		Email:     email,
		TokenHash: codeHash,
		IP:        ip,
		ExpiresAt: now.Add(u.policy.TTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		if _, err := u.resetRepo.LatestUnused(u.uow.WithLock(txCtx), email); err != nil && !errors.Is(err, domainerrors.ErrNotFound) {
			return err
		}
		if user == nil {
			return nil
		}
		return u.resetRepo.Create(txCtx, reset)
	})
	if err != nil {
		return err
	}
	if user == nil {
		logger.Debug(ctx, "Forgot-password for unknown email", zap.String("email", logger.MaskEmail(email)))
		return nil
	}

	metrics.CodesIssued.WithLabelValues(flowPasswordReset, "forgot").Inc()
	logger.Info(ctx, "Password reset code issued", zap.String("user_id", user.ID.String()))
	notify(ctx, u.notifier, notification.Message{
		To:       user.Email,
		Name:     user.Name,
		Template: notification.TemplatePasswordResetCode,
		Data: map[string]any{
			"Code":             code,
			"ExpiresAt":        reset.ExpiresAt.Format("3:04 PM"),
			"ExpiresInMinutes": int(u.policy.TTL / time.Minute),
		},
	})
	return nil
}

// ResendResetCode issues a fresh code through the same limiter as ForgotPassword
func (u *PasswordResetUsecase) ResendResetCode(ctx context.Context, email, ip string) error {
	return u.ForgotPassword(ctx, email, ip)
}

// VerifyResetCode checks a code without consuming it
func (u *PasswordResetUsecase) VerifyResetCode(ctx context.Context, email, code string) error {
	_, err := u.checkCode(ctx, email, code)
	return err
}

// ResetPassword consumes the code and replaces the password in one transaction.
// The code row is locked for the duration of the transaction.
func (u *PasswordResetUsecase) ResetPassword(ctx context.Context, input *entities.ResetPasswordInput, ip string) error {
	reset, err := u.checkCode(ctx, input.Email, input.Code)
	if err != nil {
		return err
	}

	user, err := u.userRepo.GetByEmail(ctx, reset.Email)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return domainerrors.ErrInvalidCode
		}
		return err
	}

	passwordHash, err := u.passwordHasher.Hash(input.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = u.uow.Do(ctx, func(txCtx context.Context) error {
		// re-read under a row lock; a code superseded or consumed since the check is rejected
		current, err := u.resetRepo.LatestUnused(u.uow.WithLock(txCtx), reset.Email)
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				return domainerrors.ErrInvalidCode
			}
			return err
		}
		if current.ID != reset.ID {
			return domainerrors.ErrInvalidCode
		}
		if err := u.resetRepo.MarkUsed(txCtx, reset.ID); err != nil {
			return err
		}
		return u.userRepo.UpdatePassword(txCtx, user.ID, passwordHash)
	})
	if err != nil {
		return err
	}

	if ip == "" {
		ip = "Unknown"
	}
	logger.Info(ctx, "Password reset completed", zap.String("user_id", user.ID.String()), zap.String("ip", ip))
	notify(ctx, u.notifier, notification.Message{
		To:       user.Email,
		Name:     user.Name,
		Template: notification.TemplatePasswordChanged,
		Data: map[string]any{
			"ChangedAt": u.now().Format("January 02, 2006 03:04 PM"),
			"IPAddress": ip,
		},
	})
	return nil
}

// checkCode applies the lookup, expiry, lockout and match rules.
// A locked code is marked used so it stops being the active code.
func (u *PasswordResetUsecase) checkCode(ctx context.Context, email, code string) (*entities.PasswordResetCode, error) {
	reset, err := u.resetRepo.LatestUnused(ctx, entities.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			recordVerification(flowPasswordReset, "invalid")
			return nil, domainerrors.ErrInvalidCode
		}
		return nil, err
	}

	switch u.verifier.Evaluate(reset.Challenge(), code, u.now()) {
	case VerdictExpired:
		recordVerification(flowPasswordReset, "expired")
		return nil, domainerrors.ErrCodeExpired
	case VerdictLocked:
		recordVerification(flowPasswordReset, "locked")
		return nil, u.lock(ctx, reset)
	case VerdictMismatch:
		recordVerification(flowPasswordReset, "mismatch")
		return nil, u.rejectCode(ctx, reset)
	}

	recordVerification(flowPasswordReset, "accepted")
	return reset, nil
}

func (u *PasswordResetUsecase) rejectCode(ctx context.Context, reset *entities.PasswordResetCode) error {
	maxAttempts := u.verifier.MaxAttempts()
	attempts, err := u.resetRepo.IncrementAttempts(ctx, reset.ID, maxAttempts)
	if err != nil {
		switch {
		case errors.Is(err, domainerrors.ErrMaxAttempts):
			return u.lock(ctx, reset)
		case errors.Is(err, domainerrors.ErrInvalidCode), errors.Is(err, domainerrors.ErrNotFound):
			return domainerrors.ErrInvalidCode
		}
		return err
	}
	if attempts >= maxAttempts {
		return u.lock(ctx, reset)
	}
	return &domainerrors.CodeRejectedError{RemainingAttempts: maxAttempts - attempts}
}

func (u *PasswordResetUsecase) lock(ctx context.Context, reset *entities.PasswordResetCode) error {
	if err := u.resetRepo.MarkUsed(ctx, reset.ID); err != nil && !errors.Is(err, domainerrors.ErrInvalidCode) {
		return err
	}
	logger.Warn(ctx, "Password reset code locked after failed attempts", zap.String("email", logger.MaskEmail(reset.Email)))
	return domainerrors.ErrMaxAttempts
}

func rateLimitKeys(action, email, ip string) []string {
	if ip == "" {
		ip = "unknown"
	}
	return []string{
		action + ":email:" + email,
		action + ":ip:" + ip,
	}
}
