package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"giveora.backend/internal/domain/entities"
	domainerrors "giveora.backend/internal/domain/errors"
	"giveora.backend/pkg/logger"
	pkgredis "giveora.backend/pkg/redis"
	"go.uber.org/zap"
)

const sessionCASRetries = 5

var (
	sessionClient = pkgredis.GetClient
	logWarn       = logger.Warn
)

// PendingRegistrationSessionRepository keeps one pending sign-up per client
// session in Redis. The session ID travels in the request context.
type PendingRegistrationSessionRepository struct {
	store *pkgredis.SessionStore
	ttl   time.Duration
}

// NewPendingRegistrationSessionRepository creates the session-scoped store
func NewPendingRegistrationSessionRepository(store *pkgredis.SessionStore, ttl time.Duration) *PendingRegistrationSessionRepository {
	return &PendingRegistrationSessionRepository{store: store, ttl: ttl}
}

// Save replaces the session entry with reg
func (r *PendingRegistrationSessionRepository) Save(ctx context.Context, reg *entities.PendingRegistration) error {
	sid, ok := pkgredis.SessionIDFromContext(ctx)
	if !ok {
		return domainerrors.ErrNoSession
	}
	reg.Email = entities.NormalizeEmail(reg.Email)
	if err := r.store.Save(ctx, sid, reg, r.ttl); err != nil {
		return fmt.Errorf("save registration session: %w", err)
	}
	return nil
}

// GetByEmail returns the session entry when it belongs to email
func (r *PendingRegistrationSessionRepository) GetByEmail(ctx context.Context, email string) (*entities.PendingRegistration, error) {
	sid, ok := pkgredis.SessionIDFromContext(ctx)
	if !ok {
		return nil, domainerrors.ErrNotFound
	}

	var reg entities.PendingRegistration
	if err := r.store.Load(ctx, sid, &reg); err != nil {
		if errors.Is(err, pkgredis.ErrSessionNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	if !strings.EqualFold(reg.Email, entities.NormalizeEmail(email)) {
		return nil, domainerrors.ErrNotFound
	}
	return &reg, nil
}

// IncrementAttempts bumps attempts only while below the cap
func (r *PendingRegistrationSessionRepository) IncrementAttempts(ctx context.Context, reg *entities.PendingRegistration, maxAttempts int) (int, error) {
	attempts := 0
	err := r.mutate(ctx, reg, 0, func(current *entities.PendingRegistration) error {
		attempts = current.Attempts
		if current.Attempts >= maxAttempts {
			return domainerrors.ErrMaxAttempts
		}
		current.Attempts++
		current.UpdatedAt = time.Now()
		attempts = current.Attempts
		return nil
	})
	reg.Attempts = attempts
	return attempts, err
}

// Regenerate swaps in the new code while resend_count is below the cap.
// The entry TTL restarts with the new code.
func (r *PendingRegistrationSessionRepository) Regenerate(ctx context.Context, reg *entities.PendingRegistration, maxResends int) error {
	var resends int
	err := r.mutate(ctx, reg, r.ttl, func(current *entities.PendingRegistration) error {
		if current.ResendCount >= maxResends {
			return domainerrors.ErrResendLimit
		}
		current.CodeHash = reg.CodeHash
		current.VerificationToken = reg.VerificationToken
		current.ExpiresAt = reg.ExpiresAt
		current.Attempts = 0
		current.ResendCount++
		current.UpdatedAt = time.Now()
		resends = current.ResendCount
		return nil
	})
	if err != nil {
		return err
	}
	reg.Attempts = 0
	reg.ResendCount = resends
	return nil
}

// Consume checks the entry still carries the verified code and deletes it
// once the surrounding transaction commits.
func (r *PendingRegistrationSessionRepository) Consume(ctx context.Context, reg *entities.PendingRegistration) error {
	sid, ok := pkgredis.SessionIDFromContext(ctx)
	if !ok {
		return domainerrors.ErrNoSession
	}

	var current entities.PendingRegistration
	if err := r.store.Load(ctx, sid, &current); err != nil {
		if errors.Is(err, pkgredis.ErrSessionNotFound) {
			return domainerrors.ErrInvalidCode
		}
		return err
	}
	if current.ID != reg.ID || current.CodeHash != reg.CodeHash {
		return domainerrors.ErrInvalidCode
	}

	AfterCommit(ctx, func(ctx context.Context) {
		if err := r.deleteIfMatches(ctx, sid, reg); err != nil {
			logWarn(ctx, "Failed to delete consumed registration session",
				zap.String("session_id", sid),
				zap.Error(err),
			)
		}
	})
	return nil
}

// Delete removes the session entry when it belongs to email
func (r *PendingRegistrationSessionRepository) Delete(ctx context.Context, email string) error {
	reg, err := r.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil
		}
		return err
	}
	sid, _ := pkgredis.SessionIDFromContext(ctx)
	return r.deleteIfMatches(ctx, sid, reg)
}

func (r *PendingRegistrationSessionRepository) deleteIfMatches(ctx context.Context, sid string, reg *entities.PendingRegistration) error {
	client := sessionClient()
	if client == nil {
		return pkgredis.ErrNotInitialized
	}
	key := r.store.Key(sid)

	return client.Watch(ctx, func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if err != nil {
			if pkgredis.IsNil(err) {
				return nil
			}
			return err
		}
		var current entities.PendingRegistration
		if err := r.store.Open(raw, &current); err != nil {
			return err
		}
		if current.ID != reg.ID {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Del(ctx, key)
			return nil
		})
		return err
	}, key)
}

// mutate applies fn to the stored entry under WATCH and writes it back.
// A zero ttl keeps the current expiry.
func (r *PendingRegistrationSessionRepository) mutate(ctx context.Context, reg *entities.PendingRegistration, ttl time.Duration, fn func(*entities.PendingRegistration) error) error {
	sid, ok := pkgredis.SessionIDFromContext(ctx)
	if !ok {
		return domainerrors.ErrNoSession
	}
	client := sessionClient()
	if client == nil {
		return pkgredis.ErrNotInitialized
	}
	key := r.store.Key(sid)

	txf := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Result()
		if err != nil {
			if pkgredis.IsNil(err) {
				return domainerrors.ErrNotFound
			}
			return err
		}

		var current entities.PendingRegistration
		if err := r.store.Open(raw, &current); err != nil {
			return err
		}
		if current.ID != reg.ID {
			return domainerrors.ErrNotFound
		}
		if err := fn(&current); err != nil {
			return err
		}

		sealed, err := r.store.Seal(&current)
		if err != nil {
			return err
		}
		expiration := ttl
		if expiration <= 0 {
			expiration = goredis.KeepTTL
		}
		_, err = tx.TxPipelined(ctx, func(p goredis.Pipeliner) error {
			p.Set(ctx, key, sealed, expiration)
			return nil
		})
		return err
	}

	for i := 0; i < sessionCASRetries; i++ {
		err := client.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("registration session %s: %w", sid, goredis.TxFailedErr)
}
