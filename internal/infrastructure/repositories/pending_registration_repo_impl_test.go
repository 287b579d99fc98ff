package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"giveora.backend/internal/domain/entities"
	domainerrors "giveora.backend/internal/domain/errors"
)

func newTestPending(email string) *entities.PendingRegistration {
	now := time.Now()
	return &entities.PendingRegistration{
		ID:                uuid.New(),
		Name:              "Hope Trust",
		Email:             email,
		PasswordHash:      "pw-hash",
		Role:              entities.UserRoleCharityAdmin,
		CodeHash:          "code-hash",
		VerificationToken: "token",
		ExpiresAt:         now.Add(15 * time.Minute),
		RegistrationData:  map[string]interface{}{"charity_name": "Hope Trust"},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestPendingRegistrationRepository_SaveAndGet(t *testing.T) {
	db := newTestDB(t)
	createPendingRegistrationTable(t, db)
	repo := NewPendingRegistrationRepository(db)
	ctx := context.Background()

	reg := newTestPending("Hope@Giveora.org")
	require.NoError(t, repo.Save(ctx, reg))

	got, err := repo.GetByEmail(ctx, "hope@giveora.org")
	require.NoError(t, err)
	require.Equal(t, reg.ID, got.ID)
	require.Equal(t, "Hope Trust", got.RegistrationData["charity_name"])
	require.Equal(t, entities.UserRoleCharityAdmin, got.Role)

	_, err = repo.GetByEmail(ctx, "nobody@giveora.org")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestPendingRegistrationRepository_SaveReplacesExisting(t *testing.T) {
	db := newTestDB(t)
	createPendingRegistrationTable(t, db)
	repo := NewPendingRegistrationRepository(db)
	ctx := context.Background()

	first := newTestPending("hope@giveora.org")
	require.NoError(t, repo.Save(ctx, first))
	_, err := repo.IncrementAttempts(ctx, first, 5)
	require.NoError(t, err)

	second := newTestPending("hope@giveora.org")
	second.CodeHash = "new-hash"
	require.NoError(t, repo.Save(ctx, second))

	got, err := repo.GetByEmail(ctx, "hope@giveora.org")
	require.NoError(t, err)
	require.Equal(t, second.ID, got.ID)
	require.Equal(t, "new-hash", got.CodeHash)
	require.Zero(t, got.Attempts)

	var count int64
	require.NoError(t, db.Table("pending_registrations").Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestPendingRegistrationRepository_IncrementAttemptsLocks(t *testing.T) {
	db := newTestDB(t)
	createPendingRegistrationTable(t, db)
	repo := NewPendingRegistrationRepository(db)
	ctx := context.Background()

	reg := newTestPending("hope@giveora.org")
	require.NoError(t, repo.Save(ctx, reg))

	for i := 1; i <= 5; i++ {
		n, err := repo.IncrementAttempts(ctx, reg, 5)
		require.NoError(t, err)
		require.Equal(t, i, n)
	}

	n, err := repo.IncrementAttempts(ctx, reg, 5)
	require.ErrorIs(t, err, domainerrors.ErrMaxAttempts)
	require.Equal(t, 5, n)
	require.Equal(t, 5, reg.Attempts)
}

func TestPendingRegistrationRepository_Regenerate(t *testing.T) {
	db := newTestDB(t)
	createPendingRegistrationTable(t, db)
	repo := NewPendingRegistrationRepository(db)
	ctx := context.Background()

	reg := newTestPending("hope@giveora.org")
	require.NoError(t, repo.Save(ctx, reg))
	_, err := repo.IncrementAttempts(ctx, reg, 5)
	require.NoError(t, err)

	for i := 1; i <= 3; i++ {
		reg.CodeHash = "hash-" + string(rune('0'+i))
		reg.ExpiresAt = time.Now().Add(15 * time.Minute)
		require.NoError(t, repo.Regenerate(ctx, reg, 3))
		require.Equal(t, i, reg.ResendCount)
		require.Zero(t, reg.Attempts)
	}

	err = repo.Regenerate(ctx, reg, 3)
	require.ErrorIs(t, err, domainerrors.ErrResendLimit)

	got, err := repo.GetByEmail(ctx, "hope@giveora.org")
	require.NoError(t, err)
	require.Equal(t, "hash-3", got.CodeHash)
	require.Equal(t, 3, got.ResendCount)

	missing := newTestPending("ghost@giveora.org")
	require.ErrorIs(t, repo.Regenerate(ctx, missing, 3), domainerrors.ErrNotFound)
}

func TestPendingRegistrationRepository_ConsumeOnce(t *testing.T) {
	db := newTestDB(t)
	createPendingRegistrationTable(t, db)
	repo := NewPendingRegistrationRepository(db)
	ctx := context.Background()

	reg := newTestPending("hope@giveora.org")
	require.NoError(t, repo.Save(ctx, reg))

	require.NoError(t, repo.Consume(ctx, reg))
	require.ErrorIs(t, repo.Consume(ctx, reg), domainerrors.ErrInvalidCode)

	_, err := repo.GetByEmail(ctx, "hope@giveora.org")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestPendingRegistrationRepository_DeleteAndDeleteExpired(t *testing.T) {
	db := newTestDB(t)
	createPendingRegistrationTable(t, db)
	repo := NewPendingRegistrationRepository(db)
	ctx := context.Background()

	stale := newTestPending("stale@giveora.org")
	stale.ExpiresAt = time.Now().Add(-48 * time.Hour)
	stale2 := newTestPending("stale2@giveora.org")
	stale2.ExpiresAt = time.Now().Add(-30 * time.Hour)
	fresh := newTestPending("fresh@giveora.org")
	gone := newTestPending("gone@giveora.org")
	for _, r := range []*entities.PendingRegistration{stale, stale2, fresh, gone} {
		require.NoError(t, repo.Save(ctx, r))
	}

	require.NoError(t, repo.Delete(ctx, "GONE@giveora.org"))
	_, err := repo.GetByEmail(ctx, "gone@giveora.org")
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	n, err := repo.DeleteExpired(ctx, time.Now().Add(-24*time.Hour), 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = repo.DeleteExpired(ctx, time.Now().Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = repo.GetByEmail(ctx, "fresh@giveora.org")
	require.NoError(t, err)
}
