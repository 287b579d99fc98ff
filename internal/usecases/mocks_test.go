package usecases_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"giveora.backend/internal/domain/entities"
	domainerrors "giveora.backend/internal/domain/errors"
	"giveora.backend/internal/domain/repositories"
	"giveora.backend/internal/infrastructure/notification"
)

// Mock UnitOfWork
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Do(ctx context.Context, f func(context.Context) error) error {
	m.Called(ctx, f)
	return f(ctx)
}

type lockedCtxKey struct{}

func (m *MockUnitOfWork) WithLock(ctx context.Context) context.Context {
	m.Called(ctx)
	return context.WithValue(ctx, lockedCtxKey{}, true)
}

func isLocked(ctx context.Context) bool {
	locked, _ := ctx.Value(lockedCtxKey{}).(bool)
	return locked
}

// Mock UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entities.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.User), args.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *MockUserRepository) UpsertByEmail(ctx context.Context, user *entities.User) error {
	return m.Called(ctx, user).Error(0)
}

// Mock ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) CreateDonorProfile(ctx context.Context, profile *entities.DonorProfile) error {
	return m.Called(ctx, profile).Error(0)
}

func (m *MockProfileRepository) CreateCharity(ctx context.Context, charity *entities.Charity) error {
	return m.Called(ctx, charity).Error(0)
}

// Mock RateLimiter
type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	args := m.Called(ctx, key, window)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRateLimiter) TooManyAttempts(ctx context.Context, key string, maxAttempts int) (bool, error) {
	args := m.Called(ctx, key, maxAttempts)
	return args.Bool(0), args.Error(1)
}

func (m *MockRateLimiter) AvailableIn(ctx context.Context, key string) (time.Duration, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(time.Duration), args.Error(1)
}

func (m *MockRateLimiter) Clear(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockRateLimiter) Attempt(ctx context.Context, keys []string, maxAttempts int, window time.Duration) (repositories.RateDecision, error) {
	args := m.Called(ctx, keys, maxAttempts, window)
	return args.Get(0).(repositories.RateDecision), args.Error(1)
}

// recordingNotifier keeps every queued message
type recordingNotifier struct {
	mu   sync.Mutex
	err  error
	msgs []notification.Message
}

func (n *recordingNotifier) Enqueue(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, msg)
	return n.err
}

func (n *recordingNotifier) last() notification.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.msgs) == 0 {
		return notification.Message{}
	}
	return n.msgs[len(n.msgs)-1]
}

func (n *recordingNotifier) lastCode() string {
	code, _ := n.last().Data["Code"].(string)
	return code
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.msgs)
}

// memoryPendingStore is an in-memory PendingRegistrationRepository keyed by email
type memoryPendingStore struct {
	mu       sync.Mutex
	entries  map[string]entities.PendingRegistration
	saveErr  error
	consumed int
}

func newMemoryPendingStore() *memoryPendingStore {
	return &memoryPendingStore{entries: map[string]entities.PendingRegistration{}}
}

func (s *memoryPendingStore) Save(_ context.Context, reg *entities.PendingRegistration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.entries[reg.Email] = *reg
	return nil
}

func (s *memoryPendingStore) GetByEmail(_ context.Context, email string) (*entities.PendingRegistration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, ok := s.entries[entities.NormalizeEmail(email)]
	if !ok {
		return nil, domainerrors.ErrNotFound
	}
	return &reg, nil
}

func (s *memoryPendingStore) IncrementAttempts(_ context.Context, reg *entities.PendingRegistration, maxAttempts int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entries[reg.Email]
	if !ok || cur.ID != reg.ID {
		return 0, domainerrors.ErrNotFound
	}
	if cur.Attempts >= maxAttempts {
		return cur.Attempts, domainerrors.ErrMaxAttempts
	}
	cur.Attempts++
	s.entries[reg.Email] = cur
	reg.Attempts = cur.Attempts
	return cur.Attempts, nil
}

func (s *memoryPendingStore) Regenerate(_ context.Context, reg *entities.PendingRegistration, maxResends int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entries[reg.Email]
	if !ok || cur.ID != reg.ID {
		return domainerrors.ErrNotFound
	}
	if cur.ResendCount >= maxResends {
		return domainerrors.ErrResendLimit
	}
	cur.CodeHash = reg.CodeHash
	cur.VerificationToken = reg.VerificationToken
	cur.ExpiresAt = reg.ExpiresAt
	cur.Attempts = 0
	cur.ResendCount++
	s.entries[reg.Email] = cur
	reg.Attempts = 0
	reg.ResendCount = cur.ResendCount
	return nil
}

func (s *memoryPendingStore) Consume(_ context.Context, reg *entities.PendingRegistration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entries[reg.Email]
	if !ok || cur.ID != reg.ID || cur.CodeHash != reg.CodeHash {
		return domainerrors.ErrInvalidCode
	}
	delete(s.entries, reg.Email)
	s.consumed++
	return nil
}

func (s *memoryPendingStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, entities.NormalizeEmail(email))
	return nil
}

func (s *memoryPendingStore) has(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[email]
	return ok
}

// memoryResetStore is an in-memory PasswordResetCodeRepository
type memoryResetStore struct {
	mu          sync.Mutex
	codes       []*entities.PasswordResetCode
	lockedReads int
	// beforeLockedRead runs ahead of a locked LatestUnused
	beforeLockedRead func()
}

func (s *memoryResetStore) Create(_ context.Context, code *entities.PasswordResetCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.Email == code.Email && !c.Used {
			c.Used = true
		}
	}
	cp := *code
	s.codes = append(s.codes, &cp)
	return nil
}

func (s *memoryResetStore) LatestUnused(ctx context.Context, email string) (*entities.PasswordResetCode, error) {
	if isLocked(ctx) && s.beforeLockedRead != nil {
		hook := s.beforeLockedRead
		s.beforeLockedRead = nil
		hook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if isLocked(ctx) {
		s.lockedReads++
	}
	for i := len(s.codes) - 1; i >= 0; i-- {
		if c := s.codes[i]; c.Email == email && !c.Used {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domainerrors.ErrNotFound
}

func (s *memoryResetStore) IncrementAttempts(_ context.Context, id uuid.UUID, maxAttempts int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.find(id)
	if c == nil {
		return 0, domainerrors.ErrNotFound
	}
	if c.Used {
		return c.Attempts, domainerrors.ErrInvalidCode
	}
	if c.Attempts >= maxAttempts {
		return c.Attempts, domainerrors.ErrMaxAttempts
	}
	c.Attempts++
	return c.Attempts, nil
}

func (s *memoryResetStore) MarkUsed(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.find(id)
	if c == nil || c.Used {
		return domainerrors.ErrInvalidCode
	}
	c.Used = true
	return nil
}

func (s *memoryResetStore) find(id uuid.UUID) *entities.PasswordResetCode {
	for _, c := range s.codes {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *memoryResetStore) byEmail(email string) []*entities.PasswordResetCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entities.PasswordResetCode
	for _, c := range s.codes {
		if c.Email == email {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out
}
