package usecases

import (
	"time"

	"giveora.backend/internal/config"
	"giveora.backend/internal/domain/entities"
	"giveora.backend/pkg/crypto"
	"giveora.backend/pkg/metrics"
)

// Verdict is the outcome of checking a submitted code against a challenge
type Verdict int

const (
	VerdictAccepted Verdict = iota
	VerdictExpired
	VerdictLocked
	VerdictMismatch
)

func (v Verdict) String() string {
	switch v {
	case VerdictAccepted:
		return "accepted"
	case VerdictExpired:
		return "expired"
	case VerdictLocked:
		return "locked"
	case VerdictMismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// Verification flows, used as metric labels
const (
	flowRegistration  = "registration"
	flowPasswordReset = "password_reset"
)

// CodePolicy holds the one-time code limits shared by both flows
type CodePolicy struct {
	Length      int
	TTL         time.Duration
	MaxAttempts int
	MaxResends  int
}

// CodePolicyFromConfig maps the verification config section
func CodePolicyFromConfig(cfg config.VerificationConfig) CodePolicy {
	return CodePolicy{
		Length:      cfg.CodeLength,
		TTL:         cfg.CodeTTL,
		MaxAttempts: cfg.MaxAttempts,
		MaxResends:  cfg.MaxResends,
	}
}

// CodeVerifier applies the expiry, lockout and match rules in that order.
// It never mutates storage; callers record attempts and consumption.
type CodeVerifier struct {
	hasher      crypto.SecretHasher
	maxAttempts int
}

// NewCodeVerifier creates a verifier for hashed codes
func NewCodeVerifier(hasher crypto.SecretHasher, maxAttempts int) *CodeVerifier {
	return &CodeVerifier{hasher: hasher, maxAttempts: maxAttempts}
}

// Evaluate checks code against the challenge at time now
func (v *CodeVerifier) Evaluate(challenge entities.CodeChallenge, code string, now time.Time) Verdict {
	if !now.Before(challenge.ExpiresAt) {
		return VerdictExpired
	}
	if challenge.Attempts >= v.maxAttempts {
		return VerdictLocked
	}
	if !v.hasher.Verify(code, challenge.CodeHash) {
		return VerdictMismatch
	}
	return VerdictAccepted
}

// MaxAttempts returns the attempt budget per code
func (v *CodeVerifier) MaxAttempts() int {
	return v.maxAttempts
}

func recordVerification(flow, outcome string) {
	metrics.CodeVerifications.WithLabelValues(flow, outcome).Inc()
}

// issueCode returns a fresh plaintext code and its digest
func issueCode(hasher crypto.SecretHasher, length int) (string, string, error) {
	code, err := generateCode(length)
	if err != nil {
		return "", "", err
	}
	digest, err := hasher.Hash(code)
	if err != nil {
		return "", "", err
	}
	return code, digest, nil
}

var (
	generateCode  = crypto.GenerateNumericCode
	generateToken = crypto.GenerateVerificationToken
)
