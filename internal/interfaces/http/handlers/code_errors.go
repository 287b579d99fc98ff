package handlers

import (
	"errors"
	"net/http"

	domainerrors "giveora.backend/internal/domain/errors"
)

// codeFailure maps one-time code outcomes to 400 responses. The unknown-email
// and wrong-code cases share one message.
func codeFailure(err error) error {
	var rejected *domainerrors.CodeRejectedError
	switch {
	case errors.As(err, &rejected):
		return domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeInvalidCode, "Invalid verification code.", err).
			WithDetails(map[string]interface{}{"remaining_attempts": rejected.RemainingAttempts})
	case errors.Is(err, domainerrors.ErrCodeExpired):
		return domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeCodeExpired, "Verification code has expired. Please request a new one.", err).
			WithDetails(map[string]interface{}{"expired": true})
	case errors.Is(err, domainerrors.ErrMaxAttempts):
		return domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeMaxAttempts, "Too many failed attempts. Please request a new code.", err).
			WithDetails(map[string]interface{}{"max_attempts": true})
	case errors.Is(err, domainerrors.ErrInvalidCode):
		return domainerrors.NewAppError(http.StatusBadRequest, domainerrors.CodeInvalidCode, "Invalid or expired verification code.", err)
	}
	return err
}

// rateLimitFailure maps a limiter rejection to 429 with retry_after in seconds
func rateLimitFailure(err error, message string) error {
	var limited *domainerrors.RateLimitError
	if !errors.As(err, &limited) {
		return err
	}
	return domainerrors.TooManyRequests(domainerrors.CodeRateLimited, message, err).
		WithDetails(map[string]interface{}{"retry_after": limited.RetryAfterSeconds()})
}
