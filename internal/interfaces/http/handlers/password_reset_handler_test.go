package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"giveora.backend/internal/domain/entities"
	domainerrors "giveora.backend/internal/domain/errors"
)

func TestPasswordResetHandler_ForgotPassword_SameResponseEitherWay(t *testing.T) {
	var gotIP string
	h := &PasswordResetHandler{service: passwordResetServiceStub{
		forgot: func(_ context.Context, email, ip string) error {
			gotIP = ip
			return nil
		},
	}}

	known, knownBody := performJSON(t, h.ForgotPassword, map[string]string{"email": "bob@example.com"})
	unknown, unknownBody := performJSON(t, h.ForgotPassword, map[string]string{"email": "ghost@example.com"})

	require.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, known.Code, unknown.Code)
	assert.Equal(t, knownBody, unknownBody)
	assert.Equal(t, ForgotPasswordMessage, knownBody["message"])
	assert.Equal(t, "203.0.113.7", gotIP)
}

func TestPasswordResetHandler_ForgotPassword_RateLimited(t *testing.T) {
	h := &PasswordResetHandler{service: passwordResetServiceStub{
		forgot: func(context.Context, string, string) error {
			return &domainerrors.RateLimitError{RetryAfter: 90*time.Second + time.Millisecond}
		},
	}}

	rec, body := performJSON(t, h.ForgotPassword, map[string]string{"email": "bob@example.com"})

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, float64(91), body["retry_after"])
	assert.Equal(t, "91", rec.Header().Get("Retry-After"))
}

func TestPasswordResetHandler_ResendResetCode(t *testing.T) {
	called := false
	h := &PasswordResetHandler{service: passwordResetServiceStub{
		resend: func(context.Context, string, string) error {
			called = true
			return nil
		},
	}}

	rec, body := performJSON(t, h.ResendResetCode, map[string]string{"email": "bob@example.com"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ForgotPasswordMessage, body["message"])
	assert.True(t, called)
}

func TestPasswordResetHandler_ForgotPassword_InvalidEmail(t *testing.T) {
	h := &PasswordResetHandler{}

	rec, body := performJSON(t, h.ForgotPassword, map[string]string{"email": "nope"})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, body["errors"], "email")
}

func TestPasswordResetHandler_VerifyResetCode(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		key    string
		expect interface{}
	}{
		{"ok", nil, http.StatusOK, "success", true},
		{"wrong", &domainerrors.CodeRejectedError{RemainingAttempts: 2}, http.StatusBadRequest, "remaining_attempts", float64(2)},
		{"expired", domainerrors.ErrCodeExpired, http.StatusBadRequest, "expired", true},
		{"locked", domainerrors.ErrMaxAttempts, http.StatusBadRequest, "max_attempts", true},
		{"unknown", domainerrors.ErrInvalidCode, http.StatusBadRequest, "message", "Invalid or expired verification code."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &PasswordResetHandler{service: passwordResetServiceStub{
				verify: func(context.Context, string, string) error { return tt.err },
			}}

			rec, body := performJSON(t, h.VerifyResetCode, map[string]string{"email": "bob@example.com", "code": "123456"})

			require.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.expect, body[tt.key])
		})
	}
}

func TestPasswordResetHandler_ResetPassword(t *testing.T) {
	valid := map[string]string{
		"email":                 "bob@example.com",
		"code":                  "123456",
		"password":              "newpass123",
		"password_confirmation": "newpass123",
	}

	t.Run("success", func(t *testing.T) {
		var got *entities.ResetPasswordInput
		h := &PasswordResetHandler{service: passwordResetServiceStub{
			reset: func(_ context.Context, input *entities.ResetPasswordInput, ip string) error {
				got = input
				assert.Equal(t, "203.0.113.7", ip)
				return nil
			},
		}}

		rec, body := performJSON(t, h.ResetPassword, valid)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "newpass123", got.Password)
	})

	t.Run("password policy", func(t *testing.T) {
		h := &PasswordResetHandler{}
		weak := map[string]string{
			"email":                 "bob@example.com",
			"code":                  "123456",
			"password":              "password",
			"password_confirmation": "password",
		}

		rec, body := performJSON(t, h.ResetPassword, weak)

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, body["errors"], "password")
	})

	t.Run("consumed code", func(t *testing.T) {
		h := &PasswordResetHandler{service: passwordResetServiceStub{
			reset: func(context.Context, *entities.ResetPasswordInput, string) error { return domainerrors.ErrInvalidCode },
		}}

		rec, _ := performJSON(t, h.ResetPassword, valid)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("storage failure", func(t *testing.T) {
		h := &PasswordResetHandler{service: passwordResetServiceStub{
			reset: func(context.Context, *entities.ResetPasswordInput, string) error { return errors.New("tx aborted") },
		}}

		rec, _ := performJSON(t, h.ResetPassword, valid)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
