package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"giveora.backend/internal/domain/entities"
	domainerrors "giveora.backend/internal/domain/errors"
	"giveora.backend/internal/interfaces/http/response"
	"giveora.backend/internal/usecases"
)

// ForgotPasswordMessage is returned whether or not the email has an account
const ForgotPasswordMessage = "If that email exists in our system, we sent a verification code. Please check your inbox."

type passwordResetService interface {
	ForgotPassword(ctx context.Context, email, ip string) error
	ResendResetCode(ctx context.Context, email, ip string) error
	VerifyResetCode(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, input *entities.ResetPasswordInput, ip string) error
}

// PasswordResetHandler handles forgot-password and reset-by-code
type PasswordResetHandler struct {
	service passwordResetService
}

// NewPasswordResetHandler creates a new password reset handler
func NewPasswordResetHandler(service *usecases.PasswordResetUsecase) *PasswordResetHandler {
	return &PasswordResetHandler{service: service}
}

// ForgotPassword sends a reset code if the account exists
// POST /api/v1/auth/forgot-password
func (h *PasswordResetHandler) ForgotPassword(c *gin.Context) {
	h.issue(c, h.service.ForgotPassword)
}

// ResendResetCode issues a fresh reset code under the same limits
// POST /api/v1/auth/resend-reset-code
func (h *PasswordResetHandler) ResendResetCode(c *gin.Context) {
	h.issue(c, h.service.ResendResetCode)
}

func (h *PasswordResetHandler) issue(c *gin.Context, send func(ctx context.Context, email, ip string) error) {
	var input entities.EmailInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, bindingFailure(err))
		return
	}

	if err := send(c.Request.Context(), input.Email, c.ClientIP()); err != nil {
		var limited *domainerrors.RateLimitError
		if errors.As(err, &limited) {
			c.Header("Retry-After", strconv.Itoa(limited.RetryAfterSeconds()))
		}
		response.Error(c, rateLimitFailure(err, "Too many password reset requests. Please try again later."))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"success": true,
		"message": ForgotPasswordMessage,
	})
}

// VerifyResetCode checks a reset code without consuming it
// POST /api/v1/auth/verify-reset-code
func (h *PasswordResetHandler) VerifyResetCode(c *gin.Context) {
	var input entities.VerifyCodeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, bindingFailure(err))
		return
	}

	if err := h.service.VerifyResetCode(c.Request.Context(), input.Email, input.Code); err != nil {
		response.Error(c, codeFailure(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"success": true,
		"message": "Code verified successfully.",
	})
}

// ResetPassword consumes the code and sets the new password
// POST /api/v1/auth/reset-password
func (h *PasswordResetHandler) ResetPassword(c *gin.Context) {
	var input entities.ResetPasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, bindingFailure(err))
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), &input, c.ClientIP()); err != nil {
		response.Error(c, codeFailure(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"success": true,
		"message": "Your password has been reset successfully. You can now log in with your new password.",
	})
}
