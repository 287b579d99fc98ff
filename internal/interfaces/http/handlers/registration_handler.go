package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"giveora.backend/internal/domain/entities"
	domainerrors "giveora.backend/internal/domain/errors"
	"giveora.backend/internal/interfaces/http/response"
	"giveora.backend/internal/usecases"
)

type registrationService interface {
	Start(ctx context.Context, input *entities.RegisterInput) (*entities.RegistrationTicket, error)
	Resend(ctx context.Context, email string) (*entities.ResendTicket, error)
	Verify(ctx context.Context, email, code string) (*entities.VerifiedAccount, error)
}

// RegistrationHandler handles sign-up by emailed code
type RegistrationHandler struct {
	service registrationService
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(service *usecases.RegistrationUsecase) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

// Register stages the account and sends a verification code
// POST /api/v1/auth/register
func (h *RegistrationHandler) Register(c *gin.Context) {
	var input entities.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, bindingFailure(err))
		return
	}

	ticket, err := h.service.Start(c.Request.Context(), &input)
	if err != nil {
		switch {
		case errors.Is(err, domainerrors.ErrAlreadyExists):
			response.Error(c, domainerrors.Conflict("An account with this email already exists."))
		case errors.Is(err, domainerrors.ErrInvalidInput):
			response.Error(c, domainerrors.Unprocessable("The given data was invalid.", map[string]string{"role": "The selected role is invalid."}))
		default:
			response.Error(c, err)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"success":    true,
		"message":    "Verification code sent. Please check your email.",
		"email":      ticket.Email,
		"expires_in": seconds(ticket.ExpiresIn),
	})
}

// ResendCode replaces the pending code with a fresh one
// POST /api/v1/auth/resend-verification-code
func (h *RegistrationHandler) ResendCode(c *gin.Context) {
	var input entities.EmailInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, bindingFailure(err))
		return
	}

	ticket, err := h.service.Resend(c.Request.Context(), input.Email)
	if err != nil {
		if errors.Is(err, domainerrors.ErrResendLimit) {
			response.Error(c, domainerrors.TooManyRequests(domainerrors.CodeResendLimit, "Maximum resend attempts reached. Please register again.", err))
			return
		}
		response.Error(c, codeFailure(err))
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"success":           true,
		"message":           "A new verification code has been sent to your email.",
		"remaining_resends": ticket.RemainingResends,
		"expires_in":        seconds(ticket.ExpiresIn),
	})
}

// VerifyCode creates the account when the code matches
// POST /api/v1/auth/verify-email-code
func (h *RegistrationHandler) VerifyCode(c *gin.Context) {
	var input entities.VerifyCodeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, bindingFailure(err))
		return
	}

	account, err := h.service.Verify(c.Request.Context(), input.Email, input.Code)
	if err != nil {
		response.Error(c, codeFailure(err))
		return
	}

	body := gin.H{
		"success": true,
		"message": "Email verified successfully. Your account has been created.",
		"user":    account.User,
	}
	if account.AccessToken != "" {
		body["accessToken"] = account.AccessToken
		body["refreshToken"] = account.RefreshToken
		body["expiresIn"] = account.ExpiresIn
	}
	response.Success(c, http.StatusCreated, body)
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}
