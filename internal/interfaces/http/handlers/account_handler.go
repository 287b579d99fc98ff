package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"giveora.backend/internal/domain/entities"
	domainerrors "giveora.backend/internal/domain/errors"
	"giveora.backend/internal/interfaces/http/middleware"
	"giveora.backend/internal/interfaces/http/response"
	"giveora.backend/internal/usecases"
)

type accountService interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
}

// AccountHandler serves the signed-in user's own account
type AccountHandler struct {
	service accountService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(service *usecases.AccountUsecase) *AccountHandler {
	return &AccountHandler{service: service}
}

// GetMe returns current authenticated user details
// GET /api/v1/auth/me
func (h *AccountHandler) GetMe(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Error(c, domainerrors.Unauthorized("Unauthorized"))
		return
	}

	user, err := h.service.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			response.Error(c, domainerrors.NotFound("User not found"))
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": user})
}
