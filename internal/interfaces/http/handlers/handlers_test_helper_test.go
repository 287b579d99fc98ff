package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"giveora.backend/internal/domain/entities"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type registrationServiceStub struct {
	start  func(ctx context.Context, input *entities.RegisterInput) (*entities.RegistrationTicket, error)
	resend func(ctx context.Context, email string) (*entities.ResendTicket, error)
	verify func(ctx context.Context, email, code string) (*entities.VerifiedAccount, error)
}

func (s registrationServiceStub) Start(ctx context.Context, input *entities.RegisterInput) (*entities.RegistrationTicket, error) {
	return s.start(ctx, input)
}

func (s registrationServiceStub) Resend(ctx context.Context, email string) (*entities.ResendTicket, error) {
	return s.resend(ctx, email)
}

func (s registrationServiceStub) Verify(ctx context.Context, email, code string) (*entities.VerifiedAccount, error) {
	return s.verify(ctx, email, code)
}

type passwordResetServiceStub struct {
	forgot func(ctx context.Context, email, ip string) error
	resend func(ctx context.Context, email, ip string) error
	verify func(ctx context.Context, email, code string) error
	reset  func(ctx context.Context, input *entities.ResetPasswordInput, ip string) error
}

func (s passwordResetServiceStub) ForgotPassword(ctx context.Context, email, ip string) error {
	return s.forgot(ctx, email, ip)
}

func (s passwordResetServiceStub) ResendResetCode(ctx context.Context, email, ip string) error {
	return s.resend(ctx, email, ip)
}

func (s passwordResetServiceStub) VerifyResetCode(ctx context.Context, email, code string) error {
	return s.verify(ctx, email, code)
}

func (s passwordResetServiceStub) ResetPassword(ctx context.Context, input *entities.ResetPasswordInput, ip string) error {
	return s.reset(ctx, input, ip)
}

type accountServiceStub struct {
	get func(ctx context.Context, id uuid.UUID) (*entities.User, error)
}

func (s accountServiceStub) GetUserByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	return s.get(ctx, id)
}

func performJSON(t *testing.T, handler gin.HandlerFunc, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var payload []byte
	switch b := body.(type) {
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	r := gin.New()
	r.POST("/x", handler)
	req := httptest.NewRequest(http.MethodPost, "/x", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:5555"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec, decoded
}
