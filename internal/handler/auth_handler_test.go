package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bloodconnect/bloodconnect-api/internal/dto"
	"github.com/bloodconnect/bloodconnect-api/internal/models"
	appErrors "github.com/bloodconnect/bloodconnect-api/pkg/errors"
)

type authServiceMock struct {
	registerRes *models.UserInfo
	registerErr error
	loginRes    *models.LoginResponse
	loginErr    error
}

func (m *authServiceMock) Register(ctx context.Context, req dto.RegisterRequest) (*models.UserInfo, error) {
	return m.registerRes, m.registerErr
}

func (m *authServiceMock) Login(ctx context.Context, req dto.LoginRequest) (*models.LoginResponse, error) {
	return m.loginRes, m.loginErr
}

type otpServiceMock struct {
	sendErr   error
	verifyErr error
}

func (m *otpServiceMock) Send(ctx context.Context, req dto.SendOTPRequest) error {
	return m.sendErr
}

func (m *otpServiceMock) Verify(ctx context.Context, req dto.VerifyOTPRequest) error {
	return m.verifyErr
}

func postJSON(t *testing.T, handlerFn gin.HandlerFunc, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	handlerFn(c)
	return w
}

func TestAuthHandlerRegister(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{registerRes: &models.UserInfo{ID: "u1", Username: "jordan", Email: "jordan@example.com"}}, &otpServiceMock{})

	w := postJSON(t, h.Register, "/auth/register", dto.RegisterRequest{
		Username: "jordan", Email: "jordan@example.com", Password: "supersecret",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "registered successfully")
}

func TestAuthHandlerRegisterConflict(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{registerErr: appErrors.Clone(appErrors.ErrConflict, "an account with this email already exists")}, &otpServiceMock{})

	w := postJSON(t, h.Register, "/auth/register", dto.RegisterRequest{
		Username: "jordan", Email: "jordan@example.com", Password: "supersecret",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAuthHandlerLogin(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{loginRes: &models.LoginResponse{AccessToken: "token"}}, &otpServiceMock{})

	w := postJSON(t, h.Login, "/auth/login", dto.LoginRequest{
		Email: "jordan@example.com", Password: "supersecret",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "token")
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{loginErr: appErrors.ErrInvalidCredentials}, &otpServiceMock{})

	w := postJSON(t, h.Login, "/auth/login", dto.LoginRequest{
		Email: "jordan@example.com", Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandlerSendOTP(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{}, &otpServiceMock{})

	w := postJSON(t, h.SendOTP, "/auth/otp/send", dto.SendOTPRequest{Email: "jordan@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "OTP sent")
}

func TestAuthHandlerVerifyOTPInvalid(t *testing.T) {
	h := NewAuthHandler(&authServiceMock{}, &otpServiceMock{verifyErr: appErrors.Clone(appErrors.ErrValidation, "invalid or expired OTP")})

	w := postJSON(t, h.VerifyOTP, "/auth/otp/verify", dto.VerifyOTPRequest{Email: "jordan@example.com", OTP: "123456"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
