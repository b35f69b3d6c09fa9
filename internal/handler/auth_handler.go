package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bloodconnect/bloodconnect-api/internal/dto"
	"github.com/bloodconnect/bloodconnect-api/internal/models"
	appErrors "github.com/bloodconnect/bloodconnect-api/pkg/errors"
	"github.com/bloodconnect/bloodconnect-api/pkg/response"
)

type authService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*models.UserInfo, error)
	Login(ctx context.Context, req dto.LoginRequest) (*models.LoginResponse, error)
}

type otpService interface {
	Send(ctx context.Context, req dto.SendOTPRequest) error
	Verify(ctx context.Context, req dto.VerifyOTPRequest) error
}

// AuthHandler exposes registration, login and OTP endpoints.
type AuthHandler struct {
	auth authService
	otp  otpService
}

// NewAuthHandler builds a new handler.
func NewAuthHandler(auth authService, otp otpService) *AuthHandler {
	return &AuthHandler{auth: auth, otp: otp}
}

// Register godoc
// @Summary Register a new account
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body dto.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}
	user, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user, "registered successfully")
}

// Login godoc
// @Summary Authenticate and obtain an access token
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body dto.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	result, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, "login successful")
}

// SendOTP godoc
// @Summary Email a one-time verification code
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body dto.SendOTPRequest true "OTP payload"
// @Success 200 {object} response.Envelope
// @Router /auth/otp/send [post]
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req dto.SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid otp payload"))
		return
	}
	if err := h.otp.Send(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nil, "OTP sent to your email")
}

// VerifyOTP godoc
// @Summary Verify a one-time code
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body dto.VerifyOTPRequest true "OTP verification payload"
// @Success 200 {object} response.Envelope
// @Router /auth/otp/verify [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req dto.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid otp payload"))
		return
	}
	if err := h.otp.Verify(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, nil, "OTP verified successfully")
}
