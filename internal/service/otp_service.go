package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/bloodconnect/bloodconnect-api/internal/dto"
	appErrors "github.com/bloodconnect/bloodconnect-api/pkg/errors"
	"github.com/bloodconnect/bloodconnect-api/pkg/mail"
)

type otpStore interface {
	Set(ctx context.Context, email, code string) error
	Get(ctx context.Context, email string) (string, error)
	Delete(ctx context.Context, email string) error
}

// OTPService issues and verifies email one-time codes. Codes live in an
// expiring store entry, one per email; issuing a new code replaces the old.
type OTPService struct {
	store     otpStore
	sender    mail.Sender
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOTPService constructs an OTPService.
func NewOTPService(store otpStore, sender mail.Sender, validate *validator.Validate, logger *zap.Logger) *OTPService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &OTPService{store: store, sender: sender, validator: validate, logger: logger}
}

// Send generates a 6-digit code, stores it and emails it. Unlike donor
// notifications, a failed OTP email is surfaced to the caller, since the
// user is waiting on it.
func (s *OTPService) Send(ctx context.Context, req dto.SendOTPRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid otp payload")
	}

	code, err := generateOTP()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate code")
	}

	if err := s.store.Set(ctx, req.Email, code); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store code")
	}

	body := fmt.Sprintf("<p>Your BloodConnect verification code is: <strong>%s</strong></p>", code)
	if err := s.sender.Send(ctx, req.Email, "", "Your BloodConnect OTP Code", body); err != nil {
		s.logger.Warn("otp email delivery failed", zap.String("email", req.Email), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send email")
	}

	return nil
}

// Verify redeems a code; a matching code is consumed and cannot be reused.
func (s *OTPService) Verify(ctx context.Context, req dto.VerifyOTPRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid otp payload")
	}

	stored, err := s.store.Get(ctx, req.Email)
	if err != nil {
		if errors.Is(err, appErrors.ErrCacheMiss) {
			return appErrors.Clone(appErrors.ErrValidation, "invalid or expired OTP")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load code")
	}

	if stored != req.OTP {
		return appErrors.Clone(appErrors.ErrValidation, "invalid or expired OTP")
	}

	if err := s.store.Delete(ctx, req.Email); err != nil {
		s.logger.Warn("failed to delete redeemed otp", zap.String("email", req.Email), zap.Error(err))
	}
	return nil
}

func generateOTP() (string, error) {
	// 6 digits, 100000-999999, matching the codes the frontend expects.
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}
