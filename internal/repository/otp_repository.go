package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/bloodconnect/bloodconnect-api/pkg/errors"
)

// OTPRepository stores one-time codes in Redis with a TTL, one entry per
// email. Entries expire on their own; there is no sweep to run.
type OTPRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewOTPRepository constructs an OTP repository.
func NewOTPRepository(client *redis.Client, ttl time.Duration) *OTPRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &OTPRepository{client: client, ttl: ttl}
}

// Set stores the code for the email, replacing any previous code.
func (r *OTPRepository) Set(ctx context.Context, email, code string) error {
	if err := r.client.Set(ctx, otpKey(email), code, r.ttl).Err(); err != nil {
		return fmt.Errorf("store otp for %s: %w", email, err)
	}
	return nil
}

// Get returns the stored code for the email, or ErrCacheMiss when no entry
// exists or it has expired.
func (r *OTPRepository) Get(ctx context.Context, email string) (string, error) {
	code, err := r.client.Get(ctx, otpKey(email)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", appErrors.ErrCacheMiss
		}
		return "", fmt.Errorf("load otp for %s: %w", email, err)
	}
	return code, nil
}

// Delete removes the stored code for the email.
func (r *OTPRepository) Delete(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, otpKey(email)).Err(); err != nil {
		return fmt.Errorf("delete otp for %s: %w", email, err)
	}
	return nil
}

func otpKey(email string) string {
	return "otp:" + strings.ToLower(email)
}
