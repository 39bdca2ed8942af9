package repository

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
)

// OTPStore keeps one-time verification codes in Redis with a TTL.
// Keeping them in a shared store rather than an in-process map means
// the code a user received is honored by every server instance, and
// expiry needs no sweeper.
type OTPStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// ErrOTPMismatch is returned when no code is pending for the user or
// the supplied code does not match.
var ErrOTPMismatch = errors.New("invalid or expired otp")

// ErrOTPUnavailable is returned when the OTP backend is down. Unlike
// rate limiting, verification cannot degrade to a no-op.
var ErrOTPUnavailable = errors.New("otp store unavailable")

// NewOTPStore returns an OTPStore writing codes with the given TTL.
func NewOTPStore(rdb *redis.Client, ttl time.Duration) *OTPStore {
	return &OTPStore{rdb: rdb, ttl: ttl}
}

func otpKey(userID uint64) string { return fmt.Sprintf("otp:%d", userID) }

// Generate creates a six-digit code for the user, stores it with the
// configured TTL (replacing any pending code) and returns it for
// delivery.
func (s *OTPStore) Generate(ctx context.Context, userID uint64) (string, error) {
	if s.rdb == nil {
		return "", ErrOTPUnavailable
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	code := fmt.Sprintf("%06d", n.Int64())
	if err := s.rdb.Set(ctx, otpKey(userID), code, s.ttl).Err(); err != nil {
		return "", err
	}
	return code, nil
}

// Verify checks the supplied code against the pending one and consumes
// it on success; a code can only be used once.
func (s *OTPStore) Verify(ctx context.Context, userID uint64, code string) error {
	if s.rdb == nil {
		return ErrOTPUnavailable
	}
	stored, err := s.rdb.Get(ctx, otpKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrOTPMismatch
	}
	if err != nil {
		return err
	}
	if stored != code {
		return ErrOTPMismatch
	}
	return s.rdb.Del(ctx, otpKey(userID)).Err()
}
