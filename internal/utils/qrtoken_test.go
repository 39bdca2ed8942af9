package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/oakinyemi/staff-event-attendance/internal/model"
)

const testSecret = "test-secret-for-qr-tokens"

func TestQRTokenRoundTrip(t *testing.T) {
	token, err := SignQRToken(testSecret, 42, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	eventID, err := VerifyQRToken(testSecret, token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if eventID != 42 {
		t.Fatalf("event id = %d, want 42", eventID)
	}
}

func TestQRTokenExpired(t *testing.T) {
	token, err := SignQRToken(testSecret, 42, -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := VerifyQRToken(testSecret, token); !errors.Is(err, model.ErrTokenExpired) {
		t.Fatalf("got %v, want ErrTokenExpired", err)
	}
}

func TestQRTokenWrongSecret(t *testing.T) {
	token, err := SignQRToken(testSecret, 42, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := VerifyQRToken("some-other-secret", token); !errors.Is(err, model.ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

// An access token signed with the same secret must not pass QR
// validation: the type claim is what separates the two token families.
func TestQRTokenRejectsOtherTypes(t *testing.T) {
	access, err := NewAccessToken(testSecret, 42, "STAFF", 60)
	if err != nil {
		t.Fatalf("sign access token: %v", err)
	}
	if _, err := VerifyQRToken(testSecret, access.Token); !errors.Is(err, model.ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestQRTokenRejectsZeroEventID(t *testing.T) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"event_id": 0,
		"type":     QRTokenType,
		"iat":      now.Unix(),
		"exp":      now.Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := VerifyQRToken(testSecret, token); !errors.Is(err, model.ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}
