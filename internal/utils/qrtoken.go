package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/oakinyemi/staff-event-attendance/internal/model"
)

// QRTokenType is the type claim every event check-in token must carry.
// Tokens minted for any other purpose (access tokens included) fail QR
// validation even when signed with the same secret.
const QRTokenType = "EVENT_QR"

// SignQRToken mints the signed payload embedded in an event's QR code.
// The token binds the event ID and the EVENT_QR type, and carries its
// own expiry so a scan fails closed even if the database record is
// unreachable for the lazy expiry check.
func SignQRToken(secret string, eventID uint64, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"event_id": eventID,
		"type":     QRTokenType,
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(secret))
}

// VerifyQRToken checks signature, expiry and token type, returning the
// bound event ID. These are only the cryptographic checks; callers must
// still confirm the persisted record is active and unexpired before
// honoring the token.
func VerifyQRToken(secret, token string) (uint64, error) {
	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, model.ErrTokenExpired
		}
		return 0, model.ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return 0, model.ErrInvalidToken
	}
	if typ, _ := claims["type"].(string); typ != QRTokenType {
		return 0, model.ErrInvalidToken
	}
	raw, ok := claims["event_id"].(float64)
	if !ok || raw <= 0 {
		return 0, model.ErrInvalidToken
	}
	return uint64(raw), nil
}
