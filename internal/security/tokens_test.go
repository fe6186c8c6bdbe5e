package security

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	now := time.Now()

	token, expiresAt, err := IssueAccessToken(secret, 42, time.Hour, now)
	if err != nil {
		t.Fatalf("IssueAccessToken() unexpected error: %v", err)
	}
	if !expiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("expected expiry %s, got %s", now.Add(time.Hour), expiresAt)
	}

	userID, err := ParseAccessToken(secret, token)
	if err != nil {
		t.Fatalf("ParseAccessToken() unexpected error: %v", err)
	}
	if userID != 42 {
		t.Fatalf("expected user 42, got %d", userID)
	}
}

func TestParseAccessTokenRejectsBadTokens(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")

	expired, _, err := IssueAccessToken(secret, 1, time.Minute, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("issue expired token: %v", err)
	}
	foreign, _, err := IssueAccessToken([]byte("another-secret-another-secret-!!"), 1, time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue foreign token: %v", err)
	}
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{UserID: 1}).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token without expiry: %v", err)
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, AccessClaims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign unsigned token: %v", err)
	}

	for name, token := range map[string]string{
		"garbage":   "not-a-token",
		"expired":   expired,
		"foreign":   foreign,
		"no expiry": noExpiry,
		"alg none":  unsigned,
	} {
		if _, err := ParseAccessToken(secret, token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}
