package services

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func validClaims(userID string) Claims {
	return Claims{
		UserID: userID,
		Email:  "admin@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestValidateToken(t *testing.T) {
	v := NewTokenValidator(testSecret)

	claims, err := v.ValidateToken(signToken(t, jwt.SigningMethodHS256, testSecret, validClaims("user-1")))
	if err != nil {
		t.Fatalf("ValidateToken returned error: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("expected user-1, got %q", claims.UserID)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	expired := validClaims("user-1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	tests := map[string]string{
		"wrong secret": signToken(t, jwt.SigningMethodHS256, []byte("other"), validClaims("user-1")),
		"expired":      signToken(t, jwt.SigningMethodHS256, testSecret, expired),
		"hs512":        signToken(t, jwt.SigningMethodHS512, testSecret, validClaims("user-1")),
		"missing user": signToken(t, jwt.SigningMethodHS256, testSecret, validClaims("")),
		"garbage":      "not-a-token",
	}

	v := NewTokenValidator(testSecret)
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := v.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}
