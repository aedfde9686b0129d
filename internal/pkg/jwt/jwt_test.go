package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

func TestSignParseRoundTrip(t *testing.T) {
	token, err := Sign("user-123", time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	claims, err := Parse(token)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.UserID != "user-123" {
		t.Errorf("UserID = %q, want %q", claims.UserID, "user-123")
	}
	if claims.Issuer != issuer {
		t.Errorf("Issuer = %q, want %q", claims.Issuer, issuer)
	}
}

func TestParseRejectsExpired(t *testing.T) {
	token, err := Sign("user-123", -time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := Parse(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestParseRejectsForeignIssuer(t *testing.T) {
	claims := Claims{
		UserID: "user-123",
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    "somebody-else",
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := Parse(token); err == nil {
		t.Error("expected error for foreign issuer")
	}
}
