package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndVerify(t *testing.T) {
	verifier, err := NewVerifier("test-secret")
	if err != nil {
		t.Fatalf("NewVerifier error = %v", err)
	}

	token, err := verifier.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue error = %v", err)
	}

	claims, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("Verify error = %v", err)
	}
	if claims.Subject != "user-123" {
		t.Fatalf("Subject = %q, want %q", claims.Subject, "user-123")
	}

	wantExpiry := time.Now().Add(TokenTTL)
	if diff := claims.ExpiresAt.Sub(wantExpiry); diff > time.Minute || diff < -time.Minute {
		t.Fatalf("ExpiresAt = %v, want about %v", claims.ExpiresAt, wantExpiry)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	verifier, err := NewVerifier("test-secret")
	if err != nil {
		t.Fatalf("NewVerifier error = %v", err)
	}

	claims := jwt.RegisteredClaims{
		Subject:   "user-123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString error = %v", err)
	}

	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("Verify should reject an expired token")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, _ := NewVerifier("secret-a")
	verifier, _ := NewVerifier("secret-b")

	token, err := issuer.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue error = %v", err)
	}

	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("Verify should reject a token signed with another secret")
	}
}

func TestVerifyRejectsMissingSubject(t *testing.T) {
	verifier, _ := NewVerifier("test-secret")

	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("SignedString error = %v", err)
	}

	if _, err := verifier.Verify(token); err == nil {
		t.Fatal("Verify should reject a token without a subject")
	}
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	if _, err := NewVerifier(""); err == nil {
		t.Fatal("NewVerifier should reject an empty secret")
	}
}
