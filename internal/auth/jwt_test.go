package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	token, err := GenerateJWT("user-1", "ops@acme.example", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", claims.UserID)
	}
	if claims.Email != "ops@acme.example" {
		t.Errorf("Email = %q, want ops@acme.example", claims.Email)
	}
	if claims.Issuer != "orb-integration-hub" {
		t.Errorf("Issuer = %q, want orb-integration-hub", claims.Issuer)
	}
	if claims.Subject != "user-1" {
		t.Errorf("Subject = %q, want user-1", claims.Subject)
	}
}

func TestValidateJWT_ExpiredToken(t *testing.T) {
	token, err := GenerateJWT("user-1", "ops@acme.example", -time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	if _, err := ValidateJWT(token); err == nil {
		t.Error("expired token should not validate")
	}
}

func TestValidateJWT_TamperedToken(t *testing.T) {
	token, err := GenerateJWT("user-1", "ops@acme.example", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	// Flip a character in the signature segment.
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected JWT shape: %d segments", len(parts))
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := ValidateJWT(tampered); err == nil {
		t.Error("tampered token should not validate")
	}
}

func TestValidateJWT_RejectsNonHMACSigningMethod(t *testing.T) {
	// A token signed with "none" must be rejected by the signing-method check.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "user-1"})
	unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}

	if _, err := ValidateJWT(unsigned); err == nil {
		t.Error("token with alg=none should not validate")
	}
}

func TestValidateJWT_Garbage(t *testing.T) {
	if _, err := ValidateJWT("not.a.jwt"); err == nil {
		t.Error("garbage token should not validate")
	}
}

func TestGenerateJWT_DefaultExpiry(t *testing.T) {
	token, err := GenerateJWT("user-1", "ops@acme.example", 0)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT: %v", err)
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining < 55*time.Minute || remaining > 65*time.Minute {
		t.Errorf("default expiry = %v from now, want about 1h", remaining)
	}
}
