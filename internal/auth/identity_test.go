package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func signToken(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestParseToken(t *testing.T) {
	secret := []byte("test-secret")

	tokenString := signToken(t, secret, jwt.MapClaims{
		"uid":   "student-42",
		"email": "student42@hitam.org",
		"name":  "Student FortyTwo",
		"role":  "student",
	})

	identity, err := ParseToken(tokenString, secret)
	if err != nil {
		t.Fatalf("ParseToken returned error: %v", err)
	}
	if identity.UserID != "student-42" {
		t.Errorf("UserID = %q", identity.UserID)
	}
	if identity.Email != "student42@hitam.org" {
		t.Errorf("Email = %q", identity.Email)
	}
	if identity.IsStaff() {
		t.Error("student identity reported as staff")
	}
}

func TestParseToken_SubFallback(t *testing.T) {
	secret := []byte("test-secret")

	tokenString := signToken(t, secret, jwt.MapClaims{
		"sub":  "staff-1",
		"role": "staff",
	})

	identity, err := ParseToken(tokenString, secret)
	if err != nil {
		t.Fatalf("ParseToken returned error: %v", err)
	}
	if identity.UserID != "staff-1" {
		t.Errorf("UserID = %q, want staff-1", identity.UserID)
	}
	if !identity.IsStaff() {
		t.Error("staff identity not recognized")
	}
}

func TestParseToken_Rejections(t *testing.T) {
	secret := []byte("test-secret")

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", signToken(t, []byte("other-secret"), jwt.MapClaims{"uid": "u1", "role": "student"})},
		{"missing uid", signToken(t, secret, jwt.MapClaims{"role": "student"})},
		{"unknown role", signToken(t, secret, jwt.MapClaims{"uid": "u1", "role": "superuser"})},
		{"garbage", "not-a-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, secret); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}
