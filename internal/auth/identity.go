package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"campusbite/internal/models"
)

// Roles furnished by the identity provider. The core trusts the role
// claim as already verified upstream and never re-derives it.
const (
	RoleStudent = "student"
	RoleStaff   = "staff"
)

// Identity is the authenticated caller extracted from the bearer token
type Identity struct {
	UserID string
	Email  string
	Name   string
	Role   string
}

// IsStaff reports whether the caller holds the staff role
func (id *Identity) IsStaff() bool {
	return id.Role == RoleStaff
}

type contextKey struct{}

// WithIdentity attaches the identity to the request context
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext extracts the identity stored by the middleware
func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(*Identity)
	return id, ok
}

// ParseToken decodes an identity-provider token signed with the shared
// secret and returns the caller's identity claims
func ParseToken(tokenString string, secret []byte) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	uid, _ := claims["uid"].(string)
	if uid == "" {
		// identity providers commonly put the user id in sub
		uid, _ = claims["sub"].(string)
	}
	if uid == "" {
		return nil, fmt.Errorf("token missing uid claim")
	}

	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)

	role, _ := claims["role"].(string)
	if role != RoleStudent && role != RoleStaff {
		return nil, fmt.Errorf("%w: unknown role %q", models.ErrPermissionDenied, role)
	}

	return &Identity{
		UserID: uid,
		Email:  email,
		Name:   name,
		Role:   role,
	}, nil
}
