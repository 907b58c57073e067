package auth

import (
	"context"
	"errors"
)

// Role is a closed set; new roles must be added here and handled at every
// switch, which the exhaustive transition tables rely on.
type Role string

const (
	RoleClient       Role = "client"
	RoleBrandManager Role = "brand_manager"
	RoleAdmin        Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleClient, RoleBrandManager, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

// Identity is what the auth collaborator resolves a bearer credential into.
type Identity struct {
	UserID  string
	Role    Role
	BrandID string // set for brand managers only
}

var ErrInvalidToken = errors.New("invalid or expired token")

// Provider resolves a bearer token. The real implementation lives in the
// auth service; this core only consumes the interface.
type Provider interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}
