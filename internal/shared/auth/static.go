package auth

import (
	"context"
	"strings"
)

// StaticTokens is a Provider backed by a fixed token table, parsed from the
// AUTH_TOKENS env var: "token:user_id:role[:brand_id]" entries separated by
// commas. It stands in for the auth service in dev and tests.
type StaticTokens struct {
	tokens map[string]Identity
}

func NewStaticTokens(spec string) *StaticTokens {
	tokens := make(map[string]Identity)
	for _, entry := range strings.Split(spec, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) < 3 {
			continue
		}
		role, ok := ParseRole(parts[2])
		if !ok {
			continue
		}
		id := Identity{UserID: parts[1], Role: role}
		if len(parts) > 3 {
			id.BrandID = parts[3]
		}
		tokens[parts[0]] = id
	}
	return &StaticTokens{tokens: tokens}
}

func (s *StaticTokens) Resolve(_ context.Context, token string) (Identity, error) {
	if id, ok := s.tokens[token]; ok {
		return id, nil
	}
	return Identity{}, ErrInvalidToken
}
