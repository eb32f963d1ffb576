// Package auth resolves API bearer tokens into caller identities.
package auth

import (
	"context"
	"crypto/subtle"
	"strings"

	"NewsDigest/internal/config"
	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// TokenAuthenticator matches bearer tokens against the configured set.
type TokenAuthenticator struct {
	tokens []config.TokenConfig
}

var _ ports.Authenticator = (*TokenAuthenticator)(nil)

// NewTokenAuthenticator keeps every token with a non-empty value.
func NewTokenAuthenticator(cfg config.AuthConfig) *TokenAuthenticator {
	tokens := make([]config.TokenConfig, 0, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		t.Token = strings.TrimSpace(t.Token)
		if t.Token == "" {
			continue
		}
		if strings.TrimSpace(t.Subject) == "" {
			t.Subject = "api"
		}
		tokens = append(tokens, t)
	}
	return &TokenAuthenticator{tokens: tokens}
}

// Authenticate returns the identity bound to token, or ErrUnauthorized.
func (a *TokenAuthenticator) Authenticate(_ context.Context, token string) (domain.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Identity{}, domain.Wrap(domain.ErrUnauthorized, "auth", "authenticate", "missing bearer token", nil)
	}
	for _, t := range a.tokens {
		if subtle.ConstantTimeCompare([]byte(t.Token), []byte(token)) == 1 {
			roles := append([]string(nil), t.Roles...)
			return domain.Identity{Subject: t.Subject, Roles: roles}, nil
		}
	}
	return domain.Identity{}, domain.Wrap(domain.ErrUnauthorized, "auth", "authenticate", "unknown bearer token", nil)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "Bearer "
	header = strings.TrimSpace(header)
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
