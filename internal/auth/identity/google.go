package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/inkwell/internal/auth/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

// ValidateFunc checks an ID token's signature, expiry and audience.
// idtoken.Validate in production.
type ValidateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// Google implements "Sign in with Google" via the authorization code flow
// and accepts ID tokens obtained directly by a frontend.
type Google struct {
	config   *oauth2.Config
	validate ValidateFunc
}

func NewGoogle(clientID, clientSecret, redirectURL string) *Google {
	return &Google{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		validate: idtoken.Validate,
	}
}

// WithValidator replaces the ID token validator, for tests.
func (g *Google) WithValidator(fn ValidateFunc) *Google {
	g.validate = fn
	return g
}

// Configured reports whether a client id was supplied.
func (g *Google) Configured() bool {
	return g != nil && g.config.ClientID != ""
}

// AuthCodeURL is where the browser is sent to start the flow.
func (g *Google) AuthCodeURL(state string) (string, error) {
	if !g.Configured() || g.config.RedirectURL == "" {
		return "", ErrProviderNotConfigured
	}
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Exchange trades an authorization code for tokens and verifies the
// returned ID token.
func (g *Google) Exchange(ctx context.Context, code string) (domain.GoogleIdentity, error) {
	if !g.Configured() || g.config.ClientSecret == "" {
		return domain.GoogleIdentity{}, ErrProviderNotConfigured
	}

	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return domain.GoogleIdentity{}, fmt.Errorf("%w: code exchange: %v", ErrInvalidIdentity, err)
	}

	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return domain.GoogleIdentity{}, fmt.Errorf("%w: no id_token in token response", ErrInvalidIdentity)
	}
	return g.FromIDToken(ctx, raw)
}

// FromIDToken verifies a Google ID token issued for this client.
func (g *Google) FromIDToken(ctx context.Context, raw string) (domain.GoogleIdentity, error) {
	if !g.Configured() {
		return domain.GoogleIdentity{}, ErrProviderNotConfigured
	}

	payload, err := g.validate(ctx, raw, g.config.ClientID)
	if err != nil {
		return domain.GoogleIdentity{}, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}

	id := domain.GoogleIdentity{
		Sub:           payload.Subject,
		Email:         strings.ToLower(strings.TrimSpace(stringClaim(payload.Claims, "email"))),
		EmailVerified: boolClaim(payload.Claims, "email_verified"),
		Name:          stringClaim(payload.Claims, "name"),
		GivenName:     stringClaim(payload.Claims, "given_name"),
		FamilyName:    stringClaim(payload.Claims, "family_name"),
	}
	if id.Sub == "" || id.Email == "" {
		return domain.GoogleIdentity{}, fmt.Errorf("%w: missing sub or email", ErrInvalidIdentity)
	}
	return id, nil
}

func stringClaim(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return s
}

// Google has sent email_verified both as a JSON bool and as a string.
func boolClaim(claims map[string]any, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	}
	return false
}
