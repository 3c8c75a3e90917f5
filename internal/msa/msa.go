// Package msa implements the Microsoft account OAuth2 + OIDC provider that
// produces the access token the Xbox Live exchange consumes.
//
// Uses the consumers tenant: only personal Microsoft accounts own Xbox
// profiles, so work/school tenants are deliberately excluded.
package msa

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const issuerURL = "https://login.microsoftonline.com/consumers/v2.0"

// scopeXboxLive is the delegated scope that makes the resulting access token
// acceptable as an RPS ticket at user.auth.xboxlive.com.
const scopeXboxLive = "XboxLive.signin"

// Provider implements the Microsoft authorization-code flow with PKCE (S256).
type Provider struct {
	config   *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewProvider creates a Provider by fetching Microsoft's OIDC discovery
// document. Makes an outbound HTTP request at startup; returns an error if
// login.microsoftonline.com is unreachable.
func NewProvider(ctx context.Context, clientID, clientSecret, redirectURL string) (*Provider, error) {
	p, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("microsoft oidc discovery: %w", err)
	}
	return &Provider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     p.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, scopeXboxLive, "offline_access"},
		},
		verifier: p.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// AuthCodeURL builds the Microsoft consent page URL with state and PKCE S256
// challenge embedded.
func (p *Provider) AuthCodeURL(state, codeChallenge string) string {
	return p.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// Exchange trades an authorization code for the Microsoft access token.
// When an id_token is present its signature, audience, and expiry are
// verified against Microsoft's JWKS before the access token is released.
func (p *Provider) Exchange(ctx context.Context, code, codeVerifier string) (string, error) {
	token, err := p.config.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return "", fmt.Errorf("exchanging code: %w", err)
	}

	if rawIDToken, ok := token.Extra("id_token").(string); ok && rawIDToken != "" {
		if _, err := p.verifier.Verify(ctx, rawIDToken); err != nil {
			return "", fmt.Errorf("verifying id token: %w", err)
		}
	}

	if token.AccessToken == "" {
		return "", fmt.Errorf("no access_token in token response")
	}
	return token.AccessToken, nil
}
