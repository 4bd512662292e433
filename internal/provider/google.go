// Copyright 2025 The MCP OAuth Gateway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/attconnect/mcp-oauth-gateway/internal/logging"
	"github.com/attconnect/mcp-oauth-gateway/internal/store"
)

const googleIssuer = "https://accounts.google.com"
const googleUserinfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// discoveryGroup deduplicates concurrent OIDC discovery-document fetches for
// the same issuer across every federated adapter in the process, so a burst
// of authorization requests arriving before Initialize has completed doesn't
// fan out into one HTTP round-trip per request.
var discoveryGroup singleflight.Group

// GoogleAdapter federates authentication to Google via OpenID Connect. It
// mints its own opaque tokens independently of whatever Google issues; the
// upstream tokens are used only long enough to resolve the user's identity.
type GoogleAdapter struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// Issuer defaults to Google's real issuer; overridable so tests can
	// point the adapter at a local mock OIDC server instead.
	Issuer string

	httpClient *http.Client

	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	config   oauth2.Config
}

var _ Adapter = (*GoogleAdapter)(nil)

// NewGoogleAdapter constructs a Google adapter. Initialize must be called
// before use.
func NewGoogleAdapter(clientID, clientSecret, redirectURL string) *GoogleAdapter {
	return &GoogleAdapter{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Issuer:       googleIssuer,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Initialize fetches Google's OIDC discovery document and builds the
// oauth2.Config used for every subsequent authorization round-trip.
func (a *GoogleAdapter) Initialize(ctx context.Context) error {
	if a.ClientID == "" || a.ClientSecret == "" {
		return ErrNotConfigured
	}
	if a.Issuer == "" {
		a.Issuer = googleIssuer
	}

	ctx = oidc.ClientContext(ctx, a.httpClient)

	v, err, _ := discoveryGroup.Do(a.Issuer, func() (interface{}, error) {
		return oidc.NewProvider(ctx, a.Issuer)
	})
	if err != nil {
		return fmt.Errorf("fetching google OIDC discovery document: %w", err)
	}
	provider := v.(*oidc.Provider)

	a.provider = provider
	a.verifier = provider.Verifier(&oidc.Config{ClientID: a.ClientID})
	a.config = oauth2.Config{
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
		RedirectURL:  a.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
	}

	logging.Infow("google oidc provider initialized", "issuer", a.Issuer)
	return nil
}

// InitiateAuthn returns Google's authorization URL, using tempKey as the
// "state" value so the callback can be correlated back to the
// PendingAuthorization without ever forwarding the caller's own state to
// Google.
func (a *GoogleAdapter) InitiateAuthn(_ context.Context, _ store.PendingAuthorization, tempKey string) (string, error) {
	if a.provider == nil {
		return "", fmt.Errorf("google adapter not initialized")
	}
	return a.config.AuthCodeURL(tempKey, oauth2.AccessTypeOffline), nil
}

// HandleCallback exchanges the authorization code from Google's redirect,
// verifies the returned ID token, and resolves the user's identity.
func (a *GoogleAdapter) HandleCallback(ctx context.Context, query url.Values) (string, *UserInfo, error) {
	if a.provider == nil {
		return "", nil, fmt.Errorf("google adapter not initialized")
	}

	if errParam := query.Get("error"); errParam != "" {
		return "", nil, fmt.Errorf("google authorization error: %s", errParam)
	}

	tempKey := query.Get("state")
	code := query.Get("code")
	if tempKey == "" || code == "" {
		return "", nil, fmt.Errorf("google callback missing state or code")
	}

	ctx = oidc.ClientContext(ctx, a.httpClient)
	tokens, err := a.config.Exchange(ctx, code)
	if err != nil {
		return tempKey, nil, fmt.Errorf("exchanging google authorization code: %w", err)
	}

	rawIDToken, ok := tokens.Extra("id_token").(string)
	if !ok {
		return tempKey, nil, fmt.Errorf("google token response missing id_token")
	}

	idToken, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return tempKey, nil, fmt.Errorf("verifying google id_token: %w", err)
	}

	var claims struct {
		Subject string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return tempKey, nil, fmt.Errorf("decoding google id_token claims: %w", err)
	}

	info := &UserInfo{Subject: claims.Subject, Email: claims.Email, Name: claims.Name}
	a.enrichFromUserinfo(ctx, tokens.AccessToken, info)

	return tempKey, info, nil
}

// enrichFromUserinfo fetches https://www.googleapis.com/oauth2/v3/userinfo
// with the access token from the code exchange and prefers its fields over
// whatever the ID token claims already supplied. Failures here are
// non-fatal: the ID token subject is already a sufficient identity.
func (a *GoogleAdapter) enrichFromUserinfo(ctx context.Context, accessToken string, info *UserInfo) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleUserinfoURL, nil)
	if err != nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		logging.Warnw("google userinfo request failed", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logging.Warnw("google userinfo returned non-200", "status", resp.StatusCode)
		return
	}

	var userinfo struct {
		Subject string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&userinfo); err != nil {
		return
	}

	if userinfo.Subject != "" {
		info.Subject = userinfo.Subject
	}
	if userinfo.Email != "" {
		info.Email = userinfo.Email
	}
	if userinfo.Name != "" {
		info.Name = userinfo.Name
	}
}

// ProviderInfo describes the Google adapter.
func (a *GoogleAdapter) ProviderInfo() Info {
	return Info{Name: "google", DisplayName: "Google"}
}
