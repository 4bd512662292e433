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

	"github.com/attconnect/mcp-oauth-gateway/internal/logging"
	"github.com/attconnect/mcp-oauth-gateway/internal/store"
)

const microsoftGraphMeURL = "https://graph.microsoft.com/v1.0/me"

// AzureAdapter federates authentication to Microsoft Entra ID (Azure AD) for
// a single tenant, via OpenID Connect.
type AzureAdapter struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TenantID     string

	// Issuer overrides the tenant-derived issuer URL; used by tests to point
	// the adapter at a local mock OIDC server.
	Issuer string

	httpClient *http.Client

	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	config   oauth2.Config
}

var _ Adapter = (*AzureAdapter)(nil)

// NewAzureAdapter constructs an Azure adapter scoped to tenantID. Initialize
// must be called before use.
func NewAzureAdapter(clientID, clientSecret, redirectURL, tenantID string) *AzureAdapter {
	return &AzureAdapter{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		TenantID:     tenantID,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *AzureAdapter) issuer() string {
	if a.Issuer != "" {
		return a.Issuer
	}
	return fmt.Sprintf("https://login.microsoftonline.com/%s/v2.0", a.TenantID)
}

// Initialize fetches the tenant's OIDC discovery document.
func (a *AzureAdapter) Initialize(ctx context.Context) error {
	if a.ClientID == "" || a.ClientSecret == "" || a.TenantID == "" {
		return ErrNotConfigured
	}

	ctx = oidc.ClientContext(ctx, a.httpClient)

	issuer := a.issuer()
	v, err, _ := discoveryGroup.Do(issuer, func() (interface{}, error) {
		return oidc.NewProvider(ctx, issuer)
	})
	if err != nil {
		return fmt.Errorf("fetching azure OIDC discovery document: %w", err)
	}
	provider := v.(*oidc.Provider)

	a.provider = provider
	a.verifier = provider.Verifier(&oidc.Config{ClientID: a.ClientID})
	a.config = oauth2.Config{
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
		RedirectURL:  a.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile", "User.Read"},
	}

	logging.Infow("azure oidc provider initialized", "tenant", a.TenantID)
	return nil
}

// InitiateAuthn returns Azure's authorization URL for this tenant.
func (a *AzureAdapter) InitiateAuthn(_ context.Context, _ store.PendingAuthorization, tempKey string) (string, error) {
	if a.provider == nil {
		return "", fmt.Errorf("azure adapter not initialized")
	}
	return a.config.AuthCodeURL(tempKey), nil
}

// HandleCallback exchanges the code, verifies the ID token, and enriches the
// identity with a Microsoft Graph /me call — Azure's ID token alone often
// lacks a usable display name for guest/B2B accounts.
func (a *AzureAdapter) HandleCallback(ctx context.Context, query url.Values) (string, *UserInfo, error) {
	if a.provider == nil {
		return "", nil, fmt.Errorf("azure adapter not initialized")
	}

	if errParam := query.Get("error"); errParam != "" {
		return "", nil, fmt.Errorf("azure authorization error: %s", errParam)
	}

	tempKey := query.Get("state")
	code := query.Get("code")
	if tempKey == "" || code == "" {
		return "", nil, fmt.Errorf("azure callback missing state or code")
	}

	ctx = oidc.ClientContext(ctx, a.httpClient)
	tokens, err := a.config.Exchange(ctx, code)
	if err != nil {
		return tempKey, nil, fmt.Errorf("exchanging azure authorization code: %w", err)
	}

	rawIDToken, ok := tokens.Extra("id_token").(string)
	if !ok {
		return tempKey, nil, fmt.Errorf("azure token response missing id_token")
	}

	idToken, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return tempKey, nil, fmt.Errorf("verifying azure id_token: %w", err)
	}

	var claims struct {
		Subject string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return tempKey, nil, fmt.Errorf("decoding azure id_token claims: %w", err)
	}

	info := &UserInfo{Subject: claims.Subject, Email: claims.Email, Name: claims.Name}
	a.enrichFromGraph(ctx, tokens.AccessToken, info)

	return tempKey, info, nil
}

// enrichFromGraph fills in Email/Name from Microsoft Graph when the ID token
// claims left them blank. Failures here are non-fatal: the ID token subject
// is already a sufficient identity.
func (a *AzureAdapter) enrichFromGraph(ctx context.Context, accessToken string, info *UserInfo) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, microsoftGraphMeURL, nil)
	if err != nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		logging.Warnw("microsoft graph /me request failed", "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logging.Warnw("microsoft graph /me returned non-200", "status", resp.StatusCode)
		return
	}

	var graphUser struct {
		Mail              string `json:"mail"`
		UserPrincipalName string `json:"userPrincipalName"`
		DisplayName       string `json:"displayName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&graphUser); err != nil {
		return
	}

	if info.Email == "" {
		if graphUser.Mail != "" {
			info.Email = graphUser.Mail
		} else {
			info.Email = graphUser.UserPrincipalName
		}
	}
	if info.Name == "" {
		info.Name = graphUser.DisplayName
	}
}

// ProviderInfo describes the Azure adapter.
func (a *AzureAdapter) ProviderInfo() Info {
	return Info{Name: "azure", DisplayName: "Microsoft"}
}
