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
	"net/http"
	"net/url"
	"testing"

	"github.com/oauth2-proxy/mockoidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attconnect/mcp-oauth-gateway/internal/store"
)

// noRedirectClient returns an HTTP client that reports the next redirect
// location instead of following it, so a test can step through an
// authorization round-trip one hop at a time.
func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func startMockOIDC(t *testing.T) *mockoidc.MockOIDC {
	t.Helper()
	m, err := mockoidc.Run()
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Shutdown() })
	m.QueueUser(&mockoidc.MockUser{
		Subject: "mock-user-sub-123",
		Email:   "testuser@example.com",
	})
	return m
}

func TestGoogleAdapter_FullRoundTrip(t *testing.T) {
	t.Parallel()

	m := startMockOIDC(t)
	cfg := m.Config()

	a := NewGoogleAdapter(cfg.ClientID, cfg.ClientSecret, "https://auth.example.com/oauth/google/callback")
	a.Issuer = m.Issuer()
	require.NoError(t, a.Initialize(context.Background()))

	authorizeURL, err := a.InitiateAuthn(context.Background(), store.PendingAuthorization{}, "temp-key-1")
	require.NoError(t, err)

	parsed, err := url.Parse(authorizeURL)
	require.NoError(t, err)
	assert.Equal(t, "temp-key-1", parsed.Query().Get("state"))

	client := noRedirectClient()
	resp, err := client.Get(authorizeURL)
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	callbackLocation, err := resp.Location()
	require.NoError(t, err)
	resp.Body.Close()

	tempKey, info, err := a.HandleCallback(context.Background(), callbackLocation.Query())
	require.NoError(t, err)
	assert.Equal(t, "temp-key-1", tempKey)
	assert.Equal(t, "mock-user-sub-123", info.Subject)
	assert.Equal(t, "testuser@example.com", info.Email)
}

func TestGoogleAdapter_InitializeRequiresCredentials(t *testing.T) {
	t.Parallel()

	a := NewGoogleAdapter("", "", "https://auth.example.com/oauth/google/callback")
	err := a.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGoogleAdapter_HandleCallbackRejectsUpstreamError(t *testing.T) {
	t.Parallel()

	m := startMockOIDC(t)
	cfg := m.Config()
	a := NewGoogleAdapter(cfg.ClientID, cfg.ClientSecret, "https://auth.example.com/oauth/google/callback")
	a.Issuer = m.Issuer()
	require.NoError(t, a.Initialize(context.Background()))

	_, _, err := a.HandleCallback(context.Background(), url.Values{"error": {"access_denied"}})
	assert.Error(t, err)
}

func TestGoogleAdapter_ProviderInfo(t *testing.T) {
	t.Parallel()

	a := NewGoogleAdapter("id", "secret", "https://auth.example.com/oauth/google/callback")
	assert.Equal(t, "google", a.ProviderInfo().Name)
}
