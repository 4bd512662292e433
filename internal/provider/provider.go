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

// Package provider defines the capability interface federated identity
// sources implement (a local demo login, Google, and Azure Entra ID), and
// provides a concrete implementation of each.
package provider

import (
	"context"
	"errors"
	"net/url"

	"github.com/attconnect/mcp-oauth-gateway/internal/store"
)

// ErrNotConfigured is returned by adapters that require credentials the
// deployment did not supply.
var ErrNotConfigured = errors.New("provider: not configured")

// UserInfo is the identity data an adapter resolves for the end user,
// normalized across providers so the orchestrator and store need not know
// which provider produced it.
type UserInfo struct {
	Subject string `json:"sub"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
}

// AsMap renders UserInfo for storage in AuthorizationCode.UserInfo /
// AccessToken.UserInfo, which are typed as map[string]any to stay agnostic of
// any one provider's claim set.
func (u UserInfo) AsMap() map[string]any {
	m := map[string]any{"sub": u.Subject}
	if u.Email != "" {
		m["email"] = u.Email
	}
	if u.Name != "" {
		m["name"] = u.Name
	}
	return m
}

// Info describes a provider for display purposes (e.g. a login-chooser page)
// and for discovery-metadata responses.
type Info struct {
	Name        string
	DisplayName string
}

// Adapter is the capability interface every identity source implements. It
// intentionally has no shared base type: adapters differ enough (a
// round-trip to an external IdP vs. a local consent page) that a capability
// interface composed explicitly by the orchestrator fits better than a class
// hierarchy would.
type Adapter interface {
	// Initialize performs any one-time setup needed before the adapter can be
	// used, such as fetching an OIDC discovery document.
	Initialize(ctx context.Context) error

	// InitiateAuthn returns the URL the end user's browser should be
	// redirected to in order to begin authentication with this provider.
	// tempKey both identifies the PendingAuthorization record in the store
	// and, for federated adapters, doubles as the upstream "state" parameter
	// so the callback can be correlated back to it without ever exposing the
	// caller's own state value to the upstream IdP.
	InitiateAuthn(ctx context.Context, pending store.PendingAuthorization, tempKey string) (redirectURL string, err error)

	// HandleCallback processes the redirect back from the upstream IdP,
	// returning the temp-key it was initiated with and the resolved user
	// identity. Not used by adapters (like local) that never leave this
	// server.
	HandleCallback(ctx context.Context, query url.Values) (tempKey string, info *UserInfo, err error)

	// ProviderInfo describes this adapter for display and discovery.
	ProviderInfo() Info
}
