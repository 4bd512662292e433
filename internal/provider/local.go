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
	"fmt"
	"net/url"

	"github.com/attconnect/mcp-oauth-gateway/internal/store"
)

// LocalAdapter is the built-in demo identity source: it never leaves this
// server. Authentication is completed through the server's own
// /oauth/login + /oauth/authorize/approve form pair instead of an external
// callback, so HandleCallback is never invoked for it.
type LocalAdapter struct {
	// LoginURL is the base path of the server's own login page, e.g.
	// "https://auth.example.com/oauth/login".
	LoginURL string
}

var _ Adapter = (*LocalAdapter)(nil)

// NewLocalAdapter constructs the local demo adapter.
func NewLocalAdapter(loginURL string) *LocalAdapter {
	return &LocalAdapter{LoginURL: loginURL}
}

// Initialize is a no-op: the local adapter has no external dependency to
// warm up.
func (a *LocalAdapter) Initialize(_ context.Context) error {
	return nil
}

// InitiateAuthn points the browser at this server's own login page, carrying
// the temp-key so the login form can be tied back to the pending
// authorization once the user submits credentials.
func (a *LocalAdapter) InitiateAuthn(_ context.Context, _ store.PendingAuthorization, tempKey string) (string, error) {
	u, err := url.Parse(a.LoginURL)
	if err != nil {
		return "", fmt.Errorf("parsing local login URL: %w", err)
	}
	q := u.Query()
	q.Set("temp_key", tempKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// HandleCallback is never called for the local adapter; the login flow
// completes via the orchestrator's CompleteLocalLogin/ApproveConsent methods
// instead of a provider redirect.
func (a *LocalAdapter) HandleCallback(_ context.Context, _ url.Values) (string, *UserInfo, error) {
	return "", nil, fmt.Errorf("local provider has no external callback")
}

// ProviderInfo describes the local adapter.
func (a *LocalAdapter) ProviderInfo() Info {
	return Info{Name: "local", DisplayName: "Demo Login"}
}
