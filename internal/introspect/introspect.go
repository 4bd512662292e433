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

// Package introspect implements the single bearer-token validation
// operation the MCP resource server collaborator calls on every request. It
// deliberately does no network fan-out: validating a token is a pure store
// lookup.
package introspect

import (
	"context"
	"errors"

	"github.com/attconnect/mcp-oauth-gateway/internal/store"
)

// ErrInvalidToken is returned for a token that is unknown, malformed, or has
// expired. Callers outside this package never need to distinguish those
// cases: all three mean "reject this request".
var ErrInvalidToken = errors.New("introspect: invalid or expired token")

// Introspector validates bearer tokens presented to the MCP resource server.
type Introspector struct {
	store store.Store
}

// New constructs an Introspector backed by the given store.
func New(s store.Store) *Introspector {
	return &Introspector{store: s}
}

// Introspect looks up token and returns its AccessToken record if it exists
// and has not expired. The returned record carries exactly the fields the
// MCP collaborator needs: client_id, scopes, resource, and expiry.
func (i *Introspector) Introspect(ctx context.Context, token string) (*store.AccessToken, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	at, err := i.store.GetAccessToken(ctx, token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	return &at, nil
}
