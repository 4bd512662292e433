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

// Package store persists OAuth clients, pending authorizations, authorization
// codes, and access/refresh tokens, and exposes them behind a single Store
// interface with interchangeable backends (a JSON-file directory by default,
// or Redis for shared state across replicas).
package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// unixTime marshals as an integer number of POSIX seconds but accepts either
// a JSON integer or float on the way in, since the Python-era data this format
// descends from sometimes wrote floating-point timestamps.
type unixTime struct {
	time.Time
}

func newUnixTime(t time.Time) unixTime { return unixTime{t} }

// Timestamp wraps an arbitrary time.Time as the timestamp type used by every
// CreatedAt/ExpiresAt field on the entities in this package, for callers
// outside the package (the orchestrator, mainly) that need to construct
// those entities directly.
func Timestamp(t time.Time) unixTime { return newUnixTime(t) }

// MarshalJSON always emits an integer.
func (u unixTime) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(u.Unix(), 10)), nil
}

// UnmarshalJSON accepts an int or a float.
func (u *unixTime) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("unixTime: %w", err)
	}
	u.Time = time.Unix(int64(f), 0).UTC()
	return nil
}

// IsExpired reports whether the timestamp has passed, as of now.
func (u unixTime) IsExpired() bool {
	return time.Now().After(u.Time)
}

// Client is a registered OAuth client, created via the Dynamic Client
// Registration endpoint and reloaded from the store at startup.
type Client struct {
	ClientID     string   `json:"client_id"`
	ClientName   string   `json:"client_name,omitempty"`
	SecretHash   string   `json:"client_secret_hash,omitempty"`
	RedirectURIs []string `json:"redirect_uris"`
	GrantTypes   []string `json:"grant_types"`
	Scope        string   `json:"scope"`
	Public       bool     `json:"public"`
	CreatedAt    unixTime `json:"created_at"`
}

// HasSecret reports whether this is a confidential client (a secret hash was
// stored at registration time).
func (c Client) HasSecret() bool {
	return c.SecretHash != ""
}

// PendingAuthorization tracks an in-flight /authorize request between its
// initial arrival and either local-login consent or an external IdP callback.
type PendingAuthorization struct {
	TempKey                     string         `json:"temp_key"`
	ClientID                    string         `json:"client_id"`
	RedirectURI                 string         `json:"redirect_uri"`
	RedirectURIProvidedExplicit bool           `json:"redirect_uri_provided_explicitly"`
	Scope                       string         `json:"scope"`
	CodeChallenge               string         `json:"code_challenge"`
	CodeChallengeMethod         string         `json:"code_challenge_method"`
	Resource                    string         `json:"resource,omitempty"`
	Provider                    string         `json:"provider"`
	OriginalState               string         `json:"original_state,omitempty"`
	UserInfo                    map[string]any `json:"user_info,omitempty"`
	CreatedAt                   unixTime       `json:"created_at"`
	ExpiresAt                   unixTime       `json:"expires_at"`
}

// IsExpired reports whether the pending authorization has timed out.
func (p PendingAuthorization) IsExpired() bool { return p.ExpiresAt.IsExpired() }

// AuthorizationCode is a single-use code, exchangeable once for a token pair.
type AuthorizationCode struct {
	Code                          string         `json:"code"`
	ClientID                      string         `json:"client_id"`
	RedirectURI                   string         `json:"redirect_uri"`
	RedirectURIProvidedExplicitly bool           `json:"redirect_uri_provided_explicitly"`
	Scope                         string         `json:"scope"`
	CodeChallenge                 string         `json:"code_challenge"`
	CodeChallengeMethod           string         `json:"code_challenge_method"`
	Resource                      string         `json:"resource,omitempty"`
	Provider                      string         `json:"provider"`
	UserInfo                      map[string]any `json:"user_info,omitempty"`
	CreatedAt                     unixTime       `json:"created_at"`
	ExpiresAt                     unixTime       `json:"expires_at"`
	Used                          bool           `json:"used"`
	// IssuedAccessToken and IssuedRefreshToken record the token pair minted
	// from this code, so a replay attempt can revoke exactly those tokens
	// (spec-recommended defense against code reuse) without a broader sweep.
	IssuedAccessToken  string `json:"issued_access_token,omitempty"`
	IssuedRefreshToken string `json:"issued_refresh_token,omitempty"`
}

// IsExpired reports whether the authorization code has timed out.
func (a AuthorizationCode) IsExpired() bool { return a.ExpiresAt.IsExpired() }

// AccessToken is an opaque bearer token granting access to the MCP resource
// server for a bounded lifetime and scope set.
type AccessToken struct {
	Token     string         `json:"token"`
	ClientID  string         `json:"client_id"`
	Scope     string         `json:"scope"`
	Resource  string         `json:"resource,omitempty"`
	UserInfo  map[string]any `json:"user_info,omitempty"`
	CreatedAt unixTime       `json:"created_at"`
	ExpiresAt unixTime       `json:"expires_at"`
}

// IsExpired reports whether the access token has timed out.
func (a AccessToken) IsExpired() bool { return a.ExpiresAt.IsExpired() }

// RefreshToken is an opaque token exchangeable for a new access/refresh token
// pair, rotated on every use.
type RefreshToken struct {
	Token     string         `json:"token"`
	ClientID  string         `json:"client_id"`
	Scope     string         `json:"scope"`
	UserInfo  map[string]any `json:"user_info,omitempty"`
	CreatedAt unixTime       `json:"created_at"`
	ExpiresAt unixTime       `json:"expires_at"`
}

// IsExpired reports whether the refresh token has timed out.
func (r RefreshToken) IsExpired() bool { return r.ExpiresAt.IsExpired() }

// Stats summarizes the current population of each entity kind, for
// operational visibility.
type Stats struct {
	Clients               int `json:"clients"`
	PendingAuthorizations int `json:"pending_authorizations"`
	AuthorizationCodes    int `json:"authorization_codes"`
	AccessTokens          int `json:"access_tokens"`
	RefreshTokens         int `json:"refresh_tokens"`
}

func newExpiry(ttl time.Duration) unixTime {
	return newUnixTime(time.Now().Add(ttl))
}
