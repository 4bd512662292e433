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

// Package oauthtoken mints the opaque, random token material used for
// temp-keys, authorization codes, and access/refresh tokens. None of these
// values are self-describing: their only meaning is as a lookup key into the
// store, which is what makes them opaque bearer tokens rather than JWTs.
package oauthtoken

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	// TempKeyBytes is the size of a temp-key or authorization code in bytes
	// (128 bits) before base64url encoding.
	TempKeyBytes = 16
	// BearerTokenBytes is the size of an access or refresh token in bytes
	// (256 bits) before base64url encoding.
	BearerTokenBytes = 32
)

// New returns a cryptographically random, URL-safe opaque string encoding n
// random bytes. It never returns fewer characters than requested bytes worth
// of entropy.
func New(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// NewTempKey returns a new 128-bit temp-key, used to bind a pending
// authorization across the login and consent steps and as the upstream state
// on an external IdP round-trip. Authorization codes come from
// NewAuthorizationCode instead.
func NewTempKey() (string, error) {
	return New(TempKeyBytes)
}

// NewAuthorizationCode returns a new 128-bit authorization code.
func NewAuthorizationCode() (string, error) {
	return New(TempKeyBytes)
}

// NewBearerToken returns a new 256-bit opaque access or refresh token.
func NewBearerToken() (string, error) {
	return New(BearerTokenBytes)
}
