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

// Package pkce implements RFC 7636 Proof Key for Code Exchange: generating
// verifiers, computing challenges, and verifying a presented verifier against
// a stored challenge in constant time.
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// MethodS256 is the SHA-256 challenge method, and the one /authorize assumes
// when a request names no method.
const MethodS256 = "S256"

// MethodPlain is the RFC 7636 plain transform, where the challenge equals the
// verifier. /authorize accepts it alongside S256 and Verify checks it.
const MethodPlain = "plain"

// verifierBytes is 32 random bytes, which base64url-encodes to 43 characters —
// the minimum length RFC 7636 allows and a common choice in the wild.
const verifierBytes = 32

// GenerateVerifier returns a new random code_verifier, 43 characters long, as
// required by RFC 7636 Section 4.1 (43-128 characters from the unreserved
// character set; base64url without padding satisfies this).
func GenerateVerifier() (string, error) {
	buf := make([]byte, verifierBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating PKCE verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// ComputeChallenge computes the S256 code_challenge for a given verifier:
// BASE64URL-ENCODE(SHA256(ASCII(verifier))), per RFC 7636 Section 4.2.
func ComputeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Verify checks a presented code_verifier against the challenge and method
// recorded when the authorization code was issued. Comparisons are constant
// time to avoid leaking information about a partially-correct verifier.
func Verify(method, verifier, challenge string) bool {
	switch method {
	case MethodS256:
		computed := ComputeChallenge(verifier)
		return subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) == 1
	case MethodPlain:
		return subtle.ConstantTimeCompare([]byte(verifier), []byte(challenge)) == 1
	default:
		return false
	}
}
