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

// Package scope normalizes and validates OAuth scope strings, and implements
// the server's refresh-token scope-narrowing policy.
package scope

import (
	"fmt"
	"strings"
)

// Policy validates requested scopes against a whitelist and supplies a
// default scope set for requests that omit one.
type Policy struct {
	// Valid is the whitelist of scopes this server will ever grant.
	Valid map[string]bool
	// Default is used verbatim when a request specifies no scope at all.
	Default []string
}

// NewPolicy builds a Policy from whitespace-delimited valid and default scope
// strings, as they arrive from configuration.
func NewPolicy(validScopes, defaultScopes string) Policy {
	valid := make(map[string]bool)
	for _, s := range splitNormalize(validScopes) {
		valid[s] = true
	}
	return Policy{
		Valid:   valid,
		Default: splitNormalize(defaultScopes),
	}
}

// splitNormalize splits a whitespace-delimited scope string, trims, lowercases
// nothing (scopes are case-sensitive per RFC 6749), and dedupes while
// preserving the caller's original ordering.
func splitNormalize(raw string) []string {
	fields := strings.Fields(raw)
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// Resolve normalizes a requested scope string, applying the default when the
// request is empty, and rejects any scope not present in the whitelist.
func (p Policy) Resolve(requested string) ([]string, error) {
	scopes := splitNormalize(requested)
	if len(scopes) == 0 {
		return append([]string(nil), p.Default...), nil
	}
	for _, s := range scopes {
		if !p.Valid[s] {
			return nil, fmt.Errorf("invalid_scope: %q is not a recognized scope", s)
		}
	}
	return scopes, nil
}

// Downscope implements the refresh-token narrowing rule: a refresh request may
// ask for any subset of the scopes the refresh token already carries. Scopes
// outside that set are silently dropped (intersection), never rejected — an
// empty result is a valid, if unusual, grant. Passing an empty requested
// string returns the full granted set unchanged.
func Downscope(granted []string, requested string) []string {
	requestedScopes := splitNormalize(requested)
	if len(requestedScopes) == 0 {
		return append([]string(nil), granted...)
	}

	grantedSet := make(map[string]bool, len(granted))
	for _, s := range granted {
		grantedSet[s] = true
	}

	out := make([]string, 0, len(requestedScopes))
	for _, s := range requestedScopes {
		if grantedSet[s] {
			out = append(out, s)
		}
	}
	return out
}

// Join renders a scope slice back into the space-delimited wire format.
func Join(scopes []string) string {
	return strings.Join(scopes, " ")
}
