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

package orchestrator

import (
	"net"
	"net/url"
	"strings"
)

// matchesRegisteredRedirect reports whether requested is one of a client's
// registered redirect URIs: either an exact match (scheme, host, port, path,
// query), or an RFC 8252 Section 7.3 loopback match, where a native client
// registered against 127.0.0.1, [::1], or localhost is allowed to present any
// port at request time.
func matchesRegisteredRedirect(requested string, registered []string) (matched string, explicit bool) {
	for _, candidate := range registered {
		if requested == candidate {
			return candidate, true
		}
		if matchesAsLoopback(requested, candidate) {
			return requested, true
		}
	}
	return "", false
}

func matchesAsLoopback(requestedURI, registeredURI string) bool {
	requested, err := url.Parse(requestedURI)
	if err != nil {
		return false
	}
	registered, err := url.Parse(registeredURI)
	if err != nil {
		return false
	}

	if requested.Scheme != "http" || registered.Scheme != "http" {
		return false
	}
	if !isLoopbackHost(requested.Hostname()) || !isLoopbackHost(registered.Hostname()) {
		return false
	}
	if !hostnamesMatch(requested.Hostname(), registered.Hostname()) {
		return false
	}
	if requested.Path != registered.Path {
		return false
	}
	if requested.RawQuery != registered.RawQuery {
		return false
	}
	// Port is intentionally not compared: RFC 8252 requires the server
	// accept any ephemeral port a native client happens to bind.
	return true
}

// isLoopbackHost reports whether hostname is a loopback address per RFC 8252
// Section 7.3: "127.0.0.1", "::1", or "localhost".
func isLoopbackHost(hostname string) bool {
	if strings.EqualFold(hostname, "localhost") {
		return true
	}
	if ip := net.ParseIP(hostname); ip != nil && ip.IsLoopback() {
		return true
	}
	return false
}

func hostnamesMatch(requested, registered string) bool {
	if strings.EqualFold(requested, "localhost") && strings.EqualFold(registered, "localhost") {
		return true
	}
	return requested == registered
}
