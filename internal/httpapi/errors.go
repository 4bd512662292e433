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

package httpapi

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"

	"github.com/attconnect/mcp-oauth-gateway/internal/orchestrator"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// oauthErrorBody is the back-channel JSON error shape every OAuth endpoint
// returns on failure (spec §4.6, §7).
type oauthErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func writeOAuthError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, oauthErrorBody{Error: code, ErrorDescription: description})
}

// statusForOAuthError maps a protocol error code to the HTTP status the back
// channel should report it with, per RFC 6749 §5.2.
func statusForOAuthError(code string) int {
	switch code {
	case orchestrator.ErrServerError:
		return http.StatusInternalServerError
	case orchestrator.ErrInvalidClient, orchestrator.ErrUnauthorizedClient:
		return http.StatusUnauthorized
	default:
		return http.StatusBadRequest
	}
}

// writeBackChannelError renders err as a back-channel JSON error body,
// translating an *orchestrator.OAuthError into its code/description and
// falling back to server_error for anything else.
func writeBackChannelError(w http.ResponseWriter, err error) {
	if oe, ok := err.(*orchestrator.OAuthError); ok {
		writeOAuthError(w, statusForOAuthError(oe.Code), oe.Code, oe.Description)
		return
	}
	writeOAuthError(w, http.StatusInternalServerError, orchestrator.ErrServerError, err.Error())
}

// renderFatalErrorPage renders a minimal, server-side HTML error page for
// failures detected before a redirect_uri has been validated against the
// requesting client — spec §7 forbids redirecting to an unvalidated URI even
// to carry an error.
func renderFatalErrorPage(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusBadRequest)
	fmt.Fprintf(w, `<!DOCTYPE html><html><head><title>Authorization Error</title></head>
<body><h1>Authorization Error</h1><p>%s</p></body></html>`, html.EscapeString(message))
}
