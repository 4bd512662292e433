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
	"net/http"

	"github.com/attconnect/mcp-oauth-gateway/internal/orchestrator"
)

// handleToken serves POST /token, dispatching on grant_type to either the
// authorization-code exchange or the refresh-token rotation, per spec §4.5.
// Client credentials may arrive via HTTP Basic auth or as form parameters
// (RFC 6749 §2.3.1); the form takes precedence when both are present.
func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, orchestrator.ErrInvalidRequest, "malformed form body")
		return
	}

	clientID := r.FormValue("client_id")
	clientSecret := r.FormValue("client_secret")
	if clientID == "" {
		if basicID, basicSecret, ok := r.BasicAuth(); ok {
			clientID, clientSecret = basicID, basicSecret
		}
	}

	grantType := r.FormValue("grant_type")

	var (
		resp *orchestrator.TokenResponse
		err  error
	)

	switch grantType {
	case "authorization_code":
		resp, err = h.orc.ExchangeAuthorizationCode(r.Context(), orchestrator.CodeExchangeRequest{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Code:         r.FormValue("code"),
			CodeVerifier: r.FormValue("code_verifier"),
			RedirectURI:  r.FormValue("redirect_uri"),
		})
	case "refresh_token":
		resp, err = h.orc.RefreshTokens(r.Context(), orchestrator.RefreshRequest{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RefreshToken: r.FormValue("refresh_token"),
			Scope:        r.FormValue("scope"),
		})
	default:
		writeOAuthError(w, http.StatusBadRequest, orchestrator.ErrUnsupportedGrant, "grant_type must be authorization_code or refresh_token")
		return
	}

	if err != nil {
		writeBackChannelError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	writeJSON(w, http.StatusOK, resp)
}
