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
	"errors"
	"net/http"

	"github.com/attconnect/mcp-oauth-gateway/internal/logging"
	"github.com/attconnect/mcp-oauth-gateway/internal/orchestrator"
)

// handleAuthorize serves GET /authorize, the front-channel entry point of
// the authorization-code grant. A failure here is either a *FatalError
// (client or redirect_uri could not be established — rendered as an HTML
// page per spec §7) or a redirect URL already carrying an OAuth error.
func (h *Handler) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := orchestrator.AuthorizeRequest{
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		ResponseType:        q.Get("response_type"),
		Scope:               q.Get("scope"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
		State:               q.Get("state"),
		Resource:            q.Get("resource"),
		Provider:            q.Get("provider"),
	}

	redirectURL, err := h.orc.Authorize(r.Context(), req)
	if err != nil {
		var fatal *orchestrator.FatalError
		if errors.As(err, &fatal) {
			logging.Warnw("authorize request rejected before redirect validation", "error", fatal.Error())
			renderFatalErrorPage(w, fatal.Error())
			return
		}
		renderFatalErrorPage(w, err.Error())
		return
	}

	http.Redirect(w, r, redirectURL, http.StatusFound)
}
