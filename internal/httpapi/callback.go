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
	"net/url"

	"github.com/attconnect/mcp-oauth-gateway/internal/logging"
)

// redirectableError is satisfied by orchestrator's unexported
// redirectableError type: a callback failure that can still be safely
// redirected back to the client because its redirect_uri was already
// established before the IdP round-trip began.
type redirectableError interface {
	error
	RedirectURL() string
}

// handleProviderCallback returns the GET handler for a federated IdP's
// redirect back to this server, for the given provider name ("google",
// "azure"). It correlates the callback to its pending authorization,
// attaches the resolved identity, and sends the browser on to the consent
// page.
func (h *Handler) handleProviderCallback(providerName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pending, err := h.orc.HandleProviderCallback(r.Context(), providerName, r.URL.Query())
		if err != nil {
			if rerr, ok := err.(redirectableError); ok {
				logging.Warnw("provider callback failed, redirecting to client", "provider", providerName, "error", rerr.Error())
				http.Redirect(w, r, rerr.RedirectURL(), http.StatusFound)
				return
			}
			logging.Warnw("provider callback failed", "provider", providerName, "error", err)
			renderFatalErrorPage(w, err.Error())
			return
		}

		consentURL := "/oauth/consent/page?" + url.Values{"temp_key": {pending.TempKey}}.Encode()
		http.Redirect(w, r, consentURL, http.StatusFound)
	}
}
