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
	"fmt"
	"html"
	"net/http"
	"net/url"

	"github.com/attconnect/mcp-oauth-gateway/internal/logging"
	"github.com/attconnect/mcp-oauth-gateway/internal/orchestrator"
)

// handleLocalLogin serves POST /oauth/login: the demo credential form the
// local provider adapter redirects an /authorize request to. Any non-empty
// identifier is accepted, per the spec's no-real-credential-store non-goal.
func (h *Handler) handleLocalLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderFatalErrorPage(w, "malformed form body")
		return
	}

	tempKey := r.FormValue("temp_key")
	identifier := r.FormValue("identifier")

	pending, err := h.orc.CompleteLocalLogin(r.Context(), tempKey, identifier)
	if err != nil {
		writeBackChannelError(w, err)
		return
	}

	consentURL := "/oauth/consent/page?" + url.Values{"temp_key": {pending.TempKey}}.Encode()
	http.Redirect(w, r, consentURL, http.StatusFound)
}

// handleApprove serves POST /oauth/authorize/approve, the local consent
// form's submit action. A resubmission of an already-processed temp_key is
// reported as success rather than an error (spec §4.5 duplicate-consent
// tie-break).
func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderFatalErrorPage(w, "malformed form body")
		return
	}
	h.resolveConsent(w, r, r.FormValue("temp_key"), r.FormValue("action"))
}

// handleConsentPage serves GET /oauth/consent/page, rendering the scope
// grant prompt once a pending authorization has an identity attached
// (whether from the local login form or a federated provider callback).
func (h *Handler) handleConsentPage(w http.ResponseWriter, r *http.Request) {
	tempKey := r.URL.Query().Get("temp_key")
	pending, client, err := h.orc.PendingForConsent(r.Context(), tempKey)
	if err != nil {
		writeBackChannelError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `<!DOCTYPE html><html><head><title>Authorize %s</title></head>
<body>
<h1>%s is requesting access</h1>
<p>Requested scope: %s</p>
<form method="POST" action="/oauth/consent/approve">
<input type="hidden" name="temp_key" value="%s">
<button type="submit" name="action" value="approve">Allow</button>
<button type="submit" name="action" value="deny">Deny</button>
</form>
</body></html>`, html.EscapeString(client.ClientName), html.EscapeString(client.ClientName), html.EscapeString(pending.Scope), html.EscapeString(tempKey))
}

// handleConsentApprove serves GET and POST /oauth/consent/approve, the
// federated-login counterpart of handleApprove.
func (h *Handler) handleConsentApprove(w http.ResponseWriter, r *http.Request) {
	tempKey := r.URL.Query().Get("temp_key")
	action := r.URL.Query().Get("action")
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			renderFatalErrorPage(w, "malformed form body")
			return
		}
		if v := r.FormValue("temp_key"); v != "" {
			tempKey = v
		}
		if v := r.FormValue("action"); v != "" {
			action = v
		}
	}
	h.resolveConsent(w, r, tempKey, action)
}

func (h *Handler) resolveConsent(w http.ResponseWriter, r *http.Request, tempKey, action string) {
	var redirectURL string
	var err error
	if action == "deny" {
		redirectURL, err = h.orc.DenyConsent(r.Context(), tempKey)
	} else {
		redirectURL, err = h.orc.ApproveConsent(r.Context(), tempKey)
	}

	if errors.Is(err, orchestrator.ErrAlreadyProcessed) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "already_processed"})
		return
	}
	if err != nil {
		logging.Warnw("consent resolution failed", "error", err)
		writeBackChannelError(w, err)
		return
	}

	http.Redirect(w, r, redirectURL, http.StatusFound)
}
