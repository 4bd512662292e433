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

// Package httpapi routes the OAuth HTTP surface described in spec §4.6: DCR,
// /authorize, the local-login/consent form pair, provider callbacks, /token,
// /revoke, and RFC 8414 discovery metadata. One file per endpoint group,
// mirroring the teacher's server/handlers package layout.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/attconnect/mcp-oauth-gateway/internal/orchestrator"
)

// Handler holds every dependency the OAuth HTTP surface needs to serve a
// request: the orchestrator that owns all state-machine logic, the issuer
// URL discovery metadata is rendered against, and the configured scope
// whitelist advertised at discovery.
type Handler struct {
	orc         *orchestrator.Orchestrator
	issuer      string
	validScopes []string
}

// New constructs a Handler. issuer is this server's own externally-visible
// origin (SERVER_URL), used as the RFC 8414 issuer and to build endpoint
// URLs in the discovery document. validScopes is the configured scope
// whitelist, advertised verbatim as "scopes_supported".
func New(orc *orchestrator.Orchestrator, issuer string, validScopes []string) *Handler {
	return &Handler{orc: orc, issuer: issuer, validScopes: validScopes}
}

// Routes builds the chi router exposing every endpoint in spec §4.6.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/.well-known/oauth-authorization-server", h.handleDiscovery)
	r.Get("/stats", h.handleStats)
	r.Post("/register", h.handleRegister)
	r.Get("/authorize", h.handleAuthorize)
	r.Post("/oauth/login", h.handleLocalLogin)
	r.Post("/oauth/authorize/approve", h.handleApprove)
	r.Get("/oauth/consent/page", h.handleConsentPage)
	r.Get("/oauth/consent/approve", h.handleConsentApprove)
	r.Post("/oauth/consent/approve", h.handleConsentApprove)
	r.Get("/oauth/google/callback", h.handleProviderCallback("google"))
	r.Get("/oauth/azure/callback", h.handleProviderCallback("azure"))
	r.Post("/token", h.handleToken)
	r.Post("/revoke", h.handleRevoke)

	return r
}

