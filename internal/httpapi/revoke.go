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

	"github.com/attconnect/mcp-oauth-gateway/internal/logging"
	"github.com/attconnect/mcp-oauth-gateway/internal/orchestrator"
)

// handleRevoke serves POST /revoke (RFC 7009). Per RFC 7009 §2.2 the
// endpoint reports success even for a token it does not recognize, so a
// client cannot probe token validity through this endpoint.
func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, orchestrator.ErrInvalidRequest, "malformed form body")
		return
	}

	err := h.orc.Revoke(r.Context(), orchestrator.RevokeRequest{
		Token:         r.FormValue("token"),
		TokenTypeHint: r.FormValue("token_type_hint"),
	})
	if err != nil {
		logging.Warnw("revoke request rejected", "error", err)
		writeBackChannelError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
