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

import "net/http"

// handleStats serves GET /stats, a population snapshot of the store for
// operational visibility. It carries no secrets, so it is unauthenticated
// like the rest of this server's informational endpoints.
func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orc.Stats(r.Context())
	if err != nil {
		writeBackChannelError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
