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
	"errors"
	"fmt"
)

// ErrAlreadyProcessed is the duplicate-consent tie-break sentinel: approving
// the same temp-key twice is not an error from the caller's point of view,
// just a no-op the HTTP surface reports as an already-succeeded request.
var ErrAlreadyProcessed = errors.New("orchestrator: consent already processed")

// ErrUnknownClient, ErrRedirectURIMismatch are FatalErrors: they are detected
// before a redirect_uri has been validated, so per spec §7 they must never
// produce a redirect to an unvalidated URI. The HTTP surface renders these as
// a server-side HTML error page instead.
var (
	ErrUnknownClient       = &FatalError{Message: "unknown client_id"}
	ErrRedirectURIMismatch = &FatalError{Message: "redirect_uri is not registered for this client"}
)

// FatalError is a pre-redirect-validation failure. It must be rendered as an
// HTML error page, never as a redirect, because the redirect_uri has not
// been established as belonging to the client.
type FatalError struct {
	Message string
}

func (e *FatalError) Error() string { return e.Message }

// OAuthError is a post-redirect-validation failure: the OAuth error code and
// description to carry on the client redirect (front-channel) or in the JSON
// body (back-channel), per the error schema in spec §4.6/§7.
type OAuthError struct {
	Code        string
	Description string
}

func (e *OAuthError) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func oauthErr(code, format string, args ...any) *OAuthError {
	return &OAuthError{Code: code, Description: fmt.Sprintf(format, args...)}
}

// Standard OAuth 2.1 error codes this orchestrator emits.
const (
	ErrInvalidRequest     = "invalid_request"
	ErrInvalidClient      = "invalid_client"
	ErrInvalidGrant       = "invalid_grant"
	ErrInvalidScope       = "invalid_scope"
	ErrUnauthorizedClient = "unauthorized_client"
	ErrUnsupportedGrant   = "unsupported_grant_type"
	ErrAccessDenied       = "access_denied"
	ErrServerError        = "server_error"
)
