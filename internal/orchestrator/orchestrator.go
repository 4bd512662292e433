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

// Package orchestrator implements the authorization-code state machine
// described in spec §4.5: /authorize → consent (local or federated) → code
// issuance → /token exchange → refresh → revocation. It composes a
// store.Store, a scope.Policy, and the set of configured provider.Adapters,
// and holds no state of its own beyond what it reads from and writes back to
// the store.
package orchestrator

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/attconnect/mcp-oauth-gateway/internal/oauthtoken"
	"github.com/attconnect/mcp-oauth-gateway/internal/pkce"
	"github.com/attconnect/mcp-oauth-gateway/internal/provider"
	"github.com/attconnect/mcp-oauth-gateway/internal/scope"
	"github.com/attconnect/mcp-oauth-gateway/internal/store"
)

// maxPendingAndCodeTTL is the hard ceiling spec §3 places on both
// PendingAuthorization and AuthorizationCode lifetimes, regardless of what a
// deployment configures.
const maxPendingAndCodeTTL = 10 * time.Minute

// pendingMarkerPrefix keys the replay-detection marker an approved consent
// leaves behind in the authorization-code store, per spec §6's
// "auth_codes.json — keyed by code or pending_<temp>".
const pendingMarkerPrefix = "pending_"

// Orchestrator drives one end-to-end authorization flow per spec §4.5.
type Orchestrator struct {
	store    store.Store
	scopes   scope.Policy
	adapters map[string]provider.Adapter
	// defaultProvider is used when an /authorize request does not name one.
	defaultProvider string

	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	authCodeTTL     time.Duration
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithAccessTokenTTL overrides the default 1-hour access token lifetime.
func WithAccessTokenTTL(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.accessTokenTTL = d
		}
	}
}

// WithRefreshTokenTTL overrides the default 24-hour refresh token lifetime.
func WithRefreshTokenTTL(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.refreshTokenTTL = d
		}
	}
}

// WithAuthCodeTTL overrides the default 10-minute authorization code and
// pending-authorization lifetime. Values above the spec ceiling are clamped.
func WithAuthCodeTTL(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			if d > maxPendingAndCodeTTL {
				d = maxPendingAndCodeTTL
			}
			o.authCodeTTL = d
		}
	}
}

// New constructs an Orchestrator. adapters maps provider name ("local",
// "google", "azure") to its Adapter; defaultProvider selects which one
// /authorize uses when the caller does not request one explicitly.
func New(s store.Store, scopes scope.Policy, adapters map[string]provider.Adapter, defaultProvider string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:           s,
		scopes:          scopes,
		adapters:        adapters,
		defaultProvider: defaultProvider,
		accessTokenTTL:  time.Hour,
		refreshTokenTTL: 24 * time.Hour,
		authCodeTTL:     maxPendingAndCodeTTL,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// AuthorizeRequest is the parsed query string of a GET /authorize request.
type AuthorizeRequest struct {
	ClientID            string
	RedirectURI         string
	ResponseType        string
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod string
	State               string
	Resource            string
	Provider            string
}

// Authorize validates an incoming /authorize request and returns the URL the
// browser should be redirected to next: the local login page, an upstream
// IdP's authorization endpoint, or (on failure) the caller's own redirect_uri
// carrying OAuth error parameters.
//
// Errors detected before redirect_uri has been validated against the client's
// registration are returned as *FatalError and must be rendered as a
// server-side HTML page, never as a redirect (spec §7). Errors after that
// point come back as the caller's redirect_uri carrying the OAuth error
// parameters, with a nil error.
func (o *Orchestrator) Authorize(ctx context.Context, req AuthorizeRequest) (string, error) {
	client, err := o.store.GetClient(ctx, req.ClientID)
	if err != nil {
		return "", ErrUnknownClient
	}

	redirectURI, explicit, fatal := o.resolveRedirectURI(client, req.RedirectURI)
	if fatal != nil {
		return "", fatal
	}

	if req.ResponseType != "code" {
		return o.errorRedirect(redirectURI, req.State, oauthErr(ErrInvalidRequest, "response_type must be %q", "code")), nil
	}
	if req.CodeChallenge == "" {
		return o.errorRedirect(redirectURI, req.State, oauthErr(ErrInvalidRequest, "code_challenge is required")), nil
	}
	method := req.CodeChallengeMethod
	if method == "" {
		method = pkce.MethodS256
	}
	if method != pkce.MethodS256 && method != pkce.MethodPlain {
		return o.errorRedirect(redirectURI, req.State, oauthErr(ErrInvalidRequest, "unsupported code_challenge_method %q", method)), nil
	}

	scopes, err := o.scopes.Resolve(req.Scope)
	if err != nil {
		return o.errorRedirect(redirectURI, req.State, oauthErr(ErrInvalidScope, "%s", err)), nil
	}

	providerName := req.Provider
	if providerName == "" {
		providerName = o.defaultProvider
	}
	adapter, ok := o.adapters[providerName]
	if !ok {
		return o.errorRedirect(redirectURI, req.State, oauthErr(ErrInvalidRequest, "unknown provider %q", providerName)), nil
	}

	tempKey, err := oauthtoken.NewTempKey()
	if err != nil {
		return o.errorRedirect(redirectURI, req.State, oauthErr(ErrServerError, "%s", err)), nil
	}

	now := time.Now()
	pending := store.PendingAuthorization{
		TempKey:                     tempKey,
		ClientID:                    client.ClientID,
		RedirectURI:                 redirectURI,
		RedirectURIProvidedExplicit: explicit,
		Scope:                       scope.Join(scopes),
		CodeChallenge:               req.CodeChallenge,
		CodeChallengeMethod:         method,
		Resource:                    req.Resource,
		Provider:                    providerName,
		OriginalState:               req.State,
		CreatedAt:                   store.Timestamp(now),
		ExpiresAt:                   store.Timestamp(now.Add(o.authCodeTTL)),
	}
	if err := o.store.PutPendingAuthorization(ctx, pending); err != nil {
		return o.errorRedirect(redirectURI, req.State, oauthErr(ErrServerError, "%s", err)), nil
	}

	redirectURL, err := adapter.InitiateAuthn(ctx, pending, tempKey)
	if err != nil {
		return o.errorRedirect(redirectURI, req.State, oauthErr(ErrServerError, "%s", err)), nil
	}
	return redirectURL, nil
}

// resolveRedirectURI validates the redirect_uri supplied at /authorize (or
// its omission) against the client's registration, per spec §4.5: exact
// match including scheme/host/port/path, with RFC 8252 loopback tolerance
// for the port and with a single registered URI usable implicitly.
func (o *Orchestrator) resolveRedirectURI(client store.Client, requested string) (uri string, explicit bool, err *FatalError) {
	if requested == "" {
		if len(client.RedirectURIs) != 1 {
			return "", false, &FatalError{Message: "redirect_uri is required: client has zero or multiple registered URIs"}
		}
		return client.RedirectURIs[0], false, nil
	}

	matched, ok := matchesRegisteredRedirect(requested, client.RedirectURIs)
	if !ok {
		return "", false, ErrRedirectURIMismatch
	}
	return matched, true, nil
}

func (o *Orchestrator) errorRedirect(redirectURI, state string, oe *OAuthError) string {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return redirectURI
	}
	q := u.Query()
	q.Set("error", oe.Code)
	if oe.Description != "" {
		q.Set("error_description", oe.Description)
	}
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// CompleteLocalLogin advances a local-adapter pending authorization from
// "awaiting authentication" to "awaiting consent" once the demo login form
// has been submitted. Any non-empty identifier is accepted as authenticated,
// per spec's demo-mode non-goal (no credential verification).
func (o *Orchestrator) CompleteLocalLogin(ctx context.Context, tempKey, identifier string) (store.PendingAuthorization, error) {
	if identifier == "" {
		return store.PendingAuthorization{}, oauthErr(ErrInvalidRequest, "identifier is required")
	}
	pending, err := o.store.GetPendingAuthorization(ctx, tempKey)
	if err != nil {
		return store.PendingAuthorization{}, fmt.Errorf("loading pending authorization: %w", err)
	}

	info := provider.UserInfo{Subject: identifier, Email: identifier, Name: identifier}
	pending.UserInfo = info.AsMap()
	if err := o.store.PutPendingAuthorization(ctx, pending); err != nil {
		return store.PendingAuthorization{}, fmt.Errorf("persisting pending authorization: %w", err)
	}
	return pending, nil
}

// HandleProviderCallback processes the redirect back from a federated IdP,
// correlates it to its PendingAuthorization via the temp-key the adapter
// bound as the upstream "state", and attaches the resolved identity —
// advancing the flow to "awaiting consent" exactly like the local adapter's
// login form does.
func (o *Orchestrator) HandleProviderCallback(ctx context.Context, providerName string, query url.Values) (store.PendingAuthorization, error) {
	adapter, ok := o.adapters[providerName]
	if !ok {
		return store.PendingAuthorization{}, fmt.Errorf("unknown provider %q", providerName)
	}

	tempKey, info, err := adapter.HandleCallback(ctx, query)
	if err != nil {
		if tempKey != "" {
			if pending, lerr := o.store.GetPendingAuthorization(ctx, tempKey); lerr == nil {
				return store.PendingAuthorization{}, &redirectableError{
					redirectURI: pending.RedirectURI,
					state:       pending.OriginalState,
					oauthErr:    oauthErr(ErrServerError, "%s", err),
				}
			}
		}
		return store.PendingAuthorization{}, fmt.Errorf("provider callback failed: %w", err)
	}

	pending, err := o.store.GetPendingAuthorization(ctx, tempKey)
	if err != nil {
		return store.PendingAuthorization{}, fmt.Errorf("loading pending authorization: %w", err)
	}

	pending.UserInfo = info.AsMap()
	if err := o.store.PutPendingAuthorization(ctx, pending); err != nil {
		return store.PendingAuthorization{}, fmt.Errorf("persisting pending authorization: %w", err)
	}
	return pending, nil
}

// redirectableError lets a handler distinguish a failure that should become
// a front-channel redirect (the redirect_uri is already known) from one that
// has nowhere safe to go.
type redirectableError struct {
	redirectURI string
	state       string
	oauthErr    *OAuthError
}

func (e *redirectableError) Error() string { return e.oauthErr.Error() }

// RedirectURL renders this error as a front-channel redirect URL.
func (e *redirectableError) RedirectURL() string {
	u, err := url.Parse(e.redirectURI)
	if err != nil {
		return e.redirectURI
	}
	q := u.Query()
	q.Set("error", e.oauthErr.Code)
	if e.oauthErr.Description != "" {
		q.Set("error_description", e.oauthErr.Description)
	}
	if e.state != "" {
		q.Set("state", e.state)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// PendingForConsent loads the pending authorization and its client for
// rendering a consent page, used by both the local and federated flows.
func (o *Orchestrator) PendingForConsent(ctx context.Context, tempKey string) (store.PendingAuthorization, store.Client, error) {
	pending, err := o.store.GetPendingAuthorization(ctx, tempKey)
	if err != nil {
		return store.PendingAuthorization{}, store.Client{}, fmt.Errorf("loading pending authorization: %w", err)
	}
	client, err := o.store.GetClient(ctx, pending.ClientID)
	if err != nil {
		return store.PendingAuthorization{}, store.Client{}, fmt.Errorf("loading client: %w", err)
	}
	return pending, client, nil
}

// ApproveConsent finalizes consent for tempKey, minting a one-time
// authorization code and returning the client redirect URL that carries it.
// A second approval of the same temp-key (double form submission, browser
// back-button) returns ErrAlreadyProcessed rather than an error, per spec
// §4.5's duplicate-consent tie-break.
func (o *Orchestrator) ApproveConsent(ctx context.Context, tempKey string) (string, error) {
	if _, err := o.store.GetAuthorizationCode(ctx, pendingMarkerPrefix+tempKey); err == nil {
		return "", ErrAlreadyProcessed
	}

	pending, err := o.store.GetPendingAuthorization(ctx, tempKey)
	if err != nil {
		return "", fmt.Errorf("loading pending authorization: %w", err)
	}

	code, err := oauthtoken.NewAuthorizationCode()
	if err != nil {
		return "", fmt.Errorf("generating authorization code: %w", err)
	}

	now := time.Now()
	record := store.AuthorizationCode{
		Code:                          code,
		ClientID:                      pending.ClientID,
		RedirectURI:                   pending.RedirectURI,
		RedirectURIProvidedExplicitly: pending.RedirectURIProvidedExplicit,
		Scope:                         pending.Scope,
		CodeChallenge:                 pending.CodeChallenge,
		CodeChallengeMethod:           pending.CodeChallengeMethod,
		Resource:                      pending.Resource,
		Provider:                      pending.Provider,
		UserInfo:                      pending.UserInfo,
		CreatedAt:                     store.Timestamp(now),
		ExpiresAt:                     store.Timestamp(now.Add(o.authCodeTTL)),
	}
	if err := o.store.PutAuthorizationCode(ctx, record); err != nil {
		return "", fmt.Errorf("persisting authorization code: %w", err)
	}

	marker := record
	marker.Code = pendingMarkerPrefix + tempKey
	if err := o.store.PutAuthorizationCode(ctx, marker); err != nil {
		return "", fmt.Errorf("persisting consent marker: %w", err)
	}

	if err := o.store.DeletePendingAuthorization(ctx, tempKey); err != nil {
		return "", fmt.Errorf("deleting pending authorization: %w", err)
	}

	return o.codeRedirect(pending.RedirectURI, code, pending.OriginalState), nil
}

func (o *Orchestrator) codeRedirect(redirectURI, code, state string) string {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return redirectURI
	}
	q := u.Query()
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// DenyConsent aborts a pending authorization at the user's request and
// returns the client redirect URL carrying error=access_denied.
func (o *Orchestrator) DenyConsent(ctx context.Context, tempKey string) (string, error) {
	pending, err := o.store.GetPendingAuthorization(ctx, tempKey)
	if err != nil {
		return "", fmt.Errorf("loading pending authorization: %w", err)
	}
	if err := o.store.DeletePendingAuthorization(ctx, tempKey); err != nil {
		return "", fmt.Errorf("deleting pending authorization: %w", err)
	}
	return o.errorRedirect(pending.RedirectURI, pending.OriginalState, &OAuthError{Code: ErrAccessDenied}), nil
}

// TokenResponse is the JSON body returned from a successful /token request.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

// CodeExchangeRequest is the parsed body of a grant_type=authorization_code
// /token request.
type CodeExchangeRequest struct {
	ClientID     string
	ClientSecret string
	Code         string
	CodeVerifier string
	RedirectURI  string
}

// authenticateClient loads a client and, if it is confidential, verifies the
// presented secret in constant time via bcrypt. Public clients (no stored
// hash) are never required to present one, but per spec §9 must still
// satisfy PKCE, which is enforced unconditionally elsewhere.
func (o *Orchestrator) authenticateClient(ctx context.Context, clientID, clientSecret string) (store.Client, error) {
	client, err := o.store.GetClient(ctx, clientID)
	if err != nil {
		return store.Client{}, oauthErr(ErrInvalidClient, "unknown client_id")
	}
	if client.HasSecret() {
		if clientSecret == "" {
			return store.Client{}, oauthErr(ErrInvalidClient, "client_secret is required for this client")
		}
		if bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(clientSecret)) != nil {
			return store.Client{}, oauthErr(ErrInvalidClient, "client_secret does not match")
		}
	}
	return client, nil
}

// ExchangeAuthorizationCode implements grant_type=authorization_code, per
// spec §4.5 and the replay-detection requirement in §3/§8: a code already
// marked used causes this exchange to fail and revokes the token pair it
// originally produced.
func (o *Orchestrator) ExchangeAuthorizationCode(ctx context.Context, req CodeExchangeRequest) (*TokenResponse, error) {
	client, err := o.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}

	code, err := o.store.GetAuthorizationCode(ctx, req.Code)
	if err != nil {
		return nil, oauthErr(ErrInvalidGrant, "authorization code is unknown or expired")
	}

	if code.Used {
		o.revokeIssuedFrom(ctx, code)
		return nil, oauthErr(ErrInvalidGrant, "authorization code has already been used")
	}

	if code.ClientID != client.ClientID {
		return nil, oauthErr(ErrInvalidGrant, "authorization code was not issued to this client")
	}

	if code.RedirectURIProvidedExplicitly {
		if req.RedirectURI != code.RedirectURI {
			return nil, oauthErr(ErrInvalidGrant, "redirect_uri does not match the one used at /authorize")
		}
	} else if req.RedirectURI != "" && req.RedirectURI != code.RedirectURI {
		return nil, oauthErr(ErrInvalidGrant, "redirect_uri does not match the one used at /authorize")
	}

	if !pkce.Verify(code.CodeChallengeMethod, req.CodeVerifier, code.CodeChallenge) {
		return nil, oauthErr(ErrInvalidGrant, "code_verifier does not match code_challenge")
	}

	scopes := strings.Fields(code.Scope)

	access, refresh, err := o.mintTokenPair(ctx, client.ClientID, scopes, code.Resource, code.UserInfo)
	if err != nil {
		return nil, oauthErr(ErrServerError, "%s", err)
	}

	code.Used = true
	code.IssuedAccessToken = access.Token
	code.IssuedRefreshToken = refresh.Token
	if err := o.store.PutAuthorizationCode(ctx, code); err != nil {
		return nil, oauthErr(ErrServerError, "%s", err)
	}

	return &TokenResponse{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		TokenType:    "Bearer",
		ExpiresIn:    o.expiresIn(access.ExpiresAt),
		Scope:        code.Scope,
	}, nil
}

// revokeIssuedFrom deletes the specific access/refresh tokens a now-replayed
// code originally produced. Best-effort: a missing token (already expired,
// already revoked) is not an error.
func (o *Orchestrator) revokeIssuedFrom(ctx context.Context, code store.AuthorizationCode) {
	if code.IssuedAccessToken != "" {
		_ = o.store.DeleteAccessToken(ctx, code.IssuedAccessToken)
	}
	if code.IssuedRefreshToken != "" {
		_ = o.store.DeleteRefreshToken(ctx, code.IssuedRefreshToken)
	}
}

// RefreshRequest is the parsed body of a grant_type=refresh_token /token
// request.
type RefreshRequest struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Scope        string
}

// RefreshTokens implements grant_type=refresh_token, rotating the refresh
// token on every use and downscoping the new grant to the intersection of
// what was requested and what was originally granted (spec §9 Open Question
// #1, resolved: downscope rather than reject upscoping outright).
func (o *Orchestrator) RefreshTokens(ctx context.Context, req RefreshRequest) (*TokenResponse, error) {
	client, err := o.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}

	old, err := o.store.GetRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, oauthErr(ErrInvalidGrant, "refresh token is unknown or expired")
	}
	if old.ClientID != client.ClientID {
		return nil, oauthErr(ErrInvalidGrant, "refresh token was not issued to this client")
	}

	newScopes := scope.Downscope(strings.Fields(old.Scope), req.Scope)

	access, refresh, err := o.mintTokenPair(ctx, client.ClientID, newScopes, "", old.UserInfo)
	if err != nil {
		return nil, oauthErr(ErrServerError, "%s", err)
	}

	if err := o.store.DeleteRefreshToken(ctx, req.RefreshToken); err != nil {
		return nil, oauthErr(ErrServerError, "%s", err)
	}

	return &TokenResponse{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		TokenType:    "Bearer",
		ExpiresIn:    o.expiresIn(access.ExpiresAt),
		Scope:        scope.Join(newScopes),
	}, nil
}

func (o *Orchestrator) mintTokenPair(ctx context.Context, clientID string, scopes []string, resource string, userInfo map[string]any) (store.AccessToken, store.RefreshToken, error) {
	accessTok, err := oauthtoken.NewBearerToken()
	if err != nil {
		return store.AccessToken{}, store.RefreshToken{}, fmt.Errorf("minting access token: %w", err)
	}
	refreshTok, err := oauthtoken.NewBearerToken()
	if err != nil {
		return store.AccessToken{}, store.RefreshToken{}, fmt.Errorf("minting refresh token: %w", err)
	}

	now := time.Now()
	access := store.AccessToken{
		Token:     accessTok,
		ClientID:  clientID,
		Scope:     scope.Join(scopes),
		Resource:  resource,
		UserInfo:  userInfo,
		CreatedAt: store.Timestamp(now),
		ExpiresAt: store.Timestamp(now.Add(o.accessTokenTTL)),
	}
	refresh := store.RefreshToken{
		Token:     refreshTok,
		ClientID:  clientID,
		Scope:     scope.Join(scopes),
		UserInfo:  userInfo,
		CreatedAt: store.Timestamp(now),
		ExpiresAt: store.Timestamp(now.Add(o.refreshTokenTTL)),
	}

	if err := o.store.PutAccessToken(ctx, access); err != nil {
		return store.AccessToken{}, store.RefreshToken{}, fmt.Errorf("persisting access token: %w", err)
	}
	if err := o.store.PutRefreshToken(ctx, refresh); err != nil {
		return store.AccessToken{}, store.RefreshToken{}, fmt.Errorf("persisting refresh token: %w", err)
	}
	return access, refresh, nil
}

func (o *Orchestrator) expiresIn(exp interface{ Unix() int64 }) int64 {
	d := exp.Unix() - time.Now().Unix()
	if d < 0 {
		return 0
	}
	return d
}

// RevokeRequest is the parsed body of a /revoke request (RFC 7009).
type RevokeRequest struct {
	Token         string
	TokenTypeHint string
}

// Revoke implements RFC 7009: it accepts either an access or a refresh
// token, and revoking a refresh token cascades to every access token issued
// to the same client. Per RFC 7009 §2.2, an unknown token is not an error:
// the endpoint always reports success.
func (o *Orchestrator) Revoke(ctx context.Context, req RevokeRequest) error {
	if req.Token == "" {
		return oauthErr(ErrInvalidRequest, "token is required")
	}

	if req.TokenTypeHint != "refresh_token" {
		if _, err := o.store.GetAccessToken(ctx, req.Token); err == nil {
			return o.store.DeleteAccessToken(ctx, req.Token)
		}
	}

	refresh, err := o.store.GetRefreshToken(ctx, req.Token)
	if err == nil {
		if derr := o.store.DeleteRefreshToken(ctx, req.Token); derr != nil {
			return derr
		}
		return o.store.DeleteAccessTokensByClient(ctx, refresh.ClientID)
	}

	// The hint is only a lookup-order optimization: fall back to the access
	// tokens when a refresh_token hint was wrong.
	if req.TokenTypeHint == "refresh_token" {
		if _, err := o.store.GetAccessToken(ctx, req.Token); err == nil {
			return o.store.DeleteAccessToken(ctx, req.Token)
		}
	}

	// Not found under either kind: RFC 7009 treats this as success too.
	return nil
}

// Stats returns a population snapshot of the underlying store, for
// operational visibility endpoints.
func (o *Orchestrator) Stats(ctx context.Context) (store.Stats, error) {
	return o.store.Stats(ctx)
}

// ClientRegistrationRequest is the parsed JSON body of a POST /register
// request (RFC 7591).
type ClientRegistrationRequest struct {
	ClientName              string
	RedirectURIs            []string
	GrantTypes              []string
	Scope                   string
	TokenEndpointAuthMethod string
}

// RegisterClient implements RFC 7591 dynamic client registration. The
// returned plain-text secret is non-empty only for confidential clients
// (token_endpoint_auth_method other than "none"); only its bcrypt hash is
// ever persisted.
func (o *Orchestrator) RegisterClient(ctx context.Context, req ClientRegistrationRequest) (store.Client, string, error) {
	if len(req.RedirectURIs) == 0 {
		return store.Client{}, "", oauthErr(ErrInvalidRequest, "redirect_uris must contain at least one URI")
	}

	grantTypes := req.GrantTypes
	if len(grantTypes) == 0 {
		grantTypes = []string{"authorization_code", "refresh_token"}
	}
	for _, g := range grantTypes {
		if g != "authorization_code" && g != "refresh_token" {
			return store.Client{}, "", oauthErr(ErrInvalidRequest, "unsupported grant_type %q", g)
		}
	}

	clientScope := req.Scope
	if clientScope == "" {
		clientScope = scope.Join(o.scopes.Default)
	} else if _, err := o.scopes.Resolve(clientScope); err != nil {
		return store.Client{}, "", oauthErr(ErrInvalidScope, "%s", err)
	}

	public := req.TokenEndpointAuthMethod == "" || req.TokenEndpointAuthMethod == "none"

	var secretHash, plainSecret string
	if !public {
		secret, err := oauthtoken.NewBearerToken()
		if err != nil {
			return store.Client{}, "", fmt.Errorf("generating client secret: %w", err)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			return store.Client{}, "", fmt.Errorf("hashing client secret: %w", err)
		}
		secretHash = string(hash)
		plainSecret = secret
	}

	client := store.Client{
		ClientID:     uuid.NewString(),
		ClientName:   req.ClientName,
		SecretHash:   secretHash,
		RedirectURIs: req.RedirectURIs,
		GrantTypes:   grantTypes,
		Scope:        clientScope,
		Public:       public,
		CreatedAt:    store.Timestamp(time.Now()),
	}
	if err := o.store.PutClient(ctx, client); err != nil {
		return store.Client{}, "", fmt.Errorf("persisting client: %w", err)
	}
	return client, plainSecret, nil
}
