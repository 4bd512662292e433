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

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/attconnect/mcp-oauth-gateway/internal/logging"
)

const (
	clientsFile      = "clients.json"
	pendingFile      = "pending_authorizations.json"
	codesFile        = "auth_codes.json"
	accessTokensFile = "access_tokens.json"
	refreshFile      = "refresh_tokens.json"
)

// FileStore is a directory of JSON files, one per entity kind, guarded by a
// single mutex. Every mutation rewrites its file via write-temp-then-rename so
// a crash mid-write never leaves a truncated file behind.
type FileStore struct {
	dir string
	mu  sync.RWMutex

	clients map[string]Client
	pending map[string]PendingAuthorization
	codes   map[string]AuthorizationCode
	access  map[string]AccessToken
	refresh map[string]RefreshToken

	cleanupInterval time.Duration
	stopCh          chan struct{}
	wg              sync.WaitGroup
}

var _ Store = (*FileStore)(nil)

// NewFileStore opens (creating if necessary) a JSON-file store rooted at dir,
// loading any existing data, and starts its periodic expiry sweep.
func NewFileStore(dir string, opts ...Option) (*FileStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	fs := &FileStore{
		dir:             dir,
		clients:         make(map[string]Client),
		pending:         make(map[string]PendingAuthorization),
		codes:           make(map[string]AuthorizationCode),
		access:          make(map[string]AccessToken),
		refresh:         make(map[string]RefreshToken),
		cleanupInterval: o.cleanupInterval,
		stopCh:          make(chan struct{}),
	}

	if err := fs.loadAll(); err != nil {
		return nil, err
	}

	fs.wg.Add(1)
	go fs.cleanupLoop()

	return fs, nil
}

func (fs *FileStore) loadAll() error {
	if err := loadJSONFile(filepath.Join(fs.dir, clientsFile), &fs.clients); err != nil {
		return err
	}
	if err := loadJSONFile(filepath.Join(fs.dir, pendingFile), &fs.pending); err != nil {
		return err
	}
	if err := loadJSONFile(filepath.Join(fs.dir, codesFile), &fs.codes); err != nil {
		return err
	}
	if err := loadJSONFile(filepath.Join(fs.dir, accessTokensFile), &fs.access); err != nil {
		return err
	}
	if err := loadJSONFile(filepath.Join(fs.dir, refreshFile), &fs.refresh); err != nil {
		return err
	}
	return nil
}

func loadJSONFile(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// writeTempThenRename serializes v to JSON and atomically replaces path.
func writeTempThenRename(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming temp file into %s: %w", path, err)
	}
	return nil
}

// The five persist*Locked helpers must be called with fs.mu held.

func (fs *FileStore) persistClientsLocked() error {
	return writeTempThenRename(filepath.Join(fs.dir, clientsFile), fs.clients)
}

func (fs *FileStore) persistPendingLocked() error {
	return writeTempThenRename(filepath.Join(fs.dir, pendingFile), fs.pending)
}

func (fs *FileStore) persistCodesLocked() error {
	return writeTempThenRename(filepath.Join(fs.dir, codesFile), fs.codes)
}

func (fs *FileStore) persistAccessLocked() error {
	return writeTempThenRename(filepath.Join(fs.dir, accessTokensFile), fs.access)
}

func (fs *FileStore) persistRefreshLocked() error {
	return writeTempThenRename(filepath.Join(fs.dir, refreshFile), fs.refresh)
}

// PutClient stores or replaces a client record.
func (fs *FileStore) PutClient(_ context.Context, c Client) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.clients[c.ClientID] = c
	return fs.persistClientsLocked()
}

// GetClient retrieves a client by ID.
func (fs *FileStore) GetClient(_ context.Context, clientID string) (Client, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	c, ok := fs.clients[clientID]
	if !ok {
		return Client{}, ErrNotFound
	}
	return c, nil
}

// PutPendingAuthorization stores or replaces a pending authorization.
func (fs *FileStore) PutPendingAuthorization(_ context.Context, p PendingAuthorization) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.pending[p.TempKey] = p
	return fs.persistPendingLocked()
}

// GetPendingAuthorization retrieves a pending authorization by temp-key.
func (fs *FileStore) GetPendingAuthorization(_ context.Context, tempKey string) (PendingAuthorization, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	p, ok := fs.pending[tempKey]
	if !ok {
		return PendingAuthorization{}, ErrNotFound
	}
	if p.IsExpired() {
		return PendingAuthorization{}, ErrExpired
	}
	return p, nil
}

// DeletePendingAuthorization removes a pending authorization once consumed.
func (fs *FileStore) DeletePendingAuthorization(_ context.Context, tempKey string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.pending, tempKey)
	return fs.persistPendingLocked()
}

// PutAuthorizationCode stores or replaces an authorization code.
func (fs *FileStore) PutAuthorizationCode(_ context.Context, a AuthorizationCode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.codes[a.Code] = a
	return fs.persistCodesLocked()
}

// GetAuthorizationCode retrieves an authorization code.
func (fs *FileStore) GetAuthorizationCode(_ context.Context, code string) (AuthorizationCode, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	a, ok := fs.codes[code]
	if !ok {
		return AuthorizationCode{}, ErrNotFound
	}
	if a.IsExpired() {
		return AuthorizationCode{}, ErrExpired
	}
	return a, nil
}

// PutAccessToken stores or replaces an access token.
func (fs *FileStore) PutAccessToken(_ context.Context, a AccessToken) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.access[a.Token] = a
	return fs.persistAccessLocked()
}

// GetAccessToken retrieves an access token.
func (fs *FileStore) GetAccessToken(_ context.Context, token string) (AccessToken, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	a, ok := fs.access[token]
	if !ok {
		return AccessToken{}, ErrNotFound
	}
	if a.IsExpired() {
		return AccessToken{}, ErrExpired
	}
	return a, nil
}

// DeleteAccessToken removes a single access token (direct revocation).
func (fs *FileStore) DeleteAccessToken(_ context.Context, token string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.access, token)
	return fs.persistAccessLocked()
}

// DeleteAccessTokensByClient removes every access token issued to a client,
// used to cascade a refresh-token revocation to its derived access tokens.
func (fs *FileStore) DeleteAccessTokensByClient(_ context.Context, clientID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	for tok, a := range fs.access {
		if a.ClientID == clientID {
			delete(fs.access, tok)
		}
	}
	return fs.persistAccessLocked()
}

// PutRefreshToken stores or replaces a refresh token.
func (fs *FileStore) PutRefreshToken(_ context.Context, r RefreshToken) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.refresh[r.Token] = r
	return fs.persistRefreshLocked()
}

// GetRefreshToken retrieves a refresh token.
func (fs *FileStore) GetRefreshToken(_ context.Context, token string) (RefreshToken, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	r, ok := fs.refresh[token]
	if !ok {
		return RefreshToken{}, ErrNotFound
	}
	if r.IsExpired() {
		return RefreshToken{}, ErrExpired
	}
	return r, nil
}

// DeleteRefreshToken removes a single refresh token.
func (fs *FileStore) DeleteRefreshToken(_ context.Context, token string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	delete(fs.refresh, token)
	return fs.persistRefreshLocked()
}

// Stats reports current population counts.
func (fs *FileStore) Stats(_ context.Context) (Stats, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return Stats{
		Clients:               len(fs.clients),
		PendingAuthorizations: len(fs.pending),
		AuthorizationCodes:    len(fs.codes),
		AccessTokens:          len(fs.access),
		RefreshTokens:         len(fs.refresh),
	}, nil
}

// Sweep deletes every expired pending authorization, code, and token, and
// rewrites only the files that actually changed.
func (fs *FileStore) Sweep(_ context.Context) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var changedPending, changedCodes, changedAccess, changedRefresh bool

	for k, v := range fs.pending {
		if v.IsExpired() {
			delete(fs.pending, k)
			changedPending = true
		}
	}
	for k, v := range fs.codes {
		if v.IsExpired() {
			delete(fs.codes, k)
			changedCodes = true
		}
	}
	for k, v := range fs.access {
		if v.IsExpired() {
			delete(fs.access, k)
			changedAccess = true
		}
	}
	for k, v := range fs.refresh {
		if v.IsExpired() {
			delete(fs.refresh, k)
			changedRefresh = true
		}
	}

	if changedPending {
		if err := fs.persistPendingLocked(); err != nil {
			return err
		}
	}
	if changedCodes {
		if err := fs.persistCodesLocked(); err != nil {
			return err
		}
	}
	if changedAccess {
		if err := fs.persistAccessLocked(); err != nil {
			return err
		}
	}
	if changedRefresh {
		if err := fs.persistRefreshLocked(); err != nil {
			return err
		}
	}
	return nil
}

func (fs *FileStore) cleanupLoop() {
	defer fs.wg.Done()

	ticker := time.NewTicker(fs.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-fs.stopCh:
			return
		case <-ticker.C:
			if err := fs.Sweep(context.Background()); err != nil {
				logging.Errorw("periodic store sweep failed", "error", err)
			}
		}
	}
}

// Close stops the periodic sweep goroutine. It does not delete any data.
func (fs *FileStore) Close() error {
	close(fs.stopCh)
	fs.wg.Wait()
	return nil
}
