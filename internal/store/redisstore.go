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
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/attconnect/mcp-oauth-gateway/internal/logging"
)

// Key prefixes for each entity kind in the shared Redis keyspace.
const (
	keyPrefixClient  = "oauth:client:"
	keyPrefixPending = "oauth:pending:"
	keyPrefixCode    = "oauth:code:"
	keyPrefixAccess  = "oauth:access:"
	keyPrefixRefresh = "oauth:refresh:"
)

// RedisStore is a Store backend for deployments with multiple replicas that
// need to share authorization state. It layers the same JSON encoding used by
// FileStore over Redis keys, and relies on Redis TTLs as the primary expiry
// mechanism, with Sweep as a best-effort secondary pass for any record a TTL
// somehow missed (e.g. one set without a corresponding EXPIRE due to a
// restart mid-write).
type RedisStore struct {
	client *redis.Client

	cleanupInterval time.Duration
	stopCh          chan struct{}
	wg              sync.WaitGroup
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to addr (host:port) and returns a Store backed by
// it. The connection is verified with a PING before returning.
func NewRedisStore(ctx context.Context, addr, password string, db int, opts ...Option) (*RedisStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}

	rs := &RedisStore{
		client:          client,
		cleanupInterval: o.cleanupInterval,
		stopCh:          make(chan struct{}),
	}

	rs.wg.Add(1)
	go rs.cleanupLoop()

	return rs, nil
}

func setJSON(ctx context.Context, client *redis.Client, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if ttl <= 0 {
		return client.Set(ctx, key, data, 0).Err()
	}
	return client.Set(ctx, key, data, ttl).Err()
}

func getJSON(ctx context.Context, client *redis.Client, key string, dst any) error {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return ErrNotFound
		}
		return fmt.Errorf("reading %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parsing %s: %w", key, err)
	}
	return nil
}

// PutClient stores or replaces a client record. Clients have no expiry.
func (rs *RedisStore) PutClient(ctx context.Context, c Client) error {
	return setJSON(ctx, rs.client, keyPrefixClient+c.ClientID, c, 0)
}

// GetClient retrieves a client by ID.
func (rs *RedisStore) GetClient(ctx context.Context, clientID string) (Client, error) {
	var c Client
	err := getJSON(ctx, rs.client, keyPrefixClient+clientID, &c)
	return c, err
}

// PutPendingAuthorization stores or replaces a pending authorization.
func (rs *RedisStore) PutPendingAuthorization(ctx context.Context, p PendingAuthorization) error {
	return setJSON(ctx, rs.client, keyPrefixPending+p.TempKey, p, time.Until(p.ExpiresAt.Time))
}

// GetPendingAuthorization retrieves a pending authorization by temp-key.
func (rs *RedisStore) GetPendingAuthorization(ctx context.Context, tempKey string) (PendingAuthorization, error) {
	var p PendingAuthorization
	if err := getJSON(ctx, rs.client, keyPrefixPending+tempKey, &p); err != nil {
		return PendingAuthorization{}, err
	}
	if p.IsExpired() {
		return PendingAuthorization{}, ErrExpired
	}
	return p, nil
}

// DeletePendingAuthorization removes a pending authorization once consumed.
func (rs *RedisStore) DeletePendingAuthorization(ctx context.Context, tempKey string) error {
	return rs.client.Del(ctx, keyPrefixPending+tempKey).Err()
}

// PutAuthorizationCode stores or replaces an authorization code.
func (rs *RedisStore) PutAuthorizationCode(ctx context.Context, a AuthorizationCode) error {
	return setJSON(ctx, rs.client, keyPrefixCode+a.Code, a, time.Until(a.ExpiresAt.Time))
}

// GetAuthorizationCode retrieves an authorization code.
func (rs *RedisStore) GetAuthorizationCode(ctx context.Context, code string) (AuthorizationCode, error) {
	var a AuthorizationCode
	if err := getJSON(ctx, rs.client, keyPrefixCode+code, &a); err != nil {
		return AuthorizationCode{}, err
	}
	if a.IsExpired() {
		return AuthorizationCode{}, ErrExpired
	}
	return a, nil
}

// PutAccessToken stores or replaces an access token.
func (rs *RedisStore) PutAccessToken(ctx context.Context, a AccessToken) error {
	return setJSON(ctx, rs.client, keyPrefixAccess+a.Token, a, time.Until(a.ExpiresAt.Time))
}

// GetAccessToken retrieves an access token.
func (rs *RedisStore) GetAccessToken(ctx context.Context, token string) (AccessToken, error) {
	var a AccessToken
	if err := getJSON(ctx, rs.client, keyPrefixAccess+token, &a); err != nil {
		return AccessToken{}, err
	}
	if a.IsExpired() {
		return AccessToken{}, ErrExpired
	}
	return a, nil
}

// DeleteAccessToken removes a single access token.
func (rs *RedisStore) DeleteAccessToken(ctx context.Context, token string) error {
	return rs.client.Del(ctx, keyPrefixAccess+token).Err()
}

// DeleteAccessTokensByClient removes every access token issued to a client.
// Redis has no secondary index on client_id, so this scans the access-token
// keyspace; acceptable at the scale this server targets (a single-digit
// number of MCP clients), but a dedicated per-client set would be needed
// before this could serve a large multi-tenant deployment.
func (rs *RedisStore) DeleteAccessTokensByClient(ctx context.Context, clientID string) error {
	iter := rs.client.Scan(ctx, 0, keyPrefixAccess+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		var a AccessToken
		if err := getJSON(ctx, rs.client, key, &a); err != nil {
			continue
		}
		if a.ClientID == clientID {
			if err := rs.client.Del(ctx, key).Err(); err != nil {
				return err
			}
		}
	}
	return iter.Err()
}

// PutRefreshToken stores or replaces a refresh token.
func (rs *RedisStore) PutRefreshToken(ctx context.Context, r RefreshToken) error {
	return setJSON(ctx, rs.client, keyPrefixRefresh+r.Token, r, time.Until(r.ExpiresAt.Time))
}

// GetRefreshToken retrieves a refresh token.
func (rs *RedisStore) GetRefreshToken(ctx context.Context, token string) (RefreshToken, error) {
	var r RefreshToken
	if err := getJSON(ctx, rs.client, keyPrefixRefresh+token, &r); err != nil {
		return RefreshToken{}, err
	}
	if r.IsExpired() {
		return RefreshToken{}, ErrExpired
	}
	return r, nil
}

// DeleteRefreshToken removes a single refresh token.
func (rs *RedisStore) DeleteRefreshToken(ctx context.Context, token string) error {
	return rs.client.Del(ctx, keyPrefixRefresh+token).Err()
}

// Stats reports current population counts via keyspace scans.
func (rs *RedisStore) Stats(ctx context.Context) (Stats, error) {
	count := func(prefix string) int {
		var n int
		iter := rs.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
		for iter.Next(ctx) {
			n++
		}
		return n
	}
	return Stats{
		Clients:               count(keyPrefixClient),
		PendingAuthorizations: count(keyPrefixPending),
		AuthorizationCodes:    count(keyPrefixCode),
		AccessTokens:          count(keyPrefixAccess),
		RefreshTokens:         count(keyPrefixRefresh),
	}, nil
}

// Sweep removes pending, code and token keys that carry no TTL. setJSON
// writes the TTL in the same SET as the value, and writes no TTL when the
// given one is not positive, so those are the keys Redis never expires.
func (rs *RedisStore) Sweep(ctx context.Context) error {
	for _, prefix := range []string{keyPrefixPending, keyPrefixCode, keyPrefixAccess, keyPrefixRefresh} {
		iter := rs.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
		for iter.Next(ctx) {
			ttl, err := rs.client.TTL(ctx, iter.Val()).Result()
			if err == nil && ttl < 0 {
				_ = rs.client.Del(ctx, iter.Val()).Err()
			}
		}
		if err := iter.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (rs *RedisStore) cleanupLoop() {
	defer rs.wg.Done()

	ticker := time.NewTicker(rs.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rs.stopCh:
			return
		case <-ticker.C:
			if err := rs.Sweep(context.Background()); err != nil {
				logging.Errorw("periodic redis store sweep failed", "error", err)
			}
		}
	}
}

// Close stops the periodic sweep goroutine and closes the Redis connection.
func (rs *RedisStore) Close() error {
	close(rs.stopCh)
	rs.wg.Wait()
	return rs.client.Close()
}
