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

package introspect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attconnect/mcp-oauth-gateway/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestIntrospect_ValidToken(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutAccessToken(ctx, store.AccessToken{
		Token:     "tok-123",
		ClientID:  "client-a",
		Scope:     "read",
		ExpiresAt: store.Timestamp(time.Now().Add(time.Hour)),
	}))

	intro := New(s)
	at, err := intro.Introspect(ctx, "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "client-a", at.ClientID)
	assert.Equal(t, "read", at.Scope)
}

func TestIntrospect_UnknownToken(t *testing.T) {
	intro := New(newTestStore(t))
	_, err := intro.Introspect(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIntrospect_EmptyToken(t *testing.T) {
	intro := New(newTestStore(t))
	_, err := intro.Introspect(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestIntrospect_RevokedTokenIsInvalid(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutAccessToken(ctx, store.AccessToken{
		Token:     "tok-revoked",
		ClientID:  "client-a",
		Scope:     "read",
		ExpiresAt: store.Timestamp(time.Now().Add(time.Hour)),
	}))

	intro := New(s)
	_, err := intro.Introspect(ctx, "tok-revoked")
	require.NoError(t, err)

	require.NoError(t, s.DeleteAccessToken(ctx, "tok-revoked"))
	_, err = intro.Introspect(ctx, "tok-revoked")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
