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

package provider

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attconnect/mcp-oauth-gateway/internal/store"
)

func TestLocalAdapter_InitiateAuthnCarriesTempKey(t *testing.T) {
	t.Parallel()

	a := NewLocalAdapter("https://auth.example.com/oauth/login")
	require.NoError(t, a.Initialize(context.Background()))

	redirectURL, err := a.InitiateAuthn(context.Background(), store.PendingAuthorization{}, "abc123")
	require.NoError(t, err)

	parsed, err := url.Parse(redirectURL)
	require.NoError(t, err)
	assert.Equal(t, "abc123", parsed.Query().Get("temp_key"))
	assert.Equal(t, "/oauth/login", parsed.Path)
}

func TestLocalAdapter_HandleCallbackUnsupported(t *testing.T) {
	t.Parallel()

	a := NewLocalAdapter("https://auth.example.com/oauth/login")
	_, _, err := a.HandleCallback(context.Background(), url.Values{})
	assert.Error(t, err)
}

func TestLocalAdapter_ProviderInfo(t *testing.T) {
	t.Parallel()

	a := NewLocalAdapter("https://auth.example.com/oauth/login")
	info := a.ProviderInfo()
	assert.Equal(t, "local", info.Name)
}
