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

package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_ValidLevel(t *testing.T) {
	t.Parallel()

	err := Initialize("debug", true)
	require.NoError(t, err)
	assert.NotNil(t, Get())
}

func TestInitialize_UnknownLevelFallsBackToInfo(t *testing.T) {
	t.Parallel()

	err := Initialize("not-a-level", true)
	require.NoError(t, err)
	assert.NotNil(t, Get())
}

func TestGet_NeverNil(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, Get())
}

func TestPackageLevelHelpersDoNotPanic(t *testing.T) {
	t.Parallel()

	require.NoError(t, Initialize("debug", true))
	assert.NotPanics(t, func() {
		Debugw("test debug", "k", "v")
		Infow("test info", "k", "v")
		Warnw("test warn", "k", "v")
		Errorw("test error", "k", "v")
		Debug("plain debug")
		Info("plain info")
	})
}
