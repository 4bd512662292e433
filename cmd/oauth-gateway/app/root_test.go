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

package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRootCmd_HasServeSubcommand(t *testing.T) {
	root := NewRootCmd()
	assert.Equal(t, "oauth-gateway", root.Use)

	serve, _, err := root.Find([]string{"serve"})
	assert.NoError(t, err)
	assert.Equal(t, "serve", serve.Name())
}
