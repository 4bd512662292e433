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

// Package app provides the entry point for the oauth-gateway command-line
// application.
package app

import (
	"github.com/spf13/cobra"

	"github.com/attconnect/mcp-oauth-gateway/internal/logging"
)

// NewRootCmd creates the root command for the oauth-gateway CLI.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "oauth-gateway",
		DisableAutoGenTag: true,
		Short:             "An OAuth 2.1 authorization server for MCP servers",
		Long: `oauth-gateway is a standalone OAuth 2.1 authorization server: it issues and
validates opaque bearer tokens on behalf of MCP servers that would otherwise
have no authentication story of their own, using an upstream identity
provider (or a built-in demo login) to establish who the user is.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				logging.Warnw("failed to display help", "error", err)
			}
		},
	}

	rootCmd.AddCommand(newServeCmd())
	return rootCmd
}
