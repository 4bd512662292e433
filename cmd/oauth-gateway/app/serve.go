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
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/attconnect/mcp-oauth-gateway/internal/config"
	"github.com/attconnect/mcp-oauth-gateway/internal/httpapi"
	"github.com/attconnect/mcp-oauth-gateway/internal/logging"
	"github.com/attconnect/mcp-oauth-gateway/internal/orchestrator"
	"github.com/attconnect/mcp-oauth-gateway/internal/provider"
	"github.com/attconnect/mcp-oauth-gateway/internal/scope"
	"github.com/attconnect/mcp-oauth-gateway/internal/store"
)

var (
	listenAddr string
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the OAuth authorization server",
		Long:  `Starts the OAuth authorization server and listens for HTTP requests.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer cancel()
			return runServe(ctx, listenAddr)
		},
	}
	cmd.Flags().StringVar(&listenAddr, "addr", ":8080", "Address to bind the HTTP server to")
	return cmd
}

func runServe(ctx context.Context, addr string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if err := logging.Initialize(cfg.LogLevel, cfg.LogDevelopment); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logging.Sync() }()

	if !cfg.Enabled {
		logging.Info("OAuth gateway is disabled (OAUTH_ENABLED=false); serving nothing")
		<-ctx.Done()
		return nil
	}

	s, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing store: %w", err)
	}
	defer func() { _ = s.Close() }()

	adapters, defaultProvider, err := newAdapters(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing identity providers: %w", err)
	}

	policy := scope.NewPolicy(cfg.ValidScopes, cfg.DefaultScopes)

	orc := orchestrator.New(s, policy, adapters, defaultProvider,
		orchestrator.WithAccessTokenTTL(cfg.AccessTokenTTL),
		orchestrator.WithRefreshTokenTTL(cfg.RefreshTokenTTL),
		orchestrator.WithAuthCodeTTL(cfg.AuthCodeTTL),
	)

	handler := httpapi.New(orc, cfg.ServerURL, strings.Fields(cfg.ValidScopes))

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Infow("oauth gateway listening", "addr", addr, "issuer", cfg.ServerURL, "provider", cfg.Provider)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	logging.Info("shutting down oauth gateway")
	return srv.Shutdown(shutdownCtx)
}

func newStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.StoreBackend {
	case "redis":
		s, err := store.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			store.WithCleanupInterval(cfg.CleanupInterval))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		s, err := store.NewFileStore(cfg.DataDir, store.WithCleanupInterval(cfg.CleanupInterval))
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

// newAdapters builds every provider.Adapter this server can hand an
// /authorize request to: the local demo adapter is always available, and the
// configured federated provider (if any) is added alongside it and becomes
// the default.
func newAdapters(ctx context.Context, cfg config.Config) (map[string]provider.Adapter, string, error) {
	adapters := map[string]provider.Adapter{
		"local": provider.NewLocalAdapter(cfg.ServerURL + "/oauth/login"),
	}
	defaultProvider := "local"

	if cfg.Provider == "custom" {
		return adapters, defaultProvider, nil
	}

	adapter, err := provider.New(cfg.Provider, provider.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TenantID:     cfg.TenantID,
		RedirectURL:  fmt.Sprintf("%s/oauth/%s/callback", cfg.ServerURL, cfg.Provider),
	})
	if err != nil {
		return nil, "", err
	}
	if err := adapter.Initialize(ctx); err != nil {
		return nil, "", fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	adapters[cfg.Provider] = adapter
	defaultProvider = cfg.Provider
	return adapters, defaultProvider, nil
}
