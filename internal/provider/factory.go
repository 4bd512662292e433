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

import "fmt"

// Config holds the settings needed to construct any one adapter. Fields not
// relevant to a given provider type are left zero.
type Config struct {
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	TenantID      string
	LocalLoginURL string
}

// New constructs the Adapter named by providerType ("local", "google", or
// "azure"). It does not call Initialize; the caller owns that so startup can
// decide whether to treat discovery failures as fatal.
func New(providerType string, cfg Config) (Adapter, error) {
	switch providerType {
	case "local":
		return NewLocalAdapter(cfg.LocalLoginURL), nil
	case "google":
		return NewGoogleAdapter(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURL), nil
	case "azure":
		return NewAzureAdapter(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURL, cfg.TenantID), nil
	default:
		return nil, fmt.Errorf("unknown provider type %q", providerType)
	}
}
