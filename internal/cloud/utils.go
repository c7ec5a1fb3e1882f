// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud provides components for interacting with external services.
// This file contains general-purpose utility functions that support the cloud package.
// These helpers cover hierarchical configuration loading and resilient
// interaction with the Generative AI API.
//
// Functions:
//   - LoadConfig: Reads a base TOML file, then an environment-specific override
//     (e.g., .env.local.toml, .env.test.toml), then applies environment variables.
//   - GenerateMultiModalResponse: A wrapper for calls to the GenAI model with
//     retries and token usage metrics.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"
)

const (
	ConfigFileBaseName  = ".env"              // The base name for configuration files (e.g., ".env.toml").
	ConfigFileExtension = ".toml"             // The file extension for configuration files.
	ConfigSeparator     = "."                 // The separator used in config file names (e.g., ".env.local.toml").
	EnvConfigFilePrefix = "APP_CONFIG_PREFIX" // The environment variable for specifying the config directory.
	EnvConfigRuntime    = "APP_RUNTIME"       // The environment variable for specifying the runtime (e.g., "local", "test").
	MaxRetries          = 3                   // The maximum number of times to retry a failed GenAI call.
)

// Environment variables that override the TOML configuration.
const (
	EnvYouTubeAPIKey       = "YOUTUBE_API_KEY"
	EnvSpotifyClientID     = "SPOTIFY_CLIENT_ID"
	EnvSpotifyClientSecret = "SPOTIFY_CLIENT_SECRET"
	EnvGoogleProject       = "GOOGLE_CLOUD_PROJECT"
	EnvPort                = "PORT"
)

func fileExists(in string) bool {
	_, err := os.Stat(in)
	return !errors.Is(err, os.ErrNotExist)
}

// LoadConfig loads the base configuration file and then merges the
// environment-specific file on top of it. Both files are optional. The
// directory comes from APP_CONFIG_PREFIX and the runtime from APP_RUNTIME
// (default "local"). Environment overrides are applied last.
func LoadConfig(config *Config) error {
	configurationFilePrefix := os.Getenv(EnvConfigFilePrefix)
	if len(configurationFilePrefix) > 0 && !strings.HasSuffix(configurationFilePrefix, string(os.PathSeparator)) {
		configurationFilePrefix = configurationFilePrefix + string(os.PathSeparator)
	}

	runtimeEnvironment := os.Getenv(EnvConfigRuntime)
	if runtimeEnvironment == "" {
		runtimeEnvironment = "local"
	}

	baseConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigFileExtension
	envConfigFileName := configurationFilePrefix + ConfigFileBaseName + ConfigSeparator + runtimeEnvironment + ConfigFileExtension

	for _, name := range []string{baseConfigFileName, envConfigFileName} {
		if !fileExists(name) {
			slog.Debug("configuration file not found", "file", name)
			continue
		}
		if _, err := toml.DecodeFile(name, config); err != nil {
			return fmt.Errorf("failed to decode configuration file %s: %w", name, err)
		}
		slog.Info("loaded configuration file", "file", name)
	}

	ApplyEnvironment(config)
	return nil
}

// ApplyEnvironment overrides credentials and deployment settings with any
// environment variables that are set. A variable set to the empty string
// still overrides, which is how a provider is disabled from the environment.
func ApplyEnvironment(config *Config) {
	if v, ok := os.LookupEnv(EnvYouTubeAPIKey); ok {
		config.Providers.YouTube.APIKey = v
	}
	if v, ok := os.LookupEnv(EnvSpotifyClientID); ok {
		config.Providers.Spotify.ClientID = v
	}
	if v, ok := os.LookupEnv(EnvSpotifyClientSecret); ok {
		config.Providers.Spotify.ClientSecret = v
	}
	if v, ok := os.LookupEnv(EnvGoogleProject); ok && v != "" {
		config.Application.GoogleProjectId = v
	}
	if v, ok := os.LookupEnv(EnvPort); ok && v != "" {
		config.Application.ListenAddress = ":" + v
	}
}

// GenerateMultiModalResponse executes a multi-modal request against a
// Generative AI model, retrying up to MaxRetries times and recording token
// usage. Markdown code fences around JSON answers are stripped.
func GenerateMultiModalResponse(
	ctx context.Context,
	inputTokenCounter metric.Int64Counter,
	outputTokenCounter metric.Int64Counter,
	retryCounter metric.Int64Counter,
	tryCount int,
	model *QuotaAwareGenerativeAIModel,
	content []*genai.Content) (value string, err error) {
	resp, err := model.GenerateContent(ctx, content)
	if err != nil {
		if tryCount < MaxRetries && ctx.Err() == nil {
			retryCounter.Add(ctx, 1)
			return GenerateMultiModalResponse(ctx, inputTokenCounter, outputTokenCounter, retryCounter, tryCount+1, model, content)
		}
		return "", err
	}
	if resp.UsageMetadata != nil {
		inputTokenCounter.Add(ctx, int64(resp.UsageMetadata.PromptTokenCount))
		outputTokenCounter.Add(ctx, int64(resp.UsageMetadata.CandidatesTokenCount))
	}

	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				b.WriteString(part.Text)
			}
		}
	}
	value = strings.TrimSpace(b.String())
	value = strings.TrimPrefix(value, "```json")
	value = strings.TrimSuffix(value, "```")
	return strings.TrimSpace(value), nil
}
