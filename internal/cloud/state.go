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
// This file is responsible for initializing and holding every client the
// application needs: the face analysis backend, the two search providers and
// the token cache of the track provider. `ServiceClients` is created once at
// startup and passed to the API handlers and the analysis workflow.
package cloud

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

// FaceAnalyzer estimates age, gender and emotion for the face in an image file
// and returns the model's loosely typed payload.
type FaceAnalyzer interface {
	Analyze(ctx context.Context, imagePath string) (any, error)
}

// ServiceClients is a container for all external clients.
type ServiceClients struct {
	HTTPClient    *http.Client                            // Shared client for provider calls; per-call timeouts come from contexts.
	GenAIClient   *genai.Client                           // Only set for the gemini analysis backend.
	AgentModels   map[string]*QuotaAwareGenerativeAIModel // Configured Gemini models, keyed by a logical name.
	Analyzer      FaceAnalyzer                            // The configured analysis backend.
	SpotifyTokens *TokenCache                             // Process-wide bearer token slot for the track provider.
	VideoSearch   Searcher                                // Video search, circuit-breaker protected.
	TrackSearch   Searcher                                // Track search, circuit-breaker protected.
}

// Close releases idle provider connections.
func (c *ServiceClients) Close() {
	if c.HTTPClient != nil {
		c.HTTPClient.CloseIdleConnections()
	}
}

// NewCloudServiceClients builds every client from the configuration.
func NewCloudServiceClients(ctx context.Context, config *Config) (*ServiceClients, error) {
	httpClient := &http.Client{}

	out := &ServiceClients{
		HTTPClient:  httpClient,
		AgentModels: make(map[string]*QuotaAwareGenerativeAIModel),
	}

	switch config.Analysis.Backend {
	case BackendGemini:
		gc, err := genai.NewClient(ctx, &genai.ClientConfig{
			Project:  config.Application.GoogleProjectId,
			Location: config.Application.GoogleLocation,
			Backend:  genai.BackendVertexAI,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating genai client: %w", err)
		}
		out.GenAIClient = gc
		for amKey, values := range config.AgentModels {
			generation := &genai.GenerateContentConfig{
				Temperature:       genai.Ptr[float32](values.Temperature),
				TopP:              genai.Ptr[float32](values.TopP),
				TopK:              genai.Ptr[float32](values.TopK),
				MaxOutputTokens:   values.MaxTokens,
				SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: values.SystemInstructions}}},
				SafetySettings:    DefaultSafetySettings,
				ResponseMIMEType:  values.OutputFormat,
			}
			out.AgentModels[amKey] = NewQuotaAwareModel(generation, values.Model, gc.Models, values.RateLimit)
		}
		agent, ok := out.AgentModels[config.Analysis.AgentModel]
		if !ok {
			return nil, fmt.Errorf("agent model %q is not configured", config.Analysis.AgentModel)
		}
		analyzer, err := NewGeminiFaceAnalyzer(agent, config.PromptTemplates.FaceAnalysisPrompt)
		if err != nil {
			return nil, err
		}
		out.Analyzer = analyzer
	case BackendDeepFace, "":
		out.Analyzer = NewDeepFaceAnalyzer(config.Analysis, httpClient)
	default:
		return nil, fmt.Errorf("unknown analysis backend %q", config.Analysis.Backend)
	}

	yt, err := NewYouTubeSearcher(ctx, config.Providers.YouTube, httpClient)
	if err != nil {
		return nil, err
	}
	out.VideoSearch = NewBreakerSearcher("youtube-search", yt)

	spotify := config.Providers.Spotify
	var exchanger TokenExchanger
	if e := NewClientCredentialsExchanger(spotify.ClientID, spotify.ClientSecret, spotify.TokenURL, httpClient); e != nil {
		exchanger = e
	}
	out.SpotifyTokens = NewTokenCache(exchanger, nil)
	out.TrackSearch = NewBreakerSearcher("spotify-search", NewSpotifySearcher(spotify, out.SpotifyTokens, httpClient))

	return out, nil
}
