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

package cloud

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/jaycherian/gcp-go-emotion-media/internal/core/model"
)

// BearerTokenSource yields a bearer token, or false when none is available.
type BearerTokenSource interface {
	Token(ctx context.Context) (string, bool)
	Configured() bool
}

// SpotifySearcher finds tracks with the Spotify Web API search endpoint.
type SpotifySearcher struct {
	searchURL  string
	tokens     BearerTokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
}

type spotifySearchResponse struct {
	Tracks struct {
		Items []struct {
			Name         string `json:"name"`
			ExternalURLs struct {
				Spotify string `json:"spotify"`
			} `json:"external_urls"`
		} `json:"items"`
	} `json:"tracks"`
}

// NewSpotifySearcher creates a searcher that authenticates through tokens.
func NewSpotifySearcher(cfg SpotifyProvider, tokens BearerTokenSource, httpClient *http.Client) *SpotifySearcher {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &SpotifySearcher{
		searchURL:  cfg.SearchURL,
		tokens:     tokens,
		httpClient: httpClient,
		limiter:    NewLimiter(cfg.RateLimit),
		timeout:    secondsOrDefault(cfg.TimeoutInSeconds, 10),
	}
}

// Search issues one track search for up to limit results. Tracks without a
// name or a public URL are dropped.
func (s *SpotifySearcher) Search(ctx context.Context, query string, limit int) ([]*model.Recommendation, error) {
	if s.tokens == nil || !s.tokens.Configured() {
		return nil, ErrProviderNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	token, ok := s.tokens.Token(ctx)
	if !ok {
		return nil, ErrTokenUnavailable
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(limit))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spotify search: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("spotify search: unexpected status %d", resp.StatusCode)
	}

	var payload spotifySearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("spotify search: malformed response: %w", err)
	}

	out := make([]*model.Recommendation, 0, len(payload.Tracks.Items))
	for _, tr := range payload.Tracks.Items {
		if tr.Name == "" || tr.ExternalURLs.Spotify == "" {
			continue
		}
		out = append(out, &model.Recommendation{
			Title:  tr.Name,
			URL:    tr.ExternalURLs.Spotify,
			Source: model.SourceSpotify,
		})
	}
	return out, nil
}
