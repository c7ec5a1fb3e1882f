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
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/jaycherian/gcp-go-emotion-media/internal/core/model"
)

const youTubeWatchURL = "https://www.youtube.com/watch?v="

// YouTubeSearcher finds embeddable videos with the YouTube Data API.
type YouTubeSearcher struct {
	apiKey  string
	service *youtube.Service
	limiter *rate.Limiter
	timeout time.Duration
}

// NewYouTubeSearcher builds the searcher. Without an API key the searcher is
// created but every search returns ErrProviderNotConfigured.
func NewYouTubeSearcher(ctx context.Context, cfg YouTubeProvider, httpClient *http.Client) (*YouTubeSearcher, error) {
	out := &YouTubeSearcher{
		apiKey:  cfg.APIKey,
		limiter: NewLimiter(cfg.RateLimit),
		timeout: secondsOrDefault(cfg.TimeoutInSeconds, 10),
	}
	if cfg.APIKey == "" {
		return out, nil
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}
	out.service = svc
	return out, nil
}

// Search issues one search.list call for up to limit videos. Results
// without a video id or a title are dropped.
func (y *YouTubeSearcher) Search(ctx context.Context, query string, limit int) ([]*model.Recommendation, error) {
	if y.service == nil {
		return nil, ErrProviderNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := y.service.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(int64(limit)).
		SafeSearch("moderate").
		VideoEmbeddable("true").
		Context(ctx).
		Do(googleapi.QueryParameter("key", y.apiKey))
	if err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	out := make([]*model.Recommendation, 0, len(resp.Items))
	for _, it := range resp.Items {
		if it == nil || it.Id == nil || it.Snippet == nil {
			continue
		}
		if it.Id.VideoId == "" || it.Snippet.Title == "" {
			continue
		}
		out = append(out, &model.Recommendation{
			Title:  it.Snippet.Title,
			URL:    youTubeWatchURL + it.Id.VideoId,
			Source: model.SourceYouTube,
		})
	}
	return out, nil
}

func secondsOrDefault(seconds, fallback int) time.Duration {
	if seconds <= 0 {
		seconds = fallback
	}
	return time.Duration(seconds) * time.Second
}
