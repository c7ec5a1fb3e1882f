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

package services

import (
	"context"
	"log/slog"

	"github.com/jaycherian/gcp-go-emotion-media/internal/core/cor"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"
)

// DefaultPerProviderLimit is the number of results requested from each provider.
const DefaultPerProviderLimit = 5

// MediaSearcher looks up media for a search phrase.
type MediaSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]*model.Recommendation, error)
}

// RecommendationService merges video and track search results for an
// emotion. Provider failures degrade to empty sub-lists; the merged list is
// never empty.
type RecommendationService struct {
	VideoSearcher MediaSearcher // Optional; results come first.
	TrackSearcher MediaSearcher // Optional.
	VideoLimit    int           // Results requested from the video provider.
	TrackLimit    int           // Results requested from the track provider.
	Logger        *slog.Logger  //

	fallbackCounter metric.Int64Counter
}

// NewRecommendationService creates the aggregator. Either searcher may be nil.
func NewRecommendationService(video MediaSearcher, track MediaSearcher) *RecommendationService {
	counter, err := otel.Meter(cor.MeterName).Int64Counter("recommendations.counter.fallback")
	if err != nil {
		slog.Warn("failed to create fallback counter", "error", err)
	}
	return &RecommendationService{
		VideoSearcher:   video,
		TrackSearcher:   track,
		VideoLimit:      DefaultPerProviderLimit,
		TrackLimit:      DefaultPerProviderLimit,
		Logger:          slog.Default(),
		fallbackCounter: counter,
	}
}

// Recommend builds the query for the given attributes, runs both searches
// concurrently and returns between 1 and model.MaxRecommendations items,
// video results first.
func (s *RecommendationService) Recommend(ctx context.Context, emotion string, age *int, gender string) []*model.Recommendation {
	query := BuildQuery(emotion, age, gender)

	var videos, tracks []*model.Recommendation
	// Both goroutines always return nil so that one provider failing never
	// cancels the other.
	var g errgroup.Group
	g.Go(func() error {
		videos = s.search(ctx, "video", s.VideoSearcher, query, providerLimit(s.VideoLimit))
		return nil
	})
	g.Go(func() error {
		tracks = s.search(ctx, "track", s.TrackSearcher, query, providerLimit(s.TrackLimit))
		return nil
	})
	_ = g.Wait()

	out := make([]*model.Recommendation, 0, len(videos)+len(tracks))
	out = append(out, videos...)
	out = append(out, tracks...)
	if len(out) > model.MaxRecommendations {
		out = out[:model.MaxRecommendations]
	}
	if len(out) == 0 {
		if s.fallbackCounter != nil {
			s.fallbackCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("query", query)))
		}
		out = append(out, model.FallbackRecommendation())
	}
	return out
}

func providerLimit(limit int) int {
	if limit <= 0 {
		return DefaultPerProviderLimit
	}
	return limit
}

func (s *RecommendationService) search(ctx context.Context, kind string, searcher MediaSearcher, query string, limit int) []*model.Recommendation {
	if searcher == nil {
		return nil
	}
	items, err := searcher.Search(ctx, query, limit)
	if err != nil {
		s.logger().WarnContext(ctx, "media search failed", "provider", kind, "query", query, "error", err)
		return nil
	}
	out := make([]*model.Recommendation, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, item)
		}
	}
	return out
}

func (s *RecommendationService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}
