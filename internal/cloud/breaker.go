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
	"errors"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/jaycherian/gcp-go-emotion-media/internal/core/model"
)

// ErrProviderNotConfigured is returned by a searcher whose credentials are
// missing. It is an expected outcome and never trips a circuit breaker.
var ErrProviderNotConfigured = errors.New("provider not configured")

// Searcher is a media search provider.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]*model.Recommendation, error)
}

// BreakerSearcher guards a Searcher with a circuit breaker so an unhealthy
// provider is skipped instead of costing every request its full timeout.
type BreakerSearcher struct {
	name     string
	searcher Searcher
	cb       *gobreaker.CircuitBreaker[[]*model.Recommendation]
}

// NewBreakerSearcher wraps searcher. The circuit opens after 5 consecutive
// failures and probes again after 30 seconds.
func NewBreakerSearcher(name string, searcher Searcher) *BreakerSearcher {
	cb := gobreaker.NewCircuitBreaker[[]*model.Recommendation](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrProviderNotConfigured)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Info("circuit breaker state change", "provider", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerSearcher{name: name, searcher: searcher, cb: cb}
}

// Search delegates to the wrapped searcher unless the circuit is open.
func (b *BreakerSearcher) Search(ctx context.Context, query string, limit int) ([]*model.Recommendation, error) {
	return b.cb.Execute(func() ([]*model.Recommendation, error) {
		return b.searcher.Search(ctx, query, limit)
	})
}

// State reports the breaker state, for tests and diagnostics.
func (b *BreakerSearcher) State() gobreaker.State {
	return b.cb.State()
}
