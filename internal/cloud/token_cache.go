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
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

const (
	// tokenRefreshSkew is how close to expiry a cached token is still served.
	tokenRefreshSkew = 30
	// defaultTokenLifetime applies when the provider omits expires_in.
	defaultTokenLifetime = 3600
	// tokenExchangeTimeout bounds a single exchange independently of callers.
	tokenExchangeTimeout = 10 * time.Second
)

// ErrTokenUnavailable is returned by searchers that could not obtain a bearer token.
var ErrTokenUnavailable = errors.New("bearer token unavailable")

// ExchangedToken is the result of one credential exchange.
type ExchangedToken struct {
	AccessToken string
	ExpiresIn   int64 // Lifetime in seconds; zero when the provider did not say.
}

// TokenExchanger performs a single credential exchange request.
type TokenExchanger interface {
	Exchange(ctx context.Context) (*ExchangedToken, error)
}

// TokenCache is a single-slot bearer token cache shared by every caller of a
// provider. Concurrent refreshes are collapsed into one exchange.
type TokenCache struct {
	exchanger TokenExchanger
	now       func() time.Time
	logger    *slog.Logger

	mu          sync.RWMutex
	accessToken string
	expiresAt   int64 // Unix seconds.

	refresh         singleflight.Group
	exchangeCounter metric.Int64Counter
}

// NewTokenCache creates an empty cache. A nil exchanger means the provider
// has no credentials configured and Token always reports absent. A nil now
// uses time.Now.
func NewTokenCache(exchanger TokenExchanger, now func() time.Time) *TokenCache {
	if now == nil {
		now = time.Now
	}
	counter, err := otel.Meter("github.com/jaycherian/gcp-go-emotion-media").Int64Counter("token_cache.counter.exchange")
	if err != nil {
		slog.Warn("failed to create token exchange counter", "error", err)
	}
	return &TokenCache{exchanger: exchanger, now: now, logger: slog.Default(), exchangeCounter: counter}
}

// Configured reports whether the cache can ever produce a token.
func (c *TokenCache) Configured() bool {
	return c != nil && c.exchanger != nil
}

// Token returns the cached token while it has more than 30 seconds of
// validity left, otherwise performs one exchange. The second return value is
// false when no credentials are configured, the exchange failed or ctx ended
// first; a failed exchange leaves the cache unchanged.
func (c *TokenCache) Token(ctx context.Context) (string, bool) {
	if tok, ok := c.cached(); ok {
		return tok, true
	}
	if !c.Configured() {
		return "", false
	}

	// Shared by every waiting caller; detached from the starter's cancellation.
	ch := c.refresh.DoChan("token", func() (any, error) {
		if tok, ok := c.cached(); ok {
			return tok, nil
		}
		exchangeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), tokenExchangeTimeout)
		defer cancel()
		if c.exchangeCounter != nil {
			c.exchangeCounter.Add(exchangeCtx, 1)
		}
		exchanged, err := c.exchanger.Exchange(exchangeCtx)
		if err != nil {
			return "", err
		}
		if exchanged == nil || exchanged.AccessToken == "" {
			return "", errors.New("token response did not contain an access token")
		}
		lifetime := exchanged.ExpiresIn
		if lifetime == 0 {
			lifetime = defaultTokenLifetime
		}
		c.mu.Lock()
		c.accessToken = exchanged.AccessToken
		c.expiresAt = c.now().Unix() + lifetime
		c.mu.Unlock()
		return exchanged.AccessToken, nil
	})

	select {
	case <-ctx.Done():
		c.logger.DebugContext(ctx, "stopped waiting for token exchange", "error", ctx.Err())
		return "", false
	case res := <-ch:
		if res.Err != nil {
			c.logger.WarnContext(ctx, "token exchange failed", "error", res.Err)
			return "", false
		}
		return res.Val.(string), true
	}
}

// ExpiresAt returns the Unix expiry of the cached token, zero when empty.
func (c *TokenCache) ExpiresAt() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expiresAt
}

func (c *TokenCache) cached() (string, bool) {
	if c == nil {
		return "", false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.accessToken != "" && c.expiresAt-tokenRefreshSkew > c.now().Unix() {
		return c.accessToken, true
	}
	return "", false
}

// ClientCredentialsExchanger exchanges a client id and secret for a bearer
// token using the OAuth2 client credentials grant with HTTP basic auth.
type ClientCredentialsExchanger struct {
	config     *clientcredentials.Config
	httpClient *http.Client
}

// NewClientCredentialsExchanger returns nil when either credential is empty.
func NewClientCredentialsExchanger(clientID, clientSecret, tokenURL string, httpClient *http.Client) *ClientCredentialsExchanger {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	return &ClientCredentialsExchanger{
		config: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		httpClient: httpClient,
	}
}

// Exchange posts grant_type=client_credentials to the token endpoint.
func (e *ClientCredentialsExchanger) Exchange(ctx context.Context) (*ExchangedToken, error) {
	if e.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
	}
	tok, err := e.config.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("client credentials exchange: %w", err)
	}
	return &ExchangedToken{AccessToken: tok.AccessToken, ExpiresIn: expiresIn(tok)}, nil
}

func expiresIn(tok *oauth2.Token) int64 {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	if !tok.Expiry.IsZero() {
		return int64(time.Until(tok.Expiry).Round(time.Second).Seconds())
	}
	return 0
}
