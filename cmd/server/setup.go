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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jaycherian/gcp-go-emotion-media/internal/cloud"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/services"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/workflow"
)

// StateManager holds the shared components of the server.
type StateManager struct {
	config          *cloud.Config
	cloud           *cloud.ServiceClients
	pool            *services.AnalysisPool
	recommendations *services.RecommendationService
	workflow        *workflow.EmotionAnalysisWorkflow
}

var state = &StateManager{}

// SetupOS fills in the configuration location defaults without overriding
// values the environment already sets.
func SetupOS() (err error) {
	if _, ok := os.LookupEnv(cloud.EnvConfigFilePrefix); !ok {
		if err = os.Setenv(cloud.EnvConfigFilePrefix, "configs"); err != nil {
			return err
		}
	}
	if _, ok := os.LookupEnv(cloud.EnvConfigRuntime); !ok {
		err = os.Setenv(cloud.EnvConfigRuntime, "local")
	}
	return err
}

// GetConfig loads the configuration once.
func GetConfig() (*cloud.Config, error) {
	if state.config == nil {
		if err := SetupOS(); err != nil {
			return nil, fmt.Errorf("failed to set up config environment: %w", err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			return nil, err
		}
		state.config = config
	}
	return state.config, nil
}

// InitState builds the clients, the analysis pool, the services and the workflow.
func InitState(ctx context.Context, config *cloud.Config) error {
	cloudClients, err := cloud.NewCloudServiceClients(ctx, config)
	if err != nil {
		return err
	}
	state.cloud = cloudClients

	predictionLog, err := services.NewPredictionLog(config.PredictionLog.Path)
	if err != nil {
		return err
	}

	state.pool = services.NewAnalysisPool(cloudClients.Analyzer, config.Application.ThreadPoolSize)

	recommendations := services.NewRecommendationService(cloudClients.VideoSearch, cloudClients.TrackSearch)
	recommendations.VideoLimit = config.Providers.YouTube.MaxResults
	recommendations.TrackLimit = config.Providers.Spotify.MaxResults
	state.recommendations = recommendations

	state.workflow = workflow.NewEmotionAnalysisWorkflow(
		config,
		state.pool,
		services.NewNormalizer(predictionLog),
		recommendations)

	slog.Info("state initialized",
		"analysis_backend", config.Analysis.Backend,
		"workers", config.Application.ThreadPoolSize,
		"video_search", config.Providers.YouTube.APIKey != "",
		"track_search", cloudClients.SpotifyTokens.Configured(),
		"prediction_log", predictionLog.Path())
	return nil
}

// CloseState stops the analysis workers and releases provider connections.
func CloseState() {
	if state.pool != nil {
		state.pool.Close()
	}
	if state.cloud != nil {
		state.cloud.Close()
	}
}
