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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files, and the clients for every external collaborator:
// the face analysis backends, the video and track search providers, and the
// token exchange used by the track provider.
//
// This file centralizes all configuration-related structs.
//
// Structs:
//   - Application: General process settings.
//   - Analysis: Settings for the face analysis backend and upload handling.
//   - YouTubeProvider / SpotifyProvider: Credentials and limits for the search providers.
//   - VertexAiLLMModel: Configuration for a Gemini model used as an analysis backend.
//   - PromptTemplates: Holds the text templates for prompts sent to GenAI models.
//   - Config: The top-level struct that aggregates all other configuration structs.
package cloud

import "google.golang.org/genai"

// DefaultSafetySettings defines the default content safety thresholds for GenAI models.
// Face crops are trusted input, so nothing is blocked.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// Analysis backends.
const (
	BackendDeepFace = "deepface"
	BackendGemini   = "gemini"
)

// Application holds general process settings.
type Application struct {
	Name                   string `toml:"name"`                    // The name of the application, also the OTel service name.
	GoogleProjectId        string `toml:"google_project_id"`       // The Google Cloud project ID (telemetry export and Gemini).
	GoogleLocation         string `toml:"location"`                // The Google Cloud location.
	ListenAddress          string `toml:"listen_address"`          // Address the HTTP server binds to, e.g. ":8000".
	ThreadPoolSize         int    `toml:"thread_pool_size"`        // Number of analysis workers.
	LogFile                string `toml:"log_file"`                // Optional file that receives a copy of the structured log.
	IncludeRecommendations bool   `toml:"include_recommendations"` // Attach recommendations to analysis responses.
}

// Telemetry controls OpenTelemetry export.
type Telemetry struct {
	Export bool `toml:"export"` // Export traces and metrics to Google Cloud.
}

// Analysis configures the face analysis backend and upload handling.
type Analysis struct {
	Backend          string `toml:"backend"`            // "deepface" or "gemini".
	DeepFaceURL      string `toml:"deepface_url"`       // The DeepFace REST analyze endpoint.
	DetectorBackend  string `toml:"detector_backend"`   // DeepFace face detector, e.g. "opencv".
	AgentModel       string `toml:"agent_model"`        // Key into AgentModels for the gemini backend.
	UploadDir        string `toml:"upload_dir"`         // Where uploads are written before analysis. Empty means the OS temp dir.
	RetainUploads    bool   `toml:"retain_uploads"`     // Keep uploads after the analysis so file_path stays resolvable.
	MaxUploadBytes   int64  `toml:"max_upload_bytes"`   // Upper bound on an uploaded image.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // Timeout for a single analyzer call.
}

// PredictionLog configures the append-only CSV log.
type PredictionLog struct {
	Path string `toml:"path"` // Location of the CSV file.
}

// YouTubeProvider configures the video search provider.
type YouTubeProvider struct {
	APIKey           string `toml:"api_key"`            // Data API key. Empty disables video search.
	Endpoint         string `toml:"endpoint"`           // Optional override of the API base URL.
	MaxResults       int    `toml:"max_results"`        // Results requested per search.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // Timeout for a single search.
	RateLimit        int    `toml:"rate_limit"`         // Requests per second; zero means unlimited.
}

// SpotifyProvider configures the track search provider and its token exchange.
type SpotifyProvider struct {
	ClientID         string `toml:"client_id"`          // Client credentials. Either empty disables track search.
	ClientSecret     string `toml:"client_secret"`      // Client credentials secret.
	TokenURL         string `toml:"token_url"`          // Token exchange endpoint.
	SearchURL        string `toml:"search_url"`         // Search endpoint.
	MaxResults       int    `toml:"max_results"`        // Results requested per search.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // Timeout for a single search or token exchange.
	RateLimit        int    `toml:"rate_limit"`         // Requests per second; zero means unlimited.
}

// Providers groups the external search providers.
type Providers struct {
	YouTube YouTubeProvider `toml:"youtube"`
	Spotify SpotifyProvider `toml:"spotify"`
}

// PromptTemplates holds the templates for prompts sent to GenAI models.
type PromptTemplates struct {
	FaceAnalysisPrompt string `toml:"face_analysis"` // Prompt for the gemini analysis backend.
}

// VertexAiLLMModel represents the configuration for a Vertex AI large language model (LLM).
type VertexAiLLMModel struct {
	Model              string  `toml:"model"`               // The name of the Vertex AI LLM.
	SystemInstructions string  `toml:"system_instructions"` // The system instructions for the LLM.
	Temperature        float32 `toml:"temperature"`         // The temperature parameter for the LLM.
	TopP               float32 `toml:"top_p"`               // The top_p parameter for the LLM.
	TopK               float32 `toml:"top_k"`               // The top_k parameter for the LLM.
	MaxTokens          int32   `toml:"max_tokens"`          // The maximum number of tokens for the LLM output.
	OutputFormat       string  `toml:"output_format"`       // The desired output format for the LLM.
	RateLimit          int     `toml:"rate_limit"`          // The rate limit for the LLM in requests per second.
}

// Config represents the overall configuration for the application, loaded from TOML files.
type Config struct {
	Application     Application                 `toml:"application"`
	Telemetry       Telemetry                   `toml:"telemetry"`
	Analysis        Analysis                    `toml:"analysis"`
	PredictionLog   PredictionLog               `toml:"prediction_log"`
	Providers       Providers                   `toml:"providers"`
	PromptTemplates PromptTemplates             `toml:"prompt_templates"`
	AgentModels     map[string]VertexAiLLMModel `toml:"agent_models"` // Keyed by a logical name (e.g., "face-flash").
}

// NewConfig creates a Config populated with defaults. Values loaded from
// TOML files and the environment override these.
func NewConfig() *Config {
	return &Config{
		Application: Application{
			Name:                   "emotion-media-recommender",
			ListenAddress:          ":8000",
			ThreadPoolSize:         2,
			IncludeRecommendations: true,
		},
		Analysis: Analysis{
			Backend:          BackendDeepFace,
			DeepFaceURL:      "http://localhost:5005/analyze",
			DetectorBackend:  "opencv",
			RetainUploads:    true,
			MaxUploadBytes:   10 << 20,
			TimeoutInSeconds: 60,
		},
		PredictionLog: PredictionLog{Path: "logs/predictions.csv"},
		Providers: Providers{
			YouTube: YouTubeProvider{
				MaxResults:       5,
				TimeoutInSeconds: 10,
			},
			Spotify: SpotifyProvider{
				TokenURL:         "https://accounts.spotify.com/api/token",
				SearchURL:        "https://api.spotify.com/v1/search",
				MaxResults:       5,
				TimeoutInSeconds: 10,
			},
		},
		AgentModels: make(map[string]VertexAiLLMModel),
	}
}
