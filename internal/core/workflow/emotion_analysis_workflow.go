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

// Package workflow assembles commands into the application's pipelines.
// This file implements the emotion analysis workflow that serves every
// upload: validate, store, analyze, normalize and attach recommendations.
package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/jaycherian/gcp-go-emotion-media/internal/cloud"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/commands"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/cor"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/model"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/services"
)

// EmotionAnalysisWorkflow runs one upload through the analysis chain. It is
// safe for concurrent use; each run gets its own chain context.
type EmotionAnalysisWorkflow struct {
	cor.BaseCommand
	config      *cloud.Config
	analyzer    services.FaceAnalyzer
	normalizer  *services.Normalizer
	recommender commands.Recommender
	chain       cor.Chain
}

// Execute runs the underlying chain against an existing context.
func (w *EmotionAnalysisWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// Run analyzes one uploaded image.
//
// Inputs:
//   - ctx: The request context. It bounds queueing for an analysis worker only.
//   - data: The raw uploaded bytes.
//   - fileName: The client-supplied file name, used for logging only.
//
// Outputs:
//   - *model.AnalysisResult: The successful canonical result.
//   - error: Wraps `model.ErrInvalidImage` or `model.ErrAnalysisFailed`.
func (w *EmotionAnalysisWorkflow) Run(ctx context.Context, data []byte, fileName string) (*model.AnalysisResult, error) {
	chCtx := cor.NewBaseContext()
	defer chCtx.Close()

	chCtx.SetContext(ctx)
	chCtx.Add(cor.CtxIn, &model.ImageUpload{FileName: fileName, Data: data})

	w.Execute(chCtx)

	if chCtx.HasErrors() {
		return nil, chCtx.Err()
	}
	result, ok := chCtx.Get(cor.CtxIn).(*model.AnalysisResult)
	if !ok {
		return nil, errors.Join(model.ErrAnalysisFailed, fmt.Errorf("workflow %s produced no result", w.GetName()))
	}
	return result, nil
}

func (w *EmotionAnalysisWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())

	// Step 1: Reject anything that is not a decodable image.
	out.AddCommand(commands.NewImageValidator("image-validator", w.config.Analysis.MaxUploadBytes))

	// Step 2: Store the bytes so the model can read them by path. The path
	// is also the file reference written to the prediction log.
	out.AddCommand(commands.NewImageToTempFile("image-to-temp-file", w.config.Analysis.UploadDir, w.config.Analysis.RetainUploads))

	// Step 3: Run the model on the bounded worker pool.
	out.AddCommand(commands.NewFaceAnalyzer("face-analyzer", w.analyzer))

	// Step 4: Canonicalize the payload and append the prediction row.
	out.AddCommand(commands.NewResultNormalizer("result-normalizer", w.normalizer))

	// Step 5: Attach recommendations when enabled.
	if w.config.Application.IncludeRecommendations && w.recommender != nil {
		out.AddCommand(commands.NewRecommendationAttacher("recommendation-attacher", w.recommender))
	}

	w.chain = out
}

// NewEmotionAnalysisWorkflow builds the workflow.
//
// Inputs:
//   - config: The application configuration.
//   - analyzer: The face analysis capability, normally a `*services.AnalysisPool`.
//   - normalizer: Canonicalizes payloads and writes the prediction log.
//   - recommender: Optional; nil skips the recommendation step.
func NewEmotionAnalysisWorkflow(
	config *cloud.Config,
	analyzer services.FaceAnalyzer,
	normalizer *services.Normalizer,
	recommender commands.Recommender) *EmotionAnalysisWorkflow {

	w := &EmotionAnalysisWorkflow{
		BaseCommand: *cor.NewBaseCommand("emotion-analysis-workflow"),
		config:      config,
		analyzer:    analyzer,
		normalizer:  normalizer,
		recommender: recommender,
	}
	w.initializeChain()
	return w
}
