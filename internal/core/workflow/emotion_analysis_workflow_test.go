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

// Package workflow_test contains tests for the emotion analysis workflow. The
// analysis model is replaced with a fake; everything else is the real chain.
package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/jaycherian/gcp-go-emotion-media/internal/cloud"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/model"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/services"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-emotion-media/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	calls atomic.Int32
	raw   any
	err   error
	paths []string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, path string) (any, error) {
	f.calls.Add(1)
	f.paths = append(f.paths, path)
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return f.raw, f.err
}

type fakeRecommender struct {
	emotion string
	age     *int
	gender  string
}

func (f *fakeRecommender) Recommend(_ context.Context, emotion string, age *int, gender string) []*model.Recommendation {
	f.emotion, f.age, f.gender = emotion, age, gender
	return []*model.Recommendation{model.FallbackRecommendation()}
}

type fixture struct {
	config      *cloud.Config
	analyzer    *fakeAnalyzer
	recommender *fakeRecommender
	logPath     string
	workflow    *workflow.EmotionAnalysisWorkflow
}

func newFixture(t *testing.T, raw any, configure func(*cloud.Config)) *fixture {
	t.Helper()
	config := test.GetConfig()
	config.Analysis.UploadDir = t.TempDir()
	config.Analysis.RetainUploads = false
	config.Application.IncludeRecommendations = true
	if configure != nil {
		configure(config)
	}

	logPath := filepath.Join(t.TempDir(), "predictions.csv")
	predictionLog, err := services.NewPredictionLog(logPath)
	require.NoError(t, err)

	f := &fixture{
		config:      config,
		analyzer:    &fakeAnalyzer{raw: raw},
		recommender: &fakeRecommender{},
		logPath:     logPath,
	}
	pool := services.NewAnalysisPool(f.analyzer, 1)
	t.Cleanup(pool.Close)
	f.workflow = workflow.NewEmotionAnalysisWorkflow(config, pool, services.NewNormalizer(predictionLog), f.recommender)
	return f
}

func TestEmotionAnalysisWorkflowSuccess(t *testing.T) {
	f := newFixture(t, test.DeepFacePayload(t), nil)

	result, err := f.workflow.Run(context.Background(), test.PNGImage(t, 16, 16), "face.png")
	require.NoError(t, err)
	require.True(t, result.IsSuccess())

	assert.Equal(t, "happy", *result.Emotion)
	assert.Equal(t, 31, *result.Age)
	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, "happy", f.recommender.emotion)
	assert.Equal(t, 31, *f.recommender.age)
	assert.Equal(t, "Woman", f.recommender.gender)

	require.Len(t, f.analyzer.paths, 1)
	assert.Equal(t, f.analyzer.paths[0], result.FilePath)
	assert.Equal(t, ".png", filepath.Ext(result.FilePath))

	// Uploads are not retained in this configuration.
	_, statErr := os.Stat(result.FilePath)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))

	records, err := services.ReadPredictionLog(f.logPath)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, result.FilePath, records[0].FilePath)
}

func TestEmotionAnalysisWorkflowRetainsUploads(t *testing.T) {
	f := newFixture(t, test.DeepFacePayload(t), func(c *cloud.Config) {
		c.Analysis.RetainUploads = true
		c.Application.IncludeRecommendations = false
	})

	result, err := f.workflow.Run(context.Background(), test.PNGImage(t, 8, 8), "face.png")
	require.NoError(t, err)
	assert.FileExists(t, result.FilePath)
	assert.Nil(t, result.Recommendations)
	assert.Empty(t, f.recommender.emotion)
}

func TestEmotionAnalysisWorkflowRejectsInvalidImage(t *testing.T) {
	f := newFixture(t, test.DeepFacePayload(t), nil)

	for _, data := range [][]byte{nil, []byte("definitely not an image"), test.PNGImage(t, 8, 8)[:20]} {
		_, err := f.workflow.Run(context.Background(), data, "upload.bin")
		assert.ErrorIs(t, err, model.ErrInvalidImage)
	}
	assert.EqualValues(t, 0, f.analyzer.calls.Load())

	_, err := os.Stat(f.logPath)
	assert.True(t, errors.Is(err, os.ErrNotExist), "rejected uploads are not logged")
}

func TestEmotionAnalysisWorkflowRejectsOversizedUpload(t *testing.T) {
	f := newFixture(t, test.DeepFacePayload(t), func(c *cloud.Config) {
		c.Analysis.MaxUploadBytes = 16
	})
	_, err := f.workflow.Run(context.Background(), test.PNGImage(t, 64, 64), "big.png")
	assert.ErrorIs(t, err, model.ErrInvalidImage)
}

func TestEmotionAnalysisWorkflowAnalyzerFailure(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.analyzer.err = errors.New("no face detected")

	_, err := f.workflow.Run(context.Background(), test.PNGImage(t, 8, 8), "face.png")
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrAnalysisFailed)
	assert.Contains(t, err.Error(), "no face detected")
	assert.Empty(t, f.recommender.emotion)
}

func TestEmotionAnalysisWorkflowMalformedPayload(t *testing.T) {
	f := newFixture(t, []any{"not a mapping"}, nil)

	_, err := f.workflow.Run(context.Background(), test.PNGImage(t, 8, 8), "face.png")
	assert.ErrorIs(t, err, model.ErrAnalysisFailed)

	_, statErr := os.Stat(f.logPath)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "failed analyses are not logged")
}
