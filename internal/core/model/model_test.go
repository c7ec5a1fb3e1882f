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

package model_test

import (
	"math"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScoredField(t *testing.T) {
	tests := []struct {
		name  string
		in    any
		kind  model.FieldKind
		label string
	}{
		{"nil", nil, model.FieldAbsent, ""},
		{"empty string", "", model.FieldAbsent, ""},
		{"empty mapping", map[string]any{}, model.FieldAbsent, ""},
		{"false", false, model.FieldAbsent, ""},
		{"zero", float64(0), model.FieldAbsent, ""},
		{"label", "Woman", model.FieldLabel, "Woman"},
		{"number", float64(3), model.FieldLabel, "3"},
		{"scores", map[string]any{"Man": 0.2, "Woman": 0.8}, model.FieldScores, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := model.ParseScoredField(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, f.Kind)
			assert.Equal(t, tt.label, f.Label)
		})
	}

	_, err := model.ParseScoredField([]any{"a"})
	assert.Error(t, err)
	_, err = model.ParseScoredField(map[string]any{"happy": "lots"})
	assert.Error(t, err)
	for _, score := range []any{"NaN", "Inf", "-Inf", " +inf ", math.NaN(), math.Inf(-1)} {
		_, err = model.ParseScoredField(map[string]any{"happy": score, "sad": 0.2})
		assert.Error(t, err, "%#v", score)
	}
}

func TestToFloatRejectsNonFinite(t *testing.T) {
	for _, v := range []any{"NaN", "nan", "Inf", "-Infinity", math.NaN(), math.Inf(1), float32(math.Inf(-1))} {
		_, err := model.ToFloat(v)
		assert.Error(t, err, "%#v", v)
	}
	f, err := model.ToFloat(" 12.5 ")
	require.NoError(t, err)
	assert.Equal(t, 12.5, f)
}

func TestResolvePicksHighestScore(t *testing.T) {
	f, err := model.ParseScoredField(map[string]any{"Happy": 0.2, "Sad": 0.7, "Neutral": 0.1})
	require.NoError(t, err)

	label, confidence := f.Resolve(model.EmotionLabels)
	require.NotNil(t, label)
	require.NotNil(t, confidence)
	assert.Equal(t, "Sad", *label)
	assert.Equal(t, 0.7, *confidence)
}

func TestResolveTieBreakIsStable(t *testing.T) {
	// happy precedes sad in the fixed ordering, regardless of case.
	f := model.ScoredField{Kind: model.FieldScores, Scores: map[string]float64{"sad": 0.5, "HAPPY": 0.5}}
	for i := 0; i < 20; i++ {
		label, _ := f.Resolve(model.EmotionLabels)
		assert.Equal(t, "HAPPY", *label)
	}

	// Labels outside the ordering fall back to lexicographic order.
	f = model.ScoredField{Kind: model.FieldScores, Scores: map[string]float64{"zeta": 1, "alpha": 1}}
	label, _ := f.Resolve(model.EmotionLabels)
	assert.Equal(t, "alpha", *label)

	f = model.ScoredField{Kind: model.FieldScores, Scores: map[string]float64{"Man": 50, "Woman": 50}}
	label, _ = f.Resolve(model.GenderLabels)
	assert.Equal(t, "Woman", *label)
}

func TestResolveLabelHasNoConfidence(t *testing.T) {
	label, confidence := model.ScoredField{Kind: model.FieldLabel, Label: "Man"}.Resolve(model.GenderLabels)
	assert.Equal(t, "Man", *label)
	assert.Nil(t, confidence)

	label, confidence = model.ScoredField{Kind: model.FieldAbsent}.Resolve(model.GenderLabels)
	assert.Nil(t, label)
	assert.Nil(t, confidence)
}

func TestToAge(t *testing.T) {
	age, err := model.ToAge(25.7)
	require.NoError(t, err)
	assert.Equal(t, 25, *age)

	age, err = model.ToAge(json.Number("40"))
	require.NoError(t, err)
	assert.Equal(t, 40, *age)

	age, err = model.ToAge("17")
	require.NoError(t, err)
	assert.Equal(t, 17, *age)

	age, err = model.ToAge(nil)
	require.NoError(t, err)
	assert.Nil(t, age)

	for _, bad := range []any{-1.0, math.NaN(), math.Inf(1), "old", []any{}} {
		_, err := model.ToAge(bad)
		assert.Error(t, err, "%v", bad)
	}
}

func TestAnalysisResultJSON(t *testing.T) {
	age := 25
	emotion := "Happy"
	confidence := 0.9
	result := &model.AnalysisResult{
		Status:            model.StatusSuccess,
		FilePath:          "/tmp/a.png",
		Age:               &age,
		Emotion:           &emotion,
		EmotionConfidence: &confidence,
	}
	out, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(out, &decoded))
	assert.Equal(t, "success", decoded["status"])
	assert.Equal(t, "/tmp/a.png", decoded["file_path"])
	assert.EqualValues(t, 25, decoded["age"])
	assert.Nil(t, decoded["gender"])
	assert.Contains(t, decoded, "gender_confidence")
	assert.Equal(t, map[string]any{}, decoded["all_emotions"])
	assert.NotContains(t, decoded, "error")

	out, err = json.Marshal(model.NewErrorResult(model.ErrAnalysisFailed))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","error":"analysis failed"}`, string(out))
}

func TestPredictionRecordRoundTrip(t *testing.T) {
	age := 31
	gender := "Woman"
	emotion := "happy"
	emotionConfidence := 88.4
	result := &model.AnalysisResult{
		Status:            model.StatusSuccess,
		FilePath:          "uploads/x.png",
		Age:               &age,
		Gender:            &gender,
		Emotion:           &emotion,
		EmotionConfidence: &emotionConfidence,
		AllEmotions:       map[string]float64{"happy": 88.4, "sad": 2.2, "neutral": 0.1},
	}
	at := time.Date(2025, 3, 1, 12, 30, 0, 123456789, time.UTC)

	row, err := model.NewPredictionRecord(at, result).Row()
	require.NoError(t, err)
	require.Len(t, row, len(model.PredictionLogHeader))
	assert.Equal(t, "2025-03-01T12:30:00.123456789Z", row[0])
	assert.Equal(t, "", row[4])

	parsed, err := model.ParsePredictionRow(row)
	require.NoError(t, err)
	assert.True(t, at.Equal(parsed.Timestamp))
	assert.Equal(t, result.FilePath, parsed.FilePath)
	assert.Equal(t, age, *parsed.Age)
	assert.Equal(t, gender, *parsed.Gender)
	assert.Nil(t, parsed.GenderConfidence)
	assert.Equal(t, emotion, *parsed.Emotion)
	assert.Equal(t, emotionConfidence, *parsed.EmotionConfidence)
	assert.Equal(t, result.AllEmotions, parsed.AllEmotions)
}

func TestFallbackRecommendation(t *testing.T) {
	fb := model.FallbackRecommendation()
	assert.Equal(t, model.SourceYouTube, fb.Source)
	assert.Equal(t, "Lofi beats", fb.Title)
	assert.NotSame(t, fb, model.FallbackRecommendation())
}
