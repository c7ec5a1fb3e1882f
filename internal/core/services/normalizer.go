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
	"fmt"
	"log/slog"
	"time"

	"github.com/jaycherian/gcp-go-emotion-media/internal/core/model"
)

// PredictionSink receives one record per successful analysis.
type PredictionSink interface {
	Append(ctx context.Context, record *model.PredictionRecord) error
}

// Normalizer converts raw analysis payloads into canonical results and
// records every success in the prediction sink.
type Normalizer struct {
	Sink   PredictionSink   // Optional; nil disables prediction logging.
	Logger *slog.Logger     //
	Now    func() time.Time // Clock used for prediction timestamps.
}

// NewNormalizer creates a normalizer that writes to sink.
func NewNormalizer(sink PredictionSink) *Normalizer {
	return &Normalizer{Sink: sink, Logger: slog.Default(), Now: time.Now}
}

// Normalize never fails: any fault in the payload produces an error result
// carrying only the message. A failure to record the prediction is logged
// and does not change the result.
//
// Inputs:
//   - ctx: Used for logging correlation and the sink write.
//   - raw: The decoded analysis payload, a mapping or a list whose first element is one.
//   - filePath: Reference to the analyzed upload, copied into the result and the log.
//
// Outputs:
//   - *model.AnalysisResult: Never nil.
func (n *Normalizer) Normalize(ctx context.Context, raw any, filePath string) *model.AnalysisResult {
	result, err := Canonicalize(raw)
	if err != nil {
		n.logger().WarnContext(ctx, "failed to normalize analysis result", "error", err)
		return model.NewErrorResult(err)
	}
	result.FilePath = filePath

	if n.Sink != nil {
		now := time.Now
		if n.Now != nil {
			now = n.Now
		}
		if err := n.Sink.Append(ctx, model.NewPredictionRecord(now(), result)); err != nil {
			n.logger().WarnContext(ctx, "failed to write prediction log", "error", err)
		}
	}
	return result
}

func (n *Normalizer) logger() *slog.Logger {
	if n.Logger == nil {
		return slog.Default()
	}
	return n.Logger
}

// Canonicalize is the pure part of Normalize. It returns an error instead of
// an error result and recovers from panics raised by unexpected payloads.
func Canonicalize(raw any) (result *model.AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("unexpected analysis payload: %v", r)
		}
	}()

	working := raw
	switch list := raw.(type) {
	case []any:
		if len(list) > 0 {
			working = list[0]
		}
	case []map[string]any:
		if len(list) > 0 {
			working = list[0]
		}
	}
	payload, ok := working.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("unexpected analysis payload of type %T", working)
	}

	result = &model.AnalysisResult{Status: model.StatusSuccess, AllEmotions: map[string]float64{}}

	if result.Age, err = model.ToAge(payload["age"]); err != nil {
		return nil, err
	}

	gender, err := model.ParseScoredField(payload["dominant_gender"])
	if err != nil {
		return nil, fmt.Errorf("dominant_gender: %w", err)
	}
	if gender.Kind == model.FieldAbsent {
		if gender, err = model.ParseScoredField(payload["gender"]); err != nil {
			return nil, fmt.Errorf("gender: %w", err)
		}
	}
	result.Gender, result.GenderConfidence = gender.Resolve(model.GenderLabels)

	if err := resolveEmotion(payload, result); err != nil {
		return nil, err
	}

	if scores, ok := payload["emotion"].(map[string]any); ok {
		if result.AllEmotions, err = model.ToScores(scores); err != nil {
			return nil, fmt.Errorf("emotion: %w", err)
		}
	}

	result.Raw = make(map[string]any, 3)
	for _, key := range []string{"age", "gender", "emotion"} {
		if v, ok := payload[key]; ok {
			result.Raw[key] = v
		}
	}
	return result, nil
}

// resolveEmotion prefers dominant_emotion and looks its confidence up in the
// emotion mapping; without it, label and confidence come from the mapping.
func resolveEmotion(payload map[string]any, result *model.AnalysisResult) error {
	dominant, err := model.ParseScoredField(payload["dominant_emotion"])
	if err != nil {
		return fmt.Errorf("dominant_emotion: %w", err)
	}
	if dominant.Kind == model.FieldAbsent {
		field, err := model.ParseScoredField(payload["emotion"])
		if err != nil {
			return fmt.Errorf("emotion: %w", err)
		}
		result.Emotion, result.EmotionConfidence = field.Resolve(model.EmotionLabels)
		return nil
	}

	result.Emotion, result.EmotionConfidence = dominant.Resolve(model.EmotionLabels)
	if result.EmotionConfidence != nil {
		return nil
	}
	if scores, ok := payload["emotion"].(map[string]any); ok {
		if v, found := scores[*result.Emotion]; found {
			f, err := model.ToFloat(v)
			if err != nil {
				return fmt.Errorf("emotion[%q]: %w", *result.Emotion, err)
			}
			result.EmotionConfidence = &f
		}
	}
	return nil
}
