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

// Package model defines the core data structures for the application.
// This file, `analysis.go`, contains the canonical analysis result that is
// produced for every uploaded image regardless of the shape of the payload
// returned by the face analysis model.
package model

import (
	"errors"

	"github.com/goccy/go-json"
)

// Status is the outcome of a single analysis call.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

var (
	// ErrInvalidImage marks an upload that is not a decodable image. It is
	// surfaced to callers as a client error and never logged as a prediction.
	ErrInvalidImage = errors.New("invalid image file")
	// ErrAnalysisFailed marks a failure of the analysis model or of the
	// normalization of its output. It is surfaced as a server error.
	ErrAnalysisFailed = errors.New("analysis failed")
)

// AnalysisResult is the canonical, schema-stable analysis output. Absent
// values are nil and serialize as JSON null.
type AnalysisResult struct {
	Status            Status             `json:"status"`                   // success or error.
	Error             string             `json:"error,omitempty"`          // The error message, only set when Status is error.
	FilePath          string             `json:"file_path,omitempty"`      // Reference to the stored upload that was analyzed.
	Age               *int               `json:"age"`                      // Estimated age, truncated to an integer.
	Gender            *string            `json:"gender"`                   // Dominant gender label.
	GenderConfidence  *float64           `json:"gender_confidence"`        // Only set when gender was reported as a score mapping.
	Emotion           *string            `json:"emotion"`                  // Dominant emotion label.
	EmotionConfidence *float64           `json:"emotion_confidence"`       // Score of the dominant emotion, when the model reported one.
	AllEmotions       map[string]float64 `json:"all_emotions"`             // Full emotion distribution as reported by the model.
	Raw               map[string]any     `json:"raw_analysis,omitempty"`   // The age, gender and emotion keys of the raw payload.
	Recommendations   []*Recommendation  `json:"recommendations,omitempty"` // Media recommendations for the dominant emotion.
}

// NewErrorResult converts a failure into the error form of the canonical result.
// No partial analysis data is carried over.
func NewErrorResult(err error) *AnalysisResult {
	msg := "unknown analysis error"
	if err != nil {
		msg = err.Error()
	}
	return &AnalysisResult{Status: StatusError, Error: msg}
}

// IsSuccess reports whether the analysis produced a usable result.
func (r *AnalysisResult) IsSuccess() bool {
	return r != nil && r.Status == StatusSuccess
}

// EmotionLabel returns the dominant emotion or an empty string when absent.
func (r *AnalysisResult) EmotionLabel() string {
	return deref(r.Emotion)
}

// GenderLabel returns the dominant gender or an empty string when absent.
func (r *AnalysisResult) GenderLabel() string {
	return deref(r.Gender)
}

// MarshalJSON emits only the status and message for error results.
func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	if r.Status == StatusError {
		return json.Marshal(struct {
			Status Status `json:"status"`
			Error  string `json:"error"`
		}{Status: r.Status, Error: r.Error})
	}
	type plain AnalysisResult
	out := plain(r)
	if out.AllEmotions == nil {
		out.AllEmotions = map[string]float64{}
	}
	return json.Marshal(out)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
