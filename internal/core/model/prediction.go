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

package model

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// PredictionLogHeader lists the columns of the prediction log, in order.
var PredictionLogHeader = []string{
	"timestamp", "file_path", "age",
	"gender", "gender_confidence",
	"emotion", "emotion_confidence", "all_emotions_json",
}

// PredictionRecord is one row of the append-only prediction log.
type PredictionRecord struct {
	Timestamp         time.Time
	FilePath          string
	Age               *int
	Gender            *string
	GenderConfidence  *float64
	Emotion           *string
	EmotionConfidence *float64
	AllEmotions       map[string]float64
}

// NewPredictionRecord builds the log row for a successful analysis.
func NewPredictionRecord(at time.Time, result *AnalysisResult) *PredictionRecord {
	return &PredictionRecord{
		Timestamp:         at.UTC(),
		FilePath:          result.FilePath,
		Age:               result.Age,
		Gender:            result.Gender,
		GenderConfidence:  result.GenderConfidence,
		Emotion:           result.Emotion,
		EmotionConfidence: result.EmotionConfidence,
		AllEmotions:       result.AllEmotions,
	}
}

// Row renders the record as CSV fields. Absent values are empty fields.
func (p *PredictionRecord) Row() ([]string, error) {
	emotions := p.AllEmotions
	if emotions == nil {
		emotions = map[string]float64{}
	}
	encoded, err := json.Marshal(emotions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode all_emotions: %w", err)
	}
	row := []string{
		p.Timestamp.UTC().Format(time.RFC3339Nano),
		p.FilePath,
		"",
		stringOrEmpty(p.Gender),
		floatOrEmpty(p.GenderConfidence),
		stringOrEmpty(p.Emotion),
		floatOrEmpty(p.EmotionConfidence),
		string(encoded),
	}
	if p.Age != nil {
		row[2] = strconv.Itoa(*p.Age)
	}
	return row, nil
}

// ParsePredictionRow reads a record back from its CSV fields.
func ParsePredictionRow(row []string) (*PredictionRecord, error) {
	if len(row) != len(PredictionLogHeader) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(PredictionLogHeader), len(row))
	}
	ts, err := time.Parse(time.RFC3339Nano, row[0])
	if err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}
	out := &PredictionRecord{Timestamp: ts, FilePath: row[1]}
	if row[2] != "" {
		age, err := strconv.Atoi(row[2])
		if err != nil {
			return nil, fmt.Errorf("age: %w", err)
		}
		out.Age = &age
	}
	out.Gender = emptyToNil(row[3])
	if out.GenderConfidence, err = parseOptionalFloat(row[4]); err != nil {
		return nil, fmt.Errorf("gender_confidence: %w", err)
	}
	out.Emotion = emptyToNil(row[5])
	if out.EmotionConfidence, err = parseOptionalFloat(row[6]); err != nil {
		return nil, fmt.Errorf("emotion_confidence: %w", err)
	}
	out.AllEmotions = map[string]float64{}
	if row[7] != "" {
		if err := json.Unmarshal([]byte(row[7]), &out.AllEmotions); err != nil {
			return nil, fmt.Errorf("all_emotions_json: %w", err)
		}
	}
	return out, nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatOrEmpty(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func emptyToNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseOptionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
