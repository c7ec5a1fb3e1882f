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
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// FieldKind tags the shape a gender or emotion value was reported in.
type FieldKind int

const (
	FieldAbsent FieldKind = iota // missing, null, or falsy
	FieldLabel                   // a bare label such as "Woman"
	FieldScores                  // a label to score mapping
)

// EmotionLabels is the fixed emotion vocabulary, in tie-break order.
var EmotionLabels = []string{"angry", "disgust", "fear", "happy", "sad", "surprise", "neutral"}

// GenderLabels is the gender vocabulary, in tie-break order.
var GenderLabels = []string{"woman", "man"}

// ScoredField is a loosely typed gender or emotion value from the analysis
// model: either a label, a mapping of label to score, or nothing.
type ScoredField struct {
	Kind   FieldKind
	Label  string
	Scores map[string]float64
}

// ParseScoredField classifies a decoded JSON value. Empty strings and empty
// mappings are treated as absent. Mapping values must be numeric.
func ParseScoredField(v any) (ScoredField, error) {
	switch t := v.(type) {
	case nil:
		return ScoredField{Kind: FieldAbsent}, nil
	case string:
		if t == "" {
			return ScoredField{Kind: FieldAbsent}, nil
		}
		return ScoredField{Kind: FieldLabel, Label: t}, nil
	case bool:
		if !t {
			return ScoredField{Kind: FieldAbsent}, nil
		}
		return ScoredField{Kind: FieldLabel, Label: "True"}, nil
	case map[string]any:
		if len(t) == 0 {
			return ScoredField{Kind: FieldAbsent}, nil
		}
		scores, err := ToScores(t)
		if err != nil {
			return ScoredField{}, err
		}
		return ScoredField{Kind: FieldScores, Scores: scores}, nil
	case map[string]float64:
		if len(t) == 0 {
			return ScoredField{Kind: FieldAbsent}, nil
		}
		return ScoredField{Kind: FieldScores, Scores: t}, nil
	case []any:
		return ScoredField{}, fmt.Errorf("unsupported label value of type list")
	default:
		f, err := ToFloat(t)
		if err != nil {
			return ScoredField{}, fmt.Errorf("unsupported label value of type %T", v)
		}
		if f == 0 {
			return ScoredField{Kind: FieldAbsent}, nil
		}
		return ScoredField{Kind: FieldLabel, Label: strconv.FormatFloat(f, 'f', -1, 64)}, nil
	}
}

// Resolve returns the dominant label and, for score mappings, its score.
// The highest score wins. Equal scores fall back to the position of the
// label in ranking (case-insensitive), then to lexicographic order, so the
// result never depends on map iteration order.
func (f ScoredField) Resolve(ranking []string) (label *string, confidence *float64) {
	switch f.Kind {
	case FieldLabel:
		l := f.Label
		return &l, nil
	case FieldScores:
		keys := make([]string, 0, len(f.Scores))
		for k := range f.Scores {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			return labelLess(keys[i], keys[j], ranking)
		})
		best := keys[0]
		for _, k := range keys[1:] {
			if f.Scores[k] > f.Scores[best] {
				best = k
			}
		}
		score := f.Scores[best]
		return &best, &score
	default:
		return nil, nil
	}
}

func labelLess(a, b string, ranking []string) bool {
	ra, rb := rank(a, ranking), rank(b, ranking)
	if ra != rb {
		return ra < rb
	}
	return a < b
}

func rank(label string, ranking []string) int {
	for i, r := range ranking {
		if strings.EqualFold(label, r) {
			return i
		}
	}
	return len(ranking)
}

// ToScores converts every value of a decoded mapping to a float score.
func ToScores(m map[string]any) (map[string]float64, error) {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		f, err := ToFloat(v)
		if err != nil {
			return nil, fmt.Errorf("score for %q: %w", k, err)
		}
		out[k] = f
	}
	return out, nil
}

// ToFloat coerces a decoded JSON scalar to a finite float64.
func ToFloat(v any) (float64, error) {
	f, err := toFloat(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("expected a finite number, got %v", v)
	}
	return f, nil
}

func toFloat(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("could not convert string to float: %q", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

// ToAge coerces a reported age to an integer by truncation. A nil value
// means the age is absent.
func ToAge(v any) (*int, error) {
	if v == nil {
		return nil, nil
	}
	var age float64
	switch t := v.(type) {
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return nil, fmt.Errorf("invalid literal for age: %q", t)
		}
		age = float64(n)
	default:
		f, err := ToFloat(v)
		if err != nil {
			return nil, fmt.Errorf("age: %w", err)
		}
		age = f
	}
	if math.IsNaN(age) || math.IsInf(age, 0) {
		return nil, fmt.Errorf("age is not a finite number")
	}
	if age < 0 {
		return nil, fmt.Errorf("age must not be negative, got %v", age)
	}
	n := int(math.Trunc(age))
	return &n, nil
}
