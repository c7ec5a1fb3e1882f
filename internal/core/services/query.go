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

// Package services contains the decision logic of the application: turning
// a loosely typed analysis payload into a canonical result, building a search
// phrase from it, and aggregating media recommendations from the providers.
// This file holds the query builder.
package services

import "strings"

// defaultQueryPhrase is used for missing or unrecognised emotions.
const defaultQueryPhrase = "relaxing focus"

// emotionPhrases maps a lower-cased emotion label to its base search phrase.
var emotionPhrases = map[string]string{
	"happy":    "uplifting happy",
	"sad":      "soothing sad",
	"angry":    "calming chill",
	"fear":     "comforting acoustic",
	"disgust":  "fresh upbeat",
	"surprise": "energetic surprise",
	"neutral":  "relaxing focus",
}

// BuildQuery maps an emotion, an optional age and an optional gender to a
// search phrase. It is pure and always returns a non-empty string.
//
// The gender is appended verbatim. The age adds exactly one bucket token:
// teen below 18, young adult below 30, adult below 50 and classic otherwise.
func BuildQuery(emotion string, age *int, gender string) string {
	phrase, ok := emotionPhrases[strings.ToLower(emotion)]
	if !ok {
		phrase = defaultQueryPhrase
	}

	var sb strings.Builder
	sb.WriteString(phrase)
	if gender != "" {
		sb.WriteString(" ")
		sb.WriteString(gender)
	}
	if age != nil {
		sb.WriteString(" ")
		sb.WriteString(ageBucket(*age))
	}
	return sb.String()
}

func ageBucket(age int) string {
	switch {
	case age < 18:
		return "teen"
	case age < 30:
		return "young adult"
	case age < 50:
		return "adult"
	default:
		return "classic"
	}
}
