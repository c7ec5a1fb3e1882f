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

// Package model defines the data structures for the application. This file,
// `examples.go`, provides the example analysis payload that is embedded in
// the face-analysis prompt.
//
// Giving the generative model a concrete example of the expected JSON keeps
// its answers in the same shape the normalizer already understands from the
// DeepFace backend.
package model

// GetExampleFaceAnalysis returns a payload shaped like a single DeepFace
// `analyze` result. Scores are percentages, as DeepFace reports them.
func GetExampleFaceAnalysis() map[string]any {
	return map[string]any{
		"age":             31,
		"dominant_gender": "Woman",
		"gender": map[string]any{
			"Woman": 97.2,
			"Man":   2.8,
		},
		"dominant_emotion": "happy",
		"emotion": map[string]any{
			"angry":    0.4,
			"disgust":  0.0,
			"fear":     0.9,
			"happy":    88.1,
			"sad":      1.6,
			"surprise": 3.2,
			"neutral":  5.8,
		},
	}
}
