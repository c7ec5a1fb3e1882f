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

// Recommendation sources.
const (
	SourceYouTube = "youtube"
	SourceSpotify = "spotify"
)

// MaxRecommendations caps the merged recommendation list.
const MaxRecommendations = 10

// Recommendation is a single media suggestion returned to the caller.
type Recommendation struct {
	Title  string `json:"title"`  // Display title of the video or track.
	URL    string `json:"url"`    // Public URL of the media.
	Source string `json:"source"` // The provider that produced the item.
}

// FallbackRecommendation is returned when no provider yields anything.
func FallbackRecommendation() *Recommendation {
	return &Recommendation{
		Title:  "Lofi beats",
		URL:    "https://www.youtube.com/watch?v=5qap5aO4i9A",
		Source: SourceYouTube,
	}
}
