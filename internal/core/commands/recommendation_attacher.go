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

package commands

import (
	"context"

	"github.com/jaycherian/gcp-go-emotion-media/internal/core/cor"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/model"
)

// Recommender produces media recommendations for the analyzed attributes.
type Recommender interface {
	Recommend(ctx context.Context, emotion string, age *int, gender string) []*model.Recommendation
}

// RecommendationAttacher adds recommendations for the dominant emotion to a
// successful result. It never fails.
type RecommendationAttacher struct {
	cor.BaseCommand
	recommender Recommender
}

func NewRecommendationAttacher(name string, recommender Recommender) *RecommendationAttacher {
	return &RecommendationAttacher{BaseCommand: *cor.NewBaseCommand(name), recommender: recommender}
}

func (r *RecommendationAttacher) Execute(chCtx cor.Context) {
	result := chCtx.Get(r.GetInputParam()).(*model.AnalysisResult)
	if r.recommender != nil {
		result.Recommendations = r.recommender.Recommend(chCtx.GetContext(), result.EmotionLabel(), result.Age, result.GenderLabel())
	}
	r.Succeed(chCtx.GetContext())
	chCtx.Add(r.GetOutputParam(), result)
}
