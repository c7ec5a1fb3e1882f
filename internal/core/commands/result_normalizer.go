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
	"fmt"

	"github.com/jaycherian/gcp-go-emotion-media/internal/core/cor"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/model"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/services"
)

// ResultNormalizer turns the raw payload into the canonical result. The
// normalizer also writes the prediction log row.
type ResultNormalizer struct {
	cor.BaseCommand
	normalizer *services.Normalizer
}

func NewResultNormalizer(name string, normalizer *services.Normalizer) *ResultNormalizer {
	return &ResultNormalizer{BaseCommand: *cor.NewBaseCommand(name), normalizer: normalizer}
}

// Execute records `model.ErrAnalysisFailed` when the payload could not be normalized.
func (r *ResultNormalizer) Execute(context cor.Context) {
	raw := context.Get(r.GetInputParam())
	path, _ := context.Get(ImagePathParam).(string)

	result := r.normalizer.Normalize(context.GetContext(), raw, path)
	if !result.IsSuccess() {
		r.Fail(context, fmt.Errorf("%w: %s", model.ErrAnalysisFailed, result.Error))
		return
	}

	r.Succeed(context.GetContext())
	context.Add(r.GetOutputParam(), result)
}
