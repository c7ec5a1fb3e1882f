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
	"errors"
	"fmt"

	"github.com/jaycherian/gcp-go-emotion-media/internal/core/cor"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/model"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/services"
)

// FaceAnalyzer hands the stored image to the analysis worker pool and waits
// for the raw payload.
type FaceAnalyzer struct {
	cor.BaseCommand
	analyzer services.FaceAnalyzer
}

// NewFaceAnalyzer creates the analysis step. analyzer is normally a
// `*services.AnalysisPool`.
func NewFaceAnalyzer(name string, analyzer services.FaceAnalyzer) *FaceAnalyzer {
	return &FaceAnalyzer{BaseCommand: *cor.NewBaseCommand(name), analyzer: analyzer}
}

func (f *FaceAnalyzer) Execute(context cor.Context) {
	path := context.Get(f.GetInputParam()).(string)

	raw, err := f.analyzer.Analyze(context.GetContext(), path)
	if err != nil {
		if !errors.Is(err, model.ErrAnalysisFailed) {
			err = fmt.Errorf("%w: %w", model.ErrAnalysisFailed, err)
		}
		f.Fail(context, err)
		return
	}
	if raw == nil {
		f.Fail(context, fmt.Errorf("%w: the model returned no result", model.ErrAnalysisFailed))
		return
	}

	f.Succeed(context.GetContext())
	context.Add(f.GetOutputParam(), raw)
}
