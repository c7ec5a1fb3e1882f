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

package cloud_test

import (
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-emotion-media/internal/cloud"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/model"
	test "github.com/jaycherian/gcp-go-emotion-media/internal/testutil"
)

func TestGeminiPromptRendersConfiguredTemplate(t *testing.T) {
	config := test.GetConfig()
	require.NotEmpty(t, config.PromptTemplates.FaceAnalysisPrompt)

	analyzer, err := cloud.NewGeminiFaceAnalyzer(nil, config.PromptTemplates.FaceAnalysisPrompt)
	require.NoError(t, err)
	prompt := analyzer.Prompt()

	example, err := json.Marshal(model.GetExampleFaceAnalysis())
	require.NoError(t, err)
	assert.Contains(t, prompt, string(example))
	for _, label := range model.EmotionLabels {
		assert.Contains(t, prompt, label)
	}
	assert.NotContains(t, prompt, "{{")
}

func TestGeminiPromptRejectsBrokenTemplate(t *testing.T) {
	_, err := cloud.NewGeminiFaceAnalyzer(nil, "Describe {{ .LABELS ")
	assert.Error(t, err)

	analyzer, err := cloud.NewGeminiFaceAnalyzer(nil, "plain prompt")
	require.NoError(t, err)
	assert.Equal(t, "plain prompt", strings.TrimSpace(analyzer.Prompt()))
}
