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

package cloud

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"text/template"

	"github.com/goccy/go-json"
	"github.com/h2non/filetype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-emotion-media/internal/core/model"
)

// GeminiFaceAnalyzer asks a Gemini model to estimate age, gender and emotion
// and to answer in the same JSON shape as DeepFace.
type GeminiFaceAnalyzer struct {
	model              *QuotaAwareGenerativeAIModel
	prompt             string
	inputTokenCounter  metric.Int64Counter
	outputTokenCounter metric.Int64Counter
	retryCounter       metric.Int64Counter
}

// NewGeminiFaceAnalyzer renders the prompt template once. The template may
// reference {{.EXAMPLE_JSON}} and {{.LABELS}}.
func NewGeminiFaceAnalyzer(model *QuotaAwareGenerativeAIModel, promptTemplate string) (*GeminiFaceAnalyzer, error) {
	tmpl, err := template.New("face-analysis-template").Parse(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("invalid face analysis prompt: %w", err)
	}
	prompt, err := renderFacePrompt(tmpl)
	if err != nil {
		return nil, err
	}

	meter := otel.Meter("github.com/jaycherian/gcp-go-emotion-media")
	out := &GeminiFaceAnalyzer{model: model, prompt: prompt}
	out.inputTokenCounter, _ = meter.Int64Counter("face-analysis.gemini.token.input")
	out.outputTokenCounter, _ = meter.Int64Counter("face-analysis.gemini.token.output")
	out.retryCounter, _ = meter.Int64Counter("face-analysis.gemini.retry")
	return out, nil
}

func renderFacePrompt(tmpl *template.Template) (string, error) {
	example, err := json.Marshal(model.GetExampleFaceAnalysis())
	if err != nil {
		return "", err
	}
	vocabulary := map[string]string{
		"EXAMPLE_JSON": string(example),
		"LABELS":       fmt.Sprint(model.EmotionLabels),
	}
	var doc bytes.Buffer
	if err := tmpl.Execute(&doc, vocabulary); err != nil {
		return "", fmt.Errorf("failed to render face analysis prompt: %w", err)
	}
	return doc.String(), nil
}

// Prompt returns the rendered prompt sent with every image.
func (g *GeminiFaceAnalyzer) Prompt() string {
	return g.prompt
}

// Analyze sends the image inline together with the prompt and decodes the
// model's JSON answer.
func (g *GeminiFaceAnalyzer) Analyze(ctx context.Context, imagePath string) (any, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("could not read image file: %w", err)
	}
	mime := "image/jpeg"
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		mime = kind.MIME.Value
	}

	contents := []*genai.Content{
		{
			Parts: []*genai.Part{
				{Text: g.prompt},
				{InlineData: &genai.Blob{MIMEType: mime, Data: data}},
			},
			Role: "user",
		},
	}

	text, err := GenerateMultiModalResponse(ctx, g.inputTokenCounter, g.outputTokenCounter, g.retryCounter, 0, g.model, contents)
	if err != nil {
		return nil, fmt.Errorf("gemini face analysis: %w", err)
	}
	var payload any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("gemini returned malformed JSON: %w", err)
	}
	return payload, nil
}
