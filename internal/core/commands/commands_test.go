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

package commands_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"os"
	"testing"

	"github.com/jaycherian/gcp-go-emotion-media/internal/core/commands"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/cor"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/model"
	test "github.com/jaycherian/gcp-go-emotion-media/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(in any) cor.Context {
	ctx := cor.NewBaseContext()
	ctx.SetContext(context.Background())
	ctx.Add(cor.CtxIn, in)
	return ctx
}

func encodeJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 10, 6))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func encodeGIF(t *testing.T) []byte {
	t.Helper()
	img := image.NewPaletted(image.Rect(0, 0, 3, 5), color.Palette{color.Black, color.White})
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestImageValidatorAcceptsImages(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		ext    string
		mime   string
		width  int
		height int
	}{
		{"png", test.PNGImage(t, 7, 9), "png", "image/png", 7, 9},
		{"jpeg", encodeJPEG(t), "jpg", "image/jpeg", 10, 6},
		{"gif", encodeGIF(t), "gif", "image/gif", 3, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := commands.NewImageValidator("validator", 0)
			ctx := newContext(&model.ImageUpload{FileName: "x", Data: tt.data})
			require.True(t, cmd.IsExecutable(ctx))

			cmd.Execute(ctx)
			require.False(t, ctx.HasErrors(), "%v", ctx.Err())

			upload := ctx.Get(cor.CtxOut).(*model.ImageUpload)
			assert.Equal(t, tt.ext, upload.Extension)
			assert.Equal(t, tt.mime, upload.MIMEType)
			assert.Equal(t, tt.width, upload.Width)
			assert.Equal(t, tt.height, upload.Height)
		})
	}
}

func TestImageValidatorRejects(t *testing.T) {
	pdf := []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\n")
	for name, data := range map[string][]byte{
		"empty":     {},
		"text":      []byte("hello, world"),
		"pdf":       pdf,
		"truncated": test.PNGImage(t, 8, 8)[:16],
	} {
		t.Run(name, func(t *testing.T) {
			cmd := commands.NewImageValidator("validator", 0)
			ctx := newContext(&model.ImageUpload{Data: data})
			cmd.Execute(ctx)
			assert.ErrorIs(t, ctx.Err(), model.ErrInvalidImage)
			assert.Nil(t, ctx.Get(cor.CtxOut))
		})
	}
}

func TestImageToTempFile(t *testing.T) {
	dir := t.TempDir()
	data := test.PNGImage(t, 2, 2)

	cmd := commands.NewImageToTempFile("store", dir, false)
	ctx := newContext(&model.ImageUpload{Data: data, Extension: "png"})
	cmd.Execute(ctx)
	require.False(t, ctx.HasErrors())

	path := ctx.Get(cor.CtxOut).(string)
	assert.Equal(t, path, ctx.Get(commands.ImagePathParam))
	stored, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, stored)
	assert.Equal(t, []string{path}, ctx.GetTempFiles())

	ctx.Close()
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestImageToTempFileRetained(t *testing.T) {
	cmd := commands.NewImageToTempFile("store", t.TempDir(), true)
	ctx := newContext(&model.ImageUpload{Data: []byte{1, 2, 3}, Extension: "jpg"})
	cmd.Execute(ctx)
	require.False(t, ctx.HasErrors())
	assert.Empty(t, ctx.GetTempFiles())

	ctx.Close()
	assert.FileExists(t, ctx.Get(cor.CtxOut).(string))
}

type stubAnalyzer struct {
	raw any
	err error
}

func (s stubAnalyzer) Analyze(context.Context, string) (any, error) { return s.raw, s.err }

func TestFaceAnalyzerWrapsFailures(t *testing.T) {
	cmd := commands.NewFaceAnalyzer("analyze", stubAnalyzer{err: errors.New("backend down")})
	ctx := newContext("/tmp/x.png")
	cmd.Execute(ctx)
	assert.ErrorIs(t, ctx.Err(), model.ErrAnalysisFailed)

	cmd = commands.NewFaceAnalyzer("analyze", stubAnalyzer{})
	ctx = newContext("/tmp/x.png")
	cmd.Execute(ctx)
	assert.ErrorIs(t, ctx.Err(), model.ErrAnalysisFailed)

	cmd = commands.NewFaceAnalyzer("analyze", stubAnalyzer{raw: map[string]any{"age": 3}})
	ctx = newContext("/tmp/x.png")
	cmd.Execute(ctx)
	require.NoError(t, ctx.Err())
	assert.Equal(t, map[string]any{"age": 3}, ctx.Get(cor.CtxOut))
}

type countingRecommender struct{ calls int }

func (c *countingRecommender) Recommend(context.Context, string, *int, string) []*model.Recommendation {
	c.calls++
	return []*model.Recommendation{model.FallbackRecommendation()}
}

func TestRecommendationAttacher(t *testing.T) {
	rec := &countingRecommender{}
	cmd := commands.NewRecommendationAttacher("attach", rec)
	result := &model.AnalysisResult{Status: model.StatusSuccess}
	ctx := newContext(result)
	cmd.Execute(ctx)

	require.NoError(t, ctx.Err())
	assert.Equal(t, 1, rec.calls)
	assert.Len(t, result.Recommendations, 1)
	assert.Same(t, result, ctx.Get(cor.CtxOut))
}
