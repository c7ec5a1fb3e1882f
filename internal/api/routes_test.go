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

package api_test

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/jaycherian/gcp-go-emotion-media/internal/api"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	result   *model.AnalysisResult
	err      error
	received []byte
	name     string
}

func (f *fakeRunner) Run(_ context.Context, data []byte, fileName string) (*model.AnalysisResult, error) {
	f.received = data
	f.name = fileName
	return f.result, f.err
}

type fakeRecommender struct {
	emotion string
	age     *int
	gender  string
}

func (f *fakeRecommender) Recommend(_ context.Context, emotion string, age *int, gender string) []*model.Recommendation {
	f.emotion, f.age, f.gender = emotion, age, gender
	return []*model.Recommendation{model.FallbackRecommendation()}
}

func newRouter(runner api.AnalysisRunner, rec api.Recommender, maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api.Root(r)
	group := r.Group("/api")
	api.AnalysisRouter(group, runner, maxBytes)
	api.RecommendationRouter(group, rec)
	return r
}

func uploadRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, "face.png")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze/", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestRoot(t *testing.T) {
	r := newRouter(&fakeRunner{}, &fakeRecommender{}, 0)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, "Emotion backend running", body["message"])
}

func TestAnalyzeSuccess(t *testing.T) {
	age := 31
	emotion := "happy"
	runner := &fakeRunner{result: &model.AnalysisResult{Status: model.StatusSuccess, Age: &age, Emotion: &emotion}}
	r := newRouter(runner, &fakeRecommender{}, 0)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, api.UploadField, []byte("image-bytes")))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte("image-bytes"), runner.received)
	assert.Equal(t, "face.png", runner.name)

	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, float64(31), body["age"])
	assert.Equal(t, "happy", body["emotion"])
}

func TestAnalyzeReadsOneBytePastLimit(t *testing.T) {
	runner := &fakeRunner{result: &model.AnalysisResult{Status: model.StatusSuccess}}
	r := newRouter(runner, &fakeRecommender{}, 4)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, api.UploadField, []byte("0123456789")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte("01234"), runner.received)
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid image", errors.Join(model.ErrInvalidImage, errors.New("content is not an image")), http.StatusBadRequest},
		{"analysis failure", errors.Join(model.ErrAnalysisFailed, errors.New("no face")), http.StatusInternalServerError},
		{"unexpected", errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(&fakeRunner{err: tt.err}, &fakeRecommender{}, 0)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, uploadRequest(t, api.UploadField, []byte("x")))

			assert.Equal(t, tt.status, rec.Code)
			var body map[string]string
			decode(t, rec, &body)
			assert.Equal(t, tt.err.Error(), body["detail"])
		})
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	runner := &fakeRunner{}
	r := newRouter(runner, &fakeRecommender{}, 0)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, uploadRequest(t, "image", []byte("x")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, runner.received)
	var body map[string]string
	decode(t, rec, &body)
	assert.Contains(t, body["detail"], api.UploadField)
}

func TestRecommendations(t *testing.T) {
	recommender := &fakeRecommender{}
	r := newRouter(&fakeRunner{}, recommender, 0)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recommendations?emotion=sad&age=42&gender=Man", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sad", recommender.emotion)
	require.NotNil(t, recommender.age)
	assert.Equal(t, 42, *recommender.age)
	assert.Equal(t, "Man", recommender.gender)

	var items []model.Recommendation
	decode(t, rec, &items)
	require.Len(t, items, 1)
	assert.Equal(t, *model.FallbackRecommendation(), items[0])
}

func TestRecommendationsWithoutAge(t *testing.T) {
	recommender := &fakeRecommender{}
	r := newRouter(&fakeRunner{}, recommender, 0)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recommendations?emotion=fear", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, recommender.age)
	assert.Equal(t, "", recommender.gender)
}

func TestRecommendationsRejectsBadAge(t *testing.T) {
	recommender := &fakeRecommender{}
	r := newRouter(&fakeRunner{}, recommender, 0)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recommendations?emotion=sad&age=old", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "", recommender.emotion)
}
