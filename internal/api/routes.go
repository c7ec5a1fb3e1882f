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

// Package api contains the HTTP route definitions of the server.
//
// Functions:
//   - Root: the liveness message at "/".
//   - AnalysisRouter: image upload and analysis at "/analyze/".
//   - RecommendationRouter: recommendation lookup at "/recommendations".
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/model"
)

// UploadField is the multipart field carrying the image.
const UploadField = "file"

// AnalysisRunner analyzes one uploaded image.
type AnalysisRunner interface {
	Run(ctx context.Context, data []byte, fileName string) (*model.AnalysisResult, error)
}

// Recommender returns media recommendations for the given attributes.
type Recommender interface {
	Recommend(ctx context.Context, emotion string, age *int, gender string) []*model.Recommendation
}

// errorBody is the JSON shape of every failed request.
func errorBody(msg string) gin.H {
	return gin.H{"detail": msg}
}

// Root registers the liveness endpoint.
func Root(r gin.IRoutes) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Emotion backend running"})
	})
}

// AnalysisRouter registers POST "/analyze/" under r.
//
// Inputs:
//   - r: The "/api" group.
//   - runner: The analysis workflow.
//   - maxBytes: Uploads are read up to one byte past this limit so the
//     validator can reject them; zero reads everything.
//
// Responses:
//   - 200 with the canonical result.
//   - 400 {"detail": ...} when the file is missing or not a decodable image.
//   - 500 {"detail": ...} when analysis fails.
func AnalysisRouter(r *gin.RouterGroup, runner AnalysisRunner, maxBytes int64) {
	analyze := r.Group("/analyze")
	{
		analyze.POST("/", func(c *gin.Context) {
			header, err := c.FormFile(UploadField)
			if err != nil {
				c.JSON(http.StatusBadRequest, errorBody(fmt.Sprintf("missing upload field %q", UploadField)))
				return
			}
			file, err := header.Open()
			if err != nil {
				c.JSON(http.StatusBadRequest, errorBody(err.Error()))
				return
			}
			defer file.Close()

			var reader io.Reader = file
			if maxBytes > 0 {
				reader = io.LimitReader(file, maxBytes+1)
			}
			data, err := io.ReadAll(reader)
			if err != nil {
				c.JSON(http.StatusBadRequest, errorBody(err.Error()))
				return
			}

			ctx := c.Request.Context()
			result, err := runner.Run(ctx, data, header.Filename)
			if err != nil {
				if errors.Is(err, model.ErrInvalidImage) {
					slog.InfoContext(ctx, "rejected upload", "file", header.Filename, "error", err)
					c.JSON(http.StatusBadRequest, errorBody(err.Error()))
					return
				}
				slog.ErrorContext(ctx, "analysis failed", "file", header.Filename, "error", err)
				c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
				return
			}
			c.JSON(http.StatusOK, result)
		})
	}
}

// RecommendationRouter registers GET "/recommendations" under r. Provider
// failures never change the status; only a malformed age is rejected.
func RecommendationRouter(r *gin.RouterGroup, recommender Recommender) {
	r.GET("/recommendations", func(c *gin.Context) {
		var age *int
		if raw := strings.TrimSpace(c.Query("age")); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, errorBody(fmt.Sprintf("age must be an integer, got %q", raw)))
				return
			}
			age = &v
		}
		items := recommender.Recommend(c.Request.Context(), c.Query("emotion"), age, c.Query("gender"))
		c.JSON(http.StatusOK, items)
	})
}
