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
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
	"github.com/h2non/filetype"
)

// DeepFaceAnalyzer calls a DeepFace REST service to estimate age, gender and
// emotion for the face in an image file.
type DeepFaceAnalyzer struct {
	endpoint        string
	detectorBackend string
	httpClient      *http.Client
	timeout         time.Duration
}

type deepFaceRequest struct {
	Img              string   `json:"img"`
	Actions          []string `json:"actions"`
	DetectorBackend  string   `json:"detector_backend,omitempty"`
	EnforceDetection bool     `json:"enforce_detection"`
}

// NewDeepFaceAnalyzer creates an analyzer for the given analyze endpoint.
func NewDeepFaceAnalyzer(cfg Analysis, httpClient *http.Client) *DeepFaceAnalyzer {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &DeepFaceAnalyzer{
		endpoint:        cfg.DeepFaceURL,
		detectorBackend: cfg.DetectorBackend,
		httpClient:      httpClient,
		timeout:         secondsOrDefault(cfg.TimeoutInSeconds, 60),
	}
}

// Analyze posts the image as a data URI and returns the decoded payload. When
// the service wraps its answer in a "results" key, the results are returned.
func (d *DeepFaceAnalyzer) Analyze(ctx context.Context, imagePath string) (any, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("could not read image file: %w", err)
	}
	mime := "image/jpeg"
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		mime = kind.MIME.Value
	}

	body, err := json.Marshal(&deepFaceRequest{
		Img:              "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data),
		Actions:          []string{"age", "gender", "emotion"},
		DetectorBackend:  d.detectorBackend,
		EnforceDetection: false,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepface request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("deepface response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("deepface returned status %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("deepface returned malformed JSON: %w", err)
	}
	if doc, ok := payload.(map[string]any); ok {
		if results, ok := doc["results"]; ok {
			return results, nil
		}
	}
	return payload, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
