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

// Package test provides shared fixtures for the application's test suites:
// the test configuration, a DeepFace-shaped analysis payload, generated
// images and a controllable clock.
package test

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/jaycherian/gcp-go-emotion-media/internal/cloud"
)

// StateManager caches the test configuration so the TOML files are read once.
type StateManager struct {
	mu     sync.Mutex
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test when err is not nil.
func HandleErr(err error, t *testing.T) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ModuleRoot walks up from the working directory to the directory holding go.mod.
func ModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("go.mod not found above the working directory")
		}
		dir = parent
	}
}

// SetupOS points the configuration loader at `configs/.env.test.toml` of
// the module, whichever package directory the test runs in.
func SetupOS() (err error) {
	root, err := ModuleRoot()
	if err != nil {
		return err
	}
	if err = os.Setenv(cloud.EnvConfigFilePrefix, filepath.Join(root, "configs")); err != nil {
		return err
	}
	return os.Setenv(cloud.EnvConfigRuntime, "test")
}

// GetConfig returns a copy of the test configuration. Callers may modify
// the copy freely.
func GetConfig() *cloud.Config {
	state.mu.Lock()
	defer state.mu.Unlock()
	if state.config == nil {
		if err := SetupOS(); err != nil {
			panic(err)
		}
		config := cloud.NewConfig()
		if err := cloud.LoadConfig(config); err != nil {
			panic(err)
		}
		state.config = config
	}
	out := *state.config
	out.AgentModels = make(map[string]cloud.VertexAiLLMModel, len(state.config.AgentModels))
	for k, v := range state.config.AgentModels {
		out.AgentModels[k] = v
	}
	return &out
}

// DeepFacePayloadJSON is a response of DeepFace's analyze action for one face.
const DeepFacePayloadJSON = `[
  {
    "age": 31.4,
    "region": {"x": 12, "y": 20, "w": 140, "h": 140},
    "face_confidence": 0.93,
    "gender": {"Woman": 97.61, "Man": 2.39},
    "dominant_gender": "Woman",
    "emotion": {
      "angry": 0.12,
      "disgust": 0.0,
      "fear": 1.05,
      "happy": 88.4,
      "sad": 2.2,
      "surprise": 0.73,
      "neutral": 7.5
    },
    "dominant_emotion": "happy"
  }
]`

// DeepFacePayload decodes DeepFacePayloadJSON the way a JSON client would.
func DeepFacePayload(t *testing.T) any {
	t.Helper()
	var out any
	if err := json.Unmarshal([]byte(DeepFacePayloadJSON), &out); err != nil {
		t.Fatalf("invalid payload fixture: %v", err)
	}
	return out
}

// PNGImage encodes a solid width x height PNG.
func PNGImage(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 150, B: 100, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// Clock is a manually advanced clock.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts the clock at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
