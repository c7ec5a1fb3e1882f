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
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/cor"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/model"
)

// ImagePathParam is the context key holding the stored upload's path, which
// later steps use as the prediction's file reference.
const ImagePathParam = "__image_path__"

// ImageToTempFile writes a validated upload to local disk so the analysis
// model can read it by path.
type ImageToTempFile struct {
	cor.BaseCommand
	dir    string // Target directory; the OS temp dir when empty.
	retain bool   // When false the file is removed once the workflow finishes.
}

// NewImageToTempFile creates the persistence step.
//
// Inputs:
//   - name: A string name for this command instance.
//   - dir: The directory uploads are written to.
//   - retain: Whether files outlive the workflow run.
func NewImageToTempFile(name string, dir string, retain bool) *ImageToTempFile {
	return &ImageToTempFile{BaseCommand: *cor.NewBaseCommand(name), dir: dir, retain: retain}
}

// Execute writes the bytes under a UUID-based name with the sniffed extension.
func (c *ImageToTempFile) Execute(context cor.Context) {
	upload := context.Get(c.GetInputParam()).(*model.ImageUpload)

	dir := c.dir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		c.Fail(context, fmt.Errorf("could not create upload directory: %w", err))
		return
	}

	name := uuid.NewString()
	if upload.Extension != "" {
		name += "." + upload.Extension
	}
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, upload.Data, 0o644); err != nil {
		c.Fail(context, fmt.Errorf("could not write upload: %w", err))
		return
	}
	if !c.retain {
		context.AddTempFile(path)
	}

	slog.DebugContext(context.GetContext(), "stored upload", "file", upload.FileName, "path", path, "bytes", len(upload.Data))
	c.Succeed(context.GetContext())
	context.Add(ImagePathParam, path)
	context.Add(c.GetOutputParam(), path)
}
