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

// Package commands provides the concrete steps of the emotion analysis chain.
// This file defines the first step, which rejects anything that is not a
// decodable image before it reaches disk or the analysis model.
//
// Logic Flow:
//  1. Receives a `*model.ImageUpload` holding the raw request bytes.
//  2. Sniffs the content type from the magic bytes; the client-supplied file
//     name and content type are never trusted.
//  3. Decodes the image header to prove the bytes are a real image and to
//     record its dimensions.
//  4. Passes the enriched upload to the next command.
package commands

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/h2non/filetype"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/cor"
	"github.com/jaycherian/gcp-go-emotion-media/internal/core/model"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// ImageValidator is a command that verifies an upload is a decodable image.
type ImageValidator struct {
	cor.BaseCommand
	maxBytes int64 // Uploads larger than this are rejected; zero disables the check.
}

// NewImageValidator creates the validation step.
//
// Inputs:
//   - name: A string name for this command instance.
//   - maxBytes: The largest accepted upload in bytes, or zero for no limit.
func NewImageValidator(name string, maxBytes int64) *ImageValidator {
	return &ImageValidator{BaseCommand: *cor.NewBaseCommand(name), maxBytes: maxBytes}
}

// Execute validates the upload and records an `model.ErrInvalidImage` on failure.
func (v *ImageValidator) Execute(context cor.Context) {
	upload, ok := context.Get(v.GetInputParam()).(*model.ImageUpload)
	if !ok {
		v.Fail(context, fmt.Errorf("%w: no upload in context", model.ErrInvalidImage))
		return
	}

	if len(upload.Data) == 0 {
		v.Fail(context, fmt.Errorf("%w: empty upload", model.ErrInvalidImage))
		return
	}
	if v.maxBytes > 0 && int64(len(upload.Data)) > v.maxBytes {
		v.Fail(context, fmt.Errorf("%w: upload of %d bytes exceeds the %d byte limit", model.ErrInvalidImage, len(upload.Data), v.maxBytes))
		return
	}

	kind, err := filetype.Match(upload.Data)
	if err != nil || !filetype.IsImage(upload.Data) {
		v.Fail(context, fmt.Errorf("%w: content is not an image", model.ErrInvalidImage))
		return
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(upload.Data))
	if err != nil {
		v.Fail(context, fmt.Errorf("%w: could not decode %s image: %v", model.ErrInvalidImage, kind.Extension, err))
		return
	}

	upload.MIMEType = kind.MIME.Value
	upload.Extension = kind.Extension
	if upload.Extension == "" {
		upload.Extension = format
	}
	upload.Width = cfg.Width
	upload.Height = cfg.Height

	v.Succeed(context.GetContext())
	context.Add(v.GetOutputParam(), upload)
}
