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

// Package model defines the core data structures for the application.
// This file, `transient.go`, contains struct definitions that only live for
// the duration of one analysis workflow. They carry data between the
// commands of the chain and are never written to the prediction log.
package model

// ImageUpload is a validated upload, produced by the image validation step.
type ImageUpload struct {
	FileName  string // The client supplied file name, if any.
	Data      []byte // The raw bytes of the upload.
	MIMEType  string // Sniffed MIME type, e.g. "image/jpeg".
	Extension string // Sniffed extension without the dot, e.g. "jpg".
	Width     int    // Decoded image width in pixels.
	Height    int    // Decoded image height in pixels.
}
