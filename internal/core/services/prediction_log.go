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

package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/jaycherian/gcp-go-emotion-media/internal/core/model"
)

// PredictionLog is the append-only CSV sink. All writes from this process go
// through one mutex, and every row is a single append so concurrent
// requests never interleave partial rows.
type PredictionLog struct {
	path string
	mu   sync.Mutex
}

// NewPredictionLog creates the parent directory of path.
func NewPredictionLog(path string) (*PredictionLog, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create prediction log directory: %w", err)
		}
	}
	return &PredictionLog{path: path}, nil
}

// Path returns the log file location.
func (l *PredictionLog) Path() string {
	return l.path
}

// Append writes one row, preceded by the header when the file is absent or empty.
func (l *PredictionLog) Append(_ context.Context, record *model.PredictionRecord) error {
	row, err := record.Row()
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open prediction log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat prediction log: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if info.Size() == 0 {
		_ = w.Write(model.PredictionLogHeader)
	}
	_ = w.Write(row)
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to encode prediction row: %w", err)
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to append prediction row: %w", err)
	}
	return nil
}

// ReadPredictionLog parses every data row of the log at path.
func ReadPredictionLog(path string) ([]*model.PredictionRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(model.PredictionLogHeader)

	out := make([]*model.PredictionRecord, 0)
	first := true
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if first {
			first = false
			if row[0] == model.PredictionLogHeader[0] {
				continue
			}
		}
		rec, err := model.ParsePredictionRow(row)
		if err != nil {
			return nil, fmt.Errorf("prediction log line %d: %w", len(out)+2, err)
		}
		out = append(out, rec)
	}
}
