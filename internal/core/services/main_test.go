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

// Package services_test contains the test suite for the services package.
// This file holds the shared suite setup.
package services_test

import (
	"os"
	"testing"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const tName = "github.com/jaycherian/gcp-go-emotion-media/tests/services"

// logger sends test diagnostics through the OpenTelemetry log bridge, the same
// path component logs take when a log provider is installed.
var logger = otelslog.NewLogger(tName)

func TestMain(m *testing.M) {
	logger.Info("running services suite")
	os.Exit(m.Run())
}
