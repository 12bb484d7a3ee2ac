/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package log

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPrintfSurface(t *testing.T) {
	core, logs := observer.New(DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	Debug("attempt %d", 1)
	Info("retrying %s", "generate")
	Error("failed: %v", "boom")

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[1].Message != "retrying generate" {
		t.Errorf("message: got %q", entries[1].Message)
	}
	if entries[2].Level != ErrorLevel {
		t.Errorf("level: got %s", entries[2].Level)
	}
}

func TestWith(t *testing.T) {
	core, logs := observer.New(InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	With(zap.String("turn", "t-1")).Info("regenerated")
	if logs.FilterField(zap.String("turn", "t-1")).Len() != 1 {
		t.Fatal("expected structured field on entry")
	}
}
