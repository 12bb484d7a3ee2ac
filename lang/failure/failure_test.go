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

package failure

import (
	"fmt"
	"io"
	"testing"
)

func TestStageOf(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", Ingest(io.ErrUnexpectedEOF, "could not fetch %s", "a.csv"))
	stage, ok := StageOf(err)
	if !ok || stage != StageIngest {
		t.Fatalf("StageOf: got %q %v", stage, ok)
	}
	if !IsFatal(err) {
		t.Error("ingest errors must be fatal")
	}
	if IsFatal(Generation(nil, "quota")) {
		t.Error("generation errors must not be fatal")
	}
	if _, ok := StageOf(io.EOF); ok {
		t.Error("untagged error must have no stage")
	}
}

func TestContext(t *testing.T) {
	ctx := Generation(io.ErrUnexpectedEOF, "completion failed").Context()
	if ctx.Stage != StageGeneration {
		t.Fatalf("stage: got %s", ctx.Stage)
	}
	if ctx.Message != "completion failed: unexpected EOF" {
		t.Errorf("message: got %q", ctx.Message)
	}

	plain := ContextOf(io.EOF, StageValidation)
	if plain.Stage != StageValidation || plain.Message != "EOF" {
		t.Errorf("ContextOf: got %+v", plain)
	}
	if StageRuntime.BuildTime() || !StageValidation.BuildTime() {
		t.Error("BuildTime classification is wrong")
	}
}
