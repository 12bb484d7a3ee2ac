// Copyright 2025 ByteDance Inc.
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

package pipeline

import (
	"context"

	"github.com/cloudwego/vizcoder/lang/failure"
)

// Step is one unit of work in an attempt. Steps read the state and report
// their product as a snapshot; the pipeline applies it.
type Step interface {
	Name() string
	Run(ctx context.Context, st *PipelineState) (*StepResult, error)
}

// StepResult is what a step reports back to the pipeline.
type StepResult struct {
	Status      StepStatus
	Recoverable bool
	Snapshot    *Snapshot
	// Failure is the error context handed to the next attempt. When nil the
	// pipeline derives one from the returned error.
	Failure *failure.Context
}

// Failed returns a failed result carrying cause.
func Failed(recoverable bool, cause failure.Context) *StepResult {
	return &StepResult{Status: StepFailed, Recoverable: recoverable, Failure: &cause}
}

// OK returns a successful result with an optional snapshot.
func OK(snap *Snapshot) *StepResult {
	return &StepResult{Status: StepOK, Snapshot: snap}
}
