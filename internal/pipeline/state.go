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
	"time"

	"github.com/cloudwego/vizcoder/lang/dataset"
	"github.com/cloudwego/vizcoder/lang/failure"
	"github.com/cloudwego/vizcoder/lang/generate"
	"github.com/cloudwego/vizcoder/lang/intent"
	"github.com/cloudwego/vizcoder/lang/sanitize"
)

// Snapshot kinds.
const (
	KindCompletion = "completion"
	KindComponent  = "component"
)

// PipelineState is the Agent's single source of truth for one controller
// run. Intermediate results are carried as snapshots; a retry restores the
// snapshots taken before the failed attempt.
type PipelineState struct {
	RunID string

	// Request is the current attempt; it advances with every retry.
	Request generate.Request
	Intent  intent.Intent
	Summary dataset.Summary
	// Budget is the build-time retry budget of this run.
	Budget *generate.Budget

	Completion *Snapshot // raw model output, payload string
	Component  *Snapshot // sanitized module, payload *Component

	// Errors holds every failure of this run, oldest first.
	Errors  []failure.Context
	History []StepRecord
}

// Component is the payload of a component snapshot.
type Component struct {
	Code   string
	Report sanitize.Report
}

// CompletionText returns the raw completion of the current attempt.
func (st *PipelineState) CompletionText() (string, bool) {
	if st.Completion == nil {
		return "", false
	}
	s, ok := st.Completion.Payload.(string)
	return s, ok
}

// CurrentComponent returns the sanitized module of the current attempt.
func (st *PipelineState) CurrentComponent() (*Component, bool) {
	if st.Component == nil {
		return nil, false
	}
	c, ok := st.Component.Payload.(*Component)
	return c, ok
}

// LastError returns the most recent failure of this run.
func (st *PipelineState) LastError() (failure.Context, bool) {
	if len(st.Errors) == 0 {
		return failure.Context{}, false
	}
	return st.Errors[len(st.Errors)-1], true
}

type checkpoint struct {
	completion *Snapshot
	component  *Snapshot
}

func (st *PipelineState) checkpoint() checkpoint {
	return checkpoint{completion: st.Completion, component: st.Component}
}

// StepRecord is an immutable log entry for one step execution.
type StepRecord struct {
	StepName string
	Attempt  int
	Status   StepStatus
	Error    string
	Snapshot string // hash of the produced snapshot, if any
	Time     time.Time
}

// StepStatus is the outcome of a step run.
type StepStatus string

const (
	StepOK     StepStatus = "ok"
	StepFailed StepStatus = "failed"
	StepRetry  StepStatus = "retry"
)
