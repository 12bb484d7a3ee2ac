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
)

// Agent decides what to do on step failure: retry, rollback, or abort.
// The Agent only schedules; it never edits code.
type Agent interface {
	OnStepFailure(
		ctx context.Context,
		step Step,
		st *PipelineState,
		result *StepResult,
		attempt int,
	) AgentDecision
}

// AgentDecision is the action to take after a step failure.
type AgentDecision string

const (
	// DecisionRetry starts a new attempt from the first step.
	DecisionRetry AgentDecision = "retry"
	// DecisionRollback restores the last checkpoint and ends the run.
	DecisionRollback AgentDecision = "rollback"
	// DecisionAbort ends the run immediately.
	DecisionAbort AgentDecision = "abort"
)

// DefaultAgent implements a minimal policy: abort if not recoverable,
// rollback once the build budget is spent, else retry.
type DefaultAgent struct{}

// OnStepFailure implements Agent. It consumes one unit of st.Budget per retry.
func (a *DefaultAgent) OnStepFailure(
	ctx context.Context,
	step Step,
	st *PipelineState,
	result *StepResult,
	attempt int,
) AgentDecision {
	if result != nil && !result.Recoverable {
		return DecisionAbort
	}
	if st == nil || st.Budget == nil || !st.Budget.Take() {
		return DecisionRollback
	}
	return DecisionRetry
}
