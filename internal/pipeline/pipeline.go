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
	"time"

	"github.com/cloudwego/vizcoder/lang/failure"
	"github.com/cloudwego/vizcoder/lang/generate"
	"github.com/cloudwego/vizcoder/llm/log"
	"github.com/pkg/errors"
)

// DefaultMaxRetry is the build budget when none is configured.
const DefaultMaxRetry = 2

// ErrExhausted is returned by Run when the build budget is spent.
var ErrExhausted = errors.New("build retry budget exhausted")

// Pipeline runs its steps as one attempt. When a step fails the Agent
// decides whether the whole attempt is retried with the failure as context.
type Pipeline struct {
	Steps []Step
	Agent Agent
}

// Run executes attempts until one passes every step, the Agent gives up, or
// ctx is done. Attempts are strictly sequential. State is mutated only via
// applySnapshot, rollback and the request advance between attempts.
func (p *Pipeline) Run(ctx context.Context, st *PipelineState) error {
	if p.Agent == nil {
		p.Agent = &DefaultAgent{}
	}
	if st.Budget == nil {
		st.Budget = generate.NewBudget(DefaultMaxRetry)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		saved := st.checkpoint()
		step, result, err := p.runAttempt(ctx, st)
		if step == nil {
			return nil
		}

		cause := failureOf(step, result, err)
		st.Errors = append(st.Errors, cause)

		decision := p.Agent.OnStepFailure(ctx, step, st, result, st.Request.Attempt)
		log.Info("run %s attempt %d: step %s failed (%s), decision=%s", st.RunID, st.Request.Attempt, step.Name(), cause, decision)
		switch decision {
		case DecisionRetry:
			rollback(st, saved)
			st.Request = st.Request.Next(cause)
		case DecisionRollback:
			rollback(st, saved)
			return errors.Wrapf(ErrExhausted, "after %d attempts, last failure in step %s", st.Request.Attempt+1, step.Name())
		default:
			if err != nil {
				return errors.Wrapf(err, "step %s", step.Name())
			}
			return errors.Errorf("step %s failed (abort)", step.Name())
		}
	}
}

// runAttempt runs every step once. It returns the failing step, or nil when
// all steps succeeded.
func (p *Pipeline) runAttempt(ctx context.Context, st *PipelineState) (Step, *StepResult, error) {
	for _, step := range p.Steps {
		log.Debug("run %s attempt %d: step %s", st.RunID, st.Request.Attempt, step.Name())
		result, err := step.Run(ctx, st)
		if err == nil && result != nil && result.Status == StepOK {
			rec := StepRecord{
				StepName: step.Name(),
				Attempt:  st.Request.Attempt,
				Status:   StepOK,
				Time:     time.Now(),
			}
			if result.Snapshot != nil {
				applySnapshot(st, result.Snapshot)
				rec.Snapshot = result.Snapshot.Hash
			}
			st.History = append(st.History, rec)
			continue
		}

		// Build result for Agent if step returned nil result
		if result == nil {
			result = &StepResult{Status: StepFailed, Recoverable: true}
		}
		if result.Status == StepOK {
			result = &StepResult{Status: StepFailed, Recoverable: false, Failure: result.Failure}
		}
		st.History = append(st.History, StepRecord{
			StepName: step.Name(),
			Attempt:  st.Request.Attempt,
			Status:   result.Status,
			Error:    errStr(err),
			Time:     time.Now(),
		})
		return step, result, err
	}
	return nil, nil, nil
}

func failureOf(step Step, result *StepResult, err error) failure.Context {
	if result != nil && result.Failure != nil {
		return *result.Failure
	}
	if err != nil {
		return failure.ContextOf(err, failure.StageValidation)
	}
	return failure.Context{Stage: failure.StageValidation, Message: "step " + step.Name() + " failed"}
}

// applySnapshot updates state from a step-produced snapshot by kind.
func applySnapshot(st *PipelineState, snap *Snapshot) {
	if st == nil || snap == nil {
		return
	}
	switch snap.Kind {
	case KindCompletion:
		st.Completion = snap
		// A new completion invalidates the component built from the old one.
		st.Component = nil
	case KindComponent:
		st.Component = snap
	}
}

// rollback restores the snapshots taken before an attempt.
func rollback(st *PipelineState, cp checkpoint) {
	if st == nil {
		return
	}
	st.Completion = cp.completion
	st.Component = cp.component
}

func errStr(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
