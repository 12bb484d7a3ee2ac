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

	"github.com/cloudwego/vizcoder/lang/dataset"
	"github.com/cloudwego/vizcoder/lang/failure"
	"github.com/cloudwego/vizcoder/lang/generate"
	"github.com/cloudwego/vizcoder/lang/intent"
	"github.com/cloudwego/vizcoder/llm/log"
	"github.com/google/uuid"
)

// Controller is the bounded retry loop around one generation cycle:
// generate, sanitize and validate, restarted with the failure as context
// until an attempt is accepted or the build budget is spent.
type Controller struct {
	Pipeline *Pipeline
	// MaxRetry bounds the retries after the first attempt.
	MaxRetry int
}

// Input is the per-turn context every attempt shares.
type Input struct {
	Intent  intent.Intent
	Summary dataset.Summary
}

// Run drives req to a result. It never fails: when the budget runs out the
// result carries the terminal component.
func (c *Controller) Run(ctx context.Context, req generate.Request, in Input) generate.Result {
	st := &PipelineState{
		RunID:   uuid.NewString(),
		Request: req,
		Intent:  in.Intent,
		Summary: in.Summary,
		Budget:  generate.NewBudget(c.MaxRetry),
	}
	log.Debug("run %s: start %q (attempt %d, budget %d)", st.RunID, req.UserQuery, req.Attempt, c.MaxRetry)

	err := c.Pipeline.Run(ctx, st)
	res := generate.Result{
		Intent:   in.Intent,
		Attempts: st.Request.Attempt - req.Attempt + 1,
		Errors:   st.Errors,
	}
	if err == nil {
		if comp, ok := st.CurrentComponent(); ok {
			res.Code = comp.Code
			res.Valid = true
			res.Fallback = comp.Report.Fallback
			log.Info("run %s: accepted after %d attempts (fallback=%v)", st.RunID, res.Attempts, res.Fallback)
			return res
		}
		err = failure.Validation(nil, "pipeline finished without a component")
	}

	last, ok := st.LastError()
	if !ok {
		last = failure.ContextOf(err, failure.StageGeneration)
		res.Errors = append(res.Errors, last)
	}
	log.Info("run %s: terminal after %d attempts: %v", st.RunID, res.Attempts, err)
	res.Code = generate.TerminalComponent(res.Attempts, last.Message)
	res.Terminal = true
	return res
}
