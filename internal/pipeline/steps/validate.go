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

package steps

import (
	"context"

	"github.com/pkg/errors"

	"github.com/cloudwego/vizcoder/internal/pipeline"
	"github.com/cloudwego/vizcoder/lang/component"
	"github.com/cloudwego/vizcoder/lang/failure"
)

// ValidateStep checks the sanitized module against the structural contract.
type ValidateStep struct {
	// Syntax enables the full TSX transform check.
	Syntax bool
	// RetryOnFallback rejects the dataset fallback while retries remain.
	RetryOnFallback bool
}

// Name implements pipeline.Step.
func (s *ValidateStep) Name() string { return "validate" }

// Run implements pipeline.Step.
func (s *ValidateStep) Run(ctx context.Context, st *pipeline.PipelineState) (*pipeline.StepResult, error) {
	comp, ok := st.CurrentComponent()
	if !ok {
		return &pipeline.StepResult{Status: pipeline.StepFailed}, errors.New("no component to validate")
	}

	res := component.Validate(ctx, comp.Code, component.ValidateOptions{Syntax: s.Syntax})
	if !res.Ok {
		recoverable := res.Severity != component.SeverityFatal
		return pipeline.Failed(recoverable, failure.Validation(nil, "%s", res.Message()).Context()), nil
	}

	if comp.Report.Fallback && s.RetryOnFallback && st.Budget != nil && !st.Budget.Exhausted() {
		return pipeline.Failed(true, failure.Validation(nil,
			"the completion did not contain a recognizable default-exported component (%s)", comp.Report.Reason).Context()), nil
	}
	return pipeline.OK(nil), nil
}
