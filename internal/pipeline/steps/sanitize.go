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
	"github.com/cloudwego/vizcoder/lang/sanitize"
)

// SanitizeStep rewrites the raw completion into a component module. The
// sanitizer never fails, so neither does this step once a completion exists.
type SanitizeStep struct {
	Sanitizer *sanitize.Sanitizer
}

// Name implements pipeline.Step.
func (s *SanitizeStep) Name() string { return "sanitize" }

// Run implements pipeline.Step.
func (s *SanitizeStep) Run(ctx context.Context, st *pipeline.PipelineState) (*pipeline.StepResult, error) {
	raw, ok := st.CompletionText()
	if !ok {
		return &pipeline.StepResult{Status: pipeline.StepFailed}, errors.New("no completion to sanitize")
	}
	code, rep := s.Sanitizer.Sanitize(ctx, raw, st.Summary.Headers)
	return pipeline.OK(pipeline.ComponentSnapshot(&pipeline.Component{Code: code, Report: rep})), nil
}
