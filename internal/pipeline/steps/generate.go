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

	"github.com/cloudwego/vizcoder/internal/pipeline"
	"github.com/cloudwego/vizcoder/lang/failure"
	"github.com/cloudwego/vizcoder/lang/generate"
	"github.com/cloudwego/vizcoder/llm"
	"github.com/cloudwego/vizcoder/llm/log"
)

// GenerateStep builds the instruction for the current request and calls the
// model once. Completion failures are recoverable so the Agent can retry;
// prompt failures are not.
type GenerateStep struct {
	Generator llm.Generator
	Builder   *generate.PromptBuilder
}

// Name implements pipeline.Step.
func (s *GenerateStep) Name() string { return "generate" }

// Run implements pipeline.Step.
func (s *GenerateStep) Run(ctx context.Context, st *pipeline.PipelineState) (*pipeline.StepResult, error) {
	req := st.Request
	instruction, err := s.Builder.Build(generate.Input{
		Summary:       st.Summary,
		Intent:        st.Intent,
		UserQuery:     req.UserQuery,
		PreviousError: req.PreviousError,
		Attempt:       req.Attempt,
	})
	if err != nil {
		return pipeline.Failed(false, failure.Config(err, "build prompt").Context()), err
	}

	text, err := s.Generator.Call(ctx, instruction)
	if err != nil {
		if ctx.Err() != nil {
			return pipeline.Failed(false, failure.ContextOf(ctx.Err(), failure.StageGeneration)), ctx.Err()
		}
		cause := failure.ContextOf(err, failure.StageGeneration)
		log.Debug("generate: attempt %d failed: %s", req.Attempt, cause.Message)
		return pipeline.Failed(true, cause), nil
	}
	return pipeline.OK(pipeline.CompletionSnapshot(text)), nil
}
