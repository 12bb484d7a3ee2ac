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
	"github.com/cloudwego/vizcoder/internal/pipeline"
	"github.com/cloudwego/vizcoder/lang/generate"
	"github.com/cloudwego/vizcoder/lang/sanitize"
	"github.com/cloudwego/vizcoder/llm"
)

// Options configures a build pipeline.
type Options struct {
	MaxRetry        int
	Syntax          bool
	RetryOnFallback bool
}

// NewController wires generate, sanitize and validate into a retry
// controller.
func NewController(gen llm.Generator, b *generate.PromptBuilder, s *sanitize.Sanitizer, opts Options) *pipeline.Controller {
	return &pipeline.Controller{
		Pipeline: &pipeline.Pipeline{
			Steps: []pipeline.Step{
				&GenerateStep{Generator: gen, Builder: b},
				&SanitizeStep{Sanitizer: s},
				&ValidateStep{Syntax: opts.Syntax, RetryOnFallback: opts.RetryOnFallback},
			},
			Agent: &pipeline.DefaultAgent{},
		},
		MaxRetry: opts.MaxRetry,
	}
}
