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

package llm

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/cloudwego/vizcoder/lang/failure"
	"github.com/cloudwego/vizcoder/llm/log"
)

var _ Generator = (*ChatGenerator)(nil)

// ChatGenerator sends one instruction as a single user message and returns
// the completion text. Every Call is independent: no history is kept and
// nothing is retried here.
type ChatGenerator struct {
	name     string
	runnable compose.Runnable[[]*schema.Message, *schema.Message]
	opts     []model.Option
	timeout  time.Duration
}

// NewGenerator resolves m, builds its chat model and wraps it.
func NewGenerator(ctx context.Context, m ModelConfig) (*ChatGenerator, error) {
	m, err := m.Resolve()
	if err != nil {
		return nil, err
	}
	cm, err := NewChatModel(ctx, m)
	if err != nil {
		return nil, err
	}
	return NewChatGenerator(ctx, cm, m)
}

// NewChatGenerator wraps an existing chat model, e.g. a stub in tests.
func NewChatGenerator(ctx context.Context, cm model.BaseChatModel, m ModelConfig) (*ChatGenerator, error) {
	chain := compose.NewChain[[]*schema.Message, *schema.Message]()
	chain.AppendChatModel(cm)
	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, failure.Config(err, "compile generation chain")
	}

	opts := []model.Option{}
	if m.Temperature != nil {
		opts = append(opts, model.WithTemperature(*m.Temperature))
	}
	if m.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(m.MaxTokens))
	}
	if m.ModelName != "" {
		opts = append(opts, model.WithModel(m.ModelName))
	}
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &ChatGenerator{
		name:     m.Name,
		runnable: runnable,
		opts:     opts,
		timeout:  timeout,
	}, nil
}

// Name is the configured alias of the underlying model.
func (g *ChatGenerator) Name() string { return g.name }

// Call implements Generator. Transport, auth and quota failures come back
// as generation-stage failures.
func (g *ChatGenerator) Call(ctx context.Context, input string) (string, error) {
	log.Debug("[User] %s", input)
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.runnable.Invoke(ctx, []*schema.Message{schema.UserMessage(input)},
		compose.WithCallbacks(CallbackHandler{}),
		compose.WithChatModelOption(g.opts...),
	)
	if err != nil {
		return "", failure.Generation(err, "completion request failed")
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", failure.Generation(nil, "completion returned no content")
	}
	log.Debug("[Assistant] %s", out.Content)
	return out.Content, nil
}
