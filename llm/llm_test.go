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
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/cloudwego/vizcoder/lang/failure"
)

type stubChatModel struct {
	reply string
	err   error
	got   []*schema.Message
	opts  *model.Options
}

func (s *stubChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	s.got = input
	s.opts = model.GetCommonOptions(&model.Options{}, opts...)
	if s.err != nil {
		return nil, s.err
	}
	return schema.AssistantMessage(s.reply, nil), nil
}

func (s *stubChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

func TestChatGenerator_Call(t *testing.T) {
	ctx := context.Background()
	temp := float32(0)
	stub := &stubChatModel{reply: "export default function App() { return null }"}
	g, err := NewChatGenerator(ctx, stub, ModelConfig{Name: "stub", ModelName: "m-1", Temperature: &temp, MaxTokens: 512})
	if err != nil {
		t.Fatalf("NewChatGenerator: %v", err)
	}
	out, err := g.Call(ctx, "make a chart")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out != stub.reply {
		t.Errorf("out: got %q", out)
	}
	if len(stub.got) != 1 || stub.got[0].Role != schema.User || stub.got[0].Content != "make a chart" {
		t.Errorf("expected a single user message, got %+v", stub.got)
	}
	if stub.opts.Temperature == nil || *stub.opts.Temperature != 0 {
		t.Error("temperature not forwarded")
	}
	if stub.opts.MaxTokens == nil || *stub.opts.MaxTokens != 512 {
		t.Error("max tokens not forwarded")
	}
	if stub.opts.Model == nil || *stub.opts.Model != "m-1" {
		t.Error("model name not forwarded")
	}
	if g.Name() != "stub" {
		t.Errorf("name: got %s", g.Name())
	}
}

func TestChatGenerator_Failures(t *testing.T) {
	ctx := context.Background()
	for name, stub := range map[string]*stubChatModel{
		"transport": {err: errors.New("429 quota exceeded")},
		"empty":     {reply: "   "},
	} {
		t.Run(name, func(t *testing.T) {
			g, err := NewChatGenerator(ctx, stub, ModelConfig{Timeout: time.Second})
			if err != nil {
				t.Fatal(err)
			}
			_, err = g.Call(ctx, "x")
			stage, ok := failure.StageOf(err)
			if !ok || stage != failure.StageGeneration {
				t.Fatalf("expected generation failure, got %v", err)
			}
		})
	}
}

func TestModelConfig_Resolve(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-env")

	_, err := ModelConfig{APIType: "openai"}.Resolve()
	if stage, _ := failure.StageOf(err); stage != failure.StageConfig {
		t.Fatalf("missing credential: got %v", err)
	}
	if !strings.Contains(err.Error(), "OPENAI_API_KEY") {
		t.Errorf("error should name the variable: %v", err)
	}

	m, err := ModelConfig{APIType: "anthropic"}.Resolve()
	if err != nil {
		t.Fatalf("env credential: %v", err)
	}
	if m.APIType != ModelTypeClaude || m.APIKey != "sk-env" || m.ModelName == "" || m.MaxTokens != 4096 {
		t.Errorf("resolved: %+v", m)
	}

	if _, err := (ModelConfig{APIType: "ollama"}).Resolve(); err != nil {
		t.Errorf("ollama needs no credential: %v", err)
	}
	if _, err := (ModelConfig{APIType: "ark", APIKey: "k"}).Resolve(); err == nil {
		t.Error("ark requires an endpoint model name")
	}
	if _, err := (ModelConfig{APIType: "gemini"}).Resolve(); !failure.IsFatal(err) {
		t.Errorf("unknown type must be a config failure: %v", err)
	}
}

func TestNewGenerator_MissingCredential(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")
	if _, err := NewGenerator(context.Background(), ModelConfig{APIType: "deepseek"}); !failure.IsFatal(err) {
		t.Fatalf("expected config failure, got %v", err)
	}
}

func TestGeneratorFunc(t *testing.T) {
	var g Generator = GeneratorFunc(func(ctx context.Context, input string) (string, error) {
		return strings.ToUpper(input), nil
	})
	out, _ := g.Call(context.Background(), "ok")
	if out != "OK" {
		t.Errorf("got %q", out)
	}
}
