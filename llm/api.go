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
	"os"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"

	"github.com/cloudwego/vizcoder/lang/failure"
)

type ModelConfig struct {
	Name        string    `json:"name" koanf:"name"` // alias of the config, not endpoint!
	APIType     ModelType `json:"type" koanf:"type"`
	BaseURL     string    `json:"base_url" koanf:"base_url"`
	APIKey      string    `json:"api_key" koanf:"api_key"`
	ModelName   string    `json:"model_name" koanf:"model_name"` // the endpoint of the model, like `gpt-4o-mini`
	Temperature *float32  `json:"temperature" koanf:"temperature"`
	// MaxTokens is the hard cap on generated length, default: 4096
	MaxTokens int           `json:"max_tokens" koanf:"max_tokens"`
	Timeout   time.Duration `json:"timeout" koanf:"timeout"` // HTTP request timeout, default: 120s
}

type ModelType string

func NewModelType(t string) ModelType {
	switch strings.ToLower(t) {
	case "ollama":
		return ModelTypeOllama
	case "ark", "doubao":
		return ModelTypeARK
	case "openai", "gpt":
		return ModelTypeOpenAI
	case "claude", "anthropic":
		return ModelTypeClaude
	case "dashscope", "qwen", "tongyi":
		return ModelTypeDashScope
	case "deepseek":
		return ModelTypeDeepSeek
	}
	return ModelTypeUnknown
}

const (
	ModelTypeUnknown   ModelType = ""
	ModelTypeOllama    ModelType = "ollama"
	ModelTypeARK       ModelType = "ark"
	ModelTypeOpenAI    ModelType = "openai"
	ModelTypeClaude    ModelType = "claude"
	ModelTypeDashScope ModelType = "dashscope"
	ModelTypeDeepSeek  ModelType = "deepseek"
)

// credentialEnv is consulted when ModelConfig.APIKey is empty.
var credentialEnv = map[ModelType]string{
	ModelTypeOpenAI:    "OPENAI_API_KEY",
	ModelTypeClaude:    "ANTHROPIC_API_KEY",
	ModelTypeARK:       "ARK_API_KEY",
	ModelTypeDashScope: "DASHSCOPE_API_KEY",
	ModelTypeDeepSeek:  "DEEPSEEK_API_KEY",
}

var defaultModelNames = map[ModelType]string{
	ModelTypeOpenAI:    "gpt-4o-mini",
	ModelTypeClaude:    "claude-3-5-sonnet-latest",
	ModelTypeDashScope: "qwen-plus",
	ModelTypeDeepSeek:  "deepseek-chat",
	ModelTypeOllama:    "llama3.1",
}

// Resolve fills defaults and the credential, and reports a config-stage
// failure when the model cannot be called. It never touches the network.
func (m ModelConfig) Resolve() (ModelConfig, error) {
	t := NewModelType(string(m.APIType))
	if t == ModelTypeUnknown {
		return m, failure.Config(nil, "unsupported model type %q", m.APIType)
	}
	m.APIType = t
	if m.APIKey == "" {
		if env, ok := credentialEnv[m.APIType]; ok {
			m.APIKey = os.Getenv(env)
			if m.APIKey == "" {
				return m, failure.Config(nil, "missing API credential for %s: set model.api_key or %s", m.APIType, env)
			}
		}
	}
	if m.ModelName == "" {
		m.ModelName = defaultModelNames[m.APIType]
		if m.ModelName == "" {
			return m, failure.Config(nil, "model_name is required for %s", m.APIType)
		}
	}
	if m.MaxTokens <= 0 {
		m.MaxTokens = 4096
	}
	if m.Timeout <= 0 {
		m.Timeout = 120 * time.Second
	}
	if m.Name == "" {
		m.Name = string(m.APIType) + "/" + m.ModelName
	}
	return m, nil
}

// Generator is the interface for calling
type Generator interface {
	// Call calls the LLM with the input.
	Call(ctx context.Context, input string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, input string) (string, error)

func (f GeneratorFunc) Call(ctx context.Context, input string) (string, error) {
	return f(ctx, input)
}

// ChatModel is the interface for making LLM backend.
type ChatModel interface {
	model.ToolCallingChatModel
}
