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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudwego/vizcoder/lang/failure"
	"github.com/cloudwego/vizcoder/lang/intent"
	"github.com/cloudwego/vizcoder/llm"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, llm.ModelTypeOpenAI, cfg.Model.APIType)
	assert.Equal(t, 4096, cfg.Model.MaxTokens)
	assert.Equal(t, 120*time.Second, cfg.Model.Timeout)
	assert.Equal(t, 2, cfg.Retry.BuildMax)
	assert.Equal(t, 2, cfg.Retry.RuntimeMax)
	assert.True(t, cfg.Retry.RetryOnFallback)
	assert.Equal(t, 300*time.Millisecond, cfg.Sanitize.LoadingDelay)
	assert.Equal(t, int64(5<<20), cfg.Server.MaxUploadBytes)
	assert.Equal(t, 30*time.Minute, cfg.Server.SessionTTL)
	assert.Equal(t, "vizcoder", cfg.NATS.SubjectPrefix)
	assert.Empty(t, cfg.File)
}

func TestLoad_Layers(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeFile(t, "vizcoder.yaml", `
model:
  type: claude
  model_name: claude-3-5-haiku-latest
  temperature: 0.3
retry:
  build_max: 3
  runtime_max: 1
sanitize:
  loading_delay: 500ms
server:
  addr: ":9000"
`)

	t.Run("file", func(t *testing.T) {
		cfg, err := Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, path, cfg.File)
		assert.Equal(t, llm.ModelType("claude"), cfg.Model.APIType)
		assert.Equal(t, "claude-3-5-haiku-latest", cfg.Model.ModelName)
		require.NotNil(t, cfg.Model.Temperature)
		assert.InDelta(t, 0.3, *cfg.Model.Temperature, 1e-6)
		assert.Equal(t, 3, cfg.Retry.BuildMax)
		assert.Equal(t, 1, cfg.Retry.RuntimeMax)
		assert.Equal(t, 500*time.Millisecond, cfg.Sanitize.LoadingDelay)
		assert.Equal(t, ":9000", cfg.Server.Addr)
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("VIZCODER_RETRY__BUILD_MAX", "1")
		t.Setenv("VIZCODER_MODEL__API_KEY", "sk-test")
		cfg, err := Load(path, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, cfg.Retry.BuildMax)
		assert.Equal(t, "sk-test", cfg.Model.APIKey)
		assert.Equal(t, 1, cfg.Retry.RuntimeMax)
	})

	t.Run("flags over env", func(t *testing.T) {
		t.Setenv("VIZCODER_RETRY__BUILD_MAX", "1")
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		fs.Int("build-retries", 2, "")
		fs.String("addr", ":8080", "")
		fs.String("model", "openai", "")
		require.NoError(t, fs.Parse([]string{"--build-retries=0", "--model=ollama"}))

		cfg, err := Load(path, fs)
		require.NoError(t, err)
		assert.Equal(t, 0, cfg.Retry.BuildMax)
		assert.Equal(t, llm.ModelType("ollama"), cfg.Model.APIType)
		assert.Equal(t, ":9000", cfg.Server.Addr, "unchanged flags must not override the file")
	})
}

func TestLoad_Invalid(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeFile(t, "bad.yaml", "retry:\n  build_max: -1\n")
	_, err := Load(path, nil)
	require.Error(t, err)
	stage, _ := failure.StageOf(err)
	assert.Equal(t, failure.StageConfig, stage)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
}

func TestServiceOptions(t *testing.T) {
	t.Chdir(t.TempDir())
	rules := writeFile(t, "intents.yaml", "- intent: radar\n  phrases: [web]\n")
	cfg, err := Load("", nil)
	require.NoError(t, err)
	cfg.Intents.Rules = rules

	opts, err := cfg.ServiceOptions()
	require.NoError(t, err)
	assert.Equal(t, 2, opts.Build.MaxRetry)
	assert.True(t, opts.Build.Syntax)
	assert.True(t, opts.Build.RetryOnFallback)
	assert.Equal(t, intent.Radar, opts.Classifier.Classify("a web of skills"))
	assert.Equal(t, intent.Generic, opts.Classifier.Classify("a bar chart"))

	cfg.Intents.Rules = filepath.Join(t.TempDir(), "none.yaml")
	_, err = cfg.ServiceOptions()
	assert.Error(t, err)
}
