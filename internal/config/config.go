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

// Package config loads vizcoder settings from defaults, a YAML file, the
// environment and command-line flags, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/cloudwego/vizcoder/internal/pipeline"
	"github.com/cloudwego/vizcoder/internal/pipeline/steps"
	"github.com/cloudwego/vizcoder/internal/service"
	"github.com/cloudwego/vizcoder/lang/dataset"
	"github.com/cloudwego/vizcoder/lang/failure"
	"github.com/cloudwego/vizcoder/lang/feedback"
	"github.com/cloudwego/vizcoder/lang/intent"
	"github.com/cloudwego/vizcoder/lang/sanitize"
	"github.com/cloudwego/vizcoder/llm"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates nested keys: VIZCODER_MODEL__API_KEY sets model.api_key.
const EnvPrefix = "VIZCODER_"

// DefaultFiles are searched in the working directory when no file is given.
var DefaultFiles = []string{"vizcoder.yaml", "vizcoder.yml"}

// Config is the full process configuration.
type Config struct {
	Model    llm.ModelConfig `koanf:"model"`
	Retry    RetryConfig     `koanf:"retry"`
	Dataset  DatasetConfig   `koanf:"dataset"`
	Sanitize SanitizeConfig  `koanf:"sanitize"`
	Prompts  PromptsConfig   `koanf:"prompts"`
	Intents  IntentsConfig   `koanf:"intents"`
	Server   ServerConfig    `koanf:"server"`
	NATS     NATSConfig      `koanf:"nats"`
	Verbose  bool            `koanf:"verbose"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// RetryConfig holds the two independent retry budgets.
type RetryConfig struct {
	BuildMax        int  `koanf:"build_max"`
	RuntimeMax      int  `koanf:"runtime_max"`
	RetryOnFallback bool `koanf:"retry_on_fallback"`
}

type DatasetConfig struct {
	Timeout    time.Duration `koanf:"timeout"`
	MaxBytes   int64         `koanf:"max_bytes"`
	SampleRows int           `koanf:"sample_rows"`
}

type SanitizeConfig struct {
	LoadingDelay time.Duration `koanf:"loading_delay"`
	SyntaxCheck  bool          `koanf:"syntax_check"`
}

type PromptsConfig struct {
	// Dir holds *.md templates overriding the builtin ones.
	Dir   string `koanf:"dir"`
	Watch bool   `koanf:"watch"`
}

type IntentsConfig struct {
	// Rules is a YAML file replacing the default intent rules.
	Rules string `koanf:"rules"`
}

type ServerConfig struct {
	Addr           string        `koanf:"addr"`
	SessionTTL     time.Duration `koanf:"session_ttl"`
	MaxUploadBytes int64         `koanf:"max_upload_bytes"`
	UploadDir      string        `koanf:"upload_dir"`
}

type NATSConfig struct {
	URL           string `koanf:"url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

func defaults() map[string]any {
	return map[string]any{
		"model.type":              "openai",
		"model.max_tokens":        4096,
		"model.timeout":           "120s",
		"retry.build_max":         pipeline.DefaultMaxRetry,
		"retry.runtime_max":       feedback.DefaultMaxRetry,
		"retry.retry_on_fallback": true,
		"dataset.timeout":         dataset.DefaultTimeout.String(),
		"dataset.max_bytes":       dataset.DefaultMaxBytes,
		"dataset.sample_rows":     service.DefaultSampleRows,
		"sanitize.loading_delay":  sanitize.DefaultLoadingDelay.String(),
		"sanitize.syntax_check":   true,
		"server.addr":             ":8080",
		"server.session_ttl":      "30m",
		"server.max_upload_bytes": 5 << 20,
		"server.upload_dir":       "uploads",
		"nats.url":                "nats://127.0.0.1:4222",
		"nats.subject_prefix":     feedback.DefaultSubjectPrefix,
		"verbose":                 false,
	}
}

// flagKeys maps flag names to config keys where they differ.
var flagKeys = map[string]string{
	"model":           "model.type",
	"model-name":      "model.model_name",
	"base-url":        "model.base_url",
	"api-key":         "model.api_key",
	"temperature":     "model.temperature",
	"max-tokens":      "model.max_tokens",
	"build-retries":   "retry.build_max",
	"runtime-retries": "retry.runtime_max",
	"syntax-check":    "sanitize.syntax_check",
	"loading-delay":   "sanitize.loading_delay",
	"prompts":         "prompts.dir",
	"watch-prompts":   "prompts.watch",
	"intents":         "intents.rules",
	"addr":            "server.addr",
	"upload-dir":      "server.upload_dir",
	"nats-url":        "nats.url",
	"nats-prefix":     "nats.subject_prefix",
}

// Load reads the configuration. cfgFile may be empty, in which case the
// DefaultFiles are tried. Only flags the user changed override other layers.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	path := findConfigFile(cfgFile)
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, failure.Config(err, "error reading config file %s", path)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, failure.Config(err, "unable to decode config")
	}
	cfg.File = path
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range DefaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Validate reports settings no component can work with. The model
// credential is checked later, when a generator is built.
func (c *Config) Validate() error {
	switch {
	case c.Retry.BuildMax < 0:
		return failure.Config(nil, "retry.build_max must not be negative")
	case c.Retry.RuntimeMax < 0:
		return failure.Config(nil, "retry.runtime_max must not be negative")
	case c.Dataset.SampleRows < 0:
		return failure.Config(nil, "dataset.sample_rows must not be negative")
	case c.Sanitize.LoadingDelay < 0:
		return failure.Config(nil, "sanitize.loading_delay must not be negative")
	}
	return nil
}

// Classifier returns the intent classifier, reading the rules file if one
// is configured.
func (c *Config) Classifier() (*intent.Classifier, error) {
	if c.Intents.Rules == "" {
		return intent.Default(), nil
	}
	f, err := os.Open(c.Intents.Rules)
	if err != nil {
		return nil, failure.Config(err, "open intent rules")
	}
	defer f.Close()
	rules, err := intent.LoadRules(f)
	if err != nil {
		return nil, failure.Config(err, "load intent rules %s", c.Intents.Rules)
	}
	cl, err := intent.NewClassifier(rules)
	if err != nil {
		return nil, failure.Config(err, "compile intent rules %s", c.Intents.Rules)
	}
	return cl, nil
}

// ServiceOptions maps the configuration onto the generation service.
func (c *Config) ServiceOptions() (service.Options, error) {
	cl, err := c.Classifier()
	if err != nil {
		return service.Options{}, err
	}
	return service.Options{
		Ingest:     dataset.Options{Timeout: c.Dataset.Timeout, MaxBytes: c.Dataset.MaxBytes},
		SampleRows: c.Dataset.SampleRows,
		Sanitize:   sanitize.Options{LoadingDelay: c.Sanitize.LoadingDelay},
		Build: steps.Options{
			MaxRetry:        c.Retry.BuildMax,
			Syntax:          c.Sanitize.SyntaxCheck,
			RetryOnFallback: c.Retry.RetryOnFallback,
		},
		Classifier: cl,
	}, nil
}
