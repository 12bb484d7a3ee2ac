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

// Package cli is the vizcoder command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/cloudwego/vizcoder/internal/config"
	"github.com/cloudwego/vizcoder/internal/service"
	"github.com/cloudwego/vizcoder/llm"
	"github.com/cloudwego/vizcoder/llm/log"
	"github.com/cloudwego/vizcoder/llm/prompt"
	"github.com/cloudwego/vizcoder/version"
)

type configKey struct{}

// NewRootCmd creates the root command and its subcommands.
func NewRootCmd() *cobra.Command {
	var cfgFile string
	rootCmd := &cobra.Command{
		Use:   "vizcoder",
		Short: "Generate React visualization components from CSV data",
		Long: `vizcoder turns a CSV dataset and a natural-language request into a
self-contained React component, using a language model and a bounded
validate-and-retry loop.`,
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			if cfg.Verbose {
				log.SetLogLevel(log.DebugLevel)
				if cfg.File != "" {
					fmt.Fprintf(os.Stderr, "Using config file: %s\n", cfg.File)
				}
			}
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./vizcoder.yaml)")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.String("model", "", "Model provider: openai, ark, claude, ollama, qwen")
	pf.String("model-name", "", "Model name")
	pf.String("base-url", "", "Model endpoint base URL")
	pf.String("api-key", "", "Model API key")
	pf.Float32("temperature", 0, "Sampling temperature")
	pf.Int("max-tokens", 0, "Maximum completion tokens")
	pf.Int("build-retries", 0, "Retries after the first build attempt")
	pf.Int("runtime-retries", 0, "Regenerations allowed per turn for runtime errors")
	pf.Bool("syntax-check", true, "Reject components that do not parse")
	pf.Duration("loading-delay", 0, "Loading state duration of generated components")
	pf.String("prompts", "", "Directory of prompt template overrides")
	pf.String("intents", "", "YAML file of intent rules")

	_ = rootCmd.RegisterFlagCompletionFunc("model", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"openai", "ark", "claude", "ollama", "qwen"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(
		NewVersionCommand(),
		NewServeCommand(),
		NewGenerateCommand(),
		NewInspectCommand(),
		NewClassifyCommand(),
		NewSanitizeCommand(),
		NewMCPCommand(),
		NewListenCommand(),
	)
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// GetConfig returns the configuration loaded for cmd.
func GetConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	cfg, err := config.Load("", nil)
	if err != nil {
		log.Error("failed to load config: %v", err)
		return &config.Config{}
	}
	return cfg
}

// errNoModel is returned by the offline generator.
var errNoModel = errors.New("no model configured for this command")

// serviceNeeds selects what newService wires beyond the defaults.
type serviceNeeds struct {
	// Model wires the configured LLM; without it the generator is offline.
	Model bool
	// LocalFiles lets dataset URLs use file://. Only commands whose URLs
	// come from the local user set it.
	LocalFiles bool
}

// newService wires the generation service.
func newService(ctx context.Context, cfg *config.Config, needs serviceNeeds) (*service.Service, *prompt.Library, error) {
	lib, err := prompt.NewLibrary(cfg.Prompts.Dir)
	if err != nil {
		return nil, nil, err
	}
	opts, err := cfg.ServiceOptions()
	if err != nil {
		return nil, nil, err
	}
	opts.Ingest.AllowFile = needs.LocalFiles
	var gen llm.Generator = llm.GeneratorFunc(func(context.Context, string) (string, error) {
		return "", errNoModel
	})
	if needs.Model {
		g, err := llm.NewGenerator(ctx, cfg.Model)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to create model")
		}
		log.Debug("using model %s", g.Name())
		gen = g
	}
	return service.New(gen, lib, opts), lib, nil
}
