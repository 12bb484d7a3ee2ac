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

package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cloudwego/vizcoder/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the generation API: one-shot generation, stateless regeneration,
chat, CSV upload and feedback sessions that regenerate on runtime errors.`,
		Example: `  # Serve on :8080 with an OpenAI-compatible endpoint
  vizcoder serve --model openai --model-name gpt-4o --api-key $OPENAI_API_KEY

  # Reload prompt overrides on change
  vizcoder serve --prompts ./prompts --watch-prompts`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := GetConfig(cmd.Context())
			svc, lib, err := newService(ctx, cfg, serviceNeeds{Model: true})
			if err != nil {
				return err
			}
			srv := server.New(server.Config{
				Generator:      svc,
				RuntimeMax:     cfg.Retry.RuntimeMax,
				Addr:           cfg.Server.Addr,
				SessionTTL:     cfg.Server.SessionTTL,
				MaxUploadBytes: cfg.Server.MaxUploadBytes,
				UploadDir:      cfg.Server.UploadDir,
				Prompts:        lib,
				WatchPrompts:   cfg.Prompts.Watch,
			})
			return srv.Serve(ctx)
		},
	}
	cmd.Flags().String("addr", "", "Listen address")
	cmd.Flags().String("upload-dir", "", "Directory for uploaded CSV files")
	cmd.Flags().Bool("watch-prompts", false, "Reload prompt overrides when they change")
	return cmd
}
