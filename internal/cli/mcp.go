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
	"github.com/spf13/cobra"

	"github.com/cloudwego/vizcoder/llm/mcp"
	"github.com/cloudwego/vizcoder/version"
)

// NewMCPCommand creates the mcp command.
func NewMCPCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run as an MCP server on stdio",
		Long: `Expose generate_component, classify_intent, describe_dataset and
sanitize_component as MCP tools, and the visualize_dataset prompt.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := GetConfig(cmd.Context())
			svc, lib, err := newService(cmd.Context(), cfg, serviceNeeds{Model: true})
			if err != nil {
				return err
			}
			svr := mcp.NewServer(mcp.ServerOptions{
				ServerName:    "vizcoder",
				ServerVersion: version.Version,
				Verbose:       cfg.Verbose,
				Backend:       svc,
				Prompts:       lib,
			})
			return svr.ServeStdio()
		},
	}
}
