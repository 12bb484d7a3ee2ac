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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/cloudwego/vizcoder/lang/generate"
)

const (
	componentFile = "App.tsx"
	dataFile      = "data.js"
)

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	var outDir string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "generate <file-url> <query...>",
		Short: "Generate a component for a dataset and a request",
		Long: `Generate one component. With --out the component is written to App.tsx
and the dataset module it imports to data.js; otherwise the code is printed.`,
		Example: `  vizcoder generate https://example.com/sales.csv "pie chart of sales by region" -o ./out
  vizcoder generate file:///tmp/sales.csv "table of the first rows" --json`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig(cmd.Context())
			svc, _, err := newService(cmd.Context(), cfg, serviceNeeds{Model: true, LocalFiles: true})
			if err != nil {
				return err
			}
			req := generate.NewRequest(args[0], strings.Join(args[1:], " "))
			out, runErr := svc.Run(cmd.Context(), req)

			if outDir != "" {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return err
				}
				if err := os.WriteFile(filepath.Join(outDir, componentFile), []byte(out.Code), 0o644); err != nil {
					return err
				}
				if out.Dataset != nil {
					mod, err := out.Dataset.Module()
					if err != nil {
						return err
					}
					if err := os.WriteFile(filepath.Join(outDir, dataFile), []byte(mod), 0o644); err != nil {
						return err
					}
				}
			}

			w := cmd.OutOrStdout()
			switch {
			case asJSON:
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if err := enc.Encode(out.Result); err != nil {
					return err
				}
			case outDir == "":
				_, _ = fmt.Fprintln(w, out.Code)
			default:
				_, _ = fmt.Fprintf(w, "wrote %s (intent %s, %d attempts, valid=%v)\n",
					filepath.Join(outDir, componentFile), out.Intent, out.Attempts, out.Valid)
			}
			if runErr != nil {
				return runErr
			}
			if out.Terminal {
				return errors.Errorf("no valid component after %d attempts", out.Attempts)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory to write App.tsx and data.js to")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	return cmd
}
