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
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// NewSanitizeCommand creates the sanitize command.
func NewSanitizeCommand() *cobra.Command {
	var headers []string
	cmd := &cobra.Command{
		Use:   "sanitize [file]",
		Short: "Repair a component so it satisfies the module contract",
		Long: `Read raw model output from a file, or from stdin when no file is given,
and print the repaired component. The applied steps are reported on stderr.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw []byte
			var err error
			if len(args) == 1 && args[0] != "-" {
				raw, err = os.ReadFile(args[0])
			} else {
				raw, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}
			if strings.TrimSpace(string(raw)) == "" {
				return errors.New("empty input")
			}

			cfg := GetConfig(cmd.Context())
			svc, _, err := newService(cmd.Context(), cfg, serviceNeeds{})
			if err != nil {
				return err
			}
			code, rep := svc.Sanitize(cmd.Context(), string(raw), headers)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), code)
			if len(rep.Applied) > 0 {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "applied: %s\n", strings.Join(rep.Applied, ", "))
			}
			if len(rep.Skipped) > 0 {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "skipped: %s\n", strings.Join(rep.Skipped, ", "))
			}
			if rep.Fallback {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "fallback: %s\n", rep.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&headers, "headers", nil, "Dataset headers for the fallback table")
	return cmd
}
