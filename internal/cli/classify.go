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
	"strings"

	"github.com/spf13/cobra"
)

// NewClassifyCommand creates the classify command.
func NewClassifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "classify <query...>",
		Short:   "Print the visualization intent of a request",
		Example: `  vizcoder classify "show sales over time"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig(cmd.Context())
			cl, err := cfg.Classifier()
			if err != nil {
				return err
			}
			it := cl.Classify(strings.Join(args, " "))
			if chart := it.ChartComponent(); chart != "" {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", it, chart)
			} else {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), it)
			}
			return nil
		},
	}
}
