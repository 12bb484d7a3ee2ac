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
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/cloudwego/vizcoder/lang/dataset"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	var asJSON bool
	var samples int
	cmd := &cobra.Command{
		Use:   "inspect <file-url>",
		Short: "Describe a dataset the way the model sees it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := GetConfig(cmd.Context())
			svc, _, err := newService(cmd.Context(), cfg, serviceNeeds{LocalFiles: true})
			if err != nil {
				return err
			}
			ds, summary, err := svc.Describe(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("samples") {
				summary = ds.Summarize(samples)
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			renderSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	cmd.Flags().IntVar(&samples, "samples", 0, "Number of sample rows")
	return cmd
}

func renderSummary(w io.Writer, s dataset.Summary) {
	_, _ = fmt.Fprintf(w, "%s: %d rows, %d columns\n", s.Source, s.RowCount, len(s.Columns))

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Type", "Non-null", "Missing", "Unique", "Range / top values"})
	for _, c := range s.Columns {
		t.AppendRow(table.Row{c.Name, c.Kind, c.NonNull, c.Missing, c.Unique, describeColumn(c)})
	}
	t.Render()

	if len(s.Samples) == 0 {
		return
	}
	st := table.NewWriter()
	st.SetOutputMirror(w)
	st.SetStyle(table.StyleLight)
	header := make(table.Row, len(s.Headers))
	for i, h := range s.Headers {
		header[i] = h
	}
	st.AppendHeader(header)
	for _, rec := range s.Samples {
		row := make(table.Row, len(s.Headers))
		for i, h := range s.Headers {
			if v := rec[h]; v != nil {
				row[i] = v
			} else {
				row[i] = "NULL"
			}
		}
		st.AppendRow(row)
	}
	st.Render()
}

func describeColumn(c dataset.ColumnProfile) string {
	if c.Min != nil && c.Max != nil {
		return formatFloat(*c.Min) + " .. " + formatFloat(*c.Max)
	}
	parts := make([]string, 0, len(c.TopValues))
	for _, v := range c.TopValues {
		parts = append(parts, fmt.Sprintf("%s (%d)", v.Value, v.Count))
	}
	return strings.Join(parts, ", ")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
