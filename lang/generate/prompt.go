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

package generate

import (
	"fmt"
	"strings"

	"github.com/cloudwego/vizcoder/internal/utils"
	"github.com/cloudwego/vizcoder/lang/dataset"
	"github.com/cloudwego/vizcoder/lang/failure"
	"github.com/cloudwego/vizcoder/lang/intent"
	"github.com/cloudwego/vizcoder/llm/prompt"
)

// Input is everything a prompt is built from.
type Input struct {
	Summary       dataset.Summary
	Intent        intent.Intent
	UserQuery     string
	PreviousError *failure.Context
	Attempt       int
}

// PromptBuilder composes the generation instruction.
type PromptBuilder struct {
	lib *prompt.Library
}

// NewPromptBuilder returns a builder over lib.
func NewPromptBuilder(lib *prompt.Library) *PromptBuilder {
	return &PromptBuilder{lib: lib}
}

var intentGuidance = map[intent.Intent]string{
	intent.Bar:     "Render a bar chart with the `Bar` component (BarElement, CategoryScale, LinearScale). Aggregate categorical columns into counts or sums per category.",
	intent.Line:    "Render a line chart with the `Line` component (LineElement, PointElement, CategoryScale, LinearScale). Order the x axis by the time or sequence column.",
	intent.Pie:     "Render a pie chart with the `Pie` component (ArcElement). Aggregate the relevant column into counts per distinct value and give each slice its own color.",
	intent.Scatter: "Render a scatter chart with the `Scatter` component (PointElement, LinearScale). Plot numeric `{ x, y }` pairs and skip rows where either value is missing.",
	intent.Radar:   "Render a radar chart with the `Radar` component (RadialLinearScale, PointElement, LineElement, Filler).",
	intent.Table:   "Render a dark HTML table with `thead`, `th` and `td` elements. Show the relevant columns and at most the first 100 rows.",
	intent.Summary: "Render summary cards: row count, and for each column its type with min, max and mean for numeric columns or the most frequent values otherwise.",
	intent.Generic: "Choose the visualization that best answers the request. Prefer a chart when the answer is quantitative and a table otherwise.",
}

// Build returns the instruction for in. It contains the component contract,
// the dataset schema, the intent guidance, the user request and, on retries,
// the previous error verbatim.
func (b *PromptBuilder) Build(in Input) (string, error) {
	contract, err := b.lib.Render(prompt.NameComponent, nil)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(contract)
	sb.WriteString("\n\n")

	sb.WriteString("## Dataset\n")
	writeSchema(&sb, in.Summary)
	sb.WriteString("\n")

	it := in.Intent
	if !it.Valid() {
		it = intent.Generic
	}
	sb.WriteString("## Visualization\n")
	sb.WriteString(fmt.Sprintf("Detected intent: %s\n", it))
	sb.WriteString(intentGuidance[it])
	sb.WriteString("\n\n")

	sb.WriteString("## User Request\n")
	sb.WriteString(strings.TrimSpace(in.UserQuery))
	sb.WriteString("\n\n")

	if in.PreviousError != nil {
		name := prompt.NameRetryBuild
		if !in.PreviousError.Stage.BuildTime() {
			name = prompt.NameRetryRuntime
		}
		retry, err := b.lib.Render(name, map[string]any{
			"Stage":   string(in.PreviousError.Stage),
			"Attempt": in.Attempt,
			"Message": in.PreviousError.Message,
		})
		if err != nil {
			return "", err
		}
		sb.WriteString(retry)
		sb.WriteString("\n\n")
	}

	sb.WriteString("## Output\n")
	sb.WriteString("Return ONLY the complete TSX module, with no explanation before or after it.\n")
	return sb.String(), nil
}

func writeSchema(sb *strings.Builder, s dataset.Summary) {
	sb.WriteString(fmt.Sprintf("%d rows. `data` is an array of objects with these keys (use them exactly, including case and spaces):\n", s.RowCount))
	for _, c := range s.Columns {
		sb.WriteString(fmt.Sprintf("- %q: %s", c.Name, c.Kind))
		switch {
		case c.Min != nil && c.Max != nil:
			sb.WriteString(fmt.Sprintf(", range %g to %g", *c.Min, *c.Max))
		case len(c.TopValues) > 0:
			vals := make([]string, 0, len(c.TopValues))
			for _, v := range c.TopValues {
				vals = append(vals, fmt.Sprintf("%q (%d)", v.Value, v.Count))
			}
			sb.WriteString(", frequent values " + strings.Join(vals, ", "))
		}
		if c.Missing > 0 {
			sb.WriteString(fmt.Sprintf(", %d missing", c.Missing))
		}
		sb.WriteString("\n")
	}
	if len(s.Samples) > 0 {
		if sample, err := utils.MarshalJSONBytes(s.Samples); err == nil {
			sb.WriteString("\nSample rows:\n```json\n")
			sb.Write(sample)
			sb.WriteString("\n```\n")
		}
	}
}
