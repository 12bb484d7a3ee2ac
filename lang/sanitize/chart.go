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

package sanitize

import (
	"strings"

	"github.com/cloudwego/vizcoder/lang/component"
)

const (
	chartSource     = "chart.js"
	chartAutoSource = "chart.js/auto"
	reactChartJS    = "react-chartjs-2"
	chartName       = "Chart"
	chartLocal      = "ChartJS"
)

// Registerables is the canonical chart.js registration set.
var Registerables = []string{
	"ArcElement",
	"BarElement",
	"CategoryScale",
	"Filler",
	"Legend",
	"LineElement",
	"LinearScale",
	"PointElement",
	"RadialLinearScale",
	"Title",
	"Tooltip",
}

// Primitives are the react-chartjs-2 components.
var Primitives = []string{"Bar", "Line", "Pie", "Doughnut", "Scatter", "Radar", "PolarArea", "Bubble"}

// usedPrimitives returns the chart components rendered in JSX that the
// module does not define itself or import from another package.
func usedPrimitives(m *component.Module) []string {
	var out []string
	for _, p := range Primitives {
		if m.Bound(p) && !importsLocal(m, reactChartJS, p) {
			continue
		}
		if m.Uses(p) {
			out = append(out, p)
		}
	}
	return out
}

func importsLocal(m *component.Module, source, local string) bool {
	for _, im := range m.Imports {
		if im.Source != source || im.TypeOnly {
			continue
		}
		for _, s := range im.Named {
			if s.Local == local {
				return true
			}
		}
	}
	return false
}

// ensureChartRegistration imports every chart primitive in use and
// registers the full canonical set with chart.js.
func ensureChartRegistration(_ *Sanitizer, m *component.Module) []component.Edit {
	used := usedPrimitives(m)
	if len(used) == 0 {
		return nil
	}
	edits, _ := ensureNamed(m, reactChartJS, specifiers(used...))
	if _, auto := m.ImportFrom(chartAutoSource); auto {
		return edits
	}

	want := append([]component.Specifier{{Name: chartName, Local: chartLocal}}, specifiers(Registerables...)...)
	importEdits, locals := ensureNamed(m, chartSource, want)
	edits = append(edits, importEdits...)

	object := locals[chartName]
	args := make([]string, 0, len(Registerables))
	for _, r := range Registerables {
		args = append(args, locals[r])
	}

	var first *component.Call
	registered := map[string]bool{}
	for i, c := range m.Registers {
		if c.Object != object {
			continue
		}
		if first == nil {
			first = &m.Registers[i]
		}
		for _, a := range c.Args {
			registered[strings.TrimSpace(a)] = true
		}
	}
	complete := true
	for _, a := range args {
		if !registered[a] {
			complete = false
			break
		}
	}
	switch {
	case complete:
		return edits
	case first == nil:
		return append(edits, insertAfterImports(m, object+".register("+strings.Join(args, ", ")+");"))
	}

	// Keep anything extra the call already registers, such as plugins.
	seen := map[string]bool{}
	for _, a := range args {
		seen[a] = true
	}
	for _, a := range first.Args {
		if a = strings.TrimSpace(a); !seen[a] {
			args = append(args, a)
			seen[a] = true
		}
	}
	return append(edits, component.Replace(first.ArgsAt, "("+strings.Join(args, ", ")+")"))
}
