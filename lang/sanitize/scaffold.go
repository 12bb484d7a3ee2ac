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
	"fmt"
	"strings"

	"github.com/cloudwego/vizcoder/lang/component"
)

// InnerName is the name given to an entry component wrapped by the loading
// scaffold.
const InnerName = "GeneratedApp"

const loadingWrapper = `export default function App() {
  const [loading, setLoading] = %[1]s(true);

  %[2]s(() => {
    const timer = setTimeout(() => setLoading(false), %[3]d);
    return () => clearTimeout(timer);
  }, []);

  if (loading) {
    return (
      <div className="flex min-h-screen items-center justify-center bg-gray-900 text-gray-300">
        Loading...
      </div>
    );
  }

  return <%[4]s />;
}
`

// ensureLoadingScaffold wraps an entry component that has no loading state
// in a default-exported App that shows a placeholder for a short delay.
func ensureLoadingScaffold(s *Sanitizer, m *component.Module) []component.Edit {
	e := m.Entry
	if e == nil || m.HasState("loading", "isLoading") {
		return nil
	}
	var edits []component.Edit
	inner := e.Name
	rename := inner == "" || inner == component.EntryName

	switch {
	case e.Inline && e.Kind == component.EntryFunction:
		// export default function X() -> function X()
		edits = append(edits, component.Replace(component.Span{Start: e.Statement.Start, End: e.Function.Start}, ""))
	case e.Inline && (e.Kind == component.EntryArrow || e.NameAt == nil):
		// export default () => ... -> const GeneratedApp = () => ...
		edits = append(edits, component.Replace(component.Span{Start: e.Statement.Start, End: e.Function.Start}, "const "+InnerName+" = "))
		rename = false
		inner = InnerName
	case e.Inline:
		// export default function X() {} as an expression
		edits = append(edits, component.Replace(component.Span{Start: e.Statement.Start, End: e.Function.Start}, ""))
	case e.ExportStatement != nil:
		edits = append(edits, component.Delete(m.Source, *e.ExportStatement))
	case e.NamedExport && e.Kind == component.EntryFunction:
		// export function App() -> function App()
		edits = append(edits, component.Replace(component.Span{Start: e.Statement.Start, End: e.Function.Start}, ""))
	}
	if rename && e.NameAt != nil {
		edits = append(edits, component.Replace(*e.NameAt, InnerName))
		inner = InnerName
	}

	hooks, locals := ensureNamed(m, "react", specifiers("useState", "useEffect"))
	// Hook imports go in front of every other edit at the same offset.
	edits = append(hooks, edits...)

	wrapper := fmt.Sprintf(loadingWrapper, locals["useState"], locals["useEffect"], s.opts.LoadingDelay.Milliseconds(), inner)
	edits = append(edits, component.Insert(uint32(len(m.Source)), "\n\n"+wrapper))
	return edits
}

// TableClasses are the dark-theme classes every table element carries.
var TableClasses = map[string]string{
	"table": "min-w-full divide-y divide-gray-700 text-sm text-gray-200",
	"thead": "bg-gray-800",
	"th":    "px-4 py-2 text-left font-semibold text-gray-100",
	"td":    "px-4 py-2 border-t border-gray-700",
}

// normalizeTables merges the dark-theme classes into table markup.
func normalizeTables(_ *Sanitizer, m *component.Module) []component.Edit {
	var edits []component.Edit
	for _, el := range m.Elements {
		want, ok := TableClasses[el.Name]
		if !ok {
			continue
		}
		className, hasClassName := el.Attr("className")
		class, hasClass := el.Attr("class")
		switch {
		case hasClassName:
			if e, ok := mergeClasses(className, want); ok {
				edits = append(edits, e)
			}
		case hasClass:
			edits = append(edits, component.Replace(component.Span{Start: class.Start, End: class.Start + uint32(len("class"))}, "className"))
			if e, ok := mergeClasses(class, want); ok {
				edits = append(edits, e)
			}
		default:
			edits = append(edits, component.Insert(el.NameAt.End, ` className="`+want+`"`))
		}
	}
	return edits
}

// mergeClasses appends the missing classes to a string attribute value.
// Expression values are left alone.
func mergeClasses(a component.Attr, want string) (component.Edit, bool) {
	if !a.IsString || len(a.Value) < 2 {
		return component.Edit{}, false
	}
	quote := a.Value[:1]
	have := strings.Fields(a.Value[1 : len(a.Value)-1])
	present := make(map[string]bool, len(have))
	for _, c := range have {
		present[c] = true
	}
	merged := have
	for _, c := range strings.Fields(want) {
		if !present[c] {
			merged = append(merged, c)
		}
	}
	if len(merged) == len(have) {
		return component.Edit{}, false
	}
	return component.Replace(a.ValueAt, quote+strings.Join(merged, " ")+quote), true
}
