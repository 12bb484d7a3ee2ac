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
	"github.com/cloudwego/vizcoder/lang/component"
)

// normalizeEntry turns CommonJS into ES modules and makes the entry
// component a zero-parameter default export.
func normalizeEntry(_ *Sanitizer, m *component.Module) []component.Edit {
	var edits []component.Edit
	for _, r := range m.Requires {
		edits = append(edits, component.Replace(r.Statement, requireToImport(r)))
	}

	e := m.Entry
	if e == nil {
		if me := m.ModuleExports; me != nil {
			edits = append(edits, component.Replace(me.Statement, "export default "+me.Value+";"))
		}
		return edits
	}

	exported := e.DefaultExported
	if me := m.ModuleExports; me != nil {
		switch {
		case exported:
			edits = append(edits, component.Delete(m.Source, me.Statement))
		case me.Value == e.Name:
			edits = append(edits, component.Replace(me.Statement, "export default "+e.Name+";"))
			exported = true
		default:
			edits = append(edits, component.Delete(m.Source, me.Statement))
		}
	}

	if e.ParamCount > 0 {
		edits = append(edits, component.Replace(e.Params, "()"))
	}

	if !exported {
		switch {
		case m.DefaultExport != nil:
			// export default memo(Other) or a stray value: point it at the entry
			edits = append(edits, component.Replace(*m.DefaultExport, "export default "+e.Name+";"))
		case e.Kind == component.EntryFunction && e.NamedExport:
			// export function App() -> export default function App()
			edits = append(edits, component.Insert(e.Function.Start, "default "))
		case e.Kind == component.EntryFunction:
			edits = append(edits, component.Insert(e.Statement.Start, "export default "))
		default:
			edits = append(edits, component.Insert(uint32(len(m.Source)), "\n\nexport default "+e.Name+";\n"))
		}
	}
	return edits
}

func requireToImport(r component.Require) string {
	if !r.Destructured {
		return "import " + r.Binding + " from '" + r.Source + "';"
	}
	if len(r.Specifiers) == 0 {
		return "import '" + r.Source + "';"
	}
	return renderImport(r.Source, "", r.Specifiers)
}
