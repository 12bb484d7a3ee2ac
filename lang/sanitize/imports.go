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
	"strconv"
	"strings"

	"github.com/cloudwego/vizcoder/lang/component"
)

func renderSpecifier(s component.Specifier) string {
	if s.Local == "" || s.Local == s.Name {
		return s.Name
	}
	return s.Name + " as " + s.Local
}

// renderImport prints an import statement in canonical form.
func renderImport(source, def string, named []component.Specifier) string {
	var b strings.Builder
	b.WriteString("import ")
	if def != "" {
		b.WriteString(def)
		if len(named) > 0 {
			b.WriteString(", ")
		}
	}
	if len(named) > 0 {
		parts := make([]string, 0, len(named))
		for _, s := range named {
			parts = append(parts, renderSpecifier(s))
		}
		b.WriteString("{ ")
		b.WriteString(strings.Join(parts, ", "))
		b.WriteString(" }")
	}
	b.WriteString(" from '")
	b.WriteString(source)
	b.WriteString("';")
	return b.String()
}

// insertStatements places statements after the imports, or at the top.
func insertStatements(m *component.Module, stmts ...string) component.Edit {
	if m.InsertAt == 0 {
		return component.Insert(0, strings.Join(stmts, "\n")+"\n")
	}
	return component.Insert(m.InsertAt, "\n"+strings.Join(stmts, "\n"))
}

// importable reports whether named specifiers can be added to im.
func importable(im component.Import) bool {
	return !im.TypeOnly && im.Namespace == ""
}

// aliasPrefixes name the prefix tried first when a local from source is
// already bound, e.g. `Title as ChartTitle`.
var aliasPrefixes = map[string]string{
	chartSource: "Chart",
}

// freeLocal picks a local binding for w that neither m nor taken declares.
func freeLocal(m *component.Module, taken map[string]bool, source string, w component.Specifier) string {
	free := func(n string) bool { return !taken[n] && !m.Bound(n) }
	if free(w.Local) {
		return w.Local
	}
	if p := aliasPrefixes[source]; p != "" && !strings.HasPrefix(w.Name, p) && free(p+w.Name) {
		return p + w.Name
	}
	for i := 2; ; i++ {
		if n := w.Local + strconv.Itoa(i); free(n) {
			return n
		}
	}
}

// ensureNamed returns the edits that make every wanted name importable from
// source, extending an existing import or adding a new one, and the local
// binding of each wanted name. A wanted Local is used only for names that
// are not imported yet, and is aliased when another binding holds it.
func ensureNamed(m *component.Module, source string, want []component.Specifier) ([]component.Edit, map[string]string) {
	locals := make(map[string]string, len(want))
	var target *component.Import
	for i := range m.Imports {
		im := m.Imports[i]
		if im.Source != source || im.TypeOnly {
			continue
		}
		for _, w := range want {
			if l := im.LocalFor(w.Name); l != "" && locals[w.Name] == "" {
				locals[w.Name] = l
			}
		}
		if target == nil && importable(im) {
			target = &m.Imports[i]
		}
	}
	var missing []component.Specifier
	taken := make(map[string]bool, len(want))
	for _, w := range want {
		if locals[w.Name] != "" {
			continue
		}
		if w.Local == "" {
			w.Local = w.Name
		}
		w.Local = freeLocal(m, taken, source, w)
		taken[w.Local] = true
		locals[w.Name] = w.Local
		missing = append(missing, w)
	}
	if len(missing) == 0 {
		return nil, locals
	}
	if target == nil {
		return []component.Edit{insertStatements(m, renderImport(source, "", missing))}, locals
	}
	named := append(append([]component.Specifier{}, target.Named...), missing...)
	return []component.Edit{component.Replace(target.Span, renderImport(source, target.Default, named))}, locals
}

func specifiers(names ...string) []component.Specifier {
	out := make([]component.Specifier, 0, len(names))
	for _, n := range names {
		out = append(out, component.Specifier{Name: n, Local: n})
	}
	return out
}

// insertAfterImports adds a statement separated by a blank line from the
// import block.
func insertAfterImports(m *component.Module, stmt string) component.Edit {
	if m.InsertAt == 0 {
		return component.Insert(0, stmt+"\n\n")
	}
	return component.Insert(m.InsertAt, "\n\n"+stmt)
}

// ensureDataImport adds the dataset binding and drops a top-level `data`
// declaration that would shadow it.
func ensureDataImport(_ *Sanitizer, m *component.Module) []component.Edit {
	var edits []component.Edit
	if !m.HasDataImport() {
		edits = append(edits, dataImportEdit(m))
	}
	// Deletions go last so an insertion at the same offset stays in front.
	if top, ok := m.TopLevels[component.DataBinding]; ok && top.Kind == "lexical" && top.Declarators == 1 && !top.Exported {
		edits = append(edits, component.Delete(m.Source, top.Statement))
	}
	return edits
}

func dataImportEdit(m *component.Module) component.Edit {
	for _, im := range m.Imports {
		if im.Source == component.DataSource && importable(im) && im.Default != component.DataBinding {
			named := append(append([]component.Specifier{}, im.Named...), component.Specifier{Name: component.DataBinding, Local: component.DataBinding})
			return component.Replace(im.Span, renderImport(im.Source, im.Default, named))
		}
	}
	return insertStatements(m, component.DataImport)
}
