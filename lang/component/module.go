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

// Package component models a generated TSX module as the handful of
// top-level facts the structural contract cares about, parsed with
// tree-sitter so rewrites can be expressed as byte-range edits.
package component

import "strings"

const (
	// DataSource and DataBinding form the canonical dataset import.
	DataSource  = "./data"
	DataBinding = "data"

	// EntryName is the canonical name of the entry component.
	EntryName = "App"
)

// DataImport is the canonical import statement for the dataset.
const DataImport = "import { data } from './data';"

// Span is a half-open byte range in the source.
type Span struct {
	Start uint32
	End   uint32
}

// Specifier is one named import. Local equals Name unless aliased.
type Specifier struct {
	Name  string
	Local string
}

// Import is a top-level import statement.
type Import struct {
	Span
	Source    string
	Default   string
	Namespace string
	Named     []Specifier
	TypeOnly  bool
}

// Imports reports whether the statement binds local as a named import.
func (im Import) Imports(local string) bool {
	for _, s := range im.Named {
		if s.Local == local {
			return true
		}
	}
	return false
}

// LocalFor returns the local name bound to the exported name, or "".
func (im Import) LocalFor(name string) string {
	for _, s := range im.Named {
		if s.Name == name {
			return s.Local
		}
	}
	return ""
}

// EntryKind is the syntactic form of the entry component.
type EntryKind string

const (
	EntryFunction   EntryKind = "function"
	EntryArrow      EntryKind = "arrow"
	EntryExpression EntryKind = "function-expression"
)

// Entry describes the entry component.
type Entry struct {
	Name string
	// NameAt covers the declared name; nil for anonymous functions.
	NameAt *Span
	Kind   EntryKind
	// DefaultExported is true for `export default ...` forms.
	DefaultExported bool
	// Inline is true when the function is declared inside the default
	// export statement itself.
	Inline bool
	// NamedExport is true for `export function App()`.
	NamedExport bool
	// Statement covers the whole top-level statement holding the function.
	Statement Span
	// Function covers the function node.
	Function Span
	// Params covers the parameter list; for a bare arrow parameter it is
	// the identifier.
	Params     Span
	ParamCount int
	BareParam  bool
	// ExportStatement covers a separate `export default Name;`, or a
	// wrapped form such as `export default memo(Name);`.
	ExportStatement *Span
	// Wrapper is the callee of a wrapped default export, e.g. React.memo.
	Wrapper string
}

// ZeroArg reports whether the entry takes no parameters.
func (e *Entry) ZeroArg() bool { return e != nil && e.ParamCount == 0 }

// TopLevel is a top-level declaration.
type TopLevel struct {
	Name        string
	Kind        string // function, lexical, class
	Statement   Span
	Declarators int
	Exported    bool
}

// Require is a top-level `const x = require('m')` declaration.
type Require struct {
	Statement Span
	Source    string
	// Binding is the raw declared pattern, e.g. `x` or `{ a, b: c }`.
	Binding string
	// Destructured is true for object patterns.
	Destructured bool
	Specifiers   []Specifier
}

// Call is a `<object>.register(...)` call.
type Call struct {
	Span
	Object string
	Args   []string
	ArgsAt Span
}

// Attr is a JSX attribute.
type Attr struct {
	Span
	Name string
	// Value is the raw value text including quotes or braces.
	Value    string
	IsString bool
	ValueAt  Span
}

// Element is a JSX opening or self-closing tag.
type Element struct {
	Tag         Span
	Name        string
	NameAt      Span
	Attrs       []Attr
	SelfClosing bool
}

// Attr returns the named attribute.
func (e Element) Attr(name string) (Attr, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a, true
		}
	}
	return Attr{}, false
}

// ModuleExports is a CommonJS `module.exports = X` statement.
type ModuleExports struct {
	Statement Span
	Value     string
}

// Module is the parsed view of a generated component.
type Module struct {
	Source []byte

	Imports       []Import
	Entry         *Entry
	TopLevels     map[string]TopLevel
	Requires      []Require
	ModuleExports *ModuleExports
	Registers     []Call
	Elements      []Element
	// StateVars are the first names of `useState` array patterns.
	StateVars []string
	// DefaultExport covers the first `export default` statement.
	DefaultExport  *Span
	DefaultExports int
	// Bindings lists the top-level bindings in source order, imports
	// included. A redeclared name appears more than once.
	Bindings []Binding
	// InsertAt is where new imports go: after the last import, or after
	// leading directives.
	InsertAt  uint32
	HasErrors bool
}

// Text returns the source covered by s.
func (m *Module) Text(s Span) string {
	return string(m.Source[s.Start:s.End])
}

// Binding is one top-level name introduced by an import or a declaration.
type Binding struct {
	Name string
	// Var marks `var` declarations, which may repeat each other.
	Var bool
}

// Bound reports whether name is declared or imported at the top level.
func (m *Module) Bound(name string) bool {
	for _, b := range m.Bindings {
		if b.Name == name {
			return true
		}
	}
	return false
}

// Redeclared returns the top-level names that are bound more than once in a
// way a module rejects, in order of their first conflict.
func (m *Module) Redeclared() []string {
	seen := make(map[string]Binding, len(m.Bindings))
	reported := make(map[string]bool)
	var out []string
	for _, b := range m.Bindings {
		prev, ok := seen[b.Name]
		if !ok {
			seen[b.Name] = b
			continue
		}
		if prev.Var && b.Var || reported[b.Name] {
			continue
		}
		reported[b.Name] = true
		out = append(out, b.Name)
	}
	return out
}

// ImportFrom returns the first import of source.
func (m *Module) ImportFrom(sources ...string) (Import, bool) {
	for _, im := range m.Imports {
		for _, s := range sources {
			if im.Source == s && !im.TypeOnly {
				return im, true
			}
		}
	}
	return Import{}, false
}

// HasDataImport reports whether the canonical data binding is imported.
func (m *Module) HasDataImport() bool {
	for _, im := range m.Imports {
		if isDataSource(im.Source) && !im.TypeOnly && (im.Imports(DataBinding) || im.Default == DataBinding) {
			return true
		}
	}
	return false
}

// Uses reports whether any JSX element has the given name.
func (m *Module) Uses(name string) bool {
	for _, e := range m.Elements {
		if e.Name == name {
			return true
		}
	}
	return false
}

// HasState reports whether a useState pattern declares one of names.
func (m *Module) HasState(names ...string) bool {
	for _, v := range m.StateVars {
		for _, n := range names {
			if strings.EqualFold(v, n) {
				return true
			}
		}
	}
	return false
}

func isDataSource(s string) bool {
	switch s {
	case DataSource, DataSource + ".js", DataSource + ".ts", DataSource + ".json":
		return true
	}
	return false
}
