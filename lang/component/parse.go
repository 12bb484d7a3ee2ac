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

package component

import (
	"context"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
)

// Parse builds the module view of src. A source with syntax errors still
// yields a best-effort view with HasErrors set.
func Parse(ctx context.Context, src []byte) (*Module, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(tsx.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, errors.Wrap(err, "parse component")
	}
	defer tree.Close()

	root := tree.RootNode()
	p := &moduleParser{
		src: src,
		m: &Module{
			Source:    src,
			TopLevels: map[string]TopLevel{},
			HasErrors: root.HasError(),
		},
		candidates: map[string]*Entry{},
	}
	p.topLevel(root)
	p.walk(root)
	p.resolveEntry()
	return p.m, nil
}

type moduleParser struct {
	src []byte
	m   *Module

	defaultExport  *Entry
	defaultName    string
	defaultStmt    *Span
	defaultWrapper string
	// candidates are top-level function-like declarations by name.
	candidates map[string]*Entry
	order      []string
}

func (p *moduleParser) text(n *sitter.Node) string {
	return n.Content(p.src)
}

func span(n *sitter.Node) Span {
	return Span{Start: n.StartByte(), End: n.EndByte()}
}

func spanPtr(n *sitter.Node) *Span {
	s := span(n)
	return &s
}

func (p *moduleParser) topLevel(root *sitter.Node) {
	directives := true
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		switch n.Type() {
		case "comment":
			continue
		case "import_statement":
			directives = false
			im := p.importStatement(n)
			p.m.Imports = append(p.m.Imports, im)
			p.bindImport(im)
			p.m.InsertAt = n.EndByte()
			continue
		case "expression_statement":
			if directives && n.NamedChildCount() == 1 && n.NamedChild(0).Type() == "string" {
				p.m.InsertAt = n.EndByte()
				continue
			}
			p.expressionStatement(n)
		case "export_statement":
			p.exportStatement(n)
		case "function_declaration", "generator_function_declaration":
			p.functionDeclaration(n, n, false)
		case "lexical_declaration", "variable_declaration":
			p.variableDeclaration(n, n, false)
		case "class_declaration":
			if name := n.ChildByFieldName("name"); name != nil {
				p.m.TopLevels[p.text(name)] = TopLevel{Name: p.text(name), Kind: "class", Statement: span(n), Declarators: 1}
				p.bind(p.text(name))
			}
		}
		directives = false
	}
}

func (p *moduleParser) bind(name string) {
	p.m.Bindings = append(p.m.Bindings, Binding{Name: name})
}

func (p *moduleParser) bindImport(im Import) {
	if im.TypeOnly {
		return
	}
	if im.Default != "" {
		p.bind(im.Default)
	}
	if im.Namespace != "" {
		p.bind(im.Namespace)
	}
	for _, s := range im.Named {
		p.bind(s.Local)
	}
}

func (p *moduleParser) importStatement(n *sitter.Node) Import {
	im := Import{Span: span(n)}
	if src := n.ChildByFieldName("source"); src != nil {
		im.Source = unquote(p.text(src))
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "type":
			im.TypeOnly = true
		case "import_clause":
			p.importClause(c, &im)
		}
	}
	return im
}

func (p *moduleParser) importClause(n *sitter.Node, im *Import) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "identifier":
			im.Default = p.text(c)
		case "namespace_import":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				if id := c.NamedChild(j); id.Type() == "identifier" {
					im.Namespace = p.text(id)
				}
			}
		case "named_imports":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				s := c.NamedChild(j)
				if s.Type() != "import_specifier" {
					continue
				}
				name := s.ChildByFieldName("name")
				if name == nil {
					continue
				}
				spec := Specifier{Name: p.text(name), Local: p.text(name)}
				if alias := s.ChildByFieldName("alias"); alias != nil {
					spec.Local = p.text(alias)
				}
				im.Named = append(im.Named, spec)
			}
		}
	}
}

func (p *moduleParser) exportStatement(n *sitter.Node) {
	isDefault := false
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.Child(i).Type() == "default" {
			isDefault = true
			break
		}
	}
	decl := n.ChildByFieldName("declaration")
	value := n.ChildByFieldName("value")

	if isDefault {
		p.m.DefaultExports++
		if p.m.DefaultExport == nil {
			p.m.DefaultExport = spanPtr(n)
		}
	}
	if !isDefault {
		if decl == nil {
			return
		}
		switch decl.Type() {
		case "function_declaration", "generator_function_declaration":
			p.functionDeclaration(decl, n, true)
		case "lexical_declaration", "variable_declaration":
			p.variableDeclaration(decl, n, true)
		}
		return
	}

	if decl != nil {
		switch decl.Type() {
		case "function_declaration", "generator_function_declaration", "function", "function_expression":
			e := p.functionEntry(decl, n)
			e.DefaultExported, e.Inline = true, true
			if name := decl.ChildByFieldName("name"); name != nil {
				e.Name = p.text(name)
				e.NameAt = spanPtr(name)
				p.bind(e.Name)
			}
			p.defaultExport = e
		}
		return
	}
	if value == nil {
		// Some grammar versions put the function directly under the
		// statement without a field.
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			if isFunctionNode(c.Type()) {
				value = c
				break
			}
		}
	}
	if value == nil {
		return
	}
	switch {
	case isFunctionNode(value.Type()):
		e := p.functionEntry(value, n)
		e.DefaultExported, e.Inline = true, true
		if name := value.ChildByFieldName("name"); name != nil {
			e.Name = p.text(name)
			e.NameAt = spanPtr(name)
			p.bind(e.Name)
		}
		p.defaultExport = e
	case value.Type() == "identifier":
		s := span(n)
		p.defaultName = p.text(value)
		p.defaultStmt = &s
	case value.Type() == "call_expression":
		// export default memo(App), React.memo(App), connect(f)(App)
		if name, wrapper := p.wrapped(value); name != "" {
			s := span(n)
			p.defaultName = name
			p.defaultStmt = &s
			p.defaultWrapper = wrapper
		}
	}
}

// wrapped returns the identifier a call wraps and the callee that wraps it.
// Only the first argument is considered, looking through nested calls.
func (p *moduleParser) wrapped(call *sitter.Node) (string, string) {
	callee, args := call.ChildByFieldName("function"), call.ChildByFieldName("arguments")
	if callee == nil || args == nil {
		return "", ""
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		a := args.NamedChild(i)
		switch a.Type() {
		case "comment":
			continue
		case "identifier":
			return p.text(a), p.text(callee)
		case "call_expression":
			if name, _ := p.wrapped(a); name != "" {
				return name, p.text(callee)
			}
		}
		return "", ""
	}
	return "", ""
}

func (p *moduleParser) functionDeclaration(fn, stmt *sitter.Node, exported bool) {
	name := fn.ChildByFieldName("name")
	if name == nil {
		return
	}
	n := p.text(name)
	p.m.TopLevels[n] = TopLevel{Name: n, Kind: "function", Statement: span(stmt), Declarators: 1, Exported: exported}
	p.bind(n)
	e := p.functionEntry(fn, stmt)
	e.Name = n
	e.NameAt = spanPtr(name)
	e.NamedExport = exported
	p.addCandidate(e)
}

func (p *moduleParser) variableDeclaration(decl, stmt *sitter.Node, exported bool) {
	var declarators []*sitter.Node
	for i := 0; i < int(decl.NamedChildCount()); i++ {
		if c := decl.NamedChild(i); c.Type() == "variable_declarator" {
			declarators = append(declarators, c)
		}
	}
	for _, d := range declarators {
		name := d.ChildByFieldName("name")
		value := d.ChildByFieldName("value")
		if name == nil {
			continue
		}
		if value != nil && value.Type() == "call_expression" {
			if req, ok := p.require(value); ok && !exported && len(declarators) == 1 {
				req.Statement = span(stmt)
				req.Binding = p.text(name)
				if name.Type() == "object_pattern" {
					req.Destructured = true
					req.Specifiers = p.objectPattern(name)
					for _, sp := range req.Specifiers {
						p.bind(sp.Local)
					}
				} else if name.Type() == "identifier" {
					p.m.Bindings = append(p.m.Bindings, Binding{Name: req.Binding, Var: decl.Type() == "variable_declaration"})
				}
				p.m.Requires = append(p.m.Requires, req)
				continue
			}
		}
		if name.Type() != "identifier" {
			continue
		}
		n := p.text(name)
		p.m.TopLevels[n] = TopLevel{Name: n, Kind: "lexical", Statement: span(stmt), Declarators: len(declarators), Exported: exported}
		p.m.Bindings = append(p.m.Bindings, Binding{Name: n, Var: decl.Type() == "variable_declaration"})
		if value != nil && isFunctionNode(value.Type()) {
			e := p.functionEntry(value, stmt)
			e.Name = n
			e.NameAt = spanPtr(name)
			e.NamedExport = exported
			p.addCandidate(e)
		}
	}
}

func (p *moduleParser) addCandidate(e *Entry) {
	if _, ok := p.candidates[e.Name]; !ok {
		p.order = append(p.order, e.Name)
	}
	p.candidates[e.Name] = e
}

func (p *moduleParser) functionEntry(fn, stmt *sitter.Node) *Entry {
	e := &Entry{
		Kind:      EntryFunction,
		Statement: span(stmt),
		Function:  span(fn),
	}
	switch fn.Type() {
	case "arrow_function":
		e.Kind = EntryArrow
	case "function", "function_expression":
		e.Kind = EntryExpression
	}
	if params := fn.ChildByFieldName("parameters"); params != nil {
		e.Params = span(params)
		for i := 0; i < int(params.NamedChildCount()); i++ {
			if params.NamedChild(i).Type() != "comment" {
				e.ParamCount++
			}
		}
	} else if param := fn.ChildByFieldName("parameter"); param != nil {
		e.Params = span(param)
		e.ParamCount = 1
		e.BareParam = true
	}
	return e
}

func (p *moduleParser) require(call *sitter.Node) (Require, bool) {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "identifier" || p.text(fn) != "require" {
		return Require{}, false
	}
	args := call.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() != 1 || args.NamedChild(0).Type() != "string" {
		return Require{}, false
	}
	return Require{Source: unquote(p.text(args.NamedChild(0)))}, true
}

func (p *moduleParser) objectPattern(n *sitter.Node) []Specifier {
	var out []Specifier
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "shorthand_property_identifier_pattern", "shorthand_property_identifier":
			out = append(out, Specifier{Name: p.text(c), Local: p.text(c)})
		case "pair_pattern":
			k, v := c.ChildByFieldName("key"), c.ChildByFieldName("value")
			if k != nil && v != nil && v.Type() == "identifier" {
				out = append(out, Specifier{Name: p.text(k), Local: p.text(v)})
			}
		}
	}
	return out
}

func (p *moduleParser) expressionStatement(n *sitter.Node) {
	if n.NamedChildCount() == 0 {
		return
	}
	x := n.NamedChild(0)
	if x.Type() != "assignment_expression" {
		return
	}
	left, right := x.ChildByFieldName("left"), x.ChildByFieldName("right")
	if left == nil || right == nil || p.text(left) != "module.exports" {
		return
	}
	p.m.ModuleExports = &ModuleExports{Statement: span(n), Value: p.text(right)}
	if right.Type() == "identifier" && p.defaultName == "" && p.defaultExport == nil {
		p.defaultName = p.text(right)
	}
}

// walk collects facts that may appear anywhere in the tree.
func (p *moduleParser) walk(n *sitter.Node) {
	switch n.Type() {
	case "call_expression":
		p.registerCall(n)
	case "jsx_opening_element", "jsx_self_closing_element":
		p.element(n)
	case "variable_declarator":
		p.useState(n)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		p.walk(n.NamedChild(i))
	}
}

func (p *moduleParser) registerCall(n *sitter.Node) {
	fn := n.ChildByFieldName("function")
	if fn == nil || fn.Type() != "member_expression" {
		return
	}
	obj, prop := fn.ChildByFieldName("object"), fn.ChildByFieldName("property")
	if obj == nil || prop == nil || p.text(prop) != "register" {
		return
	}
	args := n.ChildByFieldName("arguments")
	if args == nil {
		return
	}
	c := Call{Span: span(n), Object: p.text(obj), ArgsAt: span(args)}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		a := args.NamedChild(i)
		if a.Type() == "comment" {
			continue
		}
		c.Args = append(c.Args, p.text(a))
	}
	p.m.Registers = append(p.m.Registers, c)
}

func (p *moduleParser) element(n *sitter.Node) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	e := Element{
		Tag:         span(n),
		Name:        p.text(name),
		NameAt:      span(name),
		SelfClosing: n.Type() == "jsx_self_closing_element",
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		a := n.NamedChild(i)
		if a.Type() != "jsx_attribute" || a.NamedChildCount() == 0 {
			continue
		}
		attr := Attr{Span: span(a), Name: p.text(a.NamedChild(0))}
		if a.NamedChildCount() > 1 {
			v := a.NamedChild(int(a.NamedChildCount()) - 1)
			attr.Value = p.text(v)
			attr.ValueAt = span(v)
			attr.IsString = v.Type() == "string"
		}
		e.Attrs = append(e.Attrs, attr)
	}
	p.m.Elements = append(p.m.Elements, e)
}

func (p *moduleParser) useState(n *sitter.Node) {
	name, value := n.ChildByFieldName("name"), n.ChildByFieldName("value")
	if name == nil || value == nil || name.Type() != "array_pattern" || value.Type() != "call_expression" {
		return
	}
	fn := value.ChildByFieldName("function")
	if fn == nil {
		return
	}
	callee := p.text(fn)
	if callee != "useState" && callee != "React.useState" {
		return
	}
	if name.NamedChildCount() > 0 {
		if first := name.NamedChild(0); first.Type() == "identifier" {
			p.m.StateVars = append(p.m.StateVars, p.text(first))
		}
	}
}

// resolveEntry picks the entry component: the default export first, then
// a declaration named App, then the last capitalised function.
func (p *moduleParser) resolveEntry() {
	if p.defaultExport != nil {
		p.m.Entry = p.defaultExport
		return
	}
	if p.defaultName != "" {
		if e, ok := p.candidates[p.defaultName]; ok {
			e.DefaultExported = p.defaultStmt != nil
			e.ExportStatement = p.defaultStmt
			e.Wrapper = p.defaultWrapper
			p.m.Entry = e
			return
		}
	}
	if e, ok := p.candidates[EntryName]; ok {
		p.m.Entry = e
		return
	}
	for i := len(p.order) - 1; i >= 0; i-- {
		if isComponentName(p.order[i]) {
			p.m.Entry = p.candidates[p.order[i]]
			return
		}
	}
}

func isFunctionNode(t string) bool {
	switch t {
	case "arrow_function", "function", "function_expression":
		return true
	}
	return false
}

func isComponentName(s string) bool {
	for _, r := range s {
		return unicode.IsUpper(r)
	}
	return false
}

func unquote(s string) string {
	return strings.Trim(s, "'\"`")
}
