// Package parse converts TypeScript syntax trees into program.SourceFile values.
package parse

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"gitlab.com/tozd/go/errors"

	"github.com/phobologic/tsmodel/internal/lang"
	"github.com/phobologic/tsmodel/internal/program"
)

// File parses source and returns its declarations, imports, and exports.
// The parser must be created for l. path is the repo-relative slash path
// recorded on every syntax element.
func File(ctx context.Context, l *lang.Language, parser *sitter.Parser, source []byte, path string) (*program.SourceFile, error) {
	sf := &program.SourceFile{Path: path, Language: l.Name}
	if len(source) == 0 {
		return sf, nil
	}

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, errors.Errorf("parsing %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	p := &fileParser{src: source, file: sf}

	for i := 0; i < int(root.NamedChildCount()); i++ {
		p.statement(root.NamedChild(i), false)
	}

	query, err := l.ModuleQuery()
	if err != nil {
		return nil, err
	}
	p.modules(query, root)

	if root.HasError() {
		sf.SyntaxErrors = countErrors(root)
	}
	return sf, nil
}

type fileParser struct {
	src  []byte
	file *program.SourceFile
}

func (p *fileParser) text(n *sitter.Node) string {
	return lang.NodeText(n, p.src)
}

func (p *fileParser) pos(n *sitter.Node) program.Pos {
	pt := n.StartPoint()
	return program.Pos{Line: int(pt.Row) + 1, Column: int(pt.Column) + 1}
}

// statement handles one top-level statement. ambient is set inside `declare`.
func (p *fileParser) statement(n *sitter.Node, ambient bool) {
	switch n.Type() {
	case "export_statement":
		p.exportStatement(n)
	case "ambient_declaration":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			p.statement(n.NamedChild(i), true)
		}
	default:
		for _, d := range p.declaration(n, nil) {
			d.Ambient = d.Ambient || ambient
			p.file.Decls = append(p.file.Decls, d)
		}
	}
}

func (p *fileParser) exportStatement(n *sitter.Node) {
	if n.ChildByFieldName("source") != nil {
		return // re-exports come from the module query
	}

	var decorators []*program.Decorator
	isDefault := false
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "decorator":
			decorators = append(decorators, p.decorator(c))
		case "default":
			if !c.IsNamed() {
				isDefault = true
			}
		}
	}

	if decl := n.ChildByFieldName("declaration"); decl != nil {
		for _, d := range p.declaration(decl, decorators) {
			d.Exported = true
			d.Default = isDefault
			if isDefault && d.Name == "" {
				d.Name = "default"
			}
			if d.Name != "" {
				p.file.Decls = append(p.file.Decls, d)
			}
		}
		return
	}

	if value := n.ChildByFieldName("value"); value != nil && isDefault {
		switch value.Type() {
		case "identifier":
			p.file.Exports = append(p.file.Exports, &program.Export{
				Pos:   p.pos(n),
				Names: []program.ExportName{{Local: p.text(value), Exported: "default"}},
			})
		case "class", "class_declaration", "abstract_class_declaration", "function", "function_expression", "function_declaration", "arrow_function":
			for _, d := range p.declaration(value, decorators) {
				d.Exported, d.Default = true, true
				if d.Name == "" {
					d.Name = "default"
				}
				p.file.Decls = append(p.file.Decls, d)
			}
		}
		return
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "export_clause" {
			p.file.Exports = append(p.file.Exports, &program.Export{
				Pos:   p.pos(n),
				Names: p.exportClause(c),
			})
		}
	}
}

// declaration converts a declaration node. Variable statements may yield
// several declarations.
func (p *fileParser) declaration(n *sitter.Node, decorators []*program.Decorator) []*program.Decl {
	switch n.Type() {
	case "class_declaration", "abstract_class_declaration", "class":
		return []*program.Decl{p.class(n, decorators)}
	case "interface_declaration":
		return []*program.Decl{p.iface(n)}
	case "enum_declaration":
		return []*program.Decl{p.enum(n)}
	case "type_alias_declaration":
		return []*program.Decl{p.typeAlias(n)}
	case "function_declaration", "generator_function_declaration", "function", "function_expression":
		if d := p.function(n); d != nil {
			return []*program.Decl{d}
		}
	case "lexical_declaration", "variable_declaration":
		return p.variables(n)
	}
	return nil
}

func (p *fileParser) newDecl(kind program.DeclKind, n *sitter.Node) *program.Decl {
	d := &program.Decl{Kind: kind, File: p.file.Path, Pos: p.pos(n)}
	if name := n.ChildByFieldName("name"); name != nil {
		d.Name = p.text(name)
		d.Pos = p.pos(name)
	}
	return d
}

func (p *fileParser) class(n *sitter.Node, decorators []*program.Decorator) *program.Decl {
	d := p.newDecl(program.ClassDecl, n)
	d.Decorators = append(d.Decorators, decorators...)
	d.Abstract = n.Type() == "abstract_class_declaration"
	d.TypeParams = p.typeParams(n.ChildByFieldName("type_parameters"))
	d.Scope = &program.Scope{Params: d.TypeParams}

	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "decorator":
			d.Decorators = append(d.Decorators, p.decorator(c))
		case "class_heritage":
			p.heritage(c, d)
		}
	}
	if body := n.ChildByFieldName("body"); body != nil {
		d.Members = p.classBody(body, d.Scope)
	}
	return d
}

func (p *fileParser) heritage(n *sitter.Node, d *program.Decl) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		clause := n.NamedChild(i)
		switch clause.Type() {
		case "extends_clause":
			d.Extends = append(d.Extends, p.extendsClause(clause, d.Scope)...)
		case "implements_clause":
			for j := 0; j < int(clause.NamedChildCount()); j++ {
				d.Implements = append(d.Implements, p.typeNode(clause.NamedChild(j), d.Scope))
			}
		}
	}
}

// extendsClause reads `extends Base<T>`; the base is an expression followed
// by optional type arguments.
func (p *fileParser) extendsClause(n *sitter.Node, scope *program.Scope) []*program.TypeNode {
	var out []*program.TypeNode
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "type_arguments":
			if len(out) > 0 {
				last := out[len(out)-1]
				last.Args = p.typeArgs(c, scope)
				last.Text = last.Text + lang.CollapseWhitespace(p.text(c))
			}
		case "identifier", "member_expression", "type_identifier", "nested_type_identifier":
			out = append(out, p.refNode(c, lang.CollapseWhitespace(p.text(c)), scope))
		default:
			out = append(out, p.typeNode(c, scope))
		}
	}
	return out
}

func (p *fileParser) iface(n *sitter.Node) *program.Decl {
	d := p.newDecl(program.InterfaceDecl, n)
	d.TypeParams = p.typeParams(n.ChildByFieldName("type_parameters"))
	d.Scope = &program.Scope{Params: d.TypeParams}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "extends_type_clause":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				d.Extends = append(d.Extends, p.typeNode(c.NamedChild(j), d.Scope))
			}
		case "object_type", "interface_body":
			d.Members = p.objectMembers(c, d.Scope)
		}
	}
	return d
}

func (p *fileParser) enum(n *sitter.Node) *program.Decl {
	d := p.newDecl(program.EnumDecl, n)
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); !c.IsNamed() && c.Type() == "const" {
			d.Const = true
		}
	}
	body := n.ChildByFieldName("body")
	if body == nil {
		return d
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		switch c.Type() {
		case "property_identifier", "string", "number":
			d.EnumMembers = append(d.EnumMembers, &program.EnumMember{Name: unquote(p.text(c)), Pos: p.pos(c)})
		case "enum_assignment":
			m := &program.EnumMember{Pos: p.pos(c)}
			if name := c.ChildByFieldName("name"); name != nil {
				m.Name = unquote(p.text(name))
			} else if c.NamedChildCount() > 0 {
				m.Name = unquote(p.text(c.NamedChild(0)))
			}
			if value := c.ChildByFieldName("value"); value != nil {
				m.Value = lang.CollapseWhitespace(p.text(value))
			} else if c.NamedChildCount() > 1 {
				m.Value = lang.CollapseWhitespace(p.text(c.NamedChild(1)))
			}
			d.EnumMembers = append(d.EnumMembers, m)
		}
	}
	return d
}

func (p *fileParser) typeAlias(n *sitter.Node) *program.Decl {
	d := p.newDecl(program.TypeAliasDecl, n)
	d.TypeParams = p.typeParams(n.ChildByFieldName("type_parameters"))
	d.Scope = &program.Scope{Params: d.TypeParams}
	if value := n.ChildByFieldName("value"); value != nil {
		d.Aliased = p.typeNode(value, d.Scope)
	}
	return d
}

func (p *fileParser) function(n *sitter.Node) *program.Decl {
	d := p.newDecl(program.FunctionDecl, n)
	if n.ChildByFieldName("body") == nil && n.Type() == "function_declaration" {
		// Overload signatures parse as function_signature; a body-less
		// declaration here is an ambient function.
		d.Ambient = true
	}
	d.Signature = p.signature(n, nil)
	d.TypeParams = d.Signature.TypeParams
	d.Scope = &program.Scope{Params: d.TypeParams}
	return d
}

func (p *fileParser) variables(n *sitter.Node) []*program.Decl {
	isConst := false
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); !c.IsNamed() && c.Type() == "const" {
			isConst = true
		}
	}

	var out []*program.Decl
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "variable_declarator" {
			continue
		}
		name := c.ChildByFieldName("name")
		if name == nil || name.Type() != "identifier" {
			continue
		}
		d := p.newDecl(program.VariableDecl, c)
		d.Const = isConst
		if t := c.ChildByFieldName("type"); t != nil {
			d.Type = p.typeNode(t, nil)
		}
		if value := c.ChildByFieldName("value"); value != nil {
			if isFunctionNode(value) {
				d.Signature = p.signature(value, nil)
				d.TypeParams = d.Signature.TypeParams
				d.Scope = &program.Scope{Params: d.TypeParams}
			}
			d.Initializer = p.initializer(value)
		}
		out = append(out, d)
	}
	return out
}

func (p *fileParser) typeParams(n *sitter.Node) []string {
	if n == nil {
		return nil
	}
	var names []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() != "type_parameter" {
			continue
		}
		if name := c.ChildByFieldName("name"); name != nil {
			names = append(names, p.text(name))
		} else if c.NamedChildCount() > 0 {
			names = append(names, p.text(c.NamedChild(0)))
		}
	}
	return names
}

func isFunctionNode(n *sitter.Node) bool {
	switch n.Type() {
	case "arrow_function", "function", "function_expression", "generator_function":
		return true
	}
	return false
}

func unquote(s string) string {
	if len(s) >= 2 {
		switch s[0] {
		case '"', '\'', '`':
			if s[len(s)-1] == s[0] {
				return s[1 : len(s)-1]
			}
		}
	}
	return s
}

func countErrors(n *sitter.Node) int {
	count := 0
	if n.IsError() || n.IsMissing() {
		count++
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); c.HasError() || c.IsMissing() {
			count += countErrors(c)
		}
	}
	return count
}

func hasToken(n *sitter.Node, token string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); !c.IsNamed() && c.Type() == token {
			return true
		}
	}
	return false
}
