package parse

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/tsmodel/internal/lang"
	"github.com/phobologic/tsmodel/internal/program"
)

// typeNode converts a type annotation into a program.TypeNode.
func (p *fileParser) typeNode(n *sitter.Node, scope *program.Scope) *program.TypeNode {
	switch n.Type() {
	case "type_annotation", "opting_type_annotation", "omitting_type_annotation", "asserts_annotation", "type_predicate_annotation":
		if n.NamedChildCount() == 0 {
			return p.leaf(program.OtherType, n, scope)
		}
		return p.typeNode(n.NamedChild(0), scope)
	case "parenthesized_type":
		if n.NamedChildCount() == 0 {
			return p.leaf(program.OtherType, n, scope)
		}
		return p.typeNode(n.NamedChild(0), scope)
	case "predefined_type":
		t := p.leaf(program.PredefinedType, n, scope)
		t.Name = t.Text
		return t
	case "type_identifier", "identifier", "nested_type_identifier", "member_expression":
		return p.refNode(n, lang.CollapseWhitespace(p.text(n)), scope)
	case "generic_type":
		name := n.ChildByFieldName("name")
		if name == nil && n.NamedChildCount() > 0 {
			name = n.NamedChild(0)
		}
		t := p.refNode(n, lang.CollapseWhitespace(p.text(name)), scope)
		if args := n.ChildByFieldName("type_arguments"); args != nil {
			t.Args = p.typeArgs(args, scope)
		} else {
			for i := 0; i < int(n.NamedChildCount()); i++ {
				if c := n.NamedChild(i); c.Type() == "type_arguments" {
					t.Args = p.typeArgs(c, scope)
				}
			}
		}
		return t
	case "array_type":
		t := p.leaf(program.ArrayType, n, scope)
		if n.NamedChildCount() > 0 {
			t.Elem = p.typeNode(n.NamedChild(0), scope)
		}
		return t
	case "readonly_type":
		if n.NamedChildCount() == 0 {
			return p.leaf(program.OtherType, n, scope)
		}
		inner := p.typeNode(n.NamedChild(0), scope)
		if inner.Kind == program.ArrayType {
			inner.Readonly = true
			inner.Text = lang.CollapseWhitespace(p.text(n))
		}
		return inner
	case "union_type":
		t := p.leaf(program.UnionType, n, scope)
		t.Args = p.flatten(n, "union_type", scope)
		return t
	case "intersection_type":
		t := p.leaf(program.IntersectionType, n, scope)
		t.Args = p.flatten(n, "intersection_type", scope)
		return t
	case "literal_type":
		t := p.leaf(program.LiteralType, n, scope)
		t.Name = t.Text
		if t.Text == "null" || t.Text == "undefined" {
			t.Kind = program.PredefinedType
		}
		return t
	case "null", "undefined":
		t := p.leaf(program.PredefinedType, n, scope)
		t.Name = t.Text
		return t
	case "string", "number", "true", "false":
		t := p.leaf(program.LiteralType, n, scope)
		t.Name = t.Text
		return t
	case "tuple_type":
		t := p.leaf(program.TupleType, n, scope)
		for i := 0; i < int(n.NamedChildCount()); i++ {
			t.Args = append(t.Args, p.typeNode(n.NamedChild(i), scope))
		}
		return t
	case "function_type":
		return p.leaf(program.FunctionType, n, scope)
	case "object_type":
		return p.leaf(program.ObjectType, n, scope)
	}
	// Conditional, keyof, typeof, lookup, template literal and similar types
	// are opaque to the model.
	return p.leaf(program.OtherType, n, scope)
}

func (p *fileParser) leaf(kind program.TypeNodeKind, n *sitter.Node, scope *program.Scope) *program.TypeNode {
	return &program.TypeNode{
		Kind:  kind,
		Text:  lang.CollapseWhitespace(p.text(n)),
		Pos:   p.pos(n),
		Scope: scope,
		File:  p.file.Path,
	}
}

func (p *fileParser) refNode(n *sitter.Node, name string, scope *program.Scope) *program.TypeNode {
	t := p.leaf(program.RefType, n, scope)
	t.Name = name
	return t
}

func (p *fileParser) typeArgs(n *sitter.Node, scope *program.Scope) []*program.TypeNode {
	var args []*program.TypeNode
	for i := 0; i < int(n.NamedChildCount()); i++ {
		args = append(args, p.typeNode(n.NamedChild(i), scope))
	}
	return args
}

// flatten collects the members of a left-nested union or intersection in
// written order.
func (p *fileParser) flatten(n *sitter.Node, kind string, scope *program.Scope) []*program.TypeNode {
	var out []*program.TypeNode
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == kind {
			out = append(out, p.flatten(c, kind, scope)...)
			continue
		}
		out = append(out, p.typeNode(c, scope))
	}
	return out
}
