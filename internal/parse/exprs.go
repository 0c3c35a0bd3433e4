package parse

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/tsmodel/internal/lang"
	"github.com/phobologic/tsmodel/internal/program"
)

// maxExprDepth bounds how deep decorator arguments are read.
const maxExprDepth = 8

func (p *fileParser) decorator(n *sitter.Node) *program.Decorator {
	d := &program.Decorator{Pos: p.pos(n)}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "identifier", "member_expression":
			d.Name = lang.CollapseWhitespace(p.text(c))
		case "call_expression":
			d.Called = true
			if fn := c.ChildByFieldName("function"); fn != nil {
				d.Name = lang.CollapseWhitespace(p.text(fn))
			}
			if args := c.ChildByFieldName("arguments"); args != nil {
				for j := 0; j < int(args.NamedChildCount()); j++ {
					d.Args = append(d.Args, p.expr(args.NamedChild(j), 0))
				}
			}
		}
	}
	return d
}

// expr reads a decorator argument into a shallow expression tree.
func (p *fileParser) expr(n *sitter.Node, depth int) *program.Expr {
	e := &program.Expr{Kind: program.OtherExpr, Text: lang.CollapseWhitespace(p.text(n)), Pos: p.pos(n)}
	if depth > maxExprDepth {
		return e
	}
	switch n.Type() {
	case "identifier", "member_expression", "this":
		e.Kind = program.IdentExpr
	case "string", "template_string":
		e.Kind = program.StringExpr
		e.Text = unquote(e.Text)
	case "number":
		e.Kind = program.NumberExpr
	case "true", "false":
		e.Kind = program.BoolExpr
	case "parenthesized_expression", "as_expression", "satisfies_expression", "non_null_expression":
		if n.NamedChildCount() > 0 {
			return p.expr(n.NamedChild(0), depth+1)
		}
	case "array":
		e.Kind = program.ArrayExpr
		for i := 0; i < int(n.NamedChildCount()); i++ {
			e.Elems = append(e.Elems, p.expr(n.NamedChild(i), depth+1))
		}
	case "object":
		e.Kind = program.ObjectExpr
		for i := 0; i < int(n.NamedChildCount()); i++ {
			c := n.NamedChild(i)
			switch c.Type() {
			case "pair":
				key, value := c.ChildByFieldName("key"), c.ChildByFieldName("value")
				if key == nil || value == nil {
					continue
				}
				e.Props = append(e.Props, &program.Property{
					Key:   unquote(p.text(key)),
					Value: p.expr(value, depth+1),
				})
			case "shorthand_property_identifier":
				name := p.text(c)
				e.Props = append(e.Props, &program.Property{
					Key:   name,
					Value: &program.Expr{Kind: program.IdentExpr, Text: name, Pos: p.pos(c)},
				})
			}
		}
	case "call_expression", "new_expression":
		e.Kind = program.CallExpr
		fn := n.ChildByFieldName("function")
		if fn == nil {
			fn = n.ChildByFieldName("constructor")
		}
		if fn != nil {
			e.Text = lang.CollapseWhitespace(p.text(fn))
		}
		if args := n.ChildByFieldName("arguments"); args != nil {
			for i := 0; i < int(args.NamedChildCount()); i++ {
				e.Elems = append(e.Elems, p.expr(args.NamedChild(i), depth+1))
			}
		}
	}
	return e
}

// initializer classifies a variable, field, or parameter initializer.
func (p *fileParser) initializer(n *sitter.Node) *program.Initializer {
	init := &program.Initializer{Kind: program.InitOther, Text: lang.CollapseWhitespace(p.text(n)), File: p.file.Path}
	switch n.Type() {
	case "new_expression":
		init.Kind = program.InitNew
		if ctor := n.ChildByFieldName("constructor"); ctor != nil {
			init.Callee = lang.CollapseWhitespace(p.text(ctor))
		}
	case "string", "template_string":
		init.Kind = program.InitString
	case "number":
		init.Kind = program.InitNumber
	case "true", "false":
		init.Kind = program.InitBoolean
	case "array":
		init.Kind = program.InitArray
	case "arrow_function", "function", "function_expression", "generator_function":
		init.Kind = program.InitFunction
	case "parenthesized_expression", "as_expression", "satisfies_expression":
		if n.NamedChildCount() > 0 {
			inner := p.initializer(n.NamedChild(0))
			inner.Text = init.Text
			return inner
		}
	}
	return init
}
