package parse

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/tsmodel/internal/lang"
	"github.com/phobologic/tsmodel/internal/program"
)

// classBody reads class members. Method decorators are siblings that precede
// the method, so they are carried forward until the next member.
func (p *fileParser) classBody(body *sitter.Node, scope *program.Scope) []*program.Member {
	var members []*program.Member
	var pending []*program.Decorator
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		var m *program.Member
		switch c.Type() {
		case "decorator":
			pending = append(pending, p.decorator(c))
			continue
		case "method_definition", "method_signature", "abstract_method_signature":
			m = p.method(c, scope)
		case "public_field_definition", "property_signature":
			m = p.field(c, scope)
		case "index_signature":
			m = p.index(c, scope)
		default:
			continue
		}
		m.Decorators = append(pending, m.Decorators...)
		pending = nil
		members = append(members, m)
	}
	return members
}

// objectMembers reads interface or object-type members.
func (p *fileParser) objectMembers(body *sitter.Node, scope *program.Scope) []*program.Member {
	var members []*program.Member
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		switch c.Type() {
		case "property_signature":
			members = append(members, p.field(c, scope))
		case "method_signature":
			members = append(members, p.method(c, scope))
		case "index_signature":
			members = append(members, p.index(c, scope))
		case "construct_signature":
			m := &program.Member{Kind: program.ConstructorMember, Name: "constructor", Pos: p.pos(c)}
			m.Signature = p.signature(c, scope)
			members = append(members, m)
		case "call_signature":
			m := &program.Member{Kind: program.MethodMember, Name: "call", Pos: p.pos(c)}
			m.Signature = p.signature(c, scope)
			members = append(members, m)
		}
	}
	return members
}

// modifiers applies modifier tokens shared by fields and methods.
func (p *fileParser) modifiers(n *sitter.Node, m *program.Member) {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "accessibility_modifier":
			m.Visibility = p.text(c)
		case "decorator":
			m.Decorators = append(m.Decorators, p.decorator(c))
		case "static":
			m.Static = !c.IsNamed()
		case "readonly":
			m.Readonly = true
		case "abstract":
			m.Abstract = true
		case "?":
			m.Optional = true
		}
	}
}

func (p *fileParser) memberName(n *sitter.Node, m *program.Member) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	m.Name = unquote(lang.CollapseWhitespace(p.text(name)))
	m.Pos = p.pos(name)
	m.PrivateName = strings.HasPrefix(m.Name, "#")
	if m.PrivateName && m.Visibility == "" {
		m.Visibility = "private"
	}
}

func (p *fileParser) field(n *sitter.Node, scope *program.Scope) *program.Member {
	m := &program.Member{Kind: program.FieldMember, Pos: p.pos(n)}
	p.modifiers(n, m)
	p.memberName(n, m)
	if t := n.ChildByFieldName("type"); t != nil {
		m.Type = p.typeNode(t, scope)
	}
	if value := n.ChildByFieldName("value"); value != nil {
		m.Initializer = p.initializer(value)
	}
	return m
}

func (p *fileParser) method(n *sitter.Node, scope *program.Scope) *program.Member {
	m := &program.Member{Kind: program.MethodMember, Pos: p.pos(n)}
	p.modifiers(n, m)
	p.memberName(n, m)
	if n.Type() == "abstract_method_signature" {
		m.Abstract = true
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.IsNamed() {
			continue
		}
		switch c.Type() {
		case "get":
			m.Kind = program.GetterMember
		case "set":
			m.Kind = program.SetterMember
		}
	}
	if m.Name == "constructor" {
		m.Kind = program.ConstructorMember
	}

	m.Signature = p.signature(n, scope)
	return m
}

func (p *fileParser) index(n *sitter.Node, scope *program.Scope) *program.Member {
	m := &program.Member{Kind: program.IndexMember, Name: "[index]", Pos: p.pos(n)}
	p.modifiers(n, m)
	if t := n.ChildByFieldName("type"); t != nil {
		m.Type = p.typeNode(t, scope)
	} else {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); c.Type() == "type_annotation" {
				m.Type = p.typeNode(c, scope)
			}
		}
	}
	return m
}

// signature reads type parameters, parameters, and the return annotation of
// any function-like node.
func (p *fileParser) signature(n *sitter.Node, outer *program.Scope) *program.Signature {
	sig := &program.Signature{
		TypeParams: p.typeParams(n.ChildByFieldName("type_parameters")),
		Async:      hasToken(n, "async"),
	}
	scope := outer
	if len(sig.TypeParams) > 0 {
		scope = &program.Scope{Params: sig.TypeParams, Parent: outer}
	}

	if params := n.ChildByFieldName("parameters"); params != nil {
		sig.Params = p.params(params, scope)
	} else if single := n.ChildByFieldName("parameter"); single != nil {
		// x => ...
		sig.Params = []*program.Param{{Name: p.text(single), Pos: p.pos(single)}}
	}
	if ret := n.ChildByFieldName("return_type"); ret != nil {
		sig.Return = p.typeNode(ret, scope)
	}
	return sig
}

func (p *fileParser) params(n *sitter.Node, scope *program.Scope) []*program.Param {
	var out []*program.Param
	var pending []*program.Decorator
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "decorator":
			pending = append(pending, p.decorator(c))
			continue
		case "required_parameter", "optional_parameter":
		default:
			continue
		}

		param := &program.Param{Pos: p.pos(c), Optional: c.Type() == "optional_parameter"}
		param.Decorators, pending = pending, nil
		for j := 0; j < int(c.ChildCount()); j++ {
			gc := c.Child(j)
			switch gc.Type() {
			case "decorator":
				param.Decorators = append(param.Decorators, p.decorator(gc))
			case "accessibility_modifier":
				param.Visibility = p.text(gc)
			case "readonly":
				param.Readonly = true
			case "?":
				param.Optional = true
			}
		}

		pattern := c.ChildByFieldName("pattern")
		if pattern == nil {
			pattern = c.ChildByFieldName("name")
		}
		if pattern != nil {
			switch pattern.Type() {
			case "this":
				continue
			case "rest_pattern":
				param.Rest = true
				if pattern.NamedChildCount() > 0 {
					param.Name = p.text(pattern.NamedChild(0))
				}
			default:
				param.Name = lang.CollapseWhitespace(p.text(pattern))
			}
			param.Pos = p.pos(pattern)
		}
		if t := c.ChildByFieldName("type"); t != nil {
			param.Type = p.typeNode(t, scope)
		}
		if value := c.ChildByFieldName("value"); value != nil {
			param.Initializer = p.initializer(value)
		}
		out = append(out, param)
	}
	return out
}
