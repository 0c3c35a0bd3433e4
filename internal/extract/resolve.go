package extract

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	slogctx "github.com/veqryn/slog-context"

	"github.com/phobologic/tsmodel/internal/graph"
	"github.com/phobologic/tsmodel/internal/model"
	"github.com/phobologic/tsmodel/internal/program"
	"github.com/phobologic/tsmodel/internal/report"
	"github.com/phobologic/tsmodel/internal/typeref"
)

// Tag keys and values written by the resolution pass.
const (
	MultiplicityTag = "multiplicity"
	AccessorTag     = "accessor"
	AliasOfTag      = "aliasOf"
	ValueTag        = "value"

	RoleFieldType  = "field-type"
	RoleParamType  = "param-type"
	RoleReturnType = "return-type"
)

type resolver struct {
	ctx  context.Context
	r    *Registry
	deep bool
}

// resolve populates members of every declared classifier and draws the
// structural relations between them.
func resolve(ctx context.Context, r *Registry, deep bool) {
	rs := &resolver{ctx: ctx, r: r, deep: deep}
	// Only classifiers that existed when the pass began are walked.
	declared := append([]*model.Classifier(nil), r.order...)
	for _, c := range declared {
		if ctx.Err() != nil {
			return
		}
		for _, d := range r.decls[c.ID] {
			rs.decl(c, d)
		}
	}
}

func (rs *resolver) decl(c *model.Classifier, d *program.Decl) {
	switch d.Kind {
	case program.ClassDecl, program.InterfaceDecl:
		rs.heritage(c, d)
		rs.members(c, d)
	case program.EnumDecl:
		rs.enum(c, d)
	case program.TypeAliasDecl:
		if d.Aliased != nil {
			c.SetTag(AliasOfTag, d.Aliased.Text)
		}
	case program.FunctionDecl, program.VariableDecl:
		if d.Signature == nil {
			return
		}
		op := rs.operation(c, d.Name, d.Signature, sourceRef(d.File, d.Pos))
		op.IsAsync = d.Signature.Async
		c.Operations = append(c.Operations, op)
	}
}

func (rs *resolver) heritage(c *model.Classifier, d *program.Decl) {
	kind := model.Generalization
	for _, clause := range [2][]*program.TypeNode{d.Extends, d.Implements} {
		for _, tn := range clause {
			ref := rs.r.norm.NormalizeFromAnnotation(tn)
			target, many := typeref.Primary(ref)
			if target == "" || many || target == c.ID {
				slogctx.Debug(rs.ctx, "heritage target not declared",
					"classifier", c.QualifiedName, "kind", kind, "type", tn.Text)
				continue
			}
			rs.r.graph.Add(kind, c.ID, target, sourceRef(d.File, tn.Pos))
		}
		kind = model.Realization
	}
}

func (rs *resolver) members(c *model.Classifier, d *program.Decl) {
	for _, m := range d.Members {
		at := sourceRef(d.File, m.Pos)
		switch m.Kind {
		case program.FieldMember:
			ref := rs.memberType(m, m.Type)
			attr := newAttribute(m.Name, visibility(m.Visibility), ref, at)
			attr.IsStatic = m.Static
			attr.IsReadonly = m.Readonly
			attr.IsOptional = m.Optional
			attr.IsAbstract = m.Abstract
			rs.attribute(c, attr, m.Name)
		case program.GetterMember, program.SetterMember:
			rs.accessor(c, m, at)
		case program.MethodMember:
			op := rs.operation(c, m.Name, m.Signature, at)
			op.Visibility = visibility(m.Visibility)
			op.IsStatic = m.Static
			op.IsAbstract = m.Abstract
			op.IsAsync = m.Signature != nil && m.Signature.Async
			c.Operations = append(c.Operations, op)
		case program.ConstructorMember:
			op := rs.operation(c, "constructor", m.Signature, at)
			op.Visibility = visibility(m.Visibility)
			op.IsConstructor = true
			op.ReturnType = nil
			c.Operations = append(c.Operations, op)
			rs.parameterProperties(c, d.File, m.Signature)
		}
	}
}

// accessor merges get and set accessors of one name into a single attribute.
func (rs *resolver) accessor(c *model.Classifier, m *program.Member, at model.SourceRef) {
	for _, existing := range c.Attributes {
		if existing.Name != m.Name {
			continue
		}
		if v, ok := model.Lookup(existing.TaggedValues, AccessorTag); ok && v != string(m.Kind) {
			existing.TaggedValues = model.SetTag(existing.TaggedValues, AccessorTag, "get,set")
		}
		return
	}

	var annotation *program.TypeNode
	if m.Signature != nil {
		if m.Kind == program.GetterMember {
			annotation = m.Signature.Return
		} else if len(m.Signature.Params) > 0 {
			annotation = m.Signature.Params[0].Type
		}
	}
	ref := rs.memberType(m, annotation)
	attr := newAttribute(m.Name, visibility(m.Visibility), ref, at)
	attr.IsStatic = m.Static
	attr.IsAbstract = m.Abstract
	attr.TaggedValues = []model.TaggedValue{model.Tag(AccessorTag, string(m.Kind))}
	rs.attribute(c, attr, m.Name)
}

// parameterProperties turns constructor parameters declared with a
// visibility or readonly modifier into attributes.
func (rs *resolver) parameterProperties(c *model.Classifier, file string, sig *program.Signature) {
	if sig == nil {
		return
	}
	for _, p := range sig.Params {
		if !p.IsProperty() {
			continue
		}
		ref := rs.paramType(p)
		attr := newAttribute(p.Name, visibility(p.Visibility), ref, sourceRef(file, p.Pos))
		attr.IsReadonly = p.Readonly
		attr.IsOptional = p.Optional
		attr.TaggedValues = []model.TaggedValue{model.Tag("parameterProperty", "true")}
		rs.attribute(c, attr, p.Name)
	}
}

// attribute attaches attr to c and draws the association and dependency
// edges its type implies.
func (rs *resolver) attribute(c *model.Classifier, attr *model.Attribute, member string) {
	c.Attributes = append(c.Attributes, attr)
	rs.reportUnresolved(c, member, attr.Type, attr.SourceRef)

	at := *attr.SourceRef
	if target, multiplicity := associationTarget(attr.Type, attr.IsOptional); target != "" {
		tags := []model.TaggedValue{model.Tag(graph.MemberTag, member)}
		if multiplicity != "" {
			tags = append(tags, model.Tag(MultiplicityTag, multiplicity))
		}
		rs.r.graph.Add(model.Association, c.ID, target, at, tags...)
	}
	rs.dependencies(c, attr.Type, RoleFieldType, at)
}

func (rs *resolver) operation(c *model.Classifier, name string, sig *program.Signature, at model.SourceRef) *model.Operation {
	op := &model.Operation{
		Name:           name,
		Visibility:     model.Public,
		Parameters:     []*model.Parameter{},
		StereotypeRefs: []model.StereotypeRef{},
		SourceRef:      &at,
	}
	if sig == nil {
		return op
	}
	for _, p := range sig.Params {
		ref := rs.paramType(p)
		op.Parameters = append(op.Parameters, &model.Parameter{
			Name:       p.Name,
			Type:       ref,
			IsOptional: p.Optional || p.Initializer != nil,
			IsRest:     p.Rest,
		})
		pAt := sourceRef(at.File, p.Pos)
		rs.reportUnresolved(c, name, ref, &pAt)
		rs.dependencies(c, ref, RoleParamType, pAt)
	}
	if sig.Return != nil {
		op.ReturnType = rs.r.norm.NormalizeFromAnnotation(sig.Return)
		rs.reportUnresolved(c, name, op.ReturnType, &at)
		rs.dependencies(c, op.ReturnType, RoleReturnType, at)
	}
	return op
}

func (rs *resolver) memberType(m *program.Member, annotation *program.TypeNode) *model.TypeRef {
	if annotation != nil {
		return rs.r.norm.NormalizeFromAnnotation(annotation)
	}
	return rs.r.norm.Normalize(rs.r.prog.Checker().TypeAtLocation(m))
}

func (rs *resolver) paramType(p *program.Param) *model.TypeRef {
	if p.Type != nil {
		return rs.r.norm.NormalizeFromAnnotation(p.Type)
	}
	return rs.r.norm.Normalize(rs.r.prog.Checker().TypeAtLocation(p))
}

// dependencies draws a DEPENDENCY to every declared classifier reachable from
// ref when deep dependencies are enabled.
func (rs *resolver) dependencies(c *model.Classifier, ref *model.TypeRef, role string, at model.SourceRef) {
	if !rs.deep {
		return
	}
	for _, target := range typeref.Targets(ref) {
		if target == c.ID {
			continue
		}
		rs.r.graph.Add(model.Dependency, c.ID, target, at, model.Tag(graph.RoleTag, role))
	}
}

func (rs *resolver) reportUnresolved(c *model.Classifier, member string, ref *model.TypeRef, at *model.SourceRef) {
	for _, name := range typeref.Unresolved(ref) {
		rs.r.report.AddFinding(report.UnresolvedType, model.SeverityWarning,
			fmt.Sprintf("cannot resolve type %s in %s.%s", name, c.QualifiedName, member),
			at,
			model.Tag("classifier", c.QualifiedName),
			model.Tag("member", member),
			model.Tag("type", name))
	}
}

// enum models each member as a static readonly attribute. Members without an
// initializer continue numbering from the previous numeric value.
func (rs *resolver) enum(c *model.Classifier, d *program.Decl) {
	next, numeric := 0, true
	for _, m := range d.EnumMembers {
		typ := &model.TypeRef{Kind: model.Primitive, Name: "number"}
		value := ""
		switch {
		case m.Value == "":
			if numeric {
				value = strconv.Itoa(next)
				next++
			}
		case isStringLiteral(m.Value):
			typ.Name = "string"
			value = unquote(m.Value)
			numeric = false
		default:
			value = m.Value
			if n, err := strconv.Atoi(m.Value); err == nil {
				next, numeric = n+1, true
			} else {
				numeric = false
			}
		}
		attr := newAttribute(m.Name, model.Public, typ, sourceRef(d.File, m.Pos))
		attr.IsStatic = true
		attr.IsReadonly = true
		if value != "" {
			attr.TaggedValues = []model.TaggedValue{model.Tag(ValueTag, value)}
		}
		c.Attributes = append(c.Attributes, attr)
	}
}

// associationTarget returns the classifier a member type points at directly,
// after removing null and undefined from a union and looking through arrays.
func associationTarget(ref *model.TypeRef, optional bool) (target, multiplicity string) {
	if ref != nil && ref.Kind == model.Union {
		var rest []*model.TypeRef
		for _, m := range ref.TypeArgs {
			if isNullish(m) {
				optional = true
				continue
			}
			rest = append(rest, m)
		}
		if len(rest) != 1 {
			return "", ""
		}
		ref = rest[0]
	}
	target, many := typeref.Primary(ref)
	if target == "" {
		return "", ""
	}
	switch {
	case many:
		return target, "*"
	case optional:
		return target, "0..1"
	}
	return target, ""
}

func isNullish(ref *model.TypeRef) bool {
	return ref.Kind == model.Primitive && (ref.Name == "null" || ref.Name == "undefined")
}

func newAttribute(name string, vis model.Visibility, typ *model.TypeRef, at model.SourceRef) *model.Attribute {
	return &model.Attribute{
		Name:           name,
		Visibility:     vis,
		Type:           typ,
		StereotypeRefs: []model.StereotypeRef{},
		SourceRef:      &at,
	}
}

func visibility(written string) model.Visibility {
	switch written {
	case "private":
		return model.Private
	case "protected":
		return model.Protected
	}
	return model.Public
}

func isStringLiteral(s string) bool {
	return len(s) >= 2 && strings.ContainsRune(`'"`+"`", rune(s[0])) && s[len(s)-1] == s[0]
}

func unquote(s string) string {
	if isStringLiteral(s) {
		return s[1 : len(s)-1]
	}
	return s
}
