package enrich

import (
	"context"
	"strings"

	slogctx "github.com/veqryn/slog-context"

	"github.com/phobologic/tsmodel/internal/extract"
	"github.com/phobologic/tsmodel/internal/model"
	"github.com/phobologic/tsmodel/internal/program"
	"github.com/phobologic/tsmodel/internal/stereotype"
)

// DecoratorsTag lists the decorators applied to a parameter.
const DecoratorsTag = "decorators"

// kindDecorators promote a class to a richer classifier kind when the
// decorator comes from a known framework.
var kindDecorators = map[string]model.ClassifierKind{
	"Component":  model.Component,
	"Controller": model.Component,
	"Injectable": model.Service,
}

// Decorators turns decorators into ad hoc stereotypes namespaced by the
// framework they were imported from.
type Decorators struct {
	Frameworks *Frameworks
}

func (e *Decorators) Name() string { return "decorators" }

func (e *Decorators) Enrich(ctx context.Context, r *extract.Registry) error {
	if e.Frameworks == nil {
		e.Frameworks = NewFrameworks(nil)
	}
	imports := newImportIndex(r.Program().Files())
	applied := 0
	for _, c := range r.Classifiers() {
		for _, d := range r.Declarations(c.ID) {
			if d.Kind != program.ClassDecl {
				continue
			}
			applied += e.class(r, imports, c, d)
		}
	}
	slogctx.Debug(ctx, "decorators applied", "count", applied)
	return nil
}

func (e *Decorators) framework(imports importIndex, file string, dec *program.Decorator) string {
	return e.Frameworks.Lookup(imports.spec(file, dec.Name))
}

func (e *Decorators) class(r *extract.Registry, imports importIndex, c *model.Classifier, d *program.Decl) int {
	n := 0
	for _, dec := range d.Decorators {
		fw := e.framework(imports, d.File, dec)
		name := localName(dec.Name)
		c.AddStereotype(newStereotype(fw, name))
		n++
		if fw == GenericFramework {
			continue
		}
		if _, ok := model.Lookup(c.TaggedValues, stereotype.FrameworkTag); !ok {
			c.SetTag(stereotype.FrameworkTag, fw)
		}
		if kind, ok := kindDecorators[name]; ok && c.Kind == model.Class {
			r.SetKind(c, kind)
		}
		for _, arg := range dec.Args {
			for _, p := range arg.Props {
				if p.Value != nil && p.Value.Kind == program.StringExpr {
					c.SetTag(name+"."+p.Key, p.Value.Text)
				}
			}
		}
	}

	for _, m := range d.Members {
		for _, dec := range m.Decorators {
			fw := e.framework(imports, d.File, dec)
			s := newStereotype(fw, localName(dec.Name))
			switch m.Kind {
			case program.FieldMember, program.GetterMember, program.SetterMember:
				if a := findAttribute(c, m.Name); a != nil {
					a.AddStereotype(s)
					tagFramework(&a.TaggedValues, fw)
					n++
				}
			default:
				if o := findOperation(c, operationName(m)); o != nil {
					o.AddStereotype(s)
					tagFramework(&o.TaggedValues, fw)
					n++
				}
			}
		}
		if m.Signature == nil {
			continue
		}
		n += e.params(imports, c, d.File, m)
	}
	return n
}

// params records parameter decorators on the parameter and its operation. A
// decorated parameter property also stereotypes its attribute.
func (e *Decorators) params(imports importIndex, c *model.Classifier, file string, m *program.Member) int {
	o := findOperation(c, operationName(m))
	if o == nil {
		return 0
	}
	n := 0
	for i, p := range m.Signature.Params {
		if len(p.Decorators) == 0 {
			continue
		}
		var names []string
		for _, dec := range p.Decorators {
			fw := e.framework(imports, file, dec)
			s := newStereotype(fw, localName(dec.Name))
			o.AddStereotype(s)
			tagFramework(&o.TaggedValues, fw)
			if p.IsProperty() {
				if a := findAttribute(c, p.Name); a != nil {
					a.AddStereotype(s)
					tagFramework(&a.TaggedValues, fw)
				}
			}
			names = append(names, localName(dec.Name))
			n++
		}
		if i < len(o.Parameters) {
			o.Parameters[i].TaggedValues = model.SetTag(o.Parameters[i].TaggedValues, DecoratorsTag, strings.Join(names, ","))
		}
	}
	return n
}

func newStereotype(framework, name string) model.Stereotype {
	return model.Stereotype{Name: name, QualifiedName: framework + "." + name}
}

func tagFramework(tags *[]model.TaggedValue, fw string) {
	if fw == GenericFramework {
		return
	}
	if _, ok := model.Lookup(*tags, stereotype.FrameworkTag); !ok {
		*tags = model.SetTag(*tags, stereotype.FrameworkTag, fw)
	}
}

func localName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

func operationName(m *program.Member) string {
	if m.Kind == program.ConstructorMember {
		return "constructor"
	}
	return m.Name
}

func findAttribute(c *model.Classifier, name string) *model.Attribute {
	for _, a := range c.Attributes {
		if a.Name == name {
			return a
		}
	}
	return nil
}

func findOperation(c *model.Classifier, name string) *model.Operation {
	for _, o := range c.Operations {
		if o.Name == name {
			return o
		}
	}
	return nil
}
