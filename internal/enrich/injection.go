package enrich

import (
	"context"

	slogctx "github.com/veqryn/slog-context"

	"github.com/phobologic/tsmodel/internal/extract"
	"github.com/phobologic/tsmodel/internal/graph"
	"github.com/phobologic/tsmodel/internal/model"
	"github.com/phobologic/tsmodel/internal/program"
	"github.com/phobologic/tsmodel/internal/stereotype"
	"github.com/phobologic/tsmodel/internal/typeref"
)

// DI tag keys.
const (
	OriginTag       = "origin"
	TokenTag        = "token"
	ProvideTag      = "provide"
	UseClassTag     = "useClass"
	ProviderKindTag = "providerKind"
	ScopeTag        = "scope"
)

var providerKinds = []string{"useClass", "useExisting", "useValue", "useFactory"}

// Injection draws DI edges for constructor injection and for provider
// registrations in decorator arguments.
type Injection struct{}

func (e *Injection) Name() string { return "injection" }

func (e *Injection) Enrich(ctx context.Context, r *extract.Registry) error {
	for _, c := range r.Classifiers() {
		if !injectable(c) {
			continue
		}
		for _, d := range r.Declarations(c.ID) {
			if d.Kind != program.ClassDecl {
				continue
			}
			e.constructor(ctx, r, c, d)
			e.providers(ctx, r, c, d)
		}
	}
	return nil
}

// injectable reports whether c takes part in a framework's injection.
func injectable(c *model.Classifier) bool {
	if c.Kind == model.Service || c.Kind == model.Component {
		return true
	}
	fw, ok := model.Lookup(c.TaggedValues, stereotype.FrameworkTag)
	return ok && fw != GenericFramework
}

func (e *Injection) constructor(ctx context.Context, r *extract.Registry, c *model.Classifier, d *program.Decl) {
	for _, m := range d.Members {
		if m.Kind != program.ConstructorMember || m.Signature == nil {
			continue
		}
		for _, p := range m.Signature.Params {
			tags := []model.TaggedValue{
				model.Tag(graph.RoleTag, "inject"),
				model.Tag(OriginTag, "constructor"),
				model.Tag(graph.MemberTag, p.Name),
			}
			var target string
			if p.Type != nil {
				target, _ = typeref.Primary(r.Normalizer().NormalizeFromAnnotation(p.Type))
			}
			if tok := injectToken(p); tok != nil {
				tags = append(tags, model.Tag(TokenTag, tok.Text))
				if target == "" && tok.Kind == program.IdentExpr {
					target = resolveIdent(r, d.File, tok.Text)
				}
			}
			if target == "" || target == c.ID {
				slogctx.Debug(ctx, "injected type not declared", "classifier", c.QualifiedName, "param", p.Name)
				continue
			}
			r.Graph().Add(model.DI, c.ID, target, model.SourceRef{File: d.File, Line: p.Pos.Line, Column: p.Pos.Column}, tags...)
		}
	}
}

// injectToken returns the first argument of an @Inject decorator.
func injectToken(p *program.Param) *program.Expr {
	for _, dec := range p.Decorators {
		if localName(dec.Name) == "Inject" && len(dec.Args) > 0 {
			return dec.Args[0]
		}
	}
	return nil
}

func (e *Injection) providers(ctx context.Context, r *extract.Registry, c *model.Classifier, d *program.Decl) {
	for _, dec := range d.Decorators {
		for _, arg := range dec.Args {
			list := arg.Prop("providers")
			if list == nil || list.Kind != program.ArrayExpr {
				continue
			}
			for _, item := range list.Elems {
				e.provider(ctx, r, c, d.File, item)
			}
		}
	}
}

func (e *Injection) provider(ctx context.Context, r *extract.Registry, c *model.Classifier, file string, item *program.Expr) {
	at := model.SourceRef{File: file, Line: item.Pos.Line, Column: item.Pos.Column}
	tags := []model.TaggedValue{
		model.Tag(graph.RoleTag, "provide"),
		model.Tag(OriginTag, "provider"),
	}

	var target string
	switch item.Kind {
	case program.IdentExpr:
		target = resolveIdent(r, file, item.Text)
		tags = append(tags, model.Tag(ProviderKindTag, "class"), model.Tag(ProvideTag, item.Text))
	case program.ObjectExpr:
		provide := item.Prop("provide")
		if provide != nil {
			tags = append(tags, model.Tag(ProvideTag, provide.Text))
		}
		kind := "class"
		for _, k := range providerKinds {
			v := item.Prop(k)
			if v == nil {
				continue
			}
			kind = k
			if k == "useClass" {
				tags = append(tags, model.Tag(UseClassTag, v.Text))
			}
			if (k == "useClass" || k == "useExisting") && v.Kind == program.IdentExpr {
				target = resolveIdent(r, file, v.Text)
			}
			break
		}
		tags = append(tags, model.Tag(ProviderKindTag, kind))
		if target == "" && provide != nil && provide.Kind == program.IdentExpr {
			target = resolveIdent(r, file, provide.Text)
		}
		if scope := item.Prop("scope"); scope != nil {
			tags = append(tags, model.Tag(ScopeTag, scope.Text))
		}
	default:
		return
	}
	if target == "" {
		slogctx.Debug(ctx, "provider not declared", "classifier", c.QualifiedName, "provider", item.Text)
		return
	}
	r.Graph().Add(model.DI, c.ID, target, at, tags...)
}

// resolveIdent binds an identifier written in file to a declared classifier.
func resolveIdent(r *extract.Registry, file, name string) string {
	ref := r.Normalizer().NormalizeFromAnnotation(&program.TypeNode{
		Kind: program.RefType,
		Name: name,
		Text: name,
		File: file,
	})
	target, many := typeref.Primary(ref)
	if many {
		return ""
	}
	return target
}
