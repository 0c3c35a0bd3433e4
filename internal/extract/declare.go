package extract

import (
	"context"
	"fmt"
	"path"

	"github.com/phobologic/tsmodel/internal/model"
	"github.com/phobologic/tsmodel/internal/program"
	"github.com/phobologic/tsmodel/internal/report"
)

// declare registers one classifier per qualifying top-level declaration and
// records the declaring symbol of each. No relation is added here: every
// classifier must exist before the first edge is drawn.
func declare(ctx context.Context, r *Registry, modules bool) {
	for _, sf := range r.prog.Files() {
		if ctx.Err() != nil {
			return
		}
		pkg := r.DirPackage(sf.Path)
		if sf.SyntaxErrors > 0 {
			r.report.AddFinding(report.ParseError, model.SeverityInfo,
				fmt.Sprintf("%s has %d syntax errors; declarations may be incomplete", sf.Path, sf.SyntaxErrors),
				&model.SourceRef{File: sf.Path, Line: 1, Column: 1},
				model.Tag("file", sf.Path))
		}
		if modules {
			declareModule(r, sf, pkg)
		}
		for _, d := range sf.Decls {
			declareDecl(r, sf, pkg, d)
		}
	}
}

func declareModule(r *Registry, sf *program.SourceFile, pkg *model.Package) {
	c, _ := r.EnsureClassifier(model.Module, sf.Path, sf.Path, path.Base(sf.Path), pkg)
	c.SourceRef = &model.SourceRef{File: sf.Path, Line: 1, Column: 1}
	c.SetTag(PathTag, sf.Path)
	c.SetTag("language", sf.Language)
	r.modules[sf.Path] = c.ID
}

// classifierKind maps a declaration to the kind it is modeled as. Variables
// qualify only when their initializer is function-like.
func classifierKind(d *program.Decl) (model.ClassifierKind, bool) {
	switch d.Kind {
	case program.ClassDecl:
		return model.Class, true
	case program.InterfaceDecl:
		return model.Interface, true
	case program.EnumDecl:
		return model.Enum, true
	case program.TypeAliasDecl:
		return model.TypeAlias, true
	case program.FunctionDecl:
		return model.Function, true
	case program.VariableDecl:
		if d.Signature != nil {
			return model.Function, true
		}
	}
	return "", false
}

func declareDecl(r *Registry, sf *program.SourceFile, pkg *model.Package, d *program.Decl) {
	if d.Name == "" {
		return
	}
	kind, ok := classifierKind(d)
	if !ok {
		return
	}

	// Merged declarations and overloads share a symbol and so share the
	// classifier of the first declaration.
	if d.Symbol != nil {
		if b, bound := r.symbols[d.Symbol]; bound {
			r.decls[b.id] = append(r.decls[b.id], d)
			applyDeclTags(r.classifiers[b.id], d)
			return
		}
	}

	c, created := r.EnsureClassifier(kind, sf.Path, qualify(pkg, d.Name), d.Name, pkg)
	if created {
		ref := sourceRef(sf.Path, d.Pos)
		c.SourceRef = &ref
		c.IsAbstract = d.Abstract
		if len(d.TypeParams) > 0 {
			c.TypeParameters = append([]string(nil), d.TypeParams...)
		}
	}
	applyDeclTags(c, d)
	r.decls[c.ID] = append(r.decls[c.ID], d)
	if d.Symbol != nil {
		r.symbols[d.Symbol] = binding{id: c.ID, kind: kind}
	}
}

func applyDeclTags(c *model.Classifier, d *program.Decl) {
	if d.Exported {
		c.SetTag(ExportedTag, "true")
	}
	if d.Default {
		c.SetTag(DefaultTag, "true")
	}
	if d.Ambient {
		c.SetTag("ambient", "true")
	}
}
