package enrich

import (
	"context"
	"fmt"

	slogctx "github.com/veqryn/slog-context"

	"github.com/phobologic/tsmodel/internal/extract"
	"github.com/phobologic/tsmodel/internal/graph"
	"github.com/phobologic/tsmodel/internal/model"
	"github.com/phobologic/tsmodel/internal/program"
	"github.com/phobologic/tsmodel/internal/report"
)

// ExternalPackage is the virtual package holding modules outside the project.
const ExternalPackage = "external"

// Imports draws the module graph: one DEPENDENCY per imported or re-exported
// module. It needs module classifiers and does nothing without them.
type Imports struct{}

func (e *Imports) Name() string { return "imports" }

func (e *Imports) Enrich(ctx context.Context, r *extract.Registry) error {
	prog := r.Program()
	for _, sf := range prog.Files() {
		src, ok := r.Module(sf.Path)
		if !ok {
			slogctx.Debug(ctx, "module classifiers disabled; skipping import graph")
			return nil
		}
		for _, imp := range sf.Imports {
			e.edge(r, src, sf.Path, imp.Spec, imp.Pos, "import", imp.TypeOnly)
		}
		for _, exp := range sf.Exports {
			if exp.Spec != "" {
				e.edge(r, src, sf.Path, exp.Spec, exp.Pos, "reexport", false)
			}
		}
	}
	return nil
}

func (e *Imports) edge(r *extract.Registry, src *model.Classifier, file, spec string, pos program.Pos, role string, typeOnly bool) {
	at := model.SourceRef{File: file, Line: pos.Line, Column: pos.Column}

	var target *model.Classifier
	if path, ok := r.Program().ResolveModule(spec, file); ok {
		target, _ = r.Module(path)
	} else if program.IsRelative(spec) {
		r.Report().AddFinding(report.UnresolvedImport, model.SeverityWarning,
			fmt.Sprintf("cannot resolve module %q imported by %s", spec, file),
			&at, model.Tag("file", file), model.Tag("specifier", spec))
		return
	} else {
		target = external(r, spec)
	}
	if target == nil || target.ID == src.ID {
		return
	}

	tags := []model.TaggedValue{model.Tag(graph.RoleTag, role)}
	if typeOnly {
		tags = append(tags, model.Tag("typeOnly", "true"))
	}
	r.Graph().Add(model.Dependency, src.ID, target.ID, at, tags...)
}

// external returns the synthetic MODULE classifier of a bare specifier.
func external(r *extract.Registry, spec string) *model.Classifier {
	pkg := r.VirtualPackage(ExternalPackage)
	c, created := r.EnsureClassifier(model.Module, "", ExternalPackage+"."+spec, spec, pkg)
	if created {
		c.SetTag("external", "true")
		c.SetTag("specifier", spec)
	}
	return c
}
