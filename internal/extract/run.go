// Package extract builds an IR model from a loaded program.
//
// Extraction runs in fixed order: the declaration pass registers every
// classifier, the resolution pass fills in members and structural relations,
// enrichers add framework knowledge through the same Registry, and the
// stereotype registry is derived last.
package extract

import (
	"context"
	"strconv"
	"time"

	slogctx "github.com/veqryn/slog-context"
	"gitlab.com/tozd/go/errors"

	"github.com/phobologic/tsmodel/internal/model"
	"github.com/phobologic/tsmodel/internal/program"
	"github.com/phobologic/tsmodel/internal/report"
	"github.com/phobologic/tsmodel/internal/stereotype"
)

// Enricher is a pass that runs after resolution. It may ensure new
// classifiers, tag and stereotype existing ones, and add relations through
// Registry.Graph.
type Enricher interface {
	Name() string
	Enrich(ctx context.Context, r *Registry) error
}

// Options control a run.
type Options struct {
	// DeepDependencies draws DEPENDENCY edges to every classifier reachable
	// from member and signature types.
	DeepDependencies bool
	// ModuleClassifiers declares one MODULE classifier per source file.
	ModuleClassifiers bool
	// MaxTypeDepth bounds type normalization; zero keeps the default.
	MaxTypeDepth int
	Enrichers    []Enricher
}

// Result is the outcome of a run.
type Result struct {
	Model  *model.IrModel
	Report *report.Report
}

// Run extracts the model of prog.
func Run(ctx context.Context, prog program.Program, opts Options) (*Result, error) {
	r := NewRegistry(prog, opts.MaxTypeDepth)

	timed(ctx, "declare", func() { declare(ctx, r, opts.ModuleClassifiers) }, "classifiers", func() int { return len(r.order) })
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}
	timed(ctx, "resolve", func() { resolve(ctx, r, opts.DeepDependencies) }, "relations", r.graph.Len)
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	for _, e := range opts.Enrichers {
		start := time.Now()
		before := r.graph.Len()
		if err := e.Enrich(ctx, r); err != nil {
			return nil, errors.Errorf("enrich %s: %w", e.Name(), err)
		}
		slogctx.Info(ctx, "pass.timing", "pass", e.Name(), "relations", r.graph.Len()-before, "elapsed", time.Since(start))
	}

	m := r.Model()
	timed(ctx, "stereotypes", func() { stereotype.Build(m) }, "definitions", func() int { return len(m.StereotypeDefinitions) })

	m.TaggedValues = append(m.TaggedValues,
		model.Tag("source", "typescript"),
		model.Tag("files", strconv.Itoa(len(prog.Files()))),
	)
	return &Result{Model: m, Report: r.report}, nil
}

func timed(ctx context.Context, pass string, fn func(), countKey string, count func() int) {
	start := time.Now()
	fn()
	slogctx.Info(ctx, "pass.timing", "pass", pass, countKey, count(), "elapsed", time.Since(start))
}
