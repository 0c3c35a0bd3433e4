// Package tsprogram is the program provider used by the CLI. It parses every
// discovered file with tree-sitter, binds top-level declarations, imports and
// re-exports into symbols, and answers type questions syntactically.
package tsprogram

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
	slogctx "github.com/veqryn/slog-context"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/phobologic/tsmodel/internal/discover"
	"github.com/phobologic/tsmodel/internal/lang"
	"github.com/phobologic/tsmodel/internal/parse"
	"github.com/phobologic/tsmodel/internal/program"
)

// ErrNoFiles is returned when no file could be loaded.
var ErrNoFiles = errors.Base("no TypeScript files could be loaded")

// defaultCacheSize bounds the module resolution cache.
const defaultCacheSize = 4096

type options struct {
	baseURL   string
	paths     map[string][]string
	cacheSize int
}

// Option configures Load.
type Option func(*options)

// WithBaseURL resolves bare specifiers against dir, relative to the root.
func WithBaseURL(dir string) Option {
	return func(o *options) { o.baseURL = dir }
}

// WithPaths sets tsconfig-style path aliases such as "@app/*": ["src/app/*"].
func WithPaths(paths map[string][]string) Option {
	return func(o *options) { o.paths = paths }
}

// WithCacheSize sets the number of memoized module resolutions.
func WithCacheSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.cacheSize = n
		}
	}
}

// Program implements program.Program.
type Program struct {
	root     string
	files    []*program.SourceFile
	scopes   map[string]*fileScope
	resolver *resolver
	binder   *binder
	checker  *Checker
}

var _ program.Program = (*Program)(nil)

// Source is one file handed to FromSources.
type Source struct {
	Path     string
	Language string
	Content  []byte
}

// Load reads and parses files under root. Unreadable files are skipped with
// a warning.
func Load(ctx context.Context, root string, files []discover.FileEntry, opts ...Option) (*Program, error) {
	start := time.Now()

	sources := make([]*Source, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(f.Path)))
			if err != nil {
				slogctx.Warn(ctx, "skipping unreadable file", "path", f.Path, "err", err)
				return nil
			}
			sources[i] = &Source{Path: f.Path, Language: f.Language, Content: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Errorf("reading sources: %w", err)
	}

	var kept []*Source
	for _, s := range sources {
		if s != nil {
			kept = append(kept, s)
		}
	}
	p, err := build(ctx, root, kept, opts)
	if err != nil {
		return nil, err
	}
	slogctx.Info(ctx, "pass.timing", "pass", "load", "files", len(p.files), "elapsed", time.Since(start))
	return p, nil
}

// FromSources builds a program from in-memory sources. Language may be left
// empty and is then derived from the path.
func FromSources(ctx context.Context, root string, sources []*Source, opts ...Option) (*Program, error) {
	return build(ctx, root, sources, opts)
}

func build(ctx context.Context, root string, sources []*Source, opts []Option) (*Program, error) {
	o := options{cacheSize: defaultCacheSize}
	for _, opt := range opts {
		opt(&o)
	}

	parsed, err := parseAll(ctx, sources)
	if err != nil {
		return nil, err
	}
	if len(parsed) == 0 {
		return nil, errors.WithStack(ErrNoFiles)
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].Path < parsed[j].Path })

	known := make(map[string]struct{}, len(parsed))
	for _, sf := range parsed {
		known[sf.Path] = struct{}{}
	}
	res, err := newResolver(known, o.baseURL, o.paths, o.cacheSize)
	if err != nil {
		return nil, err
	}

	p := &Program{root: root, files: parsed, resolver: res}
	p.binder = newBinder(p)
	p.scopes = p.binder.bind(parsed)
	p.checker = newChecker(p)
	return p, nil
}

// parsers pools one tree-sitter parser per language per worker.
type parsers struct {
	mu    sync.Mutex
	pools map[string]*sync.Pool
}

func (ps *parsers) get(l *lang.Language) (*sitter.Parser, func()) {
	ps.mu.Lock()
	pool, ok := ps.pools[l.Name]
	if !ok {
		pool = &sync.Pool{New: func() any { return l.NewParser() }}
		ps.pools[l.Name] = pool
	}
	ps.mu.Unlock()
	parser := pool.Get().(*sitter.Parser)
	return parser, func() { pool.Put(parser) }
}

func parseAll(ctx context.Context, sources []*Source) ([]*program.SourceFile, error) {
	results := make([]*program.SourceFile, len(sources))
	ps := &parsers{pools: make(map[string]*sync.Pool)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			l := lang.Languages[src.Language]
			if l == nil {
				l = lang.ForPath(src.Path)
			}
			if l == nil {
				slogctx.Warn(ctx, "skipping file with unknown language", "path", src.Path)
				return nil
			}
			parser, release := ps.get(l)
			defer release()

			sf, err := parse.File(gctx, l, parser, src.Content, src.Path)
			if err != nil {
				return err
			}
			if sf.SyntaxErrors > 0 {
				slogctx.Debug(ctx, "syntax errors", "path", src.Path, "count", sf.SyntaxErrors)
			}
			results[i] = sf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Errorf("parsing sources: %w", err)
	}

	out := results[:0]
	for _, sf := range results {
		if sf != nil {
			out = append(out, sf)
		}
	}
	return out, nil
}

// Root returns the project root.
func (p *Program) Root() string { return p.root }

// Files returns every parsed file sorted by path.
func (p *Program) Files() []*program.SourceFile { return p.files }

// File returns the parsed file at path, or nil.
func (p *Program) File(path string) *program.SourceFile {
	if fs := p.scopes[path]; fs != nil {
		return fs.file
	}
	return nil
}

// Checker returns the type oracle.
func (p *Program) Checker() program.Checker { return p.checker }

// ResolveModule maps spec imported from file from to a project file.
func (p *Program) ResolveModule(spec, from string) (string, bool) {
	return p.resolver.resolve(spec, from)
}
