package tsprogram

import (
	"path"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"gitlab.com/tozd/go/errors"

	"github.com/phobologic/tsmodel/internal/program"
)

// extensions is the probe order for extensionless specifiers.
var extensions = []string{".ts", ".tsx", ".d.ts", ".mts", ".cts"}

// jsExtensions maps emitted extensions to their TypeScript sources.
var jsExtensions = map[string][]string{
	".js":  {".ts", ".tsx"},
	".jsx": {".tsx"},
	".mjs": {".mts"},
	".cjs": {".cts"},
}

type resolution struct {
	path string
	ok   bool
}

type pathAlias struct {
	prefix, suffix string
	wildcard       bool
	targets        []string
}

type resolver struct {
	known   map[string]struct{}
	baseURL string
	aliases []pathAlias
	cache   *lru.Cache[string, resolution]
}

func newResolver(known map[string]struct{}, baseURL string, paths map[string][]string, size int) (*resolver, error) {
	cache, err := lru.New[string, resolution](size)
	if err != nil {
		return nil, errors.Errorf("creating resolution cache: %w", err)
	}
	r := &resolver{known: known, cache: cache}
	if baseURL != "" {
		r.baseURL = path.Clean(strings.TrimPrefix(baseURL, "./"))
	}
	for pattern, targets := range paths {
		a := pathAlias{targets: targets}
		if i := strings.IndexByte(pattern, '*'); i >= 0 {
			a.prefix, a.suffix, a.wildcard = pattern[:i], pattern[i+1:], true
		} else {
			a.prefix = pattern
		}
		r.aliases = append(r.aliases, a)
	}
	// Longest prefix wins, as in tsc.
	sort.Slice(r.aliases, func(i, j int) bool {
		if len(r.aliases[i].prefix) != len(r.aliases[j].prefix) {
			return len(r.aliases[i].prefix) > len(r.aliases[j].prefix)
		}
		return r.aliases[i].suffix < r.aliases[j].suffix
	})
	return r, nil
}

// resolve maps spec imported from the file from to a project file.
func (r *resolver) resolve(spec, from string) (string, bool) {
	key := spec
	if program.IsRelative(spec) {
		key = path.Dir(from) + "\x00" + spec
	}
	if res, ok := r.cache.Get(key); ok {
		return res.path, res.ok
	}
	p, ok := r.lookup(spec, from)
	r.cache.Add(key, resolution{path: p, ok: ok})
	return p, ok
}

func (r *resolver) lookup(spec, from string) (string, bool) {
	if program.IsRelative(spec) {
		return r.probe(path.Join(path.Dir(from), spec))
	}
	for _, a := range r.aliases {
		rest, ok := a.match(spec)
		if !ok {
			continue
		}
		for _, target := range a.targets {
			candidate := strings.Replace(target, "*", rest, 1)
			if r.baseURL != "" {
				candidate = path.Join(r.baseURL, candidate)
			}
			if p, ok := r.probe(path.Clean(candidate)); ok {
				return p, true
			}
		}
	}
	if r.baseURL != "" {
		return r.probe(path.Join(r.baseURL, spec))
	}
	return "", false
}

func (a pathAlias) match(spec string) (string, bool) {
	if !a.wildcard {
		return "", spec == a.prefix
	}
	if len(spec) < len(a.prefix)+len(a.suffix) ||
		!strings.HasPrefix(spec, a.prefix) || !strings.HasSuffix(spec, a.suffix) {
		return "", false
	}
	return spec[len(a.prefix) : len(spec)-len(a.suffix)], true
}

// probe tries base as written, with its emitted extension swapped for a
// source one, with each source extension, and as a directory index.
func (r *resolver) probe(base string) (string, bool) {
	if strings.HasPrefix(base, "../") || base == ".." {
		return "", false
	}
	if r.has(base) {
		return base, true
	}
	ext := path.Ext(base)
	if sources, ok := jsExtensions[ext]; ok {
		stem := strings.TrimSuffix(base, ext)
		for _, e := range sources {
			if r.has(stem + e) {
				return stem + e, true
			}
		}
	}
	for _, e := range extensions {
		if r.has(base + e) {
			return base + e, true
		}
	}
	for _, e := range extensions {
		if p := path.Join(base, "index"+e); r.has(p) {
			return p, true
		}
	}
	return "", false
}

func (r *resolver) has(p string) bool {
	_, ok := r.known[p]
	return ok
}
