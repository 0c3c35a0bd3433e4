// Package enrich adds framework knowledge to an extracted model. Each pass is
// an extract.Enricher: it works only through the Registry, so every relation
// it draws goes through the same dedup and id rules as structural ones.
package enrich

import (
	"sort"
	"strings"

	"github.com/phobologic/tsmodel/internal/extract"
	"github.com/phobologic/tsmodel/internal/program"
	"github.com/phobologic/tsmodel/internal/stereotype"
)

// GenericFramework is the namespace of decorators from unknown modules.
const GenericFramework = stereotype.DefaultNamespace

// DefaultFrameworks maps module specifiers to framework namespaces. A key
// ending in "/" matches every module under it; other keys match the module
// itself and its subpaths.
var DefaultFrameworks = map[string]string{
	"@angular/":              "angular",
	"@nestjs/":               "nestjs",
	"typeorm":                "typeorm",
	"class-validator":        "class-validator",
	"class-transformer":      "class-transformer",
	"mobx":                   "mobx",
	"inversify":              "inversify",
	"lit":                    "lit",
	"lit-element":            "lit",
	"vue-property-decorator": "vue",
	"vue-class-component":    "vue",
}

// Frameworks resolves module specifiers to framework namespaces.
type Frameworks struct {
	keys  []string
	table map[string]string
}

// NewFrameworks returns the built-in table with overrides merged over it.
func NewFrameworks(overrides map[string]string) *Frameworks {
	f := &Frameworks{table: make(map[string]string, len(DefaultFrameworks)+len(overrides))}
	for k, v := range DefaultFrameworks {
		f.table[k] = v
	}
	for k, v := range overrides {
		f.table[k] = v
	}
	for k := range f.table {
		f.keys = append(f.keys, k)
	}
	// Longest key wins; ties break lexically so matching is deterministic.
	sort.Slice(f.keys, func(i, j int) bool {
		if len(f.keys[i]) != len(f.keys[j]) {
			return len(f.keys[i]) > len(f.keys[j])
		}
		return f.keys[i] < f.keys[j]
	})
	return f
}

// Lookup returns the framework namespace of a module specifier.
func (f *Frameworks) Lookup(spec string) string {
	if spec == "" || program.IsRelative(spec) {
		return GenericFramework
	}
	for _, k := range f.keys {
		switch {
		case spec == k,
			strings.HasSuffix(k, "/") && strings.HasPrefix(spec, k),
			strings.HasPrefix(spec, k+"/"):
			return f.table[k]
		}
	}
	return GenericFramework
}

// Default returns the enrichment passes in the order they must run.
// Injection edges depend on the kinds and framework tags the decorator pass
// assigns.
func Default(frameworks map[string]string) []extract.Enricher {
	fw := NewFrameworks(frameworks)
	return []extract.Enricher{
		&Decorators{Frameworks: fw},
		&Injection{},
		&Imports{},
	}
}

// importIndex maps the local names of each file's imports to their module
// specifiers.
type importIndex map[string]map[string]string

func newImportIndex(files []*program.SourceFile) importIndex {
	idx := make(importIndex, len(files))
	for _, sf := range files {
		names := make(map[string]string)
		for _, imp := range sf.Imports {
			for _, local := range imp.LocalNames() {
				names[local] = imp.Spec
			}
		}
		idx[sf.Path] = names
	}
	return idx
}

// spec returns the module a possibly dotted identifier was imported from.
func (idx importIndex) spec(file, name string) string {
	head, _, _ := strings.Cut(name, ".")
	return idx[file][head]
}
