package tsprogram

import (
	"strings"

	"github.com/phobologic/tsmodel/internal/program"
)

// fileScope holds the top-level bindings of one file.
type fileScope struct {
	file    *program.SourceFile
	locals  map[string]*program.Symbol
	imports map[string]importBinding
	exports map[string]exportEntry
	// stars lists the resolved targets of `export * from`.
	stars []string
}

type importBinding struct {
	spec string
	// target is the resolved project file, or "" when resolution failed.
	target string
	// name is the imported name: an export name, "default", or "*".
	name string
}

type exportEntry struct {
	// local names a binding of this file when spec is empty.
	local string
	spec  string
	// target is the resolved project file for re-exports.
	target string
	// name is the re-exported name, or "*" for `export * as ns`.
	name string
}

// binder builds file scopes and follows import and export aliases to the
// declaring symbol.
type binder struct {
	prog       *Program
	scopes     map[string]*fileScope
	namespaces map[string]*program.Symbol
	externals  map[string]*program.Symbol
}

func newBinder(p *Program) *binder {
	return &binder{
		prog:       p,
		namespaces: make(map[string]*program.Symbol),
		externals:  make(map[string]*program.Symbol),
	}
}

func declFlags(d *program.Decl) program.SymbolFlags {
	switch d.Kind {
	case program.ClassDecl:
		return program.SymClass
	case program.InterfaceDecl:
		return program.SymInterface
	case program.EnumDecl:
		return program.SymEnum
	case program.TypeAliasDecl:
		return program.SymTypeAlias
	case program.FunctionDecl:
		return program.SymFunction
	}
	return program.SymVariable
}

func (b *binder) bind(files []*program.SourceFile) map[string]*fileScope {
	b.scopes = make(map[string]*fileScope, len(files))
	for _, sf := range files {
		b.scopes[sf.Path] = b.declare(sf)
	}
	for _, sf := range files {
		b.link(b.scopes[sf.Path])
	}
	return b.scopes
}

// declare creates symbols for the file's declarations. Declarations sharing a
// name (merged interfaces, function overloads) share one symbol.
func (b *binder) declare(sf *program.SourceFile) *fileScope {
	fs := &fileScope{
		file:    sf,
		locals:  make(map[string]*program.Symbol),
		imports: make(map[string]importBinding),
		exports: make(map[string]exportEntry),
	}
	for _, d := range sf.Decls {
		if d.Name == "" {
			continue
		}
		sym, ok := fs.locals[d.Name]
		if !ok {
			sym = &program.Symbol{Name: d.Name, File: sf.Path}
			fs.locals[d.Name] = sym
		}
		sym.Flags |= declFlags(d)
		sym.Decls = append(sym.Decls, d)
		d.Symbol = sym

		if d.Exported {
			if d.Name != "default" {
				fs.exports[d.Name] = exportEntry{local: d.Name}
			}
			if d.Default {
				fs.exports["default"] = exportEntry{local: d.Name}
			}
		}
	}
	return fs
}

// link records imports and exports once every file's symbols exist.
func (b *binder) link(fs *fileScope) {
	from := fs.file.Path
	for _, imp := range fs.file.Imports {
		target, _ := b.prog.resolver.resolve(imp.Spec, from)
		if imp.Default != "" {
			fs.imports[imp.Default] = importBinding{spec: imp.Spec, target: target, name: "default"}
		}
		if imp.Namespace != "" {
			fs.imports[imp.Namespace] = importBinding{spec: imp.Spec, target: target, name: "*"}
		}
		for _, n := range imp.Names {
			fs.imports[n.Local] = importBinding{spec: imp.Spec, target: target, name: n.Imported}
		}
	}
	for _, exp := range fs.file.Exports {
		if exp.Spec == "" {
			for _, n := range exp.Names {
				fs.exports[n.Exported] = exportEntry{local: n.Local}
			}
			continue
		}
		target, _ := b.prog.resolver.resolve(exp.Spec, from)
		switch {
		case exp.Namespace != "":
			fs.exports[exp.Namespace] = exportEntry{spec: exp.Spec, target: target, name: "*"}
		case exp.Star:
			if target != "" {
				fs.stars = append(fs.stars, target)
			}
		default:
			for _, n := range exp.Names {
				fs.exports[n.Exported] = exportEntry{spec: exp.Spec, target: target, name: n.Local}
			}
		}
	}
}

// resolveName finds the symbol bound to name in the file at path.
func (b *binder) resolveName(path, name string) *program.Symbol {
	return b.lookup(path, name, make(map[string]struct{}))
}

func (b *binder) lookup(path, name string, visited map[string]struct{}) *program.Symbol {
	fs := b.scopes[path]
	if fs == nil {
		return nil
	}
	if sym, ok := fs.locals[name]; ok {
		return sym
	}
	imp, ok := fs.imports[name]
	if !ok {
		return nil
	}
	if imp.target == "" {
		if program.IsRelative(imp.spec) {
			return nil
		}
		return b.external(imp.spec, importedName(imp.name, name), imp.name == "*")
	}
	if imp.name == "*" {
		return b.namespace(imp.target, name)
	}
	return b.export(imp.target, imp.name, visited)
}

// export follows an exported name of the file at path to its declaration.
// visited guards against re-export cycles.
func (b *binder) export(path, name string, visited map[string]struct{}) *program.Symbol {
	key := path + "\x00" + name
	if _, seen := visited[key]; seen {
		return nil
	}
	visited[key] = struct{}{}

	fs := b.scopes[path]
	if fs == nil {
		return nil
	}
	if e, ok := fs.exports[name]; ok {
		switch {
		case e.spec == "":
			return b.lookup(path, e.local, visited)
		case e.target == "":
			if program.IsRelative(e.spec) {
				return nil
			}
			return b.external(e.spec, importedName(e.name, name), e.name == "*")
		case e.name == "*":
			return b.namespace(e.target, name)
		default:
			return b.export(e.target, e.name, visited)
		}
	}
	if name == "default" {
		return nil
	}
	for _, star := range fs.stars {
		if sym := b.export(star, name, visited); sym != nil {
			return sym
		}
	}
	return nil
}

// member resolves the dotted tail of a qualified name against sym.
func (b *binder) member(sym *program.Symbol, rest string) *program.Symbol {
	for rest != "" && sym != nil {
		head, tail, _ := strings.Cut(rest, ".")
		switch {
		case sym.Has(program.SymExternal):
			return b.external(sym.Module, lastSegment(rest), false)
		case sym.Has(program.SymNamespace):
			sym = b.export(sym.Module, head, make(map[string]struct{}))
		case sym.Has(program.SymEnum):
			// Enum member types are modeled as the enum itself.
			return sym
		default:
			return nil
		}
		rest = tail
	}
	return sym
}

// namespace returns the symbol for `* as name` of a project file.
func (b *binder) namespace(target, name string) *program.Symbol {
	if sym, ok := b.namespaces[target]; ok {
		return sym
	}
	sym := &program.Symbol{Name: name, Flags: program.SymNamespace, Module: target}
	b.namespaces[target] = sym
	return sym
}

// external returns the symbol for name imported from a module outside the
// project.
func (b *binder) external(spec, name string, namespace bool) *program.Symbol {
	key := spec + "\x00" + name
	if namespace {
		key = spec + "\x00*"
	}
	if sym, ok := b.externals[key]; ok {
		return sym
	}
	flags := program.SymExternal
	if namespace {
		flags |= program.SymNamespace
	}
	sym := &program.Symbol{Name: name, Flags: flags, Module: spec}
	b.externals[key] = sym
	return sym
}

// importedName is the display name for an external binding. Default and
// namespace imports are known only by their local name.
func importedName(imported, local string) string {
	if imported == "default" || imported == "*" || imported == "" {
		return local
	}
	return imported
}

func lastSegment(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
