package tsprogram

import (
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"

	"github.com/phobologic/tsmodel/internal/program"
)

const (
	// maxInstantiationDepth bounds nested alias instantiation; deeper
	// instantiations stay unexpanded references to the alias.
	maxInstantiationDepth = 64
	// maxPrintDepth bounds TypeToString.
	maxPrintDepth = 64
)

// errPrintDepth is returned by TypeToString for types nested too deeply.
var errPrintDepth = errors.Base("type too deeply nested to print")

var intrinsicFlags = map[string]program.TypeFlags{
	"any":       program.AnyFlag,
	"unknown":   program.UnknownFlag,
	"string":    program.StringFlag,
	"number":    program.NumberFlag,
	"boolean":   program.BooleanFlag,
	"bigint":    program.BigIntFlag,
	"symbol":    program.ESSymbolFlag,
	"void":      program.VoidFlag,
	"never":     program.NeverFlag,
	"undefined": program.UndefinedFlag,
	"null":      program.NullFlag,
	"object":    program.NonPrimitiveFlag,
}

// libGlobals are the built-in declarations references may name without an
// import.
var libGlobals = []string{
	"Array", "ReadonlyArray", "Map", "ReadonlyMap", "Set", "ReadonlySet",
	"WeakMap", "WeakSet", "Promise", "PromiseLike", "Record", "Partial",
	"Required", "Readonly", "Pick", "Omit", "Exclude", "Extract",
	"NonNullable", "ReturnType", "Parameters", "InstanceType", "Awaited",
	"Date", "Error", "RegExp", "Function", "Object", "String", "Number",
	"Boolean", "Symbol", "Iterable", "Iterator", "AsyncIterable",
	"IterableIterator", "ArrayLike", "Uint8Array", "ArrayBuffer", "JSON",
}

// Checker answers type questions from syntax alone. It is not safe for
// concurrent use.
type Checker struct {
	prog   *Program
	nextID int

	anyType    program.Type
	intrinsics map[string]*intrinsicType
	literals   map[string]*literalType
	sets       map[string]*setType
	refs       map[string]*refType
	aliases    map[string]*aliasType
	anons      map[string]*anonType
	params     map[*program.Symbol]*typeParamType

	lib        map[string]*program.Symbol
	paramSyms  map[*program.Scope]map[string]*program.Symbol
	symbolKeys map[*program.Symbol]int
}

var _ program.Checker = (*Checker)(nil)

func newChecker(p *Program) *Checker {
	c := &Checker{
		prog:       p,
		intrinsics: make(map[string]*intrinsicType),
		literals:   make(map[string]*literalType),
		sets:       make(map[string]*setType),
		refs:       make(map[string]*refType),
		aliases:    make(map[string]*aliasType),
		anons:      make(map[string]*anonType),
		params:     make(map[*program.Symbol]*typeParamType),
		lib:        make(map[string]*program.Symbol),
		paramSyms:  make(map[*program.Scope]map[string]*program.Symbol),
		symbolKeys: make(map[*program.Symbol]int),
	}
	for _, name := range libGlobals {
		c.lib[name] = &program.Symbol{Name: name, Flags: program.SymLib | program.SymInterface}
	}
	for name := range intrinsicFlags {
		c.lib[name] = &program.Symbol{Name: name, Flags: program.SymLib}
	}
	c.anyType = c.intrinsic("any")
	return c
}

func (c *Checker) newID() int {
	c.nextID++
	return c.nextID
}

func (c *Checker) intrinsic(name string) program.Type {
	if t, ok := c.intrinsics[name]; ok {
		return t
	}
	flags, ok := intrinsicFlags[name]
	if !ok {
		return c.anyType
	}
	t := &intrinsicType{typeBase: typeBase{id: c.newID(), flags: flags}, name: name}
	c.intrinsics[name] = t
	return t
}

func (c *Checker) literal(text string) program.Type {
	var flags program.TypeFlags
	switch {
	case text == "true" || text == "false":
		flags = program.BooleanLiteralFlag
	case strings.HasSuffix(text, "n") && isNumeric(strings.TrimSuffix(text, "n")):
		flags = program.BigIntLiteralFlag
	case isNumeric(text):
		flags = program.NumberLiteralFlag
	default:
		flags = program.StringLiteralFlag
	}
	if t, ok := c.literals[text]; ok {
		return t
	}
	t := &literalType{typeBase: typeBase{id: c.newID(), flags: flags}, text: text}
	c.literals[text] = t
	return t
}

func isNumeric(s string) bool {
	s = strings.TrimPrefix(s, "-")
	_, err := strconv.ParseFloat(strings.ReplaceAll(s, "_", ""), 64)
	return err == nil
}

func (c *Checker) symbolKey(sym *program.Symbol) int {
	if k, ok := c.symbolKeys[sym]; ok {
		return k
	}
	k := len(c.symbolKeys) + 1
	c.symbolKeys[sym] = k
	return k
}

func typeKey(prefix string, n int, args []program.Type) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteString(strconv.Itoa(n))
	for _, a := range args {
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(a.ID()))
	}
	return sb.String()
}

func (c *Checker) ref(sym *program.Symbol, args []program.Type) program.Type {
	key := typeKey("r", c.symbolKey(sym), args)
	if t, ok := c.refs[key]; ok {
		return t
	}
	t := &refType{typeBase: typeBase{id: c.newID(), flags: program.ObjectFlag}, sym: sym, args: args}
	c.refs[key] = t
	return t
}

func (c *Checker) arrayOf(elem program.Type, readonly bool) program.Type {
	name := "Array"
	if readonly {
		name = "ReadonlyArray"
	}
	return c.ref(c.lib[name], []program.Type{elem})
}

// set builds a union or intersection, flattening nested sets of the same
// kind and dropping repeated members while keeping first-seen order.
func (c *Checker) set(flag program.TypeFlags, members []program.Type) program.Type {
	var flat []program.Type
	seen := make(map[int]struct{})
	var add func(program.Type)
	add = func(m program.Type) {
		if s, ok := m.(*setType); ok && s.flags&flag != 0 {
			for _, inner := range s.members {
				add(inner)
			}
			return
		}
		if _, dup := seen[m.ID()]; dup {
			return
		}
		seen[m.ID()] = struct{}{}
		flat = append(flat, m)
	}
	for _, m := range members {
		add(m)
	}
	switch len(flat) {
	case 0:
		return c.intrinsic("never")
	case 1:
		return flat[0]
	}
	key := typeKey("s", int(flag), flat)
	if t, ok := c.sets[key]; ok {
		return t
	}
	t := &setType{typeBase: typeBase{id: c.newID(), flags: flag}, members: flat}
	c.sets[key] = t
	return t
}

func (c *Checker) anon(text string) program.Type {
	if t, ok := c.anons[text]; ok {
		return t
	}
	t := &anonType{typeBase: typeBase{id: c.newID(), flags: program.ObjectFlag}, text: text}
	c.anons[text] = t
	return t
}

func (c *Checker) typeParam(sym *program.Symbol) program.Type {
	if t, ok := c.params[sym]; ok {
		return t
	}
	t := &typeParamType{typeBase: typeBase{id: c.newID(), flags: program.TypeParameterFlag}, sym: sym}
	c.params[sym] = t
	return t
}

func (c *Checker) alias(sym *program.Symbol, args []program.Type, level int) program.Type {
	key := typeKey("a", c.symbolKey(sym), args)
	if t, ok := c.aliases[key]; ok {
		return t
	}
	if level > maxInstantiationDepth {
		return c.ref(sym, args)
	}
	t := &aliasType{id: c.newID(), c: c, sym: sym, args: args, level: level}
	c.aliases[key] = t
	return t
}

// instantiate types the alias body with its parameters bound to the
// alias arguments.
func (c *Checker) instantiate(a *aliasType) program.Type {
	var decl *program.Decl
	for _, d := range a.sym.Decls {
		if d.Kind == program.TypeAliasDecl {
			decl = d
			break
		}
	}
	if decl == nil || decl.Aliased == nil {
		return c.anyType
	}
	env := make(map[string]program.Type, len(decl.TypeParams))
	for i, name := range decl.TypeParams {
		if i < len(a.args) {
			env[name] = a.args[i]
		} else {
			env[name] = c.anyType
		}
	}
	return c.fromNode(decl.Aliased, env, a.level+1)
}

// SymbolAtLocation resolves the name of a reference type node.
func (c *Checker) SymbolAtLocation(n *program.TypeNode) *program.Symbol {
	if n == nil || n.Kind != program.RefType || n.Name == "" {
		return nil
	}
	head, rest, dotted := strings.Cut(n.Name, ".")
	if !dotted {
		if scope, ok := n.Scope.Lookup(head); ok {
			return c.typeParamSymbol(scope, head)
		}
	}
	if sym := c.prog.binder.resolveName(n.File, head); sym != nil {
		if dotted {
			return c.prog.binder.member(sym, rest)
		}
		return sym
	}
	if dotted {
		return nil
	}
	return c.lib[head]
}

func (c *Checker) typeParamSymbol(scope *program.Scope, name string) *program.Symbol {
	syms, ok := c.paramSyms[scope]
	if !ok {
		syms = make(map[string]*program.Symbol)
		c.paramSyms[scope] = syms
	}
	sym, ok := syms[name]
	if !ok {
		sym = &program.Symbol{Name: name, Flags: program.SymTypeParameter}
		syms[name] = sym
	}
	return sym
}

// TypeFromTypeNode types a written annotation.
func (c *Checker) TypeFromTypeNode(n *program.TypeNode) program.Type {
	return c.fromNode(n, nil, 0)
}

func (c *Checker) fromNode(n *program.TypeNode, env map[string]program.Type, level int) program.Type {
	if n == nil {
		return c.intrinsic("unknown")
	}
	switch n.Kind {
	case program.PredefinedType:
		return c.intrinsic(n.Name)
	case program.LiteralType:
		return c.literal(n.Name)
	case program.UnionType, program.IntersectionType:
		flag := program.UnionFlag
		if n.Kind == program.IntersectionType {
			flag = program.IntersectionFlag
		}
		members := make([]program.Type, 0, len(n.Args))
		for _, a := range n.Args {
			members = append(members, c.fromNode(a, env, level))
		}
		return c.set(flag, members)
	case program.ArrayType:
		return c.arrayOf(c.fromNode(n.Elem, env, level), n.Readonly)
	case program.RefType:
		return c.fromRef(n, env, level)
	}
	return c.anon(n.Text)
}

func (c *Checker) fromRef(n *program.TypeNode, env map[string]program.Type, level int) program.Type {
	if t, ok := env[n.Name]; ok {
		return t
	}
	sym := c.SymbolAtLocation(n)
	switch {
	case sym == nil:
		return c.anyType
	case sym.Has(program.SymTypeParameter):
		return c.typeParam(sym)
	case sym.Has(program.SymLib) && !sym.Has(program.SymInterface):
		return c.intrinsic(sym.Name)
	}

	args := make([]program.Type, 0, len(n.Args))
	for _, a := range n.Args {
		args = append(args, c.fromNode(a, env, level))
	}
	switch {
	case sym.Has(program.SymTypeAlias):
		return c.alias(sym, args, level)
	case sym.Has(program.SymLib) && (sym.Name == "Array" || sym.Name == "ReadonlyArray"):
		if len(args) != 1 {
			return c.arrayOf(c.anyType, sym.Name == "ReadonlyArray")
		}
	}
	return c.ref(sym, args)
}

// TypeAtLocation returns the declared or inferred type of n.
func (c *Checker) TypeAtLocation(n program.Node) program.Type {
	switch n := n.(type) {
	case *program.TypeNode:
		return c.TypeFromTypeNode(n)
	case *program.Member:
		switch {
		case n.Type != nil:
			return c.TypeFromTypeNode(n.Type)
		case n.Kind == program.GetterMember && n.Signature != nil && n.Signature.Return != nil:
			return c.TypeFromTypeNode(n.Signature.Return)
		case n.Kind == program.SetterMember && n.Signature != nil && len(n.Signature.Params) > 0 && n.Signature.Params[0].Type != nil:
			return c.TypeFromTypeNode(n.Signature.Params[0].Type)
		case n.Initializer != nil:
			return c.inferInitializer(n.Initializer)
		case n.Signature != nil:
			return c.anon("Function")
		}
	case *program.Param:
		if n.Type != nil {
			return c.TypeFromTypeNode(n.Type)
		}
		if n.Initializer != nil {
			return c.inferInitializer(n.Initializer)
		}
	case *program.Decl:
		return c.declType(n)
	}
	return c.anyType
}

func (c *Checker) declType(d *program.Decl) program.Type {
	if d.Symbol == nil {
		return c.anyType
	}
	switch d.Kind {
	case program.ClassDecl, program.InterfaceDecl, program.EnumDecl:
		return c.ref(d.Symbol, nil)
	case program.TypeAliasDecl:
		args := make([]program.Type, 0, len(d.TypeParams))
		for _, name := range d.TypeParams {
			args = append(args, c.typeParam(c.typeParamSymbol(d.Scope, name)))
		}
		return c.alias(d.Symbol, args, 0)
	case program.VariableDecl:
		if d.Type != nil {
			return c.TypeFromTypeNode(d.Type)
		}
		if d.Initializer != nil {
			return c.inferInitializer(d.Initializer)
		}
	}
	if d.FunctionLike() {
		return c.anon("Function")
	}
	return c.anyType
}

// inferInitializer widens literal initializers and types `new X()` as X.
func (c *Checker) inferInitializer(init *program.Initializer) program.Type {
	switch init.Kind {
	case program.InitString:
		return c.intrinsic("string")
	case program.InitNumber:
		return c.intrinsic("number")
	case program.InitBoolean:
		return c.intrinsic("boolean")
	case program.InitArray:
		return c.arrayOf(c.anyType, false)
	case program.InitFunction:
		return c.anon("Function")
	case program.InitNew:
		name := init.Callee
		if i := strings.IndexByte(name, '<'); i >= 0 {
			name = name[:i]
		}
		sym := c.SymbolAtLocation(&program.TypeNode{Kind: program.RefType, Name: name, File: init.File})
		if sym == nil || sym.Has(program.SymTypeParameter) {
			return c.anyType
		}
		if sym.Has(program.SymLib) && (sym.Name == "Array" || sym.Name == "ReadonlyArray") {
			return c.arrayOf(c.anyType, false)
		}
		return c.ref(sym, nil)
	}
	return c.anyType
}

// Constituents returns union or intersection members.
func (c *Checker) Constituents(t program.Type) []program.Type {
	if s, ok := unwrap(t).(*setType); ok {
		return s.members
	}
	return nil
}

// IsArrayType reports whether t is Array<T> or ReadonlyArray<T>.
func (c *Checker) IsArrayType(t program.Type) bool {
	r, ok := unwrap(t).(*refType)
	return ok && r.sym.Has(program.SymLib) && (r.sym.Name == "Array" || r.sym.Name == "ReadonlyArray")
}

// TypeArguments returns the arguments of a generic reference.
func (c *Checker) TypeArguments(t program.Type) []program.Type {
	if r, ok := unwrap(t).(*refType); ok {
		return r.args
	}
	return nil
}

// TypeToString prints t, failing for types nested deeper than maxPrintDepth.
func (c *Checker) TypeToString(t program.Type) (string, error) {
	var sb strings.Builder
	if err := c.print(&sb, t, 0); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (c *Checker) print(sb *strings.Builder, t program.Type, depth int) error {
	if depth > maxPrintDepth {
		return errors.WithStack(errPrintDepth)
	}
	if a, ok := t.(*aliasType); ok {
		if a.AliasSymbol() != nil {
			sb.WriteString(a.sym.Name)
			return c.printArgs(sb, a.args, depth)
		}
		t = a.resolved()
	}
	switch t := t.(type) {
	case *intrinsicType:
		sb.WriteString(t.name)
	case *literalType:
		sb.WriteString(t.text)
	case *anonType:
		sb.WriteString(t.text)
	case *typeParamType:
		sb.WriteString(t.sym.Name)
	case *setType:
		sep := " | "
		if t.flags&program.IntersectionFlag != 0 {
			sep = " & "
		}
		for i, m := range t.members {
			if i > 0 {
				sb.WriteString(sep)
			}
			if err := c.print(sb, m, depth+1); err != nil {
				return err
			}
		}
	case *refType:
		if c.IsArrayType(t) && len(t.args) == 1 {
			if t.sym.Name == "ReadonlyArray" {
				sb.WriteString("readonly ")
			}
			_, compound := unwrap(t.args[0]).(*setType)
			if compound {
				sb.WriteByte('(')
			}
			if err := c.print(sb, t.args[0], depth+1); err != nil {
				return err
			}
			if compound {
				sb.WriteByte(')')
			}
			sb.WriteString("[]")
			return nil
		}
		sb.WriteString(t.sym.Name)
		return c.printArgs(sb, t.args, depth)
	default:
		return errors.Errorf("cannot print %T", t)
	}
	return nil
}

func (c *Checker) printArgs(sb *strings.Builder, args []program.Type, depth int) error {
	if len(args) == 0 {
		return nil
	}
	sb.WriteByte('<')
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		if err := c.print(sb, a, depth+1); err != nil {
			return err
		}
	}
	sb.WriteByte('>')
	return nil
}

