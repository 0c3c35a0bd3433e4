// Package typeref converts oracle types and written type annotations into
// finite model.TypeRef trees.
//
// Normalization is guarded three ways. A type met again on the current path
// becomes NAMED("recursive"); a walk deeper than the configured limit becomes
// NAMED("depth-limit"); and calls into the oracle's printer are recovered and
// degrade to a name derived from the type's symbol or category.
package typeref

import (
	"github.com/phobologic/tsmodel/internal/model"
	"github.com/phobologic/tsmodel/internal/program"
)

// Sentinel names for guarded leaves.
const (
	Recursive  = "recursive"
	DepthLimit = "depth-limit"
)

// DefaultMaxDepth bounds nesting when no WithMaxDepth option is given.
const DefaultMaxDepth = 32

// OriginalNameTag records the displayed name of a ref whose name was replaced
// by the bound classifier's qualified name.
const OriginalNameTag = "originalName"

// LiteralTag records the text of a literal type.
const LiteralTag = "literal"

// Binding is the classifier a symbol was declared as.
type Binding struct {
	ID            string
	QualifiedName string
}

// BindFunc looks up the classifier declared for a symbol.
type BindFunc func(*program.Symbol) (Binding, bool)

// Normalizer turns types into TypeRefs. It holds no per-call state and may be
// reused for any number of calls.
type Normalizer struct {
	checker  program.Checker
	bind     BindFunc
	maxDepth int
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithMaxDepth sets the nesting limit. Values below 1 keep the default.
func WithMaxDepth(depth int) Option {
	return func(n *Normalizer) {
		if depth > 0 {
			n.maxDepth = depth
		}
	}
}

// New returns a Normalizer over checker. bind may be nil when no classifiers
// are declared.
func New(checker program.Checker, bind BindFunc, opts ...Option) *Normalizer {
	n := &Normalizer{
		checker:  checker,
		bind:     bind,
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.bind == nil {
		n.bind = func(*program.Symbol) (Binding, bool) { return Binding{}, false }
	}
	return n
}

// Normalize converts an oracle type.
func (n *Normalizer) Normalize(t program.Type) *model.TypeRef {
	return n.newWalk().typ(t, "")
}

// NormalizeFromAnnotation converts a written annotation. Composite syntax is
// walked as written so member order and unresolvable names survive; leaves are
// typed through the oracle.
func (n *Normalizer) NormalizeFromAnnotation(node *program.TypeNode) *model.TypeRef {
	return n.newWalk().node(node)
}

// SafeTypeString prints t through the oracle. Failures and panics in the
// printer fall back to a name derived from the type's symbol or category.
func (n *Normalizer) SafeTypeString(t program.Type) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = fallbackName(t)
		}
	}()
	str, err := n.checker.TypeToString(t)
	if err != nil || str == "" {
		return fallbackName(t)
	}
	return str
}

func (n *Normalizer) newWalk() *walk {
	return &walk{n: n, onPath: make(map[int]struct{})}
}

// walk is the state of one top-level call.
type walk struct {
	n      *Normalizer
	onPath map[int]struct{}
	depth  int
}

func (w *walk) typ(t program.Type, written string) *model.TypeRef {
	if t == nil {
		return unknown("unknown")
	}
	if w.depth >= w.n.maxDepth {
		return named(DepthLimit)
	}
	id := t.ID()
	if _, seen := w.onPath[id]; seen {
		return named(Recursive)
	}
	w.onPath[id] = struct{}{}
	w.depth++
	defer func() {
		delete(w.onPath, id)
		w.depth--
	}()

	c := w.n.checker
	flags := t.Flags()
	switch {
	case flags&program.UnionFlag != 0:
		return w.composite(model.Union, c.Constituents(t))
	case flags&program.IntersectionFlag != 0:
		return w.composite(model.Intersection, c.Constituents(t))
	case c.IsArrayType(t):
		var elem program.Type
		if args := c.TypeArguments(t); len(args) > 0 {
			elem = args[0]
		}
		return &model.TypeRef{Kind: model.Array, ElementType: w.typ(elem, "")}
	case flags&(program.IntrinsicFlags|program.LiteralFlags) != 0:
		return w.primitive(t, flags)
	default:
		return w.reference(t, written)
	}
}

func (w *walk) composite(kind model.TypeRefKind, members []program.Type) *model.TypeRef {
	refs := make([]*model.TypeRef, 0, len(members))
	for _, m := range members {
		refs = append(refs, w.typ(m, ""))
	}
	return collapse(kind, refs)
}

func (w *walk) primitive(t program.Type, flags program.TypeFlags) *model.TypeRef {
	switch {
	case flags&program.AnyFlag != 0:
		return unknown("any")
	case flags&program.UnknownFlag != 0:
		return unknown("unknown")
	case flags&program.LiteralFlags != 0:
		ref := &model.TypeRef{Kind: model.Primitive, Name: literalBase(flags)}
		ref.TaggedValues = []model.TaggedValue{model.Tag(LiteralTag, w.n.SafeTypeString(t))}
		return ref
	}
	return &model.TypeRef{Kind: model.Primitive, Name: intrinsicName(flags)}
}

// reference names a non-primitive type. written is the name as it appeared in
// an annotation, when known.
func (w *walk) reference(t program.Type, written string) *model.TypeRef {
	c := w.n.checker
	sym := t.Symbol()
	args := c.TypeArguments(t)
	if sym == nil {
		if alias := t.AliasSymbol(); alias != nil {
			sym = alias
			args = t.AliasTypeArguments()
		}
	}
	if sym == nil {
		return named(w.n.SafeTypeString(t))
	}

	ref := w.bindName(sym, written)
	if len(args) > 0 {
		ref.Kind = model.Generic
		for _, a := range args {
			ref.TypeArgs = append(ref.TypeArgs, w.typ(a, ""))
		}
	}
	return ref
}

// bindName returns a NAMED ref for sym, substituting the qualified name of the
// classifier it was declared as.
func (w *walk) bindName(sym *program.Symbol, written string) *model.TypeRef {
	display := written
	if display == "" {
		display = sym.Name
	}
	ref := named(display)
	if b, ok := w.n.bind(sym); ok {
		ref.Name = b.QualifiedName
		ref.Target = b.ID
		if display != b.QualifiedName {
			ref.TaggedValues = []model.TaggedValue{model.Tag(OriginalNameTag, display)}
		}
	}
	return ref
}

func (w *walk) node(nd *program.TypeNode) *model.TypeRef {
	if nd == nil {
		return unknown("unknown")
	}
	if w.depth >= w.n.maxDepth {
		return named(DepthLimit)
	}
	w.depth++
	defer func() { w.depth-- }()

	switch nd.Kind {
	case program.UnionType:
		return w.nodes(model.Union, nd.Args)
	case program.IntersectionType:
		return w.nodes(model.Intersection, nd.Args)
	case program.ArrayType:
		return &model.TypeRef{Kind: model.Array, ElementType: w.node(nd.Elem)}
	case program.RefType:
		return w.refNode(nd)
	default:
		return w.typ(w.n.checker.TypeFromTypeNode(nd), "")
	}
}

func (w *walk) nodes(kind model.TypeRefKind, members []*program.TypeNode) *model.TypeRef {
	refs := make([]*model.TypeRef, 0, len(members))
	for _, m := range members {
		refs = append(refs, w.node(m))
	}
	return collapse(kind, refs)
}

func (w *walk) refNode(nd *program.TypeNode) *model.TypeRef {
	c := w.n.checker
	sym := c.SymbolAtLocation(nd)
	if sym == nil {
		// The oracle would degrade this to any; keep the written name.
		ref := named(nd.Name)
		ref.Unresolved = true
		if len(nd.Args) > 0 {
			ref.Kind = model.Generic
			for _, a := range nd.Args {
				ref.TypeArgs = append(ref.TypeArgs, w.node(a))
			}
		}
		return ref
	}

	if len(nd.Args) > 0 && !sym.Has(program.SymTypeAlias) {
		if sym.Has(program.SymLib) && isArrayName(sym.Name) && len(nd.Args) == 1 {
			return &model.TypeRef{Kind: model.Array, ElementType: w.node(nd.Args[0])}
		}
		ref := w.bindName(sym, nd.Name)
		ref.Kind = model.Generic
		for _, a := range nd.Args {
			ref.TypeArgs = append(ref.TypeArgs, w.node(a))
		}
		return ref
	}

	return w.typ(c.TypeFromTypeNode(nd), nd.Name)
}

func collapse(kind model.TypeRefKind, refs []*model.TypeRef) *model.TypeRef {
	switch len(refs) {
	case 0:
		return unknown("never")
	case 1:
		return refs[0]
	}
	return &model.TypeRef{Kind: kind, TypeArgs: refs}
}

func named(name string) *model.TypeRef {
	return &model.TypeRef{Kind: model.Named, Name: name}
}

func unknown(name string) *model.TypeRef {
	return &model.TypeRef{Kind: model.Unknown, Name: name}
}

func isArrayName(name string) bool {
	return name == "Array" || name == "ReadonlyArray"
}

var intrinsicNames = []struct {
	flag program.TypeFlags
	name string
}{
	{program.StringFlag, "string"},
	{program.NumberFlag, "number"},
	{program.BooleanFlag, "boolean"},
	{program.BigIntFlag, "bigint"},
	{program.ESSymbolFlag, "symbol"},
	{program.VoidFlag, "void"},
	{program.NeverFlag, "never"},
	{program.UndefinedFlag, "undefined"},
	{program.NullFlag, "null"},
	{program.NonPrimitiveFlag, "object"},
}

func intrinsicName(flags program.TypeFlags) string {
	for _, in := range intrinsicNames {
		if flags&in.flag != 0 {
			return in.name
		}
	}
	return "unknown"
}

func literalBase(flags program.TypeFlags) string {
	switch {
	case flags&program.StringLiteralFlag != 0:
		return "string"
	case flags&program.NumberLiteralFlag != 0:
		return "number"
	case flags&program.BigIntLiteralFlag != 0:
		return "bigint"
	default:
		return "boolean"
	}
}

// fallbackName names a type without calling the oracle's printer.
func fallbackName(t program.Type) string {
	if t == nil {
		return "unknown"
	}
	if s := t.Symbol(); s != nil && s.Name != "" {
		return s.Name
	}
	if s := t.AliasSymbol(); s != nil && s.Name != "" {
		return s.Name
	}
	flags := t.Flags()
	switch {
	case flags&program.UnionFlag != 0:
		return "union"
	case flags&program.IntersectionFlag != 0:
		return "intersection"
	case flags&program.TypeParameterFlag != 0:
		return "type-parameter"
	case flags&program.ObjectFlag != 0:
		return "object"
	case flags&(program.IntrinsicFlags|program.LiteralFlags) != 0:
		return intrinsicName(flags)
	}
	return "unknown"
}
