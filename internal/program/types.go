package program

// SymbolFlags describe what a symbol declares.
type SymbolFlags uint32

const (
	SymClass SymbolFlags = 1 << iota
	SymInterface
	SymEnum
	SymTypeAlias
	SymFunction
	SymVariable
	SymTypeParameter
	SymNamespace
	// SymExternal marks a binding imported from a module outside the project.
	SymExternal
	// SymLib marks a built-in global such as Array or Promise.
	SymLib
)

// Symbol is a named entity. Pointer identity is the symbol's identity.
type Symbol struct {
	Name  string
	Flags SymbolFlags
	// File is the declaring project file; empty for lib and external symbols.
	File  string
	Decls []*Decl
	// Module is the specifier of an external symbol, or the project file a
	// namespace import refers to.
	Module string
}

// Has reports whether every flag in f is set.
func (s *Symbol) Has(f SymbolFlags) bool {
	return s != nil && s.Flags&f == f
}

// Decl returns the first declaration, or nil.
func (s *Symbol) Decl() *Decl {
	if s == nil || len(s.Decls) == 0 {
		return nil
	}
	return s.Decls[0]
}

// TypeFlags categorize a type.
type TypeFlags uint32

const (
	AnyFlag TypeFlags = 1 << iota
	UnknownFlag
	StringFlag
	NumberFlag
	BooleanFlag
	BigIntFlag
	ESSymbolFlag
	VoidFlag
	NeverFlag
	UndefinedFlag
	NullFlag
	StringLiteralFlag
	NumberLiteralFlag
	BooleanLiteralFlag
	BigIntLiteralFlag
	ObjectFlag
	NonPrimitiveFlag
	UnionFlag
	IntersectionFlag
	TypeParameterFlag
)

const (
	LiteralFlags   = StringLiteralFlag | NumberLiteralFlag | BooleanLiteralFlag | BigIntLiteralFlag
	IntrinsicFlags = AnyFlag | UnknownFlag | StringFlag | NumberFlag | BooleanFlag | BigIntFlag |
		ESSymbolFlag | VoidFlag | NeverFlag | UndefinedFlag | NullFlag | NonPrimitiveFlag
)

// Type is a semantic type produced by the oracle. ID is unique per distinct
// type within one program.
type Type interface {
	ID() int
	Flags() TypeFlags
	Symbol() *Symbol
	AliasSymbol() *Symbol
	AliasTypeArguments() []Type
}

// Checker is the type oracle.
type Checker interface {
	// SymbolAtLocation resolves the name written at a reference type node,
	// following import aliases to the original declaration.
	SymbolAtLocation(n *TypeNode) *Symbol
	// TypeAtLocation returns the declared or inferred type of a member,
	// parameter, variable, or type node.
	TypeAtLocation(n Node) Type
	TypeFromTypeNode(n *TypeNode) Type
	// Constituents returns the members of a union or intersection type.
	Constituents(t Type) []Type
	IsArrayType(t Type) bool
	// TypeArguments returns the type arguments of a generic reference; for
	// arrays it returns the element type.
	TypeArguments(t Type) []Type
	// TypeToString prints t. It may fail, or panic, on pathological types.
	TypeToString(t Type) (string, error)
}
