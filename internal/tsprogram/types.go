package tsprogram

import "github.com/phobologic/tsmodel/internal/program"

type typeBase struct {
	id    int
	flags program.TypeFlags
}

func (t *typeBase) ID() int                            { return t.id }
func (t *typeBase) Flags() program.TypeFlags           { return t.flags }
func (t *typeBase) Symbol() *program.Symbol            { return nil }
func (t *typeBase) AliasSymbol() *program.Symbol       { return nil }
func (t *typeBase) AliasTypeArguments() []program.Type { return nil }

// intrinsicType is any, unknown, string, number and the other keywords.
type intrinsicType struct {
	typeBase
	name string
}

type literalType struct {
	typeBase
	text string
}

// setType is a union or an intersection.
type setType struct {
	typeBase
	members []program.Type
}

// refType is a reference to a named class, interface, enum, library global,
// or external binding, with optional type arguments.
type refType struct {
	typeBase
	sym  *program.Symbol
	args []program.Type
}

func (t *refType) Symbol() *program.Symbol { return t.sym }

type typeParamType struct {
	typeBase
	sym *program.Symbol
}

func (t *typeParamType) Symbol() *program.Symbol { return t.sym }

// anonType is a structural type the model keeps opaque: object literals,
// function types, tuples and type operators. text is the written form.
type anonType struct {
	typeBase
	text string
}

type aliasState int

const (
	aliasPending aliasState = iota
	aliasResolving
	aliasDone
)

// aliasType is an instantiation of a type alias. Its body is resolved on
// first use; a body that refers back to the alias while resolving becomes a
// plain reference to the alias.
type aliasType struct {
	id    int
	c     *Checker
	sym   *program.Symbol
	args  []program.Type
	level int
	state aliasState
	body  program.Type
}

func (t *aliasType) ID() int                  { return t.id }
func (t *aliasType) Flags() program.TypeFlags { return t.resolved().Flags() }
func (t *aliasType) Symbol() *program.Symbol  { return t.resolved().Symbol() }

// AliasSymbol is kept only for bodies that have no symbol of their own, so
// `type Id = Foo` displays as Foo.
func (t *aliasType) AliasSymbol() *program.Symbol {
	if t.resolved().Symbol() != nil {
		return nil
	}
	return t.sym
}

func (t *aliasType) AliasTypeArguments() []program.Type {
	if t.AliasSymbol() == nil {
		return nil
	}
	return t.args
}

func (t *aliasType) resolved() program.Type {
	switch t.state {
	case aliasDone:
		return t.body
	case aliasResolving:
		return t.c.ref(t.sym, t.args)
	}
	t.state = aliasResolving
	body := t.c.instantiate(t)
	// A body that is itself an alias reference is replaced by what that
	// alias resolves to, so resolved types are never aliases.
	if inner, ok := body.(*aliasType); ok {
		body = inner.resolved()
	}
	t.body, t.state = body, aliasDone
	return body
}

// unwrap returns the resolved body of alias types.
func unwrap(t program.Type) program.Type {
	if a, ok := t.(*aliasType); ok {
		return a.resolved()
	}
	return t
}
