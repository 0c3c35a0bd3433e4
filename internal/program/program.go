// Package program defines the contract between the extraction engine and a
// program provider: the syntax of every in-scope source file, the symbols its
// declarations introduce, and a type oracle that answers questions about them.
//
// The engine never builds any of this itself. internal/tsprogram is the
// concrete provider used by the CLI; tests substitute their own.
package program

import "strings"

// Pos is a 1-based line/column position.
type Pos struct {
	Line   int
	Column int
}

// Node is any syntax element the oracle can type.
type Node interface {
	Position() Pos
}

// DeclKind is the syntactic kind of a top-level declaration.
type DeclKind string

const (
	ClassDecl     DeclKind = "class"
	InterfaceDecl DeclKind = "interface"
	EnumDecl      DeclKind = "enum"
	TypeAliasDecl DeclKind = "type"
	FunctionDecl  DeclKind = "function"
	VariableDecl  DeclKind = "variable"
)

// SourceFile is the syntax of one project file.
type SourceFile struct {
	// Path is slash-separated and relative to the project root.
	Path     string
	Language string
	Decls    []*Decl
	Imports  []*Import
	Exports  []*Export
	// SyntaxErrors counts ERROR and MISSING nodes in the tree.
	SyntaxErrors int
}

// Decl is a top-level declaration.
type Decl struct {
	Kind     DeclKind
	Name     string
	File     string
	Pos      Pos
	Exported bool
	Default  bool
	Abstract bool
	Ambient  bool
	Const    bool

	Decorators []*Decorator
	TypeParams []string
	Scope      *Scope

	// Classes and interfaces.
	Extends    []*TypeNode
	Implements []*TypeNode
	Members    []*Member

	EnumMembers []*EnumMember

	// Aliased is the body of a type alias.
	Aliased *TypeNode

	// Signature is set for function declarations and for variables whose
	// initializer is an arrow function or function expression.
	Signature *Signature

	// Type and Initializer describe variables.
	Type        *TypeNode
	Initializer *Initializer

	// Symbol is bound by the provider after all files are parsed.
	Symbol *Symbol
}

func (d *Decl) Position() Pos { return d.Pos }

// FunctionLike reports whether the declaration is callable.
func (d *Decl) FunctionLike() bool {
	return d.Kind == FunctionDecl || d.Signature != nil
}

// Signature is a parameter list with an optional return annotation.
type Signature struct {
	TypeParams []string
	Params     []*Param
	Return     *TypeNode
	Async      bool
}

// MemberKind is the syntactic kind of a class or interface member.
type MemberKind string

const (
	FieldMember       MemberKind = "field"
	MethodMember      MemberKind = "method"
	ConstructorMember MemberKind = "constructor"
	GetterMember      MemberKind = "get"
	SetterMember      MemberKind = "set"
	IndexMember       MemberKind = "index"
)

// Member is a class or interface member.
type Member struct {
	Kind MemberKind
	Name string
	Pos  Pos
	// Visibility is "public", "protected", "private", or "" when unwritten.
	Visibility string
	Static     bool
	Readonly   bool
	Optional   bool
	Abstract   bool
	// PrivateName is set for #name members.
	PrivateName bool

	Type        *TypeNode
	Initializer *Initializer
	Signature   *Signature
	Decorators  []*Decorator
}

func (m *Member) Position() Pos { return m.Pos }

// Param is a function or constructor parameter.
type Param struct {
	Name     string
	Pos      Pos
	Type     *TypeNode
	Optional bool
	Rest     bool
	// Visibility and Readonly make a constructor parameter a parameter property.
	Visibility  string
	Readonly    bool
	Decorators  []*Decorator
	Initializer *Initializer
}

func (p *Param) Position() Pos { return p.Pos }

// IsProperty reports whether the parameter also declares a class property.
func (p *Param) IsProperty() bool {
	return p.Visibility != "" || p.Readonly
}

// EnumMember is one enum entry; Value is the written initializer text.
type EnumMember struct {
	Name  string
	Value string
	Pos   Pos
}

// InitKind classifies an initializer expression.
type InitKind string

const (
	InitNew      InitKind = "new"
	InitString   InitKind = "string"
	InitNumber   InitKind = "number"
	InitBoolean  InitKind = "boolean"
	InitArray    InitKind = "array"
	InitFunction InitKind = "function"
	InitOther    InitKind = "other"
)

// Initializer summarizes an initializer expression.
type Initializer struct {
	Kind InitKind
	// Callee is the constructor name for InitNew.
	Callee string
	Text   string
	// File is the declaring file, used to resolve Callee.
	File string
}

// Decorator is an @-annotation on a class, member, or parameter.
type Decorator struct {
	// Name is the decorator identifier, dotted for member expressions.
	Name   string
	Pos    Pos
	Called bool
	Args   []*Expr
}

// ExprKind classifies a decorator argument expression.
type ExprKind string

const (
	IdentExpr  ExprKind = "ident"
	StringExpr ExprKind = "string"
	NumberExpr ExprKind = "number"
	BoolExpr   ExprKind = "bool"
	ObjectExpr ExprKind = "object"
	ArrayExpr  ExprKind = "array"
	CallExpr   ExprKind = "call"
	OtherExpr  ExprKind = "other"
)

// Expr is a shallow decorator-argument expression tree.
type Expr struct {
	Kind ExprKind
	// Text is the identifier, the unquoted string, or the raw source.
	Text  string
	Pos   Pos
	Props []*Property
	// Elems holds array elements or call arguments.
	Elems []*Expr
}

// Property is one key/value pair of an object literal.
type Property struct {
	Key   string
	Value *Expr
}

// Prop returns the value of key in an object expression, or nil.
func (e *Expr) Prop(key string) *Expr {
	if e == nil {
		return nil
	}
	for _, p := range e.Props {
		if p.Key == key {
			return p.Value
		}
	}
	return nil
}

// TypeNodeKind classifies a written type annotation.
type TypeNodeKind string

const (
	RefType          TypeNodeKind = "ref"
	UnionType        TypeNodeKind = "union"
	IntersectionType TypeNodeKind = "intersection"
	ArrayType        TypeNodeKind = "array"
	PredefinedType   TypeNodeKind = "predefined"
	LiteralType      TypeNodeKind = "literal"
	TupleType        TypeNodeKind = "tuple"
	FunctionType     TypeNodeKind = "function"
	ObjectType       TypeNodeKind = "object"
	OtherType        TypeNodeKind = "other"
)

// TypeNode is a written type annotation.
type TypeNode struct {
	Kind TypeNodeKind
	// Name is the written (possibly dotted) name of a reference, the keyword of
	// a predefined type, or the text of a literal.
	Name string
	// Args holds reference type arguments, union or intersection members in
	// written order, or tuple elements.
	Args     []*TypeNode
	Elem     *TypeNode
	Readonly bool
	Text     string
	Pos      Pos
	Scope    *Scope
	File     string
}

func (n *TypeNode) Position() Pos { return n.Pos }

// Scope lists the type parameters visible at a type node.
type Scope struct {
	Params []string
	Parent *Scope
}

// Lookup reports whether name is a type parameter visible from s.
func (s *Scope) Lookup(name string) (*Scope, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		for _, p := range cur.Params {
			if p == name {
				return cur, true
			}
		}
	}
	return nil, false
}

// Import is one import declaration.
type Import struct {
	Spec      string
	Pos       Pos
	TypeOnly  bool
	Default   string
	Namespace string
	Names     []ImportName
}

// ImportName binds Imported from the module to Local in this file.
type ImportName struct {
	Imported string
	Local    string
}

// LocalNames returns every local binding the import introduces.
func (i *Import) LocalNames() []string {
	var names []string
	if i.Default != "" {
		names = append(names, i.Default)
	}
	if i.Namespace != "" {
		names = append(names, i.Namespace)
	}
	for _, n := range i.Names {
		names = append(names, n.Local)
	}
	return names
}

// Export is an export clause or a re-export.
type Export struct {
	// Spec is the re-exported module, or "" for local export clauses.
	Spec string
	Pos  Pos
	// Star is set for `export * from`; Namespace for `export * as ns from`.
	Star      bool
	Namespace string
	Names     []ExportName
}

// ExportName exports Local (a local binding, or a name of Spec) as Exported.
type ExportName struct {
	Local    string
	Exported string
}

// IsRelative reports whether a module specifier is file-relative.
func IsRelative(spec string) bool {
	return spec == "." || spec == ".." || strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../")
}

// Program is a loaded set of source files plus its type oracle.
type Program interface {
	// Root is the absolute project root.
	Root() string
	// Files returns every source file sorted by path.
	Files() []*SourceFile
	Checker() Checker
	// ResolveModule maps an import specifier used in file from to a project
	// file path. ok is false for external or missing modules.
	ResolveModule(spec, from string) (path string, ok bool)
}
