package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/tsmodel/internal/lang"
	"github.com/phobologic/tsmodel/internal/program"
)

func parseTS(t *testing.T, langName, source string) *program.SourceFile {
	t.Helper()
	l := lang.Languages[langName]
	require.NotNil(t, l, "language %q not registered", langName)
	p := l.NewParser()
	defer p.Close()
	sf, err := File(context.Background(), l, p, []byte(source), "src/test"+l.Extensions[0])
	require.NoError(t, err)
	return sf
}

func findDecl(t *testing.T, sf *program.SourceFile, name string) *program.Decl {
	t.Helper()
	for _, d := range sf.Decls {
		if d.Name == name {
			return d
		}
	}
	t.Fatalf("declaration %q not found", name)
	return nil
}

func findMember(t *testing.T, d *program.Decl, name string) *program.Member {
	t.Helper()
	for _, m := range d.Members {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("member %q not found in %s", name, d.Name)
	return nil
}

func TestClassHeritageAndMembers(t *testing.T) {
	t.Parallel()

	sf := parseTS(t, "typescript", `
export class A extends Base<string> implements IThing, Other {
  b: Base;
  private readonly items: Item[] = [];
  static count = 0;
  protected name?: string;

  constructor(private repo: Repo, label: string) {
    super();
  }

  async load(id: number): Promise<Item> {
    return null as any;
  }

  get size(): number { return 0; }
}
`)
	a := findDecl(t, sf, "A")
	assert.Equal(t, program.ClassDecl, a.Kind)
	assert.True(t, a.Exported)
	require.Len(t, a.Extends, 1)
	assert.Equal(t, "Base", a.Extends[0].Name)
	require.Len(t, a.Extends[0].Args, 1)
	assert.Equal(t, program.PredefinedType, a.Extends[0].Args[0].Kind)
	require.Len(t, a.Implements, 2)
	assert.Equal(t, "IThing", a.Implements[0].Name)
	assert.Equal(t, "Other", a.Implements[1].Name)

	b := findMember(t, a, "b")
	assert.Equal(t, program.FieldMember, b.Kind)
	require.NotNil(t, b.Type)
	assert.Equal(t, program.RefType, b.Type.Kind)
	assert.Equal(t, "Base", b.Type.Name)

	items := findMember(t, a, "items")
	assert.Equal(t, "private", items.Visibility)
	assert.True(t, items.Readonly)
	require.NotNil(t, items.Type)
	assert.Equal(t, program.ArrayType, items.Type.Kind)
	assert.Equal(t, "Item", items.Type.Elem.Name)

	count := findMember(t, a, "count")
	assert.True(t, count.Static)
	require.NotNil(t, count.Initializer)
	assert.Equal(t, program.InitNumber, count.Initializer.Kind)

	assert.True(t, findMember(t, a, "name").Optional)

	ctor := findMember(t, a, "constructor")
	assert.Equal(t, program.ConstructorMember, ctor.Kind)
	require.Len(t, ctor.Signature.Params, 2)
	assert.Equal(t, "repo", ctor.Signature.Params[0].Name)
	assert.True(t, ctor.Signature.Params[0].IsProperty())
	assert.False(t, ctor.Signature.Params[1].IsProperty())

	load := findMember(t, a, "load")
	assert.Equal(t, program.MethodMember, load.Kind)
	assert.True(t, load.Signature.Async)
	require.NotNil(t, load.Signature.Return)
	assert.Equal(t, "Promise", load.Signature.Return.Name)
	require.Len(t, load.Signature.Return.Args, 1)

	assert.Equal(t, program.GetterMember, findMember(t, a, "size").Kind)
}

func TestInterfaceEnumAlias(t *testing.T) {
	t.Parallel()

	sf := parseTS(t, "typescript", `
interface IThing extends Named, Other<number> {
  readonly id: string;
  tags?: string[];
  run(x: number): void;
}

enum Color { Red, Green = 4, Blue }

type Shape = Circle | Square | Triangle;
type Pair<T> = [T, T];
`)
	it := findDecl(t, sf, "IThing")
	assert.Equal(t, program.InterfaceDecl, it.Kind)
	require.Len(t, it.Extends, 2)
	assert.Equal(t, "Other", it.Extends[1].Name)
	assert.True(t, findMember(t, it, "id").Readonly)
	assert.True(t, findMember(t, it, "tags").Optional)
	assert.Equal(t, program.MethodMember, findMember(t, it, "run").Kind)

	color := findDecl(t, sf, "Color")
	require.Len(t, color.EnumMembers, 3)
	assert.Equal(t, "Green", color.EnumMembers[1].Name)
	assert.Equal(t, "4", color.EnumMembers[1].Value)

	shape := findDecl(t, sf, "Shape")
	require.NotNil(t, shape.Aliased)
	assert.Equal(t, program.UnionType, shape.Aliased.Kind)
	require.Len(t, shape.Aliased.Args, 3, "nested unions are flattened")
	assert.Equal(t, "Circle", shape.Aliased.Args[0].Name)
	assert.Equal(t, "Triangle", shape.Aliased.Args[2].Name)

	pair := findDecl(t, sf, "Pair")
	assert.Equal(t, []string{"T"}, pair.TypeParams)
	assert.Equal(t, program.TupleType, pair.Aliased.Kind)
	scope, ok := pair.Aliased.Scope.Lookup("T")
	assert.True(t, ok)
	assert.NotNil(t, scope)
}

func TestFunctionsAndVariables(t *testing.T) {
	t.Parallel()

	sf := parseTS(t, "typescript", `
export function make<T>(x: T): Box<T> { return new Box(x); }
export const handler = async (req: Request): Promise<void> => {};
let counter = 0;
const repo = new Repo();
`)
	mk := findDecl(t, sf, "make")
	assert.Equal(t, program.FunctionDecl, mk.Kind)
	assert.True(t, mk.FunctionLike())
	assert.Equal(t, []string{"T"}, mk.TypeParams)
	require.Len(t, mk.Signature.Params, 1)
	assert.Equal(t, "Box", mk.Signature.Return.Name)

	h := findDecl(t, sf, "handler")
	assert.Equal(t, program.VariableDecl, h.Kind)
	assert.True(t, h.Const)
	assert.True(t, h.FunctionLike())
	assert.True(t, h.Signature.Async)

	counter := findDecl(t, sf, "counter")
	assert.False(t, counter.FunctionLike())
	assert.False(t, counter.Const)

	repo := findDecl(t, sf, "repo")
	require.NotNil(t, repo.Initializer)
	assert.Equal(t, program.InitNew, repo.Initializer.Kind)
	assert.Equal(t, "Repo", repo.Initializer.Callee)
}

func TestImportsAndExports(t *testing.T) {
	t.Parallel()

	sf := parseTS(t, "typescript", `
import Default, { A, B as Bee } from './models';
import * as ns from "../lib";
import type { T } from './types';
import './side-effect';
export { X as Y } from './x';
export * from './all';
export * as grouped from './grouped';
class Local {}
export { Local as Renamed };
export default Local;
`)
	require.Len(t, sf.Imports, 4)
	first := sf.Imports[0]
	assert.Equal(t, "./models", first.Spec)
	assert.Equal(t, "Default", first.Default)
	assert.Equal(t, []program.ImportName{{Imported: "A", Local: "A"}, {Imported: "B", Local: "Bee"}}, first.Names)
	assert.Equal(t, "ns", sf.Imports[1].Namespace)
	assert.True(t, sf.Imports[2].TypeOnly)
	assert.Equal(t, "./side-effect", sf.Imports[3].Spec)

	var reexports, local []*program.Export
	for _, e := range sf.Exports {
		if e.Spec != "" {
			reexports = append(reexports, e)
		} else {
			local = append(local, e)
		}
	}
	require.Len(t, reexports, 3)
	assert.Equal(t, []program.ExportName{{Local: "X", Exported: "Y"}}, reexports[0].Names)
	assert.True(t, reexports[1].Star)
	assert.Equal(t, "grouped", reexports[2].Namespace)
	assert.False(t, reexports[2].Star)

	require.Len(t, local, 2)
	assert.Equal(t, "Renamed", local[0].Names[0].Exported)
	assert.Equal(t, program.ExportName{Local: "Local", Exported: "default"}, local[1].Names[0])
}

func TestDecorators(t *testing.T) {
	t.Parallel()

	sf := parseTS(t, "typescript", `
import { Component, Input, Inject } from '@angular/core';

@Component({
  selector: 'app-root',
  providers: [Logger, { provide: Store, useClass: MemoryStore }],
})
export class AppComponent {
  @Input() title: string;

  constructor(@Inject(TOKEN) private cfg: Config) {}

  @HostListener('click')
  onClick(): void {}
}
`)
	app := findDecl(t, sf, "AppComponent")
	require.Len(t, app.Decorators, 1)
	dec := app.Decorators[0]
	assert.Equal(t, "Component", dec.Name)
	assert.True(t, dec.Called)
	require.Len(t, dec.Args, 1)
	obj := dec.Args[0]
	assert.Equal(t, program.ObjectExpr, obj.Kind)
	assert.Equal(t, "app-root", obj.Prop("selector").Text)
	providers := obj.Prop("providers")
	require.NotNil(t, providers)
	require.Len(t, providers.Elems, 2)
	assert.Equal(t, program.IdentExpr, providers.Elems[0].Kind)
	assert.Equal(t, "MemoryStore", providers.Elems[1].Prop("useClass").Text)

	title := findMember(t, app, "title")
	require.Len(t, title.Decorators, 1)
	assert.Equal(t, "Input", title.Decorators[0].Name)

	onClick := findMember(t, app, "onClick")
	require.Len(t, onClick.Decorators, 1)
	assert.Equal(t, "HostListener", onClick.Decorators[0].Name)

	ctor := findMember(t, app, "constructor")
	require.Len(t, ctor.Signature.Params, 1)
	param := ctor.Signature.Params[0]
	require.Len(t, param.Decorators, 1)
	assert.Equal(t, "Inject", param.Decorators[0].Name)
	assert.Equal(t, "TOKEN", param.Decorators[0].Args[0].Text)
}

func TestTSXAndSyntaxErrors(t *testing.T) {
	t.Parallel()

	sf := parseTS(t, "tsx", `
export function App(props: Props) { return <div>{props.title}</div>; }
`)
	assert.Equal(t, "tsx", sf.Language)
	assert.Equal(t, program.FunctionDecl, findDecl(t, sf, "App").Kind)
	assert.Zero(t, sf.SyntaxErrors)

	broken := parseTS(t, "typescript", "class Broken { x: = ; }\n")
	assert.Positive(t, broken.SyntaxErrors)
}

func TestEmptySource(t *testing.T) {
	t.Parallel()

	sf := parseTS(t, "typescript", "")
	assert.Empty(t, sf.Decls)
	assert.Equal(t, "src/test.ts", sf.Path)
}
