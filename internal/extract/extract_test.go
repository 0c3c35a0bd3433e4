package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/phobologic/tsmodel/internal/canon"
	"github.com/phobologic/tsmodel/internal/graph"
	"github.com/phobologic/tsmodel/internal/ids"
	"github.com/phobologic/tsmodel/internal/model"
	"github.com/phobologic/tsmodel/internal/report"
	"github.com/phobologic/tsmodel/internal/tsprogram"
	"github.com/phobologic/tsmodel/internal/typeref"
)

type file struct {
	path, content string
}

func run(t *testing.T, opts Options, files ...file) *Result {
	t.Helper()
	var sources []*tsprogram.Source
	for _, f := range files {
		sources = append(sources, &tsprogram.Source{Path: f.path, Content: []byte(f.content)})
	}
	prog, err := tsprogram.FromSources(context.Background(), "/project", sources)
	require.NoError(t, err)
	res, err := Run(context.Background(), prog, opts)
	require.NoError(t, err)
	return res
}

func classifier(t *testing.T, m *model.IrModel, qn string) *model.Classifier {
	t.Helper()
	for _, c := range m.Classifiers {
		if c.QualifiedName == qn {
			return c
		}
	}
	t.Fatalf("classifier %s not found", qn)
	return nil
}

func attribute(t *testing.T, c *model.Classifier, name string) *model.Attribute {
	t.Helper()
	for _, a := range c.Attributes {
		if a.Name == name {
			return a
		}
	}
	t.Fatalf("attribute %s not found on %s", name, c.QualifiedName)
	return nil
}

func operation(t *testing.T, c *model.Classifier, name string) *model.Operation {
	t.Helper()
	for _, o := range c.Operations {
		if o.Name == name {
			return o
		}
	}
	t.Fatalf("operation %s not found on %s", name, c.QualifiedName)
	return nil
}

func relations(m *model.IrModel, kind model.RelationKind, src string) []*model.Relation {
	var out []*model.Relation
	for _, r := range m.Relations {
		if r.Kind == kind && r.SourceID == src {
			out = append(out, r)
		}
	}
	return out
}

func tag(tags []model.TaggedValue, key string) string {
	v, _ := model.Lookup(tags, key)
	return v
}

func TestHeritageAndAssociation(t *testing.T) {
	t.Parallel()

	res := run(t, Options{}, file{"shapes.ts", `
export class Base {}
export interface IThing {}
export class A extends Base implements IThing {
  b: Base;
}
`})
	m := res.Model
	a := classifier(t, m, "A")
	base := classifier(t, m, "Base")
	thing := classifier(t, m, "IThing")

	assert.Equal(t, ids.Classifier("CLASS", "shapes.ts", "A"), a.ID)

	gen := relations(m, model.Generalization, a.ID)
	require.Len(t, gen, 1)
	assert.Equal(t, base.ID, gen[0].TargetID)

	real := relations(m, model.Realization, a.ID)
	require.Len(t, real, 1)
	assert.Equal(t, thing.ID, real[0].TargetID)

	assoc := relations(m, model.Association, a.ID)
	require.Len(t, assoc, 1)
	assert.Equal(t, base.ID, assoc[0].TargetID)
	assert.Equal(t, "b", tag(assoc[0].TaggedValues, graph.MemberTag))

	assert.Len(t, m.Relations, 3)
	assert.Empty(t, res.Report.Findings())

	b := attribute(t, a, "b")
	assert.Equal(t, model.Named, b.Type.Kind)
	assert.Equal(t, "Base", b.Type.Name)
	assert.Equal(t, model.Public, b.Visibility)
}

func TestUnresolvedMemberType(t *testing.T) {
	t.Parallel()

	res := run(t, Options{}, file{"c.ts", `
class C {
  x: MissingType;
}
`})
	c := classifier(t, res.Model, "C")
	x := attribute(t, c, "x")
	assert.Equal(t, model.Named, x.Type.Kind)
	assert.Equal(t, "MissingType", x.Type.Name)
	assert.Empty(t, res.Model.Relations)

	require.Equal(t, 1, res.Report.Count(report.UnresolvedType))
	f := res.Report.Findings()[0]
	assert.Equal(t, model.SeverityWarning, f.Severity)
	assert.Equal(t, "C", tag(f.Tags, "classifier"))
	assert.Equal(t, "x", tag(f.Tags, "member"))
	assert.Equal(t, "MissingType", tag(f.Tags, "type"))
	require.NotNil(t, f.Location)
	assert.Equal(t, "c.ts", f.Location.File)
}

func TestUnresolvedHeritageIsSkippedSilently(t *testing.T) {
	t.Parallel()

	res := run(t, Options{}, file{"c.ts", `
import { Component } from 'react';
class View extends Component {}
class Other extends Nowhere implements AlsoNowhere {}
`})
	assert.Empty(t, res.Model.Relations)
	assert.Zero(t, res.Report.Count(report.UnresolvedType))
}

func TestDeterministicAcrossFileOrder(t *testing.T) {
	t.Parallel()

	files := []file{
		{"src/models/user.ts", `
export interface Entity { id: string }
export class User implements Entity {
  id: string;
  friends: User[];
  manager?: User;
}
`},
		{"src/services/repo.ts", `
import { User } from '../models/user';
export abstract class Repo<T> {
  abstract find(id: string): Promise<T | null>;
}
export class UserRepo extends Repo<User> {
  constructor(private readonly cache: Map<string, User>) { super(); }
  async find(id: string): Promise<User | null> { return null; }
}
`},
		{"main.ts", `
import { UserRepo } from './src/services/repo';
export const boot = (repo: UserRepo): void => {};
`},
	}
	reversed := make([]file, len(files))
	for i, f := range files {
		reversed[len(files)-1-i] = f
	}

	opts := Options{DeepDependencies: true, ModuleClassifiers: true}
	first, err := canon.Marshal(run(t, opts, files...).Model)
	require.NoError(t, err)
	second, err := canon.Marshal(run(t, opts, reversed...).Model)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestReferentialIntegrity(t *testing.T) {
	t.Parallel()

	res := run(t, Options{DeepDependencies: true, ModuleClassifiers: true},
		file{"a/b/one.ts", `export class One { two: Two; } export class Two { one?: One; }`},
		file{"a/three.ts", `import { One } from './b/one'; export class Three extends One {}`},
		file{"top.ts", `export type Id = string;`},
	)
	m := res.Model

	classifiers := make(map[string]bool)
	for _, c := range m.Classifiers {
		assert.False(t, classifiers[c.ID], "duplicate classifier id %s", c.ID)
		classifiers[c.ID] = true
	}
	packages := make(map[string]bool)
	for _, p := range m.Packages {
		packages[p.ID] = true
	}
	for _, p := range m.Packages {
		if p.ParentID != "" {
			assert.True(t, packages[p.ParentID], "package %s has unknown parent", p.QualifiedName)
		}
	}
	for _, c := range m.Classifiers {
		assert.True(t, packages[c.PackageID], "classifier %s has unknown package", c.QualifiedName)
	}
	relIDs := make(map[string]bool)
	for _, r := range m.Relations {
		assert.True(t, classifiers[r.SourceID])
		assert.True(t, classifiers[r.TargetID])
		assert.False(t, relIDs[r.ID], "duplicate relation id")
		relIDs[r.ID] = true
	}
	assert.Zero(t, res.Report.Count(report.DanglingRelation))
}

func TestPackages(t *testing.T) {
	t.Parallel()

	res := run(t, Options{},
		file{"src/models/user.ts", `export class User {}`},
		file{"root.ts", `export class Root {}`},
	)
	m := res.Model

	user := classifier(t, m, "src.models.User")
	root := classifier(t, m, "Root")

	byID := make(map[string]*model.Package)
	for _, p := range m.Packages {
		byID[p.ID] = p
	}
	models := byID[user.PackageID]
	require.NotNil(t, models)
	assert.Equal(t, "src.models", models.QualifiedName)
	assert.Equal(t, "models", models.Name)
	require.NotNil(t, byID[models.ParentID])
	assert.Equal(t, "src", byID[models.ParentID].QualifiedName)

	assert.Equal(t, DefaultPackage, byID[root.PackageID].QualifiedName)
}

func TestAliasedImportBindsToDeclaration(t *testing.T) {
	t.Parallel()

	res := run(t, Options{},
		file{"models/user.ts", `export class User {}`},
		file{"team.ts", `
import { User as Member } from './models/user';
export class Team {
  lead: Member;
}
`},
	)
	m := res.Model
	user := classifier(t, m, "models.User")
	team := classifier(t, m, "Team")

	lead := attribute(t, team, "lead")
	assert.Equal(t, "models.User", lead.Type.Name)
	assert.Equal(t, user.ID, lead.Type.Target)
	assert.Equal(t, "Member", tag(lead.Type.TaggedValues, typeref.OriginalNameTag))

	assoc := relations(m, model.Association, team.ID)
	require.Len(t, assoc, 1)
	assert.Equal(t, user.ID, assoc[0].TargetID)
}

func TestMultiplicity(t *testing.T) {
	t.Parallel()

	res := run(t, Options{}, file{"m.ts", `
class Item {}
class Bag {
  items: Item[];
  first?: Item;
  last: Item | null;
  only: Item;
  mixed: Item | string;
}
`})
	m := res.Model
	bag := classifier(t, m, "Bag")

	got := make(map[string]string)
	for _, r := range relations(m, model.Association, bag.ID) {
		got[tag(r.TaggedValues, graph.MemberTag)] = tag(r.TaggedValues, MultiplicityTag)
	}
	assert.Equal(t, map[string]string{
		"items": "*",
		"first": "0..1",
		"last":  "0..1",
		"only":  "",
	}, got)

	first := attribute(t, bag, "first")
	assert.True(t, first.IsOptional)
	items := attribute(t, bag, "items")
	assert.Equal(t, model.Array, items.Type.Kind)
}

func TestDeepDependencies(t *testing.T) {
	t.Parallel()

	src := `
class User {}
class Id {}
class Node {
  next: Node;
}
class Svc {
  users: Map<string, User>;
  find(id: Id): Promise<User | null> { return null as any; }
}
`
	shallow := run(t, Options{}, file{"d.ts", src})
	for _, r := range shallow.Model.Relations {
		assert.NotEqual(t, model.Dependency, r.Kind)
	}

	deep := run(t, Options{DeepDependencies: true}, file{"d.ts", src})
	m := deep.Model
	svc := classifier(t, m, "Svc")
	user := classifier(t, m, "User")
	id := classifier(t, m, "Id")
	node := classifier(t, m, "Node")

	type edge struct{ target, role string }
	var got []edge
	for _, r := range relations(m, model.Dependency, svc.ID) {
		got = append(got, edge{r.TargetID, tag(r.TaggedValues, graph.RoleTag)})
	}
	assert.ElementsMatch(t, []edge{
		{user.ID, RoleFieldType},
		{id.ID, RoleParamType},
		{user.ID, RoleReturnType},
	}, got)

	assert.Empty(t, relations(m, model.Dependency, node.ID))
	self := relations(m, model.Association, node.ID)
	require.Len(t, self, 1)
	assert.Equal(t, node.ID, self[0].TargetID)
}

func TestOperations(t *testing.T) {
	t.Parallel()

	res := run(t, Options{}, file{"ops.ts", `
class Repo {}
export abstract class Service<T> {
  constructor(private readonly repo: Repo, public name?: string) {}
  static create(): Service<string> { return null as any; }
  protected abstract handle(input: T, ...rest: number[]): void;
  async load(id = 1): Promise<T> { return null as any; }
  get label(): string { return ''; }
  set label(v: string) {}
  set only(v: number) {}
}
`})
	m := res.Model
	svc := classifier(t, m, "Service")
	repo := classifier(t, m, "Repo")

	assert.True(t, svc.IsAbstract)
	assert.Equal(t, []string{"T"}, svc.TypeParameters)
	assert.Equal(t, "true", tag(svc.TaggedValues, ExportedTag))

	ctor := operation(t, svc, "constructor")
	assert.True(t, ctor.IsConstructor)
	assert.Nil(t, ctor.ReturnType)
	require.Len(t, ctor.Parameters, 2)
	assert.True(t, ctor.Parameters[1].IsOptional)

	repoAttr := attribute(t, svc, "repo")
	assert.Equal(t, model.Private, repoAttr.Visibility)
	assert.True(t, repoAttr.IsReadonly)
	assoc := relations(m, model.Association, svc.ID)
	require.Len(t, assoc, 1)
	assert.Equal(t, repo.ID, assoc[0].TargetID)
	assert.Equal(t, "repo", tag(assoc[0].TaggedValues, graph.MemberTag))

	create := operation(t, svc, "create")
	assert.True(t, create.IsStatic)
	require.NotNil(t, create.ReturnType)
	assert.Equal(t, model.Generic, create.ReturnType.Kind)

	handle := operation(t, svc, "handle")
	assert.True(t, handle.IsAbstract)
	assert.Equal(t, model.Protected, handle.Visibility)
	require.Len(t, handle.Parameters, 2)
	assert.True(t, handle.Parameters[1].IsRest)
	assert.Equal(t, model.Primitive, handle.ReturnType.Kind)
	assert.Equal(t, "void", handle.ReturnType.Name)

	load := operation(t, svc, "load")
	assert.True(t, load.IsAsync)
	assert.True(t, load.Parameters[0].IsOptional)

	label := attribute(t, svc, "label")
	assert.Equal(t, "get,set", tag(label.TaggedValues, AccessorTag))
	assert.Equal(t, "string", label.Type.Name)
	only := attribute(t, svc, "only")
	assert.Equal(t, "set", tag(only.TaggedValues, AccessorTag))
	assert.Equal(t, "number", only.Type.Name)
}

func TestEnumsAliasesFunctions(t *testing.T) {
	t.Parallel()

	res := run(t, Options{}, file{"misc.ts", `
export enum Level { Low, High = 5, Max, Named = 'n' }
export type Id = string | number;
export type List = List[];
export function greet(name: string): string { return name; }
export const handler = async (req: Request) => {};
export const notAFunction = 42;
export default class {}
`})
	m := res.Model

	level := classifier(t, m, "Level")
	assert.Equal(t, model.Enum, level.Kind)
	want := []struct{ name, typ, value string }{
		{"Low", "number", "0"},
		{"High", "number", "5"},
		{"Max", "number", "6"},
		{"Named", "string", "n"},
	}
	require.Len(t, level.Attributes, len(want))
	for i, w := range want {
		a := level.Attributes[i]
		assert.Equal(t, w.name, a.Name)
		assert.Equal(t, model.Primitive, a.Type.Kind)
		assert.Equal(t, w.typ, a.Type.Name)
		assert.Equal(t, w.value, tag(a.TaggedValues, ValueTag))
		assert.True(t, a.IsStatic)
	}

	id := classifier(t, m, "Id")
	assert.Equal(t, model.TypeAlias, id.Kind)
	assert.Equal(t, "string | number", tag(id.TaggedValues, AliasOfTag))
	assert.Equal(t, "List[]", tag(classifier(t, m, "List").TaggedValues, AliasOfTag))

	greet := classifier(t, m, "greet")
	assert.Equal(t, model.Function, greet.Kind)
	require.Len(t, greet.Operations, 1)
	assert.Equal(t, "greet", greet.Operations[0].Name)

	handler := classifier(t, m, "handler")
	assert.Equal(t, model.Function, handler.Kind)
	assert.True(t, handler.Operations[0].IsAsync)

	for _, c := range m.Classifiers {
		assert.NotEqual(t, "notAFunction", c.Name)
		assert.NotEmpty(t, c.Name)
	}
}

func hasName(ref *model.TypeRef, name string) bool {
	found := false
	typeref.Walk(ref, func(r *model.TypeRef) {
		if r.Kind == model.Named && r.Name == name {
			found = true
		}
	})
	return found
}

func TestRecursiveAliasMember(t *testing.T) {
	t.Parallel()

	res := run(t, Options{}, file{"r.ts", `
type List = List[];
type Nest<T> = Nest<T[]>[];
type X<T> = X<X<T>>;
type Self = Self;
class Holder {
  list: List;
  nest: Nest<string>;
  x: X<string>;
  s: Self;
}
`})
	holder := classifier(t, res.Model, "Holder")
	list := attribute(t, holder, "list")
	require.Equal(t, model.Array, list.Type.Kind)
	assert.Equal(t, typeref.Recursive, list.Type.ElementType.Name)

	nest := attribute(t, holder, "nest").Type
	assert.Equal(t, model.Array, nest.Kind)
	assert.True(t, hasName(nest, typeref.DepthLimit), "widening instantiation ends in depth-limit")

	x := attribute(t, holder, "x").Type
	require.Equal(t, model.Generic, x.Kind)
	assert.Equal(t, "X", x.Name)
	assert.Equal(t, classifier(t, res.Model, "X").ID, x.Target)
	assert.True(t, hasName(x, typeref.Recursive), "X<X<T>> ends in recursive")

	s := attribute(t, holder, "s").Type
	assert.Equal(t, model.Named, s.Kind)
	assert.Equal(t, "Self", s.Name)
	assert.Equal(t, classifier(t, res.Model, "Self").ID, s.Target)

	_, err := canon.Marshal(res.Model)
	assert.NoError(t, err)
}

func TestMergedInterfaceIsOneClassifier(t *testing.T) {
	t.Parallel()

	res := run(t, Options{}, file{"i.ts", `
interface Config { host: string }
interface Config { port: number }
interface Extended extends Config {}
`})
	var configs []*model.Classifier
	for _, c := range res.Model.Classifiers {
		if c.Name == "Config" {
			configs = append(configs, c)
		}
	}
	require.Len(t, configs, 1)
	assert.Len(t, configs[0].Attributes, 2)

	ext := classifier(t, res.Model, "Extended")
	gen := relations(res.Model, model.Generalization, ext.ID)
	require.Len(t, gen, 1)
	assert.Equal(t, configs[0].ID, gen[0].TargetID)
}

func TestModuleClassifiers(t *testing.T) {
	t.Parallel()

	res := run(t, Options{ModuleClassifiers: true},
		file{"src/app.ts", `export class App {}`},
		file{"index.ts", `export {}`},
	)
	app := classifier(t, res.Model, "src/app.ts")
	assert.Equal(t, model.Module, app.Kind)
	assert.Equal(t, "app.ts", app.Name)
	assert.Equal(t, "src/app.ts", tag(app.TaggedValues, PathTag))
	assert.Equal(t, model.Module, classifier(t, res.Model, "index.ts").Kind)

	without := run(t, Options{}, file{"src/app.ts", `export class App {}`})
	for _, c := range without.Model.Classifiers {
		assert.NotEqual(t, model.Module, c.Kind)
	}
}

func TestSyntaxErrorFinding(t *testing.T) {
	t.Parallel()

	res := run(t, Options{}, file{"broken.ts", `class Broken { x: number;`})
	assert.Equal(t, 1, res.Report.Count(report.ParseError))
	assert.Equal(t, model.SeverityInfo, res.Report.Findings()[0].Severity)
}

func TestModelTagsAndSchema(t *testing.T) {
	t.Parallel()

	res := run(t, Options{}, file{"a.ts", `export class A {}`})
	assert.Equal(t, model.SchemaVersion, res.Model.SchemaVersion)
	assert.Equal(t, "typescript", tag(res.Model.TaggedValues, "source"))
	assert.Equal(t, "1", tag(res.Model.TaggedValues, "files"))
	assert.NotNil(t, res.Model.StereotypeDefinitions)
}

type fakeEnricher struct {
	err error
}

func (e *fakeEnricher) Name() string { return "fake" }

func (e *fakeEnricher) Enrich(_ context.Context, r *Registry) error {
	if e.err != nil {
		return e.err
	}
	pkg := r.VirtualPackage("endpoints", "GET")
	ep, created := r.EnsureClassifier(model.Class, "", "endpoints.GET./users", "/users", pkg)
	again, _ := r.EnsureClassifier(model.Class, "", "endpoints.GET./users", "/users", pkg)
	if !created || ep != again {
		return errors.New("ensure did not converge")
	}
	ep.AddStereotype(model.Stereotype{Name: "Endpoint"})
	ep.SetTag("framework", "http")
	for _, c := range r.Classifiers() {
		if c.Name == "Api" {
			r.Graph().Add(model.RouteTo, c.ID, ep.ID, *c.SourceRef)
		}
	}
	r.Graph().Add(model.RouteTo, ep.ID, "missing", model.SourceRef{})
	return nil
}

func TestEnrichers(t *testing.T) {
	t.Parallel()

	res := run(t, Options{Enrichers: []Enricher{&fakeEnricher{}}}, file{"api.ts", `export class Api {}`})
	m := res.Model

	ep := classifier(t, m, "endpoints.GET./users")
	require.Len(t, relations(m, model.RouteTo, classifier(t, m, "Api").ID), 1)
	assert.Equal(t, []model.StereotypeRef{{StereotypeID: "st:http.Endpoint"}}, ep.StereotypeRefs)
	assert.Equal(t, 1, res.Report.Count(report.DanglingRelation))

	var virtual *model.Package
	for _, p := range m.Packages {
		if p.ID == ep.PackageID {
			virtual = p
		}
	}
	require.NotNil(t, virtual)
	assert.Equal(t, "endpoints.GET", virtual.QualifiedName)
	assert.Equal(t, "true", tag(virtual.TaggedValues, VirtualTag))
}

func TestEnricherError(t *testing.T) {
	t.Parallel()

	prog, err := tsprogram.FromSources(context.Background(), "/project",
		[]*tsprogram.Source{{Path: "a.ts", Content: []byte("class A {}")}})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = Run(context.Background(), prog, Options{Enrichers: []Enricher{&fakeEnricher{err: boom}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "enrich fake")
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()

	prog, err := tsprogram.FromSources(context.Background(), "/project",
		[]*tsprogram.Source{{Path: "a.ts", Content: []byte("class A {}")}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Run(ctx, prog, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
