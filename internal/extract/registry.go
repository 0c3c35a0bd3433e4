package extract

import (
	"path"
	"strings"

	"github.com/phobologic/tsmodel/internal/graph"
	"github.com/phobologic/tsmodel/internal/ids"
	"github.com/phobologic/tsmodel/internal/model"
	"github.com/phobologic/tsmodel/internal/program"
	"github.com/phobologic/tsmodel/internal/report"
	"github.com/phobologic/tsmodel/internal/typeref"
)

// DefaultPackage names the package of files at the project root.
const DefaultPackage = "(default)"

// Tag keys written on packages and classifiers.
const (
	VirtualTag  = "virtual"
	PathTag     = "path"
	ExportedTag = "exported"
	DefaultTag  = "default"
)

const dirNamespace = "dir"

type binding struct {
	id   string
	kind model.ClassifierKind
}

// Registry is the classifier arena shared by every pass of one run. It owns
// the packages, the relation graph, and the report.
type Registry struct {
	prog   program.Program
	graph  *graph.Graph
	report *report.Report
	norm   *typeref.Normalizer

	classifiers map[string]*model.Classifier
	order       []*model.Classifier
	// symbols maps declaring symbols to classifiers. It is private to the
	// passes of this package.
	symbols map[*program.Symbol]binding
	decls   map[string][]*program.Decl
	modules map[string]string

	packages     map[string]*model.Package
	packageOrder []*model.Package
}

// NewRegistry returns an empty registry over prog.
func NewRegistry(prog program.Program, maxTypeDepth int) *Registry {
	r := &Registry{
		prog:        prog,
		report:      report.New(),
		classifiers: make(map[string]*model.Classifier),
		symbols:     make(map[*program.Symbol]binding),
		decls:       make(map[string][]*program.Decl),
		modules:     make(map[string]string),
		packages:    make(map[string]*model.Package),
	}
	r.graph = graph.New(r.Has, r.report)
	r.norm = typeref.New(prog.Checker(), r.bind, typeref.WithMaxDepth(maxTypeDepth))
	return r
}

// Program returns the program being modeled.
func (r *Registry) Program() program.Program { return r.prog }

// Graph returns the relation graph; Graph.Add is the only way to add relations.
func (r *Registry) Graph() *graph.Graph { return r.graph }

// Report returns the findings sink.
func (r *Registry) Report() *report.Report { return r.report }

// Normalizer returns the type normalizer bound to this registry's classifiers.
func (r *Registry) Normalizer() *typeref.Normalizer { return r.norm }

// Has reports whether a classifier with id exists.
func (r *Registry) Has(id string) bool {
	_, ok := r.classifiers[id]
	return ok
}

// Classifier returns the classifier with id, or nil.
func (r *Registry) Classifier(id string) *model.Classifier {
	return r.classifiers[id]
}

// Classifiers returns every classifier in insertion order.
func (r *Registry) Classifiers() []*model.Classifier {
	return r.order
}

// Declarations returns the syntax a classifier was declared from. Synthetic
// classifiers have none.
func (r *Registry) Declarations(id string) []*program.Decl {
	return r.decls[id]
}

// Module returns the module classifier of a file, when module classifiers
// are enabled.
func (r *Registry) Module(file string) (*model.Classifier, bool) {
	id, ok := r.modules[file]
	if !ok {
		return nil, false
	}
	return r.classifiers[id], true
}

// Packages returns every package in insertion order.
func (r *Registry) Packages() []*model.Package {
	return r.packageOrder
}

func (r *Registry) bind(sym *program.Symbol) (typeref.Binding, bool) {
	b, ok := r.symbols[sym]
	if !ok {
		return typeref.Binding{}, false
	}
	return typeref.Binding{ID: b.id, QualifiedName: r.classifiers[b.id].QualifiedName}, true
}

// EnsureClassifier returns the classifier identified by (kind, file,
// qualifiedName), creating it in pkg when absent. Repeated calls with the same
// key converge on one classifier.
func (r *Registry) EnsureClassifier(kind model.ClassifierKind, file, qualifiedName, name string, pkg *model.Package) (*model.Classifier, bool) {
	id := ids.Classifier(string(kind), file, qualifiedName)
	if c, ok := r.classifiers[id]; ok {
		return c, false
	}
	c := &model.Classifier{
		ID:             id,
		Name:           name,
		QualifiedName:  qualifiedName,
		Kind:           kind,
		Attributes:     []*model.Attribute{},
		Operations:     []*model.Operation{},
		Stereotypes:    []model.Stereotype{},
		StereotypeRefs: []model.StereotypeRef{},
		TaggedValues:   []model.TaggedValue{},
	}
	if pkg != nil {
		c.PackageID = pkg.ID
	}
	r.classifiers[id] = c
	r.order = append(r.order, c)
	r.report.CountClassifier(kind)
	return c, true
}

// SetKind changes the kind of c. Its id is left unchanged.
func (r *Registry) SetKind(c *model.Classifier, kind model.ClassifierKind) {
	if c.Kind == kind {
		return
	}
	r.report.MoveClassifier(c.Kind, kind)
	c.Kind = kind
}

// DirPackage returns the package of the directory holding file, creating it
// and its ancestors on first use.
func (r *Registry) DirPackage(file string) *model.Package {
	dir := path.Dir(file)
	if dir == "." || dir == "/" {
		return r.ensurePackage(dirNamespace, DefaultPackage, DefaultPackage, nil)
	}
	var parent *model.Package
	var qn string
	for _, seg := range strings.Split(dir, "/") {
		if qn == "" {
			qn = seg
		} else {
			qn += "." + seg
		}
		parent = r.ensurePackage(dirNamespace, qn, seg, parent)
	}
	return parent
}

// VirtualPackage returns the synthetic package at segments under namespace,
// creating the hierarchy on first use. Virtual packages are cached per
// registry and tagged virtual=true.
func (r *Registry) VirtualPackage(namespace string, segments ...string) *model.Package {
	parent := r.ensurePackage("virtual:"+namespace, namespace, namespace, nil)
	qn := namespace
	for _, seg := range segments {
		qn += "." + seg
		parent = r.ensurePackage("virtual:"+namespace, qn, seg, parent)
	}
	return parent
}

func (r *Registry) ensurePackage(namespace, qn, name string, parent *model.Package) *model.Package {
	id := ids.Package(namespace, qn)
	if p, ok := r.packages[id]; ok {
		return p
	}
	p := &model.Package{ID: id, Name: name, QualifiedName: qn}
	if parent != nil {
		p.ParentID = parent.ID
	}
	if strings.HasPrefix(namespace, "virtual:") {
		p.TaggedValues = []model.TaggedValue{model.Tag(VirtualTag, "true")}
	}
	r.packages[id] = p
	r.packageOrder = append(r.packageOrder, p)
	return p
}

// qualify joins a package qualified name and a declaration name. Root-level
// declarations keep their bare name.
func qualify(pkg *model.Package, name string) string {
	if pkg == nil || pkg.QualifiedName == DefaultPackage {
		return name
	}
	return pkg.QualifiedName + "." + name
}

func sourceRef(file string, pos program.Pos) model.SourceRef {
	return model.SourceRef{File: file, Line: pos.Line, Column: pos.Column}
}

// Model assembles the IR from the registry's current contents.
func (r *Registry) Model() *model.IrModel {
	m := model.New()
	m.Packages = append(m.Packages, r.packageOrder...)
	m.Classifiers = append(m.Classifiers, r.order...)
	m.Relations = append(m.Relations, r.graph.Relations()...)
	return m
}
