// Package stereotype derives the stereotype registry of a model from the ad
// hoc stereotypes earlier passes attached to its elements.
package stereotype

import (
	"sort"
	"strings"

	"github.com/phobologic/tsmodel/internal/model"
)

// FrameworkTag is the element tag that names the namespace of its stereotypes.
const FrameworkTag = "framework"

// DefaultNamespace is used when an element carries no framework tag.
const DefaultNamespace = "generic"

// ProfileName is written on every derived definition.
const ProfileName = "tsmodel"

// builder accumulates definitions keyed by id.
type builder struct {
	defs      map[string]*model.StereotypeDefinition
	appliesTo map[string]map[string]struct{}
}

// Build replaces m.StereotypeDefinitions with one definition per unique
// (namespace, name) observed in m, and sets the stereotypeRefs of every
// classifier, attribute, operation and relation. The namespace of a stereotype
// is the framework tag of the element carrying it, or DefaultNamespace.
// Stereotypes whose name sanitizes to nothing are skipped. Existing ad hoc
// stereotypes are left in place. Build is idempotent.
func Build(m *model.IrModel) {
	b := &builder{
		defs:      make(map[string]*model.StereotypeDefinition),
		appliesTo: make(map[string]map[string]struct{}),
	}
	for _, c := range m.Classifiers {
		c.StereotypeRefs = b.refs(c.Stereotypes, namespace(c.TaggedValues), classifierMetaclass(c.Kind))
		for _, a := range c.Attributes {
			a.StereotypeRefs = b.refs(a.Stereotypes, namespace(a.TaggedValues), "Property")
		}
		for _, o := range c.Operations {
			o.StereotypeRefs = b.refs(o.Stereotypes, namespace(o.TaggedValues), "Operation")
		}
	}
	for _, r := range m.Relations {
		r.StereotypeRefs = b.refs(r.Stereotypes, namespace(r.TaggedValues), relationMetaclass(r.Kind))
	}
	m.StereotypeDefinitions = b.definitions()
}

// refs registers each stereotype and returns the element's refs sorted by id.
func (b *builder) refs(stereotypes []model.Stereotype, ns, metaclass string) []model.StereotypeRef {
	out := []model.StereotypeRef{}
	seen := make(map[string]struct{}, len(stereotypes))
	for _, s := range stereotypes {
		id, ok := b.register(s, ns)
		if !ok {
			continue
		}
		b.appliesTo[id][metaclass] = struct{}{}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, model.StereotypeRef{StereotypeID: id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StereotypeID < out[j].StereotypeID })
	return out
}

func (b *builder) register(s model.Stereotype, ns string) (string, bool) {
	name := s.Name
	if name == "" {
		// Only the local part of a qualified name names the stereotype.
		name = s.QualifiedName
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
	}
	name = Sanitize(name)
	if strings.Trim(name, "_") == "" {
		return "", false
	}
	ns = Sanitize(ns)
	if strings.Trim(ns, "_") == "" {
		ns = DefaultNamespace
	}
	id := ID(ns, name)
	if _, ok := b.defs[id]; ok {
		return id, true
	}
	b.defs[id] = &model.StereotypeDefinition{
		ID:            id,
		Name:          name,
		QualifiedName: ns + "." + name,
		ProfileName:   ProfileName,
		AppliesTo:     []string{},
	}
	b.appliesTo[id] = make(map[string]struct{})
	return id, true
}

func (b *builder) definitions() []*model.StereotypeDefinition {
	out := make([]*model.StereotypeDefinition, 0, len(b.defs))
	for id, def := range b.defs {
		def.AppliesTo = def.AppliesTo[:0]
		for mc := range b.appliesTo[id] {
			def.AppliesTo = append(def.AppliesTo, mc)
		}
		sort.Strings(def.AppliesTo)
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ID returns the registry id of a stereotype.
func ID(namespace, name string) string {
	return "st:" + namespace + "." + name
}

// Sanitize keeps ASCII letters, digits, '_' and '-'; any other rune becomes
// '_'. Leading '@' is dropped.
func Sanitize(s string) string {
	s = strings.TrimPrefix(s, "@")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func namespace(tags []model.TaggedValue) string {
	if v, ok := model.Lookup(tags, FrameworkTag); ok && v != "" {
		return v
	}
	return DefaultNamespace
}

var classifierMetaclasses = map[model.ClassifierKind]string{
	model.Class:     "Class",
	model.Interface: "Interface",
	model.Enum:      "Enumeration",
	model.Record:    "DataType",
	model.TypeAlias: "DataType",
	model.Function:  "FunctionBehavior",
	model.Component: "Component",
	model.Service:   "Class",
	model.Module:    "Artifact",
}

func classifierMetaclass(kind model.ClassifierKind) string {
	if mc, ok := classifierMetaclasses[kind]; ok {
		return mc
	}
	return "Classifier"
}

func relationMetaclass(kind model.RelationKind) string {
	switch kind {
	case model.Generalization:
		return "Generalization"
	case model.Realization:
		return "InterfaceRealization"
	case model.Association, model.Composition, model.Aggregation:
		return "Association"
	case model.TemplateUses:
		return "Usage"
	}
	return "Dependency"
}
