// Package graph owns the relation set of a model. Graph.Add is the only way
// relations enter the model: it deduplicates on a kind-specific composite key
// and derives each relation's id from content.
package graph

import (
	"fmt"
	"strings"

	"github.com/phobologic/tsmodel/internal/ids"
	"github.com/phobologic/tsmodel/internal/model"
	"github.com/phobologic/tsmodel/internal/report"
)

// Tag keys with dedup or id meaning.
const (
	RoleTag   = "role"
	MemberTag = "member"
)

// diDiscriminators are the tag keys that keep distinct injection edges between
// the same two classifiers apart.
var diDiscriminators = []string{RoleTag, "origin", "token", "provide", "useClass", "providerKind", "scope"}

// structuralDiscriminators keep one association per member.
var structuralDiscriminators = []string{RoleTag, MemberTag}

var defaultDiscriminators = []string{RoleTag}

// Graph accumulates deduplicated relations in insertion order.
type Graph struct {
	exists    func(id string) bool
	report    *report.Report
	keys      map[string]*model.Relation
	relations []*model.Relation
}

// New returns an empty graph. exists reports whether a classifier id is in the
// model; relations with an unknown endpoint are rejected with a finding.
func New(exists func(id string) bool, rep *report.Report) *Graph {
	return &Graph{
		exists:    exists,
		report:    rep,
		keys:      make(map[string]*model.Relation),
		relations: []*model.Relation{},
	}
}

// Add records a relation from src to tgt produced by the construct at at.
// Adding the same (kind, src, tgt, discriminators) again is a no-op that
// returns the existing relation and false.
func (g *Graph) Add(kind model.RelationKind, src, tgt string, at model.SourceRef, tags ...model.TaggedValue) (*model.Relation, bool) {
	for _, id := range [2]string{src, tgt} {
		if g.exists != nil && !g.exists(id) {
			g.report.AddFinding(report.DanglingRelation, model.SeverityError,
				fmt.Sprintf("%s relation references unknown classifier %s", kind, id),
				&at, model.Tag("source", src), model.Tag("target", tgt))
			return nil, false
		}
	}

	key := Key(kind, src, tgt, tags)
	if existing, dup := g.keys[key]; dup {
		return existing, false
	}

	rel := &model.Relation{
		ID:             ids.Relation(string(kind), at.File, src, tgt, identity(kind, tags), ids.Position(at.Line, at.Column)),
		Kind:           kind,
		SourceID:       src,
		TargetID:       tgt,
		Stereotypes:    []model.Stereotype{},
		StereotypeRefs: []model.StereotypeRef{},
		TaggedValues:   append([]model.TaggedValue{}, tags...),
	}
	ref := at
	rel.SourceRef = &ref

	g.keys[key] = rel
	g.relations = append(g.relations, rel)
	g.report.CountRelation(kind)
	return rel, true
}

// Relations returns relations in insertion order.
func (g *Graph) Relations() []*model.Relation {
	return g.relations
}

// Len returns the number of relations.
func (g *Graph) Len() int {
	return len(g.relations)
}

// Key returns the dedup key of a relation.
func Key(kind model.RelationKind, src, tgt string, tags []model.TaggedValue) string {
	var b strings.Builder
	b.WriteString(string(kind))
	b.WriteByte(':')
	b.WriteString(src)
	b.WriteByte(':')
	b.WriteString(tgt)
	for _, k := range discriminators(kind) {
		v, _ := model.Lookup(tags, k)
		b.WriteByte(':')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	return b.String()
}

func discriminators(kind model.RelationKind) []string {
	switch kind {
	case model.DI:
		return diDiscriminators
	case model.Association, model.Composition, model.Aggregation:
		return structuralDiscriminators
	default:
		return defaultDiscriminators
	}
}

// identity is the role component of a relation id. A relation carrying only
// a role (or only a member) uses that value; otherwise every discriminator
// present is folded in, so relations with distinct keys never share an id.
func identity(kind model.RelationKind, tags []model.TaggedValue) string {
	var present []string
	for _, k := range discriminators(kind) {
		if v, ok := model.Lookup(tags, k); ok {
			present = append(present, k+"="+v)
		}
	}
	if len(present) <= 1 {
		return roleOf(tags)
	}
	return strings.Join(present, "|")
}

// roleOf is the role component of a relation id: the role tag, else the
// member name.
func roleOf(tags []model.TaggedValue) string {
	if v, ok := model.Lookup(tags, RoleTag); ok {
		return v
	}
	v, _ := model.Lookup(tags, MemberTag)
	return v
}
