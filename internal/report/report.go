// Package report collects non-fatal extraction findings and aggregate counts.
package report

import (
	"sort"

	"github.com/phobologic/tsmodel/internal/model"
)

// Finding kinds recorded by the engine and its enrichment passes.
const (
	UnresolvedType   = "unresolvedType"
	UnresolvedImport = "unresolvedImport"
	DanglingRelation = "danglingRelation"
	ParseError       = "parseError"
)

// Report is an append-only findings sink. All methods are safe on a nil
// *Report and none of them panic or abort the run.
type Report struct {
	findings    []model.Finding
	classifiers map[model.ClassifierKind]int
	relations   map[model.RelationKind]int
}

// New returns an empty report.
func New() *Report {
	return &Report{
		findings:    []model.Finding{},
		classifiers: make(map[model.ClassifierKind]int),
		relations:   make(map[model.RelationKind]int),
	}
}

// AddFinding appends a finding. loc may be nil.
func (r *Report) AddFinding(kind string, severity model.Severity, message string, loc *model.SourceRef, tags ...model.TaggedValue) {
	if r == nil {
		return
	}
	f := model.Finding{
		Kind:     kind,
		Severity: severity,
		Message:  message,
	}
	if loc != nil {
		l := *loc
		f.Location = &l
	}
	if len(tags) > 0 {
		f.Tags = append([]model.TaggedValue(nil), tags...)
	}
	r.findings = append(r.findings, f)
}

// CountClassifier records one classifier of kind.
func (r *Report) CountClassifier(kind model.ClassifierKind) {
	if r == nil {
		return
	}
	r.classifiers[kind]++
}

// MoveClassifier moves one classifier count from kind from to kind to.
func (r *Report) MoveClassifier(from, to model.ClassifierKind) {
	if r == nil || from == to {
		return
	}
	if r.classifiers[from] > 0 {
		r.classifiers[from]--
		if r.classifiers[from] == 0 {
			delete(r.classifiers, from)
		}
	}
	r.classifiers[to]++
}

// CountRelation records one relation of kind.
func (r *Report) CountRelation(kind model.RelationKind) {
	if r == nil {
		return
	}
	r.relations[kind]++
}

// Findings returns findings in the order they were added.
func (r *Report) Findings() []model.Finding {
	if r == nil {
		return nil
	}
	return r.findings
}

// Count returns the number of findings of kind.
func (r *Report) Count(kind string) int {
	if r == nil {
		return 0
	}
	n := 0
	for i := range r.findings {
		if r.findings[i].Kind == kind {
			n++
		}
	}
	return n
}

// Unresolved returns the number of unresolved-reference findings.
func (r *Report) Unresolved() int {
	return r.Count(UnresolvedType) + r.Count(UnresolvedImport)
}

// Summary is the serializable form of a report.
type Summary struct {
	Classifiers map[string]int  `json:"classifiers"`
	Relations   map[string]int  `json:"relations"`
	Findings    map[string]int  `json:"findingCounts"`
	Items       []model.Finding `json:"findings"`
	Totals      Totals          `json:"totals"`
}

// Totals are the aggregate counts across kinds.
type Totals struct {
	Classifiers int `json:"classifiers"`
	Relations   int `json:"relations"`
	Findings    int `json:"findings"`
}

// Summary snapshots the report.
func (r *Report) Summary() Summary {
	s := Summary{
		Classifiers: map[string]int{},
		Relations:   map[string]int{},
		Findings:    map[string]int{},
		Items:       []model.Finding{},
	}
	if r == nil {
		return s
	}
	for k, n := range r.classifiers {
		s.Classifiers[string(k)] = n
		s.Totals.Classifiers += n
	}
	for k, n := range r.relations {
		s.Relations[string(k)] = n
		s.Totals.Relations += n
	}
	for i := range r.findings {
		s.Findings[r.findings[i].Kind]++
	}
	s.Items = append(s.Items, r.findings...)
	s.Totals.Findings = len(r.findings)
	return s
}

// FindingKinds returns the distinct finding kinds, sorted.
func (r *Report) FindingKinds() []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for i := range r.findings {
		seen[r.findings[i].Kind] = struct{}{}
	}
	kinds := make([]string, 0, len(seen))
	for k := range seen {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
