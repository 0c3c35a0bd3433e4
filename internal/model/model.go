// Package model defines the intermediate representation (IR) produced by tsmodel.
//
// The IR is language-agnostic: classifiers, their typed members, and typed
// relations between classifiers, annotated with stereotypes and tagged values.
package model

// SchemaVersion is written verbatim into every IrModel.
const SchemaVersion = "1.0"

// ClassifierKind is the structural kind of a classifier.
type ClassifierKind string

const (
	Class     ClassifierKind = "CLASS"
	Interface ClassifierKind = "INTERFACE"
	Enum      ClassifierKind = "ENUM"
	Record    ClassifierKind = "RECORD"
	TypeAlias ClassifierKind = "TYPE_ALIAS"
	Function  ClassifierKind = "FUNCTION"
	Component ClassifierKind = "COMPONENT"
	Service   ClassifierKind = "SERVICE"
	Module    ClassifierKind = "MODULE"
)

// RelationKind is the kind of a directed edge between two classifiers.
type RelationKind string

const (
	Generalization RelationKind = "GENERALIZATION"
	Realization    RelationKind = "REALIZATION"
	Association    RelationKind = "ASSOCIATION"
	Dependency     RelationKind = "DEPENDENCY"
	Composition    RelationKind = "COMPOSITION"
	Aggregation    RelationKind = "AGGREGATION"
	Render         RelationKind = "RENDER"
	DI             RelationKind = "DI"
	TemplateUses   RelationKind = "TEMPLATE_USES"
	RouteTo        RelationKind = "ROUTE_TO"
)

// TypeRefKind discriminates TypeRef shapes.
type TypeRefKind string

const (
	Named        TypeRefKind = "NAMED"
	Primitive    TypeRefKind = "PRIMITIVE"
	Generic      TypeRefKind = "GENERIC"
	Array        TypeRefKind = "ARRAY"
	Union        TypeRefKind = "UNION"
	Intersection TypeRefKind = "INTERSECTION"
	Unknown      TypeRefKind = "UNKNOWN"
)

// Visibility of a member.
type Visibility string

const (
	Public    Visibility = "public"
	Protected Visibility = "protected"
	Private   Visibility = "private"
)

// Severity of a finding.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// IrModel is the complete extraction result, ready for canonical serialization.
type IrModel struct {
	SchemaVersion         string                  `json:"schemaVersion"`
	StereotypeDefinitions []*StereotypeDefinition `json:"stereotypeDefinitions"`
	Packages              []*Package              `json:"packages"`
	Classifiers           []*Classifier           `json:"classifiers"`
	Relations             []*Relation             `json:"relations"`
	TaggedValues          []TaggedValue           `json:"taggedValues"`
}

// New returns an empty model whose collections serialize as [] rather than null.
func New() *IrModel {
	return &IrModel{
		SchemaVersion:         SchemaVersion,
		StereotypeDefinitions: []*StereotypeDefinition{},
		Packages:              []*Package{},
		Classifiers:           []*Classifier{},
		Relations:             []*Relation{},
		TaggedValues:          []TaggedValue{},
	}
}

// TaggedValue is a free-form key/value annotation.
type TaggedValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Tag is shorthand for a TaggedValue literal.
func Tag(key, value string) TaggedValue {
	return TaggedValue{Key: key, Value: value}
}

// Lookup returns the value of the first tag named key.
func Lookup(tags []TaggedValue, key string) (string, bool) {
	for _, t := range tags {
		if t.Key == key {
			return t.Value, true
		}
	}
	return "", false
}

// SetTag replaces the value of key in tags, appending it when absent.
func SetTag(tags []TaggedValue, key, value string) []TaggedValue {
	for i := range tags {
		if tags[i].Key == key {
			tags[i].Value = value
			return tags
		}
	}
	return append(tags, TaggedValue{Key: key, Value: value})
}

// SourceRef points at a position in a project file. File is slash-separated and
// relative to the project root; Line and Column are 1-based.
type SourceRef struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Stereotype is an ad hoc classification applied by a pass, before it has a
// registry identity.
type Stereotype struct {
	Name          string `json:"name"`
	QualifiedName string `json:"qualifiedName,omitempty"`
}

// StereotypeRef points at a StereotypeDefinition by id.
type StereotypeRef struct {
	StereotypeID string            `json:"stereotypeId"`
	Values       map[string]string `json:"values,omitempty"`
}

// StereotypeDefinition is a registry entry derived from the ad hoc stereotypes
// observed in the model.
type StereotypeDefinition struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	QualifiedName string   `json:"qualifiedName,omitempty"`
	ProfileName   string   `json:"profileName"`
	AppliesTo     []string `json:"appliesTo"`
}

// Package is a node in the directory-derived or virtual package hierarchy.
type Package struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	QualifiedName string        `json:"qualifiedName"`
	ParentID      string        `json:"parentId,omitempty"`
	TaggedValues  []TaggedValue `json:"taggedValues,omitempty"`
}

// Classifier is a modeled declaration with a stable identity.
type Classifier struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	QualifiedName  string          `json:"qualifiedName"`
	PackageID      string          `json:"packageId"`
	Kind           ClassifierKind  `json:"kind"`
	IsAbstract     bool            `json:"isAbstract,omitempty"`
	TypeParameters []string        `json:"typeParameters,omitempty"`
	Attributes     []*Attribute    `json:"attributes"`
	Operations     []*Operation    `json:"operations"`
	Stereotypes    []Stereotype    `json:"stereotypes"`
	StereotypeRefs []StereotypeRef `json:"stereotypeRefs"`
	TaggedValues   []TaggedValue   `json:"taggedValues"`
	SourceRef      *SourceRef      `json:"sourceRef,omitempty"`
}

// AddStereotype appends s unless a stereotype with the same name is present.
func (c *Classifier) AddStereotype(s Stereotype) {
	c.Stereotypes = appendStereotype(c.Stereotypes, s)
}

// SetTag sets a classifier-level tagged value.
func (c *Classifier) SetTag(key, value string) {
	c.TaggedValues = SetTag(c.TaggedValues, key, value)
}

// Attribute is a typed property of a classifier.
type Attribute struct {
	Name           string          `json:"name"`
	Visibility     Visibility      `json:"visibility"`
	Type           *TypeRef        `json:"type"`
	IsStatic       bool            `json:"isStatic,omitempty"`
	IsReadonly     bool            `json:"isReadonly,omitempty"`
	IsOptional     bool            `json:"isOptional,omitempty"`
	IsAbstract     bool            `json:"isAbstract,omitempty"`
	Stereotypes    []Stereotype    `json:"stereotypes,omitempty"`
	StereotypeRefs []StereotypeRef `json:"stereotypeRefs"`
	TaggedValues   []TaggedValue   `json:"taggedValues,omitempty"`
	SourceRef      *SourceRef      `json:"sourceRef,omitempty"`
}

// AddStereotype appends s unless a stereotype with the same name is present.
func (a *Attribute) AddStereotype(s Stereotype) {
	a.Stereotypes = appendStereotype(a.Stereotypes, s)
}

// Operation is a method, constructor, or function signature.
type Operation struct {
	Name           string          `json:"name"`
	Visibility     Visibility      `json:"visibility"`
	Parameters     []*Parameter    `json:"parameters"`
	ReturnType     *TypeRef        `json:"returnType,omitempty"`
	IsStatic       bool            `json:"isStatic,omitempty"`
	IsAbstract     bool            `json:"isAbstract,omitempty"`
	IsAsync        bool            `json:"isAsync,omitempty"`
	IsConstructor  bool            `json:"isConstructor,omitempty"`
	Stereotypes    []Stereotype    `json:"stereotypes,omitempty"`
	StereotypeRefs []StereotypeRef `json:"stereotypeRefs"`
	TaggedValues   []TaggedValue   `json:"taggedValues,omitempty"`
	SourceRef      *SourceRef      `json:"sourceRef,omitempty"`
}

// AddStereotype appends s unless a stereotype with the same name is present.
func (o *Operation) AddStereotype(s Stereotype) {
	o.Stereotypes = appendStereotype(o.Stereotypes, s)
}

// Parameter is one ordered operation parameter.
type Parameter struct {
	Name         string        `json:"name"`
	Type         *TypeRef      `json:"type"`
	IsOptional   bool          `json:"isOptional,omitempty"`
	IsRest       bool          `json:"isRest,omitempty"`
	TaggedValues []TaggedValue `json:"taggedValues,omitempty"`
}

// TypeRef is the canonical, finite representation of a type.
//
// GENERIC always has TypeArgs, ARRAY always has ElementType, and UNION and
// INTERSECTION list their members in TypeArgs (at least two).
type TypeRef struct {
	Kind         TypeRefKind   `json:"kind"`
	Name         string        `json:"name,omitempty"`
	TypeArgs     []*TypeRef    `json:"typeArgs,omitempty"`
	ElementType  *TypeRef      `json:"elementType,omitempty"`
	TaggedValues []TaggedValue `json:"taggedValues,omitempty"`

	// Target is the id of the declared classifier this ref binds to, if any.
	Target string `json:"-"`
	// Unresolved is set when the written name could not be bound by the oracle.
	Unresolved bool `json:"-"`
}

// Relation is a directed, typed edge between two classifiers.
type Relation struct {
	ID             string          `json:"id"`
	Kind           RelationKind    `json:"kind"`
	SourceID       string          `json:"sourceId"`
	TargetID       string          `json:"targetId"`
	Stereotypes    []Stereotype    `json:"stereotypes"`
	StereotypeRefs []StereotypeRef `json:"stereotypeRefs"`
	TaggedValues   []TaggedValue   `json:"taggedValues"`
	SourceRef      *SourceRef      `json:"sourceRef,omitempty"`
}

// AddStereotype appends s unless a stereotype with the same name is present.
func (r *Relation) AddStereotype(s Stereotype) {
	r.Stereotypes = appendStereotype(r.Stereotypes, s)
}

// Finding is a non-fatal extraction diagnostic.
type Finding struct {
	Kind     string        `json:"kind"`
	Severity Severity      `json:"severity"`
	Message  string        `json:"message"`
	Location *SourceRef    `json:"location,omitempty"`
	Tags     []TaggedValue `json:"tags,omitempty"`
}

func appendStereotype(list []Stereotype, s Stereotype) []Stereotype {
	for _, existing := range list {
		if existing.Name == s.Name && existing.QualifiedName == s.QualifiedName {
			return list
		}
	}
	return append(list, s)
}
