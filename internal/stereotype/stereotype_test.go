package stereotype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/tsmodel/internal/model"
)

func classifier(id string, kind model.ClassifierKind, tags ...model.TaggedValue) *model.Classifier {
	return &model.Classifier{
		ID:             id,
		Name:           id,
		QualifiedName:  id,
		Kind:           kind,
		Attributes:     []*model.Attribute{},
		Operations:     []*model.Operation{},
		Stereotypes:    []model.Stereotype{},
		StereotypeRefs: []model.StereotypeRef{},
		TaggedValues:   tags,
	}
}

func TestBuildDerivesDefinitions(t *testing.T) {
	t.Parallel()

	m := model.New()
	comp := classifier("Comp", model.Component, model.Tag(FrameworkTag, "angular"))
	comp.AddStereotype(model.Stereotype{Name: "Component"})
	comp.AddStereotype(model.Stereotype{Name: "Entity", QualifiedName: "typeorm.Entity"})
	input := &model.Attribute{Name: "value", StereotypeRefs: []model.StereotypeRef{}, TaggedValues: []model.TaggedValue{model.Tag(FrameworkTag, "angular")}}
	input.AddStereotype(model.Stereotype{Name: "Input"})
	comp.Attributes = append(comp.Attributes, input)
	op := &model.Operation{Name: "onClick", StereotypeRefs: []model.StereotypeRef{}}
	op.AddStereotype(model.Stereotype{Name: "HostListener"})
	comp.Operations = append(comp.Operations, op)

	plain := classifier("Plain", model.Class)
	plain.AddStereotype(model.Stereotype{Name: "Component"})

	rel := &model.Relation{ID: "r1", Kind: model.DI, SourceID: "Comp", TargetID: "Plain", StereotypeRefs: []model.StereotypeRef{}}
	rel.AddStereotype(model.Stereotype{Name: "inject"})

	m.Classifiers = append(m.Classifiers, comp, plain)
	m.Relations = append(m.Relations, rel)

	Build(m)

	var ids []string
	for _, d := range m.StereotypeDefinitions {
		ids = append(ids, d.ID)
		assert.Equal(t, ProfileName, d.ProfileName)
	}
	assert.Equal(t, []string{
		"st:angular.Component",
		"st:angular.Entity",
		"st:angular.Input",
		"st:generic.Component",
		"st:generic.HostListener",
		"st:generic.inject",
	}, ids)

	assert.Equal(t, []model.StereotypeRef{
		{StereotypeID: "st:angular.Component"},
		{StereotypeID: "st:angular.Entity"},
	}, comp.StereotypeRefs, "the classifier's framework tag names every stereotype it carries")
	assert.Equal(t, []model.StereotypeRef{{StereotypeID: "st:angular.Input"}}, input.StereotypeRefs)
	assert.Equal(t, []model.StereotypeRef{{StereotypeID: "st:generic.HostListener"}}, op.StereotypeRefs,
		"an untagged member does not inherit its classifier's namespace")
	assert.Equal(t, []model.StereotypeRef{{StereotypeID: "st:generic.Component"}}, plain.StereotypeRefs)
	assert.Equal(t, []model.StereotypeRef{{StereotypeID: "st:generic.inject"}}, rel.StereotypeRefs)

	// Legacy stereotypes stay alongside the refs.
	assert.Len(t, comp.Stereotypes, 2)
}

func TestBuildAppliesTo(t *testing.T) {
	t.Parallel()

	m := model.New()
	svc := classifier("Svc", model.Service)
	svc.AddStereotype(model.Stereotype{Name: "Injectable"})
	iface := classifier("Port", model.Interface)
	iface.AddStereotype(model.Stereotype{Name: "Injectable"})
	m.Classifiers = append(m.Classifiers, svc, iface)
	rel := &model.Relation{ID: "r", Kind: model.Realization, StereotypeRefs: []model.StereotypeRef{}}
	rel.AddStereotype(model.Stereotype{Name: "Injectable"})
	m.Relations = append(m.Relations, rel)

	Build(m)

	require.Len(t, m.StereotypeDefinitions, 1)
	assert.Equal(t, []string{"Class", "Interface", "InterfaceRealization"}, m.StereotypeDefinitions[0].AppliesTo)
}

func TestBuildEveryElementGetsRefs(t *testing.T) {
	t.Parallel()

	m := model.New()
	c := classifier("A", model.Enum)
	c.StereotypeRefs = nil
	c.Attributes = append(c.Attributes, &model.Attribute{Name: "X"})
	m.Classifiers = append(m.Classifiers, c)

	Build(m)

	assert.NotNil(t, c.StereotypeRefs)
	assert.Empty(t, c.StereotypeRefs)
	assert.NotNil(t, c.Attributes[0].StereotypeRefs)
	assert.Empty(t, m.StereotypeDefinitions)
	assert.NotNil(t, m.StereotypeDefinitions)
}

func TestBuildIsIdempotent(t *testing.T) {
	t.Parallel()

	m := model.New()
	c := classifier("A", model.Class, model.Tag(FrameworkTag, "nestjs"))
	c.AddStereotype(model.Stereotype{Name: "Controller"})
	m.Classifiers = append(m.Classifiers, c)

	Build(m)
	first := m.StereotypeDefinitions
	Build(m)
	assert.Equal(t, first, m.StereotypeDefinitions)
	assert.Equal(t, []model.StereotypeRef{{StereotypeID: "st:nestjs.Controller"}}, c.StereotypeRefs)
}

func TestBuildSkipsUnnamedStereotypes(t *testing.T) {
	t.Parallel()

	m := model.New()
	c := classifier("A", model.Class, model.Tag(FrameworkTag, "é"))
	c.AddStereotype(model.Stereotype{Name: ""})
	c.AddStereotype(model.Stereotype{Name: "@"})
	c.AddStereotype(model.Stereotype{Name: "éé"})
	c.AddStereotype(model.Stereotype{Name: "Entity"})
	c.AddStereotype(model.Stereotype{QualifiedName: "typeorm.Column"})
	m.Classifiers = append(m.Classifiers, c)

	Build(m)

	var ids []string
	for _, d := range m.StereotypeDefinitions {
		ids = append(ids, d.ID)
		assert.NotEmpty(t, d.Name)
	}
	assert.Equal(t, []string{"st:generic.Column", "st:generic.Entity"}, ids)
	assert.Equal(t, []model.StereotypeRef{
		{StereotypeID: "st:generic.Column"},
		{StereotypeID: "st:generic.Entity"},
	}, c.StereotypeRefs)
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"Component", "Component"},
		{"@Input", "Input"},
		{"class-validator", "class-validator"},
		{"ns.name", "ns_name"},
		{"a b/c", "a_b_c"},
		{"é", "_"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), tt.in)
	}
}
