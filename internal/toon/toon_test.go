package toon

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phobologic/tsmodel/internal/model"
)

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", `""`},
		{"simple", "hello", "hello"},
		{"leading space", " hello", `" hello"`},
		{"trailing space", "hello ", `"hello "`},
		{"newline", "a\nb", `"a\nb"`},
		{"tab", "a\tb", `"a\tb"`},
		{"true keyword", "true", `"true"`},
		{"True keyword", "True", `"True"`},
		{"null keyword", "null", `"null"`},
		{"integer", "42", "42"},
		{"negative integer", "-1", "-1"},
		{"float", "1.0", "1.0"},
		{"comma", "Map<string, Foo>", `"Map<string, Foo>"`},
		{"colon", "(id: string)", `"(id: string)"`},
		{"quote", `a"b`, `"a\"b"`},
		{"backslash", `a\b`, `"a\\b"`},
		{"array type", "Foo[]", `"Foo[]"`},
		{"object type", "{ a: number }", `"{ a: number }"`},
		{"dash prefix", "-foo", `"-foo"`},
		{"path", "src/models/user.ts", "src/models/user.ts"},
		{"qualified name", "src.models.User", "src.models.User"},
		{"union", "Foo | null", "Foo | null"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, encodeValue(tt.in))
		})
	}
}

func sampleModel() *model.IrModel {
	m := model.New()
	m.TaggedValues = append(m.TaggedValues, model.Tag("source", "typescript"))
	m.Packages = append(m.Packages,
		&model.Package{ID: "p1", Name: "src", QualifiedName: "src"},
		&model.Package{ID: "p2", Name: "models", QualifiedName: "src.models", ParentID: "p1"},
	)
	user := &model.Classifier{
		ID:            "c1",
		Name:          "User",
		QualifiedName: "src.models.User",
		PackageID:     "p2",
		Kind:          model.Class,
		Attributes: []*model.Attribute{{
			Name:       "friends",
			Visibility: model.Public,
			Type: &model.TypeRef{Kind: model.Array, ElementType: &model.TypeRef{
				Kind: model.Named, Name: "src.models.User",
			}},
		}},
		Operations: []*model.Operation{{
			Name:       "find",
			Visibility: model.Protected,
			Parameters: []*model.Parameter{
				{Name: "id", Type: &model.TypeRef{Kind: model.Primitive, Name: "string"}},
				{Name: "rest", Type: &model.TypeRef{Kind: model.Unknown, Name: "any"}, IsRest: true},
			},
			ReturnType: &model.TypeRef{Kind: model.Generic, Name: "Promise", TypeArgs: []*model.TypeRef{
				{Kind: model.Named, Name: "src.models.User"},
			}},
		}},
		Stereotypes: []model.Stereotype{{Name: "Entity"}},
		SourceRef:   &model.SourceRef{File: "src/models/user.ts", Line: 3, Column: 14},
	}
	base := &model.Classifier{ID: "c2", Name: "Base", QualifiedName: "src.models.Base", PackageID: "p2", Kind: model.Class}
	m.Classifiers = append(m.Classifiers, user, base)
	m.Relations = append(m.Relations,
		&model.Relation{ID: "r1", Kind: model.Generalization, SourceID: "c1", TargetID: "c2"},
		&model.Relation{ID: "r2", Kind: model.Association, SourceID: "c1", TargetID: "c1",
			TaggedValues: []model.TaggedValue{model.Tag("member", "friends")}},
	)
	m.StereotypeDefinitions = append(m.StereotypeDefinitions, &model.StereotypeDefinition{
		ID: "st:typeorm.Entity", Name: "Entity", ProfileName: "tsmodel", AppliesTo: []string{"Class"},
	})
	return m
}

func TestEncode(t *testing.T) {
	t.Parallel()

	got := Encode(sampleModel())
	want := strings.Join([]string{
		"schemaVersion: 1.0",
		"source: typescript",
		"packages[2]{name,parent}:",
		`  src,""`,
		"  src.models,src",
		"classifiers[2]{name,kind,file,line,stereotypes}:",
		"  src.models.User,CLASS,src/models/user.ts,3,Entity",
		`  src.models.Base,CLASS,"","",""`,
		"attributes[1]{classifier,name,visibility,type}:",
		`  src.models.User,friends,public,"src.models.User[]"`,
		"operations[1]{classifier,name,visibility,signature}:",
		`  src.models.User,find,protected,"(id: string, ...rest: any) => Promise<src.models.User>"`,
		"relations[2]{kind,source,target,role}:",
		`  GENERALIZATION,src.models.User,src.models.Base,""`,
		"  ASSOCIATION,src.models.User,src.models.User,friends",
		"stereotypes[1]{id,appliesTo}:",
		`  "st:typeorm.Entity",Class`,
	}, "\n")
	assert.Equal(t, want, got)
}

func TestEncodeEmpty(t *testing.T) {
	t.Parallel()

	got := Encode(model.New())
	assert.Contains(t, got, "classifiers[0]{name,kind,file,line,stereotypes}:")
	assert.Contains(t, got, "relations[0]{kind,source,target,role}:")
	assert.NotContains(t, got, "stereotypes[")
}
