package canon

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/tsmodel/internal/model"
)

func TestMarshalSortsKeys(t *testing.T) {
	t.Parallel()

	out, err := Marshal(map[string]any{
		"zeta":  1,
		"alpha": map[string]any{"y": true, "b": "x"},
		"mid":   []any{3, map[string]any{"k2": 1, "k1": 2}},
	})
	require.NoError(t, err)

	want := `{
  "alpha": {
    "b": "x",
    "y": true
  },
  "mid": [
    3,
    {
      "k1": 2,
      "k2": 1
    }
  ],
  "zeta": 1
}
`
	assert.Equal(t, want, string(out))
}

func TestMarshalStructFieldsAreSorted(t *testing.T) {
	t.Parallel()

	c := &model.Classifier{
		ID:             "c1",
		Name:           "Foo",
		QualifiedName:  "Foo",
		Kind:           model.Class,
		Attributes:     []*model.Attribute{},
		Operations:     []*model.Operation{},
		Stereotypes:    []model.Stereotype{},
		StereotypeRefs: []model.StereotypeRef{},
		TaggedValues:   []model.TaggedValue{},
	}
	out, err := Marshal(c)
	require.NoError(t, err)

	keys := []string{`"attributes"`, `"id"`, `"kind"`, `"name"`, `"operations"`, `"packageId"`, `"qualifiedName"`, `"stereotypeRefs"`, `"stereotypes"`, `"taggedValues"`}
	last := -1
	for _, k := range keys {
		i := bytes.Index(out, []byte(k))
		require.GreaterOrEqual(t, i, 0, k)
		assert.Greater(t, i, last, "key %s out of order", k)
		last = i
	}
}

func TestMarshalKeepsArrayOrderAndHTML(t *testing.T) {
	t.Parallel()

	out, err := Marshal([]string{"b", "a", "<T>&"})
	require.NoError(t, err)
	assert.Equal(t, "[\n  \"b\",\n  \"a\",\n  \"<T>&\"\n]\n", string(out))
}

func TestMarshalNumbersVerbatim(t *testing.T) {
	t.Parallel()

	out, err := Marshal(map[string]any{"big": int64(9007199254740993), "f": 1.5})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"big": 9007199254740993`)
	assert.Contains(t, string(out), `"f": 1.5`)
}

func TestMarshalIsStable(t *testing.T) {
	t.Parallel()

	m := model.New()
	m.TaggedValues = append(m.TaggedValues, model.Tag("source", "typescript"))
	a, err := Marshal(m)
	require.NoError(t, err)
	b, err := Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMarshalError(t *testing.T) {
	t.Parallel()

	_, err := Marshal(map[string]any{"ch": make(chan int)})
	assert.Error(t, err)
}
