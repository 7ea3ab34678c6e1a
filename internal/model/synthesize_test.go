package model

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtokit/dtokit/internal/schema"
	"github.com/dtokit/dtokit/internal/types"
)

func field(name, goField string, t reflect.Type) schema.TransferField {
	return schema.TransferField{
		FieldDefinition:   types.FieldDefinition{Name: name, GoField: goField},
		SerializationName: name,
		Transfer:          schema.Simple{Type: t},
	}
}

func TestSynthesize(t *testing.T) {
	t.Run("fields under serialization names", func(t *testing.T) {
		name := field("givenName", "FirstName", reflect.TypeFor[string]())
		age := field("age", "Age", reflect.TypeFor[int]())

		out, err := Synthesize([]schema.TransferField{name, age})
		require.NoError(t, err)
		require.Equal(t, 2, out.NumField())

		first := out.Field(0)
		assert.Equal(t, "FirstName", first.Name)
		assert.Equal(t, reflect.TypeFor[string](), first.Type)
		assert.Equal(t, "givenName", first.Tag.Get("json"))
		assert.Equal(t, "givenName", first.Tag.Get("msgpack"))
	})

	t.Run("excluded fields get no slot", func(t *testing.T) {
		kept := field("name", "Name", reflect.TypeFor[string]())
		dropped := field("secret", "Secret", reflect.TypeFor[string]())
		dropped.IsExcluded = true

		out, err := Synthesize([]schema.TransferField{kept, dropped})
		require.NoError(t, err)
		require.Equal(t, 1, out.NumField())
		assert.Equal(t, "Name", out.Field(0).Name)
	})

	t.Run("partial fields become nilable with omitempty", func(t *testing.T) {
		age := field("age", "Age", reflect.TypeFor[int]())
		age.IsPartial = true
		tags := field("tags", "Tags", reflect.TypeFor[[]string]())
		tags.IsPartial = true

		out, err := Synthesize([]schema.TransferField{age, tags})
		require.NoError(t, err)
		assert.Equal(t, reflect.TypeFor[*int](), out.Field(0).Type)
		assert.Equal(t, "age,omitempty", out.Field(0).Tag.Get("json"))
		// Already-nilable kinds stay as declared.
		assert.Equal(t, reflect.TypeFor[[]string](), out.Field(1).Type)
	})

	t.Run("colliding slot names fall back to positional names", func(t *testing.T) {
		a := field("a", "Same", reflect.TypeFor[string]())
		b := field("b", "Same", reflect.TypeFor[string]())

		out, err := Synthesize([]schema.TransferField{a, b})
		require.NoError(t, err)
		assert.Equal(t, "Same", out.Field(0).Name)
		assert.Equal(t, "Field1", out.Field(1).Name)
	})

	t.Run("unexportable names are cleaned up", func(t *testing.T) {
		f := field("_count", "", reflect.TypeFor[int]())
		out, err := Synthesize([]schema.TransferField{f})
		require.NoError(t, err)
		assert.Equal(t, "Count", out.Field(0).Name)
	})
}

func TestAnnotation(t *testing.T) {
	stringNode := schema.Simple{Type: reflect.TypeFor[string]()}
	intNode := schema.Simple{Type: reflect.TypeFor[int]()}
	anyT := reflect.TypeFor[any]()

	nestedModel := reflect.TypeFor[struct {
		City string `json:"city"`
	}]()
	nested := schema.Simple{
		Type:   reflect.TypeFor[struct{ City string }](),
		Nested: &schema.NestedInfo{Model: nestedModel},
	}

	tests := []struct {
		name string
		node schema.Node
		want reflect.Type
	}{
		{"scalar keeps its type", stringNode, reflect.TypeFor[string]()},
		{"nested uses the transfer model", nested, nestedModel},
		{"collection of scalars", schema.NewCollection(reflect.TypeFor[[]string](), stringNode), reflect.TypeFor[[]string]()},
		{"collection of nested", schema.NewCollection(nil, nested), reflect.SliceOf(nestedModel)},
		{"mapping", schema.NewMapping(nil, stringNode, intNode), reflect.TypeFor[map[string]int]()},
		{"homogeneous tuple", schema.NewTuple(nil, []schema.Node{stringNode, stringNode}), reflect.ArrayOf(2, reflect.TypeFor[string]())},
		{"heterogeneous tuple", schema.NewTuple(nil, []schema.Node{stringNode, intNode}), reflect.ArrayOf(2, anyT)},
		{"union is any on the wire", schema.NewUnion(nil, []schema.Node{stringNode, nested}), anyT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Annotation(tt.node))
		})
	}
}

func TestAnnotationPointerNested(t *testing.T) {
	nestedModel := reflect.TypeFor[struct{ City string }]()
	node := schema.Simple{
		Type:   reflect.TypeFor[*struct{ City string }](),
		Nested: &schema.NestedInfo{Model: nestedModel},
	}
	assert.Equal(t, reflect.PointerTo(nestedModel), Annotation(node))
}

func TestReserveName(t *testing.T) {
	t.Cleanup(ResetNames)
	ResetNames()

	assert.Equal(t, "PersonResponseBody", ReserveName("PersonResponseBody", "GetPersonPersonResponseBody"))
	assert.Equal(t, "GetPersonPersonResponseBody", ReserveName("PersonResponseBody", "GetPersonPersonResponseBody"))

	third := ReserveName("PersonResponseBody", "GetPersonPersonResponseBody")
	assert.True(t, strings.HasPrefix(third, "GetPersonPersonResponseBody_"), "got %q", third)
	assert.Len(t, third, len("GetPersonPersonResponseBody_")+8)
}
