package schema

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtokit/dtokit/internal/types"
)

type inner struct {
	Street string
	City   string
}

type outer struct {
	Name  string
	Cost  int
	Addr  inner
	Items []inner
}

// stubIntrospector serves handcrafted field definitions per model type.
type stubIntrospector struct {
	defs map[reflect.Type][]types.FieldDefinition
}

func (s *stubIntrospector) FieldDefinitions(model reflect.Type) ([]types.FieldDefinition, error) {
	defs, ok := s.defs[model]
	if !ok {
		return nil, assert.AnError
	}
	return defs, nil
}

func (s *stubIntrospector) DetectNested(reflect.Type) bool { return false }

func testIntrospector() *stubIntrospector {
	innerType := reflect.TypeFor[inner]()
	outerType := reflect.TypeFor[outer]()
	return &stubIntrospector{defs: map[reflect.Type][]types.FieldDefinition{
		innerType: {
			{Name: "street", GoField: "Street", Spec: types.Scalar(reflect.TypeFor[string]()), ModelName: "inner"},
			{Name: "city", GoField: "City", Spec: types.Scalar(reflect.TypeFor[string]()), ModelName: "inner"},
		},
		outerType: {
			{Name: "name", GoField: "Name", Spec: types.Scalar(reflect.TypeFor[string]()), ModelName: "outer"},
			{Name: "cost", GoField: "Cost", Spec: types.Scalar(reflect.TypeFor[int]()), ModelName: "outer"},
			{Name: "addr", GoField: "Addr", Spec: types.Model(innerType), ModelName: "outer"},
			{Name: "items", GoField: "Items", Spec: types.TypeSpec{
				Kind:  types.KindCollection,
				Type:  reflect.TypeFor[[]inner](),
				Inner: []types.TypeSpec{types.Model(innerType)},
			}, ModelName: "outer"},
		},
	}}
}

// passthroughSynthesize satisfies the Synthesizer contract without building
// real struct types; naming stays observable through NestedInfo.
func passthroughSynthesize(name string, _ []TransferField) (reflect.Type, string, error) {
	return reflect.TypeFor[struct{}](), name, nil
}

func parseOuter(t *testing.T, opts Options) []TransferField {
	t.Helper()
	if opts.Synthesize == nil {
		opts.Synthesize = passthroughSynthesize
	}
	if opts.MaxNestedDepth == 0 {
		opts.MaxNestedDepth = 2
	}
	fields, err := Parse(testIntrospector(), reflect.TypeFor[outer](), opts)
	require.NoError(t, err)
	return fields
}

func fieldByName(t *testing.T, fields []TransferField, name string) TransferField {
	t.Helper()
	for _, f := range fields {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("no field %q in %d fields", name, len(fields))
	return TransferField{}
}

func TestParseDefaults(t *testing.T) {
	fields := parseOuter(t, Options{})
	require.Len(t, fields, 4)

	name := fieldByName(t, fields, "name")
	assert.Equal(t, "name", name.SerializationName)
	assert.False(t, name.IsExcluded)
	assert.False(t, name.IsPartial)
	assert.False(t, name.Transfer.HasNested())

	addr := fieldByName(t, fields, "addr")
	simple, ok := addr.Transfer.(Simple)
	require.True(t, ok)
	require.NotNil(t, simple.Nested)
	assert.Equal(t, "innerAddr", simple.Nested.SchemaName)
	assert.Len(t, simple.Nested.Fields, 2)

	items := fieldByName(t, fields, "items")
	collection, ok := items.Transfer.(Collection)
	require.True(t, ok)
	assert.True(t, collection.HasNested())
}

func TestParseRename(t *testing.T) {
	t.Run("rename func applies everywhere", func(t *testing.T) {
		fields := parseOuter(t, Options{RenameFunc: strings.ToUpper})
		assert.Equal(t, "NAME", fieldByName(t, fields, "name").SerializationName)

		addr := fieldByName(t, fields, "addr").Transfer.(Simple)
		assert.Equal(t, "STREET", addr.Nested.Fields[0].SerializationName)
	})

	t.Run("explicit rename wins", func(t *testing.T) {
		fields := parseOuter(t, Options{
			RenameFields: map[string]string{"name": "label"},
			RenameFunc:   strings.ToUpper,
		})
		assert.Equal(t, "label", fieldByName(t, fields, "name").SerializationName)
		assert.Equal(t, "COST", fieldByName(t, fields, "cost").SerializationName)
	})
}

func TestParseExclude(t *testing.T) {
	t.Run("top level", func(t *testing.T) {
		fields := parseOuter(t, Options{Exclude: set("cost")})
		assert.True(t, fieldByName(t, fields, "cost").IsExcluded)
		assert.False(t, fieldByName(t, fields, "name").IsExcluded)
	})

	t.Run("nested path", func(t *testing.T) {
		fields := parseOuter(t, Options{Exclude: set("addr.street")})
		assert.False(t, fieldByName(t, fields, "addr").IsExcluded)

		nested := fieldByName(t, fields, "addr").Transfer.(Simple).Nested.Fields
		assert.True(t, fieldByName(t, nested, "street").IsExcluded)
		assert.False(t, fieldByName(t, nested, "city").IsExcluded)
	})

	t.Run("collection element path uses integer segments", func(t *testing.T) {
		fields := parseOuter(t, Options{Exclude: set("items.0.city")})
		items := fieldByName(t, fields, "items").Transfer.(Collection)
		nested := items.Inner.(Simple).Nested.Fields
		assert.True(t, fieldByName(t, nested, "city").IsExcluded)
		assert.False(t, fieldByName(t, nested, "street").IsExcluded)
	})
}

func TestParseInclude(t *testing.T) {
	fields := parseOuter(t, Options{Include: set("name", "addr.city")})
	assert.False(t, fieldByName(t, fields, "name").IsExcluded)
	assert.True(t, fieldByName(t, fields, "cost").IsExcluded)

	// addr itself survives because a sub-path of it is included.
	addr := fieldByName(t, fields, "addr")
	assert.False(t, addr.IsExcluded)
	nested := addr.Transfer.(Simple).Nested.Fields
	assert.True(t, fieldByName(t, nested, "street").IsExcluded)
	assert.False(t, fieldByName(t, nested, "city").IsExcluded)
}

func TestParseMarks(t *testing.T) {
	intro := testIntrospector()
	outerType := reflect.TypeFor[outer]()
	intro.defs[outerType][1].Mark = types.MarkReadOnly // cost
	intro.defs[outerType][0].Mark = types.MarkPrivate  // name

	parse := func(t *testing.T, isData bool) []TransferField {
		fields, err := Parse(intro, outerType, Options{
			MaxNestedDepth: 2,
			IsDataField:    isData,
			Synthesize:     passthroughSynthesize,
		})
		require.NoError(t, err)
		return fields
	}

	t.Run("data direction", func(t *testing.T) {
		fields := parse(t, true)
		assert.True(t, fieldByName(t, fields, "name").IsExcluded, "private always excluded")
		assert.True(t, fieldByName(t, fields, "cost").IsExcluded, "read-only excluded inbound")
	})

	t.Run("return direction", func(t *testing.T) {
		fields := parse(t, false)
		assert.True(t, fieldByName(t, fields, "name").IsExcluded)
		assert.False(t, fieldByName(t, fields, "cost").IsExcluded, "read-only included outbound")
	})
}

func TestParseWriteOnlyMark(t *testing.T) {
	intro := testIntrospector()
	outerType := reflect.TypeFor[outer]()
	intro.defs[outerType][1].Mark = types.MarkWriteOnly // cost

	for _, tt := range []struct {
		name     string
		isData   bool
		excluded bool
	}{
		{"included inbound", true, false},
		{"excluded outbound", false, true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			fields, err := Parse(intro, outerType, Options{
				MaxNestedDepth: 2,
				IsDataField:    tt.isData,
				Synthesize:     passthroughSynthesize,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.excluded, fieldByName(t, fields, "cost").IsExcluded)
		})
	}
}

func TestParseUnderscorePrivate(t *testing.T) {
	intro := testIntrospector()
	outerType := reflect.TypeFor[outer]()
	intro.defs[outerType][0].Name = "_name"

	fields, err := Parse(intro, outerType, Options{
		MaxNestedDepth:    2,
		UnderscorePrivate: true,
		Synthesize:        passthroughSynthesize,
	})
	require.NoError(t, err)
	assert.True(t, fieldByName(t, fields, "_name").IsExcluded)
}

func TestParseDepthLimit(t *testing.T) {
	t.Run("nested model at the limit is dropped", func(t *testing.T) {
		fields, err := Parse(testIntrospector(), reflect.TypeFor[outer](), Options{
			MaxNestedDepth: 0,
			Synthesize:     passthroughSynthesize,
		})
		require.NoError(t, err)
		// addr and items vanish entirely; they are not merely excluded.
		require.Len(t, fields, 2)
		assert.Equal(t, "name", fields[0].Name)
		assert.Equal(t, "cost", fields[1].Name)
	})

	t.Run("depth one keeps one nested level", func(t *testing.T) {
		fields := parseOuter(t, Options{MaxNestedDepth: 1})
		require.Len(t, fields, 4)
		assert.NotNil(t, fieldByName(t, fields, "addr").Transfer.(Simple).Nested)
	})
}

func TestParsePartial(t *testing.T) {
	fields := parseOuter(t, Options{Partial: true})
	for _, f := range fields {
		assert.True(t, f.IsPartial, "field %q", f.Name)
	}
}

func set(paths ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		out[p] = struct{}{}
	}
	return out
}
