package dtokit_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtokit/dtokit"
)

type componentStore struct {
	components map[string]*dtokit.Schema
}

func newComponentStore() *componentStore {
	return &componentStore{components: make(map[string]*dtokit.Schema)}
}

func (s *componentStore) RegisterComponent(name string, sch *dtokit.Schema) *dtokit.Schema {
	s.components[name] = sch
	return &dtokit.Schema{Ref: "#/components/schemas/" + name}
}

func TestCreateOpenAPISchema(t *testing.T) {
	cfg := dtokit.DefaultConfig()
	cfg.Exclude = []string{"email"}
	d := newFactory(t, cfg)
	bind(t, d, dtokit.DirectionReturn, personAnnotation)

	store := newComponentStore()
	out, err := d.CreateOpenAPISchema(dtokit.DirectionReturn, handlerID, store)
	require.NoError(t, err)

	assert.Equal(t, "#/components/schemas/PersonResponseBody", out.Ref)

	root, ok := store.components["PersonResponseBody"]
	require.True(t, ok, "root component missing; have %v", store.components)
	assert.Equal(t, "object", root.Type)

	assert.Equal(t, &dtokit.Schema{Type: "string"}, root.Properties["id"])
	assert.Equal(t, &dtokit.Schema{Type: "string"}, root.Properties["first_name"])
	assert.Equal(t, &dtokit.Schema{Type: "integer"}, root.Properties["age"])
	assert.NotContains(t, root.Properties, "email")

	assert.Equal(t, "#/components/schemas/PersonAddress", root.Properties["address"].Ref)
	nested, ok := store.components["PersonAddress"]
	require.True(t, ok)
	assert.Equal(t, &dtokit.Schema{Type: "string"}, nested.Properties["street"])

	assert.ElementsMatch(t, []string{"id", "first_name", "age", "address"}, root.Required)
}

func TestCreateOpenAPISchemaRootSlice(t *testing.T) {
	d := newFactory(t, dtokit.DefaultConfig())
	bind(t, d, dtokit.DirectionReturn, reflect.TypeFor[[]Person]())

	store := newComponentStore()
	out, err := d.CreateOpenAPISchema(dtokit.DirectionReturn, handlerID, store)
	require.NoError(t, err)

	assert.Equal(t, "array", out.Type)
	require.NotNil(t, out.Items)
	assert.Equal(t, "#/components/schemas/PersonResponseBody", out.Items.Ref)
}

func TestCreateOpenAPISchemaPartial(t *testing.T) {
	cfg := dtokit.DefaultConfig()
	cfg.Partial = true
	d := newFactory(t, cfg)
	bind(t, d, dtokit.DirectionData, personAnnotation)

	store := newComponentStore()
	_, err := d.CreateOpenAPISchema(dtokit.DirectionData, handlerID, store)
	require.NoError(t, err)

	root, ok := store.components["PersonRequestBody"]
	require.True(t, ok)
	assert.Empty(t, root.Required)
}

func TestCreateOpenAPISchemaUnbound(t *testing.T) {
	d := newFactory(t, dtokit.DefaultConfig())

	_, err := d.CreateOpenAPISchema(dtokit.DirectionReturn, handlerID, newComponentStore())
	require.Error(t, err)
	assert.True(t, dtokit.IsConfigurationError(err))
}
