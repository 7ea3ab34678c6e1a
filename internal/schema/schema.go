// Package schema builds transfer schemas: trees of typed nodes mirroring a
// domain model's shape but containing only the fields that cross the wire,
// under their wire names.
package schema

import (
	"reflect"

	"github.com/dtokit/dtokit/internal/types"
)

// Node is one level of a transfer schema. The concrete variants are
// Simple, Collection, Mapping, Tuple and Union.
//
// HasNested reports whether the node or any reachable descendant wraps a
// model type. It is computed bottom-up once during schema building and
// never recomputed.
type Node interface {
	HasNested() bool
}

// NestedInfo carries the synthesized transfer model for one nested level
// together with the parsed field definitions of that level.
type NestedInfo struct {
	// Model is the synthesized transfer struct type.
	Model reflect.Type
	// SchemaName is the registered unique name for Model, used for OpenAPI
	// component naming.
	SchemaName string
	// Fields are the transfer field definitions of the nested level.
	Fields []TransferField
}

// Simple is a scalar or nested-model leaf. Nested is nil for plain scalars.
type Simple struct {
	Type   reflect.Type
	Nested *NestedInfo
}

func (s Simple) HasNested() bool { return s.Nested != nil }

// Collection is a homogeneous sequence with a single inner node.
type Collection struct {
	Type   reflect.Type
	Inner  Node
	nested bool
}

func (c Collection) HasNested() bool { return c.nested }

// Mapping has independent key and value nodes.
type Mapping struct {
	Type   reflect.Type
	Key    Node
	Value  Node
	nested bool
}

func (m Mapping) HasNested() bool { return m.nested }

// Tuple is a fixed, position-wise sequence of nodes.
type Tuple struct {
	Type   reflect.Type
	Inners []Node
	nested bool
}

func (t Tuple) HasNested() bool { return t.nested }

// Union is an ordered list of alternative nodes. Alternatives wrapping a
// model are disambiguated at transfer time by runtime type checks, in
// declared order; non-model alternatives pass through unchanged.
type Union struct {
	Type   reflect.Type
	Inners []Node
	nested bool
}

func (u Union) HasNested() bool { return u.nested }

// NewCollection builds a Collection node, propagating nestedness from the
// inner node.
func NewCollection(t reflect.Type, inner Node) Collection {
	return Collection{Type: t, Inner: inner, nested: inner.HasNested()}
}

// NewMapping builds a Mapping node, propagating nestedness from the key
// and value nodes.
func NewMapping(t reflect.Type, key, value Node) Mapping {
	return Mapping{Type: t, Key: key, Value: value, nested: key.HasNested() || value.HasNested()}
}

// NewTuple builds a Tuple node, propagating nestedness from the inners.
func NewTuple(t reflect.Type, inners []Node) Tuple {
	return Tuple{Type: t, Inners: inners, nested: anyNested(inners)}
}

// NewUnion builds a Union node, propagating nestedness from the inners.
func NewUnion(t reflect.Type, inners []Node) Union {
	return Union{Type: t, Inners: inners, nested: anyNested(inners)}
}

func anyNested(nodes []Node) bool {
	for _, node := range nodes {
		if node.HasNested() {
			return true
		}
	}
	return false
}

// TransferField extends a field definition with everything the transfer
// engines need: the wire name, partiality, exclusion, and the transfer
// type node.
type TransferField struct {
	types.FieldDefinition

	// SerializationName is the wire name after rename rules.
	SerializationName string

	// IsPartial marks fields that may be absent on decode.
	IsPartial bool

	// IsExcluded marks fields that are known but never transferred. This
	// is distinct from a field dropped by the nesting-depth limit, which
	// does not appear in the schema at all.
	IsExcluded bool

	// Transfer is the node describing how values of this field move
	// between representations.
	Transfer Node
}
