// Package types holds the introspector-agnostic field and type descriptors
// shared by the schema builder, the transfer engines, and the public API.
package types

import (
	"fmt"
	"reflect"
)

// Direction identifies which side of the wire a DTO binding serves.
type Direction int

const (
	// DirectionData is the client-to-server (decode) direction.
	DirectionData Direction = iota
	// DirectionReturn is the server-to-client (encode) direction.
	DirectionReturn
)

func (d Direction) String() string {
	if d == DirectionData {
		return "data"
	}
	return "return"
}

// Mark restricts which direction(s) a field participates in.
type Mark string

const (
	MarkNone      Mark = ""
	MarkReadOnly  Mark = "read-only"
	MarkWriteOnly Mark = "write-only"
	MarkPrivate   Mark = "private"
)

// ParseMark validates a mark literal as found in struct tag metadata.
func ParseMark(s string) (Mark, error) {
	switch Mark(s) {
	case MarkNone, MarkReadOnly, MarkWriteOnly, MarkPrivate:
		return Mark(s), nil
	}
	return MarkNone, fmt.Errorf("unknown field mark %q", s)
}

// TypeKind classifies the semantic shape of a declared field type.
type TypeKind int

const (
	KindScalar TypeKind = iota
	KindCollection
	KindMapping
	KindTuple
	KindUnion
	KindModel
)

func (k TypeKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindCollection:
		return "collection"
	case KindMapping:
		return "mapping"
	case KindTuple:
		return "tuple"
	case KindUnion:
		return "union"
	case KindModel:
		return "model"
	}
	return "unknown"
}

// TypeSpec is the semantic type descriptor attached to a field definition.
// It mirrors the declared Go type but tags the shapes the schema builder
// dispatches on: homogeneous collections, mappings, fixed tuples, unions
// of registered alternatives, and nested models.
//
// Inner holds the immediate type parameters: one element spec for a
// collection, key and value specs for a mapping, one spec per slot for a
// tuple, and one spec per alternative for a union.
type TypeSpec struct {
	Kind  TypeKind
	Type  reflect.Type
	Inner []TypeSpec
}

// Base returns the spec's Go type with any pointer indirection removed.
func (s TypeSpec) Base() reflect.Type {
	t := s.Type
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// Scalar builds a scalar leaf spec.
func Scalar(t reflect.Type) TypeSpec { return TypeSpec{Kind: KindScalar, Type: t} }

// Model builds a nested-model leaf spec.
func Model(t reflect.Type) TypeSpec { return TypeSpec{Kind: KindModel, Type: t} }

// FieldDefinition is the canonical descriptor of one domain-model field,
// produced fresh by a field introspector on every inspection and never
// mutated afterwards.
type FieldDefinition struct {
	// Name is the field's logical (domain) name. For Go models this is the
	// json tag name when present, else the struct field name.
	Name string

	// GoField is the Go struct field name backing Name. The transfer
	// engines use it for reflect access into domain values.
	GoField string

	// Spec is the semantic descriptor of the declared type.
	Spec TypeSpec

	// Default is the field's default value; HasDefault reports whether one
	// was declared at all.
	Default    any
	HasDefault bool

	// DefaultFactory, when non-nil, produces a fresh default per decode.
	DefaultFactory func() any

	// Mark restricts the directions this field participates in. Immutable
	// once produced by the introspector.
	Mark Mark

	// ModelName is the owning model's name, kept for diagnostics and for
	// deterministic transfer-model naming.
	ModelName string
}

// Introspector yields field definitions for one supported model kind.
//
// Implementations must be deterministic (field order preserved across
// calls) and side-effect free; caching per model type is permitted but
// shared state must not be mutated.
type Introspector interface {
	// FieldDefinitions returns the ordered field definitions for model.
	// A malformed field mark is a configuration error reported here,
	// naming the offending field.
	FieldDefinitions(model reflect.Type) ([]FieldDefinition, error)

	// DetectNested reports whether t, or for a collection/union one of
	// its immediate inner types, is itself a model of the kind this
	// introspector handles.
	DetectNested(t reflect.Type) bool
}
