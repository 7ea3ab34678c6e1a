package dtokit

import (
	"reflect"

	"github.com/dtokit/dtokit/internal/types"
)

// Field descriptors are produced by introspectors and consumed by the
// schema builder. The canonical definitions live in internal/types; these
// aliases are the public surface providers implement against.
type (
	// FieldDefinition describes one field of a domain model.
	FieldDefinition = types.FieldDefinition

	// TypeSpec describes the declared type of a field.
	TypeSpec = types.TypeSpec

	// TypeKind discriminates TypeSpec variants.
	TypeKind = types.TypeKind

	// Mark controls a field's transfer visibility.
	Mark = types.Mark

	// Direction distinguishes inbound (data) from outbound (return)
	// bindings.
	Direction = types.Direction
)

const (
	KindScalar     = types.KindScalar
	KindCollection = types.KindCollection
	KindMapping    = types.KindMapping
	KindTuple      = types.KindTuple
	KindUnion      = types.KindUnion
	KindModel      = types.KindModel
)

const (
	MarkNone      = types.MarkNone
	MarkReadOnly  = types.MarkReadOnly
	MarkWriteOnly = types.MarkWriteOnly
	MarkPrivate   = types.MarkPrivate
)

const (
	DirectionData   = types.DirectionData
	DirectionReturn = types.DirectionReturn
)

// ParseMark validates a mark literal as found in struct tag metadata.
func ParseMark(s string) (Mark, error) { return types.ParseMark(s) }

// Scalar builds the TypeSpec for a plain leaf type.
func Scalar(t reflect.Type) TypeSpec { return types.Scalar(t) }

// Model builds the TypeSpec for a nested model type.
func Model(t reflect.Type) TypeSpec { return types.Model(t) }
