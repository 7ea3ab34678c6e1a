package dtokit

import (
	"github.com/dtokit/dtokit/internal/serialization"
	"github.com/dtokit/dtokit/internal/types"
)

// Codec converts transfer model instances to and from wire bytes for one
// media type. The built-in registry serves application/json and
// application/msgpack; additional codecs can be registered per factory.
type Codec = serialization.Codec

// Introspector turns a domain model type into ordered field definitions.
// Implementations live under providers/; each handles one model kind
// (struct tags, database tags, validation-aware structs).
//
// Implementations must be deterministic: field order is preserved across
// calls for the same type. They may cache per-type output but must not
// mutate shared state.
type Introspector = types.Introspector

// Validator is an optional extension point: when a factory carries one,
// every successfully decoded domain value is passed through it before
// being returned to the handler. Failures surface as validation errors.
type Validator interface {
	ValidateDecoded(v any) error
}
