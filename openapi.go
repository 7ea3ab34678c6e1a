package dtokit

import (
	"encoding"
	"fmt"
	"reflect"
	"time"

	"github.com/dtokit/dtokit/internal/schema"
)

var textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()

// Schema is the subset of the OpenAPI schema object the factory emits.
// Exactly one of Ref or the inline fields is populated.
type Schema struct {
	Ref                  string             `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Type                 string             `json:"type,omitempty" yaml:"type,omitempty"`
	Format               string             `json:"format,omitempty" yaml:"format,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Required             []string           `json:"required,omitempty" yaml:"required,omitempty"`
	Items                *Schema            `json:"items,omitempty" yaml:"items,omitempty"`
	AdditionalProperties *Schema            `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
	OneOf                []*Schema          `json:"oneOf,omitempty" yaml:"oneOf,omitempty"`
	MaxItems             int                `json:"maxItems,omitempty" yaml:"maxItems,omitempty"`
	MinItems             int                `json:"minItems,omitempty" yaml:"minItems,omitempty"`
}

// SchemaCreator registers named component schemas and returns the
// reference to use in their place. The documentation layer owns the
// component store; the factory only feeds it.
type SchemaCreator interface {
	RegisterComponent(name string, s *Schema) *Schema
}

// CreateOpenAPISchema emits the schema of the handler's bound transfer
// model. Nested transfer models are registered as components under their
// reserved names and referenced.
func (d *DTO[T]) CreateOpenAPISchema(direction Direction, handlerID string, creator SchemaCreator) (*Schema, error) {
	b, err := d.bound(bindingKey{direction: direction, handlerID: handlerID})
	if err != nil {
		return nil, err
	}

	root := objectSchema(b.fields, creator)
	out := creator.RegisterComponent(b.schemaName, root)
	if b.rootSlice {
		return &Schema{Type: "array", Items: out}, nil
	}
	return out, nil
}

func objectSchema(fields []schema.TransferField, creator SchemaCreator) *Schema {
	out := &Schema{Type: "object", Properties: make(map[string]*Schema, len(fields))}
	for _, field := range fields {
		if field.IsExcluded {
			continue
		}
		out.Properties[field.SerializationName] = nodeSchema(field.Transfer, creator)
		if !field.IsPartial && !field.HasDefault && field.DefaultFactory == nil {
			out.Required = append(out.Required, field.SerializationName)
		}
	}
	return out
}

func nodeSchema(node schema.Node, creator SchemaCreator) *Schema {
	switch n := node.(type) {
	case schema.Simple:
		if n.Nested != nil {
			return creator.RegisterComponent(n.Nested.SchemaName, objectSchema(n.Nested.Fields, creator))
		}
		return scalarSchema(n.Type)
	case schema.Collection:
		return &Schema{Type: "array", Items: nodeSchema(n.Inner, creator)}
	case schema.Tuple:
		// OpenAPI has no positional tuples; emit a length-bounded array
		// accepting any slot type.
		return &Schema{
			Type:     "array",
			Items:    tupleItems(n, creator),
			MinItems: len(n.Inners),
			MaxItems: len(n.Inners),
		}
	case schema.Mapping:
		return &Schema{Type: "object", AdditionalProperties: nodeSchema(n.Value, creator)}
	case schema.Union:
		alts := make([]*Schema, 0, len(n.Inners))
		for _, inner := range n.Inners {
			alts = append(alts, nodeSchema(inner, creator))
		}
		return &Schema{OneOf: alts}
	}
	return &Schema{}
}

func tupleItems(n schema.Tuple, creator SchemaCreator) *Schema {
	if len(n.Inners) == 0 {
		return &Schema{}
	}
	first := nodeSchema(n.Inners[0], creator)
	for _, inner := range n.Inners[1:] {
		if fmt.Sprint(nodeSchema(inner, creator)) != fmt.Sprint(first) {
			return &Schema{}
		}
	}
	return first
}

var (
	timeType  = reflect.TypeOf(time.Time{})
	bytesType = reflect.TypeOf([]byte(nil))
)

func scalarSchema(t reflect.Type) *Schema {
	if t == nil {
		return &Schema{}
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch {
	case t == timeType:
		return &Schema{Type: "string", Format: "date-time"}
	case t == bytesType:
		return &Schema{Type: "string", Format: "byte"}
	case t.Kind() != reflect.String && reflect.PointerTo(t).Implements(textMarshalerType):
		// uuid.UUID and friends marshal as text.
		return &Schema{Type: "string"}
	}
	switch t.Kind() {
	case reflect.Bool:
		return &Schema{Type: "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}
	case reflect.String:
		return &Schema{Type: "string"}
	case reflect.Slice, reflect.Array:
		return &Schema{Type: "array", Items: scalarSchema(t.Elem())}
	case reflect.Map:
		return &Schema{Type: "object", AdditionalProperties: scalarSchema(t.Elem())}
	default:
		return &Schema{}
	}
}
