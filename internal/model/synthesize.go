// Package model synthesizes transfer model types: minimal runtime struct
// types mirroring one transfer schema level, used purely for wire encode
// and decode.
package model

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/dtokit/dtokit/internal/schema"
)

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// Synthesize builds the transfer struct type for one schema level. Fields
// are the non-excluded transfer fields, under their serialization names
// (carried in json and msgpack tags), with types rebuilt from each field's
// transfer node. Partial fields are made nilable so the decode step can
// distinguish absent from explicitly null.
func Synthesize(fields []schema.TransferField) (t reflect.Type, err error) {
	defer func() {
		// reflect.StructOf panics on invalid field sets; surface that as a
		// construction error instead.
		if r := recover(); r != nil {
			err = fmt.Errorf("synthesize transfer model: %v", r)
		}
	}()

	structFields := make([]reflect.StructField, 0, len(fields))
	used := make(map[string]struct{}, len(fields))
	for i, field := range fields {
		if field.IsExcluded {
			continue
		}

		name := exportedName(field.GoField, field.Name)
		if _, taken := used[name]; taken || name == "" {
			name = fmt.Sprintf("Field%d", i)
		}
		used[name] = struct{}{}

		fieldType := Annotation(field.Transfer)
		tagName := field.SerializationName
		tag := fmt.Sprintf(`json:"%s" msgpack:"%s"`, tagName, tagName)
		if field.IsPartial {
			fieldType = nilable(fieldType)
			tag = fmt.Sprintf(`json:"%s,omitempty" msgpack:"%s,omitempty"`, tagName, tagName)
		}

		structFields = append(structFields, reflect.StructField{
			Name: name,
			Type: fieldType,
			Tag:  reflect.StructTag(tag),
		})
	}
	return reflect.StructOf(structFields), nil
}

// Annotation rebuilds the wire-side type for a transfer node: nested
// fields get the nested transfer model type, composites get the equivalent
// shape built from their children's annotations.
func Annotation(node schema.Node) reflect.Type {
	switch n := node.(type) {
	case schema.Simple:
		if n.Nested != nil {
			if n.Type != nil && n.Type.Kind() == reflect.Pointer {
				return reflect.PointerTo(n.Nested.Model)
			}
			return n.Nested.Model
		}
		if n.Type == nil {
			return anyType
		}
		return n.Type
	case schema.Collection:
		return reflect.SliceOf(Annotation(n.Inner))
	case schema.Mapping:
		return reflect.MapOf(Annotation(n.Key), Annotation(n.Value))
	case schema.Tuple:
		return tupleAnnotation(n)
	case schema.Union:
		// Alternatives are disambiguated at transfer time, not in the
		// wire type.
		return anyType
	default:
		return anyType
	}
}

// tupleAnnotation keeps the element type when all slots agree and falls
// back to a fixed-size array of any for heterogeneous slots.
func tupleAnnotation(n schema.Tuple) reflect.Type {
	if len(n.Inners) == 0 {
		return reflect.ArrayOf(0, anyType)
	}
	elem := Annotation(n.Inners[0])
	for _, inner := range n.Inners[1:] {
		if Annotation(inner) != elem {
			elem = anyType
			break
		}
	}
	return reflect.ArrayOf(len(n.Inners), elem)
}

func nilable(t reflect.Type) reflect.Type {
	switch t.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return t
	}
	return reflect.PointerTo(t)
}

// exportedName derives a valid exported Go identifier for a synthesized
// struct field, preferring the domain struct field name.
func exportedName(goField, name string) string {
	candidate := goField
	if candidate == "" {
		candidate = name
	}
	var b strings.Builder
	for _, r := range candidate {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	cleaned := strings.TrimLeft(b.String(), "_0123456789")
	if cleaned == "" {
		return ""
	}
	return strings.ToUpper(cleaned[:1]) + cleaned[1:]
}
