// Package structtag provides the struct-tag model kind for dtokit.
//
// Domain models are plain Go structs. The logical field name is taken
// from the json tag when present, otherwise derived from the Go field
// name; transfer marks are declared with the dto tag:
//
//	type Person struct {
//	    ID       uuid.UUID `json:"id" dto:"read-only"`
//	    Name     string    `json:"name"`
//	    password string    `json:"-"`
//	}
package structtag

import (
	"encoding"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/dtokit/dtokit"
)

var (
	textMarshalerType = reflect.TypeOf((*encoding.TextMarshaler)(nil)).Elem()
	timeType          = reflect.TypeOf(time.Time{})
)

// FieldDefaulter is an optional model extension: models implementing it
// declare defaults for absent wire fields, keyed by logical field name.
type FieldDefaulter interface {
	FieldDefaults() map[string]any
}

// Introspector resolves struct models into field definitions. Output is
// cached per model type; the cache is append-only and safe for concurrent
// use.
type Introspector struct {
	cache  sync.Map // reflect.Type -> []dtokit.FieldDefinition
	mu     sync.Mutex
	unions map[reflect.Type][]reflect.Type
}

// New returns an introspector for struct-tag models.
func New() *Introspector {
	return &Introspector{unions: make(map[reflect.Type][]reflect.Type)}
}

// RegisterUnion declares the model alternatives of an interface-typed
// field. Fields of iface type become union nodes with one child per
// alternative, matched in registration order. Must be called before the
// first model using iface is introspected.
func (in *Introspector) RegisterUnion(iface reflect.Type, alternatives ...reflect.Type) error {
	if iface == nil || iface.Kind() != reflect.Interface {
		return fmt.Errorf("union type must be an interface, got %v", iface)
	}
	if len(alternatives) == 0 {
		return fmt.Errorf("union %s needs at least one alternative", iface)
	}
	in.mu.Lock()
	defer in.mu.Unlock()
	in.unions[iface] = append([]reflect.Type(nil), alternatives...)
	return nil
}

// FieldDefinitions implements dtokit.Introspector.
func (in *Introspector) FieldDefinitions(model reflect.Type) ([]dtokit.FieldDefinition, error) {
	if model == nil || model.Kind() != reflect.Struct {
		return nil, fmt.Errorf("expected a struct model, got %v", model)
	}
	if cached, ok := in.cache.Load(model); ok {
		return cached.([]dtokit.FieldDefinition), nil
	}

	defaults := modelDefaults(model)

	out := make([]dtokit.FieldDefinition, 0, model.NumField())
	for i := 0; i < model.NumField(); i++ {
		field := model.Field(i)
		if !field.IsExported() {
			continue
		}
		name := logicalName(field)
		if name == "" {
			// json:"-" takes the field out of the model's public shape.
			continue
		}

		mark, err := parseMark(field)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", model.Name(), err)
		}

		def := dtokit.FieldDefinition{
			Name:      name,
			GoField:   field.Name,
			Spec:      in.typeSpec(field.Type),
			Mark:      mark,
			ModelName: model.Name(),
		}
		if value, ok := defaults[name]; ok {
			def.Default = value
			def.HasDefault = true
		}
		out = append(out, def)
	}

	in.cache.Store(model, out)
	return out, nil
}

// DetectNested implements dtokit.Introspector: true iff the declared type
// (or an immediate inner type of a collection, mapping or union) is a
// struct model of this kind.
func (in *Introspector) DetectNested(declared reflect.Type) bool {
	base := baseType(declared)
	if base == nil {
		return false
	}
	switch base.Kind() {
	case reflect.Slice, reflect.Array:
		return in.DetectNested(base.Elem())
	case reflect.Map:
		return in.DetectNested(base.Key()) || in.DetectNested(base.Elem())
	case reflect.Interface:
		in.mu.Lock()
		alternatives := in.unions[base]
		in.mu.Unlock()
		for _, alt := range alternatives {
			if in.DetectNested(alt) {
				return true
			}
		}
		return false
	case reflect.Struct:
		return !isScalarStruct(base)
	}
	return false
}

// typeSpec derives the transfer type for one declared field type.
// Priority: union, tuple (fixed array), collection, mapping, nested
// model, scalar.
func (in *Introspector) typeSpec(declared reflect.Type) dtokit.TypeSpec {
	base := baseType(declared)

	// uuid.UUID is a [16]byte array and net.IP a byte slice; anything
	// text-representable travels as a single wire value.
	if base.Kind() != reflect.Interface && isScalarStruct(base) {
		return dtokit.Scalar(declared)
	}

	switch base.Kind() {
	case reflect.Interface:
		in.mu.Lock()
		alternatives := in.unions[base]
		in.mu.Unlock()
		if len(alternatives) > 0 {
			inner := make([]dtokit.TypeSpec, 0, len(alternatives))
			for _, alt := range alternatives {
				inner = append(inner, in.typeSpec(alt))
			}
			return dtokit.TypeSpec{Kind: dtokit.KindUnion, Type: declared, Inner: inner}
		}
		return dtokit.Scalar(declared)

	case reflect.Array:
		inner := make([]dtokit.TypeSpec, 0, base.Len())
		for i := 0; i < base.Len(); i++ {
			inner = append(inner, in.typeSpec(base.Elem()))
		}
		return dtokit.TypeSpec{Kind: dtokit.KindTuple, Type: declared, Inner: inner}

	case reflect.Slice:
		if base.Elem().Kind() == reflect.Uint8 {
			// []byte is a scalar on the wire.
			return dtokit.Scalar(declared)
		}
		return dtokit.TypeSpec{
			Kind:  dtokit.KindCollection,
			Type:  declared,
			Inner: []dtokit.TypeSpec{in.typeSpec(base.Elem())},
		}

	case reflect.Map:
		return dtokit.TypeSpec{
			Kind:  dtokit.KindMapping,
			Type:  declared,
			Inner: []dtokit.TypeSpec{in.typeSpec(base.Key()), in.typeSpec(base.Elem())},
		}

	case reflect.Struct:
		return dtokit.Model(declared)
	}
	return dtokit.Scalar(declared)
}

// isScalarStruct reports composite types that travel as a single wire
// value rather than an object: time.Time and anything text-representable.
func isScalarStruct(t reflect.Type) bool {
	return t == timeType || reflect.PointerTo(t).Implements(textMarshalerType)
}

func baseType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// logicalName resolves the field's domain name: json tag first, then the
// snake_cased Go field name. Returns "" for fields opted out via "-".
func logicalName(field reflect.StructField) string {
	tag, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	switch tag {
	case "-":
		return ""
	case "":
		return snakeCase(field.Name)
	}
	return tag
}

// parseMark reads the dto tag. Unknown marks are configuration errors
// naming the offending field.
func parseMark(field reflect.StructField) (dtokit.Mark, error) {
	tag := field.Tag.Get("dto")
	mark, err := dtokit.ParseMark(tag)
	if err != nil {
		return dtokit.MarkNone, dtokit.NewInvalidMarkError(field.Name, tag)
	}
	return mark, nil
}

func modelDefaults(model reflect.Type) map[string]any {
	v, ok := reflect.New(model).Elem().Interface().(FieldDefaulter)
	if !ok {
		return nil
	}
	return v.FieldDefaults()
}

// snakeCase lowers a Go field name, keeping initialisms intact:
// "FirstName" -> "first_name", "UserID" -> "user_id".
func snakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) && i > 0 {
			prevLower := unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (unicode.IsUpper(runes[i-1]) && nextLower) {
				b.WriteByte('_')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

var _ dtokit.Introspector = (*Introspector)(nil)
