// Package engine transfers data between transfer-model and domain-model
// representations. Two interchangeable strategies exist: an interpreted
// engine that walks the transfer schema on every call, and a compiled
// engine that builds specialized closures once at schema-build time. Both
// must produce identical output for identical input.
package engine

import (
	"encoding"
	"encoding/base64"
	"fmt"
	"math"
	"reflect"

	"github.com/hengadev/errsx"

	"github.com/dtokit/dtokit/internal/schema"
)

// Spec describes one bound schema to an engine.
type Spec struct {
	Fields        []schema.TransferField
	Model         reflect.Type // domain struct type
	Transfer      reflect.Type // synthesized transfer struct type
	RootSlice     bool         // the handler annotation is a collection of the model
	Partial       bool
	ForbidUnknown bool
}

// DecodeOptions control one decode call.
//
// Sources are read by shape: a map[string]any level is read by wire name,
// a typed struct level by transfer slot. The caller decides the shape when
// it picks what to unmarshal into; the engines follow the data.
type DecodeOptions struct {
	// DomainNames reads map sources by domain field names instead of
	// serialization names (instance creation from DTOData builtins).
	DomainNames bool
	// Target, when non-nil, is a pointer to an existing domain value that
	// is updated in place; absent source fields leave it untouched.
	Target any
}

// Engine transfers values between the wire and domain representations of
// one binding. Implementations are safe for concurrent use: they hold no
// per-call state.
type Engine interface {
	// Decode transfers wire-shaped data into domain value(s).
	Decode(src any, opts DecodeOptions) (any, error)
	// Encode transfers domain value(s) into transfer-model instance(s).
	Encode(src any) (any, error)
	// ToBuiltins transfers wire-shaped data into a plain map (or slice of
	// maps) keyed by domain field names.
	ToBuiltins(src any) (any, error)
}

// Strategy selects the engine implementation for a binding.
type Strategy string

const (
	StrategyCompiled    Strategy = "compiled"
	StrategyInterpreted Strategy = "interpreted"
)

// New builds an engine for spec using the given strategy.
func New(strategy Strategy, spec Spec) (Engine, error) {
	switch strategy {
	case StrategyInterpreted:
		return newInterpreted(spec), nil
	case StrategyCompiled, "":
		return newCompiled(spec)
	}
	return nil, fmt.Errorf("unknown engine strategy %q", strategy)
}

var (
	anyType             = reflect.TypeOf((*any)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// transferIndexes maps schema field positions to synthesized struct field
// positions. Excluded fields map to -1: the transfer model has no slot for
// them. The synthesizer appends non-excluded fields in order, so the k-th
// non-excluded field owns struct field k.
func transferIndexes(fields []schema.TransferField) []int {
	out := make([]int, len(fields))
	next := 0
	for i, field := range fields {
		if field.IsExcluded {
			out[i] = -1
			continue
		}
		out[i] = next
		next++
	}
	return out
}

func deref(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Pointer && !v.IsNil() {
		v = v.Elem()
	}
	return v
}

// asFieldMap reports whether v is a builtins field map.
func asFieldMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// coerce converts a wire-decoded builtin into dst's type, recording one
// error per offending path. The zero Value is returned on failure.
func coerce(v any, dst reflect.Type, path string, errs *errsx.Map) reflect.Value {
	if v == nil {
		return reflect.Zero(dst)
	}
	val := reflect.ValueOf(v)
	if val.Type().AssignableTo(dst) {
		return val
	}

	switch dst.Kind() {
	case reflect.Pointer:
		elem := coerce(v, dst.Elem(), path, errs)
		if !elem.IsValid() {
			return reflect.Value{}
		}
		out := reflect.New(dst.Elem())
		out.Elem().Set(elem)
		return out

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if isNumeric(val.Kind()) {
			return convertInteger(val, dst, path, errs)
		}

	case reflect.Float32, reflect.Float64:
		if val.CanConvert(dst) && isNumeric(val.Kind()) {
			return val.Convert(dst)
		}

	case reflect.String:
		if val.Kind() == reflect.String {
			return val.Convert(dst)
		}

	case reflect.Slice:
		// Byte slices travel as base64 text in JSON payloads.
		if s, ok := v.(string); ok && dst.Elem().Kind() == reflect.Uint8 {
			raw, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				errs.Set(path, fmt.Errorf("invalid base64 value: %v", err))
				return reflect.Value{}
			}
			return reflect.ValueOf(raw).Convert(dst)
		}
		if items, ok := v.([]any); ok {
			out := reflect.MakeSlice(dst, 0, len(items))
			for i, item := range items {
				elem := coerce(item, dst.Elem(), fmt.Sprintf("%s.%d", path, i), errs)
				if elem.IsValid() {
					out = reflect.Append(out, elem)
				}
			}
			return out
		}

	case reflect.Map:
		if m, ok := asFieldMap(v); ok {
			out := reflect.MakeMapWithSize(dst, len(m))
			for key, item := range m {
				k := coerce(key, dst.Key(), path+"."+key, errs)
				e := coerce(item, dst.Elem(), path+"."+key, errs)
				if k.IsValid() && e.IsValid() {
					out.SetMapIndex(k, e)
				}
			}
			return out
		}

	case reflect.Interface:
		if val.Type().Implements(dst) || dst == anyType {
			return val
		}
	}

	// Text-representable targets (uuid.UUID, time.Time, ...) accept their
	// string form.
	if s, ok := v.(string); ok && reflect.PointerTo(dst).Implements(textUnmarshalerType) {
		out := reflect.New(dst)
		if err := out.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			errs.Set(path, fmt.Errorf("invalid value %q: %v", s, err))
			return reflect.Value{}
		}
		return out.Elem()
	}

	errs.Set(path, fmt.Errorf("cannot convert %T to %s", v, dst))
	return reflect.Value{}
}

// convertInteger narrows a numeric wire value into an integer target.
// Values a plain Convert would silently wrap around, a negative number
// into an unsigned target or anything wider than the target type, are
// rejected with a per-path error instead.
func convertInteger(val reflect.Value, dst reflect.Type, path string, errs *errsx.Map) reflect.Value {
	out := reflect.New(dst).Elem()
	outOfRange := func(v any) reflect.Value {
		errs.Set(path, fmt.Errorf("value %v is out of range for %s", v, dst))
		return reflect.Value{}
	}

	switch k := val.Kind(); {
	case k == reflect.Float32 || k == reflect.Float64:
		f := val.Float()
		if f != math.Trunc(f) {
			errs.Set(path, fmt.Errorf("expected an integer, got %v", f))
			return reflect.Value{}
		}
		if isUnsigned(dst.Kind()) {
			if f < 0 || f >= math.MaxUint64 || out.OverflowUint(uint64(f)) {
				return outOfRange(f)
			}
			out.SetUint(uint64(f))
		} else {
			if f < math.MinInt64 || f >= math.MaxInt64 || out.OverflowInt(int64(f)) {
				return outOfRange(f)
			}
			out.SetInt(int64(f))
		}

	case isUnsigned(k):
		u := val.Uint()
		if isUnsigned(dst.Kind()) {
			if out.OverflowUint(u) {
				return outOfRange(u)
			}
			out.SetUint(u)
		} else {
			if u > math.MaxInt64 || out.OverflowInt(int64(u)) {
				return outOfRange(u)
			}
			out.SetInt(int64(u))
		}

	default:
		i := val.Int()
		if isUnsigned(dst.Kind()) {
			if i < 0 || out.OverflowUint(uint64(i)) {
				return outOfRange(i)
			}
			out.SetUint(uint64(i))
		} else {
			if out.OverflowInt(i) {
				return outOfRange(i)
			}
			out.SetInt(i)
		}
	}
	return out
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// fieldDefault resolves the declared default for an absent field. The
// second return reports whether any default exists.
func fieldDefault(field schema.TransferField) (any, bool) {
	if field.HasDefault {
		return field.Default, true
	}
	if field.DefaultFactory != nil {
		return field.DefaultFactory(), true
	}
	return nil, false
}

// joinPath appends a segment to a dotted error path.
func joinPath(path, segment string) string {
	if path == "" {
		return segment
	}
	return path + "." + segment
}

// nestedAlternative returns the Simple node of the first union alternative
// whose domain model type matches the concrete type of v.
func nestedAlternative(u schema.Union, v reflect.Value) (schema.Simple, bool) {
	for _, inner := range u.Inners {
		simple, ok := inner.(schema.Simple)
		if !ok || simple.Nested == nil {
			continue
		}
		base := simple.Type
		for base.Kind() == reflect.Pointer {
			base = base.Elem()
		}
		concrete := v.Type()
		for concrete.Kind() == reflect.Pointer {
			concrete = concrete.Elem()
		}
		if base == concrete {
			return simple, true
		}
	}
	return schema.Simple{}, false
}

// firstNestedAlternative returns the first union alternative wrapping a
// model, used to structure map-shaped union sources on decode.
func firstNestedAlternative(u schema.Union) (schema.Simple, bool) {
	for _, inner := range u.Inners {
		if simple, ok := inner.(schema.Simple); ok && simple.Nested != nil {
			return simple, true
		}
	}
	return schema.Simple{}, false
}
