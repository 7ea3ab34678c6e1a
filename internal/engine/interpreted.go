package engine

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/hengadev/errsx"

	"github.com/dtokit/dtokit/internal/model"
	"github.com/dtokit/dtokit/internal/schema"
)

// interpreted walks the transfer schema at call time. It is the reference
// implementation the compiled engine is checked against.
type interpreted struct {
	spec Spec
	tidx []int
}

func newInterpreted(spec Spec) *interpreted {
	return &interpreted{spec: spec, tidx: transferIndexes(spec.Fields)}
}

func (e *interpreted) Decode(src any, opts DecodeOptions) (any, error) {
	var errs errsx.Map

	if opts.Target != nil {
		target := reflect.ValueOf(opts.Target)
		if target.Kind() != reflect.Pointer || target.IsNil() {
			return nil, fmt.Errorf("decode target must be a non-nil pointer, got %T", opts.Target)
		}
		e.decodeInstance(src, opts, e.spec.Fields, target.Elem(), true, "", &errs)
		if !errs.IsEmpty() {
			return nil, errs.AsError()
		}
		return opts.Target, nil
	}

	if e.spec.RootSlice {
		items, ok := sourceItems(src)
		if !ok {
			return nil, fmt.Errorf("expected a collection, got %T", src)
		}
		out := reflect.MakeSlice(reflect.SliceOf(e.spec.Model), 0, len(items))
		for i, item := range items {
			dst := reflect.New(e.spec.Model).Elem()
			e.decodeInstance(item, opts, e.spec.Fields, dst, false, strconv.Itoa(i), &errs)
			out = reflect.Append(out, dst)
		}
		if !errs.IsEmpty() {
			return nil, errs.AsError()
		}
		return out.Interface(), nil
	}

	dst := reflect.New(e.spec.Model).Elem()
	e.decodeInstance(src, opts, e.spec.Fields, dst, false, "", &errs)
	if !errs.IsEmpty() {
		return nil, errs.AsError()
	}
	return dst.Interface(), nil
}

// decodeInstance fills one domain struct level from a source instance.
// With updateOnly set, absent source fields leave dst untouched and no
// required-field checks apply.
func (e *interpreted) decodeInstance(
	src any,
	opts DecodeOptions,
	fields []schema.TransferField,
	dst reflect.Value,
	updateOnly bool,
	path string,
	errs *errsx.Map,
) {
	if m, ok := asFieldMap(src); ok {
		if e.spec.ForbidUnknown {
			e.reportUnknown(m, fields, opts.DomainNames, path, errs)
		}
		for _, field := range fields {
			if field.IsExcluded {
				continue
			}
			name := field.SerializationName
			if opts.DomainNames {
				name = field.Name
			}
			raw, present := m[name]
			if !present {
				if updateOnly || field.IsPartial {
					continue
				}
				def, ok := fieldDefault(field)
				if !ok {
					errs.Set(joinPath(path, name), fmt.Errorf("field is required"))
					continue
				}
				raw = def
			}
			value := e.decodeNode(field.Transfer, raw, opts, joinPath(path, name), errs)
			setDomainField(dst, field.GoField, value, joinPath(path, name), errs)
		}
		return
	}

	sv := deref(reflect.ValueOf(src))
	if !sv.IsValid() || sv.Kind() != reflect.Struct {
		errs.Set(orBody(path), fmt.Errorf("expected an object, got %T", src))
		return
	}
	tidx := transferIndexes(fields)
	for i, field := range fields {
		if field.IsExcluded {
			continue
		}
		fv := sv.Field(tidx[i])
		if field.IsPartial && fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		name := field.SerializationName
		if opts.DomainNames {
			name = field.Name
		}
		value := e.decodeNode(field.Transfer, fv.Interface(), opts, joinPath(path, name), errs)
		setDomainField(dst, field.GoField, value, joinPath(path, name), errs)
	}
}

func (e *interpreted) decodeNode(node schema.Node, src any, opts DecodeOptions, path string, errs *errsx.Map) reflect.Value {
	switch n := node.(type) {
	case schema.Simple:
		if n.Nested == nil {
			return coerce(src, n.Type, path, errs)
		}
		base, isPtr := n.Type, n.Type.Kind() == reflect.Pointer
		if isPtr {
			base = base.Elem()
		}
		if src == nil {
			return reflect.Zero(n.Type)
		}
		dst := reflect.New(base).Elem()
		e.decodeInstance(src, opts, n.Nested.Fields, dst, false, path, errs)
		if isPtr {
			ptr := reflect.New(base)
			ptr.Elem().Set(dst)
			return ptr
		}
		return dst

	case schema.Collection:
		items, ok := sourceItems(src)
		if !ok {
			errs.Set(path, fmt.Errorf("expected a collection, got %T", src))
			return reflect.Value{}
		}
		// Rebuilt with the origin collection type's constructor.
		out := reflect.MakeSlice(n.Type, 0, len(items))
		for i, item := range items {
			elem := e.decodeNode(n.Inner, item, opts, joinPath(path, strconv.Itoa(i)), errs)
			if elem.IsValid() {
				out = reflect.Append(out, elem)
			}
		}
		return out

	case schema.Tuple:
		items, ok := sourceItems(src)
		if !ok {
			errs.Set(path, fmt.Errorf("expected a fixed-length sequence, got %T", src))
			return reflect.Value{}
		}
		if len(items) != len(n.Inners) {
			errs.Set(path, fmt.Errorf("expected %d elements, got %d", len(n.Inners), len(items)))
			return reflect.Value{}
		}
		out := reflect.New(n.Type).Elem()
		for i, item := range items {
			elem := e.decodeNode(n.Inners[i], item, opts, joinPath(path, strconv.Itoa(i)), errs)
			if elem.IsValid() {
				out.Index(i).Set(elem)
			}
		}
		return out

	case schema.Mapping:
		entries, ok := mapEntries(src)
		if !ok {
			errs.Set(path, fmt.Errorf("expected a mapping, got %T", src))
			return reflect.Value{}
		}
		out := reflect.MakeMapWithSize(n.Type, len(entries))
		for _, entry := range entries {
			label := joinPath(path, fmt.Sprint(entry.key))
			k := coerce(entry.key, n.Type.Key(), label, errs)
			v := e.decodeNode(n.Value, entry.value, opts, label, errs)
			if k.IsValid() && v.IsValid() {
				out.SetMapIndex(k, v)
			}
		}
		return out

	case schema.Union:
		// A map-shaped source is structured into the first declared model
		// alternative; anything else passes through unchanged.
		if _, isMap := asFieldMap(src); isMap && n.HasNested() {
			if alt, ok := firstNestedAlternative(n); ok {
				return e.decodeNode(alt, src, opts, path, errs)
			}
		}
		return coerce(src, n.Type, path, errs)
	}
	errs.Set(path, fmt.Errorf("unhandled transfer node %T", node))
	return reflect.Value{}
}

func (e *interpreted) Encode(src any) (any, error) {
	var errs errsx.Map

	if e.spec.RootSlice {
		sv := deref(reflect.ValueOf(src))
		if !sv.IsValid() || (sv.Kind() != reflect.Slice && sv.Kind() != reflect.Array) {
			return nil, fmt.Errorf("expected a collection of %s, got %T", e.spec.Model, src)
		}
		out := reflect.MakeSlice(reflect.SliceOf(e.spec.Transfer), 0, sv.Len())
		for i := 0; i < sv.Len(); i++ {
			out = reflect.Append(out, e.encodeInstance(sv.Index(i), e.spec.Fields, e.spec.Transfer, strconv.Itoa(i), &errs))
		}
		if !errs.IsEmpty() {
			return nil, errs.AsError()
		}
		return out.Interface(), nil
	}

	out := e.encodeInstance(reflect.ValueOf(src), e.spec.Fields, e.spec.Transfer, "", &errs)
	if !errs.IsEmpty() {
		return nil, errs.AsError()
	}
	return out.Interface(), nil
}

// encodeInstance fills one transfer struct level from a domain instance.
// Excluded fields are never read from the source.
func (e *interpreted) encodeInstance(
	src reflect.Value,
	fields []schema.TransferField,
	transferType reflect.Type,
	path string,
	errs *errsx.Map,
) reflect.Value {
	out := reflect.New(transferType).Elem()
	sv := deref(src)
	if !sv.IsValid() || sv.Kind() != reflect.Struct {
		errs.Set(orBody(path), fmt.Errorf("expected a %s instance", transferType))
		return out
	}

	tidx := transferIndexes(fields)
	for i, field := range fields {
		if field.IsExcluded {
			continue
		}
		fv := sv.FieldByName(field.GoField)
		if !fv.IsValid() {
			errs.Set(joinPath(path, field.Name), fmt.Errorf("domain model has no field %q", field.GoField))
			continue
		}
		encoded := e.encodeNode(field.Transfer, fv, joinPath(path, field.SerializationName), errs)
		setTransferField(out.Field(tidx[i]), encoded, field.IsPartial)
	}
	return out
}

func (e *interpreted) encodeNode(node schema.Node, v reflect.Value, path string, errs *errsx.Map) reflect.Value {
	switch n := node.(type) {
	case schema.Simple:
		if n.Nested == nil {
			return v
		}
		if v.Kind() == reflect.Pointer {
			if v.IsNil() {
				return reflect.Zero(reflect.PointerTo(n.Nested.Model))
			}
			inner := e.encodeInstance(v.Elem(), n.Nested.Fields, n.Nested.Model, path, errs)
			ptr := reflect.New(n.Nested.Model)
			ptr.Elem().Set(inner)
			return ptr
		}
		return e.encodeInstance(v, n.Nested.Fields, n.Nested.Model, path, errs)

	case schema.Collection:
		ann := model.Annotation(n)
		if !v.IsValid() || v.IsZero() {
			return reflect.Zero(ann)
		}
		out := reflect.MakeSlice(ann, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			out = reflect.Append(out, e.encodeNode(n.Inner, v.Index(i), joinPath(path, strconv.Itoa(i)), errs))
		}
		return out

	case schema.Tuple:
		ann := model.Annotation(n)
		out := reflect.New(ann).Elem()
		for i, inner := range n.Inners {
			elem := e.encodeNode(inner, v.Index(i), joinPath(path, strconv.Itoa(i)), errs)
			setTransferField(out.Index(i), elem, false)
		}
		return out

	case schema.Mapping:
		ann := model.Annotation(n)
		if !v.IsValid() || v.IsNil() {
			return reflect.Zero(ann)
		}
		out := reflect.MakeMapWithSize(ann, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			key := e.encodeNode(n.Key, iter.Key(), path, errs)
			val := e.encodeNode(n.Value, iter.Value(), joinPath(path, fmt.Sprint(iter.Key().Interface())), errs)
			out.SetMapIndex(key, val)
		}
		return out

	case schema.Union:
		concrete := v
		if concrete.Kind() == reflect.Interface {
			if concrete.IsNil() {
				return reflect.Zero(anyType)
			}
			concrete = concrete.Elem()
		}
		// First declared alternative whose model type matches wins; a
		// value matching no alternative passes through as-is.
		if alt, ok := nestedAlternative(n, concrete); ok {
			return e.encodeNode(alt, concrete, path, errs)
		}
		return concrete
	}
	errs.Set(path, fmt.Errorf("unhandled transfer node %T", node))
	return reflect.Value{}
}

func (e *interpreted) ToBuiltins(src any) (any, error) {
	var errs errsx.Map

	if e.spec.RootSlice {
		items, ok := sourceItems(src)
		if !ok {
			return nil, fmt.Errorf("expected a collection, got %T", src)
		}
		out := make([]any, 0, len(items))
		for i, item := range items {
			out = append(out, e.builtinsInstance(item, e.spec.Fields, strconv.Itoa(i), &errs))
		}
		if !errs.IsEmpty() {
			return nil, errs.AsError()
		}
		return out, nil
	}

	out := e.builtinsInstance(src, e.spec.Fields, "", &errs)
	if !errs.IsEmpty() {
		return nil, errs.AsError()
	}
	return out, nil
}

// builtinsInstance re-keys one source level by domain field names, leaving
// scalar values in their wire form.
func (e *interpreted) builtinsInstance(
	src any,
	fields []schema.TransferField,
	path string,
	errs *errsx.Map,
) map[string]any {
	out := make(map[string]any, len(fields))

	if m, ok := asFieldMap(src); ok {
		for _, field := range fields {
			if field.IsExcluded {
				continue
			}
			raw, present := m[field.SerializationName]
			if !present {
				continue
			}
			out[field.Name] = e.builtinsNode(field.Transfer, raw, joinPath(path, field.Name), errs)
		}
		return out
	}

	sv := deref(reflect.ValueOf(src))
	if !sv.IsValid() || sv.Kind() != reflect.Struct {
		errs.Set(orBody(path), fmt.Errorf("expected an object, got %T", src))
		return out
	}
	tidx := transferIndexes(fields)
	for i, field := range fields {
		if field.IsExcluded {
			continue
		}
		fv := sv.Field(tidx[i])
		if field.IsPartial && fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		out[field.Name] = e.builtinsNode(field.Transfer, fv.Interface(), joinPath(path, field.Name), errs)
	}
	return out
}

func (e *interpreted) builtinsNode(node schema.Node, src any, path string, errs *errsx.Map) any {
	switch n := node.(type) {
	case schema.Simple:
		if n.Nested == nil {
			return src
		}
		return e.builtinsInstance(src, n.Nested.Fields, path, errs)
	case schema.Collection:
		items, ok := sourceItems(src)
		if !ok {
			return src
		}
		out := make([]any, 0, len(items))
		for i, item := range items {
			out = append(out, e.builtinsNode(n.Inner, item, joinPath(path, strconv.Itoa(i)), errs))
		}
		return out
	case schema.Union:
		if _, isMap := asFieldMap(src); isMap && n.HasNested() {
			if alt, ok := firstNestedAlternative(n); ok {
				return e.builtinsNode(alt, src, path, errs)
			}
		}
		return src
	default:
		return src
	}
}

func (e *interpreted) reportUnknown(m map[string]any, fields []schema.TransferField, domainNames bool, path string, errs *errsx.Map) {
	known := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if field.IsExcluded {
			continue
		}
		if domainNames {
			known[field.Name] = struct{}{}
		} else {
			known[field.SerializationName] = struct{}{}
		}
	}
	for key := range m {
		if _, ok := known[key]; !ok {
			errs.Set(joinPath(path, key), fmt.Errorf("unknown field"))
		}
	}
}

type mapEntry struct {
	key   any
	value any
}

// mapEntries flattens either a builtins map or a typed map into key/value
// pairs.
func mapEntries(src any) ([]mapEntry, bool) {
	if m, ok := asFieldMap(src); ok {
		out := make([]mapEntry, 0, len(m))
		for k, v := range m {
			out = append(out, mapEntry{key: k, value: v})
		}
		return out, true
	}
	mv := deref(reflect.ValueOf(src))
	if !mv.IsValid() || mv.Kind() != reflect.Map {
		return nil, false
	}
	out := make([]mapEntry, 0, mv.Len())
	iter := mv.MapRange()
	for iter.Next() {
		out = append(out, mapEntry{key: iter.Key().Interface(), value: iter.Value().Interface()})
	}
	return out, true
}

func sourceItems(src any) ([]any, bool) {
	if items, ok := src.([]any); ok {
		return items, true
	}
	v := deref(reflect.ValueOf(src))
	if !v.IsValid() || (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		out = append(out, v.Index(i).Interface())
	}
	return out, true
}

func orBody(path string) string {
	if path == "" {
		return "body"
	}
	return path
}

func setDomainField(dst reflect.Value, goField string, value reflect.Value, path string, errs *errsx.Map) {
	if !value.IsValid() {
		return
	}
	fv := dst.FieldByName(goField)
	if !fv.IsValid() || !fv.CanSet() {
		errs.Set(path, fmt.Errorf("domain field %q is not settable", goField))
		return
	}
	assignField(fv, value, path, errs)
}

func setTransferField(slot, value reflect.Value, partial bool) {
	if !value.IsValid() {
		return
	}
	if partial && slot.Kind() == reflect.Pointer && value.Kind() != reflect.Pointer {
		ptr := reflect.New(slot.Type().Elem())
		ptr.Elem().Set(value)
		slot.Set(ptr)
		return
	}
	if value.Type().AssignableTo(slot.Type()) {
		slot.Set(value)
		return
	}
	if value.Type().ConvertibleTo(slot.Type()) {
		slot.Set(value.Convert(slot.Type()))
	}
}

func assignField(fv, value reflect.Value, path string, errs *errsx.Map) {
	switch {
	case value.Type().AssignableTo(fv.Type()):
		fv.Set(value)
	case value.Type().ConvertibleTo(fv.Type()):
		fv.Set(value.Convert(fv.Type()))
	default:
		errs.Set(path, fmt.Errorf("cannot assign %s to %s", value.Type(), fv.Type()))
	}
}
