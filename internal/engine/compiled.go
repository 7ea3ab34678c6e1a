package engine

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/hengadev/errsx"

	"github.com/dtokit/dtokit/internal/model"
	"github.com/dtokit/dtokit/internal/schema"
)

// compiled specializes one closure per schema level (and one per nested or
// union branch) at build time, so that per-call work is a flat pass over
// precomputed field programs with no schema dispatch. Output is identical
// to the interpreted engine by construction and by test.
type compiled struct {
	spec     Spec
	decode   instanceFn
	encode   encodeInstanceFn
	builtins builtinsInstanceFn
}

// nodeFn transfers one wire value into its domain representation.
// domainNames propagates the builtins naming mode into nested levels.
type nodeFn func(src any, domainNames bool, path string, errs *errsx.Map) reflect.Value

// encNodeFn transfers one domain value into its wire representation.
type encNodeFn func(v reflect.Value, path string, errs *errsx.Map) reflect.Value

// builtinsNodeFn re-keys one wire value by domain names.
type builtinsNodeFn func(src any, path string, errs *errsx.Map) any

// instanceFn fills one domain struct level from a source instance.
type instanceFn func(src any, dst reflect.Value, updateOnly, domainNames bool, path string, errs *errsx.Map)

type encodeInstanceFn func(src reflect.Value, path string, errs *errsx.Map) reflect.Value

type builtinsInstanceFn func(src any, path string, errs *errsx.Map) map[string]any

func newCompiled(spec Spec) (*compiled, error) {
	c := &compiled{spec: spec}
	var err error
	if c.decode, err = c.compileInstance(spec.Fields, spec.Model); err != nil {
		return nil, err
	}
	if c.encode, err = c.compileEncodeInstance(spec.Fields, spec.Transfer); err != nil {
		return nil, err
	}
	c.builtins = c.compileBuiltinsInstance(spec.Fields)
	return c, nil
}

func (c *compiled) Decode(src any, opts DecodeOptions) (any, error) {
	var errs errsx.Map

	if opts.Target != nil {
		target := reflect.ValueOf(opts.Target)
		if target.Kind() != reflect.Pointer || target.IsNil() {
			return nil, fmt.Errorf("decode target must be a non-nil pointer, got %T", opts.Target)
		}
		c.decode(src, target.Elem(), true, opts.DomainNames, "", &errs)
		if !errs.IsEmpty() {
			return nil, errs.AsError()
		}
		return opts.Target, nil
	}

	if c.spec.RootSlice {
		items, ok := sourceItems(src)
		if !ok {
			return nil, fmt.Errorf("expected a collection, got %T", src)
		}
		out := reflect.MakeSlice(reflect.SliceOf(c.spec.Model), 0, len(items))
		for i, item := range items {
			dst := reflect.New(c.spec.Model).Elem()
			c.decode(item, dst, false, opts.DomainNames, strconv.Itoa(i), &errs)
			out = reflect.Append(out, dst)
		}
		if !errs.IsEmpty() {
			return nil, errs.AsError()
		}
		return out.Interface(), nil
	}

	dst := reflect.New(c.spec.Model).Elem()
	c.decode(src, dst, false, opts.DomainNames, "", &errs)
	if !errs.IsEmpty() {
		return nil, errs.AsError()
	}
	return dst.Interface(), nil
}

func (c *compiled) Encode(src any) (any, error) {
	var errs errsx.Map

	if c.spec.RootSlice {
		sv := deref(reflect.ValueOf(src))
		if !sv.IsValid() || (sv.Kind() != reflect.Slice && sv.Kind() != reflect.Array) {
			return nil, fmt.Errorf("expected a collection of %s, got %T", c.spec.Model, src)
		}
		out := reflect.MakeSlice(reflect.SliceOf(c.spec.Transfer), 0, sv.Len())
		for i := 0; i < sv.Len(); i++ {
			out = reflect.Append(out, c.encode(sv.Index(i), strconv.Itoa(i), &errs))
		}
		if !errs.IsEmpty() {
			return nil, errs.AsError()
		}
		return out.Interface(), nil
	}

	out := c.encode(reflect.ValueOf(src), "", &errs)
	if !errs.IsEmpty() {
		return nil, errs.AsError()
	}
	return out.Interface(), nil
}

func (c *compiled) ToBuiltins(src any) (any, error) {
	var errs errsx.Map

	if c.spec.RootSlice {
		items, ok := sourceItems(src)
		if !ok {
			return nil, fmt.Errorf("expected a collection, got %T", src)
		}
		out := make([]any, 0, len(items))
		for i, item := range items {
			out = append(out, c.builtins(item, strconv.Itoa(i), &errs))
		}
		if !errs.IsEmpty() {
			return nil, errs.AsError()
		}
		return out, nil
	}

	out := c.builtins(src, "", &errs)
	if !errs.IsEmpty() {
		return nil, errs.AsError()
	}
	return out, nil
}

// decodeOp is the precompiled program for one field of one schema level.
type decodeOp struct {
	serName    string
	domName    string
	fieldIndex []int // domain struct field index
	tIndex     int   // transfer struct field index, -1 when excluded
	partial    bool
	def        any
	hasDef     bool
	fn         nodeFn
}

// compileInstance builds the transfer program for one schema level. The
// returned closure accepts both field-map and typed-instance sources: the
// capability is decided by shape once per value, and every branch below it
// runs precompiled.
func (c *compiled) compileInstance(fields []schema.TransferField, modelType reflect.Type) (instanceFn, error) {
	tidx := transferIndexes(fields)
	ops := make([]decodeOp, 0, len(fields))
	known := make(map[string]struct{}, len(fields))
	knownDom := make(map[string]struct{}, len(fields))

	for i, field := range fields {
		if field.IsExcluded {
			continue
		}
		structField, ok := modelType.FieldByName(field.GoField)
		if !ok {
			return nil, fmt.Errorf("model %s has no field %q", modelType, field.GoField)
		}
		fn, err := c.compileNode(field.Transfer)
		if err != nil {
			return nil, err
		}
		def, hasDef := fieldDefault(field)
		ops = append(ops, decodeOp{
			serName:    field.SerializationName,
			domName:    field.Name,
			fieldIndex: structField.Index,
			tIndex:     tidx[i],
			partial:    field.IsPartial,
			def:        def,
			hasDef:     hasDef,
			fn:         fn,
		})
		known[field.SerializationName] = struct{}{}
		knownDom[field.Name] = struct{}{}
	}

	forbidUnknown := c.spec.ForbidUnknown

	return func(src any, dst reflect.Value, updateOnly, domainNames bool, path string, errs *errsx.Map) {
		if m, ok := asFieldMap(src); ok {
			if forbidUnknown {
				keys := known
				if domainNames {
					keys = knownDom
				}
				for key := range m {
					if _, ok := keys[key]; !ok {
						errs.Set(joinPath(path, key), fmt.Errorf("unknown field"))
					}
				}
			}
			for _, op := range ops {
				name := op.serName
				if domainNames {
					name = op.domName
				}
				raw, present := m[name]
				if !present {
					if updateOnly || op.partial {
						continue
					}
					if !op.hasDef {
						errs.Set(joinPath(path, name), fmt.Errorf("field is required"))
						continue
					}
					raw = op.def
				}
				label := joinPath(path, name)
				value := op.fn(raw, domainNames, label, errs)
				if value.IsValid() {
					assignField(dst.FieldByIndex(op.fieldIndex), value, label, errs)
				}
			}
			return
		}

		sv := deref(reflect.ValueOf(src))
		if !sv.IsValid() || sv.Kind() != reflect.Struct {
			errs.Set(orBody(path), fmt.Errorf("expected an object, got %T", src))
			return
		}
		for _, op := range ops {
			fv := sv.Field(op.tIndex)
			if op.partial && fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			name := op.serName
			if domainNames {
				name = op.domName
			}
			label := joinPath(path, name)
			value := op.fn(fv.Interface(), domainNames, label, errs)
			if value.IsValid() {
				assignField(dst.FieldByIndex(op.fieldIndex), value, label, errs)
			}
		}
	}, nil
}

// compileNode specializes the decode transform for one transfer node.
func (c *compiled) compileNode(node schema.Node) (nodeFn, error) {
	switch n := node.(type) {
	case schema.Simple:
		if n.Nested == nil {
			target := n.Type
			return func(src any, _ bool, path string, errs *errsx.Map) reflect.Value {
				return coerce(src, target, path, errs)
			}, nil
		}
		base, isPtr := n.Type, n.Type.Kind() == reflect.Pointer
		if isPtr {
			base = base.Elem()
		}
		inner, err := c.compileInstance(n.Nested.Fields, base)
		if err != nil {
			return nil, err
		}
		fieldType := n.Type
		return func(src any, domainNames bool, path string, errs *errsx.Map) reflect.Value {
			if src == nil {
				return reflect.Zero(fieldType)
			}
			dst := reflect.New(base).Elem()
			inner(src, dst, false, domainNames, path, errs)
			if isPtr {
				ptr := reflect.New(base)
				ptr.Elem().Set(dst)
				return ptr
			}
			return dst
		}, nil

	case schema.Collection:
		inner, err := c.compileNode(n.Inner)
		if err != nil {
			return nil, err
		}
		sliceType := n.Type
		return func(src any, domainNames bool, path string, errs *errsx.Map) reflect.Value {
			items, ok := sourceItems(src)
			if !ok {
				errs.Set(path, fmt.Errorf("expected a collection, got %T", src))
				return reflect.Value{}
			}
			out := reflect.MakeSlice(sliceType, 0, len(items))
			for i, item := range items {
				elem := inner(item, domainNames, joinPath(path, strconv.Itoa(i)), errs)
				if elem.IsValid() {
					out = reflect.Append(out, elem)
				}
			}
			return out
		}, nil

	case schema.Tuple:
		inners := make([]nodeFn, len(n.Inners))
		for i, child := range n.Inners {
			fn, err := c.compileNode(child)
			if err != nil {
				return nil, err
			}
			inners[i] = fn
		}
		arrayType := n.Type
		return func(src any, domainNames bool, path string, errs *errsx.Map) reflect.Value {
			items, ok := sourceItems(src)
			if !ok {
				errs.Set(path, fmt.Errorf("expected a fixed-length sequence, got %T", src))
				return reflect.Value{}
			}
			if len(items) != len(inners) {
				errs.Set(path, fmt.Errorf("expected %d elements, got %d", len(inners), len(items)))
				return reflect.Value{}
			}
			out := reflect.New(arrayType).Elem()
			for i, item := range items {
				elem := inners[i](item, domainNames, joinPath(path, strconv.Itoa(i)), errs)
				if elem.IsValid() {
					out.Index(i).Set(elem)
				}
			}
			return out
		}, nil

	case schema.Mapping:
		valueFn, err := c.compileNode(n.Value)
		if err != nil {
			return nil, err
		}
		mapType, keyType := n.Type, n.Type.Key()
		return func(src any, domainNames bool, path string, errs *errsx.Map) reflect.Value {
			entries, ok := mapEntries(src)
			if !ok {
				errs.Set(path, fmt.Errorf("expected a mapping, got %T", src))
				return reflect.Value{}
			}
			out := reflect.MakeMapWithSize(mapType, len(entries))
			for _, entry := range entries {
				label := joinPath(path, fmt.Sprint(entry.key))
				k := coerce(entry.key, keyType, label, errs)
				v := valueFn(entry.value, domainNames, label, errs)
				if k.IsValid() && v.IsValid() {
					out.SetMapIndex(k, v)
				}
			}
			return out
		}, nil

	case schema.Union:
		var structured nodeFn
		if n.HasNested() {
			if alt, ok := firstNestedAlternative(n); ok {
				fn, err := c.compileNode(alt)
				if err != nil {
					return nil, err
				}
				structured = fn
			}
		}
		ifaceType := n.Type
		return func(src any, domainNames bool, path string, errs *errsx.Map) reflect.Value {
			if _, isMap := asFieldMap(src); isMap && structured != nil {
				return structured(src, domainNames, path, errs)
			}
			return coerce(src, ifaceType, path, errs)
		}, nil
	}
	return nil, fmt.Errorf("unhandled transfer node %T", node)
}

// encodeOp is the precompiled encode program for one field.
type encodeOp struct {
	goField    string
	serName    string
	fieldIndex []int
	slot       int
	partial    bool
	fn         encNodeFn
}

func (c *compiled) compileEncodeInstance(fields []schema.TransferField, transferType reflect.Type) (encodeInstanceFn, error) {
	tidx := transferIndexes(fields)
	ops := make([]encodeOp, 0, len(fields))
	for i, field := range fields {
		if field.IsExcluded {
			// Excluded fields are compiled out entirely: the program never
			// reads them from the source.
			continue
		}
		fn, err := c.compileEncodeNode(field.Transfer)
		if err != nil {
			return nil, err
		}
		ops = append(ops, encodeOp{
			goField: field.GoField,
			serName: field.SerializationName,
			slot:    tidx[i],
			partial: field.IsPartial,
			fn:      fn,
		})
	}

	return func(src reflect.Value, path string, errs *errsx.Map) reflect.Value {
		out := reflect.New(transferType).Elem()
		sv := deref(src)
		if !sv.IsValid() || sv.Kind() != reflect.Struct {
			errs.Set(orBody(path), fmt.Errorf("expected a %s instance", transferType))
			return out
		}
		for _, op := range ops {
			fv := sv.FieldByName(op.goField)
			if !fv.IsValid() {
				errs.Set(joinPath(path, op.serName), fmt.Errorf("domain model has no field %q", op.goField))
				continue
			}
			encoded := op.fn(fv, joinPath(path, op.serName), errs)
			setTransferField(out.Field(op.slot), encoded, op.partial)
		}
		return out
	}, nil
}

func (c *compiled) compileEncodeNode(node schema.Node) (encNodeFn, error) {
	switch n := node.(type) {
	case schema.Simple:
		if n.Nested == nil {
			return func(v reflect.Value, _ string, _ *errsx.Map) reflect.Value { return v }, nil
		}
		inner, err := c.compileEncodeInstance(n.Nested.Fields, n.Nested.Model)
		if err != nil {
			return nil, err
		}
		nestedModel := n.Nested.Model
		return func(v reflect.Value, path string, errs *errsx.Map) reflect.Value {
			if v.Kind() == reflect.Pointer {
				if v.IsNil() {
					return reflect.Zero(reflect.PointerTo(nestedModel))
				}
				ptr := reflect.New(nestedModel)
				ptr.Elem().Set(inner(v.Elem(), path, errs))
				return ptr
			}
			return inner(v, path, errs)
		}, nil

	case schema.Collection:
		inner, err := c.compileEncodeNode(n.Inner)
		if err != nil {
			return nil, err
		}
		ann := model.Annotation(n)
		return func(v reflect.Value, path string, errs *errsx.Map) reflect.Value {
			if !v.IsValid() || v.IsZero() {
				return reflect.Zero(ann)
			}
			out := reflect.MakeSlice(ann, 0, v.Len())
			for i := 0; i < v.Len(); i++ {
				out = reflect.Append(out, inner(v.Index(i), joinPath(path, strconv.Itoa(i)), errs))
			}
			return out
		}, nil

	case schema.Tuple:
		inners := make([]encNodeFn, len(n.Inners))
		for i, child := range n.Inners {
			fn, err := c.compileEncodeNode(child)
			if err != nil {
				return nil, err
			}
			inners[i] = fn
		}
		ann := model.Annotation(n)
		return func(v reflect.Value, path string, errs *errsx.Map) reflect.Value {
			out := reflect.New(ann).Elem()
			for i, fn := range inners {
				elem := fn(v.Index(i), joinPath(path, strconv.Itoa(i)), errs)
				setTransferField(out.Index(i), elem, false)
			}
			return out
		}, nil

	case schema.Mapping:
		keyFn, err := c.compileEncodeNode(n.Key)
		if err != nil {
			return nil, err
		}
		valueFn, err := c.compileEncodeNode(n.Value)
		if err != nil {
			return nil, err
		}
		ann := model.Annotation(n)
		return func(v reflect.Value, path string, errs *errsx.Map) reflect.Value {
			if !v.IsValid() || v.IsNil() {
				return reflect.Zero(ann)
			}
			out := reflect.MakeMapWithSize(ann, v.Len())
			iter := v.MapRange()
			for iter.Next() {
				key := keyFn(iter.Key(), path, errs)
				val := valueFn(iter.Value(), joinPath(path, fmt.Sprint(iter.Key().Interface())), errs)
				out.SetMapIndex(key, val)
			}
			return out
		}, nil

	case schema.Union:
		// One branch program per model alternative, matched in declared
		// order by concrete type; no match passes through unchanged.
		type matcher struct {
			base reflect.Type
			fn   encNodeFn
		}
		matchers := make([]matcher, 0, len(n.Inners))
		for _, child := range n.Inners {
			simple, ok := child.(schema.Simple)
			if !ok || simple.Nested == nil {
				continue
			}
			fn, err := c.compileEncodeNode(simple)
			if err != nil {
				return nil, err
			}
			base := simple.Type
			for base.Kind() == reflect.Pointer {
				base = base.Elem()
			}
			matchers = append(matchers, matcher{base: base, fn: fn})
		}
		return func(v reflect.Value, path string, errs *errsx.Map) reflect.Value {
			concrete := v
			if concrete.Kind() == reflect.Interface {
				if concrete.IsNil() {
					return reflect.Zero(anyType)
				}
				concrete = concrete.Elem()
			}
			base := concrete.Type()
			for base.Kind() == reflect.Pointer {
				base = base.Elem()
			}
			for _, m := range matchers {
				if m.base == base {
					return m.fn(concrete, path, errs)
				}
			}
			return concrete
		}, nil
	}
	return nil, fmt.Errorf("unhandled transfer node %T", node)
}

// builtinsOp is the precompiled builtins-transfer program for one field.
type builtinsOp struct {
	serName string
	domName string
	tIndex  int
	partial bool
	fn      builtinsNodeFn
}

func (c *compiled) compileBuiltinsInstance(fields []schema.TransferField) builtinsInstanceFn {
	tidx := transferIndexes(fields)
	ops := make([]builtinsOp, 0, len(fields))
	for i, field := range fields {
		if field.IsExcluded {
			continue
		}
		ops = append(ops, builtinsOp{
			serName: field.SerializationName,
			domName: field.Name,
			tIndex:  tidx[i],
			partial: field.IsPartial,
			fn:      c.compileBuiltinsNode(field.Transfer),
		})
	}

	return func(src any, path string, errs *errsx.Map) map[string]any {
		out := make(map[string]any, len(ops))
		if m, ok := asFieldMap(src); ok {
			for _, op := range ops {
				raw, present := m[op.serName]
				if !present {
					continue
				}
				out[op.domName] = op.fn(raw, joinPath(path, op.domName), errs)
			}
			return out
		}
		sv := deref(reflect.ValueOf(src))
		if !sv.IsValid() || sv.Kind() != reflect.Struct {
			errs.Set(orBody(path), fmt.Errorf("expected an object, got %T", src))
			return out
		}
		for _, op := range ops {
			fv := sv.Field(op.tIndex)
			if op.partial && fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			out[op.domName] = op.fn(fv.Interface(), joinPath(path, op.domName), errs)
		}
		return out
	}
}

func (c *compiled) compileBuiltinsNode(node schema.Node) builtinsNodeFn {
	identity := func(src any, _ string, _ *errsx.Map) any { return src }
	switch n := node.(type) {
	case schema.Simple:
		if n.Nested == nil {
			return identity
		}
		inner := c.compileBuiltinsInstance(n.Nested.Fields)
		return func(src any, path string, errs *errsx.Map) any {
			return inner(src, path, errs)
		}
	case schema.Collection:
		inner := c.compileBuiltinsNode(n.Inner)
		return func(src any, path string, errs *errsx.Map) any {
			items, ok := sourceItems(src)
			if !ok {
				return src
			}
			out := make([]any, 0, len(items))
			for i, item := range items {
				out = append(out, inner(item, joinPath(path, strconv.Itoa(i)), errs))
			}
			return out
		}
	case schema.Union:
		if !n.HasNested() {
			return identity
		}
		alt, ok := firstNestedAlternative(n)
		if !ok {
			return identity
		}
		inner := c.compileBuiltinsNode(alt)
		return func(src any, path string, errs *errsx.Map) any {
			if _, isMap := asFieldMap(src); isMap {
				return inner(src, path, errs)
			}
			return src
		}
	default:
		return identity
	}
}
