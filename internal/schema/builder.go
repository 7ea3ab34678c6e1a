package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/dtokit/dtokit/internal/types"
)

// errDepthLimit signals that a nested model sits at the configured nesting
// limit. It drops the enclosing field from the schema; it is never surfaced
// to callers.
var errDepthLimit = errors.New("nested depth limit reached")

// Synthesizer produces the transfer model type for one nested level. It is
// injected by the caller so that naming and type synthesis stay outside
// this package.
type Synthesizer func(modelName string, fields []TransferField) (reflect.Type, string, error)

// Options carries the per-binding policy the builder applies while walking
// a model's field definitions.
type Options struct {
	Exclude           map[string]struct{}
	Include           map[string]struct{}
	RenameFields      map[string]string
	RenameFunc        func(string) string
	MaxNestedDepth    int
	Partial           bool
	UnderscorePrivate bool
	IsDataField       bool
	Synthesize        Synthesizer
}

// Parse reduces model to transfer field definitions, honoring the options'
// exclusion, inclusion, rename and nesting-depth policy.
func Parse(intro types.Introspector, model reflect.Type, opts Options) ([]TransferField, error) {
	b := &builder{intro: intro, opts: opts}
	return b.parseModel(model, opts.Exclude, opts.Include, 0)
}

type builder struct {
	intro types.Introspector
	opts  Options
}

func (b *builder) parseModel(model reflect.Type, exclude, include map[string]struct{}, depth int) ([]TransferField, error) {
	defs, err := b.intro.FieldDefinitions(model)
	if err != nil {
		return nil, err
	}

	out := make([]TransferField, 0, len(defs))
	for _, def := range defs {
		if b.opts.UnderscorePrivate && def.Mark == types.MarkNone && strings.HasPrefix(def.Name, "_") {
			def.Mark = types.MarkPrivate
		}

		node, err := b.createTransferType(def.Spec, exclude, include, def.Name, def.ModelName+def.GoField, depth)
		if errors.Is(err, errDepthLimit) {
			// The depth limit drops the field entirely: it does not appear
			// in the schema at all, unlike an excluded field.
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("field '%s' of model %s: %w", def.Name, def.ModelName, err)
		}

		out = append(out, TransferField{
			FieldDefinition:   def,
			SerializationName: b.serializationName(def.Name),
			IsPartial:         b.opts.Partial,
			IsExcluded:        b.shouldExclude(def, exclude, include),
			Transfer:          node,
		})
	}
	return out, nil
}

func (b *builder) serializationName(name string) string {
	if renamed, ok := b.opts.RenameFields[name]; ok {
		return renamed
	}
	if b.opts.RenameFunc != nil {
		return b.opts.RenameFunc(name)
	}
	return name
}

// createTransferType derives the node for one declared type. fieldName is
// the path segment this type sits under; exclude/include are filtered to
// the sub-paths below it before any recursion.
func (b *builder) createTransferType(
	spec types.TypeSpec,
	exclude, include map[string]struct{},
	fieldName, uniqueName string,
	depth int,
) (Node, error) {
	exclude = filterNested(exclude, fieldName)
	include = filterNested(include, fieldName)

	switch spec.Kind {
	case types.KindUnion:
		inners, err := b.innerTypes(spec.Inner, exclude, include, uniqueName, depth)
		if err != nil {
			return nil, err
		}
		return NewUnion(spec.Type, inners), nil

	case types.KindTuple:
		inners, err := b.innerTypes(spec.Inner, exclude, include, uniqueName, depth)
		if err != nil {
			return nil, err
		}
		return NewTuple(spec.Type, inners), nil

	case types.KindCollection:
		elem := types.Scalar(anyType)
		if len(spec.Inner) > 0 {
			elem = spec.Inner[0]
		}
		inner, err := b.createTransferType(elem, exclude, include, "0", uniqueName+"_0", depth)
		if err != nil {
			return nil, err
		}
		return NewCollection(spec.Type, inner), nil

	case types.KindMapping:
		key, value := types.Scalar(anyType), types.Scalar(anyType)
		if len(spec.Inner) > 0 {
			key = spec.Inner[0]
		}
		if len(spec.Inner) > 1 {
			value = spec.Inner[1]
		}
		keyNode, err := b.createTransferType(key, exclude, include, "0", uniqueName+"_0", depth)
		if err != nil {
			return nil, err
		}
		valueNode, err := b.createTransferType(value, exclude, include, "1", uniqueName+"_1", depth)
		if err != nil {
			return nil, err
		}
		return NewMapping(spec.Type, keyNode, valueNode), nil

	case types.KindModel:
		if depth == b.opts.MaxNestedDepth {
			return nil, errDepthLimit
		}
		fields, err := b.parseModel(spec.Base(), exclude, include, depth+1)
		if err != nil {
			return nil, err
		}
		model, schemaName, err := b.opts.Synthesize(uniqueName, fields)
		if err != nil {
			return nil, err
		}
		return Simple{Type: spec.Type, Nested: &NestedInfo{Model: model, SchemaName: schemaName, Fields: fields}}, nil

	default:
		return Simple{Type: spec.Type}, nil
	}
}

// innerTypes builds the children of a tuple or union, using the integer
// position as the path segment for each slot.
func (b *builder) innerTypes(
	specs []types.TypeSpec,
	exclude, include map[string]struct{},
	uniqueName string,
	depth int,
) ([]Node, error) {
	inners := make([]Node, 0, len(specs))
	for i, inner := range specs {
		pos := strconv.Itoa(i)
		node, err := b.createTransferType(inner, exclude, include, pos, uniqueName+"_"+pos, depth)
		if err != nil {
			return nil, err
		}
		inners = append(inners, node)
	}
	return inners, nil
}

// shouldExclude decides whether a field is defined but never transferred.
func (b *builder) shouldExclude(def types.FieldDefinition, exclude, include map[string]struct{}) bool {
	if _, ok := exclude[def.Name]; ok {
		return true
	}
	if len(include) > 0 {
		if _, ok := include[def.Name]; !ok && !hasPathPrefix(include, def.Name) {
			return true
		}
	}
	if def.Mark == types.MarkPrivate {
		return true
	}
	if b.opts.IsDataField && def.Mark == types.MarkReadOnly {
		return true
	}
	return !b.opts.IsDataField && def.Mark == types.MarkWriteOnly
}

// filterNested strips the leading path segment: "field.rest" becomes
// "rest" for segment "field"; paths under other segments are dropped.
func filterNested(set map[string]struct{}, segment string) map[string]struct{} {
	out := make(map[string]struct{})
	prefix := segment + "."
	for path := range set {
		if rest, ok := strings.CutPrefix(path, prefix); ok && rest != "" {
			out[rest] = struct{}{}
		}
	}
	return out
}

func hasPathPrefix(set map[string]struct{}, segment string) bool {
	prefix := segment + "."
	for path := range set {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()
