package dtokit

import (
	"fmt"
	"reflect"

	"github.com/dtokit/dtokit/internal/engine"
	"github.com/dtokit/dtokit/internal/model"
	"github.com/dtokit/dtokit/internal/schema"
	"github.com/dtokit/dtokit/internal/types"
)

// bindingKey identifies one Bound state: a handler bound in one direction.
type bindingKey struct {
	direction types.Direction
	handlerID string
}

// binding is the immutable Bound state for one handler and direction:
// the parsed schema, the synthesized transfer model, and the engine built
// over both. Safe for concurrent use once constructed.
type binding struct {
	direction  types.Direction
	schemaName string
	fields     []schema.TransferField
	engine     engine.Engine
	rootSlice  bool
	// wrapData marks handlers annotated with Data[T]: decoded payloads
	// stay in builtins form inside a Data wrapper instead of being
	// transferred straight to the domain model.
	wrapData bool
}

func directionSuffix(direction types.Direction) string {
	if direction == types.DirectionData {
		return "RequestBody"
	}
	return "ResponseBody"
}

// analyzeAnnotation checks the handler's declared annotation against the
// bound model type. Accepted shapes: the model itself, a pointer to it, a
// homogeneous slice of either, or the factory's Data wrapper.
func analyzeAnnotation(annotation, modelType, dataType reflect.Type) (rootSlice, wrapData bool, err error) {
	if annotation == nil {
		return false, false, NewInvalidAnnotationError(nil, "handler declares no annotation")
	}
	t := annotation
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if dataType != nil && t == dataType {
		return false, true, nil
	}
	if t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		elem := t.Elem()
		for elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		if elem != modelType {
			return false, false, NewInvalidAnnotationError(annotation,
				fmt.Sprintf("collection element %s is not the bound model %s", elem, modelType))
		}
		return true, false, nil
	}
	if t != modelType {
		return false, false, NewInvalidAnnotationError(annotation,
			fmt.Sprintf("%s is not the bound model %s", t, modelType))
	}
	return false, false, nil
}

// newBinding performs the Unbound to Bound transition for one key: parse
// the schema, synthesize transfer models, reserve their names, and build
// the engine.
func newBinding(
	cfg Config,
	intro Introspector,
	modelType reflect.Type,
	key bindingKey,
	annotation reflect.Type,
	dataType reflect.Type,
) (*binding, error) {
	rootSlice, wrapData, err := analyzeAnnotation(annotation, modelType, dataType)
	if err != nil {
		return nil, err
	}

	suffix := directionSuffix(key.direction)
	longPrefix := pascalize(key.handlerID)

	synthesize := func(uniqueName string, fields []schema.TransferField) (reflect.Type, string, error) {
		t, err := model.Synthesize(fields)
		if err != nil {
			return nil, "", NewConstructionError(uniqueName, err)
		}
		name := model.ReserveName(uniqueName, longPrefix+uniqueName)
		return t, name, nil
	}

	fields, err := schema.Parse(intro, modelType, schema.Options{
		Exclude:           pathSet(cfg.Exclude),
		Include:           pathSet(cfg.Include),
		RenameFields:      cfg.RenameFields,
		RenameFunc:        cfg.renameFunc(),
		MaxNestedDepth:    cfg.MaxNestedDepth,
		Partial:           cfg.Partial,
		UnderscorePrivate: cfg.UnderscorePrivate,
		IsDataField:       key.direction == types.DirectionData,
		Synthesize:        synthesize,
	})
	if err != nil {
		return nil, NewInvalidConfigurationError(err.Error())
	}

	transfer, err := model.Synthesize(fields)
	if err != nil {
		return nil, NewConstructionError(modelType.Name(), err)
	}
	schemaName := model.ReserveName(
		modelType.Name()+suffix,
		longPrefix+modelType.Name()+suffix,
	)

	eng, err := engine.New(cfg.Engine, engine.Spec{
		Fields:        fields,
		Model:         modelType,
		Transfer:      transfer,
		RootSlice:     rootSlice,
		Partial:       cfg.Partial,
		ForbidUnknown: cfg.ForbidUnknownFields,
	})
	if err != nil {
		return nil, NewInvalidConfigurationError(err.Error())
	}

	return &binding{
		direction:  key.direction,
		schemaName: schemaName,
		fields:     fields,
		engine:     eng,
		rootSlice:  rootSlice,
		wrapData:   wrapData,
	}, nil
}

func pathSet(paths []string) map[string]struct{} {
	if len(paths) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		out[p] = struct{}{}
	}
	return out
}
