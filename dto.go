package dtokit

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/hengadev/errsx"

	"github.com/dtokit/dtokit/internal/engine"
	"github.com/dtokit/dtokit/internal/model"
	"github.com/dtokit/dtokit/internal/serialization"
)

// DTO is the transfer factory for one domain model type. A factory starts
// with no bindings; OnRegistration transitions each (handler, direction)
// key from Unbound to Bound exactly once, and every later call is a cache
// hit. Bound state is immutable, so concurrent requests share it freely.
type DTO[T any] struct {
	config   Config
	settings factorySettings
	model    reflect.Type
	dataType reflect.Type

	// mu guards the Unbound to Bound transition only. Reads after a
	// successful bind go through the map without further coordination.
	mu       sync.Mutex
	bindings map[bindingKey]*binding
}

// New builds a DTO factory for the domain model T under the given policy.
// The root model must be a plain struct type: interface roots (union types
// as the bound model) are not supported and rejected here, at
// construction time.
func New[T any](cfg Config, opts ...Option) (*DTO[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	modelType := reflect.TypeFor[T]()
	switch modelType.Kind() {
	case reflect.Struct:
	case reflect.Interface:
		return nil, NewInvalidConfigurationError(
			fmt.Sprintf("union type %s cannot be a bound model", modelType))
	default:
		return nil, NewInvalidConfigurationError(
			fmt.Sprintf("bound model must be a struct type, got %s", modelType))
	}

	settings := factorySettings{
		codecs: serialization.NewRegistry(),
		hook:   NoOpObservabilityHook{},
	}
	for _, opt := range opts {
		if err := opt(&settings); err != nil {
			return nil, NewInvalidConfigurationError(err.Error())
		}
	}
	if settings.introspector == nil {
		return nil, NewInvalidConfigurationError("an introspector is required; use WithIntrospector")
	}

	return &DTO[T]{
		config:   cfg,
		settings: settings,
		model:    modelType,
		dataType: reflect.TypeFor[Data[T]](),
		bindings: make(map[bindingKey]*binding),
	}, nil
}

// OnRegistration binds the factory to one handler in one direction. The
// handler's declared annotation must be T, *T, a slice of either, or
// Data[T]. Incompatible annotations are configuration errors raised here,
// never at request time.
func (d *DTO[T]) OnRegistration(ctx context.Context, handlerID string, direction Direction, annotation reflect.Type) error {
	key := bindingKey{direction: direction, handlerID: handlerID}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, bound := d.bindings[key]; bound {
		return nil
	}

	start := time.Now()
	b, err := newBinding(d.config, d.settings.introspector, d.model, key, annotation, d.dataType)
	d.settings.hook.OnBind(ctx, d.model.Name(), direction, time.Since(start), err)
	if err != nil {
		return err
	}
	d.bindings[key] = b
	return nil
}

// DecodeBytes turns a wire payload into a domain value (or a Data[T] when
// the handler asked for one). Validation failures report every offending
// field in one pass.
func (d *DTO[T]) DecodeBytes(ctx context.Context, handlerID string, mediaType string, data []byte) (any, error) {
	b, err := d.bound(bindingKey{direction: DirectionData, handlerID: handlerID})
	if err != nil {
		return nil, err
	}
	codec, err := d.settings.codecs.Lookup(mediaType)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := d.decodeWith(b, codec, data)
	d.settings.hook.OnTransfer(ctx, "decode_bytes", d.model.Name(), time.Since(start), err)
	return out, err
}

// decodeWith unmarshals the payload into builtins form before transfer.
// Field presence drives required checks and declared defaults, and a typed
// unmarshal cannot tell an absent field from its zero value, so every byte
// decode goes through the builtins path.
func (d *DTO[T]) decodeWith(b *binding, codec Codec, data []byte) (any, error) {
	var raw any
	if err := codec.Unmarshal(data, &raw); err != nil {
		return nil, d.payloadError(err)
	}
	if b.wrapData {
		builtins, err := b.engine.ToBuiltins(raw)
		if err != nil {
			return nil, d.transferError(err)
		}
		return &Data[T]{builtins: builtins, engine: b.engine, rootSlice: b.rootSlice}, nil
	}
	return d.finishDecode(b, raw)
}

// DecodeBuiltins turns an already-parsed value tree (query parameters,
// form data, test fixtures) into a domain value, through the same schema
// as DecodeBytes.
func (d *DTO[T]) DecodeBuiltins(ctx context.Context, handlerID string, value any) (any, error) {
	b, err := d.bound(bindingKey{direction: DirectionData, handlerID: handlerID})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var out any
	if b.wrapData {
		builtins, berr := b.engine.ToBuiltins(value)
		if berr != nil {
			err = d.transferError(berr)
		} else {
			out = &Data[T]{builtins: builtins, engine: b.engine, rootSlice: b.rootSlice}
		}
	} else {
		out, err = d.finishDecode(b, value)
	}
	d.settings.hook.OnTransfer(ctx, "decode_builtins", d.model.Name(), time.Since(start), err)
	return out, err
}

func (d *DTO[T]) finishDecode(b *binding, src any) (any, error) {
	out, err := b.engine.Decode(src, engine.DecodeOptions{})
	if err != nil {
		return nil, d.transferError(err)
	}
	if d.settings.validator != nil {
		if err := d.settings.validator.ValidateDecoded(out); err != nil {
			return nil, d.transferError(err)
		}
	}
	return out, nil
}

// Encode turns a domain value (or collection of them) into transfer model
// instance(s) ready for the outer framework to serialize. Excluded fields
// are never read from the source. With a WrapperAttribute configured, the
// domain value is pulled out of the handler's envelope under that name and
// the encoded payload is nested back under the same key.
func (d *DTO[T]) Encode(ctx context.Context, handlerID string, value any) (any, error) {
	b, err := d.bound(bindingKey{direction: DirectionReturn, handlerID: handlerID})
	if err != nil {
		return nil, err
	}
	if d.config.WrapperAttribute != "" {
		if inner, ok := unwrapAttribute(value, d.config.WrapperAttribute); ok {
			value = inner
		}
	}

	start := time.Now()
	out, err := b.engine.Encode(value)
	d.settings.hook.OnTransfer(ctx, "encode", d.model.Name(), time.Since(start), err)
	if err != nil {
		return nil, d.transferError(err)
	}
	if d.config.WrapperAttribute != "" {
		return map[string]any{d.config.WrapperAttribute: out}, nil
	}
	return out, nil
}

// EncodeBytes encodes a domain value straight to wire bytes for the given
// media type.
func (d *DTO[T]) EncodeBytes(ctx context.Context, handlerID string, mediaType string, value any) ([]byte, error) {
	codec, err := d.settings.codecs.Lookup(mediaType)
	if err != nil {
		return nil, err
	}
	out, err := d.Encode(ctx, handlerID, value)
	if err != nil {
		return nil, err
	}
	return codec.Marshal(out)
}

// Bound reports whether a handler is already bound in a direction.
func (d *DTO[T]) Bound(handlerID string, direction Direction) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.bindings[bindingKey{direction: direction, handlerID: handlerID}]
	return ok
}

// ResetBindings drops all Bound state. Test teardown only; in-flight
// requests holding a binding keep working since bindings are immutable.
func (d *DTO[T]) ResetBindings() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bindings = make(map[bindingKey]*binding)
}

// ResetTransferModelNames clears the process-wide transfer model name
// registry. Test teardown only.
func ResetTransferModelNames() {
	model.ResetNames()
}

func (d *DTO[T]) bound(key bindingKey) (*binding, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.bindings[key]
	if !ok {
		return nil, NewInvalidConfigurationError(
			fmt.Sprintf("handler '%s' is not bound for direction %s", key.handlerID, key.direction))
	}
	return b, nil
}

// unwrapAttribute pulls the wrapped payload out of an envelope value: a
// map key, or a struct field matched by name or json tag.
func unwrapAttribute(value any, attr string) (any, bool) {
	if m, ok := value.(map[string]any); ok {
		inner, ok := m[attr]
		return inner, ok
	}
	rv := reflect.ValueOf(value)
	for rv.IsValid() && rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if !rv.IsValid() || rv.Kind() != reflect.Struct {
		return nil, false
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		tag, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if field.Name == attr || tag == attr {
			return rv.Field(i).Interface(), true
		}
	}
	return nil, false
}

// payloadError maps codec failures to the validation taxonomy: the bytes
// were readable, the content was not.
func (d *DTO[T]) payloadError(err error) error {
	var fields errsx.Map
	fields.Set("body", err)
	return NewValidationError(fields)
}

// transferError maps engine failures, preserving per-field detail when
// the engine accumulated any.
func (d *DTO[T]) transferError(err error) error {
	if fields, ok := err.(errsx.Map); ok {
		return NewValidationError(fields)
	}
	var fields errsx.Map
	fields.Set("body", err)
	return NewValidationError(fields)
}
