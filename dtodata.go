package dtokit

import (
	"fmt"
	"strings"

	"github.com/hengadev/errsx"

	"github.com/dtokit/dtokit/internal/engine"
)

// Data wraps a decoded payload in builtins form, keyed by domain field
// names, together with the engine that produced it. Handlers annotate
// with Data[T] when they need to inspect or amend the payload before
// committing to a domain value, typically to inject server-assigned
// fields.
//
// Override keys use double-underscore nesting: "address__street" sets key
// "street" inside the "address" object. Created fresh per request and
// discarded when the handler returns.
type Data[T any] struct {
	builtins  any
	engine    engine.Engine
	rootSlice bool
}

// AsBuiltins returns the payload as a plain map keyed by domain field
// names. The map is shared, not copied; treat it as read-only.
func (d *Data[T]) AsBuiltins() (map[string]any, error) {
	m, ok := d.builtins.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("payload is a collection, not a single object")
	}
	return m, nil
}

// CreateInstance builds a domain value from the payload plus overrides.
// Overrides win over payload values.
func (d *Data[T]) CreateInstance(overrides map[string]any) (T, error) {
	var zero T
	if d.rootSlice {
		return zero, fmt.Errorf("payload is a collection; decode it per element")
	}
	src, err := d.withOverrides(overrides)
	if err != nil {
		return zero, err
	}
	out, err := d.engine.Decode(src, engine.DecodeOptions{DomainNames: true})
	if err != nil {
		if fields, ok := err.(errsx.Map); ok {
			return zero, NewValidationError(fields)
		}
		return zero, err
	}
	return out.(T), nil
}

// UpdateInstance applies the payload plus overrides onto an existing
// domain value in place. Fields absent from both are left untouched,
// which makes this the PATCH building block.
func (d *Data[T]) UpdateInstance(target *T, overrides map[string]any) (*T, error) {
	if target == nil {
		return nil, fmt.Errorf("update target must not be nil")
	}
	if d.rootSlice {
		return nil, fmt.Errorf("payload is a collection; decode it per element")
	}
	src, err := d.withOverrides(overrides)
	if err != nil {
		return nil, err
	}
	if _, err := d.engine.Decode(src, engine.DecodeOptions{DomainNames: true, Target: target}); err != nil {
		if fields, ok := err.(errsx.Map); ok {
			return nil, NewValidationError(fields)
		}
		return nil, err
	}
	return target, nil
}

// withOverrides copies the builtins map and applies dotted-path overrides.
func (d *Data[T]) withOverrides(overrides map[string]any) (map[string]any, error) {
	base, err := d.AsBuiltins()
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for key, value := range overrides {
		if err := setNested(out, strings.Split(key, "__"), value); err != nil {
			return nil, fmt.Errorf("override %q: %w", key, err)
		}
	}
	return out, nil
}

// setNested walks (and copies) nested maps along the segment path and
// sets the final key.
func setNested(m map[string]any, segments []string, value any) error {
	if len(segments) == 1 {
		m[segments[0]] = value
		return nil
	}
	head := segments[0]
	child := make(map[string]any)
	if existing, ok := m[head]; ok {
		existingMap, ok := existing.(map[string]any)
		if !ok {
			return fmt.Errorf("segment %q is not an object", head)
		}
		for k, v := range existingMap {
			child[k] = v
		}
	}
	m[head] = child
	return setNested(child, segments[1:], value)
}
