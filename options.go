package dtokit

import (
	"fmt"

	"github.com/dtokit/dtokit/internal/serialization"
)

// factorySettings collect the cross-binding collaborators of a DTO factory.
type factorySettings struct {
	introspector Introspector
	codecs       *serialization.Registry
	hook         ObservabilityHook
	validator    Validator
}

// Option configures a DTO factory at construction time.
type Option func(*factorySettings) error

// WithIntrospector sets the field introspector used for every model the
// factory touches. Required: there is no default model kind.
func WithIntrospector(intro Introspector) Option {
	return func(s *factorySettings) error {
		if intro == nil {
			return fmt.Errorf("introspector must not be nil")
		}
		s.introspector = intro
		return nil
	}
}

// WithCodec registers an additional codec, or replaces a built-in one for
// the same media type.
func WithCodec(c Codec) Option {
	return func(s *factorySettings) error {
		if c == nil {
			return fmt.Errorf("codec must not be nil")
		}
		s.codecs.Register(c)
		return nil
	}
}

// WithObservability installs a hook receiving bind and transfer callbacks.
func WithObservability(hook ObservabilityHook) Option {
	return func(s *factorySettings) error {
		if hook == nil {
			return fmt.Errorf("observability hook must not be nil")
		}
		s.hook = hook
		return nil
	}
}

// WithValidator runs every decoded domain value through v before it is
// handed to the handler.
func WithValidator(v Validator) Option {
	return func(s *factorySettings) error {
		s.validator = v
		return nil
	}
}
