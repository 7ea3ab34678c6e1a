package dtokit

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hengadev/errsx"

	"github.com/dtokit/dtokit/internal/engine"
)

// RenameStrategy names a built-in wire renaming rule applied to every
// field without an explicit rename.
type RenameStrategy string

const (
	RenameNone   RenameStrategy = ""
	RenameUpper  RenameStrategy = "upper"
	RenameLower  RenameStrategy = "lower"
	RenameCamel  RenameStrategy = "camel"
	RenamePascal RenameStrategy = "pascal"
	RenameKebab  RenameStrategy = "kebab"
)

// EngineStrategy selects the transfer engine implementation.
type EngineStrategy = engine.Strategy

const (
	// EngineCompiled builds specialized transfer closures at bind time.
	// This is the default.
	EngineCompiled = engine.StrategyCompiled
	// EngineInterpreted walks the transfer schema on every call. Slower,
	// but useful as a differential check against the compiled engine.
	EngineInterpreted = engine.StrategyInterpreted
)

// Config declares the per-binding transfer policy. A Config is constructed
// once per DTO binding and never mutated afterwards.
type Config struct {
	// Exclude lists dotted field paths never transferred. Collection,
	// tuple and union elements use integer path segments, so
	// "inventory.0.cost" reaches into the element model of a collection
	// field. Mutually exclusive with Include.
	Exclude []string

	// Include, when non-empty, limits transfer to the listed dotted paths.
	Include []string

	// RenameFields maps domain field names to explicit wire names. An
	// explicit rename always wins over RenameStrategy.
	RenameFields map[string]string

	// RenameStrategy applies a naming rule to every field without an
	// explicit rename.
	RenameStrategy RenameStrategy

	// RenameFunc overrides RenameStrategy with a custom rule.
	RenameFunc func(string) string

	// MaxNestedDepth bounds recursion into nested models. Fields nesting
	// beyond the limit are dropped from the schema entirely.
	MaxNestedDepth int

	// Partial allows wire payloads to omit fields on decode. Omitted
	// fields stay unset rather than defaulted.
	Partial bool

	// UnderscorePrivate force-marks fields whose logical name starts with
	// an underscore as private unless they carry an explicit mark.
	UnderscorePrivate bool

	// ForbidUnknownFields rejects wire payloads carrying keys the schema
	// does not know.
	ForbidUnknownFields bool

	// WrapperAttribute, when set, unwraps the return value from the named
	// attribute of the handler's envelope before encoding, and nests the
	// encoded payload under the same key.
	WrapperAttribute string

	// Engine selects the transfer engine implementation. Empty means
	// EngineCompiled.
	Engine EngineStrategy
}

// DefaultConfig returns the policy used when a binding declares none.
func DefaultConfig() Config {
	return Config{MaxNestedDepth: 1}
}

// Validate rejects inconsistent configurations eagerly, before any schema
// is built. All problems are reported at once.
func (c Config) Validate() error {
	var errs errsx.Map

	if len(c.Exclude) > 0 && len(c.Include) > 0 {
		errs.Set("exclude", fmt.Errorf("exclude and include are mutually exclusive"))
	}
	if c.MaxNestedDepth < 0 {
		errs.Set("max_nested_depth", fmt.Errorf("must be >= 0, got %d", c.MaxNestedDepth))
	}
	switch c.RenameStrategy {
	case RenameNone, RenameUpper, RenameLower, RenameCamel, RenamePascal, RenameKebab:
	default:
		errs.Set("rename_strategy", fmt.Errorf("unknown strategy %q", c.RenameStrategy))
	}
	switch c.Engine {
	case EngineStrategy(""), EngineCompiled, EngineInterpreted:
	default:
		errs.Set("engine", fmt.Errorf("unknown engine strategy %q", c.Engine))
	}
	for _, path := range c.Exclude {
		if path == "" {
			errs.Set("exclude", fmt.Errorf("empty path"))
		}
	}
	for _, path := range c.Include {
		if path == "" {
			errs.Set("include", fmt.Errorf("empty path"))
		}
	}

	if !errs.IsEmpty() {
		return NewInvalidConfigurationError(errs.AsError().Error())
	}
	return nil
}

// renameFunc resolves the effective rename rule, or nil for identity.
func (c Config) renameFunc() func(string) string {
	if c.RenameFunc != nil {
		return c.RenameFunc
	}
	switch c.RenameStrategy {
	case RenameUpper:
		return strings.ToUpper
	case RenameLower:
		return strings.ToLower
	case RenameCamel:
		return camelize
	case RenamePascal:
		return pascalize
	case RenameKebab:
		return kebabize
	}
	return nil
}

// camelize turns snake_case into camelCase: "first_name" -> "firstName".
func camelize(name string) string {
	parts := splitWords(name)
	if len(parts) == 0 {
		return name
	}
	var b strings.Builder
	b.WriteString(strings.ToLower(parts[0]))
	for _, part := range parts[1:] {
		b.WriteString(titleWord(part))
	}
	return b.String()
}

// pascalize turns snake_case into PascalCase: "first_name" -> "FirstName".
func pascalize(name string) string {
	parts := splitWords(name)
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(titleWord(part))
	}
	if b.Len() == 0 {
		return name
	}
	return b.String()
}

// kebabize turns snake_case into kebab-case: "first_name" -> "first-name".
func kebabize(name string) string {
	parts := splitWords(name)
	if len(parts) == 0 {
		return name
	}
	for i, part := range parts {
		parts[i] = strings.ToLower(part)
	}
	return strings.Join(parts, "-")
}

// splitWords breaks a field name on underscores and lower-to-upper case
// boundaries, so both "first_name" and "firstName" yield [first name].
func splitWords(name string) []string {
	var words []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	var prev rune
	for _, r := range name {
		switch {
		case r == '_' || r == '-':
			flush()
		case unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			flush()
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
		prev = r
	}
	flush()
	return words
}

func titleWord(w string) string {
	if w == "" {
		return w
	}
	return strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
}
