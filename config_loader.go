package dtokit

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variable names for LoadConfigFromEnvironment.
const (
	EnvExclude           = "DTOKIT_EXCLUDE"
	EnvInclude           = "DTOKIT_INCLUDE"
	EnvRenameStrategy    = "DTOKIT_RENAME_STRATEGY"
	EnvMaxNestedDepth    = "DTOKIT_MAX_NESTED_DEPTH"
	EnvPartial           = "DTOKIT_PARTIAL"
	EnvUnderscorePrivate = "DTOKIT_UNDERSCORE_PRIVATE"
	EnvForbidUnknown     = "DTOKIT_FORBID_UNKNOWN_FIELDS"
	EnvWrapperAttribute  = "DTOKIT_WRAPPER_ATTRIBUTE"
	EnvEngine            = "DTOKIT_ENGINE"
)

// LoadConfigFromEnvironment reads the transfer policy from DTOKIT_*
// environment variables, following the 12-factor methodology. Unset
// variables keep their DefaultConfig values.
//
// Example:
//
//	// export DTOKIT_EXCLUDE="email,address.street"
//	// export DTOKIT_RENAME_STRATEGY="camel"
//	// export DTOKIT_MAX_NESTED_DEPTH="2"
//
//	cfg, err := dtokit.LoadConfigFromEnvironment()
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigFromEnvironment() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv(EnvExclude); v != "" {
		cfg.Exclude = splitList(v)
	}
	if v := os.Getenv(EnvInclude); v != "" {
		cfg.Include = splitList(v)
	}
	if v := os.Getenv(EnvRenameStrategy); v != "" {
		cfg.RenameStrategy = RenameStrategy(v)
	}
	if v := os.Getenv(EnvMaxNestedDepth); v != "" {
		depth, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, NewInvalidConfigurationError(
				fmt.Sprintf("%s must be an integer, got %q", EnvMaxNestedDepth, v))
		}
		cfg.MaxNestedDepth = depth
	}
	if v := os.Getenv(EnvPartial); v != "" {
		cfg.Partial = parseBool(v)
	}
	if v := os.Getenv(EnvUnderscorePrivate); v != "" {
		cfg.UnderscorePrivate = parseBool(v)
	}
	if v := os.Getenv(EnvForbidUnknown); v != "" {
		cfg.ForbidUnknownFields = parseBool(v)
	}
	if v := os.Getenv(EnvWrapperAttribute); v != "" {
		cfg.WrapperAttribute = v
	}
	if v := os.Getenv(EnvEngine); v != "" {
		cfg.Engine = EngineStrategy(v)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FileConfig is the YAML shape of one transfer policy, as consumed by
// LoadConfigFromFile and the dtokit-gen tool.
type FileConfig struct {
	Exclude             []string          `yaml:"exclude"`
	Include             []string          `yaml:"include"`
	RenameFields        map[string]string `yaml:"rename_fields"`
	RenameStrategy      string            `yaml:"rename_strategy"`
	MaxNestedDepth      *int              `yaml:"max_nested_depth"`
	Partial             bool              `yaml:"partial"`
	UnderscorePrivate   bool              `yaml:"underscore_private"`
	ForbidUnknownFields bool              `yaml:"forbid_unknown_fields"`
	WrapperAttribute    string            `yaml:"wrapper_attribute"`
	Engine              string            `yaml:"engine"`
}

// Config converts the YAML shape into a validated Config.
func (f FileConfig) Config() (Config, error) {
	cfg := DefaultConfig()
	cfg.Exclude = f.Exclude
	cfg.Include = f.Include
	cfg.RenameFields = f.RenameFields
	cfg.RenameStrategy = RenameStrategy(f.RenameStrategy)
	if f.MaxNestedDepth != nil {
		cfg.MaxNestedDepth = *f.MaxNestedDepth
	}
	cfg.Partial = f.Partial
	cfg.UnderscorePrivate = f.UnderscorePrivate
	cfg.ForbidUnknownFields = f.ForbidUnknownFields
	cfg.WrapperAttribute = f.WrapperAttribute
	cfg.Engine = EngineStrategy(f.Engine)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigFromFile reads a single transfer policy from a YAML file.
func LoadConfigFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, NewInvalidConfigurationError(err.Error())
	}
	var f FileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Config{}, NewInvalidConfigurationError(
			fmt.Sprintf("parse %s: %v", path, err))
	}
	return f.Config()
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseBool(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}
