package main

import (
	"fmt"
	"os"

	"github.com/hengadev/errsx"
	"gopkg.in/yaml.v3"

	"github.com/dtokit/dtokit"
)

// GenConfig is the dtokit.yaml shape: a set of named binding policies
// that application code can load by name.
type GenConfig struct {
	Version  string                       `yaml:"version"`
	Bindings map[string]dtokit.FileConfig `yaml:"bindings"`
}

// LoadConfig reads and parses a binding configuration file.
func LoadConfig(path string) (*GenConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg GenConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks every binding policy, reporting all failures at once.
func (c *GenConfig) Validate() error {
	var errs errsx.Map

	if c.Version != "" && c.Version != "1" {
		errs.Set("version", fmt.Errorf("unsupported version %q", c.Version))
	}
	if len(c.Bindings) == 0 {
		errs.Set("bindings", fmt.Errorf("no bindings declared"))
	}
	for name, binding := range c.Bindings {
		if _, err := binding.Config(); err != nil {
			errs.Set("bindings."+name, err)
		}
	}
	return errs.AsError()
}

const starterConfig = `version: "1"

bindings:
  # One entry per handler binding; load with dtokit.FileConfig.
  person_read:
    exclude:
      - email
    rename_strategy: camel
    max_nested_depth: 1

  person_patch:
    partial: true
    forbid_unknown_fields: true
`
