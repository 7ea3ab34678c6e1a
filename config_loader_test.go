package dtokit_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtokit/dtokit"
)

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Run("unset variables keep defaults", func(t *testing.T) {
		cfg, err := dtokit.LoadConfigFromEnvironment()
		require.NoError(t, err)
		assert.Equal(t, dtokit.DefaultConfig(), cfg)
	})

	t.Run("reads every variable", func(t *testing.T) {
		t.Setenv(dtokit.EnvExclude, "email, address.street")
		t.Setenv(dtokit.EnvRenameStrategy, "camel")
		t.Setenv(dtokit.EnvMaxNestedDepth, "3")
		t.Setenv(dtokit.EnvPartial, "true")
		t.Setenv(dtokit.EnvForbidUnknown, "1")
		t.Setenv(dtokit.EnvWrapperAttribute, "data")
		t.Setenv(dtokit.EnvEngine, "interpreted")

		cfg, err := dtokit.LoadConfigFromEnvironment()
		require.NoError(t, err)
		assert.Equal(t, []string{"email", "address.street"}, cfg.Exclude)
		assert.Equal(t, dtokit.RenameCamel, cfg.RenameStrategy)
		assert.Equal(t, 3, cfg.MaxNestedDepth)
		assert.True(t, cfg.Partial)
		assert.True(t, cfg.ForbidUnknownFields)
		assert.Equal(t, "data", cfg.WrapperAttribute)
		assert.Equal(t, dtokit.EngineInterpreted, cfg.Engine)
	})

	t.Run("rejects a non-integer depth", func(t *testing.T) {
		t.Setenv(dtokit.EnvMaxNestedDepth, "deep")
		_, err := dtokit.LoadConfigFromEnvironment()
		require.Error(t, err)
		assert.True(t, dtokit.IsConfigurationError(err))
	})

	t.Run("validates the result", func(t *testing.T) {
		t.Setenv(dtokit.EnvRenameStrategy, "screaming")
		_, err := dtokit.LoadConfigFromEnvironment()
		require.Error(t, err)
		assert.True(t, dtokit.IsConfigurationError(err))
	})
}

func TestLoadConfigFromFile(t *testing.T) {
	writeConfig := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "dtokit.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	t.Run("full policy", func(t *testing.T) {
		path := writeConfig(t, `
exclude:
  - email
rename_strategy: camel
rename_fields:
  first_name: givenName
max_nested_depth: 2
partial: true
forbid_unknown_fields: true
engine: compiled
`)
		cfg, err := dtokit.LoadConfigFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"email"}, cfg.Exclude)
		assert.Equal(t, dtokit.RenameCamel, cfg.RenameStrategy)
		assert.Equal(t, map[string]string{"first_name": "givenName"}, cfg.RenameFields)
		assert.Equal(t, 2, cfg.MaxNestedDepth)
		assert.True(t, cfg.Partial)
		assert.True(t, cfg.ForbidUnknownFields)
		assert.Equal(t, dtokit.EngineCompiled, cfg.Engine)
	})

	t.Run("omitted depth keeps the default", func(t *testing.T) {
		path := writeConfig(t, "partial: true\n")
		cfg, err := dtokit.LoadConfigFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, dtokit.DefaultConfig().MaxNestedDepth, cfg.MaxNestedDepth)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := dtokit.LoadConfigFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.True(t, dtokit.IsConfigurationError(err))
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfig(t, "exclude: [\n")
		_, err := dtokit.LoadConfigFromFile(path)
		require.Error(t, err)
		assert.True(t, dtokit.IsConfigurationError(err))
	})

	t.Run("invalid policy", func(t *testing.T) {
		path := writeConfig(t, "exclude: [a]\ninclude: [b]\n")
		_, err := dtokit.LoadConfigFromFile(path)
		require.Error(t, err)
		assert.True(t, dtokit.IsConfigurationError(err))
	})
}
