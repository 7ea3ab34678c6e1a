package dtokit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
		detail  string
	}{
		{
			name:   "default config",
			config: DefaultConfig(),
		},
		{
			name: "full valid config",
			config: Config{
				Exclude:        []string{"email", "address.street"},
				RenameStrategy: RenameCamel,
				MaxNestedDepth: 2,
				Partial:        true,
				Engine:         EngineInterpreted,
			},
		},
		{
			name:    "exclude and include together",
			config:  Config{Exclude: []string{"a"}, Include: []string{"b"}},
			wantErr: true,
			detail:  "mutually exclusive",
		},
		{
			name:    "negative nesting depth",
			config:  Config{MaxNestedDepth: -1},
			wantErr: true,
			detail:  "must be >= 0",
		},
		{
			name:    "unknown rename strategy",
			config:  Config{RenameStrategy: "screaming"},
			wantErr: true,
			detail:  "unknown strategy",
		},
		{
			name:    "unknown engine",
			config:  Config{Engine: "jit"},
			wantErr: true,
			detail:  "unknown engine",
		},
		{
			name:    "empty exclude path",
			config:  Config{Exclude: []string{""}},
			wantErr: true,
			detail:  "empty path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsConfigurationError(err))
			assert.Contains(t, err.Error(), tt.detail)
		})
	}
}

func TestConfigValidateReportsAllProblems(t *testing.T) {
	cfg := Config{MaxNestedDepth: -1, RenameStrategy: "screaming", Engine: "jit"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_nested_depth")
	assert.Contains(t, err.Error(), "rename_strategy")
	assert.Contains(t, err.Error(), "engine")
}

func TestRenameFunc(t *testing.T) {
	tests := []struct {
		strategy RenameStrategy
		in       string
		want     string
	}{
		{RenameUpper, "first_name", "FIRST_NAME"},
		{RenameLower, "FirstName", "firstname"},
		{RenameCamel, "first_name", "firstName"},
		{RenameCamel, "id", "id"},
		{RenamePascal, "first_name", "FirstName"},
		{RenameKebab, "first_name", "first-name"},
		{RenameKebab, "firstName", "first-name"},
	}

	for _, tt := range tests {
		t.Run(string(tt.strategy)+"/"+tt.in, func(t *testing.T) {
			fn := Config{RenameStrategy: tt.strategy}.renameFunc()
			require.NotNil(t, fn)
			assert.Equal(t, tt.want, fn(tt.in))
		})
	}

	t.Run("none is identity", func(t *testing.T) {
		assert.Nil(t, Config{}.renameFunc())
	})

	t.Run("custom function wins", func(t *testing.T) {
		cfg := Config{
			RenameStrategy: RenameCamel,
			RenameFunc:     func(s string) string { return "x_" + s },
		}
		assert.Equal(t, "x_first_name", cfg.renameFunc()("first_name"))
	})
}

func TestSplitWords(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"first_name", []string{"first", "name"}},
		{"firstName", []string{"first", "Name"}},
		{"first-name", []string{"first", "name"}},
		{"name", []string{"name"}},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, splitWords(tt.in), "input %q", tt.in)
	}
}
