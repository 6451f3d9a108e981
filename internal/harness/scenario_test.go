package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes content to dir/test.yaml next to a copy of the
// charakter query and returns the scenario path.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()

	query, err := os.ReadFile(filepath.Join("testdata", "queries", "charakter.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "charakter.yaml"), query, 0644))

	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
query: charakter.yaml
steps:
  - kind: cross
    tables: [Charakter, Auftritt]
  - kind: "on"
  - kind: select
assertions:
  - type: round_trip
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "charakter.yaml"), scenario.Query)
	assert.Len(t, scenario.Steps, 3)
	assert.Equal(t, []string{"Charakter", "Auftritt"}, scenario.Steps[0].Tables)
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_Testdata(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			require.NoError(t, err)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("/nonexistent/scenario.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "unknown field",
			content: `
name: typo
description: "d"
query: charakter.yaml
step:
  - kind: select
`,
			wantErr: "failed to parse YAML",
		},
		{
			name: "missing name",
			content: `
description: "d"
query: charakter.yaml
steps:
  - kind: select
`,
			wantErr: `Scenario.Name: failed "required" check`,
		},
		{
			name: "missing query",
			content: `
name: q
description: "d"
steps:
  - kind: select
`,
			wantErr: `Scenario.Query: failed "required_without" check`,
		},
		{
			name: "query file and inline tree",
			content: `
name: q
description: "d"
query: charakter.yaml
query_tree: {language: sql, name: querySelect}
steps:
  - kind: select
`,
			wantErr: `Scenario.Query: failed "excluded_with" check`,
		},
		{
			name: "no steps",
			content: `
name: q
description: "d"
query: charakter.yaml
`,
			wantErr: `Scenario.Steps: failed "required" check`,
		},
		{
			name: "bad kind",
			content: `
name: q
description: "d"
query: charakter.yaml
steps:
  - kind: having
`,
			wantErr: `Scenario.Steps[0].Kind: failed "oneof" check`,
		},
		{
			name: "tables not a pair",
			content: `
name: q
description: "d"
query: charakter.yaml
steps:
  - kind: cross
    tables: [Charakter]
`,
			wantErr: `Scenario.Steps[0].Tables: failed "len" check`,
		},
		{
			name: "query file not found",
			content: `
name: q
description: "d"
query: missing.yaml
steps:
  - kind: select
`,
			wantErr: "query file not found",
		},
		{
			name: "row count without sample data",
			content: `
name: q
description: "d"
query: charakter.yaml
steps:
  - kind: select
assertions:
  - type: row_count
    count: 1
`,
			wantErr: "requires sample_data",
		},
		{
			name: "row count step out of range",
			content: `
name: q
description: "d"
query: charakter.yaml
sample_data: "CREATE TABLE t (x);"
steps:
  - kind: select
assertions:
  - type: row_count
    step: 4
    count: 1
`,
			wantErr: "out of range",
		},
		{
			name: "group count on select",
			content: `
name: q
description: "d"
query: charakter.yaml
sample_data: "CREATE TABLE t (x);"
steps:
  - kind: select
assertions:
  - type: group_count
    count: 1
`,
			wantErr: "needs a groupBy step",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
