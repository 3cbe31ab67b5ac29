package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crmbdd/internal/criteria"
)

func TestLoadScenario_ResolvesSchemaRelativeToFile(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/contact_lifecycle.yaml")
	require.NoError(t, err)

	assert.Equal(t, "contact_lifecycle", scenario.Name)
	require.Len(t, scenario.Schema, 1)
	assert.Equal(t, filepath.Join("testdata", "schema", "crm.cue"), scenario.Schema[0])
	require.Len(t, scenario.Steps, 4)
	require.Len(t, scenario.Assertions, 4)

	kind, subject := scenario.Steps[0].Kind()
	assert.Equal(t, StepCreate, kind)
	assert.Equal(t, "contact", subject)
	assert.Equal(t, criteria.FromPairs("firstname", "John", "lastname", "Doe"), scenario.Steps[0].Values)
	assert.Equal(t, "alias", scenario.Steps[3].ExpectError)
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := t.TempDir()
	schemaDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(schemaDir, "crm.cue"), []byte("entity: {}\n"), 0o644))

	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: based
schema: [crm.cue]
steps:
  - create: contact
`), 0o644))

	scenario, err := LoadScenarioWithBasePath(path, schemaDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(schemaDir, "crm.cue"), scenario.Schema[0])
}

func TestLoadScenario_MissingSchemaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: missing
schema: [nowhere.cue]
steps:
  - create: contact
`), 0o644))

	_, err := LoadScenario(path)
	assert.ErrorContains(t, err, "schema file not found")
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestParseScenario_RowTable(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: rows
schema: [crm.cue]
steps:
  - create: contact
    alias: John
    values:
      - {property: lastname, value: Doe}
      - {property: lastname, value: Smith}
  - merge: Dup
    into: John
  - assert_notifications: John
    notifications:
      - {level: warning, message: Email address missing}
forms:
  John:
    - {level: warning, message: Email address missing}
`))
	require.NoError(t, err)

	assert.Equal(t, criteria.FromPairs("lastname", "Doe", "lastname", "Smith"), scenario.Steps[0].Values)
	assert.Equal(t, "John", scenario.Steps[1].Into)
	require.Len(t, scenario.Steps[2].Notifications, 1)
	assert.Equal(t, "warning", scenario.Steps[2].Notifications[0].Level)
	require.Len(t, scenario.Forms["John"], 1)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "name: x\nschema: [a.cue]\nsteps: [{create: contact}]\nflow: []\n",
			want: "failed to parse YAML",
		},
		{
			name: "missing name",
			yaml: "schema: [a.cue]\nsteps: [{create: contact}]\n",
			want: "name is required",
		},
		{
			name: "missing schema",
			yaml: "name: x\nsteps: [{create: contact}]\n",
			want: "schema list is required",
		},
		{
			name: "missing steps",
			yaml: "name: x\nschema: [a.cue]\n",
			want: "steps list is required",
		},
		{
			name: "step without kind",
			yaml: "name: x\nschema: [a.cue]\nsteps: [{alias: John}]\n",
			want: "steps[0]: no step kind set",
		},
		{
			name: "step with two kinds",
			yaml: "name: x\nschema: [a.cue]\nsteps: [{create: contact, delete: John}]\n",
			want: "steps[0]: 2 step kinds set",
		},
		{
			name: "related without parent",
			yaml: "name: x\nschema: [a.cue]\nsteps: [{create_related: contact}]\n",
			want: "parent is required for create_related",
		},
		{
			name: "assign without owner",
			yaml: "name: x\nschema: [a.cue]\nsteps: [{assign: John}]\n",
			want: "to is required for assign",
		},
		{
			name: "update without values",
			yaml: "name: x\nschema: [a.cue]\nsteps: [{update: John}]\n",
			want: "values are required for update",
		},
		{
			name: "merge without target",
			yaml: "name: x\nschema: [a.cue]\nsteps: [{merge: Dup}]\n",
			want: "into is required for merge",
		},
		{
			name: "unknown assertion",
			yaml: "name: x\nschema: [a.cue]\nsteps: [{create: contact}]\nassertions: [{type: final_state}]\n",
			want: `unknown assertion type "final_state"`,
		},
		{
			name: "trace_order without actions",
			yaml: "name: x\nschema: [a.cue]\nsteps: [{create: contact}]\nassertions: [{type: trace_order}]\n",
			want: "actions list is required",
		},
		{
			name: "record_count without entity",
			yaml: "name: x\nschema: [a.cue]\nsteps: [{create: contact}]\nassertions: [{type: record_count, count: 1}]\n",
			want: "entity is required for record_count",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
