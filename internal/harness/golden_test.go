package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/crmbdd/internal/command"
	"github.com/roach88/crmbdd/internal/ir"
)

func TestRunWithGolden_ContactLifecycle(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/contact_lifecycle.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestSnapshot_OmitsMessagesKeepsKind(t *testing.T) {
	result := NewResult()
	result.Trace = []command.Record{
		{Seq: 1, Command: "DeleteRecord", Args: map[string]any{"alias": "Ghost"}, Error: `alias "Ghost" is not bound`, Kind: command.KindAlias},
		{Seq: 2, Command: "GetRecords", Result: map[string]any{"count": 0}},
	}

	data, err := MarshalSnapshot("snap", result)
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"snap","trace":[{"args":{"alias":"Ghost"},"command":"DeleteRecord","kind":"alias","seq":1},{"command":"GetRecords","result":{"count":0},"seq":2}]}`,
		string(data))
}

func TestSnapshot_DigestMatchesCanonicalBytes(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/contact_lifecycle.yaml")
	require.NoError(t, err)
	result, err := Run(t.Context(), scenario)
	require.NoError(t, err)

	want, err := ir.Digest(ir.DomainTrace, Snapshot(scenario.Name, result))
	require.NoError(t, err)
	assert.Equal(t, want, result.Digest)
}

func TestCompareGolden(t *testing.T) {
	dir := t.TempDir()
	result := NewResult()
	result.Trace = []command.Record{{Seq: 1, Command: "WaitForAsyncJobs", Args: map[string]any{"alias": "Acme"}}}

	err := CompareGolden(dir, "cmp", result)
	assert.ErrorContains(t, err, "read golden file")

	require.NoError(t, WriteGolden(dir, "cmp", result))
	assert.FileExists(t, filepath.Join(dir, "cmp.golden"))
	assert.NoError(t, CompareGolden(dir, "cmp", result))

	result.Trace[0].Args["alias"] = "Other"
	err = CompareGolden(dir, "cmp", result)
	var mismatch *GoldenMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, GoldenPath(dir, "cmp"), mismatch.Path)
	assert.Contains(t, string(mismatch.Expected), `"alias":"Acme"`)
	assert.Contains(t, string(mismatch.Actual), `"alias":"Other"`)
}

func TestWriteGolden_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "golden")
	require.NoError(t, WriteGolden(dir, "new", NewResult()))

	data, err := os.ReadFile(GoldenPath(dir, "new"))
	require.NoError(t, err)
	assert.Equal(t, `{"scenario_name":"new","trace":[]}`, string(data))
}
