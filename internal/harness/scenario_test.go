package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promote/internal/diff"
	"github.com/roach88/promote/internal/ir"
)

func TestLoadScenario_Valid(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "update_and_create.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "update_and_create", s.Name)
	require.Len(t, s.Live, 1)
	assert.Equal(t, "t1", s.Live[0].ID)
	assert.Equal(t, EntrySpec{Source: "s1", Target: "t1"}, s.Mapping["a"])
	require.Len(t, s.Desired, 2)
	assert.Equal(t, map[string]any{"step": "v2"}, s.Desired[0].Definition)
	assert.True(t, s.Apply)
	assert.Nil(t, s.Select)
	assert.Equal(t, Assertion{Type: AssertOperation, Op: diff.OpUpdateFlow, Flow: "s1", Target: "t1"}, s.Assertions[0])
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_EmptySelectionIsKept(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: test
desired: []
select: []
assertions:
  - type: operation_count
    count: 0
`))
	require.NoError(t, err)
	assert.NotNil(t, s.Select)
	assert.Empty(t, s.Select)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "unknown field",
			content: "name: x\nassertion: []\n",
			wantErr: "failed to parse YAML",
		},
		{
			name:    "missing name",
			content: "desired: []\nassertions: [{type: error_count}]\n",
			wantErr: "name is required",
		},
		{
			name:    "flow without id",
			content: "name: x\ndesired: [{display_name: A}]\nassertions: [{type: error_count}]\n",
			wantErr: "desired[0]: id is required",
		},
		{
			name:    "flow without name",
			content: "name: x\nlive: [{id: t1}]\nassertions: [{type: error_count}]\n",
			wantErr: "live[0]: display_name is required",
		},
		{
			name:    "mapping without target",
			content: "name: x\nmapping: {a: {source: s1}}\nassertions: [{type: error_count}]\n",
			wantErr: "mapping[a]: target is required",
		},
		{
			name:    "no assertions",
			content: "name: x\ndesired: []\n",
			wantErr: "at least one assertion is required",
		},
		{
			name:    "unknown assertion",
			content: "name: x\nassertions: [{type: trace_contains}]\n",
			wantErr: `unknown assertion type "trace_contains"`,
		},
		{
			name:    "operation without flow",
			content: "name: x\nassertions: [{type: operation, op: CREATE_FLOW}]\n",
			wantErr: "op and flow are required",
		},
		{
			name:    "order without flows",
			content: "name: x\nassertions: [{type: operation_order}]\n",
			wantErr: "flows list is required",
		},
		{
			name:    "negative count",
			content: "name: x\nassertions: [{type: operation_count, count: -1}]\n",
			wantErr: "count must be non-negative",
		},
		{
			name:    "error without code",
			content: "name: x\nassertions: [{type: error, flow: s1}]\n",
			wantErr: "code and flow are required",
		},
		{
			name:    "live flow without apply",
			content: "name: x\nassertions: [{type: live_flow, key: a}]\n",
			wantErr: "live_flow requires apply",
		},
		{
			name:    "mapping entry without target",
			content: "name: x\napply: true\nassertions: [{type: mapping_entry, key: a}]\n",
			wantErr: "key and target are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestToState_RejectsFloats(t *testing.T) {
	_, err := toState([]FlowSpec{{ID: "s1", DisplayName: "A", Definition: map[string]any{"ratio": 0.5}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flow s1")
}

func TestToMapping_SourceDefaultsToKey(t *testing.T) {
	m := toMapping("p", map[string]EntrySpec{
		"a": {Target: "t1"},
		"b": {Source: "s2", Target: "t2", Deleted: true},
	})
	assert.Equal(t, map[string]ir.MappingEntry{
		"a": {SourceID: "a", TargetID: "t1"},
		"b": {SourceID: "s2", TargetID: "t2", Deleted: true},
	}, m.Flows)
}

func TestLoadScenario_AllTestdataScenariosParse(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, p := range paths {
		_, err := LoadScenario(p)
		assert.NoError(t, err, p)
	}

	// Guard against scenario files that were renamed without their golden.
	for _, p := range paths {
		s, err := LoadScenario(p)
		require.NoError(t, err)
		_, err = os.Stat(filepath.Join("testdata", "golden", s.Name+".golden"))
		assert.NoError(t, err, "golden file for %s", s.Name)
	}
}
