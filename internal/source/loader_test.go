package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promote/internal/ir"
)

func TestLoadDir_AllFormats(t *testing.T) {
	state, err := LoadDir("testdata/repo")
	require.NoError(t, err)

	require.Len(t, state.Flows, 3)

	approve := state.Flows[0]
	assert.Equal(t, "approve-order", approve.ID)
	assert.Equal(t, "approve-order", approve.ExternalID)
	assert.Equal(t, "Approve order", approve.Version.DisplayName)
	assert.Equal(t, []string{"notify"}, approve.Version.References)
	assert.Equal(t, ir.Int(30), approve.Version.Definition["timeout_seconds"])
	assert.Equal(t, ir.Array{
		ir.Object{"action": ir.String("check_stock")},
		ir.Object{"action": ir.String("call_flow"), "flow": ir.String("notify")},
	}, approve.Version.Definition["steps"])

	invoice := state.Flows[1]
	assert.Equal(t, "billing/invoice", invoice.ID)
	assert.Equal(t, "invoice", invoice.ExternalID)
	assert.Equal(t, ir.Object{
		"retries":  ir.Int(2),
		"channel":  ir.String("email"),
		"template": ir.String("invoice-v2"),
	}, invoice.Version.Definition)

	notify := state.Flows[2]
	assert.Equal(t, "notify", notify.ID)
	assert.Equal(t, "notify", notify.ExternalID, "external id defaults to id")
	assert.Nil(t, notify.Version.References)
	assert.Equal(t, ir.Int(3), notify.Version.Definition["retries"])
}

func TestLoadDir_Deterministic(t *testing.T) {
	first, err := LoadDir("testdata/repo")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := LoadDir("testdata/repo")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	fp1 := ir.MustFingerprint(first.Flows[0].Version)
	assert.NotEmpty(t, fp1)
}

func TestLoadDir_CollectsAllErrors(t *testing.T) {
	_, err := LoadDir("testdata/broken")
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "float.yaml")
	assert.Contains(t, msg, "floats are not allowed")
	assert.Contains(t, msg, "unknown.yml")
	assert.Contains(t, msg, `unknown field "colour"`)
	assert.Contains(t, msg, "conflict.cue")
}

func TestLoadDir_CUEErrorHasLine(t *testing.T) {
	_, err := LoadDir("testdata/broken")
	require.Error(t, err)

	var le *LoadError
	require.ErrorAs(t, err, &le)

	var found bool
	for _, e := range unwrapAll(err) {
		if l, ok := e.(*LoadError); ok && l.Path == "conflict.cue" {
			found = true
			assert.Greater(t, l.Line, 0)
		}
	}
	assert.True(t, found)
}

func unwrapAll(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

func TestLoadDir_RequiresDisplayName(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("id: a\n"), 0o644))

	_, err := LoadDir(dir)
	assert.ErrorContains(t, err, "display_name is required")
}

func TestLoadDir_RejectsNonMapping(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("- one\n- two\n"), 0o644))

	_, err := LoadDir(dir)
	assert.ErrorContains(t, err, "must be a mapping")
}

func TestLoadDir_EmptyAndMissing(t *testing.T) {
	_, err := LoadDir(t.TempDir())
	assert.ErrorIs(t, err, ErrNoFlows)

	_, err = LoadDir(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFindFlowFiles_SkipsHiddenAndOtherExtensions(t *testing.T) {
	files, err := FindFlowFiles("testdata/repo")
	require.NoError(t, err)
	assert.Equal(t, []string{"approve-order.yaml", "billing/invoice.cue", "notify.json"}, files)
}

type fakeRepos map[string]ir.RepoConfig

func (f fakeRepos) GitRepo(_ context.Context, projectID string) (ir.RepoConfig, error) {
	r, ok := f[projectID]
	if !ok {
		return ir.RepoConfig{}, ir.ErrNotFound
	}
	return r, nil
}

func TestGit_GitState(t *testing.T) {
	ctx := context.Background()
	g := NewGit(fakeRepos{"p": {ID: "repo-1", ProjectID: "p", Path: "testdata/repo"}})

	state, err := g.GitState(ctx, "p", "repo-1")
	require.NoError(t, err)
	assert.Len(t, state.Flows, 3)

	_, err = g.GitState(ctx, "p", "")
	assert.NoError(t, err, "empty repo id uses the configured repository")

	_, err = g.GitState(ctx, "p", "repo-2")
	assert.ErrorIs(t, err, ir.ErrNotFound)

	_, err = g.GitState(ctx, "q", "")
	assert.ErrorIs(t, err, ir.ErrNotFound)
}

func TestGit_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewGit(fakeRepos{"p": {ID: "repo-1", ProjectID: "p", Path: "testdata/repo"}})

	_, err := g.GitState(ctx, "p", "")
	assert.ErrorIs(t, err, context.Canceled)
}
