package cli

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promote/internal/diff"
	"github.com/roach88/promote/internal/ir"
)

func planOrder(plan diff.SyncPlan) []string {
	ids := make([]string, 0, len(plan.Operations))
	for _, op := range plan.Operations {
		ids = append(ids, op.Flow.ID)
	}
	return ids
}

func TestReleaseLifecycle(t *testing.T) {
	env := newCLIEnv(t)
	repo := copyRepo(t)

	out := env.mustRun("repo", "set", "shop", repo, "--repo-id", "r1")
	assert.Contains(t, out, "reads 3 flow(s)")

	// First release creates every flow, callees first.
	plan := decode[diff.SyncPlan](t, env.mustRun("plan", "shop", "--user", "u1", "--format", "json")).Data
	assert.Equal(t, 3, plan.Counts()[diff.OpCreateFlow])
	assert.Empty(t, plan.Errors)
	order := planOrder(plan)
	assert.Less(t, slices.Index(order, "notify"), slices.Index(order, "approve-order"))

	v1 := decode[ir.ProjectRelease](t, env.mustRun(
		"release", "create", "shop", "--name", "v1", "--owner", "o1", "--importer", "u1", "--format", "json",
	)).Data
	assert.Equal(t, ir.ReleaseGit, v1.Type)
	assert.Equal(t, "shop", v1.ProjectID)
	assert.Nil(t, v1.Description)
	assert.NotEmpty(t, v1.FileID)

	out = env.mustRun("plan", "shop", "--user", "u1")
	assert.Contains(t, out, "No changes.")
	assert.Contains(t, out, "0 to create, 0 to update, 0 to delete, 0 skipped")

	flows := decode[[]FlowSummary](t, env.mustRun("flows", "shop", "--format", "json")).Data
	require.Len(t, flows, 3)
	for _, f := range flows {
		assert.True(t, f.Tracked, f.ExternalID)
		assert.Len(t, f.Fingerprint, 64)
	}

	// Edit one flow in the checkout.
	notify := `{"display_name": "Notify", "definition": {"channel": "sms", "retries": 3}}`
	require.NoError(t, os.WriteFile(filepath.Join(repo, "notify.json"), []byte(notify), 0o644))

	out = env.mustRun("plan", "shop", "--user", "u1", "--verbose")
	assert.Contains(t, out, "UPDATE_FLOW")
	assert.Contains(t, out, "0 to create, 1 to update, 0 to delete, 0 skipped")
	assert.Contains(t, out, "~ notify")
	assert.Contains(t, out, `"sms"`)

	out = env.mustRun("release", "create", "shop", "--name", "v2", "--description", "sms", "--owner", "o1", "--importer", "u1")
	assert.Contains(t, out, "✓ Release")

	// Roll back to v1.
	plan = decode[diff.SyncPlan](t, env.mustRun("plan", "shop", "--user", "u1", "--rollback", v1.ID, "--format", "json")).Data
	require.Len(t, plan.Operations, 1)
	assert.Equal(t, diff.OpUpdateFlow, plan.Operations[0].Type)

	back := decode[ir.ProjectRelease](t, env.mustRun(
		"release", "create", "shop", "--name", "undo v2", "--owner", "o1", "--importer", "u2",
		"--rollback", v1.ID, "--format", "json",
	)).Data
	assert.Equal(t, ir.ReleaseRollback, back.Type)
	assert.Equal(t, v1.FileID, back.FileID)

	// Listing is newest first and shows importers from the directory.
	env.mustRun("user", "set", "u1", "--email", "ada@example.com", "--first-name", "Ada", "--last-name", "Lovelace")

	page := decode[ir.ReleasePage](t, env.mustRun("release", "list", "shop", "--format", "json")).Data
	require.Len(t, page.Releases, 3)
	assert.Equal(t, []string{"undo v2", "v2", "v1"}, []string{page.Releases[0].Name, page.Releases[1].Name, page.Releases[2].Name})
	assert.Nil(t, page.Releases[0].ImportedByUser)
	require.NotNil(t, page.Releases[1].ImportedByUser)
	assert.Equal(t, "ada@example.com", page.Releases[1].ImportedByUser.Email)
	assert.Empty(t, page.NextCursor)

	out = env.mustRun("release", "list", "shop", "--limit", "2")
	assert.Contains(t, out, "Ada Lovelace <ada@example.com>")
	assert.Contains(t, out, "Next page: --cursor ")

	cursor := strings.TrimSpace(out[strings.LastIndex(out, "--cursor ")+len("--cursor "):])
	out = env.mustRun("release", "list", "shop", "--limit", "2", "--cursor", cursor)
	assert.Contains(t, out, "v1")
	assert.NotContains(t, out, "Next page")

	out = env.mustRun("release", "get", "shop", v1.ID)
	assert.Contains(t, out, v1.ID)
	assert.Contains(t, out, v1.FileID)
}

func TestReleaseCreate_Selection(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("repo", "set", "shop", copyRepo(t))

	rel := decode[ir.ProjectRelease](t, env.mustRun(
		"release", "create", "shop", "--name", "notify only", "--owner", "o1", "--importer", "u1",
		"--select", "notify", "--format", "json",
	)).Data
	assert.NotEmpty(t, rel.ID)

	flows := decode[[]FlowSummary](t, env.mustRun("flows", "shop", "--format", "json")).Data
	require.Len(t, flows, 1)
	assert.Equal(t, "notify", flows[0].ExternalID)

	// An empty selection plans nothing.
	plan := decode[diff.SyncPlan](t, env.mustRun("plan", "shop", "--user", "u1", "--select=", "--format", "json")).Data
	assert.Empty(t, plan.Operations)
}

func TestReleaseCreate_Errors(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("repo", "set", "shop", copyRepo(t))

	tests := []struct {
		name     string
		args     []string
		wantCode string
	}{
		{
			name:     "missing_importer",
			args:     []string{"release", "create", "shop", "--name", "v1", "--owner", "o1"},
			wantCode: "VALIDATION",
		},
		{
			name:     "missing_name",
			args:     []string{"release", "create", "shop", "--owner", "o1", "--importer", "u1"},
			wantCode: "VALIDATION",
		},
		{
			name:     "unknown_rollback",
			args:     []string{"release", "create", "shop", "--name", "undo", "--importer", "u1", "--rollback", "nope"},
			wantCode: "NOT_FOUND",
		},
		{
			name:     "no_repository",
			args:     []string{"plan", "other", "--user", "u1"},
			wantCode: "NOT_FOUND",
		},
		{
			name:     "wrong_repository",
			args:     []string{"plan", "shop", "--user", "u1", "--repo-id", "elsewhere"},
			wantCode: "NOT_FOUND",
		},
		{
			name:     "unknown_release",
			args:     []string{"release", "get", "shop", "nope"},
			wantCode: "NOT_FOUND",
		},
		{
			name:     "bad_cursor",
			args:     []string{"release", "list", "shop", "--cursor", "%%%"},
			wantCode: "VALIDATION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := env.run(append(tt.args, "--format", "json")...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			resp := decode[any](t, out)
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}

	// Nothing was recorded.
	page := decode[ir.ReleasePage](t, env.mustRun("release", "list", "shop", "--format", "json")).Data
	assert.Empty(t, page.Releases)
}

func TestRepoSet_Errors(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run("repo", "set", "shop", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = env.run("repo", "set", "shop", brokenFixture)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = env.run("repo", "show", "shop")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRepoShow(t *testing.T) {
	env := newCLIEnv(t)
	repo := copyRepo(t)
	env.mustRun("repo", "set", "shop", repo, "--repo-id", "r1")

	got := decode[ir.RepoConfig](t, env.mustRun("repo", "show", "shop", "--format", "json")).Data
	assert.Equal(t, "r1", got.ID)
	assert.Equal(t, repo, got.Path)
}

func TestUserRemove(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("repo", "set", "shop", copyRepo(t))
	env.mustRun("user", "set", "u1", "--email", "ada@example.com")
	env.mustRun("release", "create", "shop", "--name", "v1", "--owner", "o1", "--importer", "u1")

	out := env.mustRun("release", "list", "shop")
	assert.Contains(t, out, "ada@example.com")

	env.mustRun("user", "remove", "u1")
	out = env.mustRun("release", "list", "shop")
	assert.NotContains(t, out, "ada@example.com")
	assert.Contains(t, out, "u1")
}
