package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promote/internal/ir"
)

func TestGitRepo_SetAndReplace(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.GitRepo(ctx, "p")
	assert.ErrorIs(t, err, ir.ErrNotFound)

	require.NoError(t, s.SetGitRepo(ctx, ir.RepoConfig{ID: "r1", ProjectID: "p", Path: "/src/one"}))
	require.NoError(t, s.SetGitRepo(ctx, ir.RepoConfig{ID: "r2", ProjectID: "p", Path: "/src/two"}))

	repo, err := s.GitRepo(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, ir.RepoConfig{ID: "r2", ProjectID: "p", Path: "/src/two"}, repo)
}

func TestMetaInfo(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	u := ir.UserMeta{ID: "u1", Email: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"}
	require.NoError(t, s.PutUser(ctx, u))

	got, err := s.MetaInfo(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u, *got)

	require.NoError(t, s.DeleteUser(ctx, "u1"))
	got, err = s.MetaInfo(ctx, "u1")
	require.NoError(t, err, "a missing user is not an error")
	assert.Nil(t, got)
}
