package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promote/internal/ir"
	"github.com/roach88/promote/internal/testutil"
)

func TestLiveState_UnknownProjectIsEmpty(t *testing.T) {
	s := createTestStore(t)

	state, err := s.LiveState(context.Background(), "nope")
	require.NoError(t, err)
	assert.NotNil(t, state.Flows)
	assert.Empty(t, state.Flows)
}

func TestCreateFlow_GeneratesIDAndKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	id1, err := s.CreateFlow(ctx, "p", testutil.Flow("ignored", "k1", "First", "a"))
	require.NoError(t, err)
	id2, err := s.CreateFlow(ctx, "p", testutil.Flow("ignored", "k2", "Second", "b", "k1"))
	require.NoError(t, err)
	_, err = s.CreateFlow(ctx, "other", testutil.Flow("", "k3", "Elsewhere", "c"))
	require.NoError(t, err)

	assert.Equal(t, "live-1", id1)
	assert.Equal(t, "live-2", id2)

	state, err := s.LiveState(ctx, "p")
	require.NoError(t, err)
	require.Len(t, state.Flows, 2)
	assert.Equal(t, testutil.Flow("live-1", "k1", "First", "a"), state.Flows[0])
	assert.Equal(t, testutil.Flow("live-2", "k2", "Second", "b", "k1"), state.Flows[1])
}

func TestCreateFlow_PreservesIntegersAndNesting(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	f := ir.FlowState{ExternalID: "k", Version: ir.FlowVersion{
		DisplayName: "Big",
		Definition: ir.Object{
			"big":   ir.Int(9007199254740993),
			"steps": ir.Array{ir.Object{"on": ir.Bool(true)}, ir.String("x")},
		},
	}}
	id, err := s.CreateFlow(ctx, "p", f)
	require.NoError(t, err)

	state, err := s.LiveState(ctx, "p")
	require.NoError(t, err)
	got, ok := state.FlowByID(id)
	require.True(t, ok)
	assert.Equal(t, f.Version, got.Version)
}

func TestCreateFlow_RejectsNull(t *testing.T) {
	s := createTestStore(t)

	f := testutil.Flow("", "k", "Bad", "v")
	f.Version.Definition["x"] = ir.Null{}
	_, err := s.CreateFlow(context.Background(), "p", f)
	assert.Error(t, err)
}

func TestUpdateFlow_InPlace(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	id, err := s.CreateFlow(ctx, "p", testutil.Flow("", "k", "Old", "v1"))
	require.NoError(t, err)

	require.NoError(t, s.UpdateFlow(ctx, id, testutil.Flow("src", "k", "New", "v2")))

	state, err := s.LiveState(ctx, "p")
	require.NoError(t, err)
	require.Len(t, state.Flows, 1)
	assert.Equal(t, testutil.Flow(id, "k", "New", "v2"), state.Flows[0], "id is kept, content replaced")
}

func TestUpdateFlow_NotFound(t *testing.T) {
	s := createTestStore(t)

	err := s.UpdateFlow(context.Background(), "missing", testutil.Flow("", "k", "N", "v"))
	assert.ErrorIs(t, err, ir.ErrNotFound)
}

func TestDeleteFlow(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	id, err := s.CreateFlow(ctx, "p", testutil.Flow("", "k", "N", "v"))
	require.NoError(t, err)

	require.NoError(t, s.DeleteFlow(ctx, id))
	assert.ErrorIs(t, s.DeleteFlow(ctx, id), ir.ErrNotFound)

	state, err := s.LiveState(ctx, "p")
	require.NoError(t, err)
	assert.Empty(t, state.Flows)
}

func TestImportFlow_UsesCallerID(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.ImportFlow(ctx, "p", testutil.Flow("manual-1", "", "Manual", "v")))
	assert.Error(t, s.ImportFlow(ctx, "p", testutil.Flow("manual-1", "", "Again", "v")), "ids are unique")
	assert.Error(t, s.ImportFlow(ctx, "p", testutil.Flow("", "", "No id", "v")))

	state, err := s.LiveState(ctx, "p")
	require.NoError(t, err)
	require.Len(t, state.Flows, 1)
	assert.Equal(t, "manual-1", state.Flows[0].ID)
}
