package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promote/internal/ir"
	"github.com/roach88/promote/internal/testutil"
)

func TestGetMapping_UnknownProjectIsEmpty(t *testing.T) {
	s := createTestStore(t)

	m, err := s.GetMapping(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "p", m.ProjectID)
	assert.Empty(t, m.Flows)
	assert.NotNil(t, m.Flows)
	assert.Zero(t, m.Revision)
}

func TestUpdateMapping_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	m := testutil.Tombstone(testutil.Mapping("p", "a", "t1", "b", "t2"), "b")
	written, err := s.UpdateMapping(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, int64(1), written.Revision)

	got, err := s.GetMapping(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, written.Revision, got.Revision)
	assert.Equal(t, m.Flows, got.Flows)
	assert.Equal(t, written.Updated, got.Updated)
	assert.False(t, got.Updated.IsZero())
}

func TestUpdateMapping_StaleRevisionConflicts(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	first, err := s.GetMapping(ctx, "p")
	require.NoError(t, err)
	second, err := s.GetMapping(ctx, "p")
	require.NoError(t, err)

	// Two releases read revision 0; the first write wins.
	first.Flows["a"] = ir.MappingEntry{SourceID: "sa", TargetID: "t1"}
	_, err = s.UpdateMapping(ctx, first)
	require.NoError(t, err)

	second.Flows["b"] = ir.MappingEntry{SourceID: "sb", TargetID: "t2"}
	_, err = s.UpdateMapping(ctx, second)
	assert.ErrorIs(t, err, ir.ErrMappingConflict)

	got, err := s.GetMapping(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Revision)
	assert.False(t, got.Tracks("b"), "the losing write left nothing behind")

	// Retrying from a fresh read succeeds.
	got.Flows["b"] = ir.MappingEntry{SourceID: "sb", TargetID: "t2"}
	written, err := s.UpdateMapping(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, int64(2), written.Revision)

	_, err = s.UpdateMapping(ctx, got)
	assert.ErrorIs(t, err, ir.ErrMappingConflict, "revision 1 is stale now")
}

func TestUpdateMapping_MergesAndNeverRemoves(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	written, err := s.UpdateMapping(ctx, testutil.Mapping("p", "a", "t1"))
	require.NoError(t, err)

	// A writer that only knows about "b" does not drop "a".
	partial := ir.NewMappingState("p")
	partial.Revision = written.Revision
	partial.Flows["b"] = ir.MappingEntry{SourceID: "b", TargetID: "t2"}
	_, err = s.UpdateMapping(ctx, partial)
	require.NoError(t, err)

	got, err := s.GetMapping(ctx, "p")
	require.NoError(t, err)
	assert.True(t, got.Tracks("a"))
	assert.True(t, got.Tracks("b"))
}

func TestUpdateMapping_LiveTargetBelongsToOneKey(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.UpdateMapping(ctx, testutil.Mapping("p", "a", "t1", "b", "t1"))
	assert.Error(t, err)

	got, err := s.GetMapping(ctx, "p")
	require.NoError(t, err)
	assert.Zero(t, got.Revision, "failed write is rolled back")

	// Tombstones may share a target with a live entry.
	m := testutil.Tombstone(testutil.Mapping("p", "a", "t1", "b", "t1"), "a")
	_, err = s.UpdateMapping(ctx, m)
	assert.NoError(t, err)
}

func TestUpdateMapping_RecreateOverwritesTombstone(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	m := testutil.Tombstone(testutil.Mapping("p", "a", "t1"), "a")
	written, err := s.UpdateMapping(ctx, m)
	require.NoError(t, err)

	written.Flows["a"] = ir.MappingEntry{SourceID: "a", TargetID: "t9"}
	_, err = s.UpdateMapping(ctx, written)
	require.NoError(t, err)

	got, err := s.GetMapping(ctx, "p")
	require.NoError(t, err)
	id, ok := got.TargetID("a")
	require.True(t, ok)
	assert.Equal(t, "t9", id)
}

func TestUpdateMapping_CancelledContext(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.UpdateMapping(ctx, testutil.Mapping("p", "a", "t1"))
	assert.Error(t, err)

	got, err := s.GetMapping(context.Background(), "p")
	require.NoError(t, err)
	assert.Empty(t, got.Flows)
}
