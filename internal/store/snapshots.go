package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/promote/internal/ir"
)

// SaveSnapshot captures the live flows of a project as they are now and
// stores them immutably. The returned file id is content-addressed: saving an
// unchanged project again returns the same id and keeps the first name.
func (s *Store) SaveSnapshot(ctx context.Context, projectID, name string) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("save snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	state, err := liveState(ctx, tx, projectID)
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}

	id, err := putSnapshot(ctx, tx, projectID, name, state, s.timestamp())
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("save snapshot: commit: %w", err)
	}
	return id, nil
}

// PutSnapshot stores an arbitrary state as a snapshot of the project.
func (s *Store) PutSnapshot(ctx context.Context, projectID, name string, state ir.ProjectState) (string, error) {
	return putSnapshot(ctx, s.db, projectID, name, state, s.timestamp())
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func putSnapshot(ctx context.Context, db execer, projectID, name string, state ir.ProjectState, now int64) (string, error) {
	content, err := ir.EncodeSnapshot(projectID, state)
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	id := ir.SnapshotID(content)

	_, err = db.ExecContext(ctx, `
		INSERT INTO snapshots (id, project_id, name, content, created)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, projectID, name, string(content), now)
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	return id, nil
}

// LoadSnapshot returns the flows captured under fileID.
// Returns ir.ErrNotFound if the id is unknown.
func (s *Store) LoadSnapshot(ctx context.Context, fileID string) (ir.ProjectState, error) {
	var content string
	err := s.db.QueryRowContext(ctx, `SELECT content FROM snapshots WHERE id = ?`, fileID).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.ProjectState{}, fmt.Errorf("load snapshot %s: %w", fileID, ir.ErrNotFound)
	}
	if err != nil {
		return ir.ProjectState{}, fmt.Errorf("load snapshot %s: %w", fileID, err)
	}

	_, state, err := ir.DecodeSnapshot([]byte(content))
	if err != nil {
		return ir.ProjectState{}, fmt.Errorf("load snapshot %s: %w", fileID, err)
	}
	return state, nil
}
