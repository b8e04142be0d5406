package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/promote/internal/ir"
)

// GetMapping returns the mapping of a project. A project that never had a
// release gets an empty mapping at revision 0.
func (s *Store) GetMapping(ctx context.Context, projectID string) (ir.MappingState, error) {
	m := ir.NewMappingState(projectID)

	var updated int64
	err := s.db.QueryRowContext(ctx, `
		SELECT revision, updated FROM project_mappings WHERE project_id = ?
	`, projectID).Scan(&m.Revision, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return m, nil
	}
	if err != nil {
		return ir.MappingState{}, fmt.Errorf("get mapping: %w", err)
	}
	m.Updated = fromTimestamp(updated)

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, source_id, target_id, deleted
		FROM mapping_entries
		WHERE project_id = ?
	`, projectID)
	if err != nil {
		return ir.MappingState{}, fmt.Errorf("get mapping entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var e ir.MappingEntry
		if err := rows.Scan(&key, &e.SourceID, &e.TargetID, &e.Deleted); err != nil {
			return ir.MappingState{}, fmt.Errorf("scan mapping entry: %w", err)
		}
		m.Flows[key] = e
	}
	if err := rows.Err(); err != nil {
		return ir.MappingState{}, fmt.Errorf("iterate mapping entries: %w", err)
	}
	return m, nil
}

// UpdateMapping writes m if the stored revision still equals m.Revision and
// returns m at its new revision. Otherwise it writes nothing
// and returns ir.ErrMappingConflict.
//
// Entries are merged: keys missing from m keep their stored entry.
func (s *Store) UpdateMapping(ctx context.Context, m ir.MappingState) (ir.MappingState, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ir.MappingState{}, fmt.Errorf("update mapping: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	now := s.timestamp()
	var res sql.Result
	if m.Revision == 0 {
		res, err = tx.ExecContext(ctx, `
			INSERT INTO project_mappings (project_id, revision, updated)
			VALUES (?, 1, ?)
			ON CONFLICT(project_id) DO NOTHING
		`, m.ProjectID, now)
	} else {
		res, err = tx.ExecContext(ctx, `
			UPDATE project_mappings
			SET revision = revision + 1, updated = ?
			WHERE project_id = ? AND revision = ?
		`, now, m.ProjectID, m.Revision)
	}
	if err != nil {
		return ir.MappingState{}, fmt.Errorf("update mapping: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ir.MappingState{}, fmt.Errorf("update mapping: %w", err)
	}
	if n == 0 {
		return ir.MappingState{}, fmt.Errorf("update mapping %s at revision %d: %w", m.ProjectID, m.Revision, ir.ErrMappingConflict)
	}

	// Tombstones first so a target id released by one key can be taken by
	// another within the same write.
	keys := make([]string, 0, len(m.Flows))
	for k := range m.Flows {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		di, dj := m.Flows[keys[i]].Deleted, m.Flows[keys[j]].Deleted
		if di != dj {
			return di
		}
		return keys[i] < keys[j]
	})

	for _, key := range keys {
		e := m.Flows[key]
		_, err := tx.ExecContext(ctx, `
			INSERT INTO mapping_entries (project_id, key, source_id, target_id, deleted)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(project_id, key) DO UPDATE
			SET source_id = excluded.source_id, target_id = excluded.target_id, deleted = excluded.deleted
		`, m.ProjectID, key, e.SourceID, e.TargetID, e.Deleted)
		if err != nil {
			return ir.MappingState{}, fmt.Errorf("update mapping entry %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ir.MappingState{}, fmt.Errorf("update mapping: commit: %w", err)
	}

	out := m.Clone()
	out.Revision = m.Revision + 1
	out.Updated = fromTimestamp(now)
	return out, nil
}
