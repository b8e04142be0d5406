package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/promote/internal/ir"
)

// LiveState returns the live flows of a project in creation order.
// An unknown project has an empty state.
func (s *Store) LiveState(ctx context.Context, projectID string) (ir.ProjectState, error) {
	return liveState(ctx, s.db, projectID)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func liveState(ctx context.Context, q queryer, projectID string) (ir.ProjectState, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, external_id, display_name, definition, refs
		FROM flows
		WHERE project_id = ?
		ORDER BY seq ASC
	`, projectID)
	if err != nil {
		return ir.ProjectState{}, fmt.Errorf("query live flows: %w", err)
	}
	defer rows.Close()

	state := ir.ProjectState{Flows: []ir.FlowState{}}
	for rows.Next() {
		var f ir.FlowState
		var name, def, refs string
		if err := rows.Scan(&f.ID, &f.ExternalID, &name, &def, &refs); err != nil {
			return ir.ProjectState{}, fmt.Errorf("scan flow: %w", err)
		}
		f.Version, err = unmarshalVersion(name, def, refs)
		if err != nil {
			return ir.ProjectState{}, fmt.Errorf("flow %s: %w", f.ID, err)
		}
		state.Flows = append(state.Flows, f)
	}
	if err := rows.Err(); err != nil {
		return ir.ProjectState{}, fmt.Errorf("iterate flows: %w", err)
	}
	return state, nil
}

// CreateFlow materializes a flow in a project under a freshly generated id.
// f.ID is ignored; f.ExternalID is stored as given.
func (s *Store) CreateFlow(ctx context.Context, projectID string, f ir.FlowState) (string, error) {
	f.ID = s.ids.Generate()
	if err := s.insertFlow(ctx, projectID, f); err != nil {
		return "", fmt.Errorf("create flow: %w", err)
	}
	return f.ID, nil
}

// ImportFlow inserts a flow under the caller's id, the way a flow created by
// hand in the project would appear. Releases never track imported flows.
func (s *Store) ImportFlow(ctx context.Context, projectID string, f ir.FlowState) error {
	if f.ID == "" {
		return fmt.Errorf("import flow: id is required")
	}
	if err := s.insertFlow(ctx, projectID, f); err != nil {
		return fmt.Errorf("import flow: %w", err)
	}
	return nil
}

func (s *Store) insertFlow(ctx context.Context, projectID string, f ir.FlowState) error {
	def, err := marshalDefinition(f.Version.Definition)
	if err != nil {
		return err
	}
	refs, err := marshalRefs(f.Version.References)
	if err != nil {
		return err
	}

	now := s.timestamp()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO flows (id, project_id, external_id, display_name, definition, refs, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, f.ID, projectID, f.ExternalID, f.Version.DisplayName, def, refs, now, now)
	return err
}

// UpdateFlow overwrites the content and external id of a live flow in place.
// Returns ir.ErrNotFound if the flow does not exist.
func (s *Store) UpdateFlow(ctx context.Context, targetID string, f ir.FlowState) error {
	def, err := marshalDefinition(f.Version.Definition)
	if err != nil {
		return fmt.Errorf("update flow: %w", err)
	}
	refs, err := marshalRefs(f.Version.References)
	if err != nil {
		return fmt.Errorf("update flow: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE flows
		SET external_id = ?, display_name = ?, definition = ?, refs = ?, updated = ?
		WHERE id = ?
	`, f.ExternalID, f.Version.DisplayName, def, refs, s.timestamp(), targetID)
	if err != nil {
		return fmt.Errorf("update flow: %w", err)
	}
	return expectOneRow(res, "update flow "+targetID)
}

// DeleteFlow removes a live flow. Returns ir.ErrNotFound if it does not exist.
func (s *Store) DeleteFlow(ctx context.Context, targetID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM flows WHERE id = ?`, targetID)
	if err != nil {
		return fmt.Errorf("delete flow: %w", err)
	}
	return expectOneRow(res, "delete flow "+targetID)
}

func expectOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ir.ErrNotFound)
	}
	return nil
}
