package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/promote/internal/ir"
)

// SetGitRepo configures the git source of a project, replacing any previous one.
func (s *Store) SetGitRepo(ctx context.Context, repo ir.RepoConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO git_repos (id, project_id, path)
		VALUES (?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET id = excluded.id, path = excluded.path
	`, repo.ID, repo.ProjectID, repo.Path)
	if err != nil {
		return fmt.Errorf("set git repo: %w", err)
	}
	return nil
}

// GitRepo returns the git source of a project, or ir.ErrNotFound.
func (s *Store) GitRepo(ctx context.Context, projectID string) (ir.RepoConfig, error) {
	repo := ir.RepoConfig{ProjectID: projectID}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, path FROM git_repos WHERE project_id = ?
	`, projectID).Scan(&repo.ID, &repo.Path)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.RepoConfig{}, fmt.Errorf("git repo for project %s: %w", projectID, ir.ErrNotFound)
	}
	if err != nil {
		return ir.RepoConfig{}, fmt.Errorf("get git repo: %w", err)
	}
	return repo, nil
}

// PutUser creates or replaces a user.
func (s *Store) PutUser(ctx context.Context, u ir.UserMeta) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, first_name, last_name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE
		SET email = excluded.email, first_name = excluded.first_name, last_name = excluded.last_name
	`, u.ID, u.Email, u.FirstName, u.LastName)
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// DeleteUser removes a user. Releases keep referring to the id.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// MetaInfo returns the display view of a user, or nil if the user does not
// exist.
func (s *Store) MetaInfo(ctx context.Context, id string) (*ir.UserMeta, error) {
	u := ir.UserMeta{ID: id}
	err := s.db.QueryRowContext(ctx, `
		SELECT email, first_name, last_name FROM users WHERE id = ?
	`, id).Scan(&u.Email, &u.FirstName, &u.LastName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}
