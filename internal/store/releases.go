package store

import (
	"context"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/promote/internal/ir"
)

// DefaultPageSize is the release page size when the caller gives none.
const DefaultPageSize = 10

// MaxPageSize caps a single release page.
const MaxPageSize = 100

// AppendRelease records a release. Releases are immutable: appending an
// existing id fails.
func (s *Store) AppendRelease(ctx context.Context, r ir.ProjectRelease) error {
	if !r.Type.Valid() {
		return fmt.Errorf("append release: unknown type %q", r.Type)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO project_releases
		(id, project_id, imported_by, file_id, name, description, type, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		r.ProjectID,
		r.ImportedBy,
		r.FileID,
		r.Name,
		r.Description,
		string(r.Type),
		r.Created.UTC().UnixNano(),
		r.Updated.UTC().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("append release: %w", err)
	}
	return nil
}

// GetRelease returns a release of a project. A release of another project is
// reported as ir.ErrNotFound.
func (s *Store) GetRelease(ctx context.Context, projectID, id string) (ir.ProjectRelease, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, id, project_id, imported_by, file_id, name, description, type, created, updated
		FROM project_releases
		WHERE project_id = ? AND id = ?
	`, projectID, id)

	r, _, err := scanRelease(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.ProjectRelease{}, fmt.Errorf("release %s: %w", id, ir.ErrNotFound)
	}
	if err != nil {
		return ir.ProjectRelease{}, fmt.Errorf("get release %s: %w", id, err)
	}
	return r, nil
}

// ListReleases returns a page of a project's releases ordered by creation
// time descending. cursor is empty for the first page or a NextCursor from a
// previous page. limit <= 0 means DefaultPageSize.
func (s *Store) ListReleases(ctx context.Context, projectID, cursor string, limit int) (ir.ReleasePage, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	query := `
		SELECT seq, id, project_id, imported_by, file_id, name, description, type, created, updated
		FROM project_releases
		WHERE project_id = ?`
	args := []any{projectID}

	if cursor != "" {
		created, seq, err := decodeCursor(cursor)
		if err != nil {
			return ir.ReleasePage{}, err
		}
		query += ` AND (created < ? OR (created = ? AND seq < ?))`
		args = append(args, created, created, seq)
	}
	query += ` ORDER BY created DESC, seq DESC LIMIT ?`
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return ir.ReleasePage{}, fmt.Errorf("list releases: %w", err)
	}
	defer rows.Close()

	page := ir.ReleasePage{Releases: []ir.ProjectRelease{}}
	var lastSeq int64
	for rows.Next() {
		r, seq, err := scanRelease(rows)
		if err != nil {
			return ir.ReleasePage{}, fmt.Errorf("list releases: %w", err)
		}
		if len(page.Releases) == limit {
			last := page.Releases[limit-1]
			page.NextCursor = encodeCursor(last.Created.UnixNano(), lastSeq)
			break
		}
		page.Releases = append(page.Releases, r)
		lastSeq = seq
	}
	if err := rows.Err(); err != nil {
		return ir.ReleasePage{}, fmt.Errorf("iterate releases: %w", err)
	}
	return page, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRelease(row rowScanner) (ir.ProjectRelease, int64, error) {
	var r ir.ProjectRelease
	var seq, created, updated int64
	var typ string
	var desc sql.NullString
	if err := row.Scan(&seq, &r.ID, &r.ProjectID, &r.ImportedBy, &r.FileID, &r.Name, &desc, &typ, &created, &updated); err != nil {
		return ir.ProjectRelease{}, 0, err
	}
	if desc.Valid {
		r.Description = &desc.String
	}
	r.Type = ir.ReleaseType(typ)
	r.Created = fromTimestamp(created)
	r.Updated = fromTimestamp(updated)
	return r, seq, nil
}

// Cursors are opaque to callers: base64 of "created:seq" of the last row.
func encodeCursor(created, seq int64) string {
	raw := strconv.FormatInt(created, 10) + ":" + strconv.FormatInt(seq, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCursor(cursor string) (created, seq int64, err error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ir.ErrInvalidCursor, err)
	}
	c, sq, ok := strings.Cut(string(raw), ":")
	if !ok {
		return 0, 0, ir.ErrInvalidCursor
	}
	created, err = strconv.ParseInt(c, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ir.ErrInvalidCursor, err)
	}
	seq, err = strconv.ParseInt(sq, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ir.ErrInvalidCursor, err)
	}
	return created, seq, nil
}
