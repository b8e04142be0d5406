package release

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/promote/internal/diff"
	"github.com/roach88/promote/internal/idgen"
	"github.com/roach88/promote/internal/ir"
	"github.com/roach88/promote/internal/lock"
)

// LiveProject reads and mutates the flows of live projects.
type LiveProject interface {
	LiveState(ctx context.Context, projectID string) (ir.ProjectState, error)
	CreateFlow(ctx context.Context, projectID string, f ir.FlowState) (string, error)
	UpdateFlow(ctx context.Context, targetID string, f ir.FlowState) error
	DeleteFlow(ctx context.Context, targetID string) error
}

// MappingStore persists identity mappings.
type MappingStore interface {
	GetMapping(ctx context.Context, projectID string) (ir.MappingState, error)
	UpdateMapping(ctx context.Context, m ir.MappingState) (ir.MappingState, error)
}

// SnapshotStore captures and loads immutable project states.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, projectID, name string) (string, error)
	LoadSnapshot(ctx context.Context, fileID string) (ir.ProjectState, error)
}

// ReleaseCatalog records releases.
type ReleaseCatalog interface {
	AppendRelease(ctx context.Context, r ir.ProjectRelease) error
	GetRelease(ctx context.Context, projectID, id string) (ir.ProjectRelease, error)
	ListReleases(ctx context.Context, projectID, cursor string, limit int) (ir.ReleasePage, error)
}

// UserDirectory resolves importer ids for display. A missing user is
// (nil, nil).
type UserDirectory interface {
	MetaInfo(ctx context.Context, id string) (*ir.UserMeta, error)
}

// GitSource provides the desired state of a project from git.
type GitSource interface {
	GitState(ctx context.Context, projectID, repoID string) (ir.ProjectState, error)
}

// Deps are the collaborators of a Service.
type Deps struct {
	Live      LiveProject
	Mappings  MappingStore
	Snapshots SnapshotStore
	Releases  ReleaseCatalog
	Users     UserDirectory
	Git       GitSource
}

// Service performs and previews releases.
//
// Thread-safety: Service holds no per-call state and is safe for concurrent
// use. Releases of one project are serialized by the Locker.
type Service struct {
	deps   Deps
	locker lock.Locker
	ids    idgen.Generator
	now    func() time.Time
	logger *slog.Logger
	key    diff.KeyFunc
}

// Option configures a Service.
type Option func(*Service)

// WithLocker sets the per-project lock. Defaults to an in-process lock.
func WithLocker(l lock.Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithIDGenerator sets the release id generator. Defaults to UUIDv7.
func WithIDGenerator(g idgen.Generator) Option {
	return func(s *Service) { s.ids = g }
}

// WithClock sets the time source for release timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithKeyFunc overrides how flows are matched across environments.
func WithKeyFunc(k diff.KeyFunc) Option {
	return func(s *Service) { s.key = k }
}

// New creates a Service.
func New(deps Deps, opts ...Option) *Service {
	s := &Service{
		deps:   deps,
		locker: lock.NewMemory(),
		ids:    idgen.UUIDv7{},
		now:    time.Now,
		logger: slog.Default(),
		key:    diff.DefaultKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plan previews a release without changing anything.
func (s *Service) Plan(ctx context.Context, projectID, userID string, req PlanRequest) (diff.SyncPlan, error) {
	res, err := s.Diff(ctx, projectID, req)
	if err != nil {
		return diff.SyncPlan{}, err
	}

	plan := diff.ToPlan(res)
	counts := plan.Counts()
	s.logger.Debug("release planned",
		"project", projectID,
		"user", userID,
		"type", req.Type,
		"creates", counts[diff.OpCreateFlow],
		"updates", counts[diff.OpUpdateFlow],
		"deletes", counts[diff.OpDeleteFlow],
		"errors", len(plan.Errors),
	)
	return plan, nil
}

// Diff is Plan before conversion to the wire form: the operations still
// carry both versions of each flow.
func (s *Service) Diff(ctx context.Context, projectID string, req PlanRequest) (diff.Result, error) {
	if err := req.validate(projectID); err != nil {
		return diff.Result{}, err
	}
	res, _, err := s.compute(ctx, projectID, req)
	return res, err
}

// compute resolves both states and the mapping and diffs them.
func (s *Service) compute(ctx context.Context, projectID string, req PlanRequest) (diff.Result, ir.MappingState, error) {
	desired, err := s.desiredState(ctx, projectID, req)
	if err != nil {
		return diff.Result{}, ir.MappingState{}, err
	}

	live, err := s.deps.Live.LiveState(ctx, projectID)
	if err != nil {
		return diff.Result{}, ir.MappingState{}, classify(projectID, "read live state", err)
	}

	mapping, err := s.deps.Mappings.GetMapping(ctx, projectID)
	if err != nil {
		return diff.Result{}, ir.MappingState{}, classify(projectID, "read mapping", err)
	}

	res := diff.Diff(live, desired, mapping, diff.Options{
		Key:      s.key,
		Selected: diff.Selection(req.SelectedFlowsIDs),
	})
	return res, mapping, nil
}

// desiredState resolves what the project should look like after the release.
func (s *Service) desiredState(ctx context.Context, projectID string, req PlanRequest) (ir.ProjectState, error) {
	switch req.Type {
	case ir.ReleaseGit:
		state, err := s.deps.Git.GitState(ctx, projectID, req.RepoID)
		if err != nil {
			return ir.ProjectState{}, classify(projectID, "resolve git state", err)
		}
		return state, nil
	case ir.ReleaseRollback:
		rel, err := s.deps.Releases.GetRelease(ctx, projectID, req.ProjectReleaseID)
		if err != nil {
			return ir.ProjectState{}, classify(projectID, "resolve release "+req.ProjectReleaseID, err)
		}
		state, err := s.deps.Snapshots.LoadSnapshot(ctx, rel.FileID)
		if err != nil {
			return ir.ProjectState{}, classify(projectID, "load snapshot "+rel.FileID, err)
		}
		return state, nil
	}
	return ir.ProjectState{}, validationError(projectID, "unknown release type %q", req.Type)
}

// List returns a page of releases, newest first, with importer details.
// An importer that no longer exists leaves ImportedByUser nil.
func (s *Service) List(ctx context.Context, projectID, cursor string, limit int) (ir.ReleasePage, error) {
	page, err := s.deps.Releases.ListReleases(ctx, projectID, cursor, limit)
	if err != nil {
		return ir.ReleasePage{}, classify(projectID, "list releases", err)
	}

	for i := range page.Releases {
		r := &page.Releases[i]
		if r.ImportedBy == "" || s.deps.Users == nil {
			continue
		}
		u, err := s.deps.Users.MetaInfo(ctx, r.ImportedBy)
		if err != nil {
			s.logger.Warn("importer lookup failed", "release", r.ID, "user", r.ImportedBy, "error", err)
			continue
		}
		r.ImportedByUser = u
	}
	return page, nil
}

// Get returns one release of a project.
func (s *Service) Get(ctx context.Context, projectID, id string) (ir.ProjectRelease, error) {
	r, err := s.deps.Releases.GetRelease(ctx, projectID, id)
	if err != nil {
		return ir.ProjectRelease{}, classify(projectID, "get release "+id, err)
	}
	return r, nil
}
