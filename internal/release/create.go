package release

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/promote/internal/diff"
	"github.com/roach88/promote/internal/ir"
)

// Create performs a release: the plan Plan would show for the same request is
// applied to the live project and recorded.
func (s *Service) Create(ctx context.Context, projectID, ownerID, importerID string, req CreateRequest) (ir.ProjectRelease, error) {
	if err := req.validate(projectID, importerID); err != nil {
		return ir.ProjectRelease{}, err
	}

	unlock, err := s.locker.Lock(ctx, projectID)
	if err != nil {
		return ir.ProjectRelease{}, fmt.Errorf("lock project %s: %w", projectID, err)
	}
	defer unlock()

	res, mapping, err := s.compute(ctx, projectID, req.PlanRequest())
	if err != nil {
		return ir.ProjectRelease{}, err
	}
	for _, e := range res.Errors {
		s.logger.Warn("flow skipped", "project", projectID, "code", e.Code, "flow", e.FlowID, "message", e.Message)
	}

	a := &applier{
		ctx:       ctx,
		projectID: projectID,
		live:      s.deps.Live,
		mapping:   mapping.Clone(),
		logger:    s.logger.With("project", projectID),
	}
	applyErr := a.applyAll(res.Operations)

	// The mapping must record every flow that was actually created, even if a
	// later operation failed or ctx was cancelled; otherwise a retry would
	// create them again.
	writeCtx := ctx
	if applyErr != nil {
		writeCtx = context.WithoutCancel(ctx)
	}
	if _, err := s.deps.Mappings.UpdateMapping(writeCtx, a.mapping); err != nil {
		err = classify(projectID, "persist mapping", err)
		var re *Error
		if errors.As(err, &re) && re.Code == ErrCodeConflict && len(a.created) > 0 {
			re.Unrecorded = a.created
			s.logger.Error("created flows missing from mapping", "project", projectID, "flows", a.created)
		}
		if applyErr != nil {
			return ir.ProjectRelease{}, errors.Join(applyErr, err)
		}
		return ir.ProjectRelease{}, err
	}
	if applyErr != nil {
		return ir.ProjectRelease{}, applyErr
	}

	fileID, err := s.deps.Snapshots.SaveSnapshot(ctx, projectID, req.Name)
	if err != nil {
		return ir.ProjectRelease{}, classify(projectID, "save snapshot", err)
	}

	now := s.now().UTC()
	rel := ir.ProjectRelease{
		ID:          s.ids.Generate(),
		ProjectID:   projectID,
		ImportedBy:  importerID,
		FileID:      fileID,
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Created:     now,
		Updated:     now,
	}
	if err := s.deps.Releases.AppendRelease(ctx, rel); err != nil {
		return ir.ProjectRelease{}, classify(projectID, "record release", err)
	}

	s.logger.Info("release created",
		"project", projectID,
		"release", rel.ID,
		"type", rel.Type,
		"owner", ownerID,
		"importer", importerID,
		"operations", a.applied,
		"skipped", len(res.Errors),
		"file", fileID,
	)
	return rel, nil
}

// applier executes operations against the live project and records their
// effect in its copy of the mapping.
type applier struct {
	ctx       context.Context
	projectID string
	live      LiveProject
	mapping   ir.MappingState
	logger    *slog.Logger
	applied   int
	created   map[string]string // key -> live id
}

// applyAll runs ops strictly in order and stops at the first failure.
func (a *applier) applyAll(ops []diff.Operation) error {
	for _, op := range ops {
		if err := a.ctx.Err(); err != nil {
			return a.failure(op, err)
		}
		if err := op.Accept(a); err != nil {
			return a.failure(op, err)
		}
		a.applied++
	}
	return nil
}

func (a *applier) failure(op diff.Operation, err error) *Error {
	return &Error{
		Code:      ErrCodeApplyFailure,
		Message:   fmt.Sprintf("operation %d failed; earlier operations stay applied", a.applied+1),
		ProjectID: a.projectID,
		Operation: op.Type(),
		FlowID:    operationFlowID(op),
		Err:       err,
	}
}

// operationFlowID names the flow an operation is about: the desired flow for
// creates and updates, the live flow for deletes.
func operationFlowID(op diff.Operation) string {
	switch o := op.(type) {
	case diff.CreateFlow:
		return o.Flow.ID
	case diff.UpdateFlow:
		return o.NewFlow.ID
	case diff.DeleteFlow:
		return o.ExistingFlow.ID
	}
	return ""
}

func (a *applier) VisitCreate(op diff.CreateFlow) error {
	f := op.Flow
	f.ExternalID = op.Key
	id, err := a.live.CreateFlow(a.ctx, a.projectID, f)
	if err != nil {
		return err
	}
	a.mapping.Flows[op.Key] = ir.MappingEntry{SourceID: op.Flow.ID, TargetID: id}
	if a.created == nil {
		a.created = make(map[string]string)
	}
	a.created[op.Key] = id
	a.logger.Debug("flow created", "key", op.Key, "source", op.Flow.ID, "target", id)
	return nil
}

func (a *applier) VisitUpdate(op diff.UpdateFlow) error {
	f := op.NewFlow
	f.ExternalID = op.Key
	if err := a.live.UpdateFlow(a.ctx, op.ExistingFlow.ID, f); err != nil {
		return err
	}
	a.logger.Debug("flow updated", "key", op.Key, "source", op.NewFlow.ID, "target", op.ExistingFlow.ID)
	return nil
}

func (a *applier) VisitDelete(op diff.DeleteFlow) error {
	err := a.live.DeleteFlow(a.ctx, op.ExistingFlow.ID)
	if err != nil && !errors.Is(err, ir.ErrNotFound) {
		return err
	}
	e := a.mapping.Flows[op.Key]
	e.Deleted = true
	a.mapping.Flows[op.Key] = e
	a.logger.Debug("flow deleted", "key", op.Key, "target", op.ExistingFlow.ID)
	return nil
}
