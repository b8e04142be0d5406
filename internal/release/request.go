package release

import (
	"github.com/roach88/promote/internal/ir"
)

// CreateRequest describes a release to perform.
type CreateRequest struct {
	Type ir.ReleaseType `json:"type"`

	// RepoID names the git repository (GIT). Empty means the configured one.
	RepoID string `json:"repoId,omitempty"`

	// ProjectReleaseID names the release to roll back to (ROLLBACK).
	ProjectReleaseID string `json:"projectReleaseId,omitempty"`

	Name        string  `json:"name"`
	Description *string `json:"description"`

	// SelectedFlowsIDs restricts the release to these flows, by source id,
	// live id or external key. nil releases everything.
	SelectedFlowsIDs []string `json:"selectedFlowsIds"`
}

// PlanRequest describes a release to preview.
type PlanRequest struct {
	Type             ir.ReleaseType `json:"type"`
	RepoID           string         `json:"repoId,omitempty"`
	ProjectReleaseID string         `json:"projectReleaseId,omitempty"`
	SelectedFlowsIDs []string       `json:"selectedFlowsIds,omitempty"`
}

// PlanRequest returns the preview of r, selection included.
func (r CreateRequest) PlanRequest() PlanRequest {
	return PlanRequest{
		Type:             r.Type,
		RepoID:           r.RepoID,
		ProjectReleaseID: r.ProjectReleaseID,
		SelectedFlowsIDs: r.SelectedFlowsIDs,
	}
}

func (r PlanRequest) validate(projectID string) error {
	if projectID == "" {
		return validationError(projectID, "project id is required")
	}
	switch r.Type {
	case ir.ReleaseGit:
		if r.ProjectReleaseID != "" {
			return validationError(projectID, "projectReleaseId is only valid for %s releases", ir.ReleaseRollback)
		}
	case ir.ReleaseRollback:
		if r.ProjectReleaseID == "" {
			return validationError(projectID, "projectReleaseId is required for %s releases", ir.ReleaseRollback)
		}
		if r.RepoID != "" {
			return validationError(projectID, "repoId is only valid for %s releases", ir.ReleaseGit)
		}
	default:
		return validationError(projectID, "unknown release type %q", r.Type)
	}
	return nil
}

func (r CreateRequest) validate(projectID, importerID string) error {
	if err := r.PlanRequest().validate(projectID); err != nil {
		return err
	}
	if r.Name == "" {
		return validationError(projectID, "release name is required")
	}
	if importerID == "" {
		return validationError(projectID, "importer id is required")
	}
	return nil
}
