package release

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/promote/internal/diff"
	"github.com/roach88/promote/internal/ir"
)

// ErrorCode categorizes release errors.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a missing release, snapshot or git repository.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeValidation indicates a malformed request.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeApplyFailure indicates a live project mutation failed mid-plan.
	ErrCodeApplyFailure ErrorCode = "APPLY_FAILURE"

	// ErrCodeConflict indicates the mapping moved between read and write.
	ErrCodeConflict ErrorCode = "CONCURRENCY_CONFLICT"
)

// Error is a failed release operation with enough context to remediate it.
type Error struct {
	Code    ErrorCode
	Message string

	ProjectID string

	// Operation and FlowID identify the failing operation (ApplyFailure only).
	Operation diff.OperationType
	FlowID    string

	// Unrecorded maps keys to live flows the release created but could not
	// record in the mapping (ConcurrencyConflict only). Without an entry the
	// next release creates those flows again.
	Unrecorded map[string]string

	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Operation != "" {
		msg += fmt.Sprintf(" (project=%s, op=%s, flow=%s)", e.ProjectID, e.Operation, e.FlowID)
	} else if e.ProjectID != "" {
		msg += fmt.Sprintf(" (project=%s)", e.ProjectID)
	}
	if len(e.Unrecorded) > 0 {
		pairs := make([]string, 0, len(e.Unrecorded))
		for _, key := range slices.Sorted(maps.Keys(e.Unrecorded)) {
			pairs = append(pairs, key+"="+e.Unrecorded[key])
		}
		msg += " (unrecorded: " + strings.Join(pairs, ", ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsNotFound reports whether err is a NotFound release error.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsValidation reports whether err is a Validation release error.
func IsValidation(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsApplyFailure reports whether err is an ApplyFailure release error.
func IsApplyFailure(err error) bool { return hasCode(err, ErrCodeApplyFailure) }

// IsConflict reports whether err is a ConcurrencyConflict release error.
func IsConflict(err error) bool { return hasCode(err, ErrCodeConflict) }

func validationError(projectID, format string, args ...any) *Error {
	return &Error{Code: ErrCodeValidation, ProjectID: projectID, Message: fmt.Sprintf(format, args...)}
}

// classify turns collaborator errors into release errors. Errors of no known
// kind are returned wrapped with msg.
func classify(projectID, msg string, err error) error {
	switch {
	case errors.Is(err, ir.ErrNotFound):
		return &Error{Code: ErrCodeNotFound, ProjectID: projectID, Message: msg, Err: err}
	case errors.Is(err, ir.ErrInvalidCursor):
		return &Error{Code: ErrCodeValidation, ProjectID: projectID, Message: msg, Err: err}
	case errors.Is(err, ir.ErrMappingConflict):
		return &Error{Code: ErrCodeConflict, ProjectID: projectID, Message: msg, Err: err}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
