package diff

import "fmt"

// SyncErrorCode categorizes problems found while comparing states.
type SyncErrorCode string

const (
	// ErrCodeMalformedKey indicates a flow whose external key is empty.
	ErrCodeMalformedKey SyncErrorCode = "MALFORMED_KEY"

	// ErrCodeDuplicateKey indicates a second flow with the same key in one state.
	ErrCodeDuplicateKey SyncErrorCode = "DUPLICATE_KEY"

	// ErrCodeConflictingTarget indicates two keys mapped to one live flow.
	ErrCodeConflictingTarget SyncErrorCode = "CONFLICTING_TARGET"

	// ErrCodeUnresolvedReference indicates a reference to a flow that is
	// neither live nor part of the desired state.
	ErrCodeUnresolvedReference SyncErrorCode = "UNRESOLVED_REFERENCE"

	// ErrCodeInvalidDefinition indicates content that cannot be fingerprinted.
	ErrCodeInvalidDefinition SyncErrorCode = "INVALID_DEFINITION"
)

// SyncError is a non-fatal, per-flow problem. The affected flow gets no
// operation; every other flow is still planned.
type SyncError struct {
	Code    SyncErrorCode `json:"code"`
	FlowID  string        `json:"flowId"`
	Key     string        `json:"key,omitempty"`
	Message string        `json:"message"`
}

// Error implements the error interface.
func (e SyncError) Error() string {
	return fmt.Sprintf("%s: %s (flow=%s)", e.Code, e.Message, e.FlowID)
}
