package diff

import "github.com/roach88/promote/internal/ir"

// OperationType is the wire name of an operation kind.
type OperationType string

const (
	OpCreateFlow OperationType = "CREATE_FLOW"
	OpUpdateFlow OperationType = "UPDATE_FLOW"
	OpDeleteFlow OperationType = "DELETE_FLOW"
)

// Operation is one reconciliation action. Implemented only by CreateFlow,
// UpdateFlow and DeleteFlow.
type Operation interface {
	Type() OperationType
	Accept(v Visitor) error
	operation()
}

// Visitor handles every operation kind.
type Visitor interface {
	VisitCreate(op CreateFlow) error
	VisitUpdate(op UpdateFlow) error
	VisitDelete(op DeleteFlow) error
}

// CreateFlow materializes a desired flow that has no live counterpart.
type CreateFlow struct {
	Key  string
	Flow ir.FlowState
}

func (CreateFlow) Type() OperationType { return OpCreateFlow }
func (op CreateFlow) Accept(v Visitor) error { return v.VisitCreate(op) }
func (CreateFlow) operation() {}

// UpdateFlow overwrites the content of ExistingFlow with NewFlow's version.
type UpdateFlow struct {
	Key          string
	NewFlow      ir.FlowState
	ExistingFlow ir.FlowState
}

func (UpdateFlow) Type() OperationType { return OpUpdateFlow }
func (op UpdateFlow) Accept(v Visitor) error { return v.VisitUpdate(op) }
func (UpdateFlow) operation() {}

// DeleteFlow removes a live flow that a previous release materialized and
// that is no longer desired.
type DeleteFlow struct {
	Key          string
	ExistingFlow ir.FlowState
}

func (DeleteFlow) Type() OperationType { return OpDeleteFlow }
func (op DeleteFlow) Accept(v Visitor) error { return v.VisitDelete(op) }
func (DeleteFlow) operation() {}

// TargetID returns the live flow id an operation touches, or "" for creates.
func TargetID(op Operation) string {
	switch o := op.(type) {
	case UpdateFlow:
		return o.ExistingFlow.ID
	case DeleteFlow:
		return o.ExistingFlow.ID
	}
	return ""
}
