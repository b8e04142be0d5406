package diff

import "github.com/roach88/promote/internal/ir"

// SyncPlan is the response view of a diff.
type SyncPlan struct {
	Errors     []SyncError     `json:"errors"`
	Operations []PlanOperation `json:"operations"`
}

// PlanOperation is one operation as shown to a reviewer.
type PlanOperation struct {
	Type OperationType `json:"type"`
	Flow FlowRef       `json:"flow"`

	// TargetFlow is the live flow being overwritten; UPDATE_FLOW only.
	TargetFlow *FlowRef `json:"targetFlow,omitempty"`
}

// FlowRef identifies a flow by its environment-local id and display name.
type FlowRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

func refOf(f ir.FlowState) FlowRef {
	return FlowRef{ID: f.ID, DisplayName: f.Version.DisplayName}
}

// ToPlan converts a diff result to its wire form. Errors and operations are
// always non-nil so they encode as empty arrays.
func ToPlan(res Result) SyncPlan {
	plan := SyncPlan{
		Errors:     append([]SyncError{}, res.Errors...),
		Operations: make([]PlanOperation, 0, len(res.Operations)),
	}
	b := &planBuilder{plan: &plan}
	for _, op := range res.Operations {
		// planBuilder never fails.
		_ = op.Accept(b)
	}
	return plan
}

type planBuilder struct {
	plan *SyncPlan
}

func (b *planBuilder) VisitCreate(op CreateFlow) error {
	b.plan.Operations = append(b.plan.Operations, PlanOperation{Type: OpCreateFlow, Flow: refOf(op.Flow)})
	return nil
}

func (b *planBuilder) VisitUpdate(op UpdateFlow) error {
	target := refOf(op.ExistingFlow)
	b.plan.Operations = append(b.plan.Operations, PlanOperation{Type: OpUpdateFlow, Flow: refOf(op.NewFlow), TargetFlow: &target})
	return nil
}

func (b *planBuilder) VisitDelete(op DeleteFlow) error {
	b.plan.Operations = append(b.plan.Operations, PlanOperation{Type: OpDeleteFlow, Flow: refOf(op.ExistingFlow)})
	return nil
}

// Counts tallies operations by type.
func (p SyncPlan) Counts() map[OperationType]int {
	out := make(map[OperationType]int, 3)
	for _, op := range p.Operations {
		out[op.Type]++
	}
	return out
}
