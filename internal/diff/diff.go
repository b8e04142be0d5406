package diff

import (
	"fmt"

	"github.com/roach88/promote/internal/ir"
)

// KeyFunc derives the cross-environment key of a flow.
type KeyFunc func(ir.FlowState) string

// DefaultKey uses the flow's external id, falling back to its local id for
// flows that were never given one.
func DefaultKey(f ir.FlowState) string {
	if f.ExternalID != "" {
		return f.ExternalID
	}
	return f.ID
}

// Options configures a diff.
type Options struct {
	// Key overrides DefaultKey.
	Key KeyFunc

	// Selected restricts the plan to the given flow ids or keys.
	// nil selects everything; an empty non-nil set selects nothing.
	Selected map[string]bool
}

// Selection builds Options.Selected from a request's id list, keeping the
// nil/empty distinction.
func Selection(ids []string) map[string]bool {
	if ids == nil {
		return nil
	}
	sel := make(map[string]bool, len(ids))
	for _, id := range ids {
		sel[id] = true
	}
	return sel
}

func (o Options) key(f ir.FlowState) string {
	if o.Key != nil {
		return o.Key(f)
	}
	return DefaultKey(f)
}

func (o Options) selected(f ir.FlowState, key string) bool {
	if o.Selected == nil {
		return true
	}
	return o.Selected[f.ID] || (key != "" && o.Selected[key])
}

// Result is the output of Diff.
type Result struct {
	Operations []Operation
	Errors     []SyncError
}

// keyedFlow is a selected, well-formed desired flow.
type keyedFlow struct {
	key  string
	flow ir.FlowState
}

// Diff compares the live state (oldState) with the desired state (newState)
// through the identity mapping.
//
// For every desired flow the key is resolved through the mapping. A key the
// mapping cannot resolve falls back to a live flow the mapping does not own
// whose external id or local id equals the key, so flows made by hand are
// matched rather than duplicated. Keys that resolve to nothing live become
// creates; resolved keys become updates when the content fingerprint differs
// and nothing otherwise. Live flows that a previous release materialized and
// whose key is no longer desired become deletes. Live flows the mapping does
// not know are never deleted.
//
// Creates and updates come first, in desired-state order except that a flow
// referenced by another planned flow is moved ahead of it; deletes follow in
// live-state order.
func Diff(oldState, newState ir.ProjectState, mapping ir.MappingState, opts Options) Result {
	var res Result

	// Keys of the whole desired state, selection aside: an unselected desired
	// flow still keeps its live counterpart from being deleted.
	desiredKeys := make(map[string]bool, len(newState.Flows))
	for _, f := range newState.Flows {
		if k := opts.key(f); k != "" {
			desiredKeys[k] = true
		}
	}

	// Reverse mapping: live target id -> key that materialized it.
	materialized := make(map[string]string, len(mapping.Flows))
	for key := range mapping.Flows {
		if target, ok := mapping.TargetID(key); ok {
			if _, dup := materialized[target]; !dup || key < materialized[target] {
				materialized[target] = key
			}
		}
	}

	live := indexLive(oldState, mapping, materialized)
	candidates := validateDesired(newState, opts, &res)

	claimed := make(map[string]string) // live target id -> key
	planned := make([]Operation, len(candidates))
	failed := make([]*SyncError, len(candidates))
	for i, c := range candidates {
		planned[i], failed[i] = planDesired(c, live, claimed)
	}
	withholdUnresolved(candidates, failed, live)

	var upserts []Operation
	for i := range candidates {
		if failed[i] != nil {
			res.Errors = append(res.Errors, *failed[i])
			continue
		}
		if planned[i] != nil {
			upserts = append(upserts, planned[i])
		}
	}

	res.Operations = append(res.Operations, orderByReferences(upserts)...)

	for _, f := range oldState.Flows {
		key, tracked := materialized[f.ID]
		if !tracked || desiredKeys[key] {
			continue
		}
		if _, taken := claimed[f.ID]; taken {
			continue
		}
		if !opts.selected(f, key) {
			continue
		}
		res.Operations = append(res.Operations, DeleteFlow{Key: key, ExistingFlow: f})
	}

	return res
}

// liveIndex resolves keys to live flows.
type liveIndex struct {
	mapping ir.MappingState
	byID    map[string]ir.FlowState
	// unowned holds live flows no mapping entry materialized, by external id
	// and by local id. An external id wins over another flow's local id.
	unowned map[string]ir.FlowState
}

func indexLive(oldState ir.ProjectState, mapping ir.MappingState, materialized map[string]string) liveIndex {
	idx := liveIndex{
		mapping: mapping,
		byID:    make(map[string]ir.FlowState, len(oldState.Flows)),
		unowned: make(map[string]ir.FlowState),
	}
	for _, f := range oldState.Flows {
		idx.byID[f.ID] = f
	}
	for _, f := range oldState.Flows {
		if _, owned := materialized[f.ID]; owned || f.ExternalID == "" {
			continue
		}
		if _, dup := idx.unowned[f.ExternalID]; !dup {
			idx.unowned[f.ExternalID] = f
		}
	}
	for _, f := range oldState.Flows {
		if _, owned := materialized[f.ID]; owned {
			continue
		}
		if _, dup := idx.unowned[f.ID]; !dup {
			idx.unowned[f.ID] = f
		}
	}
	return idx
}

// lookup returns the live flow a key resolves to: the mapped target when it
// still exists, otherwise an unowned live flow carrying the key.
func (idx liveIndex) lookup(key string) (ir.FlowState, bool) {
	if target, ok := idx.mapping.TargetID(key); ok {
		if f, live := idx.byID[target]; live {
			return f, true
		}
	}
	f, ok := idx.unowned[key]
	return f, ok
}

// validateDesired returns the selected desired flows with usable keys,
// recording malformed and duplicate keys.
func validateDesired(newState ir.ProjectState, opts Options, res *Result) []keyedFlow {
	seen := make(map[string]bool, len(newState.Flows))
	var out []keyedFlow
	for _, f := range newState.Flows {
		key := opts.key(f)
		if !opts.selected(f, key) {
			continue
		}
		if key == "" {
			res.Errors = append(res.Errors, SyncError{
				Code:    ErrCodeMalformedKey,
				FlowID:  f.ID,
				Message: fmt.Sprintf("flow %q has no external key", f.Version.DisplayName),
			})
			continue
		}
		if seen[key] {
			res.Errors = append(res.Errors, SyncError{
				Code:    ErrCodeDuplicateKey,
				FlowID:  f.ID,
				Key:     key,
				Message: fmt.Sprintf("external key %q appears more than once", key),
			})
			continue
		}
		seen[key] = true
		out = append(out, keyedFlow{key: key, flow: f})
	}
	return out
}

// planDesired decides the operation for one desired flow. A nil operation
// with a nil error means the flow is already in sync.
func planDesired(c keyedFlow, idx liveIndex, claimed map[string]string) (Operation, *SyncError) {
	newFP, err := ir.Fingerprint(c.flow.Version)
	if err != nil {
		return nil, &SyncError{Code: ErrCodeInvalidDefinition, FlowID: c.flow.ID, Key: c.key, Message: err.Error()}
	}

	live, exists := idx.lookup(c.key)
	if !exists {
		// Also covers a mapped target deleted out of band; the mapping entry
		// is overwritten on apply.
		return CreateFlow{Key: c.key, Flow: c.flow}, nil
	}
	target := live.ID
	if other, taken := claimed[target]; taken {
		return nil, &SyncError{
			Code:    ErrCodeConflictingTarget,
			FlowID:  c.flow.ID,
			Key:     c.key,
			Message: fmt.Sprintf("live flow %s is already claimed by key %q", target, other),
		}
	}
	claimed[target] = c.key

	oldFP, err := ir.Fingerprint(live.Version)
	if err != nil || oldFP != newFP {
		// Live content that cannot be fingerprinted is overwritten.
		return UpdateFlow{Key: c.key, NewFlow: c.flow, ExistingFlow: live}, nil
	}
	return nil, nil
}

// withholdUnresolved fails every candidate referencing a flow that is
// neither live through the mapping nor planned without error. Failing one
// candidate can unresolve others, so it repeats until nothing changes.
func withholdUnresolved(candidates []keyedFlow, failed []*SyncError, idx liveIndex) {
	for changed := true; changed; {
		changed = false

		available := make(map[string]bool, len(candidates))
		for i, c := range candidates {
			if failed[i] == nil {
				available[c.key] = true
			}
		}

		for i, c := range candidates {
			if failed[i] != nil {
				continue
			}
			for _, ref := range c.flow.Version.References {
				if _, live := idx.lookup(ref); available[ref] || live {
					continue
				}
				failed[i] = &SyncError{
					Code:    ErrCodeUnresolvedReference,
					FlowID:  c.flow.ID,
					Key:     c.key,
					Message: fmt.Sprintf("references flow %q which is neither released nor part of this plan", ref),
				}
				changed = true
				break
			}
		}
	}
}
