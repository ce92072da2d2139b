package domain

import "github.com/tedy97123/accountabiltyme/pkg/errs"

// ClaimLifecycleState tracks which point in the lifecycle graph (§4.5) a
// claim currently occupies, for transition checking prior to append.
type ClaimLifecycleState string

const (
	LifecycleNone            ClaimLifecycleState = ""
	LifecycleDeclared        ClaimLifecycleState = "declared"
	LifecycleOperationalized ClaimLifecycleState = "operationalized"
	LifecycleResolved        ClaimLifecycleState = "resolved"
)

// NextLifecycleState returns the lifecycle state a claim transitions to
// after appending an event of type t, or an error if the transition is
// illegal per the graph:
//
//	∅ → DECLARED → OPERATIONALIZED → (EVIDENCE_ADDED)* → RESOLVED
//
// EVIDENCE_ADDED is allowed in declared or operationalized states; RESOLVED
// is terminal.
func NextLifecycleState(current ClaimLifecycleState, t EventType) (ClaimLifecycleState, error) {
	switch t {
	case EventClaimDeclared:
		if current != LifecycleNone {
			return current, errs.ErrIllegalTransition
		}
		return LifecycleDeclared, nil
	case EventClaimOperationalized:
		if current != LifecycleDeclared {
			return current, errs.ErrIllegalTransition
		}
		return LifecycleOperationalized, nil
	case EventEvidenceAdded:
		if current != LifecycleDeclared && current != LifecycleOperationalized {
			return current, errs.ErrIllegalTransition
		}
		return current, nil // evidence does not itself advance the lifecycle state
	case EventClaimResolved:
		if current != LifecycleOperationalized {
			return current, errs.ErrIllegalTransition
		}
		return LifecycleResolved, nil
	default:
		return current, errs.ErrIllegalTransition
	}
}
