package workflow

import "fmt"

// ResolutionError means a proposal id or party name did not resolve to
// exactly one entity. It is raised before any transition is built.
type ResolutionError struct {
	Reason string
}

func (e *ResolutionError) Error() string { return e.Reason }

// AuthorizationError means the initiating node is not allowed to run the
// workflow: wrong role, or insufficient balance.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string { return e.Reason }

// RemoteRejectionError means a counterparty's independent validation failed
// or it declined to sign. It aborts the whole workflow for every party.
type RemoteRejectionError struct {
	Party  string
	Reason string
}

func (e *RemoteRejectionError) Error() string {
	return fmt.Sprintf("%s rejected the transition: %s", e.Party, e.Reason)
}

// TimeoutError means a counterparty or the notary did not answer in time.
// Before notarization nothing durable was written and a fresh workflow may
// be started safely; from notarization on the outcome is unknown and must
// be resolved by re-querying committed state.
type TimeoutError struct {
	Stage          Status
	UnknownOutcome bool
}

func (e *TimeoutError) Error() string {
	if e.UnknownOutcome {
		return fmt.Sprintf("timed out during %s: outcome unknown, re-query committed state", e.Stage)
	}

	return fmt.Sprintf("timed out during %s", e.Stage)
}
