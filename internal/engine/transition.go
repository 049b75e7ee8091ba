package engine

import (
	"gridgate/internal/permission"
)

// Table is a per-connector transition table: it answers whether an event kind
// may be applied to an aggregate in a given state. The generic commit and
// replay machinery is shared across connectors; only the table (and the
// subset of event kinds a connector's protocol can produce) varies.
//
// Non-transitioning kinds (Answer, PollingWatermark) are not listed; the
// engine accepts them on any live aggregate.
type Table map[permission.Status]map[permission.EventKind]bool

// Allowed reports whether the table permits applying kind in state from.
func (t Table) Allowed(from permission.Status, kind permission.EventKind) bool {
	return t[from][kind]
}

// clone lets connector tables extend the base without sharing row maps.
func (t Table) clone() Table {
	out := make(Table, len(t))
	for state, row := range t {
		rowCopy := make(map[permission.EventKind]bool, len(row))
		for kind, ok := range row {
			rowCopy[kind] = ok
		}
		out[state] = rowCopy
	}
	return out
}

// With returns a copy of the table with the given kinds additionally allowed
// in state from.
func (t Table) With(from permission.Status, kinds ...permission.EventKind) Table {
	out := t.clone()
	row := out[from]
	if row == nil {
		row = make(map[permission.EventKind]bool, len(kinds))
		out[from] = row
	}
	for _, kind := range kinds {
		row[kind] = true
	}
	return out
}

// Without returns a copy of the table with the given kinds removed from
// state from.
func (t Table) Without(from permission.Status, kinds ...permission.EventKind) Table {
	out := t.clone()
	for _, kind := range kinds {
		delete(out[from], kind)
	}
	return out
}

// BaseTable is the transition graph shared by all connectors:
//
//	CREATED   -> VALIDATED | MALFORMED
//	VALIDATED -> SENT | UNABLE_TO_SEND
//	UNABLE_TO_SEND -> VALIDATED            (scheduled retry)
//	SENT      -> ACCEPTED | REJECTED/INVALID | TIMED_OUT
//	ACCEPTED  -> TERMINATED | REQUIRES_EXTERNAL_TERMINATION | REVOKED | FULFILLED
//	REQUIRES_EXTERNAL_TERMINATION -> TERMINATED | EXTERNALLY_TERMINATED
//	REJECTED  -> VALIDATED                 (granularity-downgrade compensating retry)
//	any non-terminal (and ACCEPTED/FULFILLED) -> EXTERNALLY_TERMINATED
//
// Connectors with an async send-ack step add the PENDING_ACKNOWLEDGEMENT rows
// via With.
func BaseTable() Table {
	t := Table{
		permission.StatusCreated: {
			permission.KindValidated: true,
			permission.KindMalformed: true,
		},
		permission.StatusValidated: {
			permission.KindSent:         true,
			permission.KindUnableToSend: true,
		},
		permission.StatusUnableToSend: {
			permission.KindValidated: true,
		},
		permission.StatusSent: {
			permission.KindAccepted: true,
			permission.KindRejected: true,
			permission.KindTimedOut: true,
		},
		permission.StatusAccepted: {
			permission.KindTerminated:           true,
			permission.KindTerminationRequested: true,
			permission.KindRevoked:              true,
			permission.KindFulfilled:            true,
		},
		permission.StatusRequiresExternalTermination: {
			permission.KindTerminated:           true,
			permission.KindExternallyTerminated: true,
		},
		// Compensating retry: a rejection for undeliverable granularity
		// re-enters VALIDATED at the next coarser supported granularity.
		permission.StatusRejected: {
			permission.KindValidated: true,
		},
	}

	// An unsolicited administrator revoke terminates any non-terminal
	// aggregate; it also supersedes ACCEPTED and FULFILLED because the
	// administrator's authority is final.
	for _, state := range []permission.Status{
		permission.StatusCreated,
		permission.StatusValidated,
		permission.StatusSent,
		permission.StatusUnableToSend,
		permission.StatusPendingAcknowledgement,
		permission.StatusAccepted,
		permission.StatusRequiresExternalTermination,
		permission.StatusFulfilled,
	} {
		t = t.With(state, permission.KindExternallyTerminated)
	}
	t = t.With(permission.StatusFulfilled, permission.KindRevoked)

	return t
}
