package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and schedulers return these
// (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: aggregate or record does not exist in the store
// - ErrConflict: optimistic concurrency precondition failed on commit
// - ErrTerminalState: event addressed an aggregate already in a terminal state
// - ErrIllegalTransition: the connector's transition table rejects the event
// - ErrUnavailable: downstream resource temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrTerminalState     = errors.New("terminal state")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrUnavailable       = errors.New("unavailable")
)
