// Package syncer contains the sync orchestrator: the component pages talk
// to for persisting and reading discoveries. It owns the online/offline
// state machine, guarantees at most one in-flight reconciliation per
// execution context and publishes lifecycle events to subscribers.
package syncer

// EventType identifies a state transition published to subscribers.
type EventType string

const (
	EventOnline           EventType = "online"
	EventOffline          EventType = "offline"
	EventReconcileStart   EventType = "reconcile-start"
	EventReconcileSuccess EventType = "reconcile-success"
	EventReconcileError   EventType = "reconcile-error"
	EventReconcileEnd     EventType = "reconcile-end"
	EventSaved            EventType = "saved"
)

// Event is one state transition. Fields beyond Type are populated per kind:
// Count for reconcile-success, Reason for reconcile-error, Offline for
// saved.
type Event struct {
	Type EventType

	// Count is the number of queue rows cleared by a successful
	// reconciliation.
	Count int

	// Reason describes a failed reconciliation.
	Reason string

	// Offline distinguishes "saved locally, will sync later" from a
	// direct remote save. The surrounding application surfaces this to
	// the user, so the distinction must be preserved.
	Offline bool
}

// Source tags where loaded data came from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)
