package syncer

import "time"

// State is a sync orchestrator machine state.
type State string

const (
	StateIdle       State = "idle"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StatePaused     State = "paused"
	StateConflict   State = "conflict"
)

// CompletedInfo describes the outcome of a successful sync pass.
type CompletedInfo struct {
	ItemsSynced int
	Timestamp   time.Time
	Duration    time.Duration
}

// Status is a point-in-time snapshot of the orchestrator, exposed so a
// presentation layer can build a sync surface ("last synced N minutes ago",
// "sync paused", "N conflicts pending") without reaching into the machine.
type Status struct {
	State         State
	RetryCount    int
	LastSyncAt    *time.Time
	LastError     string
	GaveUp        bool
	PendingCount  int
	ConflictCount int
	LastCompleted *CompletedInfo
}

// StateListener observes machine state transitions. Listeners run
// synchronously on the transitioning goroutine and must not block.
type StateListener func(State)

// Resolution selects which side wins when resolving a conflict.
type Resolution string

const (
	// ResolutionKeepLocal pushes the local payload to the remote.
	ResolutionKeepLocal Resolution = "keep_local"
	// ResolutionAcceptRemote overwrites the local payload with the held
	// remote version.
	ResolutionAcceptRemote Resolution = "accept_remote"
)
