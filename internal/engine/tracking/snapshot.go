package tracking

import "time"

// Snapshot is one published (revision, state) pair.
// Snapshots are immutable and can be safely shared across goroutines.
type Snapshot struct {
	// Revision numbers start at 0 and increase by one per publish.
	Revision uint64

	// State is the serialized state at this revision.
	State string

	// Timestamp is when the revision was committed.
	Timestamp time.Time
}

// Age returns the time elapsed since the snapshot was committed.
func (s Snapshot) Age() time.Duration {
	return time.Since(s.Timestamp)
}

// Commit describes one accepted publish.
type Commit struct {
	Prev Snapshot
	Next Snapshot

	// Artifacts is whatever the ledger's PrepareFunc returned.
	Artifacts any
}

// PrepareFunc computes derived data for a pending commit. A non-nil error
// abandons the publish.
type PrepareFunc func(prev, next Snapshot) (any, error)

// CommitObserver is notified after each commit. OnCommit runs on the
// ledger's writer goroutine and must not block, publish or
// unregister itself.
type CommitObserver interface {
	OnCommit(c Commit)
}

// CommitObserverFunc adapts a function to CommitObserver.
type CommitObserverFunc func(c Commit)

// OnCommit calls f(c).
func (f CommitObserverFunc) OnCommit(c Commit) {
	f(c)
}
