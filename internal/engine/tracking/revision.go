package tracking

import "sync"

// DefaultHistory is the default number of snapshots kept for lookup.
const DefaultHistory = 64

// revisionStore keeps the most recent snapshots in a bounded window.
// Revisions arrive in increasing order, so eviction always drops the
// oldest entry.
type revisionStore struct {
	mu         sync.RWMutex
	revisions  map[uint64]Snapshot
	maxEntries int
	oldest     uint64
}

// newRevisionStore creates a new revision store with the given capacity.
func newRevisionStore(maxEntries int) *revisionStore {
	if maxEntries <= 0 {
		maxEntries = DefaultHistory
	}
	return &revisionStore{
		revisions:  make(map[uint64]Snapshot, maxEntries),
		maxEntries: maxEntries,
	}
}

// Add stores a snapshot, evicting old entries if necessary.
func (rs *revisionStore) Add(s Snapshot) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if len(rs.revisions) == 0 {
		rs.oldest = s.Revision
	}
	rs.revisions[s.Revision] = s

	for len(rs.revisions) > rs.maxEntries {
		delete(rs.revisions, rs.oldest)
		rs.oldest++
	}
}

// Get retrieves a snapshot by revision.
func (rs *revisionStore) Get(rev uint64) (Snapshot, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	s, ok := rs.revisions[rev]
	return s, ok
}

// List returns the stored snapshots oldest first.
func (rs *revisionStore) List() []Snapshot {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	out := make([]Snapshot, 0, len(rs.revisions))
	for rev := rs.oldest; len(out) < len(rs.revisions); rev++ {
		if s, ok := rs.revisions[rev]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of stored snapshots.
func (rs *revisionStore) Len() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.revisions)
}
