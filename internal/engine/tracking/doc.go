// Package tracking provides the revision ledger: the single authoritative
// record of the serialized state and its revision number.
//
// A [Ledger] starts at revision 0 with an initial state. Every accepted
// [Ledger.Publish] replaces the state and increments the revision by
// exactly one. Publishes are serialized through one writer goroutine, and
// readers load an immutable [Snapshot] through an atomic pointer, so no
// reader ever observes a revision paired with the wrong state.
//
// # Prepare and commit
//
// A [PrepareFunc] runs before each commit with the previous and next
// snapshots. Whatever it returns travels with the [Commit] as artifacts;
// if it fails the publish is abandoned and the previous snapshot stays
// authoritative. Observers are notified synchronously after each commit,
// in revision order.
//
//	l := tracking.NewLedger("A")
//	defer l.Close()
//
//	c, err := l.Publish(ctx, "AB")
//	// c.Prev.Revision == 0, c.Next.Revision == 1
//
// # History
//
// The ledger keeps a bounded window of recent snapshots for diagnostics.
// History is never rolled back; old entries are only evicted.
package tracking
