// Package engine provides the server-side document: rope-backed text whose
// edits are published as revisions of the shared ledger.
//
// The engine is built on several sub-packages:
//
//   - rope: persistent binary rope with character and line addressing
//   - diff: edit scripts between serialized snapshots
//   - tracking: the revision ledger
//   - history: undo/redo over rope snapshots
//
// # Thread Safety
//
// All Document operations are safe for concurrent use. Edits are
// serialized and each one is published before it becomes visible, so the
// document text and the ledger state never disagree after an edit returns.
//
// # Basic Usage
//
//	ledger := tracking.NewLedger("")
//	doc := engine.NewDocument(ledger)
//
//	rev, err := doc.Insert(ctx, 0, "Hello, World!", rope.Char) // rev 1
//	rev, err = doc.Replace(ctx, 7, 12, "Go", rope.Char)       // "Hello, Go!"
//	rev, err = doc.Undo(ctx)                                   // "Hello, World!"
//
// Line-addressed edits use the same calls with rope.Line:
//
//	doc.Insert(ctx, 1, "second line\n", rope.Line)
package engine
