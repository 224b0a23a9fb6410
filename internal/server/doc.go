// Package server implements the sync server: it serves the revision
// ledger's state to websocket clients as one Refresh followed by a Patch
// per publish.
//
// Each connection moves through Connecting, Synced, Stale and
// Disconnected. A Hub computes each publish's patch once per granularity,
// before the ledger commits it, and enqueues the same encoded bytes to
// every Synced connection. A connection's outbound queue is drained by a
// single writer goroutine, so messages reach each client in order.
//
// A connection whose queue overflows is marked Stale and skipped. Once its
// queue drains, or when the client sends a request-refresh message, it
// receives a fresh Refresh and returns to Synced.
package server
