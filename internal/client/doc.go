// Package client implements the sync client: it mirrors the server's
// state from one Refresh and a stream of Patches, and redraws through a
// Renderer.
//
// A Mirror is the pure state machine. It records the server's build
// identifier on the first Refresh and demands a reload if it changes, and
// it answers a patch whose base revision differs from its own with exactly
// one refresh request. Client drives a Mirror over a websocket, reconnects
// with exponential backoff and coalesces redraws into at most one pending
// frame.
package client
