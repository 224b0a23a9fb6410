// Package protocol defines the sync wire messages.
//
// Every message is a JSON array whose first element is a tag:
//
//	["r", revision, state, build, serverTime]   server: full refresh
//	["p", baseRevision, [ops...], serverTime]   server: incremental patch
//	["r"]                                       client: request a refresh
//
// Patch ops use the compact encoding of package diff. Server times are Unix
// milliseconds.
//
// Decoding maps the tag to a typed [Message]; callers switch on the
// concrete type rather than on the raw tag.
package protocol
