// Package observability provides structured logging, the Prometheus
// registry and health endpoints shared by the ropesync server and client.
package observability
