// Package metrics exposes Prometheus counters for the clearing-node
// connection, the auth handshake and on-chain submissions.
package metrics
