// Package main runs an in-memory clearing node for local development of
// the fluxpay client. It speaks the same websocket protocol as the hosted
// sandbox: auth_request/auth_verify, get_ledger_balances, get_channels,
// create_channel, resize_channel, close_channel and transfer.
//
// Usage
//
//	sandbox-node --listen :8080 --credit 0xabc…=500 --seed-channel 0xabc…=100
//
// The websocket endpoint is served at /ws. --credit adds ledger funds in the
// default asset and --seed-channel records an already-open channel for an
// owner, so the client can exercise channel reuse without a chain.
//
// Behaviour
//
//   - All state is held in memory and lost on process exit.
//   - The node signs channel states with a key generated at start.
//   - Nothing is submitted to a chain; channels are open as soon as the
//     node prepares them.
package main
