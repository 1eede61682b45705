// Package sandbox is an in-memory clearing node and custody chain for local
// development and integration tests.
//
// Node speaks the clearnode wire protocol over websocket: it issues and
// verifies auth challenges, checks session-key signatures on every request,
// keeps a decimal ledger per account and a channel table, and co-signs
// channel states with its own key. FailNext injects an error reply for the
// next request of a method.
//
// Chain is an in-memory domain.Chain for one wallet. Deposits credit the
// node's ledger, and channel submissions check the node's signature.
package sandbox
