// Package ledger reads off-chain ledger balances from the clearing node.
// Balances are never cached.
package ledger
