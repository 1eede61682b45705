// Package chain talks to the custody contract and the ERC-20 token through
// go-ethereum.
//
// Client implements domain.Chain: it deposits into custody (approving the
// token first when needed), creates and closes channels with co-signed
// states and waits for receipts by polling. Disabled stands in when no RPC
// endpoint is configured.
package chain
