// Package eip712 builds the typed-data documents the wallet signs.
//
// The auth handshake asks the wallet to sign a Policy naming the challenge,
// the session key it authorizes, the allowances and the expiry. The domain
// carries only the application name.
package eip712
