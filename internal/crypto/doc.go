// Package crypto holds the ECDSA keys FluxPay signs with.
//
// Contents
//
//   - SessionKey: the ephemeral secp256k1 key generated per client instance.
//     It signs clearing-node requests over keccak256 of the request array
//     with no message prefix.
//   - WalletKey: the user's primary key. It signs EIP-712 typed data for the
//     auth handshake, EIP-191 messages for channel states and on-chain
//     transactions.
//   - Recovery helpers used to verify the signatures above.
//   - Short address fingerprints for display (Fingerprint).
//   - Best-effort wiping of key material (Wipe).
//
// # Notes
//
// Signatures are 65 bytes [R || S || V] with V in {27, 28}, matching what
// Ethereum wallets produce. Recovery accepts either V convention.
package crypto
