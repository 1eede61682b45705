// Package auth runs the clearing-node handshake that authorizes the
// ephemeral session key to act for the user's wallet.
//
// The handshake moves Idle -> AwaitingChallenge -> AwaitingVerify ->
// Authenticated. Any failure returns to Idle. Once authenticated, further
// Authenticate calls return immediately until the policy expires.
package auth
