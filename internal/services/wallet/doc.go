// Package wallet manages the user's primary wallet key: generating or
// importing it, sealing it under a passphrase and unlocking it for signing.
//
// The passphrase must pass a basic strength policy before a key is sealed.
package wallet
