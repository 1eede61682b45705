// Package amount converts between human token amounts ("1.5") and the
// integer base units that travel on the wire and on-chain.
package amount
