// Package app wires FluxPay's dependencies for the CLI.
//
// Config is read from TOML over built-in sandbox defaults. NewWire builds
// the offline stores and services (wallet, payroll bookkeeping). Connect
// adds a fresh session key, a clearing-node connection and the chain
// backend, and returns an App exposing the client operations.
package app
