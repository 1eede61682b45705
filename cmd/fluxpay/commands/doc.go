// Package commands defines the fluxpay CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init, import     Create or import the wallet key
//   - address          Print the wallet address
//   - balance          Read a ledger balance
//   - channels         List channels on the clearing node
//   - open             Open (or reuse) a payment channel
//   - resize           Allocate ledger funds into a channel
//   - close            Settle a channel on chain
//   - pay              Transfer ledger funds to a recipient
//   - flow             Deposit, fund, pay and settle in one go
//   - workspace        Manage payroll workspaces and their channels
//   - employee         Register and find employees
//   - task             Assign, complete, approve and list tasks
//
// # Implementation
//
// The root command loads the TOML configuration and builds the offline
// dependency graph (stores, wallet, payroll bookkeeping) before any
// subcommand runs. Commands that talk to the clearing node unlock the wallet
// and call connect, which returns a connected app.App and a cleanup func.
package commands
