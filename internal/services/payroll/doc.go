// Package payroll keeps workspace, employee and task bookkeeping and pays
// approved tasks over the workspace's payment channel.
//
// A workspace owns at most one channel at a time. Task rewards are sent as
// ledger transfers while the channel is open, and settling the workspace
// closes the channel on-chain and clears it from the workspace.
package payroll
