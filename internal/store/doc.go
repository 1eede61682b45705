// Package store provides file-based persistence for FluxPay's local data.
//
// It contains concrete implementations of the domain storage interfaces,
// serialising data as JSON on disk. All methods are concurrency-safe via
// internal locking, and every write goes through a temp file and rename.
// Stored files live under the user's configured home directory.
//
// The package includes stores for:
//   - The wallet key, sealed with a passphrase (WalletFileStore)
//   - Payroll workspaces (WorkspaceFileStore)
//   - Registered employees (EmployeeFileStore)
//   - Workspace tasks (TaskFileStore)
package store
