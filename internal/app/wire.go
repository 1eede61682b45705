package app

import (
	"github.com/pkg/errors"

	"fluxpay/internal/domain"
	payrollsvc "fluxpay/internal/services/payroll"
	walletsvc "fluxpay/internal/services/wallet"
	"fluxpay/internal/store"
)

// Wire bundles the offline stores and services: everything the CLI needs
// that does not talk to the clearing node.
type Wire struct {
	Config     *Config
	Wallets    *walletsvc.Service
	Workspaces domain.WorkspaceStore
	Employees  domain.EmployeeStore
	Tasks      domain.TaskStore

	// Payroll without a channel service; channel operations need Connect.
	Payroll domain.PayrollService
}

// NewWire constructs the offline dependency graph from cfg.
func NewWire(cfg *Config) (*Wire, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if cfg.Home == "" {
		return nil, errors.New("config home directory is required")
	}

	// File-based stores
	walletStore := store.NewWalletFileStore(cfg.Home)
	workspaceStore := store.NewWorkspaceFileStore(cfg.Home)
	employeeStore := store.NewEmployeeFileStore(cfg.Home)
	taskStore := store.NewTaskFileStore(cfg.Home)

	return &Wire{
		Config:     cfg,
		Wallets:    walletsvc.New(walletStore),
		Workspaces: workspaceStore,
		Employees:  employeeStore,
		Tasks:      taskStore,
		Payroll:    payrollsvc.New(workspaceStore, employeeStore, taskStore, nil, nil),
	}, nil
}
