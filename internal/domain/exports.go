package domain

import (
	interfaces "fluxpay/internal/domain/interfaces"
	types "fluxpay/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Fingerprint       = types.Fingerprint
	Asset             = types.Asset
	LedgerBalance     = types.LedgerBalance
	Allowance         = types.Allowance
	AuthPolicy        = types.AuthPolicy
	AuthState         = types.AuthState
	ChannelStatus     = types.ChannelStatus
	StateIntent       = types.StateIntent
	Allocation        = types.Allocation
	ChannelDefinition = types.ChannelDefinition
	ChannelState      = types.ChannelState
	ChannelUpdate     = types.ChannelUpdate
	Channel           = types.Channel
	ChannelSummary    = types.ChannelSummary
	Settlement        = types.Settlement
	Receipt           = types.Receipt
	Kind              = types.Kind
	Envelope          = types.Envelope
	Matcher           = types.Matcher
	Workspace         = types.Workspace
	Employee          = types.Employee
	Task              = types.Task
	TaskStatus        = types.TaskStatus
	Earning           = types.Earning
	PaymentFlow       = types.PaymentFlow
	FlowReport        = types.FlowReport
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	Wallet         = interfaces.Wallet
	MessageSigner  = interfaces.MessageSigner
	Chain          = interfaces.Chain
	Waiter         = interfaces.Waiter
	Connection     = interfaces.Connection
	WalletStore    = interfaces.WalletStore
	WorkspaceStore = interfaces.WorkspaceStore
	EmployeeStore  = interfaces.EmployeeStore
	TaskStore      = interfaces.TaskStore
	WalletService  = interfaces.WalletService
	AuthService    = interfaces.AuthService
	LedgerService  = interfaces.LedgerService
	ChannelService = interfaces.ChannelService
	FlowService    = interfaces.FlowService
	PayrollService = interfaces.PayrollService
)

// Sentinel errors shared across packages.
var (
	ErrNotAuthenticated       = types.ErrNotAuthenticated
	ErrProtocol               = types.ErrProtocol
	ErrTxFailed               = types.ErrTxFailed
	ErrNoChannel              = types.ErrNoChannel
	ErrChannelBusy            = types.ErrChannelBusy
	ErrStaleVersion           = types.ErrStaleVersion
	ErrMissingServerSignature = types.ErrMissingServerSignature
	ErrAlreadySettling        = types.ErrAlreadySettling
	ErrNoChain                = types.ErrNoChain
	ErrNotFound               = types.ErrNotFound
)
