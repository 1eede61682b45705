package interfaces

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	domaintypes "fluxpay/internal/domain/types"
)

// WalletService creates, imports and unlocks the primary wallet key.
type WalletService interface {
	Generate(passphrase string) (common.Address, domaintypes.Fingerprint, error)
	Import(passphrase, hexKey string) (common.Address, domaintypes.Fingerprint, error)
	Address(passphrase string) (common.Address, error)
}

// AuthService runs the challenge/verify handshake for the session key.
type AuthService interface {
	Authenticate(ctx context.Context) error
	IsAuthenticated() bool
	State() domaintypes.AuthState
	// Require returns ErrNotAuthenticated unless the handshake has completed.
	Require() error
}

// LedgerService reads off-chain ledger balances.
type LedgerService interface {
	Balances(ctx context.Context, participant common.Address) ([]domaintypes.LedgerBalance, error)
	Balance(ctx context.Context, participant common.Address, asset domaintypes.Asset) (string, error)
}

// ChannelService drives the payment channel lifecycle.
type ChannelService interface {
	List(ctx context.Context, participant common.Address) ([]domaintypes.ChannelSummary, error)
	FindOpen(ctx context.Context, token common.Address) (common.Hash, bool, error)
	Open(ctx context.Context, token common.Address) (common.Hash, error)
	Acquire(ctx context.Context, token common.Address) (id common.Hash, reused bool, err error)
	Resize(ctx context.Context, id common.Hash, amount *big.Int, destination common.Address) (domaintypes.ChannelState, error)
	Close(ctx context.Context, id common.Hash, destination common.Address) (domaintypes.Settlement, error)
	Transfer(ctx context.Context, destination common.Address, asset domaintypes.Asset, amount *big.Int) error
	Current() (common.Hash, bool)
	Channel(id common.Hash) (domaintypes.Channel, bool)
}

// FlowService runs the deposit, fund, pay and settle sequence.
type FlowService interface {
	Execute(ctx context.Context, p domaintypes.PaymentFlow) (domaintypes.FlowReport, error)
}

// PayrollService keeps workspace bookkeeping and pays tasks over the
// workspace's channel.
type PayrollService interface {
	CreateWorkspace(name string, manager common.Address) (domaintypes.Workspace, error)
	Workspaces(manager common.Address) ([]domaintypes.Workspace, error)
	RegisterEmployee(addr common.Address, name string) (domaintypes.Employee, error)
	FindEmployees(term string) ([]domaintypes.Employee, error)
	AssignTask(workspaceID string, employee common.Address, title, description string, reward *big.Int) (domaintypes.Task, error)
	CompleteTask(taskID string, employee common.Address) (domaintypes.Task, error)
	Tasks(workspaceID string) ([]domaintypes.Task, error)
	OpenWorkspaceChannel(ctx context.Context, workspaceID string, token common.Address) (domaintypes.Workspace, error)
	ApproveAndPay(ctx context.Context, taskID string, asset domaintypes.Asset) (domaintypes.Task, error)
	SettleWorkspace(ctx context.Context, workspaceID string) (domaintypes.Settlement, error)
	Earnings(workspaceID string) ([]domaintypes.Earning, error)
}
