package interfaces

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	domaintypes "fluxpay/internal/domain/types"
)

// Chain submits custody transactions and reads on-chain balances.
// Submissions return the transaction hash; WaitMined blocks for the receipt.
type Chain interface {
	TokenBalance(ctx context.Context, account, token common.Address) (*big.Int, error)
	CustodyBalance(ctx context.Context, account, token common.Address) (*big.Int, error)
	Deposit(ctx context.Context, token common.Address, amount *big.Int) (common.Hash, error)
	CreateChannel(ctx context.Context, update domaintypes.ChannelUpdate) (common.Hash, error)
	CloseChannel(ctx context.Context, update domaintypes.ChannelUpdate) (common.Hash, error)
	WaitMined(ctx context.Context, tx common.Hash) (domaintypes.Receipt, error)
}
