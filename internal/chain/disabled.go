package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"fluxpay/internal/domain"
	"fluxpay/internal/domain/types"
)

// Disabled is a domain.Chain for clients without an RPC endpoint. Every
// call fails with ErrNoChain.
type Disabled struct{}

func (Disabled) TokenBalance(context.Context, common.Address, common.Address) (*big.Int, error) {
	return nil, types.ErrNoChain
}

func (Disabled) CustodyBalance(context.Context, common.Address, common.Address) (*big.Int, error) {
	return nil, types.ErrNoChain
}

func (Disabled) Deposit(context.Context, common.Address, *big.Int) (common.Hash, error) {
	return common.Hash{}, types.ErrNoChain
}

func (Disabled) CreateChannel(context.Context, types.ChannelUpdate) (common.Hash, error) {
	return common.Hash{}, types.ErrNoChain
}

func (Disabled) CloseChannel(context.Context, types.ChannelUpdate) (common.Hash, error) {
	return common.Hash{}, types.ErrNoChain
}

func (Disabled) WaitMined(context.Context, common.Hash) (types.Receipt, error) {
	return types.Receipt{}, types.ErrNoChain
}

var _ domain.Chain = Disabled{}
