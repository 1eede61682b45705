package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PaymentFlow parameterizes one deposit-fund-pay-settle run.
type PaymentFlow struct {
	Token         common.Address
	Asset         Asset
	DepositAmount *big.Int
	FundAmount    *big.Int
	PayAmount     *big.Int
	Recipient     common.Address
}

// FlowReport records what a payment flow did.
type FlowReport struct {
	Deposited bool
	DepositTx common.Hash
	// CustodyBefore and CustodyAfter are the custody balances of the token
	// around the deposit; nil when no deposit was submitted.
	CustodyBefore *big.Int
	CustodyAfter  *big.Int
	ChannelID     common.Hash
	Reused        bool
	FundedState   ChannelState
	Settlement    Settlement
}
