package rpc

import (
	"github.com/ethereum/go-ethereum/common"

	"fluxpay/internal/domain/types"
)

// AuthVerifyParams is the body of auth_verify.
type AuthVerifyParams struct {
	Challenge string `json:"challenge"`
}

// ParticipantParams scopes get_ledger_balances and get_channels.
type ParticipantParams struct {
	Participant common.Address `json:"participant"`
	Status      string         `json:"status,omitempty"`
}

// CreateChannelParams is the body of create_channel.
type CreateChannelParams struct {
	ChainID uint64         `json:"chain_id"`
	Token   common.Address `json:"token"`
}

// ResizeChannelParams is the body of resize_channel.
type ResizeChannelParams struct {
	ChannelID        common.Hash    `json:"channel_id"`
	AllocateAmount   *Amount        `json:"allocate_amount"`
	FundsDestination common.Address `json:"funds_destination"`
}

// CloseChannelParams is the body of close_channel.
type CloseChannelParams struct {
	ChannelID        common.Hash    `json:"channel_id"`
	FundsDestination common.Address `json:"funds_destination"`
}

// TransferAllocation is one asset leg of a transfer.
type TransferAllocation struct {
	Asset  types.Asset `json:"asset"`
	Amount *Amount     `json:"amount"`
}

// TransferParams is the body of transfer.
type TransferParams struct {
	Destination common.Address       `json:"destination"`
	Allocations []TransferAllocation `json:"allocations"`
}
