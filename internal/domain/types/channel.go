package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ChannelStatus is the local view of a channel's lifecycle.
type ChannelStatus int

const (
	ChannelAbsent ChannelStatus = iota
	ChannelPendingCreate
	ChannelOpen
	ChannelPendingResize
	ChannelPendingClose
	ChannelClosed
)

func (s ChannelStatus) String() string {
	switch s {
	case ChannelAbsent:
		return "absent"
	case ChannelPendingCreate:
		return "pending-create"
	case ChannelOpen:
		return "open"
	case ChannelPendingResize:
		return "pending-resize"
	case ChannelPendingClose:
		return "pending-close"
	case ChannelClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StateIntent tags what a signed channel state is for.
type StateIntent uint8

const (
	IntentOperate StateIntent = iota
	IntentInitialize
	IntentResize
	IntentFinalize
)

// Allocation assigns part of a channel's locked value to a destination.
type Allocation struct {
	Destination common.Address `json:"destination"`
	Token       common.Address `json:"token"`
	Amount      *big.Int       `json:"amount"`
}

// ChannelDefinition is the immutable part of a channel as the custody
// contract sees it.
type ChannelDefinition struct {
	Participants []common.Address `json:"participants"`
	Adjudicator  common.Address   `json:"adjudicator"`
	Challenge    uint64           `json:"challenge"`
	Nonce        uint64           `json:"nonce"`
}

// ChannelState is one versioned, signed state of a channel.
type ChannelState struct {
	Intent      StateIntent  `json:"intent"`
	Version     uint64       `json:"version"`
	Data        []byte       `json:"state_data"`
	Allocations []Allocation `json:"allocations"`
	Sigs        [][]byte     `json:"sigs,omitempty"`
}

// Total returns the sum of all allocation amounts.
func (s ChannelState) Total() *big.Int {
	return SumAllocations(s.Allocations)
}

// SumAllocations adds the amounts of allocs; nil amounts count as zero.
func SumAllocations(allocs []Allocation) *big.Int {
	total := new(big.Int)
	for _, a := range allocs {
		if a.Amount != nil {
			total.Add(total, a.Amount)
		}
	}
	return total
}

// ChannelUpdate is a node-signed channel transition as carried by the
// create_channel, resize_channel and close_channel replies.
type ChannelUpdate struct {
	ChannelID       common.Hash        `json:"channel_id"`
	Definition      *ChannelDefinition `json:"channel,omitempty"`
	State           ChannelState       `json:"state"`
	ServerSignature []byte             `json:"server_signature"`
}

// Channel is the client's cached copy of the node's authoritative channel.
type Channel struct {
	ID          common.Hash       `json:"channel_id"`
	Token       common.Address    `json:"token"`
	Definition  ChannelDefinition `json:"channel"`
	Version     uint64            `json:"version"`
	Allocations []Allocation      `json:"allocations"`
	Status      ChannelStatus     `json:"status"`
}

// Locked returns the channel's locked value.
func (c Channel) Locked() *big.Int { return SumAllocations(c.Allocations) }

// ChannelSummary is one entry of a get_channels reply.
type ChannelSummary struct {
	ChannelID   common.Hash    `json:"channel_id"`
	Participant common.Address `json:"participant"`
	Status      string         `json:"status"`
	Token       common.Address `json:"token"`
	Amount      *big.Int       `json:"amount"`
	ChainID     uint64         `json:"chain_id"`
	Version     uint64         `json:"version"`
}

// Settlement is the outcome of a confirmed on-chain close.
type Settlement struct {
	ChannelID common.Hash  `json:"channel_id"`
	State     ChannelState `json:"state"`
	TxHash    common.Hash  `json:"tx_hash"`
}

// Receipt is the part of an on-chain transaction receipt the client needs.
type Receipt struct {
	TxHash      common.Hash `json:"tx_hash"`
	BlockNumber uint64      `json:"block_number"`
	Success     bool        `json:"success"`
}
