package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"fluxpay/internal/domain/types"
)

// Contract-side shapes. Field names follow the ABI component names.
type (
	abiAllocation struct {
		Destination common.Address
		Token       common.Address
		Amount      *big.Int
	}

	abiChannel struct {
		Participants []common.Address
		Adjudicator  common.Address
		Challenge    uint64
		Nonce        uint64
	}

	abiState struct {
		Intent      uint8
		Version     *big.Int
		Data        []byte
		Allocations []abiAllocation
		Sigs        [][]byte
	}
)

var (
	bytes32Type, _     = abi.NewType("bytes32", "", nil)
	uint8Type, _       = abi.NewType("uint8", "", nil)
	uint64Type, _      = abi.NewType("uint64", "", nil)
	uint256Type, _     = abi.NewType("uint256", "", nil)
	bytesType, _       = abi.NewType("bytes", "", nil)
	addressType, _     = abi.NewType("address", "", nil)
	addressListType, _ = abi.NewType("address[]", "", nil)
	allocationsType, _ = abi.NewType("tuple[]", "", []abi.ArgumentMarshaling{
		{Name: "destination", Type: "address"},
		{Name: "token", Type: "address"},
		{Name: "amount", Type: "uint256"},
	})

	stateArgs = abi.Arguments{
		{Type: bytes32Type},
		{Type: uint8Type},
		{Type: uint256Type},
		{Type: bytesType},
		{Type: allocationsType},
	}

	channelArgs = abi.Arguments{
		{Type: addressListType},
		{Type: addressType},
		{Type: uint64Type},
		{Type: uint64Type},
		{Type: uint256Type},
	}
)

// EncodeState returns abi.encode(channelId, intent, version, data,
// allocations), the preimage every participant signs.
func EncodeState(channelID common.Hash, s types.ChannelState) ([]byte, error) {
	data := s.Data
	if data == nil {
		data = []byte{}
	}
	packed, err := stateArgs.Pack(
		[32]byte(channelID),
		uint8(s.Intent),
		new(big.Int).SetUint64(s.Version),
		data,
		toABIAllocations(s.Allocations),
	)
	if err != nil {
		return nil, errors.Wrap(err, "encode state")
	}
	return packed, nil
}

// StateHash returns keccak256 of EncodeState.
func StateHash(channelID common.Hash, s types.ChannelState) (common.Hash, error) {
	packed, err := EncodeState(channelID, s)
	if err != nil {
		return common.Hash{}, err
	}
	return ethcrypto.Keccak256Hash(packed), nil
}

// ChannelID derives the custody contract's id for def on chainID.
func ChannelID(def types.ChannelDefinition, chainID uint64) (common.Hash, error) {
	packed, err := channelArgs.Pack(
		def.Participants,
		def.Adjudicator,
		def.Challenge,
		def.Nonce,
		new(big.Int).SetUint64(chainID),
	)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "encode channel")
	}
	return ethcrypto.Keccak256Hash(packed), nil
}

func toABIAllocations(in []types.Allocation) []abiAllocation {
	out := make([]abiAllocation, 0, len(in))
	for _, a := range in {
		amount := a.Amount
		if amount == nil {
			amount = new(big.Int)
		}
		out = append(out, abiAllocation{Destination: a.Destination, Token: a.Token, Amount: amount})
	}
	return out
}

func toABIState(s types.ChannelState, sigs [][]byte) abiState {
	data := s.Data
	if data == nil {
		data = []byte{}
	}
	if sigs == nil {
		sigs = [][]byte{}
	}
	return abiState{
		Intent:      uint8(s.Intent),
		Version:     new(big.Int).SetUint64(s.Version),
		Data:        data,
		Allocations: toABIAllocations(s.Allocations),
		Sigs:        sigs,
	}
}

func toABIChannel(def types.ChannelDefinition) abiChannel {
	return abiChannel{
		Participants: def.Participants,
		Adjudicator:  def.Adjudicator,
		Challenge:    def.Challenge,
		Nonce:        def.Nonce,
	}
}
