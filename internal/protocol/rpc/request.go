package rpc

import (
	"encoding/json"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/raulk/clock"

	"fluxpay/internal/domain"
)

// Request is an encoded outbound frame and the id a reply will echo.
type Request struct {
	ID     uint64
	Method string
	Frame  []byte
}

type requestFrame struct {
	Req json.RawMessage `json:"req"`
	Sig []string        `json:"sig"`
}

// Builder encodes requests with monotonically increasing ids, signing each
// with the session key.
type Builder struct {
	signer domain.MessageSigner
	clock  clock.Clock
	seq    atomic.Uint64
}

// NewBuilder returns a Builder signing with signer. A nil clk uses the wall clock.
func NewBuilder(signer domain.MessageSigner, clk clock.Clock) *Builder {
	if clk == nil {
		clk = clock.New()
	}
	return &Builder{signer: signer, clock: clk}
}

// AuthRequest opens the handshake for the session key named in p. It is
// not signed.
func (b *Builder) AuthRequest(p domain.AuthPolicy) (Request, error) {
	return b.encode(MethodAuthRequest, p, nil)
}

// AuthVerify answers a challenge with the wallet's typed-data signature.
func (b *Builder) AuthVerify(challenge string, walletSig []byte) (Request, error) {
	return b.encode(MethodAuthVerify, AuthVerifyParams{Challenge: challenge}, func([]byte) ([]string, error) {
		return []string{hexutil.Encode(walletSig)}, nil
	})
}

// GetLedgerBalances asks for participant's off-chain ledger.
func (b *Builder) GetLedgerBalances(participant common.Address) (Request, error) {
	return b.signed(MethodGetLedgerBalances, ParticipantParams{Participant: participant})
}

// GetChannels lists participant's channels, optionally filtered by status.
func (b *Builder) GetChannels(participant common.Address, status string) (Request, error) {
	return b.signed(MethodGetChannels, ParticipantParams{Participant: participant, Status: status})
}

// CreateChannel asks the node to prepare a channel for token on chainID.
func (b *Builder) CreateChannel(chainID uint64, token common.Address) (Request, error) {
	return b.signed(MethodCreateChannel, CreateChannelParams{ChainID: chainID, Token: token})
}

// ResizeChannel allocates amount from the ledger into the channel.
func (b *Builder) ResizeChannel(id common.Hash, amount *big.Int, destination common.Address) (Request, error) {
	return b.signed(MethodResizeChannel, ResizeChannelParams{
		ChannelID:        id,
		AllocateAmount:   NewAmount(amount),
		FundsDestination: destination,
	})
}

// CloseChannel asks the node to co-sign a final state paying out to destination.
func (b *Builder) CloseChannel(id common.Hash, destination common.Address) (Request, error) {
	return b.signed(MethodCloseChannel, CloseChannelParams{ChannelID: id, FundsDestination: destination})
}

// Transfer moves amount of asset to destination on the off-chain ledger.
func (b *Builder) Transfer(destination common.Address, asset domain.Asset, amount *big.Int) (Request, error) {
	return b.signed(MethodTransfer, TransferParams{
		Destination: destination,
		Allocations: []TransferAllocation{{Asset: asset, Amount: NewAmount(amount)}},
	})
}

func (b *Builder) signed(method string, params any) (Request, error) {
	return b.encode(method, params, func(req []byte) ([]string, error) {
		sig, err := b.signer.Sign(req)
		if err != nil {
			return nil, errors.Wrapf(err, "sign %s", method)
		}
		return []string{hexutil.Encode(sig)}, nil
	})
}

func (b *Builder) encode(method string, params any, sign func(req []byte) ([]string, error)) (Request, error) {
	id := b.seq.Add(1)
	ts := uint64(b.clock.Now().UnixMilli())

	req, err := json.Marshal([]any{id, method, params, ts})
	if err != nil {
		return Request{}, errors.Wrapf(err, "encode %s", method)
	}
	sigs := []string{}
	if sign != nil {
		if sigs, err = sign(req); err != nil {
			return Request{}, err
		}
	}
	frame, err := json.Marshal(requestFrame{Req: req, Sig: sigs})
	if err != nil {
		return Request{}, errors.Wrapf(err, "encode %s", method)
	}
	return Request{ID: id, Method: method, Frame: frame}, nil
}
