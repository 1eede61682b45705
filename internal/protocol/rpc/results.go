package rpc

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"

	"fluxpay/internal/domain/types"
)

// ChallengeResult is the body of auth_challenge.
type ChallengeResult struct {
	ChallengeMessage string `json:"challenge_message"`
}

// AuthVerifyResult is the body of a successful auth_verify.
type AuthVerifyResult struct {
	Address    common.Address `json:"address"`
	SessionKey common.Address `json:"session_key"`
	Success    bool           `json:"success"`
}

// LedgerBalance is one entry of get_ledger_balances.
type LedgerBalance struct {
	Asset  types.Asset `json:"asset"`
	Amount Decimal     `json:"amount"`
}

// LedgerBalancesResult is the body of get_ledger_balances.
type LedgerBalancesResult struct {
	LedgerBalances []LedgerBalance `json:"ledger_balances"`
}

// ChannelEntry is one entry of get_channels.
type ChannelEntry struct {
	ChannelID   common.Hash    `json:"channel_id"`
	Participant common.Address `json:"participant"`
	Status      string         `json:"status"`
	Token       common.Address `json:"token"`
	Amount      *Amount        `json:"amount"`
	ChainID     Uint64         `json:"chain_id"`
	Version     Uint64         `json:"version"`
}

// ChannelsResult is the body of get_channels.
type ChannelsResult struct {
	Channels []ChannelEntry `json:"channels"`
}

// Allocation is a channel allocation on the wire.
type Allocation struct {
	Destination common.Address `json:"destination"`
	Token       common.Address `json:"token"`
	Amount      *Amount        `json:"amount"`
}

// State is a channel state on the wire.
type State struct {
	Intent      uint8         `json:"intent"`
	Version     Uint64        `json:"version"`
	StateData   hexutil.Bytes `json:"state_data"`
	Allocations []Allocation  `json:"allocations"`
}

// ChannelDefinition is the fixed channel parameters on the wire.
type ChannelDefinition struct {
	Participants []common.Address `json:"participants"`
	Adjudicator  common.Address   `json:"adjudicator"`
	Challenge    Uint64           `json:"challenge"`
	Nonce        Uint64           `json:"nonce"`
}

// ChannelUpdateResult is the body of create_channel, resize_channel and
// close_channel. Channel is only present for create_channel.
type ChannelUpdateResult struct {
	ChannelID       common.Hash        `json:"channel_id"`
	Channel         *ChannelDefinition `json:"channel,omitempty"`
	State           State              `json:"state"`
	ServerSignature hexutil.Bytes      `json:"server_signature"`
}

// TransferEntry is one ledger movement reported by transfer.
type TransferEntry struct {
	ID          Uint64         `json:"id"`
	FromAccount common.Address `json:"from_account"`
	ToAccount   common.Address `json:"to_account"`
	Asset       types.Asset    `json:"asset"`
	Amount      Decimal        `json:"amount"`
}

// TransferResult is the body of transfer and of the tr notification.
type TransferResult struct {
	Transactions []TransferEntry `json:"transactions"`
}

// FromState converts a domain state to its wire form.
func FromState(s types.ChannelState) State {
	out := State{
		Intent:      uint8(s.Intent),
		Version:     Uint64(s.Version),
		StateData:   s.Data,
		Allocations: make([]Allocation, 0, len(s.Allocations)),
	}
	for _, a := range s.Allocations {
		out.Allocations = append(out.Allocations, Allocation{
			Destination: a.Destination,
			Token:       a.Token,
			Amount:      NewAmount(a.Amount),
		})
	}
	return out
}

// ToDomain converts a wire state to its domain form.
func (s State) ToDomain() types.ChannelState {
	out := types.ChannelState{
		Intent:      types.StateIntent(s.Intent),
		Version:     uint64(s.Version),
		Data:        s.StateData,
		Allocations: make([]types.Allocation, 0, len(s.Allocations)),
	}
	for _, a := range s.Allocations {
		out.Allocations = append(out.Allocations, types.Allocation{
			Destination: a.Destination,
			Token:       a.Token,
			Amount:      a.Amount.Int(),
		})
	}
	return out
}

// FromDefinition converts a domain channel definition to its wire form.
func FromDefinition(d types.ChannelDefinition) *ChannelDefinition {
	return &ChannelDefinition{
		Participants: d.Participants,
		Adjudicator:  d.Adjudicator,
		Challenge:    Uint64(d.Challenge),
		Nonce:        Uint64(d.Nonce),
	}
}

// ToDomain converts a wire channel definition to its domain form.
func (d ChannelDefinition) ToDomain() types.ChannelDefinition {
	return types.ChannelDefinition{
		Participants: d.Participants,
		Adjudicator:  d.Adjudicator,
		Challenge:    uint64(d.Challenge),
		Nonce:        uint64(d.Nonce),
	}
}

// DecodeChallenge extracts the challenge from an auth_challenge envelope.
func DecodeChallenge(env types.Envelope) (string, error) {
	var r ChallengeResult
	if err := decode(env, types.KindAuthChallenge, &r); err != nil {
		return "", err
	}
	if r.ChallengeMessage == "" {
		return "", errors.New("auth_challenge without challenge_message")
	}
	return r.ChallengeMessage, nil
}

// DecodeAuthVerify decodes an auth_verify envelope.
func DecodeAuthVerify(env types.Envelope) (AuthVerifyResult, error) {
	var r AuthVerifyResult
	err := decode(env, types.KindAuthVerify, &r)
	return r, err
}

// DecodeLedgerBalances decodes a get_ledger_balances envelope.
func DecodeLedgerBalances(env types.Envelope) ([]types.LedgerBalance, error) {
	var r LedgerBalancesResult
	if err := decode(env, types.KindLedgerBalances, &r); err != nil {
		return nil, err
	}
	out := make([]types.LedgerBalance, 0, len(r.LedgerBalances))
	for _, b := range r.LedgerBalances {
		out = append(out, types.LedgerBalance{Asset: b.Asset, Amount: string(b.Amount)})
	}
	return out, nil
}

// DecodeChannels decodes a get_channels envelope.
func DecodeChannels(env types.Envelope) ([]types.ChannelSummary, error) {
	var r ChannelsResult
	if err := decode(env, types.KindChannelsList, &r); err != nil {
		return nil, err
	}
	out := make([]types.ChannelSummary, 0, len(r.Channels))
	for _, c := range r.Channels {
		out = append(out, types.ChannelSummary{
			ChannelID:   c.ChannelID,
			Participant: c.Participant,
			Status:      c.Status,
			Token:       c.Token,
			Amount:      c.Amount.Int(),
			ChainID:     uint64(c.ChainID),
			Version:     uint64(c.Version),
		})
	}
	return out, nil
}

// DecodeChannelUpdate decodes a create, resize or close envelope.
func DecodeChannelUpdate(env types.Envelope) (types.ChannelUpdate, error) {
	switch env.Kind {
	case types.KindChannelCreated, types.KindChannelResized, types.KindChannelClosed:
	default:
		return types.ChannelUpdate{}, errors.Errorf("unexpected %s envelope", env.Kind)
	}
	var r ChannelUpdateResult
	if err := json.Unmarshal(env.Payload, &r); err != nil {
		return types.ChannelUpdate{}, errors.Wrapf(err, "decode %s", env.Method)
	}
	u := types.ChannelUpdate{
		ChannelID:       r.ChannelID,
		State:           r.State.ToDomain(),
		ServerSignature: r.ServerSignature,
	}
	if r.Channel != nil {
		def := r.Channel.ToDomain()
		u.Definition = &def
	}
	return u, nil
}

// DecodeTransfer decodes a transfer reply or tr notification.
func DecodeTransfer(env types.Envelope) ([]TransferEntry, error) {
	var r TransferResult
	err := decode(env, types.KindTransfer, &r)
	return r.Transactions, err
}

// ChannelIDOf peeks at the channel_id field of a payload.
func ChannelIDOf(env types.Envelope) (common.Hash, bool) {
	var p struct {
		ChannelID *common.Hash `json:"channel_id"`
	}
	if err := json.Unmarshal(env.Payload, &p); err != nil || p.ChannelID == nil {
		return common.Hash{}, false
	}
	return *p.ChannelID, true
}

func decode(env types.Envelope, want types.Kind, out any) error {
	if env.Kind != want {
		return errors.Errorf("expected %s envelope, got %s", want, env.Kind)
	}
	if err := json.Unmarshal(env.Payload, out); err != nil {
		return errors.Wrapf(err, "decode %s", env.Method)
	}
	return nil
}
