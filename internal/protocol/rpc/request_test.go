package rpc_test

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/raulk/clock"
	"github.com/stretchr/testify/require"

	"fluxpay/internal/crypto"
	"fluxpay/internal/domain"
	"fluxpay/internal/domain/types"
	"fluxpay/internal/protocol/rpc"
)

func newBuilder(t *testing.T) (*rpc.Builder, *crypto.SessionKey, *clock.Mock) {
	t.Helper()
	key, err := crypto.GenerateSessionKey()
	require.NoError(t, err)
	clk := clock.NewMock()
	clk.Set(time.Unix(1700000000, 0))
	return rpc.NewBuilder(key, clk), key, clk
}

func TestBuilder_SignsReqArray(t *testing.T) {
	require := require.New(t)
	b, key, _ := newBuilder(t)

	req, err := b.GetLedgerBalances(common.HexToAddress("0xaa"))
	require.NoError(err)
	require.Equal(rpc.MethodGetLedgerBalances, req.Method)

	in, err := rpc.ParseRequest(req.Frame)
	require.NoError(err)
	require.Equal(req.ID, in.ID)
	require.Equal(uint64(1700000000000), in.Timestamp)
	require.Len(in.Sigs, 1)

	signer, err := crypto.RecoverPayload(in.Req, in.Sigs[0])
	require.NoError(err)
	require.Equal(key.Address(), signer)

	var p rpc.ParticipantParams
	require.NoError(json.Unmarshal(in.Params, &p))
	require.Equal(common.HexToAddress("0xaa"), p.Participant)
}

func TestBuilder_IDsIncrease(t *testing.T) {
	b, _, _ := newBuilder(t)
	a, err := b.GetChannels(common.Address{}, "")
	require.NoError(t, err)
	c, err := b.GetChannels(common.Address{}, "")
	require.NoError(t, err)
	require.Greater(t, c.ID, a.ID)
}

func TestBuilder_AuthRequestIsUnsigned(t *testing.T) {
	require := require.New(t)
	b, key, _ := newBuilder(t)
	req, err := b.AuthRequest(domain.AuthPolicy{
		Wallet:      common.HexToAddress("0xaa"),
		SessionKey:  key.Address(),
		Application: "Test app",
		Allowances:  []domain.Allowance{{Asset: "ytest.usd", Amount: "1000000000"}},
		ExpiresAt:   1700003600,
		Scope:       "test.app",
	})
	require.NoError(err)
	require.Contains(string(req.Frame), `"sig":[]`)

	in, err := rpc.ParseRequest(req.Frame)
	require.NoError(err)
	var p domain.AuthPolicy
	require.NoError(json.Unmarshal(in.Params, &p))
	require.Equal(key.Address(), p.SessionKey)
	require.Equal("ytest.usd", string(p.Allowances[0].Asset))
}

func TestBuilder_AmountsAreDecimalStrings(t *testing.T) {
	b, _, _ := newBuilder(t)
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	req, err := b.Transfer(common.HexToAddress("0xbb"), "ytest.usd", huge)
	require.NoError(t, err)
	require.Contains(t, string(req.Frame), `"amount":"123456789012345678901234567890"`)

	in, err := rpc.ParseRequest(req.Frame)
	require.NoError(t, err)
	var p rpc.TransferParams
	require.NoError(t, json.Unmarshal(in.Params, &p))
	require.Equal(t, 0, p.Allocations[0].Amount.Int().Cmp(huge))
}

func TestEncodeResponse_ParsesBack(t *testing.T) {
	require := require.New(t)
	node, err := crypto.GenerateSessionKey()
	require.NoError(err)

	frame, err := rpc.EncodeError(11, "insufficient funds", 1, node)
	require.NoError(err)
	env := rpc.Parse(frame)
	require.NotNil(env)
	require.Equal(types.KindError, env.Kind)
	require.Equal(uint64(11), env.RequestID)

	perr := rpc.AsError(*env, rpc.MethodTransfer)
	require.ErrorIs(perr, types.ErrProtocol)
	require.Contains(perr.Error(), "insufficient funds")
}

func TestMatchers(t *testing.T) {
	id := common.HexToHash("0x01")
	other := common.HexToHash("0x02")
	payload := func(h common.Hash) json.RawMessage {
		b, _ := json.Marshal(map[string]any{"channel_id": h})
		return b
	}

	reply := rpc.Reply(5, types.KindLedgerBalances)
	require.True(t, reply(types.Envelope{Kind: types.KindLedgerBalances, RequestID: 5}))
	require.False(t, reply(types.Envelope{Kind: types.KindLedgerBalances, RequestID: 6}))
	require.True(t, reply(types.Envelope{Kind: types.KindError, RequestID: 5}))
	require.False(t, reply(types.Envelope{Kind: types.KindError, RequestID: 6}))
	require.False(t, reply(types.Envelope{Kind: types.KindError}))

	ev := rpc.ChannelEvent(types.KindChannelClosed, id, 9)
	require.True(t, ev(types.Envelope{Kind: types.KindChannelClosed, RequestID: 9}))
	require.True(t, ev(types.Envelope{Kind: types.KindChannelClosed, Payload: payload(id)}))
	require.False(t, ev(types.Envelope{Kind: types.KindChannelClosed, Payload: payload(other)}))
	require.False(t, ev(types.Envelope{Kind: types.KindChannelResized, RequestID: 9}))
	require.True(t, ev(types.Envelope{Kind: types.KindError, RequestID: 9}))
	require.False(t, ev(types.Envelope{Kind: types.KindError}))

	event := rpc.Event(types.KindTransfer, 3)
	require.True(t, event(types.Envelope{Kind: types.KindTransfer, RequestID: 0}))
	require.False(t, event(types.Envelope{Kind: types.KindError}))
}
