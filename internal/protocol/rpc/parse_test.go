package rpc_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"fluxpay/internal/domain/types"
	"fluxpay/internal/protocol/rpc"
)

func TestParse_Response(t *testing.T) {
	require := require.New(t)
	env := rpc.Parse([]byte(`{"res":[7,"auth_challenge",{"challenge_message":"abc"},1700000000000],"sig":["0x01"]}`))
	require.NotNil(env)
	require.Equal(types.KindAuthChallenge, env.Kind)
	require.Equal(uint64(7), env.RequestID)
	require.Equal(uint64(1700000000000), env.Timestamp)

	challenge, err := rpc.DecodeChallenge(*env)
	require.NoError(err)
	require.Equal("abc", challenge)
}

func TestParse_ErrorForms(t *testing.T) {
	cases := map[string]struct {
		raw string
		id  uint64
		msg string
	}{
		"res error":      {`{"res":[3,"error",{"error":"channel has non-zero allocation"},1]}`, 3, "channel has non-zero allocation"},
		"res error text": {`{"res":[4,"error","boom",1]}`, 4, "boom"},
		"top level":      {`{"error":{"code":-32000,"message":"bad things"}}`, 0, "bad things"},
		"top level id":   {`{"error":{"id":9,"error":"nope"}}`, 9, "nope"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			env := rpc.Parse([]byte(tc.raw))
			require.NotNil(t, env)
			require.Equal(t, types.KindError, env.Kind)
			require.Equal(t, tc.id, env.RequestID)
			require.Equal(t, tc.msg, env.Error)
		})
	}
}

func TestParse_GarbageIsNil(t *testing.T) {
	for _, raw := range []string{
		``,
		`not json`,
		`{}`,
		`{"res":[]}`,
		`{"res":[1,"pong",{},1]}`,
		`{"res":["x","auth_verify",{},1]}`,
		`{"res":[1,2,3,4]}`,
		`[1,2,3]`,
	} {
		require.Nil(t, rpc.Parse([]byte(raw)), raw)
	}
}

func TestParse_BroadcastKinds(t *testing.T) {
	env := rpc.Parse([]byte(`{"res":[0,"tr",{"transactions":[]},1]}`))
	require.NotNil(t, env)
	require.Equal(t, types.KindTransfer, env.Kind)
	require.True(t, env.Kind.Broadcast())
	require.False(t, types.KindChannelClosed.Broadcast())
}

func TestDecodeLedgerBalances_NumberOrString(t *testing.T) {
	env := rpc.Parse([]byte(`{"res":[2,"get_ledger_balances",{"ledger_balances":[{"asset":"ytest.usd","amount":"12.5"},{"asset":"eth","amount":3}]},1]}`))
	require.NotNil(t, env)
	got, err := rpc.DecodeLedgerBalances(*env)
	require.NoError(t, err)
	require.Equal(t, []types.LedgerBalance{
		{Asset: "ytest.usd", Amount: "12.5"},
		{Asset: "eth", Amount: "3"},
	}, got)
}

func TestDecodeChannelUpdate(t *testing.T) {
	require := require.New(t)
	raw := `{"res":[5,"create_channel",{
		"channel_id":"0x1111111111111111111111111111111111111111111111111111111111111111",
		"channel":{"participants":["0x00000000000000000000000000000000000000aa","0x00000000000000000000000000000000000000bb"],
			"adjudicator":"0x7c7ccbc98469190849BCC6c926307794fDfB11F2","challenge":3600,"nonce":"42"},
		"state":{"intent":1,"version":0,"state_data":"0x","allocations":[
			{"destination":"0x00000000000000000000000000000000000000aa","token":"0x00000000000000000000000000000000000000cc","amount":"100000000000000000000000"}]},
		"server_signature":"0xabcd"},1]}`
	env := rpc.Parse([]byte(raw))
	require.NotNil(env)
	require.Equal(types.KindChannelCreated, env.Kind)

	u, err := rpc.DecodeChannelUpdate(*env)
	require.NoError(err)
	require.NotNil(u.Definition)
	require.Equal(uint64(3600), u.Definition.Challenge)
	require.Equal(uint64(42), u.Definition.Nonce)
	require.Equal(types.IntentInitialize, u.State.Intent)
	require.Equal("100000000000000000000000", u.State.Allocations[0].Amount.String())
	require.Equal([]byte{0xab, 0xcd}, u.ServerSignature)

	id, ok := rpc.ChannelIDOf(*env)
	require.True(ok)
	require.Equal(u.ChannelID, id)
}

func TestDecodeChannelUpdate_RejectsNegativeAmount(t *testing.T) {
	env := rpc.Parse([]byte(`{"res":[5,"resize_channel",{"channel_id":"0x1111111111111111111111111111111111111111111111111111111111111111",
		"state":{"intent":2,"version":1,"state_data":"0x","allocations":[{"destination":"0x00000000000000000000000000000000000000aa","token":"0x00000000000000000000000000000000000000cc","amount":"-1"}]},
		"server_signature":"0x01"},1]}`))
	require.NotNil(t, env)
	_, err := rpc.DecodeChannelUpdate(*env)
	require.Error(t, err)
}
