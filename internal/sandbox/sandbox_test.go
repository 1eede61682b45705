package sandbox_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"fluxpay/internal/domain/types"
	"fluxpay/internal/sandbox"
)

var (
	owner = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	token = common.HexToAddress("0xDB9F293e3898c9E5536A3be1b0C56c89d2b32DEb")
)

func TestChain_DepositCreditsLedger(t *testing.T) {
	ctx := context.Background()
	node, err := sandbox.NewNode(sandbox.WithAsset(token, "usdc"))
	require.NoError(t, err)
	c := sandbox.NewChain(owner, node)
	c.SetTokenBalance(token, big.NewInt(500))

	tx, err := c.Deposit(ctx, token, big.NewInt(100))
	require.NoError(t, err)
	r, err := c.WaitMined(ctx, tx)
	require.NoError(t, err)
	require.True(t, r.Success)

	bal, err := c.TokenBalance(ctx, owner, token)
	require.NoError(t, err)
	require.Equal(t, "400", bal.String())
	custody, err := c.CustodyBalance(ctx, owner, token)
	require.NoError(t, err)
	require.Equal(t, "100", custody.String())
	require.Equal(t, "100", node.Balance(owner, "usdc"))

	_, err = c.Deposit(ctx, token, big.NewInt(1000))
	require.Error(t, err)
}

func TestChain_FailNextReverts(t *testing.T) {
	ctx := context.Background()
	c := sandbox.NewChain(owner, nil)
	c.SetTokenBalance(token, big.NewInt(10))
	c.FailNext(sandbox.OpDeposit)

	tx, err := c.Deposit(ctx, token, big.NewInt(5))
	require.NoError(t, err)
	r, err := c.WaitMined(ctx, tx)
	require.ErrorIs(t, err, types.ErrTxFailed)
	require.False(t, r.Success)

	bal, _ := c.TokenBalance(ctx, owner, token)
	require.Equal(t, "10", bal.String())
	require.Equal(t, []string{sandbox.OpDeposit}, c.Calls())
}

func TestChain_RejectsUnsignedState(t *testing.T) {
	node, err := sandbox.NewNode()
	require.NoError(t, err)
	c := sandbox.NewChain(owner, node)
	_, err = c.CloseChannel(context.Background(), types.ChannelUpdate{ChannelID: common.HexToHash("0x01")})
	require.ErrorIs(t, err, types.ErrMissingServerSignature)
}

func TestNode_CreditAndSeed(t *testing.T) {
	node, err := sandbox.NewNode()
	require.NoError(t, err)
	require.NoError(t, node.Credit(owner, sandbox.DefaultAsset, "1.5"))
	require.NoError(t, node.Credit(owner, sandbox.DefaultAsset, "2"))
	require.Equal(t, "3.5", node.Balance(owner, sandbox.DefaultAsset))
	require.Error(t, node.Credit(owner, sandbox.DefaultAsset, "lots"))

	id, err := node.SeedChannel(owner, token, big.NewInt(7))
	require.NoError(t, err)
	status, ok := node.ChannelStatus(id)
	require.True(t, ok)
	require.Equal(t, "open", status)
}
