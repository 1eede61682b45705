package channel_test

import (
	"context"
	"math/big"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"fluxpay/internal/clearnode"
	"fluxpay/internal/crypto"
	"fluxpay/internal/domain/types"
	"fluxpay/internal/protocol/rpc"
	"fluxpay/internal/sandbox"
	"fluxpay/internal/services/auth"
	"fluxpay/internal/services/channel"
)

var token = common.HexToAddress("0xDB9F293e3898c9E5536A3be1b0C56c89d2b32DEb")

type fixture struct {
	node  *sandbox.Node
	chain *sandbox.Chain
	svc   *channel.Service
	self  common.Address
}

func setup(t *testing.T, authenticate bool) *fixture {
	t.Helper()
	node, err := sandbox.NewNode()
	require.NoError(t, err)
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)

	conn := clearnode.Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	t.Cleanup(func() { _ = conn.Close() })

	wallet, err := crypto.GenerateWalletKey()
	require.NoError(t, err)
	session, err := crypto.GenerateSessionKey()
	require.NoError(t, err)
	builder := rpc.NewBuilder(session, nil)
	a := auth.New(conn, builder, wallet, session, auth.DefaultConfig(), nil)
	if authenticate {
		require.NoError(t, a.Authenticate(testCtx(t)))
	}

	ch := sandbox.NewChain(wallet.Address(), node)
	return &fixture{
		node:  node,
		chain: ch,
		svc:   channel.New(conn, builder, a, ch, wallet.Address(), sandbox.DefaultChainID),
		self:  wallet.Address(),
	}
}

func testCtx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestOpen_SubmitsCreateAndMarksOpen(t *testing.T) {
	f := setup(t, true)

	id, err := f.svc.Open(testCtx(t), token)
	require.NoError(t, err)
	require.NotEqual(t, common.Hash{}, id)

	ch, ok := f.svc.Channel(id)
	require.True(t, ok)
	require.Equal(t, types.ChannelOpen, ch.Status)
	cur, ok := f.svc.Current()
	require.True(t, ok)
	require.Equal(t, id, cur)
	require.Equal(t, []string{sandbox.OpCreate}, f.chain.Calls())
}

func TestAcquire_ReusesOpenChannel(t *testing.T) {
	f := setup(t, true)
	seeded, err := f.node.SeedChannel(f.self, token, big.NewInt(20))
	require.NoError(t, err)

	id, reused, err := f.svc.Acquire(testCtx(t), token)
	require.NoError(t, err)
	require.True(t, reused)
	require.Equal(t, seeded, id)
	require.Zero(t, f.node.Count(rpc.MethodCreateChannel))
	require.Empty(t, f.chain.Calls())
}

func TestOpen_RevertedCreateStaysPending(t *testing.T) {
	f := setup(t, true)
	f.chain.FailNext(sandbox.OpCreate)

	id, err := f.svc.Open(testCtx(t), token)
	require.ErrorIs(t, err, types.ErrTxFailed)
	ch, ok := f.svc.Channel(id)
	require.True(t, ok)
	require.Equal(t, types.ChannelPendingCreate, ch.Status)
	_, ok = f.svc.Current()
	require.False(t, ok)
}

func TestAcquire_CompletesPendingCreate(t *testing.T) {
	f := setup(t, true)
	require.NoError(t, f.node.Credit(f.self, sandbox.DefaultAsset, "100"))
	f.chain.FailNext(sandbox.OpCreate)

	id, err := f.svc.Open(testCtx(t), token)
	require.ErrorIs(t, err, types.ErrTxFailed)

	_, ok, err := f.svc.FindOpen(testCtx(t), token)
	require.NoError(t, err)
	require.False(t, ok)
	ch, _ := f.svc.Channel(id)
	require.Equal(t, types.ChannelPendingCreate, ch.Status)

	got, reused, err := f.svc.Acquire(testCtx(t), token)
	require.NoError(t, err)
	require.False(t, reused)
	require.Equal(t, id, got)
	ch, _ = f.svc.Channel(id)
	require.Equal(t, types.ChannelOpen, ch.Status)
	cur, ok := f.svc.Current()
	require.True(t, ok)
	require.Equal(t, id, cur)

	_, err = f.svc.Resize(testCtx(t), id, big.NewInt(40), f.self)
	require.NoError(t, err)
	require.Equal(t, 1, f.node.Count(rpc.MethodCreateChannel))
	require.Equal(t, []string{sandbox.OpCreate, sandbox.OpCreate}, f.chain.Calls())
}

func TestResize_AdvancesVersion(t *testing.T) {
	f := setup(t, true)
	require.NoError(t, f.node.Credit(f.self, sandbox.DefaultAsset, "100"))
	id, err := f.svc.Open(testCtx(t), token)
	require.NoError(t, err)

	st, err := f.svc.Resize(testCtx(t), id, big.NewInt(40), f.self)
	require.NoError(t, err)
	require.Equal(t, uint64(1), st.Version)
	require.Equal(t, "40", st.Total().String())

	ch, _ := f.svc.Channel(id)
	require.Equal(t, types.ChannelOpen, ch.Status)
	require.Equal(t, "40", ch.Locked().String())
}

func TestResize_NodeErrorRestoresOpen(t *testing.T) {
	f := setup(t, true)
	id, err := f.svc.Open(testCtx(t), token)
	require.NoError(t, err)
	f.node.FailNext(rpc.MethodResizeChannel, "non-zero allocation")

	_, err = f.svc.Resize(testCtx(t), id, big.NewInt(5), f.self)
	require.ErrorContains(t, err, "non-zero allocation")
	ch, _ := f.svc.Channel(id)
	require.Equal(t, types.ChannelOpen, ch.Status)
}

func TestResize_OlderVersionRejected(t *testing.T) {
	f := setup(t, true)
	require.NoError(t, f.node.Credit(f.self, sandbox.DefaultAsset, "100"))
	id, err := f.svc.Open(testCtx(t), token)
	require.NoError(t, err)
	_, err = f.svc.Resize(testCtx(t), id, big.NewInt(10), f.self)
	require.NoError(t, err)

	f.node.EditNext(rpc.MethodResizeChannel, func(st *types.ChannelState) { st.Version = 0 })
	_, err = f.svc.Resize(testCtx(t), id, big.NewInt(10), f.self)
	require.ErrorIs(t, err, types.ErrStaleVersion)

	ch, _ := f.svc.Channel(id)
	require.Equal(t, types.ChannelOpen, ch.Status)
	require.Equal(t, uint64(1), ch.Version)
	require.Equal(t, "10", ch.Locked().String())
}

func TestResize_WrongTotalRejected(t *testing.T) {
	f := setup(t, true)
	require.NoError(t, f.node.Credit(f.self, sandbox.DefaultAsset, "100"))
	id, err := f.svc.Open(testCtx(t), token)
	require.NoError(t, err)

	f.node.EditNext(rpc.MethodResizeChannel, func(st *types.ChannelState) {
		st.Allocations[0].Amount = big.NewInt(999)
	})
	_, err = f.svc.Resize(testCtx(t), id, big.NewInt(40), f.self)
	require.ErrorIs(t, err, types.ErrProtocol)
	require.ErrorContains(t, err, "holds 999, want 40")

	ch, _ := f.svc.Channel(id)
	require.Equal(t, types.ChannelOpen, ch.Status)
	require.Equal(t, uint64(0), ch.Version)
	require.Equal(t, "0", ch.Locked().String())
}

func TestClose_SettlesOnceAndClears(t *testing.T) {
	f := setup(t, true)
	require.NoError(t, f.node.Credit(f.self, sandbox.DefaultAsset, "100"))
	id, err := f.svc.Open(testCtx(t), token)
	require.NoError(t, err)
	_, err = f.svc.Resize(testCtx(t), id, big.NewInt(30), f.self)
	require.NoError(t, err)

	s, err := f.svc.Close(testCtx(t), id, f.self)
	require.NoError(t, err)
	require.Equal(t, id, s.ChannelID)
	require.Equal(t, types.IntentFinalize, s.State.Intent)
	require.NotEqual(t, common.Hash{}, s.TxHash)

	ch, _ := f.svc.Channel(id)
	require.Equal(t, types.ChannelClosed, ch.Status)
	_, ok := f.svc.Current()
	require.False(t, ok)
	status, _ := f.node.ChannelStatus(id)
	require.Equal(t, "closed", status)

	_, err = f.svc.Close(testCtx(t), id, f.self)
	require.ErrorIs(t, err, types.ErrNoChannel)
	require.Equal(t, []string{sandbox.OpCreate, sandbox.OpClose}, f.chain.Calls())
}

func TestClose_ConcurrentCloseRejected(t *testing.T) {
	f := setup(t, true)
	id, err := f.svc.Open(testCtx(t), token)
	require.NoError(t, err)

	release := f.node.HoldNext(rpc.MethodCloseChannel)
	t.Cleanup(release)
	done := make(chan error, 1)
	go func() {
		_, err := f.svc.Close(testCtx(t), id, f.self)
		done <- err
	}()
	require.Eventually(t, func() bool {
		return f.node.Count(rpc.MethodCloseChannel) == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, err = f.svc.Close(testCtx(t), id, f.self)
	require.ErrorIs(t, err, types.ErrAlreadySettling)

	release()
	require.NoError(t, <-done)
	require.Equal(t, 1, f.node.Count(rpc.MethodCloseChannel))
	require.Equal(t, []string{sandbox.OpCreate, sandbox.OpClose}, f.chain.Calls())
	ch, _ := f.svc.Channel(id)
	require.Equal(t, types.ChannelClosed, ch.Status)
}

func TestClose_RevertedSettlementRestoresOpen(t *testing.T) {
	f := setup(t, true)
	id, err := f.svc.Open(testCtx(t), token)
	require.NoError(t, err)
	f.chain.FailNext(sandbox.OpClose)

	_, err = f.svc.Close(testCtx(t), id, f.self)
	require.ErrorIs(t, err, types.ErrTxFailed)
	ch, _ := f.svc.Channel(id)
	require.Equal(t, types.ChannelOpen, ch.Status)
}

func TestOperations_RequireAuthentication(t *testing.T) {
	f := setup(t, false)
	_, err := f.svc.Open(testCtx(t), token)
	require.ErrorIs(t, err, types.ErrNotAuthenticated)
	require.ErrorIs(t, f.svc.Transfer(testCtx(t), f.self, "ytest.usd", big.NewInt(1)), types.ErrNotAuthenticated)
	require.Empty(t, f.node.Requests())
}

func TestTransfer_MovesLedgerFunds(t *testing.T) {
	f := setup(t, true)
	require.NoError(t, f.node.Credit(f.self, sandbox.DefaultAsset, "10"))
	to := common.HexToAddress("0x00000000000000000000000000000000000000c3")

	require.NoError(t, f.svc.Transfer(testCtx(t), to, sandbox.DefaultAsset, big.NewInt(4)))
	require.Eventually(t, func() bool {
		return f.node.Balance(to, sandbox.DefaultAsset) == "4"
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "6", f.node.Balance(f.self, sandbox.DefaultAsset))
}
