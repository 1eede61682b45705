package auth_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/raulk/clock"
	"github.com/stretchr/testify/require"

	"fluxpay/internal/clearnode"
	"fluxpay/internal/crypto"
	"fluxpay/internal/domain/types"
	"fluxpay/internal/protocol/rpc"
	"fluxpay/internal/sandbox"
	"fluxpay/internal/services/auth"
	"fluxpay/internal/services/ledger"
)

type fixture struct {
	node    *sandbox.Node
	conn    *clearnode.Conn
	builder *rpc.Builder
	wallet  *crypto.WalletKey
	clk     *clock.Mock
	auth    *auth.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewMock()
	clk.Set(time.Now())

	node, err := sandbox.NewNode(sandbox.WithClock(clk))
	require.NoError(t, err)
	srv := httptest.NewServer(node)
	t.Cleanup(srv.Close)

	conn := clearnode.Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	t.Cleanup(func() { _ = conn.Close() })

	wallet, err := crypto.GenerateWalletKey()
	require.NoError(t, err)
	session, err := crypto.GenerateSessionKey()
	require.NoError(t, err)
	builder := rpc.NewBuilder(session, clk)

	return &fixture{
		node:    node,
		conn:    conn,
		builder: builder,
		wallet:  wallet,
		clk:     clk,
		auth:    auth.New(conn, builder, wallet, session, auth.DefaultConfig(), clk),
	}
}

func ctx(t *testing.T) context.Context {
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

func TestAuthenticate_Idempotent(t *testing.T) {
	f := setup(t)
	require.Equal(t, types.AuthIdle, f.auth.State())

	require.NoError(t, f.auth.Authenticate(ctx(t)))
	require.True(t, f.auth.IsAuthenticated())
	require.NoError(t, f.auth.Authenticate(ctx(t)))

	require.Equal(t, 1, f.node.Count(rpc.MethodAuthRequest))
	require.Equal(t, 1, f.node.Count(rpc.MethodAuthVerify))
}

func TestProtectedRequest_RefusedBeforeAuth(t *testing.T) {
	f := setup(t)
	l := ledger.New(f.conn, f.builder, f.auth)

	_, err := l.Balance(ctx(t), f.wallet.Address(), "ytest.usd")
	require.ErrorIs(t, err, types.ErrNotAuthenticated)
	require.Empty(t, f.node.Requests())
}

func TestAuthenticate_RejectedVerifyResetsState(t *testing.T) {
	f := setup(t)
	f.node.FailNext(rpc.MethodAuthVerify, "invalid signature")

	err := f.auth.Authenticate(ctx(t))
	require.ErrorIs(t, err, types.ErrProtocol)
	var perr *rpc.Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "invalid signature", perr.Message)
	require.Equal(t, types.AuthIdle, f.auth.State())
	require.Error(t, f.auth.Require())

	// A later attempt runs a fresh handshake.
	require.NoError(t, f.auth.Authenticate(ctx(t)))
	require.Equal(t, 2, f.node.Count(rpc.MethodAuthRequest))
}

func TestAuthenticate_ExpiresAfterTTL(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.auth.Authenticate(ctx(t)))

	f.clk.Add(59 * time.Minute)
	require.True(t, f.auth.IsAuthenticated())

	f.clk.Add(2 * time.Minute)
	require.False(t, f.auth.IsAuthenticated())
	require.ErrorIs(t, f.auth.Require(), types.ErrNotAuthenticated)
}

func TestAuthenticate_ConcurrentCallersShareOneHandshake(t *testing.T) {
	f := setup(t)
	c := ctx(t)
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() { errs <- f.auth.Authenticate(c) }()
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, <-errs)
	}
	require.Equal(t, 1, f.node.Count(rpc.MethodAuthRequest))
}
