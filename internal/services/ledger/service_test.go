package ledger_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"fluxpay/internal/clearnode"
	"fluxpay/internal/crypto"
	"fluxpay/internal/protocol/rpc"
	"fluxpay/internal/sandbox"
	"fluxpay/internal/services/auth"
	"fluxpay/internal/services/ledger"
)

func setup(t *testing.T) (*sandbox.Node, *ledger.Service, common.Address) {
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Authenticate(ctx))
	return node, ledger.New(conn, builder, a), wallet.Address()
}

func TestBalance_AbsentAssetIsZero(t *testing.T) {
	_, l, _ := setup(t)
	recipient := common.HexToAddress("0x00000000000000000000000000000000000000c3")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := l.Balance(ctx, recipient, "ytest.usd")
	require.NoError(t, err)
	require.Equal(t, "0", got)
}

func TestBalances_PassThroughDecimalStrings(t *testing.T) {
	node, l, self := setup(t)
	require.NoError(t, node.Credit(self, "ytest.usd", "150.25"))
	require.NoError(t, node.Credit(self, "usdc", "7"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	all, err := l.Balances(ctx, self)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.EqualValues(t, "usdc", all[0].Asset)
	require.Equal(t, "7", all[0].Amount)

	got, err := l.Balance(ctx, self, "ytest.usd")
	require.NoError(t, err)
	require.Equal(t, "150.25", got)
}

func TestBalance_NodeErrorSurfaces(t *testing.T) {
	node, l, self := setup(t)
	node.FailNext(rpc.MethodGetLedgerBalances, "ledger unavailable")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := l.Balance(ctx, self, "ytest.usd")
	require.ErrorContains(t, err, "ledger unavailable")
}
