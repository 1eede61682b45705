package eip712_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/require"

	"fluxpay/internal/crypto"
	"fluxpay/internal/domain"
	"fluxpay/internal/protocol/eip712"
)

func testPolicy(t *testing.T) (domain.AuthPolicy, *crypto.WalletKey) {
	t.Helper()
	wallet, err := crypto.GenerateWalletKey()
	require.NoError(t, err)
	session, err := crypto.GenerateSessionKey()
	require.NoError(t, err)
	return domain.AuthPolicy{
		Wallet:      wallet.Address(),
		SessionKey:  session.Address(),
		Application: "Test app",
		Allowances:  []domain.Allowance{{Asset: "ytest.usd", Amount: "1000000000"}},
		ExpiresAt:   1700003600,
		Scope:       "test.app",
	}, wallet
}

func TestAuthPolicy_SignatureRecoversWallet(t *testing.T) {
	require := require.New(t)
	p, wallet := testPolicy(t)

	td := eip712.AuthPolicy(p, "challenge-123")
	sig, err := wallet.SignTypedData(context.Background(), td)
	require.NoError(err)
	require.Len(sig, 65)

	got, err := crypto.RecoverTypedData(td, sig)
	require.NoError(err)
	require.Equal(wallet.Address(), got)
}

func TestAuthPolicy_DigestBindsChallenge(t *testing.T) {
	require := require.New(t)
	p, _ := testPolicy(t)

	a, _, err := apitypes.TypedDataAndHash(eip712.AuthPolicy(p, "one"))
	require.NoError(err)
	again, _, err := apitypes.TypedDataAndHash(eip712.AuthPolicy(p, "one"))
	require.NoError(err)
	b, _, err := apitypes.TypedDataAndHash(eip712.AuthPolicy(p, "two"))
	require.NoError(err)

	require.Equal(a, again)
	require.NotEqual(a, b)
}

func TestAuthPolicy_DomainIsApplicationName(t *testing.T) {
	p, _ := testPolicy(t)
	td := eip712.AuthPolicy(p, "c")
	require.Equal(t, "Test app", td.Domain.Name)
	require.Equal(t, eip712.PrimaryType, td.PrimaryType)
}
