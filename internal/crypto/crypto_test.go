package crypto_test

import (
	"context"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"fluxpay/internal/crypto"
)

func TestSessionKey_SignRecover(t *testing.T) {
	require := require.New(t)
	k, err := crypto.GenerateSessionKey()
	require.NoError(err)

	payload := []byte(`[1,"get_channels",{"participant":"0x00"},1700000000000]`)
	sig, err := k.Sign(payload)
	require.NoError(err)
	require.Len(sig, 65)
	require.True(sig[64] == 27 || sig[64] == 28)

	got, err := crypto.RecoverPayload(payload, sig)
	require.NoError(err)
	require.Equal(k.Address(), got)
}

func TestSessionKey_WipeDisablesSigning(t *testing.T) {
	k, err := crypto.GenerateSessionKey()
	require.NoError(t, err)
	k.Wipe()
	_, err = k.Sign([]byte("x"))
	require.ErrorIs(t, err, crypto.ErrKeyWiped)
}

func TestWalletKey_SignMessageRecover(t *testing.T) {
	require := require.New(t)
	w, err := crypto.GenerateWalletKey()
	require.NoError(err)

	msg := common.HexToHash("0xabc").Bytes()
	sig, err := w.SignMessage(context.Background(), msg)
	require.NoError(err)

	got, err := crypto.RecoverMessage(msg, sig)
	require.NoError(err)
	require.Equal(w.Address(), got)

	// Raw payload recovery must not match a prefixed signature.
	other, err := crypto.RecoverPayload(msg, sig)
	require.NoError(err)
	require.NotEqual(w.Address(), other)
}

func TestWalletKey_HexRoundTrip(t *testing.T) {
	require := require.New(t)
	w, err := crypto.GenerateWalletKey()
	require.NoError(err)

	raw := w.Bytes()
	defer crypto.Wipe(raw)
	w2, err := crypto.WalletKeyFromHex("0x" + common.Bytes2Hex(raw))
	require.NoError(err)
	require.Equal(w.Address(), w2.Address())
}

func TestRecover_RejectsShortSignature(t *testing.T) {
	_, err := crypto.RecoverPayload([]byte("x"), []byte{1, 2, 3})
	require.ErrorIs(t, err, crypto.ErrBadSignature)
}

func TestFingerprint(t *testing.T) {
	addr := common.HexToAddress("0x019B65A265EB3363822f2752141b3dF16131b262")
	fp := crypto.Fingerprint(addr)
	require.True(t, strings.HasPrefix(fp, "0x019B"))
	require.True(t, strings.HasSuffix(fp, "b262"))
}

func TestWipe(t *testing.T) {
	b := []byte{1, 2, 3}
	crypto.Wipe(b)
	require.Equal(t, []byte{0, 0, 0}, b)
}
