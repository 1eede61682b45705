package crypto

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"

	"fluxpay/internal/domain"
)

// WalletKey is the user's primary secp256k1 key held in memory.
type WalletKey struct {
	mu   sync.RWMutex
	priv *ecdsa.PrivateKey
	addr common.Address
}

// GenerateWalletKey creates a new random wallet key.
func GenerateWalletKey() (*WalletKey, error) {
	priv, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, errors.Wrap(err, "generate wallet key")
	}
	return NewWalletKey(priv), nil
}

// NewWalletKey wraps an existing private key.
func NewWalletKey(priv *ecdsa.PrivateKey) *WalletKey {
	return &WalletKey{priv: priv, addr: ethcrypto.PubkeyToAddress(priv.PublicKey)}
}

// WalletKeyFromBytes parses a raw 32-byte private key.
func WalletKeyFromBytes(raw []byte) (*WalletKey, error) {
	priv, err := ethcrypto.ToECDSA(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parse wallet key")
	}
	return NewWalletKey(priv), nil
}

// WalletKeyFromHex parses a hex private key, with or without 0x.
func WalletKeyFromHex(s string) (*WalletKey, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	priv, err := ethcrypto.HexToECDSA(s)
	if err != nil {
		return nil, errors.Wrap(err, "parse wallet key")
	}
	return NewWalletKey(priv), nil
}

// Address returns the wallet address.
func (k *WalletKey) Address() common.Address { return k.addr }

// Bytes returns the raw private key. Callers should Wipe the result.
func (k *WalletKey) Bytes() []byte {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.priv == nil {
		return nil
	}
	return ethcrypto.FromECDSA(k.priv)
}

// SignTypedData signs the EIP-712 digest of data.
func (k *WalletKey) SignTypedData(_ context.Context, data apitypes.TypedData) ([]byte, error) {
	digest, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return nil, errors.Wrap(err, "hash typed data")
	}
	return k.signDigest(digest)
}

// SignMessage signs msg with the EIP-191 personal message prefix.
func (k *WalletKey) SignMessage(_ context.Context, msg []byte) ([]byte, error) {
	return k.signDigest(accounts.TextHash(msg))
}

// TransactOpts returns transaction options signing with this key on chainID.
func (k *WalletKey) TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.priv == nil {
		return nil, ErrKeyWiped
	}
	opts, err := bind.NewKeyedTransactorWithChainID(k.priv, chainID)
	if err != nil {
		return nil, errors.Wrap(err, "transactor")
	}
	opts.Context = ctx
	return opts, nil
}

// Wipe destroys the private key.
func (k *WalletKey) Wipe() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.priv != nil {
		wipeKey(k.priv)
		k.priv = nil
	}
}

func (k *WalletKey) signDigest(digest []byte) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.priv == nil {
		return nil, ErrKeyWiped
	}
	return signHash(digest, k.priv)
}

// Compile-time assertions for the signing contracts.
var (
	_ domain.Wallet        = (*WalletKey)(nil)
	_ domain.MessageSigner = (*SessionKey)(nil)
)
