package crypto

import (
	"crypto/ecdsa"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// ErrKeyWiped is returned when a wiped key is asked to sign.
var ErrKeyWiped = errors.New("key has been wiped")

// SessionKey is an ephemeral signing key. It is never persisted.
type SessionKey struct {
	mu   sync.RWMutex
	priv *ecdsa.PrivateKey
	addr common.Address
}

// GenerateSessionKey creates a fresh random session key.
func GenerateSessionKey() (*SessionKey, error) {
	priv, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, errors.Wrap(err, "generate session key")
	}
	return &SessionKey{priv: priv, addr: ethcrypto.PubkeyToAddress(priv.PublicKey)}, nil
}

// Address returns the session key's address.
func (k *SessionKey) Address() common.Address { return k.addr }

// Sign signs keccak256(payload).
func (k *SessionKey) Sign(payload []byte) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.priv == nil {
		return nil, ErrKeyWiped
	}
	return signHash(ethcrypto.Keccak256(payload), k.priv)
}

// Wipe destroys the private key. Later Sign calls fail.
func (k *SessionKey) Wipe() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.priv != nil {
		wipeKey(k.priv)
		k.priv = nil
	}
}

func signHash(hash []byte, priv *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := ethcrypto.Sign(hash, priv)
	if err != nil {
		return nil, err
	}
	sig[ethcrypto.RecoveryIDOffset] += 27
	return sig, nil
}
