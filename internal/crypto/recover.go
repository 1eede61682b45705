package crypto

import (
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
)

// ErrBadSignature is returned for signatures that are not 65 bytes or do not recover.
var ErrBadSignature = errors.New("malformed signature")

// RecoverPayload returns the address that signed keccak256(payload).
func RecoverPayload(payload, sig []byte) (common.Address, error) {
	return recoverDigest(ethcrypto.Keccak256(payload), sig)
}

// RecoverMessage returns the address that signed msg under EIP-191.
func RecoverMessage(msg, sig []byte) (common.Address, error) {
	return recoverDigest(accounts.TextHash(msg), sig)
}

// RecoverTypedData returns the address that signed the EIP-712 digest of data.
func RecoverTypedData(data apitypes.TypedData, sig []byte) (common.Address, error) {
	digest, _, err := apitypes.TypedDataAndHash(data)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "hash typed data")
	}
	return recoverDigest(digest, sig)
}

func recoverDigest(digest, sig []byte) (common.Address, error) {
	if len(sig) != ethcrypto.SignatureLength {
		return common.Address{}, ErrBadSignature
	}
	norm := make([]byte, len(sig))
	copy(norm, sig)
	if norm[ethcrypto.RecoveryIDOffset] >= 27 {
		norm[ethcrypto.RecoveryIDOffset] -= 27
	}
	pub, err := ethcrypto.SigToPub(digest, norm)
	if err != nil {
		return common.Address{}, errors.Wrap(ErrBadSignature, err.Error())
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}
