package store

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	// The current supported version of the sealed key format stored on disk.
	keystoreFormatVersion = 1
)

var (
	// ErrWrongPassphrase is returned when the passphrase is incorrect or the
	// sealed key has been modified.
	ErrWrongPassphrase = errors.New("wrong passphrase or corrupted wallet key")
)

// sealed is the on-disk JSON structure holding the ciphertext and KDF parameters.
type sealed struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

// seal derives a key from passphrase and encrypts raw into a JSON document.
// The salt doubles as associated data so it cannot be swapped.
func seal(passphrase string, raw []byte, p kdfParams) ([]byte, error) {
	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, errors.Wrap(err, "salt")
	}
	aead, err := deriveAEAD(passphrase, salt[:], p)
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte // zero nonce; a fresh salt gives a fresh key
	ct := aead.Seal(nil, nonce[:], raw, salt[:])

	return json.Marshal(sealed{
		V:      keystoreFormatVersion,
		Salt:   salt[:],
		N:      p.N,
		R:      p.R,
		P:      p.P,
		Cipher: ct,
	})
}

// open decrypts a document produced by seal.
func open(passphrase string, b []byte) ([]byte, error) {
	var s sealed
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, errors.Wrap(err, "decode sealed key")
	}
	if s.V > keystoreFormatVersion {
		return nil, errors.Errorf("unsupported keystore version %d", s.V)
	}
	aead, err := deriveAEAD(passphrase, s.Salt, kdfParams{N: s.N, R: s.R, P: s.P})
	if err != nil {
		return nil, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	pt, err := aead.Open(nil, nonce[:], s.Cipher, s.Salt)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return pt, nil
}

func deriveAEAD(passphrase string, salt []byte, p kdfParams) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, p.N, p.R, p.P, chacha20poly1305.KeySize)
	if err != nil {
		return nil, errors.Wrap(err, "derive key")
	}
	return chacha20poly1305.New(key)
}

// kdfParams are the scrypt cost parameters.
type kdfParams struct{ N, R, P int }

func kdfDefault() kdfParams { return kdfParams{N: 1 << 15, R: 8, P: 1} }
