package wallet

import (
	"fmt"
	"unicode"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"fluxpay/internal/crypto"
	"fluxpay/internal/domain"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)

	// ErrNoWallet is returned when no wallet key has been created yet.
	ErrNoWallet = errors.New("no wallet key found, run init or import first")
)

// Service creates and unlocks the wallet key using a backing store.
type Service struct {
	store domain.WalletStore
}

// New returns a wallet service backed by the given store.
func New(s domain.WalletStore) *Service { return &Service{store: s} }

// Generate creates a new wallet key, seals it with the passphrase and
// returns its address and fingerprint.
func (s *Service) Generate(passphrase string) (common.Address, domain.Fingerprint, error) {
	if !isSecurePassphrase(passphrase) {
		return common.Address{}, "", ErrWeakPassphrase
	}
	key, err := crypto.GenerateWalletKey()
	if err != nil {
		return common.Address{}, "", err
	}
	defer key.Wipe()
	return s.save(passphrase, key)
}

// Import seals an existing hex private key with the passphrase.
func (s *Service) Import(passphrase, hexKey string) (common.Address, domain.Fingerprint, error) {
	if !isSecurePassphrase(passphrase) {
		return common.Address{}, "", ErrWeakPassphrase
	}
	key, err := crypto.WalletKeyFromHex(hexKey)
	if err != nil {
		return common.Address{}, "", err
	}
	defer key.Wipe()
	return s.save(passphrase, key)
}

// Load unlocks the wallet key. Callers should Wipe it when done.
func (s *Service) Load(passphrase string) (*crypto.WalletKey, error) {
	if !s.store.HasKey() {
		return nil, ErrNoWallet
	}
	raw, err := s.store.LoadKey(passphrase)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(raw)
	return crypto.WalletKeyFromBytes(raw)
}

// Address unlocks the wallet key just long enough to read its address.
func (s *Service) Address(passphrase string) (common.Address, error) {
	key, err := s.Load(passphrase)
	if err != nil {
		return common.Address{}, err
	}
	defer key.Wipe()
	return key.Address(), nil
}

func (s *Service) save(passphrase string, key *crypto.WalletKey) (common.Address, domain.Fingerprint, error) {
	raw := key.Bytes()
	defer crypto.Wipe(raw)
	if err := s.store.SaveKey(passphrase, raw); err != nil {
		return common.Address{}, "", errors.Wrap(err, "save wallet key")
	}
	return key.Address(), domain.Fingerprint(crypto.Fingerprint(key.Address())), nil
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.WalletService.
var _ domain.WalletService = (*Service)(nil)
