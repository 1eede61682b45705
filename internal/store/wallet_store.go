package store

import (
	"os"
	"path/filepath"
	"sync"

	"fluxpay/internal/domain"
)

const walletFilename = "wallet.json.enc"

// WalletFileStore keeps the wallet private key sealed under a passphrase.
type WalletFileStore struct {
	dir string
	mu  sync.Mutex
	kdf kdfParams
}

// NewWalletFileStore returns a WalletFileStore rooted at dir.
func NewWalletFileStore(dir string) *WalletFileStore {
	return &WalletFileStore{dir: dir, kdf: kdfDefault()}
}

// SaveKey seals key and writes it to disk, replacing any existing key.
func (s *WalletFileStore) SaveKey(passphrase string, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ct, err := seal(passphrase, key, s.kdf)
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(s.dir, walletFilename), ct, 0o600)
}

// LoadKey reads and opens the sealed key.
func (s *WalletFileStore) LoadKey(passphrase string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(filepath.Join(s.dir, walletFilename))
	if err != nil {
		return nil, err
	}
	return open(passphrase, b)
}

// HasKey reports whether a sealed key exists.
func (s *WalletFileStore) HasKey() bool {
	_, err := os.Stat(filepath.Join(s.dir, walletFilename))
	return err == nil
}

// Compile-time assertion that WalletFileStore implements domain.WalletStore.
var _ domain.WalletStore = (*WalletFileStore)(nil)
