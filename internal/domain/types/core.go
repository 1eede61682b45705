package types

// Fingerprint is a short display form of an address presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// Asset is a ledger asset symbol as the clearing node names it, e.g. "ytest.usd".
type Asset string

// String returns the string form of the asset symbol.
func (a Asset) String() string { return string(a) }

// LedgerBalance is one asset entry of an address's off-chain ledger.
// Amount is the node's decimal string, passed through unmodified.
type LedgerBalance struct {
	Asset  Asset  `json:"asset"`
	Amount string `json:"amount"`
}
