package crypto

import "github.com/ethereum/go-ethereum/common"

// Fingerprint returns a short display form of addr, e.g. "0x1234…abcd".
func Fingerprint(addr common.Address) string {
	h := addr.Hex()
	return h[:6] + "…" + h[len(h)-4:]
}
