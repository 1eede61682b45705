package commands

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"fluxpay/internal/amount"
)

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func parseHash(s string) (common.Hash, error) {
	b := common.FromHex(s)
	if len(b) != common.HashLength {
		return common.Hash{}, errors.Errorf("invalid channel id %q", s)
	}
	return common.BytesToHash(b), nil
}

// parseAmount reads a human token amount, e.g. "1.5", into base units.
func parseAmount(s string) (*big.Int, error) {
	v, err := amount.FromHuman(s, cfg.Chain.Decimals)
	if err != nil {
		return nil, errors.Wrapf(err, "amount %q", s)
	}
	if v.Sign() == 0 {
		return nil, errors.Errorf("amount %q must be positive", s)
	}
	return v, nil
}

func human(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return amount.ToHuman(v, cfg.Chain.Decimals)
}
