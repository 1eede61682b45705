package sandbox

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"fluxpay/internal/domain/types"
)

// ledger holds off-chain balances. Callers hold the node lock.
type ledger map[common.Address]map[types.Asset]decimal.Decimal

func (l ledger) balance(addr common.Address, asset types.Asset) decimal.Decimal {
	if acct, ok := l[addr]; ok {
		return acct[asset]
	}
	return decimal.Zero
}

func (l ledger) add(addr common.Address, asset types.Asset, delta decimal.Decimal) {
	acct, ok := l[addr]
	if !ok {
		acct = make(map[types.Asset]decimal.Decimal)
		l[addr] = acct
	}
	acct[asset] = acct[asset].Add(delta)
}

// move debits from and credits to. It reports false without changing
// anything when from holds less than amount.
func (l ledger) move(from, to common.Address, asset types.Asset, amount decimal.Decimal) bool {
	if l.balance(from, asset).LessThan(amount) {
		return false
	}
	l.add(from, asset, amount.Neg())
	l.add(to, asset, amount)
	return true
}

// entries lists addr's non-zero balances sorted by asset.
func (l ledger) entries(addr common.Address) []types.LedgerBalance {
	acct := l[addr]
	out := make([]types.LedgerBalance, 0, len(acct))
	for asset, amt := range acct {
		if amt.IsZero() {
			continue
		}
		out = append(out, types.LedgerBalance{Asset: asset, Amount: amt.String()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}
