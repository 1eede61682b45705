package eip712

import (
	"strconv"

	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"fluxpay/internal/domain"
)

// PrimaryType is the primary type of the auth policy document.
const PrimaryType = "Policy"

var policyTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
	},
	"Policy": {
		{Name: "challenge", Type: "string"},
		{Name: "scope", Type: "string"},
		{Name: "wallet", Type: "address"},
		{Name: "session_key", Type: "address"},
		{Name: "expires_at", Type: "uint64"},
		{Name: "allowances", Type: "Allowance[]"},
	},
	"Allowance": {
		{Name: "asset", Type: "string"},
		{Name: "amount", Type: "string"},
	},
}

// AuthPolicy returns the typed data the wallet signs to answer challenge.
func AuthPolicy(p domain.AuthPolicy, challenge string) apitypes.TypedData {
	allowances := make([]interface{}, 0, len(p.Allowances))
	for _, a := range p.Allowances {
		allowances = append(allowances, map[string]interface{}{
			"asset":  string(a.Asset),
			"amount": a.Amount,
		})
	}
	return apitypes.TypedData{
		Types:       policyTypes,
		PrimaryType: PrimaryType,
		Domain:      apitypes.TypedDataDomain{Name: p.Application},
		Message: apitypes.TypedDataMessage{
			"challenge":   challenge,
			"scope":       p.Scope,
			"wallet":      p.Wallet.Hex(),
			"session_key": p.SessionKey.Hex(),
			"expires_at":  strconv.FormatUint(p.ExpiresAt, 10),
			"allowances":  allowances,
		},
	}
}
