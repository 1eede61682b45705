package types

import "github.com/ethereum/go-ethereum/common"

// Allowance caps how much of an asset the session key may move.
type Allowance struct {
	Asset  Asset  `json:"asset"`
	Amount string `json:"amount"`
}

// AuthPolicy is the authorization a wallet grants to a session key. It is sent
// in auth_request and signed as EIP-712 typed data in auth_verify.
type AuthPolicy struct {
	Wallet      common.Address `json:"address"`
	SessionKey  common.Address `json:"session_key"`
	Application string         `json:"application"`
	Allowances  []Allowance    `json:"allowances"`
	ExpiresAt   uint64         `json:"expires_at"`
	Scope       string         `json:"scope"`
}

// AuthState is the client side of the challenge/verify handshake.
type AuthState int

const (
	AuthIdle AuthState = iota
	AuthAwaitingChallenge
	AuthAwaitingVerify
	AuthAuthenticated
)

func (s AuthState) String() string {
	switch s {
	case AuthIdle:
		return "idle"
	case AuthAwaitingChallenge:
		return "awaiting-challenge"
	case AuthAwaitingVerify:
		return "awaiting-verify"
	case AuthAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}
