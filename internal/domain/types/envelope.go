package types

import "encoding/json"

// Kind classifies an inbound clearing-node frame.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthChallenge
	KindAuthVerify
	KindChannelCreated
	KindChannelResized
	KindChannelClosed
	KindChannelsList
	KindLedgerBalances
	KindTransfer
	KindChannelUpdate
	KindBalanceUpdate
	KindError
)

var kindNames = map[Kind]string{
	KindUnknown:        "unknown",
	KindAuthChallenge:  "auth-challenge",
	KindAuthVerify:     "auth-verify",
	KindChannelCreated: "channel-created",
	KindChannelResized: "channel-resized",
	KindChannelClosed:  "channel-closed",
	KindChannelsList:   "channels-list",
	KindLedgerBalances: "ledger-balances",
	KindTransfer:       "transfer",
	KindChannelUpdate:  "channel-update",
	KindBalanceUpdate:  "balance-update",
	KindError:          "error",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Broadcast reports whether frames of this kind fan out to every subscriber
// in addition to satisfying at most one waiter.
func (k Kind) Broadcast() bool {
	switch k {
	case KindTransfer, KindChannelUpdate, KindBalanceUpdate:
		return true
	}
	return false
}

// Envelope is a decoded inbound frame. Payload holds the method result
// verbatim; Error is set only for KindError.
type Envelope struct {
	RequestID uint64
	Kind      Kind
	Method    string
	Payload   json.RawMessage
	Timestamp uint64
	Error     string
}

// Matcher selects the envelopes a waiter is interested in.
type Matcher func(Envelope) bool
