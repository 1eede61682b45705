package rpc

import (
	"github.com/ethereum/go-ethereum/common"

	"fluxpay/internal/domain/types"
)

// Reply matches the direct answer to request reqID: an envelope of kind
// carrying the same id, or an error for that id. Errors without an id are
// not attributable to one request; the connection hands them to every
// waiter instead.
func Reply(reqID uint64, kind types.Kind) types.Matcher {
	return func(env types.Envelope) bool {
		if env.Kind == types.KindError {
			return env.RequestID == reqID
		}
		return env.Kind == kind && env.RequestID == reqID
	}
}

// ChannelEvent matches a channel event of kind for channel id, whether it
// echoes reqID or arrives unsolicited, plus errors for reqID.
func ChannelEvent(kind types.Kind, id common.Hash, reqID uint64) types.Matcher {
	return func(env types.Envelope) bool {
		if env.Kind == types.KindError {
			return env.RequestID == reqID
		}
		if env.Kind != kind {
			return false
		}
		if env.RequestID == reqID {
			return true
		}
		got, ok := ChannelIDOf(env)
		return ok && got == id
	}
}

// Event matches any envelope of kind regardless of id, plus errors for
// reqID. Use it where at most one request of that kind is in flight.
func Event(kind types.Kind, reqID uint64) types.Matcher {
	return func(env types.Envelope) bool {
		if env.Kind == types.KindError {
			return env.RequestID == reqID
		}
		return env.Kind == kind
	}
}
