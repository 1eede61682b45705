package rpc

import (
	"fmt"

	"fluxpay/internal/domain/types"
)

// Error is a rejection reported by the clearing node. It matches
// types.ErrProtocol under errors.Is.
type Error struct {
	RequestID uint64
	Method    string
	Message   string
}

func (e *Error) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("clearnode rejected %s: %s", e.Method, e.Message)
	}
	return "clearnode error: " + e.Message
}

func (e *Error) Unwrap() error { return types.ErrProtocol }

// AsError returns a *Error for error envelopes and nil otherwise. method
// names the request the envelope answered.
func AsError(env types.Envelope, method string) error {
	if env.Kind != types.KindError {
		return nil
	}
	return &Error{RequestID: env.RequestID, Method: method, Message: env.Error}
}
