package types

import "github.com/pkg/errors"

var (
	// ErrNotAuthenticated is returned when a protected request is attempted
	// before the auth handshake has completed.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrProtocol marks rejections reported by the clearing node.
	ErrProtocol = errors.New("clearnode protocol error")

	// ErrTxFailed is returned when an on-chain transaction reverts.
	ErrTxFailed = errors.New("transaction failed")

	// ErrNoChannel is returned for operations on a channel the client does not know.
	ErrNoChannel = errors.New("no such channel")

	// ErrChannelBusy is returned when a channel is mid-transition.
	ErrChannelBusy = errors.New("channel has a transition in flight")

	// ErrStaleVersion is returned when a node state would move the version backwards.
	ErrStaleVersion = errors.New("stale channel state version")

	// ErrMissingServerSignature is returned for node states without a co-signature.
	ErrMissingServerSignature = errors.New("state is missing the node signature")

	// ErrAlreadySettling is returned when a close for the channel is already being submitted.
	ErrAlreadySettling = errors.New("channel close already in progress")

	// ErrNoChain is returned when no chain backend is configured.
	ErrNoChain = errors.New("no chain backend configured")

	// ErrNotFound is returned by stores for unknown records.
	ErrNotFound = errors.New("not found")
)
