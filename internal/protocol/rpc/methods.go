package rpc

import "fluxpay/internal/domain/types"

// Method names on the wire.
const (
	MethodAuthRequest       = "auth_request"
	MethodAuthChallenge     = "auth_challenge"
	MethodAuthVerify        = "auth_verify"
	MethodGetLedgerBalances = "get_ledger_balances"
	MethodGetChannels       = "get_channels"
	MethodCreateChannel     = "create_channel"
	MethodResizeChannel     = "resize_channel"
	MethodCloseChannel      = "close_channel"
	MethodTransfer          = "transfer"
	MethodError             = "error"

	// Unsolicited notifications.
	MethodChannelUpdate  = "cu"
	MethodBalanceUpdate  = "bu"
	MethodTransferNotice = "tr"
)

var methodKinds = map[string]types.Kind{
	MethodAuthChallenge:     types.KindAuthChallenge,
	MethodAuthVerify:        types.KindAuthVerify,
	MethodCreateChannel:     types.KindChannelCreated,
	MethodResizeChannel:     types.KindChannelResized,
	MethodCloseChannel:      types.KindChannelClosed,
	MethodGetChannels:       types.KindChannelsList,
	MethodGetLedgerBalances: types.KindLedgerBalances,
	MethodTransfer:          types.KindTransfer,
	MethodTransferNotice:    types.KindTransfer,
	MethodChannelUpdate:     types.KindChannelUpdate,
	MethodBalanceUpdate:     types.KindBalanceUpdate,
	MethodError:             types.KindError,
}

// KindOf maps a method name to its envelope kind.
func KindOf(method string) types.Kind {
	if k, ok := methodKinds[method]; ok {
		return k
	}
	return types.KindUnknown
}
