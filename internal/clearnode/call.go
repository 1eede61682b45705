package clearnode

import (
	"context"

	"github.com/pkg/errors"

	"fluxpay/internal/domain"
	"fluxpay/internal/domain/types"
	"fluxpay/internal/protocol/rpc"
)

// Call registers m, sends req and waits for the envelope m accepts. An
// error envelope is returned as *rpc.Error.
func Call(ctx context.Context, conn domain.Connection, req rpc.Request, m types.Matcher) (types.Envelope, error) {
	w := conn.Register(m)
	defer w.Cancel()

	if err := conn.Send(req.Frame); err != nil {
		return types.Envelope{}, errors.Wrapf(err, "send %s", req.Method)
	}
	env, err := w.Wait(ctx)
	if err != nil {
		return types.Envelope{}, errors.Wrapf(err, "await %s", req.Method)
	}
	if perr := rpc.AsError(env, req.Method); perr != nil {
		return env, perr
	}
	return env, nil
}
