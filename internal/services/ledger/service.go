package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"fluxpay/internal/clearnode"
	"fluxpay/internal/domain"
	"fluxpay/internal/domain/types"
	"fluxpay/internal/protocol/rpc"
)

// Service queries ledger balances for any participant.
type Service struct {
	conn    domain.Connection
	builder *rpc.Builder
	auth    domain.AuthService
}

// New returns a ledger service.
func New(conn domain.Connection, builder *rpc.Builder, auth domain.AuthService) *Service {
	return &Service{conn: conn, builder: builder, auth: auth}
}

// Balances returns every ledger entry for participant.
func (s *Service) Balances(ctx context.Context, participant common.Address) ([]types.LedgerBalance, error) {
	if err := s.auth.Require(); err != nil {
		return nil, err
	}
	req, err := s.builder.GetLedgerBalances(participant)
	if err != nil {
		return nil, err
	}
	env, err := clearnode.Call(ctx, s.conn, req, rpc.Reply(req.ID, types.KindLedgerBalances))
	if err != nil {
		return nil, err
	}
	return rpc.DecodeLedgerBalances(env)
}

// Balance returns participant's amount of asset, or "0" when the ledger has
// no entry for it.
func (s *Service) Balance(ctx context.Context, participant common.Address, asset types.Asset) (string, error) {
	balances, err := s.Balances(ctx, participant)
	if err != nil {
		return "", err
	}
	for _, b := range balances {
		if b.Asset == asset {
			return b.Amount, nil
		}
	}
	return "0", nil
}

// Compile-time assertion that Service implements domain.LedgerService.
var _ domain.LedgerService = (*Service)(nil)
