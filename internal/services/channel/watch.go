package channel

import (
	"context"

	"github.com/sirupsen/logrus"

	"fluxpay/internal/domain/types"
	"fluxpay/internal/protocol/rpc"
)

// Watch logs broadcast notices (transfers, channel and balance updates)
// until ctx ends or the connection closes. It never changes channel state.
func (s *Service) Watch(ctx context.Context) {
	events, stop := s.conn.Subscribe(types.KindTransfer, types.KindChannelUpdate, types.KindBalanceUpdate)
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-events:
			if !ok {
				return
			}
			s.logNotice(env)
		}
	}
}

func (s *Service) logNotice(env types.Envelope) {
	switch env.Kind {
	case types.KindTransfer:
		entries, err := rpc.DecodeTransfer(env)
		if err != nil {
			log.WithError(err).Debug("undecodable transfer notice")
			return
		}
		for _, e := range entries {
			log.WithFields(logrus.Fields{
				"from":   e.FromAccount.Hex(),
				"to":     e.ToAccount.Hex(),
				"asset":  e.Asset,
				"amount": string(e.Amount),
			}).Info("transfer settled on ledger")
		}
	case types.KindChannelUpdate:
		id, _ := rpc.ChannelIDOf(env)
		log.WithField("channel", id.Hex()).Debug("channel update notice")
	default:
		log.WithField("kind", env.Kind).Debug("ledger notice")
	}
}
