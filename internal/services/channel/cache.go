package channel

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"fluxpay/internal/domain/types"
)

// begin moves channel id from open to next. With settle set it also claims
// the channel for settlement.
func (s *Service) begin(ctx context.Context, id common.Hash, next types.ChannelStatus, settle bool) error {
	if err := s.ensureKnown(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if settle && s.settling[id] {
		return types.ErrAlreadySettling
	}
	ch := s.channels[id]
	switch ch.Status {
	case types.ChannelOpen:
	case types.ChannelClosed:
		return errors.Wrapf(types.ErrNoChannel, "channel %s is closed", id.Hex())
	default:
		return errors.Wrapf(types.ErrChannelBusy, "channel %s is %s", id.Hex(), ch.Status)
	}
	ch.Status = next
	if settle {
		s.settling[id] = true
	}
	return nil
}

// restore puts channel id back to status after a failed step.
func (s *Service) restore(id common.Hash, status types.ChannelStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.channels[id]; ok {
		ch.Status = status
	}
}

// apply records a confirmed state for id and sets its status.
func (s *Service) apply(id common.Hash, st types.ChannelState, status types.ChannelStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[id]
	if !ok {
		return errors.Wrap(types.ErrNoChannel, id.Hex())
	}
	if st.Version < ch.Version {
		return errors.Wrapf(types.ErrStaleVersion, "channel %s: have %d, got %d", id.Hex(), ch.Version, st.Version)
	}
	ch.Version = st.Version
	ch.Allocations = st.Allocations
	ch.Status = status
	return nil
}

func (s *Service) checkVersion(id common.Hash, version uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.channels[id]; ok && version < ch.Version {
		return errors.Wrapf(types.ErrStaleVersion, "channel %s: have %d, got %d", id.Hex(), ch.Version, version)
	}
	return nil
}

// locked returns the total allocated in the cached state of channel id.
func (s *Service) locked(id common.Hash) *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch, ok := s.channels[id]; ok {
		return ch.Locked()
	}
	return new(big.Int)
}

// ensureKnown loads channel id from the node if it is not cached.
func (s *Service) ensureKnown(ctx context.Context, id common.Hash) error {
	s.mu.Lock()
	_, ok := s.channels[id]
	s.mu.Unlock()
	if ok {
		return nil
	}
	list, err := s.List(ctx, s.self)
	if err != nil {
		return err
	}
	for _, c := range list {
		if c.ChannelID == id {
			s.adopt(c, false)
			return nil
		}
	}
	return errors.Wrap(types.ErrNoChannel, id.Hex())
}

// adopt caches a channel reported by get_channels and returns its cached
// status. An open channel becomes current when makeCurrent is set or
// nothing is current yet.
func (s *Service) adopt(c types.ChannelSummary, makeCurrent bool) types.ChannelStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[c.ChannelID]
	if !ok {
		ch = &types.Channel{
			ID:      c.ChannelID,
			Token:   c.Token,
			Version: c.Version,
			Status:  statusFromNode(c.Status),
		}
		if c.Amount != nil {
			ch.Allocations = []types.Allocation{{Destination: s.self, Token: c.Token, Amount: c.Amount}}
		}
		s.channels[c.ChannelID] = ch
	}
	if ch.Status == types.ChannelOpen && (makeCurrent || s.current == (common.Hash{})) {
		s.current = c.ChannelID
	}
	return ch.Status
}

func statusFromNode(status string) types.ChannelStatus {
	switch status {
	case StatusOpen, "resizing":
		return types.ChannelOpen
	case "closed", "final":
		return types.ChannelClosed
	case "closing", "challenged":
		return types.ChannelPendingClose
	default:
		return types.ChannelPendingCreate
	}
}
