package clearnode

import (
	"context"
	"sync"

	"fluxpay/internal/domain/types"
)

type outcome struct {
	env types.Envelope
	err error
}

// waiter receives at most one outcome through a buffered channel.
type waiter struct {
	conn  *Conn
	match types.Matcher
	ch    chan outcome
}

// Wait blocks for the matched envelope, the connection's failure or ctx.
// On ctx expiry the waiter is removed and the connection stays up.
func (w *waiter) Wait(ctx context.Context) (types.Envelope, error) {
	select {
	case o := <-w.ch:
		return o.env, o.err
	case <-ctx.Done():
		w.Cancel()
		return types.Envelope{}, ctx.Err()
	}
}

// Cancel removes the waiter if it is still registered.
func (w *waiter) Cancel() { w.conn.removeWaiter(w) }

type subscription struct {
	kinds map[types.Kind]bool

	mu     sync.Mutex
	ch     chan types.Envelope
	closed bool
}

func newSubscription(kinds []types.Kind, buffer int) *subscription {
	s := &subscription{ch: make(chan types.Envelope, buffer)}
	if len(kinds) > 0 {
		s.kinds = make(map[types.Kind]bool, len(kinds))
		for _, k := range kinds {
			s.kinds[k] = true
		}
	}
	return s
}

func (s *subscription) wants(k types.Kind) bool {
	return s.kinds == nil || s.kinds[k]
}

// deliver never blocks the read loop; a full subscriber loses the frame.
func (s *subscription) deliver(env types.Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- env:
	default:
		log.WithField("kind", env.Kind).Warn("subscriber is full, dropping broadcast")
	}
}

func (s *subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
