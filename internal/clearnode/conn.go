package clearnode

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"fluxpay/internal/domain"
	"fluxpay/internal/domain/types"
	"fluxpay/internal/metrics"
	"fluxpay/internal/protocol/rpc"
)

var log = logrus.WithField("component", "clearnode")

// ErrClosed is returned for waits and sends on a closed connection.
var ErrClosed = errors.New("clearnode connection closed")

// State is the readiness of a connection.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

const (
	defaultWriteTimeout     = 10 * time.Second
	defaultSubscriberBuffer = 64
)

// Option configures a Conn.
type Option func(*Conn)

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option { return func(c *Conn) { c.dialer = d } }

// WithHeader sets extra handshake headers.
func WithHeader(h http.Header) Option { return func(c *Conn) { c.header = h } }

// WithWriteTimeout bounds each frame write.
func WithWriteTimeout(d time.Duration) Option { return func(c *Conn) { c.writeTimeout = d } }

// WithSubscriberBuffer sets the channel depth of each subscription.
func WithSubscriberBuffer(n int) Option { return func(c *Conn) { c.subBuffer = n } }

// Conn is a single websocket to a clearing node.
type Conn struct {
	url          string
	dialer       *websocket.Dialer
	header       http.Header
	writeTimeout time.Duration
	subBuffer    int

	mu      sync.Mutex
	state   State
	ws      *websocket.Conn
	pending [][]byte
	waiters []*waiter
	subs    map[*subscription]struct{}
	err     error

	wake   chan struct{}
	opened chan struct{}
	done   chan struct{}
}

// Dial starts connecting to url and returns immediately. ctx bounds the
// dial only.
func Dial(ctx context.Context, url string, opts ...Option) *Conn {
	c := &Conn{
		url:          url,
		dialer:       websocket.DefaultDialer,
		writeTimeout: defaultWriteTimeout,
		subBuffer:    defaultSubscriberBuffer,
		subs:         make(map[*subscription]struct{}),
		wake:         make(chan struct{}, 1),
		opened:       make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	go c.connect(ctx)
	return c
}

// URL returns the endpoint this connection dials.
func (c *Conn) URL() string { return c.url }

// State returns the current readiness.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Ready blocks until the socket is open, has failed, or ctx ends.
func (c *Conn) Ready(ctx context.Context) error {
	select {
	case <-c.opened:
		return nil
	case <-c.done:
		return c.closedErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the connection has failed or been closed.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Err returns the reason the connection closed, or nil while it is usable.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateClosed {
		return nil
	}
	return closedErr(c.err)
}

// Send queues frame for delivery.
func (c *Conn) Send(frame []byte) error {
	c.mu.Lock()
	if c.state == StateClosed {
		err := closedErr(c.err)
		c.mu.Unlock()
		return err
	}
	c.pending = append(c.pending, frame)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return nil
}

// Register installs a one-shot waiter for the first envelope m accepts.
func (c *Conn) Register(m types.Matcher) domain.Waiter {
	w := &waiter{conn: c, match: m, ch: make(chan outcome, 1)}
	c.mu.Lock()
	if c.state == StateClosed {
		err := closedErr(c.err)
		c.mu.Unlock()
		w.ch <- outcome{err: err}
		return w
	}
	c.waiters = append(c.waiters, w)
	c.mu.Unlock()
	metrics.WaiterAdded()
	return w
}

// Subscribe streams broadcast envelopes of the given kinds, or of every
// broadcast kind when none are named. The channel closes when the
// subscription ends or the connection closes.
func (c *Conn) Subscribe(kinds ...types.Kind) (<-chan types.Envelope, func()) {
	s := newSubscription(kinds, c.subBuffer)
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		s.close()
		return s.ch, func() {}
	}
	c.subs[s] = struct{}{}
	c.mu.Unlock()

	return s.ch, func() {
		c.mu.Lock()
		delete(c.subs, s)
		c.mu.Unlock()
		s.close()
	}
}

// Close shuts the socket and fails every pending waiter. It reports a
// failure to send the close frame on an open socket; closing an already
// closed connection is a no-op.
func (c *Conn) Close() error {
	c.mu.Lock()
	ws := c.ws
	open := c.state == StateOpen
	c.mu.Unlock()

	var err error
	if ws != nil && open {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		werr := ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		if werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
			err = errors.Wrap(werr, "send close frame")
		}
	}
	c.fail(ErrClosed)
	return err
}

func (c *Conn) connect(ctx context.Context) {
	ws, _, err := c.dialer.DialContext(ctx, c.url, c.header)
	if err != nil {
		log.WithError(err).WithField("url", c.url).Error("dial clearnode")
		c.fail(errors.Wrap(err, "dial"))
		return
	}

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		_ = ws.Close()
		return
	}
	c.ws = ws
	c.state = StateOpen
	c.mu.Unlock()
	close(c.opened)
	log.WithField("url", c.url).Info("connected to clearnode")

	go c.writeLoop(ws)
	c.readLoop(ws)
}

func (c *Conn) readLoop(ws *websocket.Conn) {
	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			c.fail(errors.Wrap(err, "read"))
			return
		}
		env := rpc.Parse(msg)
		if env == nil {
			metrics.FrameDropped()
			log.WithField("bytes", len(msg)).Debug("ignoring unrecognized frame")
			continue
		}
		metrics.FrameReceived(env.Kind.String())
		c.dispatch(*env)
	}
}

func (c *Conn) writeLoop(ws *websocket.Conn) {
	for {
		for {
			c.mu.Lock()
			if c.state == StateClosed || len(c.pending) == 0 {
				c.mu.Unlock()
				break
			}
			frame := c.pending[0]
			c.pending = c.pending[1:]
			c.mu.Unlock()

			_ = ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.fail(errors.Wrap(err, "write"))
				return
			}
			metrics.FrameSent()
		}
		select {
		case <-c.done:
			return
		case <-c.wake:
		}
	}
}

func (c *Conn) dispatch(env types.Envelope) {
	if env.Kind == types.KindError && env.RequestID == 0 {
		c.broadcastError(env)
		return
	}
	c.mu.Lock()
	var hit *waiter
	for i, w := range c.waiters {
		if w.match(env) {
			hit = w
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			break
		}
	}
	var subs []*subscription
	if env.Kind.Broadcast() {
		for s := range c.subs {
			if s.wants(env.Kind) {
				subs = append(subs, s)
			}
		}
	}
	c.mu.Unlock()

	if hit != nil {
		metrics.WaiterRemoved()
		hit.ch <- outcome{env: env}
	}
	for _, s := range subs {
		s.deliver(env)
	}
	if hit == nil && len(subs) == 0 {
		log.WithFields(logrus.Fields{"kind": env.Kind, "id": env.RequestID}).Debug("no listener for frame")
	}
}

// broadcastError hands an error frame that names no request to every
// pending waiter. The node sent it in answer to something in flight, and
// no single waiter can claim it.
func (c *Conn) broadcastError(env types.Envelope) {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.mu.Unlock()

	for _, w := range waiters {
		metrics.WaiterRemoved()
		w.ch <- outcome{env: env}
	}
	log.WithFields(logrus.Fields{"waiters": len(waiters), "error": env.Error}).Warn("clearnode error without request id")
}

// fail closes the connection once, recording err as the cause.
func (c *Conn) fail(err error) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateClosed
	c.err = err
	waiters := c.waiters
	c.waiters = nil
	subs := c.subs
	c.subs = make(map[*subscription]struct{})
	dropped := len(c.pending)
	c.pending = nil
	ws := c.ws
	c.mu.Unlock()

	close(c.done)
	if ws != nil {
		_ = ws.Close()
	}
	cause := closedErr(err)
	for _, w := range waiters {
		metrics.WaiterRemoved()
		w.ch <- outcome{err: cause}
	}
	for s := range subs {
		s.close()
	}

	entry := log.WithFields(logrus.Fields{"url": c.url, "waiters": len(waiters), "unsent": dropped})
	if errors.Is(err, ErrClosed) {
		entry.Info("clearnode connection closed")
	} else {
		entry.WithError(err).Warn("clearnode connection failed")
	}
}

func (c *Conn) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return closedErr(c.err)
}

func (c *Conn) removeWaiter(w *waiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, x := range c.waiters {
		if x == w {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			metrics.WaiterRemoved()
			return
		}
	}
}

func closedErr(cause error) error {
	if cause == nil || errors.Is(cause, ErrClosed) {
		return ErrClosed
	}
	return errors.WithMessage(ErrClosed, cause.Error())
}

// Compile-time assertion that Conn implements domain.Connection.
var _ domain.Connection = (*Conn)(nil)
