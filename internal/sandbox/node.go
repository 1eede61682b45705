package sandbox

import (
	"math/big"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/raulk/clock"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"fluxpay/internal/chain"
	"fluxpay/internal/crypto"
	"fluxpay/internal/domain/types"
)

var log = logrus.WithField("component", "sandbox")

// Node defaults.
const (
	DefaultAsset     types.Asset = "ytest.usd"
	DefaultChainID   uint64      = 11155111
	DefaultChallenge uint64      = 3600
)

// DefaultAdjudicator is the adjudicator named in new channel definitions.
var DefaultAdjudicator = common.HexToAddress("0x7c7ccbc98469190849BCC6c926307794fDfB11F2")

// Node channel statuses as reported by get_channels.
const (
	statusOpen   = "open"
	statusClosed = "closed"
)

type channelRecord struct {
	id      common.Hash
	token   common.Address
	owner   common.Address
	def     types.ChannelDefinition
	state   types.ChannelState
	status  string
	chainID uint64
}

// Option configures a Node.
type Option func(*Node)

// WithChainID sets the chain new channels are created on.
func WithChainID(id uint64) Option { return func(n *Node) { n.chainID = id } }

// WithAsset maps token to a ledger asset symbol. Unmapped tokens use DefaultAsset.
func WithAsset(token common.Address, asset types.Asset) Option {
	return func(n *Node) { n.assets[token] = asset }
}

// WithClock sets the clock used for timestamps and channel nonces.
func WithClock(c clock.Clock) Option { return func(n *Node) { n.clk = c } }

// Node is an in-memory clearing node.
type Node struct {
	key         *crypto.SessionKey
	chainID     uint64
	adjudicator common.Address
	assets      map[common.Address]types.Asset
	clk         clock.Clock
	upgrader    websocket.Upgrader

	mu       sync.Mutex
	ledger   ledger
	channels map[common.Hash]*channelRecord
	order    []common.Hash
	nonce    uint64
	faults   map[string][]string
	holds    map[string][]chan struct{}
	edits    map[string][]func(*types.ChannelState)
	requests []string
	sessions map[*session]struct{}
	txSeq    uint64
}

// NewNode returns a node with a fresh signing key.
func NewNode(opts ...Option) (*Node, error) {
	key, err := crypto.GenerateSessionKey()
	if err != nil {
		return nil, errors.Wrap(err, "node key")
	}
	n := &Node{
		key:         key,
		chainID:     DefaultChainID,
		adjudicator: DefaultAdjudicator,
		assets:      make(map[common.Address]types.Asset),
		clk:         clock.New(),
		ledger:      make(ledger),
		channels:    make(map[common.Hash]*channelRecord),
		faults:      make(map[string][]string),
		holds:       make(map[string][]chan struct{}),
		edits:       make(map[string][]func(*types.ChannelState)),
		sessions:    make(map[*session]struct{}),
	}
	for _, o := range opts {
		o(n)
	}
	return n, nil
}

// Address returns the node's signing address.
func (n *Node) Address() common.Address { return n.key.Address() }

// AssetOf returns the ledger asset for token.
func (n *Node) AssetOf(token common.Address) types.Asset {
	if a, ok := n.assets[token]; ok {
		return a
	}
	return DefaultAsset
}

// Credit adds amount, a decimal string, to addr's ledger balance of asset.
func (n *Node) Credit(addr common.Address, asset types.Asset, amount string) error {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return errors.Wrapf(err, "credit amount %q", amount)
	}
	n.mu.Lock()
	n.ledger.add(addr, asset, d)
	n.mu.Unlock()
	n.notifyBalance(addr)
	return nil
}

// Balance returns addr's ledger balance of asset as a decimal string.
func (n *Node) Balance(addr common.Address, asset types.Asset) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.balance(addr, asset).String()
}

// SeedChannel records an open channel for owner as if it had been created
// earlier, and returns its id.
func (n *Node) SeedChannel(owner, token common.Address, amount *big.Int) (common.Hash, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	rec, err := n.newChannelLocked(owner, token)
	if err != nil {
		return common.Hash{}, err
	}
	if amount != nil {
		rec.state.Allocations[0].Amount = new(big.Int).Set(amount)
	}
	rec.status = statusOpen
	return rec.id, nil
}

// ChannelStatus returns the node's status for channel id.
func (n *Node) ChannelStatus(id common.Hash) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	rec, ok := n.channels[id]
	if !ok {
		return "", false
	}
	return rec.status, true
}

// FailNext makes the next request for method fail with message.
func (n *Node) FailNext(method, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.faults[method] = append(n.faults[method], message)
}

// HoldNext delays the next request for method until release is called.
// The request is recorded as received while it is held.
func (n *Node) HoldNext(method string) (release func()) {
	gate := make(chan struct{})
	n.mu.Lock()
	n.holds[method] = append(n.holds[method], gate)
	n.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// EditNext rewrites the state signed into the next channel reply for
// method. The node's own record of the channel is left unchanged.
func (n *Node) EditNext(method string, edit func(*types.ChannelState)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.edits[method] = append(n.edits[method], edit)
}

// Requests returns the methods received so far, in order.
func (n *Node) Requests() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.requests...)
}

// Count returns how many requests for method were received.
func (n *Node) Count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.requests {
		if m == method {
			c++
		}
	}
	return c
}

// ServeHTTP upgrades the request to a websocket and serves it until the
// peer disconnects.
func (n *Node) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := n.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("upgrade failed")
		return
	}
	s := &session{node: n, ws: ws}
	n.mu.Lock()
	n.sessions[s] = struct{}{}
	n.mu.Unlock()
	log.WithField("remote", r.RemoteAddr).Info("client connected")

	s.serve()

	n.mu.Lock()
	delete(n.sessions, s)
	n.mu.Unlock()
	log.WithField("remote", r.RemoteAddr).Info("client disconnected")
}

// Close wipes the node key.
func (n *Node) Close() { n.key.Wipe() }

// takeFaultLocked pops an injected failure for method. Callers hold n.mu.
func (n *Node) takeFaultLocked(method string) (string, bool) {
	q := n.faults[method]
	if len(q) == 0 {
		return "", false
	}
	n.faults[method] = q[1:]
	return q[0], true
}

// takeHoldLocked pops a hold gate for method. Callers hold n.mu.
func (n *Node) takeHoldLocked(method string) (chan struct{}, bool) {
	q := n.holds[method]
	if len(q) == 0 {
		return nil, false
	}
	n.holds[method] = q[1:]
	return q[0], true
}

// takeEditLocked pops a reply edit for method. Callers hold n.mu.
func (n *Node) takeEditLocked(method string) func(*types.ChannelState) {
	q := n.edits[method]
	if len(q) == 0 {
		return nil
	}
	n.edits[method] = q[1:]
	return q[0]
}

// newChannelLocked allocates a channel definition and initial state for owner.
func (n *Node) newChannelLocked(owner, token common.Address) (*channelRecord, error) {
	n.nonce++
	def := types.ChannelDefinition{
		Participants: []common.Address{owner, n.key.Address()},
		Adjudicator:  n.adjudicator,
		Challenge:    DefaultChallenge,
		Nonce:        uint64(n.clk.Now().UnixMilli()) + n.nonce,
	}
	id, err := chain.ChannelID(def, n.chainID)
	if err != nil {
		return nil, err
	}
	rec := &channelRecord{
		id:      id,
		token:   token,
		owner:   owner,
		def:     def,
		chainID: n.chainID,
		state: types.ChannelState{
			Intent:  types.IntentInitialize,
			Version: 0,
			Data:    []byte{},
			Allocations: []types.Allocation{
				{Destination: owner, Token: token, Amount: new(big.Int)},
				{Destination: n.key.Address(), Token: token, Amount: new(big.Int)},
			},
		},
	}
	n.channels[id] = rec
	n.order = append(n.order, id)
	return rec, nil
}

// sessionsFor returns the authenticated sessions of addr.
func (n *Node) sessionsFor(addr common.Address) []*session {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []*session
	for s := range n.sessions {
		if s.authenticated() && s.walletAddress() == addr {
			out = append(out, s)
		}
	}
	return out
}

func (n *Node) notifyBalance(addr common.Address) {
	subs := n.sessionsFor(addr)
	if len(subs) == 0 {
		return
	}
	n.mu.Lock()
	entries := n.ledger.entries(addr)
	n.mu.Unlock()
	for _, s := range subs {
		s.notify("bu", balancesResult(entries))
	}
}
