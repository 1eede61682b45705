package channel

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"fluxpay/internal/clearnode"
	"fluxpay/internal/domain"
	"fluxpay/internal/domain/types"
	"fluxpay/internal/metrics"
	"fluxpay/internal/protocol/rpc"
)

var log = logrus.WithField("component", "channel")

// StatusOpen is the node's status string for a usable channel.
const StatusOpen = "open"

// Service owns the client's channel cache and the current channel.
type Service struct {
	conn    domain.Connection
	builder *rpc.Builder
	auth    domain.AuthService
	chain   domain.Chain
	self    common.Address
	chainID uint64

	mu       sync.Mutex
	channels map[common.Hash]*types.Channel
	current  common.Hash
	settling map[common.Hash]bool

	// creates holds the node's create reply for channels still
	// pending-create, so the on-chain create can be resubmitted.
	creates  map[common.Hash]types.ChannelUpdate
	creating map[common.Hash]bool
}

// New returns a channel service acting for self on chainID. chain may be
// nil, in which case anything that needs an on-chain transaction fails with
// ErrNoChain.
func New(
	conn domain.Connection,
	builder *rpc.Builder,
	auth domain.AuthService,
	chain domain.Chain,
	self common.Address,
	chainID uint64,
) *Service {
	return &Service{
		conn:     conn,
		builder:  builder,
		auth:     auth,
		chain:    chain,
		self:     self,
		chainID:  chainID,
		channels: make(map[common.Hash]*types.Channel),
		settling: make(map[common.Hash]bool),
		creates:  make(map[common.Hash]types.ChannelUpdate),
		creating: make(map[common.Hash]bool),
	}
}

// List returns the node's channels for participant.
func (s *Service) List(ctx context.Context, participant common.Address) ([]types.ChannelSummary, error) {
	if err := s.auth.Require(); err != nil {
		return nil, err
	}
	req, err := s.builder.GetChannels(participant, "")
	if err != nil {
		return nil, err
	}
	env, err := clearnode.Call(ctx, s.conn, req, rpc.Reply(req.ID, types.KindChannelsList))
	if err != nil {
		return nil, err
	}
	return rpc.DecodeChannels(env)
}

// FindOpen asks the node for an open channel of self for token and adopts
// the first one as the current channel. A channel the node reports open but
// that is cached in another status, such as a create still unconfirmed on
// chain, is not reused.
func (s *Service) FindOpen(ctx context.Context, token common.Address) (common.Hash, bool, error) {
	list, err := s.List(ctx, s.self)
	if err != nil {
		return common.Hash{}, false, err
	}
	for _, c := range list {
		if c.Status != StatusOpen {
			continue
		}
		if token != (common.Address{}) && c.Token != (common.Address{}) && c.Token != token {
			continue
		}
		if status := s.adopt(c, true); status != types.ChannelOpen {
			log.WithFields(logrus.Fields{
				"channel": c.ChannelID.Hex(),
				"status":  status,
			}).Debug("node reports channel open, not reusing it")
			continue
		}
		log.WithField("channel", c.ChannelID.Hex()).Info("reusing open channel")
		return c.ChannelID, true, nil
	}
	return common.Hash{}, false, nil
}

// Open creates a new channel for token and returns its id once the custody
// contract has confirmed it.
//
// Steps:
//  1. Send create_channel and wait for the node's channel-created reply.
//  2. Record the channel as pending-create.
//  3. Submit the node-signed initial state on-chain and wait for the receipt.
//  4. Mark the channel open and current.
func (s *Service) Open(ctx context.Context, token common.Address) (common.Hash, error) {
	if err := s.auth.Require(); err != nil {
		return common.Hash{}, err
	}
	req, err := s.builder.CreateChannel(s.chainID, token)
	if err != nil {
		return common.Hash{}, err
	}
	env, err := clearnode.Call(ctx, s.conn, req, rpc.Reply(req.ID, types.KindChannelCreated))
	if err != nil {
		return common.Hash{}, err
	}
	update, err := rpc.DecodeChannelUpdate(env)
	if err != nil {
		return common.Hash{}, err
	}
	if update.Definition == nil {
		return common.Hash{}, errors.Wrap(types.ErrProtocol, "create_channel reply has no channel definition")
	}
	if len(update.ServerSignature) == 0 {
		return common.Hash{}, types.ErrMissingServerSignature
	}

	id := update.ChannelID
	s.mu.Lock()
	s.channels[id] = &types.Channel{
		ID:          id,
		Token:       token,
		Definition:  *update.Definition,
		Version:     update.State.Version,
		Allocations: update.State.Allocations,
		Status:      types.ChannelPendingCreate,
	}
	s.creates[id] = update
	s.mu.Unlock()
	log.WithField("channel", id.Hex()).Info("node prepared channel, submitting on-chain")

	return id, s.completeCreate(ctx, id)
}

// Acquire returns an open channel for token. A channel this client created
// whose on-chain create failed is finished first; otherwise the node's open
// channel is reused, and only then is a new one opened.
func (s *Service) Acquire(ctx context.Context, token common.Address) (common.Hash, bool, error) {
	if err := s.auth.Require(); err != nil {
		return common.Hash{}, false, err
	}
	if id, ok := s.pendingCreate(token); ok {
		log.WithField("channel", id.Hex()).Info("resubmitting on-chain create")
		return id, false, s.completeCreate(ctx, id)
	}
	id, ok, err := s.FindOpen(ctx, token)
	if err != nil || ok {
		return id, ok, err
	}
	id, err = s.Open(ctx, token)
	return id, false, err
}

// pendingCreate returns a channel for token whose create reply is held
// and whose on-chain create has not confirmed.
func (s *Service) pendingCreate(token common.Address) (common.Hash, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.creates {
		ch := s.channels[id]
		if ch == nil || ch.Status != types.ChannelPendingCreate {
			continue
		}
		if token == (common.Address{}) || ch.Token == token {
			return id, true
		}
	}
	return common.Hash{}, false
}

// completeCreate submits the held create state for id on-chain and marks
// the channel open and current once the receipt confirms.
func (s *Service) completeCreate(ctx context.Context, id common.Hash) error {
	s.mu.Lock()
	update, ok := s.creates[id]
	if !ok {
		s.mu.Unlock()
		return errors.Wrapf(types.ErrNoChannel, "no pending create for %s", id.Hex())
	}
	if s.creating[id] {
		s.mu.Unlock()
		return errors.Wrapf(types.ErrChannelBusy, "channel %s create is being submitted", id.Hex())
	}
	s.creating[id] = true
	s.mu.Unlock()

	receipt, err := s.submit(ctx, "create", func(ctx context.Context) (common.Hash, error) {
		return s.chain.CreateChannel(ctx, update)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creating, id)
	if err != nil {
		return err
	}
	delete(s.creates, id)
	if ch, ok := s.channels[id]; ok {
		ch.Status = types.ChannelOpen
	}
	s.current = id
	log.WithFields(logrus.Fields{"channel": id.Hex(), "tx": receipt.TxHash.Hex()}).Info("channel open")
	return nil
}

// Resize allocates amount from the ledger into channel id.
func (s *Service) Resize(ctx context.Context, id common.Hash, amount *big.Int, destination common.Address) (types.ChannelState, error) {
	if err := s.auth.Require(); err != nil {
		return types.ChannelState{}, err
	}
	if amount == nil || amount.Sign() <= 0 {
		return types.ChannelState{}, errors.New("resize amount must be positive")
	}
	if err := s.begin(ctx, id, types.ChannelPendingResize, false); err != nil {
		return types.ChannelState{}, err
	}
	want := new(big.Int).Add(s.locked(id), amount)

	update, err := s.request(ctx, id, types.KindChannelResized, func() (rpc.Request, error) {
		return s.builder.ResizeChannel(id, amount, destination)
	})
	if err == nil {
		if got := update.State.Total(); got.Cmp(want) != 0 {
			err = errors.Wrapf(types.ErrProtocol, "resized channel holds %s, want %s", got, want)
		}
	}
	if err != nil {
		s.restore(id, types.ChannelOpen)
		return types.ChannelState{}, err
	}
	if err := s.apply(id, update.State, types.ChannelOpen); err != nil {
		s.restore(id, types.ChannelOpen)
		return types.ChannelState{}, err
	}
	log.WithFields(logrus.Fields{
		"channel": id.Hex(),
		"version": update.State.Version,
		"amount":  amount.String(),
	}).Info("channel resized")
	return update.State, nil
}

// Close asks the node for a co-signed final state for channel id, submits
// it on-chain and reports the settlement once the receipt confirms.
//
// Steps:
//  1. Claim the channel for settlement; a concurrent Close fails.
//  2. Send close_channel and wait for the node's channel-closed reply.
//  3. Submit the final state on-chain and wait for the receipt.
//  4. Mark the channel closed and clear it as current.
func (s *Service) Close(ctx context.Context, id common.Hash, destination common.Address) (types.Settlement, error) {
	if err := s.auth.Require(); err != nil {
		return types.Settlement{}, err
	}
	if err := s.begin(ctx, id, types.ChannelPendingClose, true); err != nil {
		return types.Settlement{}, err
	}
	defer func() {
		s.mu.Lock()
		delete(s.settling, id)
		s.mu.Unlock()
	}()

	update, err := s.request(ctx, id, types.KindChannelClosed, func() (rpc.Request, error) {
		return s.builder.CloseChannel(id, destination)
	})
	if err == nil {
		err = s.checkVersion(id, update.State.Version)
	}
	if err != nil {
		s.restore(id, types.ChannelOpen)
		return types.Settlement{}, err
	}
	log.WithField("channel", id.Hex()).Info("node signed final state, settling on-chain")

	receipt, err := s.submit(ctx, "close", func(ctx context.Context) (common.Hash, error) {
		return s.chain.CloseChannel(ctx, update)
	})
	if err != nil {
		s.restore(id, types.ChannelOpen)
		return types.Settlement{}, err
	}
	if err := s.apply(id, update.State, types.ChannelClosed); err != nil {
		return types.Settlement{}, err
	}

	s.mu.Lock()
	if s.current == id {
		s.current = common.Hash{}
	}
	s.mu.Unlock()
	log.WithFields(logrus.Fields{"channel": id.Hex(), "tx": receipt.TxHash.Hex()}).Info("channel settled")
	return types.Settlement{ChannelID: id, State: update.State, TxHash: receipt.TxHash}, nil
}

// Transfer sends amount of asset to destination. It does not wait for the
// node; transfer notices are only logged.
func (s *Service) Transfer(ctx context.Context, destination common.Address, asset types.Asset, amount *big.Int) error {
	if err := s.auth.Require(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return errors.New("transfer amount must be positive")
	}
	req, err := s.builder.Transfer(destination, asset, amount)
	if err != nil {
		return err
	}
	if err := s.conn.Send(req.Frame); err != nil {
		return errors.Wrap(err, "send transfer")
	}
	log.WithFields(logrus.Fields{
		"to":     destination.Hex(),
		"asset":  asset,
		"amount": amount.String(),
	}).Info("transfer sent")
	return nil
}

// Current returns the current channel, if any.
func (s *Service) Current() (common.Hash, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.current != (common.Hash{})
}

// Channel returns a copy of the cached channel id.
func (s *Service) Channel(id common.Hash) (types.Channel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[id]
	if !ok {
		return types.Channel{}, false
	}
	out := *ch
	out.Allocations = append([]types.Allocation(nil), ch.Allocations...)
	return out, true
}

// request sends the request build returns and waits for the channel event
// of kind for id.
func (s *Service) request(
	ctx context.Context,
	id common.Hash,
	kind types.Kind,
	build func() (rpc.Request, error),
) (types.ChannelUpdate, error) {
	req, err := build()
	if err != nil {
		return types.ChannelUpdate{}, err
	}
	env, err := clearnode.Call(ctx, s.conn, req, rpc.ChannelEvent(kind, id, req.ID))
	if err != nil {
		return types.ChannelUpdate{}, err
	}
	update, err := rpc.DecodeChannelUpdate(env)
	if err != nil {
		return types.ChannelUpdate{}, err
	}
	if update.ChannelID != id {
		return types.ChannelUpdate{}, errors.Wrapf(types.ErrProtocol, "%s reply for channel %s", req.Method, update.ChannelID.Hex())
	}
	if len(update.ServerSignature) == 0 {
		return types.ChannelUpdate{}, types.ErrMissingServerSignature
	}
	return update, nil
}

// submit sends one on-chain transaction and waits for a successful receipt.
func (s *Service) submit(
	ctx context.Context,
	op string,
	send func(context.Context) (common.Hash, error),
) (types.Receipt, error) {
	if s.chain == nil {
		return types.Receipt{}, types.ErrNoChain
	}
	tx, err := send(ctx)
	if err != nil {
		metrics.ChainTx(op, false)
		return types.Receipt{}, errors.Wrapf(err, "submit %s", op)
	}
	receipt, err := s.chain.WaitMined(ctx, tx)
	if err != nil {
		metrics.ChainTx(op, false)
		return types.Receipt{}, errors.Wrapf(err, "wait for %s tx %s", op, tx.Hex())
	}
	if !receipt.Success {
		metrics.ChainTx(op, false)
		return receipt, errors.Wrapf(types.ErrTxFailed, "%s tx %s reverted", op, tx.Hex())
	}
	metrics.ChainTx(op, true)
	return receipt, nil
}
