package sandbox

import (
	"encoding/json"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"fluxpay/internal/chain"
	"fluxpay/internal/crypto"
	"fluxpay/internal/domain/types"
	"fluxpay/internal/protocol/eip712"
	"fluxpay/internal/protocol/rpc"
)

const writeTimeout = 5 * time.Second

// session is one client connection.
type session struct {
	node *Node
	ws   *websocket.Conn

	writeMu sync.Mutex

	mu        sync.Mutex
	policy    *types.AuthPolicy
	challenge string
	authed    bool
}

func (s *session) authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authed
}

func (s *session) walletAddress() common.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.policy == nil {
		return common.Address{}
	}
	return s.policy.Wallet
}

func (s *session) serve() {
	defer s.ws.Close()
	for {
		_, msg, err := s.ws.ReadMessage()
		if err != nil {
			return
		}
		in, err := rpc.ParseRequest(msg)
		if err != nil {
			log.WithError(err).Warn("dropping malformed request")
			continue
		}
		s.handle(in)
	}
}

// handle answers one request. Every request gets exactly one reply, either
// its result or an error frame.
func (s *session) handle(in rpc.Inbound) {
	n := s.node
	n.mu.Lock()
	n.requests = append(n.requests, in.Method)
	fault, injected := n.takeFaultLocked(in.Method)
	gate, held := n.takeHoldLocked(in.Method)
	n.mu.Unlock()

	log.WithFields(logrus.Fields{"id": in.ID, "method": in.Method}).Debug("request")
	if held {
		<-gate
	}
	if injected {
		s.fail(in.ID, fault)
		return
	}

	var err error
	switch in.Method {
	case rpc.MethodAuthRequest:
		err = s.authRequest(in)
	case rpc.MethodAuthVerify:
		err = s.authVerify(in)
	default:
		if err = s.checkSession(in); err == nil {
			err = s.dispatch(in)
		}
	}
	if err != nil {
		s.fail(in.ID, err.Error())
	}
}

func (s *session) dispatch(in rpc.Inbound) error {
	switch in.Method {
	case rpc.MethodGetLedgerBalances:
		return s.getLedgerBalances(in)
	case rpc.MethodGetChannels:
		return s.getChannels(in)
	case rpc.MethodCreateChannel:
		return s.createChannel(in)
	case rpc.MethodResizeChannel:
		return s.resizeChannel(in)
	case rpc.MethodCloseChannel:
		return s.closeChannel(in)
	case rpc.MethodTransfer:
		return s.transfer(in)
	default:
		return errors.Errorf("unsupported method %s", in.Method)
	}
}

func (s *session) authRequest(in rpc.Inbound) error {
	var p types.AuthPolicy
	if err := json.Unmarshal(in.Params, &p); err != nil {
		return errors.New("invalid auth_request parameters")
	}
	if p.Wallet == (common.Address{}) || p.SessionKey == (common.Address{}) {
		return errors.New("auth_request requires address and session_key")
	}
	challenge := uuid.NewString()
	s.mu.Lock()
	s.policy = &p
	s.challenge = challenge
	s.authed = false
	s.mu.Unlock()
	return s.reply(in.ID, rpc.MethodAuthChallenge, rpc.ChallengeResult{ChallengeMessage: challenge})
}

func (s *session) authVerify(in rpc.Inbound) error {
	var p rpc.AuthVerifyParams
	if err := json.Unmarshal(in.Params, &p); err != nil {
		return errors.New("invalid auth_verify parameters")
	}
	s.mu.Lock()
	policy, challenge := s.policy, s.challenge
	s.mu.Unlock()
	if policy == nil || challenge == "" || p.Challenge != challenge {
		return errors.New("unknown challenge")
	}
	if len(in.Sigs) == 0 {
		return errors.New("missing signature")
	}
	signer, err := crypto.RecoverTypedData(eip712.AuthPolicy(*policy, challenge), in.Sigs[0])
	if err != nil || signer != policy.Wallet {
		return errors.New("invalid signature")
	}
	s.mu.Lock()
	s.authed = true
	s.challenge = ""
	s.mu.Unlock()
	log.WithField("wallet", crypto.Fingerprint(policy.Wallet)).Info("session authenticated")
	return s.reply(in.ID, rpc.MethodAuthVerify, rpc.AuthVerifyResult{
		Address:    policy.Wallet,
		SessionKey: policy.SessionKey,
		Success:    true,
	})
}

// checkSession requires a completed handshake and a request signed by the
// authorized session key.
func (s *session) checkSession(in rpc.Inbound) error {
	s.mu.Lock()
	authed, policy := s.authed, s.policy
	s.mu.Unlock()
	if !authed {
		return errors.New("authentication required")
	}
	if policy.ExpiresAt != 0 && uint64(s.node.clk.Now().Unix()) >= policy.ExpiresAt {
		return errors.New("session expired")
	}
	if len(in.Sigs) == 0 {
		return errors.New("missing signature")
	}
	signer, err := crypto.RecoverPayload(in.Req, in.Sigs[0])
	if err != nil || signer != policy.SessionKey {
		return errors.New("invalid signature")
	}
	return nil
}

func (s *session) getLedgerBalances(in rpc.Inbound) error {
	var p rpc.ParticipantParams
	if err := json.Unmarshal(in.Params, &p); err != nil {
		return errors.New("invalid parameters")
	}
	if p.Participant == (common.Address{}) {
		p.Participant = s.walletAddress()
	}
	n := s.node
	n.mu.Lock()
	entries := n.ledger.entries(p.Participant)
	n.mu.Unlock()
	return s.reply(in.ID, rpc.MethodGetLedgerBalances, balancesResult(entries))
}

func (s *session) getChannels(in rpc.Inbound) error {
	var p rpc.ParticipantParams
	if err := json.Unmarshal(in.Params, &p); err != nil {
		return errors.New("invalid parameters")
	}
	n := s.node
	n.mu.Lock()
	out := rpc.ChannelsResult{Channels: []rpc.ChannelEntry{}}
	for _, id := range n.order {
		rec := n.channels[id]
		if rec.owner != p.Participant || rec.status == "" {
			continue
		}
		if p.Status != "" && rec.status != p.Status {
			continue
		}
		out.Channels = append(out.Channels, rpc.ChannelEntry{
			ChannelID:   rec.id,
			Participant: rec.owner,
			Status:      rec.status,
			Token:       rec.token,
			Amount:      rpc.NewAmount(rec.state.Total()),
			ChainID:     rpc.Uint64(rec.chainID),
			Version:     rpc.Uint64(rec.state.Version),
		})
	}
	n.mu.Unlock()
	return s.reply(in.ID, rpc.MethodGetChannels, out)
}

func (s *session) createChannel(in rpc.Inbound) error {
	var p rpc.CreateChannelParams
	if err := json.Unmarshal(in.Params, &p); err != nil {
		return errors.New("invalid parameters")
	}
	n := s.node
	if p.ChainID != n.chainID {
		return errors.Errorf("unsupported chain %d", p.ChainID)
	}
	n.mu.Lock()
	rec, err := n.newChannelLocked(s.walletAddress(), p.Token)
	if err == nil {
		rec.status = statusOpen
	}
	n.mu.Unlock()
	if err != nil {
		return err
	}
	return s.channelReply(in.ID, rpc.MethodCreateChannel, rec, true)
}

func (s *session) resizeChannel(in rpc.Inbound) error {
	var p rpc.ResizeChannelParams
	if err := json.Unmarshal(in.Params, &p); err != nil {
		return errors.New("invalid parameters")
	}
	n := s.node
	n.mu.Lock()
	rec, err := s.ownedOpenLocked(p.ChannelID)
	if err != nil {
		n.mu.Unlock()
		return err
	}
	amount := p.AllocateAmount.Int()
	next := new(big.Int).Add(rec.state.Allocations[0].Amount, amount)
	available := n.ledger.balance(rec.owner, n.AssetOf(rec.token))
	if available.LessThan(decimal.NewFromBigInt(next, 0)) {
		n.mu.Unlock()
		return errors.New("insufficient unified balance")
	}
	rec.state.Intent = types.IntentResize
	rec.state.Version++
	rec.state.Allocations[0].Amount = next
	n.mu.Unlock()
	return s.channelReply(in.ID, rpc.MethodResizeChannel, rec, false)
}

func (s *session) closeChannel(in rpc.Inbound) error {
	var p rpc.CloseChannelParams
	if err := json.Unmarshal(in.Params, &p); err != nil {
		return errors.New("invalid parameters")
	}
	n := s.node
	n.mu.Lock()
	rec, err := s.ownedOpenLocked(p.ChannelID)
	if err != nil {
		n.mu.Unlock()
		return err
	}
	// Pay out what the owner still holds on the ledger, up to the channel's value.
	locked := rec.state.Total()
	held := n.ledger.balance(rec.owner, n.AssetOf(rec.token)).BigInt()
	payout := locked
	if held.Cmp(payout) < 0 {
		payout = held
	}
	if payout.Sign() < 0 {
		payout = new(big.Int)
	}
	dest := p.FundsDestination
	if dest == (common.Address{}) {
		dest = rec.owner
	}
	rec.state.Intent = types.IntentFinalize
	rec.state.Version++
	rec.state.Allocations = []types.Allocation{
		{Destination: dest, Token: rec.token, Amount: payout},
		{Destination: n.key.Address(), Token: rec.token, Amount: new(big.Int).Sub(locked, payout)},
	}
	rec.status = statusClosed
	n.ledger.add(rec.owner, n.AssetOf(rec.token), decimal.NewFromBigInt(payout, 0).Neg())
	n.mu.Unlock()
	return s.channelReply(in.ID, rpc.MethodCloseChannel, rec, false)
}

func (s *session) transfer(in rpc.Inbound) error {
	var p rpc.TransferParams
	if err := json.Unmarshal(in.Params, &p); err != nil {
		return errors.New("invalid parameters")
	}
	if p.Destination == (common.Address{}) || len(p.Allocations) == 0 {
		return errors.New("transfer requires destination and allocations")
	}
	from := s.walletAddress()
	n := s.node
	n.mu.Lock()
	for _, a := range p.Allocations {
		if n.ledger.balance(from, a.Asset).LessThan(decimal.NewFromBigInt(a.Amount.Int(), 0)) {
			n.mu.Unlock()
			return errors.Errorf("insufficient funds: %s", a.Asset)
		}
	}
	result := rpc.TransferResult{}
	for _, a := range p.Allocations {
		n.ledger.move(from, p.Destination, a.Asset, decimal.NewFromBigInt(a.Amount.Int(), 0))
		n.txSeq++
		result.Transactions = append(result.Transactions, rpc.TransferEntry{
			ID:          rpc.Uint64(n.txSeq),
			FromAccount: from,
			ToAccount:   p.Destination,
			Asset:       a.Asset,
			Amount:      rpc.Decimal(a.Amount.Int().String()),
		})
	}
	n.mu.Unlock()

	if err := s.reply(in.ID, rpc.MethodTransfer, result); err != nil {
		return err
	}
	for _, peer := range n.sessionsFor(p.Destination) {
		peer.notify(rpc.MethodTransferNotice, result)
	}
	n.notifyBalance(from)
	n.notifyBalance(p.Destination)
	return nil
}

// ownedOpenLocked returns the caller's open channel id. Callers hold the node lock.
func (s *session) ownedOpenLocked(id common.Hash) (*channelRecord, error) {
	rec, ok := s.node.channels[id]
	if !ok || rec.owner != s.walletAddress() {
		return nil, errors.Errorf("channel %s not found", id.Hex())
	}
	if rec.status != statusOpen {
		return nil, errors.Errorf("channel %s is %s", id.Hex(), rec.status)
	}
	return rec, nil
}

// channelReply signs rec's current state and sends it as the reply to id,
// followed by a channel update notice.
func (s *session) channelReply(id uint64, method string, rec *channelRecord, withDefinition bool) error {
	n := s.node
	n.mu.Lock()
	state := rec.state
	state.Allocations = make([]types.Allocation, len(rec.state.Allocations))
	for i, a := range rec.state.Allocations {
		a.Amount = new(big.Int).Set(a.Amount)
		state.Allocations[i] = a
	}
	def, status := rec.def, rec.status
	edit := n.takeEditLocked(method)
	n.mu.Unlock()
	if edit != nil {
		edit(&state)
	}

	packed, err := chain.EncodeState(rec.id, state)
	if err != nil {
		return err
	}
	sig, err := n.key.Sign(packed)
	if err != nil {
		return err
	}
	res := rpc.ChannelUpdateResult{
		ChannelID:       rec.id,
		State:           rpc.FromState(state),
		ServerSignature: sig,
	}
	if withDefinition {
		res.Channel = rpc.FromDefinition(def)
	}
	if err := s.reply(id, method, res); err != nil {
		return err
	}
	s.notify(rpc.MethodChannelUpdate, rpc.ChannelEntry{
		ChannelID:   rec.id,
		Participant: rec.owner,
		Status:      status,
		Token:       rec.token,
		Amount:      rpc.NewAmount(state.Total()),
		ChainID:     rpc.Uint64(rec.chainID),
		Version:     rpc.Uint64(state.Version),
	})
	return nil
}

func (s *session) reply(id uint64, method string, result any) error {
	frame, err := rpc.EncodeResponse(id, method, result, s.now(), s.node.key)
	if err != nil {
		return err
	}
	return s.write(frame)
}

// notify pushes an unsolicited frame with id 0. Failures are only logged.
func (s *session) notify(method string, result any) {
	if err := s.reply(0, method, result); err != nil {
		log.WithError(err).WithField("method", method).Debug("notify failed")
	}
}

func (s *session) fail(id uint64, message string) {
	frame, err := rpc.EncodeError(id, message, s.now(), s.node.key)
	if err != nil {
		log.WithError(err).Warn("encode error frame")
		return
	}
	if err := s.write(frame); err != nil {
		log.WithError(err).Debug("write error frame")
	}
}

func (s *session) write(frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return s.ws.WriteMessage(websocket.TextMessage, frame)
}

func (s *session) now() uint64 { return uint64(s.node.clk.Now().UnixMilli()) }

func balancesResult(entries []types.LedgerBalance) rpc.LedgerBalancesResult {
	out := rpc.LedgerBalancesResult{LedgerBalances: []rpc.LedgerBalance{}}
	for _, e := range entries {
		out.LedgerBalances = append(out.LedgerBalances, rpc.LedgerBalance{
			Asset:  e.Asset,
			Amount: rpc.Decimal(e.Amount),
		})
	}
	return out
}
