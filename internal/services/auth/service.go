package auth

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/raulk/clock"
	"github.com/sirupsen/logrus"

	"fluxpay/internal/clearnode"
	"fluxpay/internal/crypto"
	"fluxpay/internal/domain"
	"fluxpay/internal/domain/types"
	"fluxpay/internal/metrics"
	"fluxpay/internal/protocol/eip712"
	"fluxpay/internal/protocol/rpc"
)

var log = logrus.WithField("component", "auth")

// Config is the policy the wallet grants to the session key.
type Config struct {
	Application string
	Scope       string
	Allowances  []domain.Allowance
	TTL         time.Duration
}

// DefaultConfig returns the sandbox policy: one ytest.usd allowance for an hour.
func DefaultConfig() Config {
	return Config{
		Application: "Test app",
		Scope:       "test.app",
		Allowances:  []domain.Allowance{{Asset: "ytest.usd", Amount: "1000000000"}},
		TTL:         time.Hour,
	}
}

// Service authenticates one session key on one connection.
//
// It owns the handshake state. Concurrent Authenticate calls are serialized
// so only one handshake is ever on the wire.
type Service struct {
	conn    domain.Connection
	builder *rpc.Builder
	wallet  domain.Wallet
	session domain.MessageSigner
	cfg     Config
	clock   clock.Clock

	handshake sync.Mutex

	mu        sync.RWMutex
	state     types.AuthState
	expiresAt time.Time
}

// New returns an auth service. A nil clk uses the wall clock.
func New(
	conn domain.Connection,
	builder *rpc.Builder,
	wallet domain.Wallet,
	session domain.MessageSigner,
	cfg Config,
	clk clock.Clock,
) *Service {
	if clk == nil {
		clk = clock.New()
	}
	return &Service{
		conn:    conn,
		builder: builder,
		wallet:  wallet,
		session: session,
		cfg:     cfg,
		clock:   clk,
	}
}

// Authenticate completes the handshake unless it already has.
//
// Steps:
//  1. Build the policy naming the wallet, the session key, the allowances
//     and an expiry of now plus the configured TTL.
//  2. Send auth_request and wait for auth_challenge.
//  3. Sign the challenge and policy as EIP-712 typed data with the wallet.
//  4. Send auth_verify and wait for a successful reply.
func (s *Service) Authenticate(ctx context.Context) error {
	if s.IsAuthenticated() {
		return nil
	}
	s.handshake.Lock()
	defer s.handshake.Unlock()
	// Another caller may have finished while we waited for the lock.
	if s.IsAuthenticated() {
		return nil
	}

	err := s.run(ctx)
	metrics.AuthAttempt(err == nil)
	if err != nil {
		s.setState(types.AuthIdle)
		log.WithError(err).Warn("authentication failed")
		return err
	}
	return nil
}

func (s *Service) run(ctx context.Context) error {
	expires := s.clock.Now().Add(s.cfg.TTL)
	policy := domain.AuthPolicy{
		Wallet:      s.wallet.Address(),
		SessionKey:  s.session.Address(),
		Application: s.cfg.Application,
		Allowances:  s.cfg.Allowances,
		ExpiresAt:   uint64(expires.Unix()),
		Scope:       s.cfg.Scope,
	}

	// Ask for a challenge.
	req, err := s.builder.AuthRequest(policy)
	if err != nil {
		return err
	}
	s.setState(types.AuthAwaitingChallenge)
	env, err := clearnode.Call(ctx, s.conn, req, rpc.Event(types.KindAuthChallenge, req.ID))
	if err != nil {
		return err
	}
	challenge, err := rpc.DecodeChallenge(env)
	if err != nil {
		return errors.Wrap(err, "auth challenge")
	}

	// Answer it with the wallet.
	sig, err := s.wallet.SignTypedData(ctx, eip712.AuthPolicy(policy, challenge))
	if err != nil {
		return errors.Wrap(err, "sign auth policy")
	}
	req, err = s.builder.AuthVerify(challenge, sig)
	if err != nil {
		return err
	}
	s.setState(types.AuthAwaitingVerify)
	env, err = clearnode.Call(ctx, s.conn, req, rpc.Event(types.KindAuthVerify, req.ID))
	if err != nil {
		return err
	}
	res, err := rpc.DecodeAuthVerify(env)
	if err != nil {
		return errors.Wrap(err, "auth verify")
	}
	if !res.Success {
		return &rpc.Error{RequestID: env.RequestID, Method: rpc.MethodAuthVerify, Message: "verification unsuccessful"}
	}

	s.mu.Lock()
	s.state = types.AuthAuthenticated
	s.expiresAt = expires
	s.mu.Unlock()

	log.WithFields(logrus.Fields{
		"wallet":  crypto.Fingerprint(policy.Wallet),
		"session": crypto.Fingerprint(policy.SessionKey),
		"expires": expires.UTC().Format(time.RFC3339),
	}).Info("authenticated with clearnode")
	return nil
}

// IsAuthenticated reports whether the handshake completed and has not expired.
func (s *Service) IsAuthenticated() bool {
	return s.State() == types.AuthAuthenticated
}

// State returns the handshake state. An expired session reads as idle.
func (s *Service) State() types.AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == types.AuthAuthenticated && !s.clock.Now().Before(s.expiresAt) {
		return types.AuthIdle
	}
	return s.state
}

// Require returns ErrNotAuthenticated unless authenticated.
func (s *Service) Require() error {
	if !s.IsAuthenticated() {
		return types.ErrNotAuthenticated
	}
	return nil
}

func (s *Service) setState(st types.AuthState) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// Compile-time assertion that Service implements domain.AuthService.
var _ domain.AuthService = (*Service)(nil)
