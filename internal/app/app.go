package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/raulk/clock"
	"github.com/sirupsen/logrus"

	"fluxpay/internal/chain"
	"fluxpay/internal/clearnode"
	"fluxpay/internal/crypto"
	"fluxpay/internal/domain"
	"fluxpay/internal/metrics"
	"fluxpay/internal/protocol/rpc"
	authsvc "fluxpay/internal/services/auth"
	channelsvc "fluxpay/internal/services/channel"
	flowsvc "fluxpay/internal/services/flow"
	ledgersvc "fluxpay/internal/services/ledger"
	payrollsvc "fluxpay/internal/services/payroll"
)

var log = logrus.WithField("component", "app")

// Option adjusts Connect.
type Option func(*options)

type options struct {
	chain domain.Chain
	clock clock.Clock
}

// WithChain replaces the configured chain backend.
func WithChain(c domain.Chain) Option { return func(o *options) { o.chain = c } }

// WithClock sets the clock used for timestamps and session expiry.
func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

// App is one connected client: a wallet, a fresh session key and one
// clearing-node connection, with the services built on them.
type App struct {
	cfg     *Config
	wallet  *crypto.WalletKey
	session *crypto.SessionKey
	conn    *clearnode.Conn
	chain   domain.Chain

	Auth     *authsvc.Service
	Ledger   *ledgersvc.Service
	Channels *channelsvc.Service
	Flow     *flowsvc.Service
	Payroll  *payrollsvc.Service

	stop context.CancelFunc
}

// Connect dials the clearing node and wires the online services for
// wallet. The connection is opened in the background; the first request
// waits for it.
func Connect(ctx context.Context, cfg *Config, w *Wire, wallet *crypto.WalletKey, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clock.New()
	}

	session, err := crypto.GenerateSessionKey()
	if err != nil {
		return nil, err
	}

	if o.chain == nil {
		o.chain = chain.Disabled{}
		if cfg.Chain.RPCURL != "" {
			client, err := chain.Dial(ctx, chain.Config{
				RPCURL:  cfg.Chain.RPCURL,
				ChainID: cfg.Chain.ChainID,
				Custody: cfg.Chain.Custody,
			}, wallet)
			if err != nil {
				session.Wipe()
				return nil, err
			}
			o.chain = client
		}
	}

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(cfg.Metrics.Addr); err != nil {
				log.WithError(err).Warn("metrics endpoint stopped")
			}
		}()
	} else {
		metrics.Init()
	}

	runCtx, stop := context.WithCancel(context.Background())
	dialCtx, cancelDial := context.WithTimeout(runCtx, cfg.Node.DialTimeout)
	conn := clearnode.Dial(dialCtx, cfg.Node.URL)
	go func() {
		select {
		case <-conn.Done():
		case <-runCtx.Done():
		}
		cancelDial()
	}()

	builder := rpc.NewBuilder(session, o.clock)
	authCfg := authsvc.Config{
		Application: cfg.Auth.Application,
		Scope:       cfg.Auth.Scope,
		Allowances:  cfg.AuthAllowances(),
		TTL:         cfg.Auth.TTL,
	}
	self := wallet.Address()
	auth := authsvc.New(conn, builder, wallet, session, authCfg, o.clock)
	channels := channelsvc.New(conn, builder, auth, o.chain, self, cfg.Chain.ChainID)

	a := &App{
		cfg:      cfg,
		wallet:   wallet,
		session:  session,
		conn:     conn,
		chain:    o.chain,
		Auth:     auth,
		Ledger:   ledgersvc.New(conn, builder, auth),
		Channels: channels,
		Flow:     flowsvc.New(auth, o.chain, channels, self, flowsvc.Config{StepTimeout: cfg.Node.ConfirmTimeout}),
		Payroll:  payrollsvc.New(w.Workspaces, w.Employees, w.Tasks, channels, o.clock),
		stop:     stop,
	}
	go channels.Watch(runCtx)

	log.WithFields(logrus.Fields{
		"node":   cfg.Node.URL,
		"wallet": crypto.Fingerprint(self),
	}).Info("client started")
	return a, nil
}

// Address returns the wallet address.
func (a *App) Address() common.Address { return a.wallet.Address() }

// Authenticate completes the handshake if it has not already.
func (a *App) Authenticate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Node.RequestTimeout)
	defer cancel()
	return a.Auth.Authenticate(ctx)
}

// IsAuthenticated reports whether the session is authenticated and unexpired.
func (a *App) IsAuthenticated() bool { return a.Auth.IsAuthenticated() }

// Balance returns the wallet's ledger balance of asset.
func (a *App) Balance(ctx context.Context, asset domain.Asset) (string, error) {
	return a.RecipientBalance(ctx, a.Address(), asset)
}

// RecipientBalance returns addr's ledger balance of asset, "0" when absent.
func (a *App) RecipientBalance(ctx context.Context, addr common.Address, asset domain.Asset) (string, error) {
	if err := a.Authenticate(ctx); err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Node.RequestTimeout)
	defer cancel()
	return a.Ledger.Balance(ctx, addr, asset)
}

// CustodyBalance returns addr's on-chain custody balance of token. A zero
// token uses the configured token.
func (a *App) CustodyBalance(ctx context.Context, addr, token common.Address) (*big.Int, error) {
	if token == (common.Address{}) {
		token = a.cfg.Chain.Token
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Node.RequestTimeout)
	defer cancel()
	bal, err := a.chain.CustodyBalance(ctx, addr, token)
	if err != nil {
		return nil, errors.Wrap(err, "custody balance")
	}
	return bal, nil
}

// ListChannels lists the wallet's channels as the node reports them.
func (a *App) ListChannels(ctx context.Context) ([]domain.ChannelSummary, error) {
	if err := a.Authenticate(ctx); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Node.RequestTimeout)
	defer cancel()
	return a.Channels.List(ctx, a.Address())
}

// OpenChannel returns an open channel for token, reusing the node's open
// channel when there is one. A zero token uses the configured token.
func (a *App) OpenChannel(ctx context.Context, token common.Address) (common.Hash, error) {
	if err := a.Authenticate(ctx); err != nil {
		return common.Hash{}, err
	}
	if token == (common.Address{}) {
		token = a.cfg.Chain.Token
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Node.ConfirmTimeout)
	defer cancel()
	id, _, err := a.Channels.Acquire(ctx, token)
	return id, err
}

// FindOpenChannel adopts the node's open channel, if any, without creating
// one. Channel state is not kept between runs, so this is how a later run
// picks up a channel opened earlier.
func (a *App) FindOpenChannel(ctx context.Context) (common.Hash, bool, error) {
	if err := a.Authenticate(ctx); err != nil {
		return common.Hash{}, false, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Node.RequestTimeout)
	defer cancel()
	return a.Channels.FindOpen(ctx, common.Address{})
}

// ResizeChannel allocates amount from the ledger into channel id.
func (a *App) ResizeChannel(ctx context.Context, id common.Hash, amount *big.Int) (domain.ChannelState, error) {
	if err := a.Authenticate(ctx); err != nil {
		return domain.ChannelState{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Node.RequestTimeout)
	defer cancel()
	return a.Channels.Resize(ctx, id, amount, a.Address())
}

// CloseChannel settles channel id back to the wallet.
func (a *App) CloseChannel(ctx context.Context, id common.Hash) (domain.Settlement, error) {
	if err := a.Authenticate(ctx); err != nil {
		return domain.Settlement{}, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Node.ConfirmTimeout)
	defer cancel()
	return a.Channels.Close(ctx, id, a.Address())
}

// Pay transfers amount of the configured asset to recipient.
func (a *App) Pay(ctx context.Context, recipient common.Address, amount *big.Int) error {
	if err := a.Authenticate(ctx); err != nil {
		return err
	}
	return a.Channels.Transfer(ctx, recipient, domain.Asset(a.cfg.Chain.Asset), amount)
}

// ExecutePaymentFlow runs deposit, channel, fund, pay and settle. Zero
// token and empty asset fall back to the configuration.
func (a *App) ExecutePaymentFlow(ctx context.Context, p domain.PaymentFlow) (domain.FlowReport, error) {
	if p.Token == (common.Address{}) {
		p.Token = a.cfg.Chain.Token
	}
	if p.Asset == "" {
		p.Asset = domain.Asset(a.cfg.Chain.Asset)
	}
	return a.Flow.Execute(ctx, p)
}

// LastChannelID returns the current channel, if any.
func (a *App) LastChannelID() (common.Hash, bool) { return a.Channels.Current() }

// Close drops the connection and the chain client and wipes the session
// key. The wallet key belongs to the caller.
func (a *App) Close() error {
	var result *multierror.Error
	a.stop()
	if err := a.conn.Close(); err != nil && !errors.Is(err, clearnode.ErrClosed) {
		result = multierror.Append(result, errors.Wrap(err, "close connection"))
	}
	if c, ok := a.chain.(interface{ Close() }); ok {
		c.Close()
	}
	a.session.Wipe()
	return result.ErrorOrNil()
}
