package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"fluxpay/internal/domain"
	"fluxpay/internal/domain/types"
	"fluxpay/internal/metrics"
)

var log = logrus.WithField("component", "flow")

// Step names reported in StepError.
const (
	StepAuthenticate = "authenticate"
	StepDeposit      = "deposit"
	StepChannel      = "channel"
	StepFund         = "fund"
	StepPay          = "pay"
	StepSettle       = "settle"
)

// StepError names the step a payment flow stopped at.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("payment flow %s: %v", e.Step, e.Err) }

func (e *StepError) Unwrap() error { return e.Err }

// Config bounds each step. Zero means the caller's context alone bounds it.
type Config struct {
	StepTimeout time.Duration
}

// Service runs payment flows for self.
type Service struct {
	auth     domain.AuthService
	chain    domain.Chain
	channels domain.ChannelService
	self     common.Address
	cfg      Config
}

// New returns a flow service.
func New(
	auth domain.AuthService,
	chain domain.Chain,
	channels domain.ChannelService,
	self common.Address,
	cfg Config,
) *Service {
	return &Service{auth: auth, chain: chain, channels: channels, self: self, cfg: cfg}
}

// Execute runs one payment flow.
//
// Steps:
//  1. Authenticate (a no-op when already authenticated).
//  2. Deposit DepositAmount into custody when it is positive and the wallet
//     holds at least that much of the token; otherwise skip.
//  3. Reuse the node's open channel for the token or open a new one.
//  4. Resize the channel by FundAmount to self.
//  5. Transfer PayAmount of Asset to Recipient.
//  6. Close the channel and wait for the on-chain settlement.
func (s *Service) Execute(ctx context.Context, p types.PaymentFlow) (types.FlowReport, error) {
	var report types.FlowReport
	if err := validate(p); err != nil {
		return report, err
	}

	if err := s.step(ctx, StepAuthenticate, s.auth.Authenticate); err != nil {
		return report, err
	}

	err := s.step(ctx, StepDeposit, func(ctx context.Context) error {
		return s.deposit(ctx, p, &report)
	})
	if err != nil {
		return report, err
	}

	err = s.step(ctx, StepChannel, func(ctx context.Context) error {
		id, reused, err := s.channels.Acquire(ctx, p.Token)
		report.ChannelID, report.Reused = id, reused
		return err
	})
	if err != nil {
		return report, err
	}

	err = s.step(ctx, StepFund, func(ctx context.Context) error {
		st, err := s.channels.Resize(ctx, report.ChannelID, p.FundAmount, s.self)
		report.FundedState = st
		return err
	})
	if err != nil {
		return report, err
	}

	err = s.step(ctx, StepPay, func(ctx context.Context) error {
		return s.channels.Transfer(ctx, p.Recipient, p.Asset, p.PayAmount)
	})
	if err != nil {
		return report, err
	}

	err = s.step(ctx, StepSettle, func(ctx context.Context) error {
		st, err := s.channels.Close(ctx, report.ChannelID, s.self)
		report.Settlement = st
		return err
	})
	if err != nil {
		return report, err
	}

	log.WithFields(logrus.Fields{
		"channel": report.ChannelID.Hex(),
		"tx":      report.Settlement.TxHash.Hex(),
	}).Info("payment flow complete")
	return report, nil
}

// deposit moves the deposit amount into custody when the wallet can cover
// it, recording the custody balance before and after in report.
func (s *Service) deposit(ctx context.Context, p types.PaymentFlow, report *types.FlowReport) error {
	if p.DepositAmount == nil || p.DepositAmount.Sign() == 0 {
		log.Info("no deposit requested")
		return nil
	}
	if s.chain == nil {
		return types.ErrNoChain
	}
	balance, err := s.chain.TokenBalance(ctx, s.self, p.Token)
	if err != nil {
		return errors.Wrap(err, "token balance")
	}
	if balance.Cmp(p.DepositAmount) < 0 {
		log.WithFields(logrus.Fields{
			"balance": balance.String(),
			"want":    p.DepositAmount.String(),
		}).Warn("token balance below deposit amount, skipping deposit")
		return nil
	}
	before, err := s.chain.CustodyBalance(ctx, s.self, p.Token)
	if err != nil {
		return errors.Wrap(err, "custody balance")
	}
	report.CustodyBefore = before

	tx, err := s.chain.Deposit(ctx, p.Token, p.DepositAmount)
	if err != nil {
		metrics.ChainTx("deposit", false)
		return errors.Wrap(err, "submit deposit")
	}
	report.DepositTx = tx
	receipt, err := s.chain.WaitMined(ctx, tx)
	if err != nil {
		metrics.ChainTx("deposit", false)
		return errors.Wrapf(err, "wait for deposit tx %s", tx.Hex())
	}
	if !receipt.Success {
		metrics.ChainTx("deposit", false)
		return errors.Wrapf(types.ErrTxFailed, "deposit tx %s reverted", tx.Hex())
	}
	metrics.ChainTx("deposit", true)
	report.Deposited = true

	after, err := s.chain.CustodyBalance(ctx, s.self, p.Token)
	if err != nil {
		return errors.Wrap(err, "custody balance")
	}
	report.CustodyAfter = after
	log.WithFields(logrus.Fields{
		"tx":     tx.Hex(),
		"before": before.String(),
		"after":  after.String(),
	}).Info("deposit confirmed")
	return nil
}

func (s *Service) step(ctx context.Context, name string, fn func(context.Context) error) error {
	if s.cfg.StepTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.StepTimeout)
		defer cancel()
	}
	log.WithField("step", name).Debug("starting step")
	if err := fn(ctx); err != nil {
		log.WithError(err).WithField("step", name).Error("payment flow stopped")
		return &StepError{Step: name, Err: err}
	}
	return nil
}

func validate(p types.PaymentFlow) error {
	if p.Recipient == (common.Address{}) {
		return errors.New("payment flow needs a recipient")
	}
	if p.Asset == "" {
		return errors.New("payment flow needs an asset")
	}
	if p.FundAmount == nil || p.FundAmount.Sign() <= 0 {
		return errors.New("fund amount must be positive")
	}
	if p.PayAmount == nil || p.PayAmount.Sign() <= 0 {
		return errors.New("pay amount must be positive")
	}
	if p.DepositAmount != nil && p.DepositAmount.Sign() < 0 {
		return errors.New("deposit amount must not be negative")
	}
	return nil
}

// Compile-time assertion that Service implements domain.FlowService.
var _ domain.FlowService = (*Service)(nil)
