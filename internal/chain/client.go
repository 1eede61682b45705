package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/raulk/clock"
	"github.com/sirupsen/logrus"

	"fluxpay/internal/domain"
	"fluxpay/internal/domain/types"
)

var log = logrus.WithField("component", "chain")

// DefaultPollInterval is how often WaitMined asks for a receipt.
const DefaultPollInterval = 2 * time.Second

// Backend is the subset of an Ethereum RPC client the custody adapter needs.
// *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	BalanceAt(ctx context.Context, account common.Address, block *big.Int) (*big.Int, error)
	TransactionReceipt(ctx context.Context, tx common.Hash) (*gethtypes.Receipt, error)
}

// Signer signs channel states and custody transactions. *crypto.WalletKey
// satisfies it.
type Signer interface {
	Address() common.Address
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)
	TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error)
}

// Config selects the contracts and chain the client talks to.
type Config struct {
	RPCURL       string
	ChainID      uint64
	Custody      common.Address
	PollInterval time.Duration
}

// Client implements domain.Chain against the custody contract.
type Client struct {
	backend Backend
	signer  Signer
	chainID *big.Int
	custody *bind.BoundContract
	address common.Address
	poll    time.Duration
	clk     clock.Clock
}

// Dial connects to cfg.RPCURL and returns a Client signing with signer.
func Dial(ctx context.Context, cfg Config, signer Signer) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, errors.New("chain rpc url is required")
	}
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", cfg.RPCURL)
	}
	return New(eth, cfg, signer, nil), nil
}

// New returns a Client over backend. A nil clk uses the wall clock.
func New(backend Backend, cfg Config, signer Signer, clk clock.Clock) *Client {
	if clk == nil {
		clk = clock.New()
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Client{
		backend: backend,
		signer:  signer,
		chainID: new(big.Int).SetUint64(cfg.ChainID),
		custody: bind.NewBoundContract(cfg.Custody, custodyABI, backend, backend, backend),
		address: cfg.Custody,
		poll:    poll,
		clk:     clk,
	}
}

// TokenBalance returns account's ERC-20 balance of token.
func (c *Client) TokenBalance(ctx context.Context, account, token common.Address) (*big.Int, error) {
	if token == (common.Address{}) {
		bal, err := c.backend.BalanceAt(ctx, account, nil)
		if err != nil {
			return nil, errors.Wrap(err, "native balance")
		}
		return bal, nil
	}
	erc20 := bind.NewBoundContract(token, erc20ABI, c.backend, c.backend, c.backend)
	return callUint(ctx, erc20, "balanceOf", account)
}

// CustodyBalance returns account's available custody balance of token.
func (c *Client) CustodyBalance(ctx context.Context, account, token common.Address) (*big.Int, error) {
	var out []interface{}
	err := c.custody.Call(&bind.CallOpts{Context: ctx}, &out, "getAccountsBalances",
		[]common.Address{account}, []common.Address{token})
	if err != nil {
		return nil, errors.Wrap(err, "getAccountsBalances")
	}
	if len(out) != 1 {
		return nil, errors.New("getAccountsBalances: unexpected result")
	}
	balances, ok := out[0].([]*big.Int)
	if !ok || len(balances) == 0 {
		return nil, errors.New("getAccountsBalances: unexpected result")
	}
	return balances[0], nil
}

// Deposit moves amount of token from the wallet into custody, approving
// the custody contract first when the current allowance is short.
func (c *Client) Deposit(ctx context.Context, token common.Address, amount *big.Int) (common.Hash, error) {
	if amount == nil || amount.Sign() <= 0 {
		return common.Hash{}, errors.New("deposit amount must be positive")
	}
	self := c.signer.Address()
	opts, err := c.signer.TransactOpts(ctx, c.chainID)
	if err != nil {
		return common.Hash{}, err
	}

	if token == (common.Address{}) {
		opts.Value = amount
	} else if err := c.approve(ctx, token, amount); err != nil {
		return common.Hash{}, err
	}

	tx, err := c.custody.Transact(opts, "deposit", self, token, amount)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "deposit")
	}
	log.WithFields(logrus.Fields{"tx": tx.Hash().Hex(), "amount": amount.String()}).Info("deposit submitted")
	return tx.Hash(), nil
}

// CreateChannel submits the node-prepared initial state, signed by the
// wallet and the node.
func (c *Client) CreateChannel(ctx context.Context, update types.ChannelUpdate) (common.Hash, error) {
	if update.Definition == nil {
		return common.Hash{}, errors.New("create channel: missing channel definition")
	}
	state, err := c.signedState(ctx, update)
	if err != nil {
		return common.Hash{}, err
	}
	opts, err := c.signer.TransactOpts(ctx, c.chainID)
	if err != nil {
		return common.Hash{}, err
	}
	tx, err := c.custody.Transact(opts, "create", toABIChannel(*update.Definition), state)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "create channel")
	}
	log.WithFields(logrus.Fields{"tx": tx.Hash().Hex(), "channel": update.ChannelID.Hex()}).Info("create submitted")
	return tx.Hash(), nil
}

// CloseChannel submits the co-signed final state with no proofs.
func (c *Client) CloseChannel(ctx context.Context, update types.ChannelUpdate) (common.Hash, error) {
	state, err := c.signedState(ctx, update)
	if err != nil {
		return common.Hash{}, err
	}
	opts, err := c.signer.TransactOpts(ctx, c.chainID)
	if err != nil {
		return common.Hash{}, err
	}
	tx, err := c.custody.Transact(opts, "close", [32]byte(update.ChannelID), state, []abiState{})
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "close channel")
	}
	log.WithFields(logrus.Fields{"tx": tx.Hash().Hex(), "channel": update.ChannelID.Hex()}).Info("close submitted")
	return tx.Hash(), nil
}

// WaitMined polls for the receipt of tx until it is mined or ctx ends.
func (c *Client) WaitMined(ctx context.Context, tx common.Hash) (types.Receipt, error) {
	ticker := c.clk.Ticker(c.poll)
	defer ticker.Stop()
	for {
		r, err := c.backend.TransactionReceipt(ctx, tx)
		switch {
		case err == nil:
			receipt := types.Receipt{
				TxHash:      tx,
				BlockNumber: r.BlockNumber.Uint64(),
				Success:     r.Status == gethtypes.ReceiptStatusSuccessful,
			}
			if !receipt.Success {
				return receipt, errors.Wrapf(types.ErrTxFailed, "tx %s", tx.Hex())
			}
			return receipt, nil
		case !errors.Is(err, ethereum.NotFound):
			return types.Receipt{}, errors.Wrap(err, "receipt")
		}
		select {
		case <-ctx.Done():
			return types.Receipt{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close releases the RPC client.
func (c *Client) Close() {
	if closer, ok := c.backend.(interface{ Close() }); ok {
		closer.Close()
	}
}

// signedState signs the update's state with the wallet and orders the
// signatures [wallet, node].
func (c *Client) signedState(ctx context.Context, update types.ChannelUpdate) (abiState, error) {
	if len(update.ServerSignature) == 0 {
		return abiState{}, types.ErrMissingServerSignature
	}
	hash, err := StateHash(update.ChannelID, update.State)
	if err != nil {
		return abiState{}, err
	}
	sig, err := c.signer.SignMessage(ctx, hash.Bytes())
	if err != nil {
		return abiState{}, errors.Wrap(err, "sign state")
	}
	return toABIState(update.State, [][]byte{sig, update.ServerSignature}), nil
}

func (c *Client) approve(ctx context.Context, token common.Address, amount *big.Int) error {
	erc20 := bind.NewBoundContract(token, erc20ABI, c.backend, c.backend, c.backend)
	allowance, err := callUint(ctx, erc20, "allowance", c.signer.Address(), c.address)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) >= 0 {
		return nil
	}
	opts, err := c.signer.TransactOpts(ctx, c.chainID)
	if err != nil {
		return err
	}
	tx, err := erc20.Transact(opts, "approve", c.address, amount)
	if err != nil {
		return errors.Wrap(err, "approve")
	}
	log.WithField("tx", tx.Hash().Hex()).Info("approve submitted")
	if _, err := c.WaitMined(ctx, tx.Hash()); err != nil {
		return errors.Wrap(err, "approve")
	}
	return nil
}

func callUint(ctx context.Context, contract *bind.BoundContract, method string, args ...interface{}) (*big.Int, error) {
	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, method, args...); err != nil {
		return nil, errors.Wrap(err, method)
	}
	if len(out) != 1 {
		return nil, errors.Errorf("%s: unexpected result", method)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, errors.Errorf("%s: unexpected result", method)
	}
	return v, nil
}

// Compile-time assertion that Client implements domain.Chain.
var _ domain.Chain = (*Client)(nil)
