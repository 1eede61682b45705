package sandbox

import (
	"context"
	"encoding/binary"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"fluxpay/internal/chain"
	"fluxpay/internal/crypto"
	"fluxpay/internal/domain"
	"fluxpay/internal/domain/types"
)

// Chain operations recorded by Calls and accepted by FailNext.
const (
	OpDeposit = "deposit"
	OpCreate  = "create"
	OpClose   = "close"
)

// Chain is an in-memory custody chain for one account.
type Chain struct {
	account common.Address
	node    *Node

	mu       sync.Mutex
	tokens   map[common.Address]*big.Int
	custody  map[common.Address]*big.Int
	receipts map[common.Hash]types.Receipt
	revert   map[string]int
	calls    []string
	seq      uint64
	block    uint64
}

// NewChain returns a chain for account. When node is non-nil, deposits are
// credited to the node's ledger and channel states must carry its signature.
func NewChain(account common.Address, node *Node) *Chain {
	return &Chain{
		account:  account,
		node:     node,
		tokens:   make(map[common.Address]*big.Int),
		custody:  make(map[common.Address]*big.Int),
		receipts: make(map[common.Hash]types.Receipt),
		revert:   make(map[string]int),
	}
}

// SetTokenBalance sets the account's wallet balance of token.
func (c *Chain) SetTokenBalance(token common.Address, amount *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[token] = new(big.Int).Set(amount)
}

// FailNext makes the next transaction for op revert.
func (c *Chain) FailNext(op string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revert[op]++
}

// Calls returns the submitted operations in order.
func (c *Chain) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// TokenBalance returns account's wallet balance of token.
func (c *Chain) TokenBalance(_ context.Context, account, token common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if account != c.account {
		return new(big.Int), nil
	}
	return valueOf(c.tokens, token), nil
}

// CustodyBalance returns account's custody balance of token.
func (c *Chain) CustodyBalance(_ context.Context, account, token common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if account != c.account {
		return new(big.Int), nil
	}
	return valueOf(c.custody, token), nil
}

// Deposit moves amount of token from the wallet into custody.
func (c *Chain) Deposit(_ context.Context, token common.Address, amount *big.Int) (common.Hash, error) {
	if amount == nil || amount.Sign() <= 0 {
		return common.Hash{}, errors.New("deposit amount must be positive")
	}
	c.mu.Lock()
	bal := valueOf(c.tokens, token)
	if bal.Cmp(amount) < 0 {
		c.mu.Unlock()
		return common.Hash{}, errors.New("insufficient token balance")
	}
	tx, ok := c.recordLocked(OpDeposit)
	if ok {
		c.tokens[token] = bal.Sub(bal, amount)
		custody := valueOf(c.custody, token)
		c.custody[token] = custody.Add(custody, amount)
	}
	c.mu.Unlock()

	if ok && c.node != nil {
		if err := c.node.Credit(c.account, c.node.AssetOf(token), amount.String()); err != nil {
			return common.Hash{}, err
		}
	}
	return tx, nil
}

// CreateChannel checks the node's signature on the initial state.
func (c *Chain) CreateChannel(_ context.Context, update types.ChannelUpdate) (common.Hash, error) {
	if update.Definition == nil {
		return common.Hash{}, errors.New("create channel: missing channel definition")
	}
	if err := c.checkNodeSignature(update); err != nil {
		return common.Hash{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, _ := c.recordLocked(OpCreate)
	return tx, nil
}

// CloseChannel checks the node's signature on the final state.
func (c *Chain) CloseChannel(_ context.Context, update types.ChannelUpdate) (common.Hash, error) {
	if err := c.checkNodeSignature(update); err != nil {
		return common.Hash{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	tx, _ := c.recordLocked(OpClose)
	return tx, nil
}

// WaitMined returns the receipt for tx. Reverted transactions fail with
// ErrTxFailed.
func (c *Chain) WaitMined(ctx context.Context, tx common.Hash) (types.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return types.Receipt{}, err
	}
	c.mu.Lock()
	r, ok := c.receipts[tx]
	c.mu.Unlock()
	if !ok {
		return types.Receipt{}, errors.Errorf("unknown transaction %s", tx.Hex())
	}
	if !r.Success {
		return r, errors.Wrapf(types.ErrTxFailed, "tx %s", tx.Hex())
	}
	return r, nil
}

// recordLocked mines a transaction for op and reports whether it succeeded.
func (c *Chain) recordLocked(op string) (common.Hash, bool) {
	c.seq++
	c.block++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], c.seq)
	tx := ethcrypto.Keccak256Hash([]byte(op), c.account.Bytes(), buf[:])

	ok := true
	if c.revert[op] > 0 {
		c.revert[op]--
		ok = false
	}
	c.receipts[tx] = types.Receipt{TxHash: tx, BlockNumber: c.block, Success: ok}
	c.calls = append(c.calls, op)
	return tx, ok
}

func (c *Chain) checkNodeSignature(update types.ChannelUpdate) error {
	if c.node == nil {
		return nil
	}
	if len(update.ServerSignature) == 0 {
		return types.ErrMissingServerSignature
	}
	packed, err := chain.EncodeState(update.ChannelID, update.State)
	if err != nil {
		return err
	}
	signer, err := crypto.RecoverPayload(packed, update.ServerSignature)
	if err != nil {
		return err
	}
	if signer != c.node.Address() {
		return errors.Errorf("state signed by %s, not the node", signer.Hex())
	}
	return nil
}

func valueOf(m map[common.Address]*big.Int, token common.Address) *big.Int {
	if v, ok := m[token]; ok {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// Compile-time assertion that Chain implements domain.Chain.
var _ domain.Chain = (*Chain)(nil)
