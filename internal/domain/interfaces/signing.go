package interfaces

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Wallet is the user's primary key. It authorizes session keys and signs
// channel states that go on-chain.
type Wallet interface {
	Address() common.Address
	SignTypedData(ctx context.Context, data apitypes.TypedData) ([]byte, error)
	SignMessage(ctx context.Context, msg []byte) ([]byte, error)
}

// MessageSigner signs clearing-node requests with the session key.
type MessageSigner interface {
	Address() common.Address
	Sign(payload []byte) ([]byte, error)
}
