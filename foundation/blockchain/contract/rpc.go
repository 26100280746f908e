package contract

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// sendTx is the transaction submitted to create a contract.
type sendTx struct {
	From string        `json:"from"`
	Data hexutil.Bytes `json:"data"`
}

// RPC publishes contracts to an external node through its JSON-RPC
// interface. Only Deploy is supported.
type RPC struct {
	client *rpc.Client
}

// DialRPC connects to the node at the specified url.
func DialRPC(ctx context.Context, url string) (*RPC, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}

	return NewRPC(client), nil
}

// NewRPC constructs the engine around an existing client.
func NewRPC(client *rpc.Client) *RPC {
	return &RPC{client: client}
}

// Close releases the connection to the node.
func (r *RPC) Close() {
	r.client.Close()
}

// Deploy sends a contract creation transaction from the sender and returns
// the transaction hash reported by the node. The abi is not needed to
// create the contract.
func (r *RPC) Deploy(ctx context.Context, bytecode []byte, abi string, sender string) (string, error) {
	tx := sendTx{
		From: sender,
		Data: bytecode,
	}

	var hash common.Hash
	if err := r.client.CallContext(ctx, &hash, "eth_sendTransaction", tx); err != nil {
		return "", fmt.Errorf("eth_sendTransaction: %w", err)
	}

	return hash.Hex(), nil
}

// Upgrade is not supported since deployed code is immutable on the node.
func (r *RPC) Upgrade(ctx context.Context, address string, bytecode []byte, sender string) error {
	return ErrUnsupported
}

// Interact is not supported.
func (r *RPC) Interact(ctx context.Context, address string, method string, args []any, sender string) (any, error) {
	return nil, ErrUnsupported
}
