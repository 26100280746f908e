// Package contract defines the capability set the ledger uses to publish
// and drive contracts on an execution engine, along with an in-process
// engine and an engine backed by a JSON-RPC node.
package contract

import (
	"context"
	"errors"
)

// Set of error variables for contract engines.
var (
	ErrUnsupported = errors.New("operation not supported by engine")
	ErrNotFound    = errors.New("contract not found")
)

// Deployer is the behavior required to publish contract code. The
// returned string identifies the deployment in an engine specific way.
type Deployer interface {
	Deploy(ctx context.Context, bytecode []byte, abi string, sender string) (string, error)
}

// Engine is the full capability set of a contract engine. Engines return
// ErrUnsupported for operations they don't implement.
type Engine interface {
	Deployer
	Upgrade(ctx context.Context, address string, bytecode []byte, sender string) error
	Interact(ctx context.Context, address string, method string, args []any, sender string) (any, error)
}
