package contract

import (
	"context"
	"fmt"
	"sync"
)

// Method is a contract operation executed in process.
type Method func(args []any, sender string) (any, error)

// Contract is the set of methods a native contract exposes.
type Contract map[string]Method

// Native executes contracts written in Go. Contract code is registered
// under a name and the bytecode passed to Deploy or Upgrade is that name.
type Native struct {
	mu        sync.RWMutex
	code      map[string]Contract
	deployed  map[string]Contract
	evHandler func(v string, args ...any)
}

// NewNative constructs an empty native engine.
func NewNative(evHandler func(v string, args ...any)) *Native {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Native{
		code:      make(map[string]Contract),
		deployed:  make(map[string]Contract),
		evHandler: ev,
	}
}

// Register makes contract code available for deployment under the name.
func (n *Native) Register(name string, c Contract) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.code[name] = c
}

// Deploy creates a new instance of the registered code and returns its
// address.
func (n *Native) Deploy(ctx context.Context, bytecode []byte, abi string, sender string) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	c, exists := n.code[string(bytecode)]
	if !exists {
		return "", fmt.Errorf("code %q: %w", bytecode, ErrNotFound)
	}

	address := fmt.Sprintf("native_%d", len(n.deployed)+1)
	n.deployed[address] = c

	n.evHandler("contract: native: deployed: code[%s] address[%s] sender[%s]", bytecode, address, sender)

	return address, nil
}

// Upgrade replaces the code behind an existing address.
func (n *Native) Upgrade(ctx context.Context, address string, bytecode []byte, sender string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, exists := n.deployed[address]; !exists {
		return fmt.Errorf("address %q: %w", address, ErrNotFound)
	}

	c, exists := n.code[string(bytecode)]
	if !exists {
		return fmt.Errorf("code %q: %w", bytecode, ErrNotFound)
	}

	n.deployed[address] = c

	n.evHandler("contract: native: upgraded: code[%s] address[%s] sender[%s]", bytecode, address, sender)

	return nil
}

// Interact calls the method on the contract deployed at the address.
func (n *Native) Interact(ctx context.Context, address string, method string, args []any, sender string) (any, error) {
	n.mu.RLock()
	c, exists := n.deployed[address]
	n.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("address %q: %w", address, ErrNotFound)
	}

	fn, exists := c[method]
	if !exists {
		return nil, fmt.Errorf("method %q on %q: %w", method, address, ErrUnsupported)
	}

	return fn(args, sender)
}
