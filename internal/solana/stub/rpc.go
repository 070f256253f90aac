// Package stub provides an in-memory solana.RPCClient for tests.
package stub

import (
	"context"
	"sync"

	"solana-tx-monitor/internal/solana"
)

// RPCClient implements solana.RPCClient backed by scripted fixtures.
// All methods are safe for concurrent use.
type RPCClient struct {
	mu sync.Mutex

	Slot          int64
	BlockHeight   int64
	Balances      map[string]uint64
	Accounts      map[string]*solana.AccountInfo
	TokenAccounts map[string][]solana.TokenAccount
	Transactions  map[string]*solana.Transaction

	// statusScript holds, per signature, the statuses to report on
	// successive polls; after exhaustion the last element repeats.
	statusScript map[string][]*solana.SignatureStatus
	statusCalls  map[string]int

	errs  map[string]error
	calls map[string]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Balances:      make(map[string]uint64),
		Accounts:      make(map[string]*solana.AccountInfo),
		TokenAccounts: make(map[string][]solana.TokenAccount),
		Transactions:  make(map[string]*solana.Transaction),
		statusScript:  make(map[string][]*solana.SignatureStatus),
		statusCalls:   make(map[string]int),
		errs:          make(map[string]error),
		calls:         make(map[string]int),
	}
}

// Compile-time interface check.
var _ solana.RPCClient = (*RPCClient)(nil)

// SetErr makes the named method return err until cleared.
func (c *RPCClient) SetErr(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		delete(c.errs, method)
		return
	}
	c.errs[method] = err
}

// CallCount returns how many times the named method was invoked.
func (c *RPCClient) CallCount(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// ScriptStatuses sets the statuses GetSignatureStatuses reports for sig on
// successive calls. A nil element means "no record yet". After the script
// is exhausted the last element repeats.
func (c *RPCClient) ScriptStatuses(sig string, statuses ...*solana.SignatureStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statusScript[sig] = statuses
	c.statusCalls[sig] = 0
}

// StatusCalls returns how many polls sig has received.
func (c *RPCClient) StatusCalls(sig string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusCalls[sig]
}

func (c *RPCClient) begin(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[method]++
	return c.errs[method]
}

// GetSlot returns the configured slot.
func (c *RPCClient) GetSlot(_ context.Context) (int64, error) {
	if err := c.begin("getSlot"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Slot, nil
}

// GetBlockHeight returns the configured block height.
func (c *RPCClient) GetBlockHeight(_ context.Context) (int64, error) {
	if err := c.begin("getBlockHeight"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.BlockHeight, nil
}

// GetBalance returns the configured balance for pubkey.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	if err := c.begin("getBalance"); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Balances[pubkey], nil
}

// GetAccountInfo returns the configured account info, nil if absent.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	if err := c.begin("getAccountInfo"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Accounts[pubkey], nil
}

// GetTokenAccountsByOwner returns the configured token accounts for owner.
func (c *RPCClient) GetTokenAccountsByOwner(_ context.Context, owner, _ string) ([]solana.TokenAccount, error) {
	if err := c.begin("getTokenAccountsByOwner"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.TokenAccounts[owner], nil
}

// GetSignatureStatuses replays the per-signature scripts.
func (c *RPCClient) GetSignatureStatuses(_ context.Context, signatures []string) ([]*solana.SignatureStatus, error) {
	if err := c.begin("getSignatureStatuses"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	statuses := make([]*solana.SignatureStatus, len(signatures))
	for i, sig := range signatures {
		script, ok := c.statusScript[sig]
		if !ok || len(script) == 0 {
			continue
		}
		idx := c.statusCalls[sig]
		c.statusCalls[sig]++
		if idx >= len(script) {
			idx = len(script) - 1
		}
		statuses[i] = script[idx]
	}
	return statuses, nil
}

// GetTransaction returns the configured transaction, nil if absent.
func (c *RPCClient) GetTransaction(_ context.Context, signature string) (*solana.Transaction, error) {
	if err := c.begin("getTransaction"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Transactions[signature], nil
}
