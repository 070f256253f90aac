package solana

import "context"

// RPCClient defines the read-only Solana RPC HTTP interface.
type RPCClient interface {
	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (int64, error)

	// GetBlockHeight retrieves the current block height.
	GetBlockHeight(ctx context.Context) (int64, error)

	// GetBalance retrieves the lamport balance of an account.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetAccountInfo retrieves account info by public key, nil if absent.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetTokenAccountsByOwner retrieves SPL token accounts for an owner,
	// optionally filtered by token program id.
	GetTokenAccountsByOwner(ctx context.Context, owner, programID string) ([]TokenAccount, error)

	// GetSignatureStatuses retrieves confirmation status per signature.
	// The result is index-aligned with the input; nil means no record.
	GetSignatureStatuses(ctx context.Context, signatures []string) ([]*SignatureStatus, error)

	// GetTransaction retrieves a confirmed transaction by signature,
	// nil if the node has no record.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)
}
