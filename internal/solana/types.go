package solana

// Commitment is the durability guarantee requested when querying ledger state.
type Commitment string

const (
	CommitmentProcessed Commitment = "processed"
	CommitmentConfirmed Commitment = "confirmed"
	CommitmentFinalized Commitment = "finalized"
)

// String returns the string representation of Commitment.
func (c Commitment) String() string {
	return string(c)
}

// IsValid checks if the commitment is a valid value.
func (c Commitment) IsValid() bool {
	return c == CommitmentProcessed || c == CommitmentConfirmed || c == CommitmentFinalized
}

// SignatureStatus is one entry from getSignatureStatuses. A nil entry in the
// returned slice means the node has no record of that signature yet.
type SignatureStatus struct {
	Slot               int64
	Confirmations      *int64 // nil once the transaction is finalized
	Err                interface{}
	ConfirmationStatus string // processed | confirmed | finalized
}

// Failed reports whether the node recorded an error for the signature.
func (s *SignatureStatus) Failed() bool {
	return s != nil && s.Err != nil
}

// TokenAccount describes one SPL token account held by an owner.
type TokenAccount struct {
	Pubkey   string   // token account address
	Mint     string   // token mint address
	Owner    string   // owning wallet
	Amount   string   // raw amount as decimal string
	Decimals int      // mint decimals
	UIAmount *float64 // human-readable amount (nullable)
}

// AccountInfo represents Solana account information.
type AccountInfo struct {
	Lamports   uint64 `json:"lamports"`
	Owner      string `json:"owner"`
	Data       string `json:"data"` // base64 encoded
	Executable bool   `json:"executable"`
	RentEpoch  uint64 `json:"rentEpoch"`
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err          interface{}
	Fee          uint64   // fee in lamports
	PreBalances  []uint64 // lamport balances before, by account index
	PostBalances []uint64 // lamport balances after, by account index
	LogMessages  []string
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys []string
}
