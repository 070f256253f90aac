package domain

// TxType classifies a tracked transaction.
type TxType string

const (
	TxTypeSwap            TxType = "SWAP"
	TxTypeTransfer        TxType = "TRANSFER"
	TxTypeStake           TxType = "STAKE"
	TxTypeUnstake         TxType = "UNSTAKE"
	TxTypeLiquidityAdd    TxType = "LIQUIDITY_ADD"
	TxTypeLiquidityRemove TxType = "LIQUIDITY_REMOVE"
	TxTypeUnknown         TxType = "UNKNOWN"
)

// String returns the string representation of TxType.
func (t TxType) String() string {
	return string(t)
}

// IsValid checks if the type is a valid value.
func (t TxType) IsValid() bool {
	switch t {
	case TxTypeSwap, TxTypeTransfer, TxTypeStake, TxTypeUnstake,
		TxTypeLiquidityAdd, TxTypeLiquidityRemove, TxTypeUnknown:
		return true
	}
	return false
}

// Critical reports whether polling failures for this type should be
// escalated at high severity. Swap and liquidity operations move funds
// through multi-step programs where a lost confirmation is expensive to
// reconcile manually.
func (t TxType) Critical() bool {
	switch t {
	case TxTypeSwap, TxTypeLiquidityAdd, TxTypeLiquidityRemove:
		return true
	}
	return false
}
