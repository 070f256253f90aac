package domain

// TxStatus represents the lifecycle state of a tracked transaction.
type TxStatus string

const (
	TxStatusPending   TxStatus = "PENDING"
	TxStatusConfirmed TxStatus = "CONFIRMED"
	TxStatusFailed    TxStatus = "FAILED"
	TxStatusExpired   TxStatus = "EXPIRED"
)

// String returns the string representation of TxStatus.
func (s TxStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a valid value.
func (s TxStatus) IsValid() bool {
	switch s {
	case TxStatusPending, TxStatusConfirmed, TxStatusFailed, TxStatusExpired:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s TxStatus) Terminal() bool {
	return s == TxStatusConfirmed || s == TxStatusFailed || s == TxStatusExpired
}

// CanTransition reports whether moving from s to next is legal.
// The only legal moves are PENDING to exactly one terminal status.
func (s TxStatus) CanTransition(next TxStatus) bool {
	return s == TxStatusPending && next.Terminal()
}
