package domain

// TransactionFilter selects entries by the conjunction of every set field.
// Zero values mean "no constraint".
type TransactionFilter struct {
	Types     []TxType   // match any of these types
	Statuses  []TxStatus // match any of these statuses
	StartTime int64      // inclusive lower bound on CreatedAt (ms)
	EndTime   int64      // inclusive upper bound on CreatedAt (ms)
	Address   string     // matches From or To exactly
	MinAmount *float64   // inclusive; entries without an amount never match
	MaxAmount *float64   // inclusive; entries without an amount never match
}

// Matches reports whether the entry satisfies every set condition.
// A nil filter matches everything.
func (f *TransactionFilter) Matches(e *TransactionEntry) bool {
	if f == nil {
		return true
	}
	if len(f.Types) > 0 && !containsType(f.Types, e.Type) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, e.Status) {
		return false
	}
	if f.StartTime > 0 && e.CreatedAt < f.StartTime {
		return false
	}
	if f.EndTime > 0 && e.CreatedAt > f.EndTime {
		return false
	}
	if f.Address != "" {
		if e.From != f.Address && (e.To == nil || *e.To != f.Address) {
			return false
		}
	}
	if f.MinAmount != nil {
		if e.Amount == nil || *e.Amount < *f.MinAmount {
			return false
		}
	}
	if f.MaxAmount != nil {
		if e.Amount == nil || *e.Amount > *f.MaxAmount {
			return false
		}
	}
	return true
}

func containsType(ts []TxType, t TxType) bool {
	for _, v := range ts {
		if v == t {
			return true
		}
	}
	return false
}

func containsStatus(ss []TxStatus, s TxStatus) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

// SortField enumerates the entry fields history results can be ordered by.
type SortField string

const (
	SortFieldTimestamp SortField = "timestamp"
	SortFieldAmount    SortField = "amount"
	SortFieldFee       SortField = "fee"
	SortFieldStatus    SortField = "status"
	SortFieldType      SortField = "type"
)

// SortDirection is the ordering direction for history results.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortOptions orders history results. The zero value sorts by timestamp
// descending, which is also the default when no options are supplied.
type SortOptions struct {
	Field     SortField
	Direction SortDirection
}
