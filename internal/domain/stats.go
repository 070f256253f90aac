package domain

// TransactionStats aggregates a filtered set of entries.
// Successful counts CONFIRMED entries; Failed counts both FAILED and
// EXPIRED, so Successful + Failed + Pending == Total always holds.
type TransactionStats struct {
	TotalTransactions      int                `json:"totalTransactions"`
	SuccessfulTransactions int                `json:"successfulTransactions"`
	FailedTransactions     int                `json:"failedTransactions"`
	PendingTransactions    int                `json:"pendingTransactions"`
	TotalVolume            float64            `json:"totalVolume"`           // sum of known amounts
	TotalFees              float64            `json:"totalFees"`             // sum of known fees
	AverageConfirmationMs  float64            `json:"averageConfirmationMs"` // over entries with a recorded confirmation time
	SuccessRate            float64            `json:"successRate"`           // Successful / (Successful + Failed), 0 when nothing resolved
	ByType                 map[TxType]int     `json:"byType"`
	ByStatus               map[TxStatus]int   `json:"byStatus"`
	VolumeByType           map[TxType]float64 `json:"volumeByType"` // known amounts summed per type
}

// ComputeStats builds aggregate statistics over the given entries.
// Confirmation latency is averaged only over entries that recorded a
// confirmation time; entries without one are excluded, not counted as zero.
func ComputeStats(entries []*TransactionEntry) *TransactionStats {
	stats := &TransactionStats{
		ByType:       make(map[TxType]int),
		ByStatus:     make(map[TxStatus]int),
		VolumeByType: make(map[TxType]float64),
	}

	var latencySum int64
	var latencyCount int
	for _, e := range entries {
		stats.TotalTransactions++
		stats.ByType[e.Type]++
		stats.ByStatus[e.Status]++

		switch e.Status {
		case TxStatusConfirmed:
			stats.SuccessfulTransactions++
		case TxStatusFailed, TxStatusExpired:
			stats.FailedTransactions++
		case TxStatusPending:
			stats.PendingTransactions++
		}

		if e.Amount != nil {
			stats.TotalVolume += *e.Amount
			stats.VolumeByType[e.Type] += *e.Amount
		}
		if e.Fee != nil {
			stats.TotalFees += *e.Fee
		}
		if latency, ok := e.ConfirmationLatencyMs(); ok {
			latencySum += latency
			latencyCount++
		}
	}

	if latencyCount > 0 {
		stats.AverageConfirmationMs = float64(latencySum) / float64(latencyCount)
	}
	if resolved := stats.SuccessfulTransactions + stats.FailedTransactions; resolved > 0 {
		stats.SuccessRate = float64(stats.SuccessfulTransactions) / float64(resolved)
	}
	return stats
}
