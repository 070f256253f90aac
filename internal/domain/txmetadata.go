package domain

// Metadata carries the type-specific payload of a transaction entry.
// At most the field matching the entry's Type is expected to be set;
// Extra holds anything supplied for UNKNOWN types.
type Metadata struct {
	Swap      *SwapDetails      `json:"swap,omitempty"`
	Transfer  *TransferDetails  `json:"transfer,omitempty"`
	Stake     *StakeDetails     `json:"stake,omitempty"`
	Liquidity *LiquidityDetails `json:"liquidity,omitempty"`
	Logs      []string          `json:"logs,omitempty"`  // log excerpts captured on enrichment
	Extra     map[string]string `json:"extra,omitempty"` // free-form tags for UNKNOWN types
}

// SwapDetails describes a swap's route endpoints.
type SwapDetails struct {
	InputToken   string   `json:"inputToken"`             // input mint or symbol
	OutputToken  string   `json:"outputToken"`            // output mint or symbol
	InputAmount  *float64 `json:"inputAmount,omitempty"`  // amount sold (nullable)
	OutputAmount *float64 `json:"outputAmount,omitempty"` // amount bought (nullable)
}

// TransferDetails describes a plain transfer.
type TransferDetails struct {
	Memo *string `json:"memo,omitempty"` // attached memo (nullable)
}

// StakeDetails describes a stake or unstake operation.
type StakeDetails struct {
	PoolID    string  `json:"poolId"`              // stake pool address
	Validator *string `json:"validator,omitempty"` // vote account (nullable)
}

// LiquidityDetails describes a liquidity add or remove.
type LiquidityDetails struct {
	Pool   string `json:"pool"`   // AMM pool address
	TokenA string `json:"tokenA"` // first leg mint
	TokenB string `json:"tokenB"` // second leg mint
}

// Clone returns a deep copy of the metadata.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	c := &Metadata{}
	if m.Swap != nil {
		s := *m.Swap
		s.InputAmount = clonePtr(m.Swap.InputAmount)
		s.OutputAmount = clonePtr(m.Swap.OutputAmount)
		c.Swap = &s
	}
	if m.Transfer != nil {
		t := *m.Transfer
		t.Memo = clonePtr(m.Transfer.Memo)
		c.Transfer = &t
	}
	if m.Stake != nil {
		s := *m.Stake
		s.Validator = clonePtr(m.Stake.Validator)
		c.Stake = &s
	}
	if m.Liquidity != nil {
		l := *m.Liquidity
		c.Liquidity = &l
	}
	if len(m.Logs) > 0 {
		c.Logs = append([]string(nil), m.Logs...)
	}
	if len(m.Extra) > 0 {
		c.Extra = make(map[string]string, len(m.Extra))
		for k, v := range m.Extra {
			c.Extra[k] = v
		}
	}
	return c
}
