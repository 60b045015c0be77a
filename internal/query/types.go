package query

import "github.com/google/uuid"

// VaultTotalsResponse summarizes the vault's asset and share state.
type VaultTotalsResponse struct {
	TotalAssets    int64 `json:"total_assets"`
	IdleAssets     int64 `json:"idle_assets"`
	StakedAssets   int64 `json:"staked_assets"`
	ShareSupply    int64 `json:"share_supply"`
	SubjectCount   int   `json:"subject_count"`
	PendingEscrows int   `json:"pending_escrows"`
	FeeBasisPoints int64 `json:"fee_basis_points"`
	AsOfSequence   int64 `json:"as_of_sequence"`
}

// SubjectResponse is one delegation target and its cached valuation.
type SubjectResponse struct {
	Subject      string `json:"subject"`
	Valuation    int64  `json:"valuation"`
	AsOfSequence int64  `json:"as_of_sequence"`
}

// UserPositionResponse is a user's view of the vault: shares held plus
// any pending redemption claim still parked in their escrow.
type UserPositionResponse struct {
	UserID       uuid.UUID `json:"user_id"`
	Shares       int64     `json:"shares"`
	PendingClaim int64     `json:"pending_claim"`
	AsOfSequence int64     `json:"as_of_sequence"`
}

// JournalHistoryEntry is a journal entry for API consumers.
type JournalHistoryEntry struct {
	JournalID     string `json:"journal_id"`
	BatchID       string `json:"batch_id"`
	EventRef      string `json:"event_ref"`
	Sequence      int64  `json:"sequence"`
	DebitAccount  string `json:"debit_account"`
	CreditAccount string `json:"credit_account"`
	Amount        int64  `json:"amount"`
	JournalType   int32  `json:"journal_type"`
	Timestamp     int64  `json:"timestamp"`
}

// PayoutHistoryEntry is one completed payout or fee carve from the
// event log, newest first.
type PayoutHistoryEntry struct {
	Sequence    int64  `json:"sequence"`
	Account     string `json:"account"`
	Amount      int64  `json:"amount"`
	JournalType int32  `json:"journal_type"`
	Timestamp   int64  `json:"timestamp"`
}

// IntegrityReport is the result of an integrity verification check.
type IntegrityReport struct {
	IsHealthy       bool    `json:"is_healthy"`
	HashChainBreaks []int64 `json:"hash_chain_breaks,omitempty"`
	GlobalImbalance int64   `json:"global_imbalance"`
	AsOfSequence    int64   `json:"as_of_sequence"`
}
