package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// JournalType represents the purpose of a journal entry
type JournalType int32

const (
	JournalTypeDeposit JournalType = iota
	JournalTypeDelegate
	JournalTypeUndelegateSettle
	JournalTypeRedeemSubjectSlice
	JournalTypeRedeemEscrowSlice
	JournalTypeRedeemIdlePayout
	JournalTypeRedeemFee
	JournalTypeClaimPayout
	JournalTypeClaimFee
	JournalTypeYieldRevaluation
	JournalTypeRewardsClaim
)

// Journal represents a single double-entry journal entry
type Journal struct {
	JournalID     uuid.UUID   // Unique identifier
	BatchID       uuid.UUID   // Groups entries from one command
	EventRef      string      // Idempotency key of source command
	Sequence      int64       // Global event sequence
	DebitAccount  AccountKey  // Account receiving debit (balance increases)
	CreditAccount AccountKey  // Account receiving credit (balance decreases)
	Amount        int64       // Base-unit amount (ALWAYS positive)
	JournalType   JournalType // Entry type
	Timestamp     int64       // Versioned input timestamp (epoch microseconds)
}

// Batch represents the balanced set of journal entries one command produced
type Batch struct {
	BatchID   uuid.UUID
	EventRef  string
	Sequence  int64
	Timestamp int64
	Journals  []Journal
}

// NewBatch creates an empty batch for a command. Commands that touch no
// value (pure state-machine transitions) legitimately leave it empty.
func NewBatch(eventRef string, sequence, timestamp int64) *Batch {
	return &Batch{
		BatchID:   uuid.New(),
		EventRef:  eventRef,
		Sequence:  sequence,
		Timestamp: timestamp,
		Journals:  make([]Journal, 0, 4),
	}
}

// Add appends a transfer entry. Zero or negative amounts are dropped so
// callers can pass computed slices without pre-checking.
func (b *Batch) Add(debit, credit AccountKey, amount int64, jtype JournalType) {
	if amount <= 0 {
		return
	}
	b.Journals = append(b.Journals, Journal{
		JournalID:     uuid.New(),
		BatchID:       b.BatchID,
		EventRef:      b.EventRef,
		Sequence:      b.Sequence,
		DebitAccount:  debit,
		CreditAccount: credit,
		Amount:        amount,
		JournalType:   jtype,
		Timestamp:     b.Timestamp,
	})
}

// AddSigned books a delta whose sign is not known up front: positive
// deltas debit the target, negative deltas credit it back to the
// counter-account. Used for revaluation against the yield boundary.
func (b *Batch) AddSigned(target, counter AccountKey, delta int64, jtype JournalType) {
	if delta > 0 {
		b.Add(target, counter, delta, jtype)
	} else if delta < 0 {
		b.Add(counter, target, -delta, jtype)
	}
}

// Validate ensures the batch is well-formed. Each entry is a balanced
// transfer by construction (one positive amount moving credit → debit),
// so Σ debits == Σ credits holds per-entry.
func (b *Batch) Validate() error {
	for _, j := range b.Journals {
		if j.Amount <= 0 {
			return fmt.Errorf("journal %s has non-positive amount: %d", j.JournalID, j.Amount)
		}
		if j.BatchID != b.BatchID {
			return fmt.Errorf("journal %s has mismatched batch_id", j.JournalID)
		}
		if j.DebitAccount == j.CreditAccount {
			return fmt.Errorf("journal %s has same debit and credit account", j.JournalID)
		}
	}
	return nil
}
