package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// BalanceTracker maintains the vault's in-memory double-entry balances.
// The whole book is zero-sum: every vault-side balance is mirrored by an
// external boundary account.
type BalanceTracker struct {
	balances map[AccountKey]int64
}

func NewBalanceTracker() *BalanceTracker {
	return &BalanceTracker{
		balances: make(map[AccountKey]int64),
	}
}

// ApplyJournal applies a single journal entry to balances
func (bt *BalanceTracker) ApplyJournal(j Journal) {
	bt.balances[j.DebitAccount] += j.Amount
	bt.balances[j.CreditAccount] -= j.Amount
}

// ApplyBatch applies all journals in a batch
func (bt *BalanceTracker) ApplyBatch(batch *Batch) error {
	if err := batch.Validate(); err != nil {
		return fmt.Errorf("invalid batch: %w", err)
	}
	for _, j := range batch.Journals {
		bt.ApplyJournal(j)
	}
	return nil
}

// GetBalance returns the current balance for an account
func (bt *BalanceTracker) GetBalance(key AccountKey) int64 {
	return bt.balances[key]
}

// IdleBalance is the vault's directly-held asset balance.
func (bt *BalanceTracker) IdleBalance() int64 {
	return bt.balances[NewVaultIdleKey()]
}

// SubjectStaked is the booked valuation of one subject.
func (bt *BalanceTracker) SubjectStaked(subject string) int64 {
	return bt.balances[NewSubjectStakedKey(subject)]
}

// UserClaim is the value accrued in a user's escrow awaiting liquidation.
func (bt *BalanceTracker) UserClaim(user uuid.UUID) int64 {
	return bt.balances[NewUserClaimKey(user)]
}

// TotalStaked sums booked valuations across all subject accounts.
func (bt *BalanceTracker) TotalStaked() int64 {
	var total int64
	for key, bal := range bt.balances {
		if key.Scope == AccountScopeSubject && key.SubType == SubTypeStaked {
			total += bal
		}
	}
	return total
}

// VaultAssets is idle + Σ staked: the booked counterpart of the
// aggregate the valuation cache maintains.
func (bt *BalanceTracker) VaultAssets() int64 {
	return bt.IdleBalance() + bt.TotalStaked()
}

// ComputeGlobalBalance sums every account; the result must be zero.
func (bt *BalanceTracker) ComputeGlobalBalance() int64 {
	var total int64
	for _, bal := range bt.balances {
		total += bal
	}
	return total
}

// ValidateNonNegative checks a single account balance is not negative.
// Boundary accounts are exempt: they legitimately run negative as the
// mirror of vault-side balances.
func (bt *BalanceTracker) ValidateNonNegative(key AccountKey) error {
	if key.Scope == AccountScopeExternal {
		return nil
	}
	if bal := bt.balances[key]; bal < 0 {
		return fmt.Errorf("account %s has negative balance: %d", key.AccountPath(), bal)
	}
	return nil
}

// SetBalance overwrites one account; used only on snapshot restore.
func (bt *BalanceTracker) SetBalance(key AccountKey, balance int64) {
	if balance == 0 {
		delete(bt.balances, key)
		return
	}
	bt.balances[key] = balance
}

// Snapshot returns a copy of all balances.
func (bt *BalanceTracker) Snapshot() map[AccountKey]int64 {
	out := make(map[AccountKey]int64, len(bt.balances))
	for k, v := range bt.balances {
		out[k] = v
	}
	return out
}
