package ledger

import (
	"fmt"

	"github.com/google/uuid"
)

// InvariantValidator checks the book-level invariants after every command.
type InvariantValidator struct {
	tracker *BalanceTracker
}

func NewInvariantValidator(tracker *BalanceTracker) *InvariantValidator {
	return &InvariantValidator{
		tracker: tracker,
	}
}

// ValidateBatchBalance verifies a batch is well-formed.
func (v *InvariantValidator) ValidateBatchBalance(batch *Batch) error {
	return batch.Validate()
}

// ValidateGlobalBalance verifies the whole book is zero-sum.
func (v *InvariantValidator) ValidateGlobalBalance() error {
	if total := v.tracker.ComputeGlobalBalance(); total != 0 {
		return fmt.Errorf("global balance is non-zero: %d", total)
	}
	return nil
}

// ValidateIdleNonNegative checks the vault's idle balance.
func (v *InvariantValidator) ValidateIdleNonNegative() error {
	return v.tracker.ValidateNonNegative(NewVaultIdleKey())
}

// ValidateSubjectNonNegative checks a subject's booked valuation.
func (v *InvariantValidator) ValidateSubjectNonNegative(subject string) error {
	return v.tracker.ValidateNonNegative(NewSubjectStakedKey(subject))
}

// ValidateUserClaimNonNegative checks a user's accrued claim value.
func (v *InvariantValidator) ValidateUserClaimNonNegative(user uuid.UUID) error {
	return v.tracker.ValidateNonNegative(NewUserClaimKey(user))
}

// ValidateAggregate verifies the cached totalAssets figure against the
// booked idle + staked sum.
func (v *InvariantValidator) ValidateAggregate(totalAssets int64) error {
	booked := v.tracker.VaultAssets()
	if booked != totalAssets {
		return fmt.Errorf("aggregate mismatch: cached total_assets=%d, booked idle+staked=%d",
			totalAssets, booked)
	}
	return nil
}
