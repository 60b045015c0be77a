package vault

import (
	"fmt"

	"StakeVault/internal/ledger"

	"github.com/google/uuid"
)

// DelegationManager drives the per-subject lifecycle state machine:
//
//	Absent → Delegated → WithdrawalPending → Absent
//
// Delegated is re-entrant (repeated delegate calls top up the claim) and
// Absent is reachable again after a full withdrawal. Exactly one
// withdrawal escrow may be in flight per subject.
type DelegationManager struct {
	vaultID uuid.UUID
	roles   RoleChecker
	bank    AssetBank
	staking StakingSource
	rewards RewardsSource
	factory SubAccountFactory

	subjects *SubjectRegistry
	escrows  *EscrowRegistry
	ledger   *VaultLedger

	// Pending-withdrawal deadline per subject, epoch microseconds.
	// Zero/absent means no withdrawal in flight.
	deadlines map[string]int64
}

func NewDelegationManager(
	vaultID uuid.UUID,
	roles RoleChecker,
	bank AssetBank,
	staking StakingSource,
	rewards RewardsSource,
	factory SubAccountFactory,
	subjects *SubjectRegistry,
	escrows *EscrowRegistry,
	vl *VaultLedger,
) *DelegationManager {
	return &DelegationManager{
		vaultID:   vaultID,
		roles:     roles,
		bank:      bank,
		staking:   staking,
		rewards:   rewards,
		factory:   factory,
		subjects:  subjects,
		escrows:   escrows,
		ledger:    vl,
		deadlines: make(map[string]int64),
	}
}

// Deadline returns the pending-withdrawal deadline for a subject
// (epoch microseconds), zero if none.
func (dm *DelegationManager) Deadline(subject string) int64 {
	return dm.deadlines[subject]
}

// Delegate moves amount of the vault's idle asset into a subject. The
// valuation increment is the measured delta reported by the staking
// collaborator, never the requested amount; fee-on-transfer or rounding
// inside the collaborator must not corrupt the books.
func (dm *DelegationManager) Delegate(operator uuid.UUID, subject string, amount int64, batch *ledger.Batch) error {
	if !dm.roles.IsOperator(operator) {
		return ErrNotOperator
	}
	if amount <= 0 {
		return ErrZeroAmount
	}
	if dm.bank.BalanceOf(dm.vaultID) < amount {
		return fmt.Errorf("%w: idle=%d, requested=%d", ErrInsufficientIdle, dm.bank.BalanceOf(dm.vaultID), amount)
	}

	before, err := dm.staking.Valuation(dm.vaultID, subject)
	if err != nil {
		return fmt.Errorf("valuation before delegate: %w", err)
	}
	if err := dm.staking.Delegate(dm.vaultID, subject, amount); err != nil {
		return fmt.Errorf("delegate %d to %s: %w", amount, subject, err)
	}
	after, err := dm.staking.Valuation(dm.vaultID, subject)
	if err != nil {
		return fmt.Errorf("valuation after delegate: %w", err)
	}
	received := after - before

	if received > 0 && !dm.subjects.Contains(subject) {
		dm.subjects.Add(subject)
	}

	dm.ledger.AdjustValuation(subject, received)
	dm.ledger.AdjustIdle(-amount)

	batch.Add(ledger.NewSubjectStakedKey(subject), ledger.NewVaultIdleKey(), amount, ledger.JournalTypeDelegate)
	// Collaborator-side discrepancy between requested and received is a
	// valuation event, not a transfer.
	batch.AddSigned(ledger.NewSubjectStakedKey(subject),
		ledger.NewExternalKey(ledger.SubTypeExternalYield),
		received-amount, ledger.JournalTypeYieldRevaluation)

	return nil
}

// InitiateUndelegate starts a withdrawal: a fresh escrow takes over the
// requested claim units and the collaborator's maturity deadline is
// recorded. Rejected while a withdrawal is already pending so delays
// cannot compound.
func (dm *DelegationManager) InitiateUndelegate(operator uuid.UUID, subject string, units int64, batch *ledger.Batch) (deadlineMicros int64, escrowID uuid.UUID, err error) {
	if !dm.roles.IsOperator(operator) {
		return 0, uuid.Nil, ErrNotOperator
	}
	if units <= 0 {
		return 0, uuid.Nil, ErrZeroAmount
	}
	if dm.deadlines[subject] != 0 {
		return 0, uuid.Nil, fmt.Errorf("%w: subject %s", ErrPendingUndelegation, subject)
	}

	// Validate the unit amount before creating the escrow. The factory
	// derives escrow addresses from a counter that a rejected command
	// must not advance, or replaying the log derives different addresses
	// than the live run recorded.
	held, err := dm.staking.Units(dm.vaultID, subject)
	if err != nil {
		return 0, uuid.Nil, fmt.Errorf("query units of %s: %w", subject, err)
	}
	if units > held {
		return 0, uuid.Nil, fmt.Errorf("%w: withdrawing %d units of %s, holding %d",
			ErrInvalidUndelegation, units, subject, held)
	}

	escrowID, err = dm.factory.CreateWithdrawalEscrow(dm.vaultID, subject)
	if err != nil {
		return 0, uuid.Nil, fmt.Errorf("create withdrawal escrow for %s: %w", subject, err)
	}

	deadline, err := dm.staking.BeginWithdrawal(dm.vaultID, subject, escrowID, units)
	if err != nil {
		if retireErr := dm.factory.RetireWithdrawalEscrow(escrowID); retireErr != nil {
			return 0, uuid.Nil, fmt.Errorf("begin withdrawal from %s: %w (retire escrow: %v)", subject, err, retireErr)
		}
		return 0, uuid.Nil, fmt.Errorf("begin withdrawal from %s: %w", subject, err)
	}

	deadlineMicros = deadline.UnixMicro()
	dm.escrows.Add(escrowID, subject)
	dm.deadlines[subject] = deadlineMicros

	// The claim merely changed shape (active → pending); the cached
	// valuation covers both, so revalue only to absorb rounding inside
	// the collaborator.
	if err := dm.ledger.RevalueSubject(subject, batch); err != nil {
		return 0, uuid.Nil, err
	}

	return deadlineMicros, escrowID, nil
}

// Undelegate finalizes a matured withdrawal. Callable by anyone: the
// deadline gate and the freeze check are the only preconditions.
// nowMicros is the command's versioned timestamp.
func (dm *DelegationManager) Undelegate(subject string, nowMicros int64, batch *ledger.Batch) error {
	deadline := dm.deadlines[subject]
	if deadline == 0 {
		return fmt.Errorf("%w: no withdrawal pending for %s", ErrInvalidUndelegation, subject)
	}
	if nowMicros < deadline {
		return fmt.Errorf("%w: deadline %d not reached at %d", ErrInvalidUndelegation, deadline, nowMicros)
	}
	frozen, err := dm.staking.Frozen(subject)
	if err != nil {
		return fmt.Errorf("query freeze status of %s: %w", subject, err)
	}
	if frozen {
		return fmt.Errorf("%w: subject %s is frozen", ErrInvalidUndelegation, subject)
	}

	escrowID, ok := dm.escrows.ForSubject(subject)
	if !ok {
		return fmt.Errorf("%w: deadline set but no escrow for %s", ErrInvalidUndelegation, subject)
	}

	// Validations are done; sync the cache so the settlement delta is
	// measured against a current valuation.
	if err := dm.ledger.RevalueSubject(subject, batch); err != nil {
		return err
	}

	// Clear the pending state before the escrow callback: a reentrant
	// finalize must observe no withdrawal in flight.
	delete(dm.deadlines, subject)
	dm.escrows.Remove(escrowID)

	before := dm.bank.BalanceOf(dm.vaultID)
	if err := dm.staking.FinalizeWithdrawal(dm.vaultID, escrowID); err != nil {
		return fmt.Errorf("finalize withdrawal escrow %s: %w", escrowID, err)
	}
	received := dm.bank.BalanceOf(dm.vaultID) - before

	// The subject's valuation drops by the measured settlement, not by a
	// re-query: the escrow may still hold third-party units whose value
	// must not leak into the vault's cache.
	dm.ledger.AdjustValuation(subject, -received)
	dm.ledger.AdjustIdle(received)
	batch.Add(ledger.NewVaultIdleKey(), ledger.NewSubjectStakedKey(subject), received, ledger.JournalTypeUndelegateSettle)

	if err := dm.factory.RetireWithdrawalEscrow(escrowID); err != nil {
		return fmt.Errorf("retire escrow %s: %w", escrowID, err)
	}

	if dm.ledger.Valuation(subject) == 0 {
		dm.subjects.Remove(subject)
	}

	return nil
}

// ClaimRewards pulls subject rewards for an epoch into the idle balance.
// The proceeds are measured from the bank delta.
func (dm *DelegationManager) ClaimRewards(operator uuid.UUID, subject string, epoch int64, batch *ledger.Batch) (int64, error) {
	if !dm.roles.IsOperator(operator) {
		return 0, ErrNotOperator
	}

	before := dm.bank.BalanceOf(dm.vaultID)
	if err := dm.rewards.ClaimEpoch(dm.vaultID, subject, epoch); err != nil {
		return 0, fmt.Errorf("claim rewards for %s epoch %d: %w", subject, epoch, err)
	}
	received := dm.bank.BalanceOf(dm.vaultID) - before

	dm.ledger.AdjustIdle(received)
	batch.Add(ledger.NewVaultIdleKey(), ledger.NewExternalKey(ledger.SubTypeExternalYield),
		received, ledger.JournalTypeRewardsClaim)

	return received, nil
}

// Deadlines returns a copy of the deadline map for snapshots.
func (dm *DelegationManager) Deadlines() map[string]int64 {
	out := make(map[string]int64, len(dm.deadlines))
	for k, v := range dm.deadlines {
		out[k] = v
	}
	return out
}

// RestoreDeadlines overwrites the deadline map from a snapshot.
func (dm *DelegationManager) RestoreDeadlines(deadlines map[string]int64) {
	dm.deadlines = make(map[string]int64, len(deadlines))
	for k, v := range deadlines {
		dm.deadlines[k] = v
	}
}
