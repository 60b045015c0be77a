package vault

import (
	"fmt"

	"StakeVault/internal/ledger"

	"github.com/google/uuid"
)

// VaultLedger owns the total-assets aggregate and the per-subject
// valuation cache. The cache covers a subject's active claim plus, while
// a withdrawal is pending, the vault's claim inside the escrow.
// Revaluation is the only path that reconciles the cache against the
// staking collaborator's live figures; totalAssets is never recomputed
// eagerly.
type VaultLedger struct {
	vaultID     uuid.UUID
	totalAssets int64
	valuations  map[string]int64
	subjects    *SubjectRegistry
	escrows     *EscrowRegistry
	staking     StakingSource
}

func NewVaultLedger(vaultID uuid.UUID, subjects *SubjectRegistry, escrows *EscrowRegistry, staking StakingSource) *VaultLedger {
	return &VaultLedger{
		vaultID:    vaultID,
		valuations: make(map[string]int64),
		subjects:   subjects,
		escrows:    escrows,
		staking:    staking,
	}
}

// TotalAssets returns the cached aggregate.
func (vl *VaultLedger) TotalAssets() int64 {
	return vl.totalAssets
}

// Valuation returns a subject's cached valuation.
func (vl *VaultLedger) Valuation(subject string) int64 {
	return vl.valuations[subject]
}

// LiveValuation queries the collaborator for a subject's current value:
// the active claim plus the vault's pending claim if a withdrawal is in
// flight.
func (vl *VaultLedger) LiveValuation(subject string) (int64, error) {
	live, err := vl.staking.Valuation(vl.vaultID, subject)
	if err != nil {
		return 0, fmt.Errorf("query valuation of %s: %w", subject, err)
	}
	if escrowID, ok := vl.escrows.ForSubject(subject); ok {
		pending, err := vl.staking.PendingValuation(vl.vaultID, escrowID)
		if err != nil {
			return 0, fmt.Errorf("query pending valuation of %s: %w", subject, err)
		}
		live += pending
	}
	return live, nil
}

// RevalueSubject resynchronizes one cached valuation. A nonzero delta is
// applied to totalAssets and booked against the yield boundary account.
// Idempotent: a second call with no collaborator-side change is a no-op.
func (vl *VaultLedger) RevalueSubject(subject string, batch *ledger.Batch) error {
	return vl.RevalueSubjectInto(subject, batch,
		ledger.NewExternalKey(ledger.SubTypeExternalYield), ledger.JournalTypeYieldRevaluation)
}

// RevalueSubjectInto is RevalueSubject with an explicit counter-account:
// redemption uses it to book the value a slice transfer moved out of a
// subject into a user's claim instead of misattributing it to yield.
func (vl *VaultLedger) RevalueSubjectInto(subject string, batch *ledger.Batch, counter ledger.AccountKey, jtype ledger.JournalType) error {
	live, err := vl.LiveValuation(subject)
	if err != nil {
		return err
	}

	cached := vl.valuations[subject]
	if live == cached {
		return nil
	}

	delta := live - cached
	vl.totalAssets += delta
	if live == 0 {
		delete(vl.valuations, subject)
		// Fully drained with no withdrawal in flight: the subject's
		// lifecycle is over until the next delegation.
		if _, pending := vl.escrows.ForSubject(subject); !pending {
			vl.subjects.Remove(subject)
		}
	} else {
		vl.valuations[subject] = live
	}

	batch.AddSigned(ledger.NewSubjectStakedKey(subject), counter, delta, jtype)
	return nil
}

// RevalueAll sweeps every registered subject. Linear in subject count;
// it runs on the deposit and redemption hot paths by design of the
// protocol, so callers must tolerate the cost.
func (vl *VaultLedger) RevalueAll(batch *ledger.Batch) error {
	// Snapshot: a drained subject drops out of the registry mid-sweep.
	for _, subject := range vl.subjects.Snapshot() {
		if err := vl.RevalueSubject(subject, batch); err != nil {
			return err
		}
	}
	return nil
}

// AdjustValuation applies a known delta to one subject's cache and the
// aggregate. Used when the delta was measured directly (delegate,
// undelegate settlement) rather than discovered by revaluation.
func (vl *VaultLedger) AdjustValuation(subject string, delta int64) {
	next := vl.valuations[subject] + delta
	if next == 0 {
		delete(vl.valuations, subject)
	} else {
		vl.valuations[subject] = next
	}
	vl.totalAssets += delta
}

// AdjustIdle moves the aggregate in step with the vault's directly-held
// balance (deposits in, idle payouts out).
func (vl *VaultLedger) AdjustIdle(delta int64) {
	vl.totalAssets += delta
}

// Valuations returns a copy of the cache for snapshots.
func (vl *VaultLedger) Valuations() map[string]int64 {
	out := make(map[string]int64, len(vl.valuations))
	for k, v := range vl.valuations {
		out[k] = v
	}
	return out
}

// Restore overwrites the cache and aggregate from a snapshot.
func (vl *VaultLedger) Restore(totalAssets int64, valuations map[string]int64) {
	vl.totalAssets = totalAssets
	vl.valuations = make(map[string]int64, len(valuations))
	for k, v := range valuations {
		vl.valuations[k] = v
	}
}
