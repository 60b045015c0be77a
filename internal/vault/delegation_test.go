package vault_test

import (
	"errors"
	"testing"
	"time"

	"StakeVault/internal/vault"

	"github.com/google/uuid"
)

// ============================================================================
// Test: Delegate
// ============================================================================

func TestDelegate_NotOperator_Rejected(t *testing.T) {
	f := newFixture(t, 0)
	user := uuid.New()
	f.sim.Mint(user, 1000)
	f.mustDeposit(user, 1000)

	batch := f.newBatch()
	err := f.dm.Delegate(uuid.New(), "alpha", 500, batch)
	if !errors.Is(err, vault.ErrNotOperator) {
		t.Fatalf("expected ErrNotOperator, got %v", err)
	}
	if len(batch.Journals) != 0 {
		t.Error("rejected delegate must not emit journals")
	}
}

func TestDelegate_ZeroAmount_Rejected(t *testing.T) {
	f := newFixture(t, 0)

	err := f.dm.Delegate(f.operator, "alpha", 0, f.newBatch())
	if !errors.Is(err, vault.ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
}

func TestDelegate_InsufficientIdle_Rejected(t *testing.T) {
	f := newFixture(t, 0)
	user := uuid.New()
	f.sim.Mint(user, 100)
	f.mustDeposit(user, 100)

	err := f.dm.Delegate(f.operator, "alpha", 500, f.newBatch())
	if !errors.Is(err, vault.ErrInsufficientIdle) {
		t.Fatalf("expected ErrInsufficientIdle, got %v", err)
	}
}

func TestDelegate_RegistersSubjectAndBooksStake(t *testing.T) {
	f := newFixture(t, 0)
	user := uuid.New()
	f.sim.Mint(user, 1000)
	f.mustDeposit(user, 1000)

	f.mustDelegate("alpha", 1000)

	if !f.subjects.Contains("alpha") {
		t.Error("subject should be registered after first delegation")
	}
	if got := f.vl.Valuation("alpha"); got != 1000 {
		t.Errorf("cached valuation = %d, want 1000", got)
	}
	// Moving idle into a subject does not change the aggregate.
	if got := f.vl.TotalAssets(); got != 1000 {
		t.Errorf("total assets = %d, want 1000", got)
	}
	if got := f.books.SubjectStaked("alpha"); got != 1000 {
		t.Errorf("booked stake = %d, want 1000", got)
	}
	if got := f.books.IdleBalance(); got != 0 {
		t.Errorf("booked idle = %d, want 0", got)
	}
}

func TestDelegate_Repeated_TopsUp(t *testing.T) {
	f := newFixture(t, 0)
	user := uuid.New()
	f.sim.Mint(user, 1000)
	f.mustDeposit(user, 1000)

	f.mustDelegate("alpha", 400)
	f.mustDelegate("alpha", 600)

	if got := f.vl.Valuation("alpha"); got != 1000 {
		t.Errorf("cached valuation = %d, want 1000", got)
	}
	if f.subjects.Len() != 1 {
		t.Errorf("subject count = %d, want 1", f.subjects.Len())
	}
}

// ============================================================================
// Test: Initiate Undelegate
// ============================================================================

func TestInitiateUndelegate_SecondWhilePending_Rejected(t *testing.T) {
	f := newFixture(t, 0)
	user := uuid.New()
	f.sim.Mint(user, 1000)
	f.mustDeposit(user, 1000)
	f.mustDelegate("alpha", 1000)

	f.mustInitiateUndelegate("alpha", 400)

	_, _, err := f.dm.InitiateUndelegate(f.operator, "alpha", 100, f.newBatch())
	if !errors.Is(err, vault.ErrPendingUndelegation) {
		t.Fatalf("expected ErrPendingUndelegation, got %v", err)
	}
}

func TestInitiateUndelegate_ExceedsUnits_RejectedWithoutSideEffects(t *testing.T) {
	f := newFixture(t, 0)
	user := uuid.New()
	f.sim.Mint(user, 1000)
	f.mustDeposit(user, 1000)
	f.mustDelegate("alpha", 1000)

	_, _, err := f.dm.InitiateUndelegate(f.operator, "alpha", 5000, f.newBatch())
	if !errors.Is(err, vault.ErrInvalidUndelegation) {
		t.Fatalf("expected ErrInvalidUndelegation, got %v", err)
	}
	if f.dm.Deadline("alpha") != 0 {
		t.Error("rejected initiate recorded a deadline")
	}
	if _, ok := f.escrows.ForSubject("alpha"); ok {
		t.Error("rejected initiate registered an escrow")
	}

	// The rejection happens before the escrow account is created, so a
	// following accepted initiate works off an unshifted address counter.
	_, escrowID := f.mustInitiateUndelegate("alpha", 400)
	got, ok := f.escrows.ForSubject("alpha")
	if !ok || got != escrowID {
		t.Errorf("escrow registry lookup = %v, %v; want %v", got, ok, escrowID)
	}
}

func TestInitiateUndelegate_RecordsDeadlineAndEscrow(t *testing.T) {
	f := newFixture(t, 0)
	user := uuid.New()
	f.sim.Mint(user, 1000)
	f.mustDeposit(user, 1000)
	f.mustDelegate("alpha", 1000)

	deadline, escrowID := f.mustInitiateUndelegate("alpha", 1000)

	wantDeadline := f.clock.Add(testUnbonding).UnixMicro()
	if deadline != wantDeadline {
		t.Errorf("deadline = %d, want %d", deadline, wantDeadline)
	}
	if f.dm.Deadline("alpha") != deadline {
		t.Error("deadline not recorded")
	}
	got, ok := f.escrows.ForSubject("alpha")
	if !ok || got != escrowID {
		t.Errorf("escrow registry lookup = %v, %v; want %v", got, ok, escrowID)
	}
	// The claim changed shape, not value.
	if f.vl.Valuation("alpha") != 1000 {
		t.Errorf("valuation = %d, want 1000", f.vl.Valuation("alpha"))
	}
}

// ============================================================================
// Test: Undelegate
// ============================================================================

func TestUndelegate_NoPending_Rejected(t *testing.T) {
	f := newFixture(t, 0)

	err := f.dm.Undelegate("alpha", f.nowMicros(), f.newBatch())
	if !errors.Is(err, vault.ErrInvalidUndelegation) {
		t.Fatalf("expected ErrInvalidUndelegation, got %v", err)
	}
}

func TestUndelegate_BeforeDeadline_Rejected(t *testing.T) {
	f := newFixture(t, 0)
	user := uuid.New()
	f.sim.Mint(user, 1000)
	f.mustDeposit(user, 1000)
	f.mustDelegate("alpha", 1000)
	f.mustInitiateUndelegate("alpha", 1000)

	f.advance(testUnbonding - time.Second)

	err := f.dm.Undelegate("alpha", f.nowMicros(), f.newBatch())
	if !errors.Is(err, vault.ErrInvalidUndelegation) {
		t.Fatalf("expected ErrInvalidUndelegation before deadline, got %v", err)
	}
	if f.dm.Deadline("alpha") == 0 {
		t.Error("rejected finalize must not clear the pending withdrawal")
	}
}

func TestUndelegate_FrozenSubject_Rejected(t *testing.T) {
	f := newFixture(t, 0)
	user := uuid.New()
	f.sim.Mint(user, 1000)
	f.mustDeposit(user, 1000)
	f.mustDelegate("alpha", 1000)
	f.mustInitiateUndelegate("alpha", 1000)
	f.advance(testUnbonding)
	f.sim.SetFrozen("alpha", true)

	err := f.dm.Undelegate("alpha", f.nowMicros(), f.newBatch())
	if !errors.Is(err, vault.ErrInvalidUndelegation) {
		t.Fatalf("expected ErrInvalidUndelegation while frozen, got %v", err)
	}

	// Thawing unblocks the same withdrawal.
	f.sim.SetFrozen("alpha", false)
	f.mustUndelegate("alpha")
}

func TestUndelegate_FullLifecycle(t *testing.T) {
	f := newFixture(t, 0)
	user := uuid.New()
	f.sim.Mint(user, 1000)
	f.mustDeposit(user, 1000)
	f.mustDelegate("alpha", 1000)
	_, escrowID := f.mustInitiateUndelegate("alpha", 1000)

	f.advance(testUnbonding)
	f.mustUndelegate("alpha")

	if got := f.sim.BalanceOf(f.vaultID); got != 1000 {
		t.Errorf("idle balance = %d, want 1000", got)
	}
	if got := f.vl.Valuation("alpha"); got != 0 {
		t.Errorf("valuation = %d, want 0", got)
	}
	if f.subjects.Contains("alpha") {
		t.Error("fully drained subject should leave the registry")
	}
	if f.escrows.Contains(escrowID) {
		t.Error("settled escrow should leave the registry")
	}
	if f.dm.Deadline("alpha") != 0 {
		t.Error("deadline should be cleared")
	}
	if got := f.vl.TotalAssets(); got != 1000 {
		t.Errorf("total assets = %d, want 1000", got)
	}
}

func TestUndelegate_Partial_KeepsSubject(t *testing.T) {
	f := newFixture(t, 0)
	user := uuid.New()
	f.sim.Mint(user, 1000)
	f.mustDeposit(user, 1000)
	f.mustDelegate("alpha", 1000)
	f.mustInitiateUndelegate("alpha", 400)

	f.advance(testUnbonding)
	f.mustUndelegate("alpha")

	if got := f.vl.Valuation("alpha"); got != 600 {
		t.Errorf("remaining valuation = %d, want 600", got)
	}
	if !f.subjects.Contains("alpha") {
		t.Error("partially drained subject must stay registered")
	}
	if got := f.sim.BalanceOf(f.vaultID); got != 400 {
		t.Errorf("idle balance = %d, want 400", got)
	}
}

func TestUndelegate_YieldDuringUnbonding(t *testing.T) {
	f := newFixture(t, 0)
	user := uuid.New()
	f.sim.Mint(user, 1000)
	f.mustDeposit(user, 1000)
	f.mustDelegate("alpha", 1000)
	f.mustInitiateUndelegate("alpha", 1000)

	// The escrowed claim keeps accruing during unbonding.
	f.sim.SetRate("alpha", 11, 10)
	f.advance(testUnbonding)
	f.mustUndelegate("alpha")

	if got := f.sim.BalanceOf(f.vaultID); got != 1100 {
		t.Errorf("idle balance = %d, want 1100", got)
	}
	if got := f.vl.TotalAssets(); got != 1100 {
		t.Errorf("total assets = %d, want 1100", got)
	}
}

// ============================================================================
// Test: Revaluation
// ============================================================================

func TestRevalueSubject_BooksYieldDelta(t *testing.T) {
	f := newFixture(t, 0)
	user := uuid.New()
	f.sim.Mint(user, 1000)
	f.mustDeposit(user, 1000)
	f.mustDelegate("alpha", 1000)

	f.sim.SetRate("alpha", 12, 10)

	batch := f.newBatch()
	if err := f.vl.RevalueSubject("alpha", batch); err != nil {
		t.Fatalf("RevalueSubject failed: %v", err)
	}
	f.apply(batch)

	if got := f.vl.Valuation("alpha"); got != 1200 {
		t.Errorf("valuation = %d, want 1200", got)
	}
	if got := f.vl.TotalAssets(); got != 1200 {
		t.Errorf("total assets = %d, want 1200", got)
	}
	if len(batch.Journals) != 1 {
		t.Fatalf("expected 1 revaluation journal, got %d", len(batch.Journals))
	}

	// A second revaluation with no rate change is a no-op.
	batch2 := f.newBatch()
	if err := f.vl.RevalueSubject("alpha", batch2); err != nil {
		t.Fatalf("second RevalueSubject failed: %v", err)
	}
	if len(batch2.Journals) != 0 {
		t.Errorf("expected no journals on unchanged revaluation, got %d", len(batch2.Journals))
	}
}

// ============================================================================
// Test: Rewards
// ============================================================================

func TestClaimRewards_CreditsIdle(t *testing.T) {
	f := newFixture(t, 0)
	user := uuid.New()
	f.sim.Mint(user, 1000)
	f.mustDeposit(user, 1000)
	f.mustDelegate("alpha", 1000)
	f.sim.FundRewards("alpha", 3, 77)

	batch := f.newBatch()
	received, err := f.dm.ClaimRewards(f.operator, "alpha", 3, batch)
	if err != nil {
		t.Fatalf("ClaimRewards failed: %v", err)
	}
	f.apply(batch)

	if received != 77 {
		t.Errorf("received = %d, want 77", received)
	}
	if got := f.sim.BalanceOf(f.vaultID); got != 77 {
		t.Errorf("idle balance = %d, want 77", got)
	}
	if got := f.vl.TotalAssets(); got != 1077 {
		t.Errorf("total assets = %d, want 1077", got)
	}

	// The same epoch pays nothing twice.
	batch2 := f.newBatch()
	received2, err := f.dm.ClaimRewards(f.operator, "alpha", 3, batch2)
	if err != nil {
		t.Fatalf("second ClaimRewards failed: %v", err)
	}
	if received2 != 0 {
		t.Errorf("second claim received = %d, want 0", received2)
	}
}

func TestClaimRewards_NotOperator_Rejected(t *testing.T) {
	f := newFixture(t, 0)

	_, err := f.dm.ClaimRewards(uuid.New(), "alpha", 1, f.newBatch())
	if !errors.Is(err, vault.ErrNotOperator) {
		t.Fatalf("expected ErrNotOperator, got %v", err)
	}
}
