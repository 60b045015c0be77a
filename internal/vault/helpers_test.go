package vault_test

import (
	"fmt"
	"testing"
	"time"

	"StakeVault/internal/ledger"
	"StakeVault/internal/staking"
	"StakeVault/internal/vault"

	"github.com/google/uuid"
)

// --- Test fixture ---

// fixture wires the full vault core against the in-process staking
// simulator with a controllable clock. Every applied batch is checked
// for the zero-sum and aggregate-match invariants.
type fixture struct {
	t *testing.T

	vaultID  uuid.UUID
	operator uuid.UUID
	treasury uuid.UUID

	sim      *staking.Simulator
	subjects *vault.SubjectRegistry
	escrows  *vault.EscrowRegistry
	vl       *vault.VaultLedger
	shares   *vault.ShareLedger
	fees     *vault.FeeCalculator
	books    *ledger.BalanceTracker
	dm       *vault.DelegationManager
	rc       *vault.RedemptionCoordinator

	seq   int64
	clock time.Time
}

const testUnbonding = 7 * 24 * time.Hour

func newFixture(t *testing.T, feeBasisPoints int64) *fixture {
	f := &fixture{
		t:        t,
		vaultID:  uuid.New(),
		operator: uuid.New(),
		treasury: uuid.New(),
		clock:    time.UnixMicro(1_000_000),
	}

	f.sim = staking.NewSimulator(testUnbonding)
	f.sim.SetClock(func() time.Time { return f.clock })
	f.sim.AddOperator(f.operator)

	f.subjects = vault.NewSubjectRegistry()
	f.escrows = vault.NewEscrowRegistry()
	f.vl = vault.NewVaultLedger(f.vaultID, f.subjects, f.escrows, f.sim)
	f.shares = vault.NewShareLedger()
	f.books = ledger.NewBalanceTracker()

	fees, err := vault.NewFeeCalculator(feeBasisPoints, f.treasury)
	if err != nil {
		t.Fatalf("NewFeeCalculator failed: %v", err)
	}
	f.fees = fees

	f.dm = vault.NewDelegationManager(f.vaultID, f.sim, f.sim, f.sim, f.sim, f.sim,
		f.subjects, f.escrows, f.vl)
	f.rc = vault.NewRedemptionCoordinator(f.vaultID, f.sim, f.sim, f.sim,
		f.subjects, f.escrows, f.vl, f.shares, f.fees, f.books)

	return f
}

func (f *fixture) newBatch() *ledger.Batch {
	f.seq++
	return ledger.NewBatch(fmt.Sprintf("cmd-%d", f.seq), f.seq, f.clock.UnixMicro())
}

// apply commits a batch to the books and asserts the two structural
// invariants: the book is globally zero-sum and the cached aggregate
// matches the booked vault assets.
func (f *fixture) apply(batch *ledger.Batch) {
	f.t.Helper()
	if err := f.books.ApplyBatch(batch); err != nil {
		f.t.Fatalf("ApplyBatch failed: %v", err)
	}
	if got := f.books.ComputeGlobalBalance(); got != 0 {
		f.t.Fatalf("global balance is %d, want 0", got)
	}
	if f.vl.TotalAssets() != f.books.VaultAssets() {
		f.t.Fatalf("aggregate mismatch: cached %d, booked %d", f.vl.TotalAssets(), f.books.VaultAssets())
	}
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *fixture) nowMicros() int64 {
	return f.clock.UnixMicro()
}

func (f *fixture) mustDeposit(user uuid.UUID, amount int64) int64 {
	f.t.Helper()
	batch := f.newBatch()
	minted, err := f.rc.Deposit(user, user, amount, batch)
	if err != nil {
		f.t.Fatalf("Deposit(%d) failed: %v", amount, err)
	}
	f.apply(batch)
	return minted
}

func (f *fixture) mustDelegate(subject string, amount int64) {
	f.t.Helper()
	batch := f.newBatch()
	if err := f.dm.Delegate(f.operator, subject, amount, batch); err != nil {
		f.t.Fatalf("Delegate(%s, %d) failed: %v", subject, amount, err)
	}
	f.apply(batch)
}

func (f *fixture) mustInitiateUndelegate(subject string, units int64) (int64, uuid.UUID) {
	f.t.Helper()
	batch := f.newBatch()
	deadline, escrowID, err := f.dm.InitiateUndelegate(f.operator, subject, units, batch)
	if err != nil {
		f.t.Fatalf("InitiateUndelegate(%s, %d) failed: %v", subject, units, err)
	}
	f.apply(batch)
	return deadline, escrowID
}

func (f *fixture) mustUndelegate(subject string) {
	f.t.Helper()
	batch := f.newBatch()
	if err := f.dm.Undelegate(subject, f.nowMicros(), batch); err != nil {
		f.t.Fatalf("Undelegate(%s) failed: %v", subject, err)
	}
	f.apply(batch)
}

func (f *fixture) mustRedeem(caller, owner, receiver uuid.UUID, shareAmount int64) int64 {
	f.t.Helper()
	batch := f.newBatch()
	idleSlice, err := f.rc.Redeem(caller, owner, receiver, shareAmount, batch)
	if err != nil {
		f.t.Fatalf("Redeem(%d) failed: %v", shareAmount, err)
	}
	f.apply(batch)
	return idleSlice
}

func (f *fixture) mustClaimRedeem(caller, receiver uuid.UUID) int64 {
	f.t.Helper()
	batch := f.newBatch()
	paid, err := f.rc.ClaimRedeem(caller, receiver, batch)
	if err != nil {
		f.t.Fatalf("ClaimRedeem failed: %v", err)
	}
	f.apply(batch)
	return paid
}
