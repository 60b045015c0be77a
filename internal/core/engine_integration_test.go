package core_test

import (
	"StakeVault/internal/core"
	"StakeVault/internal/event"
	"StakeVault/internal/staking"
	"testing"
	"time"

	"github.com/google/uuid"
)

// --- Test helpers ---

const coreUnbonding = 7 * 24 * time.Hour

var coreBase = time.UnixMicro(1_700_000_000_000_000)

// coreFixture wires a DeterministicCore to a staking simulator with
// buffered channels, no DB checker, and no metrics.
type coreFixture struct {
	t    *testing.T
	core *core.DeterministicCore
	sim  *staking.Simulator

	persistCh chan core.CoreOutput
	projCh    chan core.CoreOutput

	vaultID  uuid.UUID
	operator uuid.UUID
	admin    uuid.UUID
	treasury uuid.UUID
	alice    uuid.UUID

	clock      time.Time
	globalSeq  int64
	subjectSeq map[string]int64
}

func newCoreFixture(t *testing.T, feeBasisPoints int64) *coreFixture {
	t.Helper()

	f := &coreFixture{
		t:          t,
		vaultID:    uuid.MustParse("10000000-0000-0000-0000-000000000001"),
		operator:   uuid.MustParse("10000000-0000-0000-0000-000000000002"),
		admin:      uuid.MustParse("10000000-0000-0000-0000-000000000003"),
		treasury:   uuid.MustParse("10000000-0000-0000-0000-000000000004"),
		alice:      uuid.MustParse("10000000-0000-0000-0000-00000000000a"),
		clock:      coreBase,
		subjectSeq: make(map[string]int64),
	}

	f.sim = staking.NewSimulator(coreUnbonding)
	f.sim.SetClock(func() time.Time { return f.clock })
	f.sim.AddOperator(f.operator)
	f.sim.AddAdmin(f.admin)
	f.sim.Mint(f.alice, 1_000_000)

	f.persistCh = make(chan core.CoreOutput, 1024)
	f.projCh = make(chan core.CoreOutput, 1024)

	collab := core.Collaborators{
		Roles:   f.sim,
		Bank:    f.sim,
		Staking: f.sim,
		Rewards: f.sim,
		Factory: f.sim,
	}
	cfg := core.CoreConfig{
		VaultID:        f.vaultID,
		FeeBasisPoints: feeBasisPoints,
		FeeTreasury:    f.treasury,
	}

	c, err := core.NewDeterministicCore(cfg, collab, 0, f.persistCh, f.projCh, nil, nil)
	if err != nil {
		t.Fatalf("NewDeterministicCore failed: %v", err)
	}
	f.core = c
	return f
}

func (f *coreFixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

// nextGlobal consumes a slot in the global partition. Rejected commands
// consume their slot too, so every constructor takes one.
func (f *coreFixture) nextGlobal() int64 {
	seq := f.globalSeq
	f.globalSeq++
	return seq
}

func (f *coreFixture) nextSubject(subject string) int64 {
	seq := f.subjectSeq[subject]
	f.subjectSeq[subject] = seq + 1
	return seq
}

func (f *coreFixture) deposit(amount int64) *event.DepositRequested {
	return &event.DepositRequested{
		DepositID:  uuid.New(),
		UserID:     f.alice,
		ReceiverID: f.alice,
		Amount:     amount,
		Sequence:   f.nextGlobal(),
		Timestamp:  f.clock,
	}
}

func (f *coreFixture) delegate(operator uuid.UUID, subject string, amount int64) *event.DelegateRequested {
	return &event.DelegateRequested{
		RequestID:  uuid.New(),
		OperatorID: operator,
		SubjectID:  subject,
		Amount:     amount,
		Sequence:   f.nextSubject(subject),
		Timestamp:  f.clock,
	}
}

func (f *coreFixture) initiateUndelegate(subject string, units int64) *event.UndelegateInitiated {
	return &event.UndelegateInitiated{
		RequestID:  uuid.New(),
		OperatorID: f.operator,
		SubjectID:  subject,
		Units:      units,
		Sequence:   f.nextSubject(subject),
		Timestamp:  f.clock,
	}
}

func (f *coreFixture) finalizeUndelegate(subject string) *event.UndelegateFinalized {
	return &event.UndelegateFinalized{
		RequestID: uuid.New(),
		CallerID:  f.alice,
		SubjectID: subject,
		Sequence:  f.nextSubject(subject),
		Timestamp: f.clock,
	}
}

func (f *coreFixture) redeem(shares int64) *event.RedeemRequested {
	return &event.RedeemRequested{
		RequestID:   uuid.New(),
		CallerID:    f.alice,
		OwnerID:     f.alice,
		ReceiverID:  f.alice,
		ShareAmount: shares,
		Sequence:    f.nextGlobal(),
		Timestamp:   f.clock,
	}
}

func (f *coreFixture) claim() *event.ClaimRequested {
	return &event.ClaimRequested{
		RequestID:  uuid.New(),
		CallerID:   f.alice,
		ReceiverID: f.alice,
		Sequence:   f.nextGlobal(),
		Timestamp:  f.clock,
	}
}

func (f *coreFixture) setFeeBasisPoints(admin uuid.UUID, bp int64) *event.FeeBasisPointsUpdated {
	return &event.FeeBasisPointsUpdated{
		RequestID:   uuid.New(),
		AdminID:     admin,
		BasisPoints: bp,
		Sequence:    f.nextGlobal(),
		Timestamp:   f.clock,
	}
}

func (f *coreFixture) claimRewards(subject string, epoch int64) *event.RewardsClaimRequested {
	return &event.RewardsClaimRequested{
		RequestID:  uuid.New(),
		OperatorID: f.operator,
		SubjectID:  subject,
		Epoch:      epoch,
		Sequence:   f.nextSubject(subject),
		Timestamp:  f.clock,
	}
}

func (f *coreFixture) process(evt event.Event) {
	f.t.Helper()
	if err := f.core.ProcessEvent(evt); err != nil {
		f.t.Fatalf("ProcessEvent(%s) failed: %v", evt.EventType(), err)
	}
}

func (f *coreFixture) mustReject(evt event.Event) error {
	f.t.Helper()
	err := f.core.ProcessEvent(evt)
	if err == nil {
		f.t.Fatalf("ProcessEvent(%s) succeeded, want rejection", evt.EventType())
	}
	return err
}

func drainOutputs(ch chan core.CoreOutput) []core.CoreOutput {
	var outputs []core.CoreOutput
	for {
		select {
		case o := <-ch:
			outputs = append(outputs, o)
		default:
			return outputs
		}
	}
}

// ============================================================================
// Test: Pipeline basics
// ============================================================================

func TestProcessEvent_DepositEmitsEnvelope(t *testing.T) {
	f := newCoreFixture(t, 0)

	f.process(f.deposit(1000))

	outputs := drainOutputs(f.persistCh)
	if len(outputs) != 1 {
		t.Fatalf("expected 1 persist output, got %d", len(outputs))
	}

	env := outputs[0].Envelope
	if env.Sequence != 0 {
		t.Errorf("expected sequence 0, got %d", env.Sequence)
	}
	if env.EventType != event.EventTypeDepositRequested {
		t.Errorf("unexpected event type: %v", env.EventType)
	}
	if env.Subject != nil {
		t.Errorf("deposit is vault-wide, got subject %q", *env.Subject)
	}
	if env.StateHash == [32]byte{} {
		t.Error("state hash must not be zero")
	}
	if len(outputs[0].Batch.Journals) != 1 {
		t.Fatalf("expected 1 journal, got %d", len(outputs[0].Batch.Journals))
	}
	if outputs[0].Batch.Journals[0].Amount != 1000 {
		t.Errorf("expected journal amount 1000, got %d", outputs[0].Batch.Journals[0].Amount)
	}

	if got := f.core.GetSequence(); got != 1 {
		t.Errorf("expected next sequence 1, got %d", got)
	}
}

func TestProcessEvent_ProjectionAlsoReceivesOutput(t *testing.T) {
	f := newCoreFixture(t, 0)

	f.process(f.deposit(500))

	if n := len(drainOutputs(f.projCh)); n != 1 {
		t.Fatalf("expected 1 projection output, got %d", n)
	}
}

func TestProcessEvent_DuplicateSkipped(t *testing.T) {
	f := newCoreFixture(t, 0)

	evt := f.deposit(1000)
	f.process(evt)
	drainOutputs(f.persistCh)

	// Redelivery of the exact same command: accepted silently, no output,
	// no sequence advance.
	if err := f.core.ProcessEvent(evt); err != nil {
		t.Fatalf("duplicate delivery must be a no-op, got: %v", err)
	}
	if n := len(drainOutputs(f.persistCh)); n != 0 {
		t.Fatalf("duplicate produced %d outputs", n)
	}
	if got := f.core.GetSequence(); got != 1 {
		t.Errorf("duplicate advanced sequence to %d", got)
	}
}

func TestProcessEvent_SequenceGapRejected(t *testing.T) {
	f := newCoreFixture(t, 0)

	gapped := f.deposit(1000)
	gapped.Sequence = 5

	err := f.core.ProcessEvent(gapped)
	if err == nil {
		t.Fatal("expected sequence gap error")
	}

	// The in-order command still works.
	inOrder := f.deposit(1000)
	inOrder.Sequence = 0
	if err := f.core.ProcessEvent(inOrder); err != nil {
		t.Fatalf("in-order command failed after gap: %v", err)
	}
}

func TestProcessEvent_OutOfOrderNewCommandRejected(t *testing.T) {
	f := newCoreFixture(t, 0)

	f.process(f.deposit(1000))

	// A NEW command re-using a consumed source sequence is out-of-order.
	stale := f.deposit(500)
	stale.Sequence = 0
	if err := f.core.ProcessEvent(stale); err == nil {
		t.Fatal("expected out-of-order rejection")
	}
}

func TestProcessEvent_PartitionsAreIndependent(t *testing.T) {
	f := newCoreFixture(t, 0)

	f.process(f.deposit(10_000))
	f.process(f.delegate(f.operator, "subject-alpha", 3000))
	f.process(f.delegate(f.operator, "subject-beta", 2000))

	// Each subject partition started at 0 independently of the global one.
	outputs := drainOutputs(f.persistCh)
	if len(outputs) != 3 {
		t.Fatalf("expected 3 outputs, got %d", len(outputs))
	}
	for _, o := range outputs[1:] {
		if o.Envelope.SourceSequence != 0 {
			t.Errorf("subject partition should start at 0, got %d", o.Envelope.SourceSequence)
		}
	}
}

// ============================================================================
// Test: Rejections
// ============================================================================

func TestProcessEvent_RejectedCommandEmitsNothing(t *testing.T) {
	f := newCoreFixture(t, 0)
	intruder := uuid.MustParse("10000000-0000-0000-0000-0000000000ff")

	f.process(f.deposit(10_000))
	drainOutputs(f.persistCh)

	before := f.core.GetStateHash()
	f.mustReject(f.delegate(intruder, "subject-alpha", 1000))

	if n := len(drainOutputs(f.persistCh)); n != 0 {
		t.Fatalf("rejected command produced %d outputs", n)
	}
	if got := f.core.GetSequence(); got != 1 {
		t.Errorf("rejected command advanced sequence to %d", got)
	}
	if f.core.GetStateHash() != before {
		t.Error("rejected command moved the state hash")
	}

	// The rejected command consumed its partition slot; the retry uses the
	// next source sequence and succeeds.
	f.process(f.delegate(f.operator, "subject-alpha", 1000))
}

func TestProcessEvent_FeeUpdateIsAdminGated(t *testing.T) {
	f := newCoreFixture(t, 0)

	f.mustReject(f.setFeeBasisPoints(f.operator, 300))

	f.process(f.setFeeBasisPoints(f.admin, 300))

	// Pure state transitions still produce an envelope with no journals.
	outputs := drainOutputs(f.persistCh)
	if len(outputs) != 1 {
		t.Fatalf("expected 1 output, got %d", len(outputs))
	}
	if n := len(outputs[0].Batch.Journals); n != 0 {
		t.Errorf("fee update booked %d journals", n)
	}
}

func TestProcessEvent_InvalidFeeRateRejected(t *testing.T) {
	f := newCoreFixture(t, 0)
	f.mustReject(f.setFeeBasisPoints(f.admin, 10_000))
}

// ============================================================================
// Test: Full lifecycle through the pipeline
// ============================================================================

func TestProcessEvent_FullLifecycle(t *testing.T) {
	f := newCoreFixture(t, 0)

	f.process(f.deposit(1000))
	f.process(f.delegate(f.operator, "subject-alpha", 1000))
	f.process(f.deposit(500))

	// Redeem 750 of 1500 shares: splits across idle and the subject.
	f.process(f.redeem(750))

	snap := f.core.CreateSnapshotState()
	if snap.TotalAssets != 750 {
		t.Errorf("expected total assets 750 after redeem, got %d", snap.TotalAssets)
	}
	if snap.ShareSupply != 750 {
		t.Errorf("expected share supply 750, got %d", snap.ShareSupply)
	}
	if got := f.sim.BalanceOf(f.alice); got != 1_000_000-1500+250 {
		t.Errorf("expected alice idle payout 250, balance %d", got)
	}

	// The subject slice sits in alice's escrow until claimed.
	f.process(f.claim())
	if got := f.sim.BalanceOf(f.alice); got != 1_000_000-1500+750 {
		t.Errorf("expected alice fully paid 750, balance %d", got)
	}

	snap = f.core.CreateSnapshotState()
	if snap.TotalAssets != 750 {
		t.Errorf("claim must not move vault assets, got %d", snap.TotalAssets)
	}
}

func TestProcessEvent_UndelegateLifecycle(t *testing.T) {
	f := newCoreFixture(t, 0)

	f.process(f.deposit(1000))
	f.process(f.delegate(f.operator, "subject-alpha", 1000))
	f.process(f.initiateUndelegate("subject-alpha", 1000))

	// Too early.
	f.mustReject(f.finalizeUndelegate("subject-alpha"))

	f.advance(coreUnbonding + time.Hour)
	f.process(f.finalizeUndelegate("subject-alpha"))

	snap := f.core.CreateSnapshotState()
	if snap.TotalAssets != 1000 {
		t.Errorf("expected total assets 1000 back in idle, got %d", snap.TotalAssets)
	}
	if len(snap.Subjects) != 0 {
		t.Errorf("expected subject removed, got %v", snap.Subjects)
	}
	if len(snap.Escrows) != 0 {
		t.Errorf("expected escrow retired, got %d", len(snap.Escrows))
	}
}

func TestProcessEvent_RewardsClaimCreditsIdle(t *testing.T) {
	f := newCoreFixture(t, 0)
	f.sim.FundRewards("subject-alpha", 1, 77)

	f.process(f.deposit(1000))
	f.process(f.delegate(f.operator, "subject-alpha", 1000))
	f.process(f.claimRewards("subject-alpha", 1))

	snap := f.core.CreateSnapshotState()
	if snap.TotalAssets != 1077 {
		t.Errorf("expected total assets 1077 after rewards, got %d", snap.TotalAssets)
	}
}

// ============================================================================
// Test: Determinism and recovery
// ============================================================================

// replayScript builds one command list and runs it against two fully
// independent fixtures. Identical inputs must yield an identical chain tip.
func TestProcessEvent_ReplayIsDeterministic(t *testing.T) {
	a := newCoreFixture(t, 250)
	b := newCoreFixture(t, 250)

	phase1 := []event.Event{
		a.deposit(10_000),
		a.delegate(a.operator, "subject-alpha", 6000),
		a.delegate(a.operator, "subject-beta", 2000),
		a.initiateUndelegate("subject-alpha", 3000),
		a.redeem(2500),
	}
	for _, evt := range phase1 {
		a.process(evt)
		b.process(evt)
	}

	a.advance(coreUnbonding + time.Hour)
	b.advance(coreUnbonding + time.Hour)

	phase2 := []event.Event{
		a.finalizeUndelegate("subject-alpha"),
		a.claim(),
	}
	for _, evt := range phase2 {
		a.process(evt)
		b.process(evt)
	}

	if a.core.GetStateHash() != b.core.GetStateHash() {
		t.Error("replay diverged: state hashes differ")
	}
	if a.core.GetSequence() != b.core.GetSequence() {
		t.Errorf("replay diverged: sequences %d vs %d", a.core.GetSequence(), b.core.GetSequence())
	}
}

func TestSnapshotRestore_ContinuesProcessing(t *testing.T) {
	f := newCoreFixture(t, 0)

	f.process(f.deposit(1000))
	f.process(f.delegate(f.operator, "subject-alpha", 600))

	snap := f.core.CreateSnapshotState()

	// Cold restart: fresh core against the same external world.
	persistCh := make(chan core.CoreOutput, 1024)
	projCh := make(chan core.CoreOutput, 1024)
	restored, err := core.NewDeterministicCore(core.CoreConfig{
		VaultID:        f.vaultID,
		FeeBasisPoints: 0,
		FeeTreasury:    f.treasury,
	}, core.Collaborators{
		Roles:   f.sim,
		Bank:    f.sim,
		Staking: f.sim,
		Rewards: f.sim,
		Factory: f.sim,
	}, 0, persistCh, projCh, nil, nil)
	if err != nil {
		t.Fatalf("NewDeterministicCore failed: %v", err)
	}
	if err := restored.RestoreFromSnapshot(snap); err != nil {
		t.Fatalf("RestoreFromSnapshot failed: %v", err)
	}

	if restored.GetSequence() != f.core.GetSequence() {
		t.Errorf("restored sequence %d, want %d", restored.GetSequence(), f.core.GetSequence())
	}
	if restored.GetStateHash() != f.core.GetStateHash() {
		t.Error("restored chain tip differs")
	}

	// The restored core keeps processing where the old one stopped.
	if err := restored.ProcessEvent(f.redeem(500)); err != nil {
		t.Fatalf("post-restore redeem failed: %v", err)
	}

	after := restored.CreateSnapshotState()
	if after.TotalAssets != 500 {
		t.Errorf("expected total assets 500 after post-restore redeem, got %d", after.TotalAssets)
	}
	if after.ShareSupply != 500 {
		t.Errorf("expected share supply 500, got %d", after.ShareSupply)
	}
}

func TestSnapshotRestore_DedupSurvivesViaWarmLRU(t *testing.T) {
	f := newCoreFixture(t, 0)

	evt := f.deposit(1000)
	f.process(evt)

	snap := f.core.CreateSnapshotState()

	persistCh := make(chan core.CoreOutput, 1024)
	projCh := make(chan core.CoreOutput, 1024)
	restored, err := core.NewDeterministicCore(core.CoreConfig{
		VaultID:        f.vaultID,
		FeeBasisPoints: 0,
		FeeTreasury:    f.treasury,
	}, core.Collaborators{
		Roles: f.sim, Bank: f.sim, Staking: f.sim, Rewards: f.sim, Factory: f.sim,
	}, 0, persistCh, projCh, nil, nil)
	if err != nil {
		t.Fatalf("NewDeterministicCore failed: %v", err)
	}
	if err := restored.RestoreFromSnapshot(snap); err != nil {
		t.Fatalf("RestoreFromSnapshot failed: %v", err)
	}
	restored.WarmLRU(snap.IdempotencyKeys)

	// Redelivery of a pre-snapshot command is still recognized.
	if err := restored.ProcessEvent(evt); err != nil {
		t.Fatalf("redelivery after restore must be a no-op, got: %v", err)
	}
	if n := len(drainOutputs(persistCh)); n != 0 {
		t.Fatalf("redelivery after restore produced %d outputs", n)
	}
}

// ============================================================================
// Test: Replay with DB-backed dedup
// ============================================================================

// logDedupStub answers the cold-path dedup lookup the way Postgres does:
// any key present in the event log is a duplicate.
type logDedupStub struct {
	keys map[string]bool
}

func (s *logDedupStub) IsDuplicate(eventType, idempotencyKey string) (bool, error) {
	return s.keys[eventType+":"+idempotencyKey], nil
}

func (s *logDedupStub) record(evt event.Event) {
	s.keys[evt.EventType().String()+":"+evt.IdempotencyKey()] = true
}

func TestReplay_DedupBackedByEventLog_RestoresState(t *testing.T) {
	a := newCoreFixture(t, 0)
	logged := &logDedupStub{keys: make(map[string]bool)}

	evts := []event.Event{
		a.deposit(10_000),
		a.delegate(a.operator, "subject-alpha", 6000),
	}
	for _, evt := range evts {
		a.process(evt)
		logged.record(evt)
	}

	// Cold restart: a fresh core over a fresh world, with the cold-path
	// dedup answering from the same log the commands replay out of.
	b := newCoreFixture(t, 0)
	persistCh := make(chan core.CoreOutput, 1024)
	projCh := make(chan core.CoreOutput, 1024)
	restored, err := core.NewDeterministicCore(core.CoreConfig{
		VaultID:     b.vaultID,
		FeeTreasury: b.treasury,
	}, core.Collaborators{
		Roles: b.sim, Bank: b.sim, Staking: b.sim, Rewards: b.sim, Factory: b.sim,
	}, 0, persistCh, projCh, logged, nil)
	if err != nil {
		t.Fatalf("NewDeterministicCore failed: %v", err)
	}

	restored.BeginReplay()
	for _, evt := range evts {
		if err := restored.ProcessEvent(evt); err != nil {
			t.Fatalf("replay of %s failed: %v", evt.EventType(), err)
		}
	}
	restored.EndReplay()

	if got := restored.TotalAssets(); got != 10_000 {
		t.Errorf("total assets after replay = %d, want 10000", got)
	}
	if restored.GetSequence() != a.core.GetSequence() {
		t.Errorf("sequence after replay = %d, want %d", restored.GetSequence(), a.core.GetSequence())
	}
	if restored.GetStateHash() != a.core.GetStateHash() {
		t.Error("replayed chain tip differs from the live run")
	}

	// The suspended tier re-engages after replay: a logged command this
	// core never saw (so it is absent from the LRU) is still skipped.
	drainOutputs(persistCh)
	old := &event.DepositRequested{
		DepositID:  uuid.New(),
		UserID:     b.alice,
		ReceiverID: b.alice,
		Amount:     500,
		Sequence:   0,
		Timestamp:  b.clock,
	}
	logged.record(old)
	if err := restored.ProcessEvent(old); err != nil {
		t.Fatalf("redelivery of a logged command failed: %v", err)
	}
	if n := len(drainOutputs(persistCh)); n != 0 {
		t.Errorf("redelivery of a logged command produced %d outputs", n)
	}
	if got := restored.TotalAssets(); got != 10_000 {
		t.Errorf("total assets after redelivery = %d, want 10000", got)
	}
}

func TestReplay_RejectedInitiateDoesNotShiftEscrowIDs(t *testing.T) {
	a := newCoreFixture(t, 0)
	a.process(a.deposit(10_000))
	a.process(a.delegate(a.operator, "subject-alpha", 6000))

	// Rejected: consumes its source-sequence slot, is never persisted,
	// and must leave the factory's deterministic address counter alone.
	a.mustReject(a.initiateUndelegate("subject-alpha", 999_999))

	a.process(a.initiateUndelegate("subject-alpha", 3000))
	liveLog := drainOutputs(a.persistCh)

	b := newCoreFixture(t, 0)
	b.core.BeginReplay()
	for _, out := range liveLog {
		if err := b.core.ProcessEvent(out.Event); err != nil {
			t.Fatalf("replay of %s failed: %v", out.Event.EventType(), err)
		}
	}
	b.core.EndReplay()

	if b.core.GetStateHash() != a.core.GetStateHash() {
		t.Error("replay diverged from the live run")
	}

	live := a.core.CreateSnapshotState()
	replayed := b.core.CreateSnapshotState()
	if len(live.Escrows) != 1 || len(replayed.Escrows) != 1 {
		t.Fatalf("escrow counts: live %d, replayed %d", len(live.Escrows), len(replayed.Escrows))
	}
	if live.Escrows[0].ID != replayed.Escrows[0].ID {
		t.Errorf("escrow ID diverged: live %s, replayed %s", live.Escrows[0].ID, replayed.Escrows[0].ID)
	}
}

// ============================================================================
// Test: Snapshot isolation
// ============================================================================

func TestCreateSnapshotState_DoesNotAliasLiveEscrows(t *testing.T) {
	f := newCoreFixture(t, 0)
	f.process(f.deposit(1000))
	f.process(f.delegate(f.operator, "subject-alpha", 1000))
	f.process(f.redeem(400))

	snap := f.core.CreateSnapshotState()
	captured := snap.UserEscrows[f.alice]
	if captured == nil || len(captured.SubjectClaims) != 1 {
		t.Fatalf("snapshot did not capture the pending claim: %+v", captured)
	}
	if captured.SubjectClaims[0].Units != 400 {
		t.Fatalf("captured units = %d, want 400", captured.SubjectClaims[0].Units)
	}

	// Processing a claim after capture must not rewrite the snapshot.
	f.process(f.claim())

	if len(captured.SubjectClaims) != 1 || captured.SubjectClaims[0].Units != 400 {
		t.Errorf("snapshot mutated after capture: %+v", captured.SubjectClaims)
	}
}
