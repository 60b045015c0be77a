package core

import (
	"fmt"
	"sort"
	"time"

	"StakeVault/internal/event"
	"StakeVault/internal/ledger"
	"StakeVault/internal/observability"
	"StakeVault/internal/vault"

	"github.com/google/uuid"
)

// DeterministicCore is the single-threaded command processor. All vault
// state lives here; the shell feeds it commands one at a time and drains
// its outputs.
type DeterministicCore struct {
	sequence          int64
	vaultID           uuid.UUID
	hasher            *StateHasher
	balanceTracker    *ledger.BalanceTracker
	validator         *ledger.InvariantValidator
	subjects          *vault.SubjectRegistry
	escrows           *vault.EscrowRegistry
	vaultLedger       *vault.VaultLedger
	shares            *vault.ShareLedger
	fees              *vault.FeeCalculator
	delegation        *vault.DelegationManager
	redemption        *vault.RedemptionCoordinator
	roles             vault.RoleChecker
	idempotency       *IdempotencyChecker
	sequenceValidator *SequenceValidator
	replaying         bool
	metrics           *observability.Metrics

	persistChan    chan<- CoreOutput
	projectionChan chan<- CoreOutput
}

type CoreOutput struct {
	Envelope   *event.EventEnvelope
	Batch      *ledger.Batch
	Event      event.Event
	StateDelta []byte
}

// Collaborators bundles the external capabilities the vault consumes.
type Collaborators struct {
	Roles   vault.RoleChecker
	Bank    vault.AssetBank
	Staking vault.StakingSource
	Rewards vault.RewardsSource
	Factory vault.SubAccountFactory
}

// CoreConfig is the vault's initial configuration.
type CoreConfig struct {
	VaultID        uuid.UUID
	FeeBasisPoints int64
	FeeTreasury    uuid.UUID
}

func NewDeterministicCore(
	cfg CoreConfig,
	collab Collaborators,
	startSequence int64,
	persistChan, projectionChan chan<- CoreOutput,
	dbChecker DBIdempotencyChecker,
	metrics *observability.Metrics,
) (*DeterministicCore, error) {
	fees, err := vault.NewFeeCalculator(cfg.FeeBasisPoints, cfg.FeeTreasury)
	if err != nil {
		return nil, fmt.Errorf("fee config: %w", err)
	}

	balanceTracker := ledger.NewBalanceTracker()
	validator := ledger.NewInvariantValidator(balanceTracker)
	subjects := vault.NewSubjectRegistry()
	escrows := vault.NewEscrowRegistry()
	vaultLedger := vault.NewVaultLedger(cfg.VaultID, subjects, escrows, collab.Staking)
	shares := vault.NewShareLedger()

	delegation := vault.NewDelegationManager(cfg.VaultID, collab.Roles, collab.Bank,
		collab.Staking, collab.Rewards, collab.Factory, subjects, escrows, vaultLedger)
	redemption := vault.NewRedemptionCoordinator(cfg.VaultID, collab.Bank, collab.Staking,
		collab.Factory, subjects, escrows, vaultLedger, shares, fees, balanceTracker)

	// Initialize with capacity of 1M entries (configurable)
	idempotencyChecker := NewIdempotencyChecker(1_000_000, dbChecker)
	sequenceValidator := NewSequenceValidator()

	return &DeterministicCore{
		sequence:          startSequence,
		vaultID:           cfg.VaultID,
		hasher:            NewStateHasher(),
		balanceTracker:    balanceTracker,
		validator:         validator,
		subjects:          subjects,
		escrows:           escrows,
		vaultLedger:       vaultLedger,
		shares:            shares,
		fees:              fees,
		delegation:        delegation,
		redemption:        redemption,
		roles:             collab.Roles,
		idempotency:       idempotencyChecker,
		sequenceValidator: sequenceValidator,
		metrics:           metrics,
		persistChan:       persistChan,
		projectionChan:    projectionChan,
	}, nil
}

// ProcessEvent is the main processing pipeline
func (c *DeterministicCore) ProcessEvent(evt event.Event) error {
	start := time.Now()
	eventType := evt.EventType().String()
	idempotencyKey := evt.IdempotencyKey()

	// Step 1: Idempotency check (two-tier)
	isDuplicate := c.idempotency.IsDuplicate(eventType, idempotencyKey)

	// Step 2: Sequence validation
	partition := c.getPartition(evt)
	if c.replaying {
		// The log was validated when first processed. Rejected commands
		// consumed their slot without being persisted, so a replayed
		// stream may legitimately skip source sequences.
		c.sequenceValidator.AdvancePast(partition, evt.SourceSequence())
	} else if err := c.sequenceValidator.ValidateSequence(partition, evt.SourceSequence(), idempotencyKey, isDuplicate); err != nil {
		return fmt.Errorf("sequence validation failed: %w", err)
	}

	// If duplicate, skip processing
	if isDuplicate {
		if c.metrics != nil {
			c.metrics.CoreEventsRejected.WithLabelValues(eventType, "duplicate").Inc()
		}
		return nil
	}

	// Step 3: Command dispatch. All vault-level validation happens inside
	// the managers; an error means the command is rejected whole and the
	// batch is discarded and no state was mutated.
	timestamp := c.getEventTimestamp(evt)
	batch := ledger.NewBatch(idempotencyKey, c.sequence, timestamp.UnixMicro())

	if err := c.dispatchEvent(evt, batch); err != nil {
		if c.metrics != nil {
			c.metrics.CoreEventsRejected.WithLabelValues(eventType, "rejected").Inc()
		}
		return fmt.Errorf("dispatch failed: %w", err)
	}

	// Step 4: Validate and apply the batch. Empty batches are legitimate
	// (pure state transitions like allowance approvals and fee updates)
	// but still produce an envelope in the event log.
	if len(batch.Journals) > 0 {
		if err := c.validator.ValidateBatchBalance(batch); err != nil {
			panic(fmt.Sprintf("FATAL: unbalanced batch: %v", err))
		}
		if err := c.balanceTracker.ApplyBatch(batch); err != nil {
			return fmt.Errorf("apply batch failed: %w", err)
		}
	}

	// Step 5: Compute state digest and hash
	stateDigest := c.computeStateDigest(batch)
	prevHash := c.hasher.GetPrevHash()
	stateHash := c.hasher.ComputeHash(c.sequence, stateDigest)

	envelope := &event.EventEnvelope{
		Sequence:       c.sequence,
		IdempotencyKey: idempotencyKey,
		EventType:      evt.EventType(),
		Subject:        evt.Subject(),
		Timestamp:      timestamp,
		SourceSequence: evt.SourceSequence(),
		StateHash:      stateHash,
		PrevHash:       prevHash,
	}

	output := CoreOutput{
		Envelope:   envelope,
		Batch:      batch,
		Event:      evt,
		StateDelta: stateDigest,
	}
	c.sequence++

	// Step 6: Post-checks
	if err := c.postCheckInvariants(batch); err != nil {
		panic(fmt.Sprintf("FATAL: invariant violated: %v", err))
	}

	// Step 7: Emit outputs. Persistence uses a BLOCKING send (backpressure:
	// the core stalls until the persistence worker drains, so no command
	// is lost). Projections use a NON-BLOCKING send with silent drop:
	// projection workers rebuild from the event log if they fall behind.
	c.persistChan <- output

	select {
	case c.projectionChan <- output:
	default:
		// Silently dropped; projection will catch up via rebuild
	}

	// Step 8: Mark as processed (add to LRU)
	c.idempotency.MarkProcessed(eventType, idempotencyKey)

	if c.metrics != nil {
		c.metrics.CoreEventsApplied.WithLabelValues(eventType).Inc()
		c.metrics.CoreEventDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
		c.metrics.CoreSequence.Set(float64(c.sequence))
		c.metrics.VaultTotalAssets.Set(float64(c.vaultLedger.TotalAssets()))
		c.metrics.VaultShareSupply.Set(float64(c.shares.TotalSupply()))
		c.metrics.VaultSubjects.Set(float64(c.subjects.Len()))
		c.metrics.VaultPendingEscrows.Set(float64(c.escrows.Len()))
	}

	return nil
}

func (c *DeterministicCore) dispatchEvent(evt event.Event, batch *ledger.Batch) error {
	switch e := evt.(type) {
	case *event.DepositRequested:
		_, err := c.redemption.Deposit(e.UserID, e.ReceiverID, e.Amount, batch)
		return err
	case *event.DelegateRequested:
		return c.delegation.Delegate(e.OperatorID, e.SubjectID, e.Amount, batch)
	case *event.UndelegateInitiated:
		_, _, err := c.delegation.InitiateUndelegate(e.OperatorID, e.SubjectID, e.Units, batch)
		return err
	case *event.UndelegateFinalized:
		return c.delegation.Undelegate(e.SubjectID, e.Timestamp.UnixMicro(), batch)
	case *event.RedeemRequested:
		_, err := c.redemption.Redeem(e.CallerID, e.OwnerID, e.ReceiverID, e.ShareAmount, batch)
		return err
	case *event.ClaimRequested:
		_, err := c.redemption.ClaimRedeem(e.CallerID, e.ReceiverID, batch)
		return err
	case *event.ApproveRequested:
		c.shares.Approve(e.OwnerID, e.SpenderID, e.Amount)
		return nil
	case *event.RewardsClaimRequested:
		_, err := c.delegation.ClaimRewards(e.OperatorID, e.SubjectID, e.Epoch, batch)
		return err
	case *event.FeeTreasuryUpdated:
		if !c.roles.IsAdmin(e.AdminID) {
			return vault.ErrNotAdmin
		}
		return c.fees.SetTreasury(e.Treasury)
	case *event.FeeBasisPointsUpdated:
		if !c.roles.IsAdmin(e.AdminID) {
			return vault.ErrNotAdmin
		}
		return c.fees.SetBasisPoints(e.BasisPoints)
	default:
		return fmt.Errorf("unknown event type: %T", evt)
	}
}

// getPartition determines the partition key for sequence validation
func (c *DeterministicCore) getPartition(evt event.Event) string {
	if subject := evt.Subject(); subject != nil {
		return fmt.Sprintf("subject:%s", *subject)
	}
	return "global"
}

// getEventTimestamp extracts the versioned timestamp from a command.
// The core MUST NOT call time.Now(): all timestamps are versioned inputs.
func (c *DeterministicCore) getEventTimestamp(evt event.Event) time.Time {
	switch e := evt.(type) {
	case *event.DepositRequested:
		return e.Timestamp
	case *event.DelegateRequested:
		return e.Timestamp
	case *event.UndelegateInitiated:
		return e.Timestamp
	case *event.UndelegateFinalized:
		return e.Timestamp
	case *event.RedeemRequested:
		return e.Timestamp
	case *event.ClaimRequested:
		return e.Timestamp
	case *event.ApproveRequested:
		return e.Timestamp
	case *event.RewardsClaimRequested:
		return e.Timestamp
	case *event.FeeTreasuryUpdated:
		return e.Timestamp
	case *event.FeeBasisPointsUpdated:
		return e.Timestamp
	default:
		panic(fmt.Sprintf("FATAL: getEventTimestamp called with unhandled event type %T, deterministic core cannot use wall-clock time", evt))
	}
}

// computeStateDigest creates canonical bytes for the state hash
func (c *DeterministicCore) computeStateDigest(batch *ledger.Batch) []byte {
	// Collect all affected accounts
	affectedAccounts := make(map[ledger.AccountKey]bool)

	if batch != nil {
		for _, j := range batch.Journals {
			affectedAccounts[j.DebitAccount] = true
			affectedAccounts[j.CreditAccount] = true
		}
	}

	accounts := make([]ledger.AccountKey, 0, len(affectedAccounts))
	for key := range affectedAccounts {
		accounts = append(accounts, key)
	}

	// Sort by AccountPath (deterministic string ordering)
	sort.Slice(accounts, func(i, j int) bool {
		return accounts[i].AccountPath() < accounts[j].AccountPath()
	})

	digest := make([]byte, 0, len(accounts)*64)

	for _, key := range accounts {
		balance := c.balanceTracker.GetBalance(key)

		path := key.AccountPath()
		digest = append(digest, byte(len(path)))
		digest = append(digest, []byte(path)...)
		digest = appendInt64LE(digest, balance)
	}

	return digest
}

func appendInt64LE(buf []byte, v int64) []byte {
	return append(buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
		byte(v>>32),
		byte(v>>40),
		byte(v>>48),
		byte(v>>56),
	)
}

// postCheckInvariants validates invariants after batch application
func (c *DeterministicCore) postCheckInvariants(batch *ledger.Batch) error {
	// The cached aggregate must equal the booked idle + staked sum.
	if err := c.validator.ValidateAggregate(c.vaultLedger.TotalAssets()); err != nil {
		return fmt.Errorf("post-check aggregate: %w", err)
	}

	if err := c.validator.ValidateIdleNonNegative(); err != nil {
		return fmt.Errorf("post-check idle: %w", err)
	}

	// Non-negativity for every account this command touched.
	for _, j := range batch.Journals {
		for _, key := range []ledger.AccountKey{j.DebitAccount, j.CreditAccount} {
			if err := c.balanceTracker.ValidateNonNegative(key); err != nil {
				return fmt.Errorf("post-check balance: %w", err)
			}
		}
	}

	// Registry membership iff nonzero cached valuation.
	valuations := c.vaultLedger.Valuations()
	for subject, v := range valuations {
		if v != 0 && !c.subjects.Contains(subject) {
			return fmt.Errorf("post-check registry: subject %s has valuation %d but is unregistered", subject, v)
		}
	}
	for _, subject := range c.subjects.List() {
		if valuations[subject] == 0 {
			// Zero valuation with a withdrawal still in flight is the one
			// legitimate case: redeemers may have sliced away the vault's
			// entire pending claim before the escrow matures.
			if _, pending := c.escrows.ForSubject(subject); !pending {
				return fmt.Errorf("post-check registry: subject %s registered with zero valuation", subject)
			}
		}
	}

	// Every recorded deadline must have exactly one escrow and vice versa.
	for subject, deadline := range c.delegation.Deadlines() {
		if deadline == 0 {
			continue
		}
		if _, ok := c.escrows.ForSubject(subject); !ok {
			return fmt.Errorf("post-check escrow: deadline recorded for %s without an escrow", subject)
		}
	}

	// Periodic global zero-sum sweep.
	if c.sequence > 0 && c.sequence%1000 == 0 {
		if err := c.validator.ValidateGlobalBalance(); err != nil {
			return fmt.Errorf("post-check global (at seq %d): %w", c.sequence, err)
		}
	}

	return nil
}

// --- Snapshot Restore & Startup Methods ---

// EscrowRecord pairs a withdrawal escrow with its subject for snapshots.
type EscrowRecord struct {
	ID      uuid.UUID
	Subject string
}

// SnapshotState holds the serializable in-memory state for restore.
// This mirrors persistence.SnapshotData but uses typed fields.
type SnapshotState struct {
	Sequence        int64
	StateHash       [32]byte
	Balances        map[ledger.AccountKey]int64
	TotalAssets     int64
	Valuations      map[string]int64
	Subjects        []string
	Escrows         []EscrowRecord
	Deadlines       map[string]int64
	UserEscrows     map[uuid.UUID]*vault.UserEscrow
	ShareBalances   map[uuid.UUID]int64
	ShareAllowances map[uuid.UUID]map[uuid.UUID]int64
	ShareSupply     int64
	FeeBasisPoints  int64
	FeeTreasury     uuid.UUID
	SequenceState   map[string]int64
	IdempotencyKeys []string
}

// RestoreFromSnapshot restores the core's in-memory state. On warm
// restart the shell loads the latest snapshot and replays the event log
// from there.
func (c *DeterministicCore) RestoreFromSnapshot(snap *SnapshotState) error {
	c.sequence = snap.Sequence + 1 // Next sequence to assign
	c.hasher.SetPrevHash(snap.StateHash)

	for key, balance := range snap.Balances {
		c.balanceTracker.SetBalance(key, balance)
	}

	for _, subject := range snap.Subjects {
		c.subjects.Add(subject)
	}
	for _, rec := range snap.Escrows {
		c.escrows.Add(rec.ID, rec.Subject)
	}

	c.vaultLedger.Restore(snap.TotalAssets, snap.Valuations)
	c.delegation.RestoreDeadlines(snap.Deadlines)
	c.redemption.RestoreUserEscrows(snap.UserEscrows)
	c.shares.Restore(snap.ShareBalances, snap.ShareAllowances, snap.ShareSupply)

	if err := c.fees.SetBasisPoints(snap.FeeBasisPoints); err != nil {
		return fmt.Errorf("restore fee rate: %w", err)
	}
	if err := c.fees.SetTreasury(snap.FeeTreasury); err != nil {
		return fmt.Errorf("restore fee treasury: %w", err)
	}

	for partition, nextSeq := range snap.SequenceState {
		c.sequenceValidator.RestorePartition(partition, nextSeq)
	}

	return nil
}

// BeginReplay suspends the Postgres dedup tier while the event log is
// fed back into the core. Every replayed command is present in the log
// by definition; leaving the tier active would skip all of them and
// lose the state they carry. The LRU tier stays active so commands
// already covered by a restored snapshot are still recognized.
func (c *DeterministicCore) BeginReplay() {
	c.replaying = true
	c.idempotency.bypassDB = true
}

// EndReplay re-enables the Postgres dedup tier and strict sequence
// validation.
func (c *DeterministicCore) EndReplay() {
	c.replaying = false
	c.idempotency.bypassDB = false
}

// WarmLRU loads recent idempotency keys into the LRU cache, avoiding
// cold-path DB lookups for recently processed commands.
func (c *DeterministicCore) WarmLRU(keys []string) {
	c.idempotency.lru.WarmFromKeys(keys)
}

// GetSequence returns the current global sequence number.
func (c *DeterministicCore) GetSequence() int64 {
	return c.sequence
}

// GetStateHash returns the current state hash (chain tip).
func (c *DeterministicCore) GetStateHash() [32]byte {
	return c.hasher.GetPrevHash()
}

// Read accessors below are unsynchronized. Call them only from the
// processing goroutine (the shell brokers them over a request channel).

func (c *DeterministicCore) TotalAssets() int64 {
	return c.vaultLedger.TotalAssets()
}

func (c *DeterministicCore) ShareSupply() int64 {
	return c.shares.TotalSupply()
}

func (c *DeterministicCore) ShareBalance(owner uuid.UUID) int64 {
	return c.shares.BalanceOf(owner)
}

func (c *DeterministicCore) SubjectValuations() map[string]int64 {
	return c.vaultLedger.Valuations()
}

func (c *DeterministicCore) PendingEscrowCount() int {
	return c.escrows.Len()
}

func (c *DeterministicCore) FeeBasisPoints() int64 {
	return c.fees.BasisPoints()
}

// CreateSnapshotState captures the current in-memory state for persistence.
func (c *DeterministicCore) CreateSnapshotState() *SnapshotState {
	escrowRecords := make([]EscrowRecord, 0, c.escrows.Len())
	for _, id := range c.escrows.Snapshot() {
		subject, _ := c.escrows.SubjectOf(id)
		escrowRecords = append(escrowRecords, EscrowRecord{ID: id, Subject: subject})
	}

	balances, allowances, supply := c.shares.Snapshot()

	return &SnapshotState{
		Sequence:        c.sequence - 1, // Last processed sequence
		StateHash:       c.hasher.GetPrevHash(),
		Balances:        c.balanceTracker.Snapshot(),
		TotalAssets:     c.vaultLedger.TotalAssets(),
		Valuations:      c.vaultLedger.Valuations(),
		Subjects:        c.subjects.Snapshot(),
		Escrows:         escrowRecords,
		Deadlines:       c.delegation.Deadlines(),
		UserEscrows:     c.redemption.UserEscrows(),
		ShareBalances:   balances,
		ShareAllowances: allowances,
		ShareSupply:     supply,
		FeeBasisPoints:  c.fees.BasisPoints(),
		FeeTreasury:     c.fees.Treasury(),
		SequenceState:   c.sequenceValidator.GetAllPartitions(),
		IdempotencyKeys: c.idempotency.lru.GetAllKeys(),
	}
}
