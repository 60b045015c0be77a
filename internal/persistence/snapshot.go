package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SnapshotManager handles creating and loading state snapshots for
// recovery. Snapshots carry balances, the valuation cache, registries,
// per-user escrows, share state, fee config, sequence counters, recent
// idempotency keys, and the chain tip.
type SnapshotManager struct {
	db *sql.DB
}

// SnapshotData is the JSON-serializable in-memory state at a point in
// time. It mirrors core.SnapshotState in flat string form; the
// orchestrator bridges the two.
type SnapshotData struct {
	Sequence        int64                       `json:"sequence"`
	StateHash       []byte                      `json:"state_hash"`
	Balances        map[string]int64            `json:"balances"` // AccountPath -> balance
	TotalAssets     int64                       `json:"total_assets"`
	Valuations      map[string]int64            `json:"valuations"` // subject -> cached value
	Subjects        []string                    `json:"subjects"`
	Escrows         []EscrowSnap                `json:"escrows"`
	Deadlines       map[string]int64            `json:"deadlines"` // subject -> deadline micros
	UserEscrows     []UserEscrowSnap            `json:"user_escrows"`
	ShareBalances   map[string]int64            `json:"share_balances"` // owner UUID -> shares
	ShareAllowances map[string]map[string]int64 `json:"share_allowances"`
	ShareSupply     int64                       `json:"share_supply"`
	FeeBasisPoints  int64                       `json:"fee_basis_points"`
	FeeTreasury     string                      `json:"fee_treasury"`
	SequenceState   map[string]int64            `json:"sequence_state"`   // partition -> next expected seq
	IdempotencyKeys []string                    `json:"idempotency_keys"` // Recent keys for LRU warming
	CreatedAt       time.Time                   `json:"created_at"`
}

// EscrowSnap is a serializable withdrawal escrow registration.
type EscrowSnap struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
}

// UserEscrowSnap is a serializable per-user redemption escrow.
type UserEscrowSnap struct {
	User          string             `json:"user"`
	Account       string             `json:"account"`
	SubjectClaims []SubjectClaimSnap `json:"subject_claims,omitempty"`
	EscrowClaims  []EscrowClaimSnap  `json:"escrow_claims,omitempty"`
}

// SubjectClaimSnap is a pending claim on a subject's active delegation.
type SubjectClaimSnap struct {
	Subject string `json:"subject"`
	Units   int64  `json:"units"`
}

// EscrowClaimSnap is a pending claim on a withdrawal escrow.
type EscrowClaimSnap struct {
	Escrow  string `json:"escrow"`
	Subject string `json:"subject"`
	Units   int64  `json:"units"`
}

func NewSnapshotManager(db *sql.DB) *SnapshotManager {
	return &SnapshotManager{db: db}
}

// SaveSnapshot persists a snapshot to Postgres. Snapshots are taken
// periodically and verified by replaying the event log from the snapshot
// sequence forward.
func (sm *SnapshotManager) SaveSnapshot(ctx context.Context, snap *SnapshotData) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	snapshotID := uuid.New()
	sizeBytes := len(data)
	formatVersion := int32(1) // v1: JSON-encoded SnapshotData

	_, err = sm.db.ExecContext(ctx, `
		INSERT INTO event_log.snapshots
			(snapshot_id, sequence, data, state_hash, format_version, size_bytes, verified, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
		ON CONFLICT (sequence) DO UPDATE SET data = $3, state_hash = $4, size_bytes = $6
	`, snapshotID, snap.Sequence, data, snap.StateHash, formatVersion, sizeBytes, snap.CreatedAt)

	return err
}

// LoadLatestSnapshot loads the most recent verified snapshot. On warm
// restart, load the snapshot then replay events from snapshot.sequence+1.
func (sm *SnapshotManager) LoadLatestSnapshot(ctx context.Context) (*SnapshotData, error) {
	row := sm.db.QueryRowContext(ctx, `
		SELECT data FROM event_log.snapshots
		WHERE verified = TRUE
		ORDER BY sequence DESC
		LIMIT 1
	`)

	var data []byte
	if err := row.Scan(&data); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // No snapshot, cold start
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	var snap SnapshotData
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

// MarkVerified marks a snapshot as verified after integrity check.
func (sm *SnapshotManager) MarkVerified(ctx context.Context, sequence int64) error {
	_, err := sm.db.ExecContext(ctx, `
		UPDATE event_log.snapshots SET verified = TRUE WHERE sequence = $1
	`, sequence)
	return err
}

// LoadEventsFrom loads envelopes from a given sequence for replay. Used
// for warm restart (replay from snapshot) and cold restart (replay all).
func (sm *SnapshotManager) LoadEventsFrom(ctx context.Context, fromSequence int64, limit int) ([]EventRow, error) {
	rows, err := sm.db.QueryContext(ctx, `
		SELECT sequence, event_type, idempotency_key, subject_id, payload,
		       state_hash, prev_hash, timestamp, source_sequence
		FROM event_log.events
		WHERE sequence >= $1
		ORDER BY sequence ASC
		LIMIT $2
	`, fromSequence, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRow
	for rows.Next() {
		var e EventRow
		if err := rows.Scan(
			&e.Sequence, &e.EventType, &e.IdempotencyKey, &e.SubjectID,
			&e.Payload, &e.StateHash, &e.PrevHash, &e.Timestamp, &e.SourceSequence,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	return events, rows.Err()
}

// GetLatestSequence returns the highest sequence in the event log.
func (sm *SnapshotManager) GetLatestSequence(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := sm.db.QueryRowContext(ctx, `
		SELECT MAX(sequence) FROM event_log.events
	`).Scan(&seq)
	if err != nil {
		return 0, err
	}
	if !seq.Valid {
		return 0, nil // Empty event log
	}
	return seq.Int64, nil
}
