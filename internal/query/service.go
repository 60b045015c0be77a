package query

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"StakeVault/internal/ledger"
	"StakeVault/internal/projection"
)

// CoreStats is a point-in-time read of the core's in-memory state,
// brokered over the shell's request channel so the core goroutine stays
// the only writer.
type CoreStats struct {
	Sequence       int64
	TotalAssets    int64
	ShareSupply    int64
	Valuations     map[string]int64
	PendingEscrows int
	FeeBasisPoints int64
}

// StatsProvider answers core-state reads the projection tables cannot:
// share balances and the live valuation map live only in the core.
type StatsProvider interface {
	Stats(ctx context.Context) (CoreStats, error)
	ShareBalance(ctx context.Context, owner uuid.UUID) (int64, error)
}

// QueryService serves read queries from the projection tables and, for
// share-level state, from the core via a StatsProvider. All responses
// carry as_of_sequence for freshness.
type QueryService struct {
	db      *sql.DB
	stats   StatsProvider
	payouts *projection.PayoutHistoryProjection
}

func NewQueryService(db *sql.DB, stats StatsProvider, payouts *projection.PayoutHistoryProjection) *QueryService {
	return &QueryService{db: db, stats: stats, payouts: payouts}
}

// GetVaultTotals returns the vault's aggregate asset and share state.
func (qs *QueryService) GetVaultTotals(ctx context.Context) (*VaultTotalsResponse, error) {
	st, err := qs.stats.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("core stats: %w", err)
	}

	var staked int64
	for _, v := range st.Valuations {
		staked += v
	}

	return &VaultTotalsResponse{
		TotalAssets:    st.TotalAssets,
		IdleAssets:     st.TotalAssets - staked,
		StakedAssets:   staked,
		ShareSupply:    st.ShareSupply,
		SubjectCount:   len(st.Valuations),
		PendingEscrows: st.PendingEscrows,
		FeeBasisPoints: st.FeeBasisPoints,
		AsOfSequence:   st.Sequence,
	}, nil
}

// GetSubjects lists registered delegation subjects with their cached
// valuations, sorted by the registry's dense-array order.
func (qs *QueryService) GetSubjects(ctx context.Context) ([]SubjectResponse, error) {
	st, err := qs.stats.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("core stats: %w", err)
	}

	subjects := make([]SubjectResponse, 0, len(st.Valuations))
	for subject, valuation := range st.Valuations {
		subjects = append(subjects, SubjectResponse{
			Subject:      subject,
			Valuation:    valuation,
			AsOfSequence: st.Sequence,
		})
	}
	return subjects, nil
}

// GetUserPosition returns a user's shares and pending redemption claim.
// Shares come from the core; the pending claim is the projected balance
// of the user's claim account.
func (qs *QueryService) GetUserPosition(ctx context.Context, userID uuid.UUID) (*UserPositionResponse, error) {
	shares, err := qs.stats.ShareBalance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("share balance: %w", err)
	}

	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	claimPath := ledger.NewUserClaimKey(userID).AccountPath()
	pendingClaim, err := qs.getProjectedBalance(ctx, claimPath)
	if err != nil {
		return nil, err
	}

	return &UserPositionResponse{
		UserID:       userID,
		Shares:       shares,
		PendingClaim: pendingClaim,
		AsOfSequence: asOfSeq,
	}, nil
}

// GetJournalHistory returns journal entries touching a user's accounts,
// newest first, with cursor pagination on sequence.
func (qs *QueryService) GetJournalHistory(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
	afterSequence *int64,
) ([]JournalHistoryEntry, error) {
	accountPrefix := fmt.Sprintf("user:%s:%%", userID)

	query := `
		SELECT journal_id, batch_id, event_ref, sequence,
		       debit_account, credit_account, amount, journal_type, timestamp
		FROM event_log.journal
		WHERE (debit_account LIKE $1 OR credit_account LIKE $1)
	`
	args := []interface{}{accountPrefix}
	argIdx := 2

	if afterSequence != nil {
		query += fmt.Sprintf(" AND sequence < $%d", argIdx)
		args = append(args, *afterSequence)
		argIdx++
	}

	query += " ORDER BY sequence DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := qs.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []JournalHistoryEntry
	for rows.Next() {
		var e JournalHistoryEntry
		if err := rows.Scan(
			&e.JournalID, &e.BatchID, &e.EventRef, &e.Sequence,
			&e.DebitAccount, &e.CreditAccount, &e.Amount,
			&e.JournalType, &e.Timestamp,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// GetPayoutHistory returns redemption and claim payouts (and the fees
// carved from them), newest first. The in-memory feed serves the common
// case; after a restart it is empty and the journal answers instead.
func (qs *QueryService) GetPayoutHistory(ctx context.Context, limit int) ([]PayoutHistoryEntry, error) {
	if qs.payouts != nil && qs.payouts.Len() > 0 {
		recent := qs.payouts.Recent(limit)
		entries := make([]PayoutHistoryEntry, 0, len(recent))
		for _, e := range recent {
			entries = append(entries, PayoutHistoryEntry{
				Sequence:    e.Sequence,
				Account:     e.Account,
				Amount:      e.Amount,
				JournalType: e.JournalType,
				Timestamp:   e.Timestamp,
			})
		}
		return entries, nil
	}

	rows, err := qs.db.QueryContext(ctx, `
		SELECT sequence, debit_account, amount, journal_type, timestamp
		FROM event_log.journal
		WHERE journal_type IN ($1, $2, $3, $4)
		ORDER BY sequence DESC
		LIMIT $5
	`,
		int32(ledger.JournalTypeRedeemIdlePayout),
		int32(ledger.JournalTypeRedeemFee),
		int32(ledger.JournalTypeClaimPayout),
		int32(ledger.JournalTypeClaimFee),
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []PayoutHistoryEntry
	for rows.Next() {
		var e PayoutHistoryEntry
		if err := rows.Scan(&e.Sequence, &e.Account, &e.Amount, &e.JournalType, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// --- Admin APIs ---

// VerifyIntegrity checks hash chain continuity and the global zero-sum
// invariant over the projected balances.
func (qs *QueryService) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	asOfSeq, err := qs.getWatermark(ctx)
	if err != nil {
		return nil, err
	}
	report := &IntegrityReport{AsOfSequence: asOfSeq}

	rows, err := qs.db.QueryContext(ctx, `
		SELECT e1.sequence
		FROM event_log.events e1
		JOIN event_log.events e2 ON e2.sequence = e1.sequence - 1
		WHERE e1.sequence > 0 AND e1.prev_hash != e2.state_hash
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, err
		}
		report.HashChainBreaks = append(report.HashChainBreaks, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Every journal moves value between two accounts, so the projected
	// balances must sum to zero across all scopes.
	var imbalance sql.NullInt64
	if err := qs.db.QueryRowContext(ctx, `
		SELECT SUM(balance) FROM projections.balances
	`).Scan(&imbalance); err != nil {
		return nil, err
	}
	if imbalance.Valid {
		report.GlobalImbalance = imbalance.Int64
	}

	report.IsHealthy = len(report.HashChainBreaks) == 0 && report.GlobalImbalance == 0
	return report, nil
}

// --- helpers ---

func (qs *QueryService) getWatermark(ctx context.Context) (int64, error) {
	var seq int64
	err := qs.db.QueryRowContext(ctx, `
		SELECT COALESCE(last_sequence, 0) FROM projections.watermark WHERE worker_id = 'main'
	`).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return seq, err
}

func (qs *QueryService) getProjectedBalance(ctx context.Context, accountPath string) (int64, error) {
	var balance int64
	err := qs.db.QueryRowContext(ctx, `
		SELECT COALESCE(balance, 0) FROM projections.balances
		WHERE account_path = $1
	`, accountPath).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return balance, err
}
