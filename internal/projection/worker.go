package projection

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"StakeVault/internal/ledger"
)

// ProjectionOutput mirrors the data projection workers need. The
// orchestrator bridges between core.CoreOutput and this.
type ProjectionOutput struct {
	Sequence       int64
	EventType      string
	SubjectID      *string
	JournalEntries []JournalEntry
	Timestamp      int64
}

// JournalEntry is a simplified journal for projection consumption.
type JournalEntry struct {
	JournalID     string
	DebitAccount  string
	CreditAccount string
	Amount        int64
	JournalType   int32
}

// ProjectionWorker updates projection tables from processed commands.
// The projection channel is non-blocking with drop; if projections fall
// behind, they are rebuilt from the event log.
type ProjectionWorker struct {
	db        *sql.DB
	inputChan <-chan ProjectionOutput
	payouts   *PayoutHistoryProjection
	lastSeq   int64
}

func NewProjectionWorker(db *sql.DB, inputChan <-chan ProjectionOutput) *ProjectionWorker {
	return &ProjectionWorker{
		db:        db,
		inputChan: inputChan,
		payouts:   NewPayoutHistoryProjection(),
	}
}

// Payouts exposes the in-memory payout history for the query service.
func (pw *ProjectionWorker) Payouts() *PayoutHistoryProjection {
	return pw.payouts
}

// Run starts the projection worker loop.
func (pw *ProjectionWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case output, ok := <-pw.inputChan:
			if !ok {
				return nil
			}

			if err := pw.processOutput(ctx, output); err != nil {
				log.Printf("WARN: projection update failed at seq=%d: %v", output.Sequence, err)
				// Projections are eventually consistent and can be
				// rebuilt from the event log, so keep going.
			}

			pw.lastSeq = output.Sequence
		}
	}
}

func (pw *ProjectionWorker) processOutput(ctx context.Context, output ProjectionOutput) error {
	tx, err := pw.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, j := range output.JournalEntries {
		if err := pw.updateBalanceProjection(ctx, tx, j, output.Sequence); err != nil {
			return fmt.Errorf("balance projection: %w", err)
		}
		pw.recordPayout(output, j)
	}

	// Update projection watermark
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.watermark (worker_id, last_sequence, updated_at)
		VALUES ('main', $1, NOW())
		ON CONFLICT (worker_id) DO UPDATE SET last_sequence = $1, updated_at = NOW()
	`, output.Sequence); err != nil {
		return fmt.Errorf("watermark update: %w", err)
	}

	return tx.Commit()
}

// updateBalanceProjection applies one journal: the debit account's balance
// increases, the credit account's decreases, matching the in-core tracker.
func (pw *ProjectionWorker) updateBalanceProjection(ctx context.Context, tx *sql.Tx, j JournalEntry, seq int64) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, balance, last_sequence)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_path)
		DO UPDATE SET balance = projections.balances.balance + $2, last_sequence = $3
	`, j.DebitAccount, j.Amount, seq); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, balance, last_sequence)
		VALUES ($1, -$2, $3)
		ON CONFLICT (account_path)
		DO UPDATE SET balance = projections.balances.balance - $2, last_sequence = $3
	`, j.CreditAccount, j.Amount, seq); err != nil {
		return err
	}

	return nil
}

// recordPayout tracks user-facing payouts and fees in the in-memory
// history projection.
func (pw *ProjectionWorker) recordPayout(output ProjectionOutput, j JournalEntry) {
	switch ledger.JournalType(j.JournalType) {
	case ledger.JournalTypeRedeemIdlePayout, ledger.JournalTypeClaimPayout:
		pw.payouts.AddEntry(PayoutHistoryEntry{
			Sequence:    output.Sequence,
			EventType:   output.EventType,
			Account:     j.DebitAccount,
			Amount:      j.Amount,
			JournalType: j.JournalType,
			JournalID:   j.JournalID,
			Timestamp:   output.Timestamp,
		})
	case ledger.JournalTypeRedeemFee, ledger.JournalTypeClaimFee:
		pw.payouts.AddEntry(PayoutHistoryEntry{
			Sequence:    output.Sequence,
			EventType:   output.EventType,
			Account:     j.DebitAccount,
			Amount:      j.Amount,
			JournalType: j.JournalType,
			JournalID:   j.JournalID,
			Timestamp:   output.Timestamp,
			IsFee:       true,
		})
	}
}

// RebuildProjections rebuilds the balance projection from the event log.
func RebuildProjections(ctx context.Context, db *sql.DB) error {
	truncateStatements := []string{
		`TRUNCATE projections.balances`,
		`DELETE FROM projections.watermark WHERE worker_id = 'main'`,
	}

	for _, stmt := range truncateStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("truncate failed: %w", err)
		}
	}

	// Debits increase an account's balance.
	_, err := db.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, balance, last_sequence)
		SELECT
			debit_account AS account_path,
			SUM(amount) AS balance,
			MAX(sequence) AS last_sequence
		FROM event_log.journal
		GROUP BY debit_account
		ON CONFLICT (account_path) DO UPDATE
			SET balance = EXCLUDED.balance, last_sequence = EXCLUDED.last_sequence
	`)
	if err != nil {
		return fmt.Errorf("rebuild debit balances: %w", err)
	}

	// Credits decrease it.
	_, err = db.ExecContext(ctx, `
		INSERT INTO projections.balances (account_path, balance, last_sequence)
		SELECT
			credit_account AS account_path,
			-SUM(amount) AS balance,
			MAX(sequence) AS last_sequence
		FROM event_log.journal
		GROUP BY credit_account
		ON CONFLICT (account_path) DO UPDATE
			SET balance = projections.balances.balance + EXCLUDED.balance,
			    last_sequence = GREATEST(projections.balances.last_sequence, EXCLUDED.last_sequence)
	`)
	if err != nil {
		return fmt.Errorf("rebuild credit balances: %w", err)
	}

	// Restore the watermark so freshness reads reflect the rebuilt state.
	_, err = db.ExecContext(ctx, `
		INSERT INTO projections.watermark (worker_id, last_sequence, updated_at)
		SELECT 'main', COALESCE(MAX(sequence), 0), NOW()
		FROM event_log.journal
	`)
	if err != nil {
		return fmt.Errorf("rebuild watermark: %w", err)
	}

	log.Println("INFO: projection rebuild complete")
	return nil
}
