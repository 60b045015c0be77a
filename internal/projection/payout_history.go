package projection

import "sync"

// PayoutHistoryEntry records one asset movement out of the vault toward a
// user or the treasury: idle redemption slices, escrow claim payouts, and
// the fees carved off both.
type PayoutHistoryEntry struct {
	Sequence    int64
	EventType   string
	Account     string // Debited account path (external:payouts / external:treasury)
	Amount      int64
	JournalType int32
	JournalID   string
	Timestamp   int64
	IsFee       bool
}

// PayoutHistoryProjection maintains a queryable in-memory payout history.
// Written by the projection worker, read by the query service.
type PayoutHistoryProjection struct {
	mu      sync.RWMutex
	entries []PayoutHistoryEntry
}

func NewPayoutHistoryProjection() *PayoutHistoryProjection {
	return &PayoutHistoryProjection{
		entries: make([]PayoutHistoryEntry, 0),
	}
}

// AddEntry records a payout.
func (p *PayoutHistoryProjection) AddEntry(entry PayoutHistoryEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, entry)
}

// Recent returns the latest entries, newest first.
func (p *PayoutHistoryProjection) Recent(limit int) []PayoutHistoryEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]PayoutHistoryEntry, 0, limit)
	for i := len(p.entries) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, p.entries[i])
	}
	return result
}

// Len returns the number of recorded entries.
func (p *PayoutHistoryProjection) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// FeesTotal sums all fee entries recorded so far.
func (p *PayoutHistoryProjection) FeesTotal() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var total int64
	for _, e := range p.entries {
		if e.IsFee {
			total += e.Amount
		}
	}
	return total
}
