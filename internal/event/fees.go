package event

import (
	"time"

	"github.com/google/uuid"
)

// FeeTreasuryUpdated points the fee payout at a new treasury account.
// Admin-gated.
type FeeTreasuryUpdated struct {
	RequestID uuid.UUID
	AdminID   uuid.UUID
	Treasury  uuid.UUID
	Sequence  int64
	Timestamp time.Time
}

func (f *FeeTreasuryUpdated) IdempotencyKey() string {
	return f.RequestID.String()
}

func (f *FeeTreasuryUpdated) EventType() EventType {
	return EventTypeFeeTreasuryUpdated
}

func (f *FeeTreasuryUpdated) Subject() *string {
	return nil
}

func (f *FeeTreasuryUpdated) SourceSequence() int64 {
	return f.Sequence
}

// FeeBasisPointsUpdated changes the redemption fee rate. Admin-gated.
type FeeBasisPointsUpdated struct {
	RequestID   uuid.UUID
	AdminID     uuid.UUID
	BasisPoints int64
	Sequence    int64
	Timestamp   time.Time
}

func (f *FeeBasisPointsUpdated) IdempotencyKey() string {
	return f.RequestID.String()
}

func (f *FeeBasisPointsUpdated) EventType() EventType {
	return EventTypeFeeBasisPointsUpdated
}

func (f *FeeBasisPointsUpdated) Subject() *string {
	return nil
}

func (f *FeeBasisPointsUpdated) SourceSequence() int64 {
	return f.Sequence
}
