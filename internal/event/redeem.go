package event

import (
	"time"

	"github.com/google/uuid"
)

// RedeemRequested burns shares for a pro-rata claim on the pool. The
// caller may act on another owner's shares through an allowance.
type RedeemRequested struct {
	RequestID   uuid.UUID
	CallerID    uuid.UUID
	OwnerID     uuid.UUID
	ReceiverID  uuid.UUID
	ShareAmount int64
	Sequence    int64
	Timestamp   time.Time
}

func (r *RedeemRequested) IdempotencyKey() string {
	return r.RequestID.String()
}

func (r *RedeemRequested) EventType() EventType {
	return EventTypeRedeemRequested
}

func (r *RedeemRequested) Subject() *string {
	return nil
}

func (r *RedeemRequested) SourceSequence() int64 {
	return r.Sequence
}

// ClaimRequested liquidates everything accrued in the caller's escrow.
type ClaimRequested struct {
	RequestID  uuid.UUID
	CallerID   uuid.UUID
	ReceiverID uuid.UUID
	Sequence   int64
	Timestamp  time.Time
}

func (c *ClaimRequested) IdempotencyKey() string {
	return c.RequestID.String()
}

func (c *ClaimRequested) EventType() EventType {
	return EventTypeClaimRequested
}

func (c *ClaimRequested) Subject() *string {
	return nil
}

func (c *ClaimRequested) SourceSequence() int64 {
	return c.Sequence
}

// ApproveRequested grants a spender a share allowance over the owner's
// balance. Amount replaces any previous allowance.
type ApproveRequested struct {
	RequestID uuid.UUID
	OwnerID   uuid.UUID
	SpenderID uuid.UUID
	Amount    int64
	Sequence  int64
	Timestamp time.Time
}

func (a *ApproveRequested) IdempotencyKey() string {
	return a.RequestID.String()
}

func (a *ApproveRequested) EventType() EventType {
	return EventTypeApproveRequested
}

func (a *ApproveRequested) Subject() *string {
	return nil
}

func (a *ApproveRequested) SourceSequence() int64 {
	return a.Sequence
}
