package event

import (
	"time"

	"github.com/google/uuid"
)

// DepositRequested moves assets from a user into the pool and mints
// shares to the receiver.
type DepositRequested struct {
	DepositID  uuid.UUID
	UserID     uuid.UUID
	ReceiverID uuid.UUID
	Amount     int64 // Base units
	Sequence   int64
	Timestamp  time.Time
}

func (d *DepositRequested) IdempotencyKey() string {
	return d.DepositID.String()
}

func (d *DepositRequested) EventType() EventType {
	return EventTypeDepositRequested
}

func (d *DepositRequested) Subject() *string {
	return nil // Vault-wide command
}

func (d *DepositRequested) SourceSequence() int64 {
	return d.Sequence
}
