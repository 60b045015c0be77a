package event

import (
	"time"

	"github.com/google/uuid"
)

// DelegateRequested commits idle assets to a subject. Operator-gated.
type DelegateRequested struct {
	RequestID  uuid.UUID
	OperatorID uuid.UUID
	SubjectID  string
	Amount     int64
	Sequence   int64
	Timestamp  time.Time
}

func (d *DelegateRequested) IdempotencyKey() string {
	return d.RequestID.String()
}

func (d *DelegateRequested) EventType() EventType {
	return EventTypeDelegateRequested
}

func (d *DelegateRequested) Subject() *string {
	return &d.SubjectID
}

func (d *DelegateRequested) SourceSequence() int64 {
	return d.Sequence
}

// UndelegateInitiated starts a deadline-gated withdrawal from a subject.
// Operator-gated; rejected while one is already pending.
type UndelegateInitiated struct {
	RequestID  uuid.UUID
	OperatorID uuid.UUID
	SubjectID  string
	Units      int64
	Sequence   int64
	Timestamp  time.Time
}

func (u *UndelegateInitiated) IdempotencyKey() string {
	return u.RequestID.String()
}

func (u *UndelegateInitiated) EventType() EventType {
	return EventTypeUndelegateInitiated
}

func (u *UndelegateInitiated) Subject() *string {
	return &u.SubjectID
}

func (u *UndelegateInitiated) SourceSequence() int64 {
	return u.Sequence
}

// UndelegateFinalized settles a matured withdrawal. Callable by anyone;
// the deadline is compared against the command's versioned timestamp.
type UndelegateFinalized struct {
	RequestID uuid.UUID
	CallerID  uuid.UUID
	SubjectID string
	Sequence  int64
	Timestamp time.Time
}

func (u *UndelegateFinalized) IdempotencyKey() string {
	return u.RequestID.String()
}

func (u *UndelegateFinalized) EventType() EventType {
	return EventTypeUndelegateFinalized
}

func (u *UndelegateFinalized) Subject() *string {
	return &u.SubjectID
}

func (u *UndelegateFinalized) SourceSequence() int64 {
	return u.Sequence
}
