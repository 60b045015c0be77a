package event

import (
	"time"

	"github.com/google/uuid"
)

// RewardsClaimRequested pulls subject rewards for one epoch into the
// idle balance. Operator-gated.
type RewardsClaimRequested struct {
	RequestID  uuid.UUID
	OperatorID uuid.UUID
	SubjectID  string
	Epoch      int64
	Sequence   int64
	Timestamp  time.Time
}

func (r *RewardsClaimRequested) IdempotencyKey() string {
	return r.RequestID.String()
}

func (r *RewardsClaimRequested) EventType() EventType {
	return EventTypeRewardsClaimRequested
}

func (r *RewardsClaimRequested) Subject() *string {
	return &r.SubjectID
}

func (r *RewardsClaimRequested) SourceSequence() int64 {
	return r.Sequence
}
