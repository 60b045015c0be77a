package event

import (
	"time"
)

// EventType discriminator for command payloads
type EventType int32

const (
	EventTypeUnknown EventType = iota
	EventTypeDepositRequested
	EventTypeDelegateRequested
	EventTypeUndelegateInitiated
	EventTypeUndelegateFinalized
	EventTypeRedeemRequested
	EventTypeClaimRequested
	EventTypeApproveRequested
	EventTypeRewardsClaimRequested
	EventTypeFeeTreasuryUpdated
	EventTypeFeeBasisPointsUpdated
)

// EventEnvelope wraps every accepted command in the log
type EventEnvelope struct {
	// Global monotonic sequence assigned by core
	Sequence int64

	// Stable idempotency key from upstream
	IdempotencyKey string

	// Event type discriminator
	EventType EventType

	// Subject context (nullable for vault-wide commands)
	Subject *string

	// Versioned input timestamp (NOT wall-clock)
	Timestamp time.Time

	// Upstream sequence for ordering validation
	SourceSequence int64

	// JSON-encoded command-specific data
	Payload []byte

	// SHA-256 of state AFTER applying this event
	StateHash [32]byte

	// Previous event's state hash (chain integrity)
	PrevHash [32]byte
}

// Event is the interface all command payloads must implement
type Event interface {
	// IdempotencyKey returns the stable dedup key
	IdempotencyKey() string

	// EventType returns the discriminator
	EventType() EventType

	// Subject returns the subject context (nil for vault-wide commands)
	Subject() *string

	// SourceSequence returns upstream ordering key
	SourceSequence() int64
}

func (et EventType) String() string {
	switch et {
	case EventTypeDepositRequested:
		return "DepositRequested"
	case EventTypeDelegateRequested:
		return "DelegateRequested"
	case EventTypeUndelegateInitiated:
		return "UndelegateInitiated"
	case EventTypeUndelegateFinalized:
		return "UndelegateFinalized"
	case EventTypeRedeemRequested:
		return "RedeemRequested"
	case EventTypeClaimRequested:
		return "ClaimRequested"
	case EventTypeApproveRequested:
		return "ApproveRequested"
	case EventTypeRewardsClaimRequested:
		return "RewardsClaimRequested"
	case EventTypeFeeTreasuryUpdated:
		return "FeeTreasuryUpdated"
	case EventTypeFeeBasisPointsUpdated:
		return "FeeBasisPointsUpdated"
	default:
		return "Unknown"
	}
}
