package vault

import "errors"

// Error taxonomy. Every rejection aborts the whole operation: the batch
// is discarded and nothing is persisted. Local validations all run
// before the first mutation; a collaborator that fails outside its
// contract mid-operation can leave in-memory state that only a restart
// clears.
var (
	// Permission errors
	ErrNotOperator = errors.New("caller is not the operator")
	ErrNotAdmin    = errors.New("caller is not the admin")

	// Configuration errors
	ErrInvalidTreasury = errors.New("treasury must not be the zero identity")
	ErrInvalidFee      = errors.New("fee basis points must be below the full-value denominator")

	// Lifecycle-conflict errors
	ErrPendingUndelegation = errors.New("a withdrawal is already pending for this subject")

	// Lifecycle-precondition errors
	ErrInvalidUndelegation = errors.New("undelegation is not finalizable")

	// Limit errors
	ErrExceedsMaxRedeem      = errors.New("share amount exceeds owner's redeemable maximum")
	ErrInsufficientAllowance = errors.New("insufficient spending allowance")
	ErrInsufficientIdle      = errors.New("insufficient idle balance")
	ErrZeroAmount            = errors.New("amount must be positive")
)
