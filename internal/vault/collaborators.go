package vault

import (
	"time"

	"github.com/google/uuid"
)

// The vault's external collaborators. Their internal accounting is out of
// scope here: the vault consumes these capabilities through interfaces and
// never trusts a requested amount over a measured balance delta, because
// any collaborator call may hand control to untrusted code before
// returning.

// RoleChecker answers permission questions for gated operations.
type RoleChecker interface {
	IsOperator(id uuid.UUID) bool
	IsAdmin(id uuid.UUID) bool
}

// AssetBank holds the fungible asset. BalanceOf is the authoritative
// figure for idle-balance measurement.
type AssetBank interface {
	BalanceOf(holder uuid.UUID) int64
	Transfer(from, to uuid.UUID, amount int64) error
}

// StakingSource is the external staking subsystem. Valuations returned
// here are authoritative; the vault only caches them.
type StakingSource interface {
	// Delegate commits amount of the caller's bank balance to subject.
	Delegate(staker uuid.UUID, subject string, amount int64) error

	// Valuation is the current asset value of staker's active claim.
	Valuation(staker uuid.UUID, subject string) (int64, error)

	// Units is staker's active delegated-claim unit balance.
	Units(staker uuid.UUID, subject string) (int64, error)

	// TransferUnits reassigns active claim units between stakers.
	TransferUnits(subject string, from, to uuid.UUID, units int64) error

	// BeginWithdrawal moves units of staker's active claim into the
	// escrow account's pending claim and returns the maturity deadline.
	BeginWithdrawal(staker uuid.UUID, subject string, escrow uuid.UUID, units int64) (time.Time, error)

	// PendingValuation is the asset value of owner's units inside a
	// withdrawal escrow.
	PendingValuation(owner, escrow uuid.UUID) (int64, error)

	// PendingUnits is owner's unit balance inside a withdrawal escrow.
	PendingUnits(owner, escrow uuid.UUID) (int64, error)

	// TransferPendingUnits reassigns pending units inside an escrow.
	TransferPendingUnits(escrow uuid.UUID, from, to uuid.UUID, units int64) error

	// FinalizeWithdrawal settles owner's matured pending units; the
	// proceeds are paid to owner's bank balance.
	FinalizeWithdrawal(owner, escrow uuid.UUID) error

	// Liquidate redeems units of owner's active claim at the current
	// rate; proceeds go to owner's bank balance.
	Liquidate(owner uuid.UUID, subject string, units int64) error

	// LiquidatePending redeems owner's units inside a withdrawal escrow.
	LiquidatePending(owner, escrow uuid.UUID, units int64) error

	// Frozen reports whether the subject is administratively blocked.
	Frozen(subject string) (bool, error)
}

// RewardsSource is the external rewards subsystem.
type RewardsSource interface {
	// ClaimEpoch claims subject rewards for an epoch; proceeds are paid
	// to the claimer's bank balance.
	ClaimEpoch(claimer uuid.UUID, subject string, epoch int64) error
}

// SubAccountFactory derives and lazily materializes sub-accounts.
type SubAccountFactory interface {
	// DeriveUserEscrow is a pure function of (vault, user): the address
	// is computable before creation.
	DeriveUserEscrow(vaultID, user uuid.UUID) uuid.UUID

	// EnsureUserEscrow materializes the derived account on first use.
	EnsureUserEscrow(id uuid.UUID) error

	// CreateWithdrawalEscrow spawns a fresh escrow for a subject's
	// withdrawal-in-progress claim.
	CreateWithdrawalEscrow(vaultID uuid.UUID, subject string) (uuid.UUID, error)

	// RetireWithdrawalEscrow releases a finalized escrow.
	RetireWithdrawalEscrow(id uuid.UUID) error
}

// DeriveUserEscrowID is the canonical (vault, user) → sub-account
// derivation: a SHA-1 UUID in the vault's namespace. Factories must
// agree with this function.
func DeriveUserEscrowID(vaultID, user uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(vaultID, user[:])
}
