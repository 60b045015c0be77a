package vault

import (
	"fmt"

	"StakeVault/internal/ledger"
	fpmath "StakeVault/internal/math"

	"github.com/google/uuid"
)

// RedemptionCoordinator implements the deposit / redeem / claim protocol.
// A redeem splits one share burn into proportional claims across every
// active subject, every withdrawal-in-progress escrow, and the idle
// balance; the idle slice is paid immediately (fee-adjusted) and the rest
// accrues in the owner's deterministic UserEscrow until claimed.
type RedemptionCoordinator struct {
	vaultID uuid.UUID
	bank    AssetBank
	staking StakingSource
	factory SubAccountFactory

	subjects *SubjectRegistry
	escrows  *EscrowRegistry
	ledger   *VaultLedger
	shares   *ShareLedger
	fees     *FeeCalculator
	books    *ledger.BalanceTracker

	userEscrows map[uuid.UUID]*UserEscrow
}

func NewRedemptionCoordinator(
	vaultID uuid.UUID,
	bank AssetBank,
	staking StakingSource,
	factory SubAccountFactory,
	subjects *SubjectRegistry,
	escrows *EscrowRegistry,
	vl *VaultLedger,
	shares *ShareLedger,
	fees *FeeCalculator,
	books *ledger.BalanceTracker,
) *RedemptionCoordinator {
	return &RedemptionCoordinator{
		vaultID:     vaultID,
		bank:        bank,
		staking:     staking,
		factory:     factory,
		subjects:    subjects,
		escrows:     escrows,
		ledger:      vl,
		shares:      shares,
		fees:        fees,
		books:       books,
		userEscrows: make(map[uuid.UUID]*UserEscrow),
	}
}

// Shares exposes the share ledger for queries and admin handlers.
func (rc *RedemptionCoordinator) Shares() *ShareLedger {
	return rc.shares
}

// Fees exposes the fee calculator for admin handlers.
func (rc *RedemptionCoordinator) Fees() *FeeCalculator {
	return rc.fees
}

// resolveUserEscrow returns the owner's escrow record, deriving the
// deterministic sub-account and materializing it lazily on first use.
// Empty records are never pre-created for users who never redeemed.
func (rc *RedemptionCoordinator) resolveUserEscrow(owner uuid.UUID) (*UserEscrow, error) {
	if ue, ok := rc.userEscrows[owner]; ok {
		return ue, nil
	}
	account := rc.factory.DeriveUserEscrow(rc.vaultID, owner)
	if err := rc.factory.EnsureUserEscrow(account); err != nil {
		return nil, fmt.Errorf("materialize user escrow %s: %w", account, err)
	}
	ue := NewUserEscrow(owner, account)
	rc.userEscrows[owner] = ue
	return ue, nil
}

// Deposit mints shares against a measured asset delta. Revaluation runs
// first so the minted-share price reflects current valuations, and the
// received amount is measured from the bank delta to survive
// fee-on-transfer assets.
func (rc *RedemptionCoordinator) Deposit(from, receiver uuid.UUID, assets int64, batch *ledger.Batch) (int64, error) {
	if assets <= 0 {
		return 0, ErrZeroAmount
	}
	if rc.bank.BalanceOf(from) < assets {
		return 0, fmt.Errorf("deposit %d exceeds balance %d of %s", assets, rc.bank.BalanceOf(from), from)
	}
	if err := rc.ledger.RevalueAll(batch); err != nil {
		return 0, err
	}

	before := rc.bank.BalanceOf(rc.vaultID)
	if err := rc.bank.Transfer(from, rc.vaultID, assets); err != nil {
		return 0, fmt.Errorf("deposit transfer: %w", err)
	}
	received := rc.bank.BalanceOf(rc.vaultID) - before
	if received <= 0 {
		return 0, fmt.Errorf("%w: measured deposit delta %d", ErrZeroAmount, received)
	}

	minted := fpmath.SharesForDeposit(received, rc.shares.TotalSupply(), rc.ledger.TotalAssets())
	rc.shares.Mint(receiver, minted)
	rc.ledger.AdjustIdle(received)

	batch.Add(ledger.NewVaultIdleKey(), ledger.NewExternalKey(ledger.SubTypeExternalDeposits),
		received, ledger.JournalTypeDeposit)

	return minted, nil
}

// Redeem burns shareAmount of owner's shares for a pro-rata claim on
// everything the vault holds. Returns the immediately-realized idle
// slice; the subject and escrow slices accrue in the owner's UserEscrow.
func (rc *RedemptionCoordinator) Redeem(caller, owner, receiver uuid.UUID, shareAmount int64, batch *ledger.Batch) (int64, error) {
	if shareAmount <= 0 {
		return 0, ErrZeroAmount
	}

	// Local validations precede the first mutation, so a redeem rejected
	// here leaves no trace. The allowance is spent before the
	// collaborator passes below; a collaborator failing outside its
	// contract mid-pass is the one path that can leave partial state.
	if shareAmount > rc.shares.MaxRedeem(owner) {
		return 0, fmt.Errorf("%w: have %d, redeeming %d", ErrExceedsMaxRedeem, rc.shares.MaxRedeem(owner), shareAmount)
	}
	if caller != owner {
		if err := rc.shares.SpendAllowance(owner, caller, shareAmount); err != nil {
			return 0, err
		}
	}

	if err := rc.ledger.RevalueAll(batch); err != nil {
		return 0, err
	}

	ue, err := rc.resolveUserEscrow(owner)
	if err != nil {
		return 0, err
	}

	// The supply is captured once so every slice in this redeem is
	// computed against the same denominator.
	totalSupply := rc.shares.TotalSupply()
	claimKey := ledger.NewUserClaimKey(owner)

	// Active-subject pass. Iterate a snapshot: revaluation inside the
	// loop may drop a fully-drained subject from the registry.
	for _, subject := range rc.subjects.Snapshot() {
		units, err := rc.staking.Units(rc.vaultID, subject)
		if err != nil {
			return 0, fmt.Errorf("query units of %s: %w", subject, err)
		}
		slice := fpmath.ProRataSlice(shareAmount, units, totalSupply)
		if slice == 0 {
			continue
		}
		if err := rc.staking.TransferUnits(subject, rc.vaultID, ue.Account, slice); err != nil {
			return 0, fmt.Errorf("route %d units of %s to user escrow: %w", slice, subject, err)
		}
		// The vault's claim just shrank; book the moved value into the
		// owner's claim rather than letting it read as a yield loss.
		if err := rc.ledger.RevalueSubjectInto(subject, batch, claimKey, ledger.JournalTypeRedeemSubjectSlice); err != nil {
			return 0, err
		}
		ue.AddSubjectClaim(subject, slice)
	}

	// Escrow pass: withdrawal-in-progress claims are split the same way.
	for _, escrowID := range rc.escrows.Snapshot() {
		subject, ok := rc.escrows.SubjectOf(escrowID)
		if !ok {
			continue
		}
		pending, err := rc.staking.PendingUnits(rc.vaultID, escrowID)
		if err != nil {
			return 0, fmt.Errorf("query pending units of escrow %s: %w", escrowID, err)
		}
		slice := fpmath.ProRataSlice(shareAmount, pending, totalSupply)
		if slice == 0 {
			continue
		}
		if err := rc.staking.TransferPendingUnits(escrowID, rc.vaultID, ue.Account, slice); err != nil {
			return 0, fmt.Errorf("route %d pending units of escrow %s: %w", slice, escrowID, err)
		}
		if err := rc.ledger.RevalueSubjectInto(subject, batch, claimKey, ledger.JournalTypeRedeemEscrowSlice); err != nil {
			return 0, err
		}
		ue.AddEscrowClaim(escrowID, subject, slice)
	}

	// Idle pass: paid out immediately, fee-adjusted, never deferred.
	idle := rc.bank.BalanceOf(rc.vaultID)
	idleSlice := fpmath.ProRataSlice(shareAmount, idle, totalSupply)
	if idleSlice > 0 {
		fee, net := rc.fees.Split(idleSlice)
		if fee > 0 {
			if err := rc.bank.Transfer(rc.vaultID, rc.fees.Treasury(), fee); err != nil {
				return 0, fmt.Errorf("pay redemption fee: %w", err)
			}
		}
		if net > 0 {
			if err := rc.bank.Transfer(rc.vaultID, receiver, net); err != nil {
				return 0, fmt.Errorf("pay idle slice: %w", err)
			}
		}
		rc.ledger.AdjustIdle(-idleSlice)
		batch.Add(ledger.NewExternalKey(ledger.SubTypeExternalPayouts), ledger.NewVaultIdleKey(),
			net, ledger.JournalTypeRedeemIdlePayout)
		batch.Add(ledger.NewExternalKey(ledger.SubTypeExternalTreasury), ledger.NewVaultIdleKey(),
			fee, ledger.JournalTypeRedeemFee)
	}

	if err := rc.shares.Burn(owner, shareAmount); err != nil {
		return 0, fmt.Errorf("burn shares: %w", err)
	}

	return idleSlice, nil
}

// ClaimRedeem liquidates everything accrued in the caller's UserEscrow,
// applies the fee split, and pays the receiver. A second call with no
// intervening redeem pays zero: the recorded pairs are cleared on the
// way out.
func (rc *RedemptionCoordinator) ClaimRedeem(caller, receiver uuid.UUID, batch *ledger.Batch) (int64, error) {
	ue, ok := rc.userEscrows[caller]
	if !ok || ue.Empty() {
		return 0, nil
	}

	before := rc.bank.BalanceOf(ue.Account)
	for _, c := range ue.SubjectClaims {
		if err := rc.staking.Liquidate(ue.Account, c.Subject, c.Units); err != nil {
			return 0, fmt.Errorf("liquidate %d units of %s: %w", c.Units, c.Subject, err)
		}
	}
	for _, c := range ue.EscrowClaims {
		if err := rc.staking.LiquidatePending(ue.Account, c.Escrow, c.Units); err != nil {
			return 0, fmt.Errorf("liquidate %d pending units of escrow %s: %w", c.Units, c.Escrow, err)
		}
	}
	proceeds := rc.bank.BalanceOf(ue.Account) - before

	claimKey := ledger.NewUserClaimKey(caller)

	// Yield accrued between redeem and claim surfaces as the difference
	// between liquidation proceeds and the booked claim value.
	booked := rc.books.UserClaim(caller)
	batch.AddSigned(claimKey, ledger.NewExternalKey(ledger.SubTypeExternalYield),
		proceeds-booked, ledger.JournalTypeYieldRevaluation)

	fee, net := rc.fees.Split(proceeds)
	if fee > 0 {
		if err := rc.bank.Transfer(ue.Account, rc.fees.Treasury(), fee); err != nil {
			return 0, fmt.Errorf("pay claim fee: %w", err)
		}
	}
	if net > 0 {
		if err := rc.bank.Transfer(ue.Account, receiver, net); err != nil {
			return 0, fmt.Errorf("pay claim: %w", err)
		}
	}

	batch.Add(ledger.NewExternalKey(ledger.SubTypeExternalPayouts), claimKey, net, ledger.JournalTypeClaimPayout)
	batch.Add(ledger.NewExternalKey(ledger.SubTypeExternalTreasury), claimKey, fee, ledger.JournalTypeClaimFee)

	ue.Clear()
	return net, nil
}

// UserEscrowOf returns the recorded escrow for a user, nil if none.
func (rc *RedemptionCoordinator) UserEscrowOf(user uuid.UUID) *UserEscrow {
	return rc.userEscrows[user]
}

// UserEscrows returns deep copies of the records for snapshots.
func (rc *RedemptionCoordinator) UserEscrows() map[uuid.UUID]*UserEscrow {
	out := make(map[uuid.UUID]*UserEscrow, len(rc.userEscrows))
	for k, v := range rc.userEscrows {
		out[k] = v.Clone()
	}
	return out
}

// RestoreUserEscrows overwrites the records from a snapshot. The records
// are copied so the restored core never writes through to the snapshot.
func (rc *RedemptionCoordinator) RestoreUserEscrows(escrows map[uuid.UUID]*UserEscrow) {
	rc.userEscrows = make(map[uuid.UUID]*UserEscrow, len(escrows))
	for k, v := range escrows {
		rc.userEscrows[k] = v.Clone()
	}
}
