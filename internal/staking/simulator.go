// Package staking provides an in-process implementation of the vault's
// external collaborators: asset bank, staking source, rewards source,
// role checker and sub-account factory. The service runs against it in
// standalone mode and the vault tests drive it directly.
package staking

import (
	"fmt"
	"time"

	"StakeVault/internal/vault"

	"github.com/google/uuid"
)

type rewardKey struct {
	Subject string
	Epoch   int64
}

// rate converts claim units to asset value: value = units * num / denom.
type rate struct {
	num   int64
	denom int64
}

type escrowState struct {
	subject  string
	maturity time.Time
	owners   map[uuid.UUID]int64
}

// Simulator is a deterministic stand-in for the staking chain. Exchange
// rates only move when a test (or the admin surface) moves them, the
// unbonding period is a fixed duration, and the clock is injectable so
// deadline arithmetic stays reproducible.
type Simulator struct {
	balances  map[uuid.UUID]int64
	active    map[string]map[uuid.UUID]int64
	pending   map[uuid.UUID]*escrowState
	rates     map[string]rate
	frozen    map[string]bool
	rewards   map[rewardKey]int64
	operators map[uuid.UUID]bool
	admins    map[uuid.UUID]bool
	accounts  map[uuid.UUID]bool

	unbonding time.Duration
	escrowSeq uint64
	now       func() time.Time
}

func NewSimulator(unbonding time.Duration) *Simulator {
	return &Simulator{
		balances:  make(map[uuid.UUID]int64),
		active:    make(map[string]map[uuid.UUID]int64),
		pending:   make(map[uuid.UUID]*escrowState),
		rates:     make(map[string]rate),
		frozen:    make(map[string]bool),
		rewards:   make(map[rewardKey]int64),
		operators: make(map[uuid.UUID]bool),
		admins:    make(map[uuid.UUID]bool),
		accounts:  make(map[uuid.UUID]bool),
		unbonding: unbonding,
		now:       time.Now,
	}
}

// --- test and admin knobs ---

// SetClock replaces the time source.
func (s *Simulator) SetClock(now func() time.Time) {
	s.now = now
}

// Mint credits an account's bank balance out of thin air.
func (s *Simulator) Mint(holder uuid.UUID, amount int64) {
	s.balances[holder] += amount
}

// SetRate fixes a subject's unit→value exchange rate.
func (s *Simulator) SetRate(subject string, num, denom int64) {
	if denom <= 0 {
		denom = 1
	}
	s.rates[subject] = rate{num: num, denom: denom}
}

// SetFrozen toggles a subject's administrative freeze.
func (s *Simulator) SetFrozen(subject string, frozen bool) {
	s.frozen[subject] = frozen
}

// FundRewards loads a claimable reward amount for (subject, epoch).
func (s *Simulator) FundRewards(subject string, epoch, amount int64) {
	s.rewards[rewardKey{Subject: subject, Epoch: epoch}] += amount
}

// AddOperator grants the operator role.
func (s *Simulator) AddOperator(id uuid.UUID) {
	s.operators[id] = true
}

// AddAdmin grants the admin role.
func (s *Simulator) AddAdmin(id uuid.UUID) {
	s.admins[id] = true
}

func (s *Simulator) rateOf(subject string) rate {
	if r, ok := s.rates[subject]; ok {
		return r
	}
	return rate{num: 1, denom: 1}
}

func (s *Simulator) valueOf(subject string, units int64) int64 {
	r := s.rateOf(subject)
	return units * r.num / r.denom
}

func (s *Simulator) unitsFor(subject string, amount int64) int64 {
	r := s.rateOf(subject)
	return amount * r.denom / r.num
}

// --- RoleChecker ---

func (s *Simulator) IsOperator(id uuid.UUID) bool { return s.operators[id] }
func (s *Simulator) IsAdmin(id uuid.UUID) bool    { return s.admins[id] }

// --- AssetBank ---

func (s *Simulator) BalanceOf(holder uuid.UUID) int64 {
	return s.balances[holder]
}

func (s *Simulator) Transfer(from, to uuid.UUID, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("transfer amount %d must be positive", amount)
	}
	if s.balances[from] < amount {
		return fmt.Errorf("transfer %d exceeds balance %d of %s", amount, s.balances[from], from)
	}
	s.balances[from] -= amount
	s.balances[to] += amount
	return nil
}

// --- StakingSource ---

func (s *Simulator) Delegate(staker uuid.UUID, subject string, amount int64) error {
	if err := s.Transfer(staker, stakePool, amount); err != nil {
		return err
	}
	units := s.unitsFor(subject, amount)
	owners := s.active[subject]
	if owners == nil {
		owners = make(map[uuid.UUID]int64)
		s.active[subject] = owners
	}
	owners[staker] += units
	return nil
}

// stakePool holds delegated principal. Payouts above principal are
// freshly accrued yield and are minted rather than drawn from the pool.
var stakePool = uuid.MustParse("00000000-0000-0000-0000-00000000beef")

func (s *Simulator) payout(to uuid.UUID, amount int64) {
	take := amount
	if pool := s.balances[stakePool]; pool < take {
		take = pool
	}
	s.balances[stakePool] -= take
	s.balances[to] += amount
}

func (s *Simulator) Valuation(staker uuid.UUID, subject string) (int64, error) {
	return s.valueOf(subject, s.active[subject][staker]), nil
}

func (s *Simulator) Units(staker uuid.UUID, subject string) (int64, error) {
	return s.active[subject][staker], nil
}

func (s *Simulator) TransferUnits(subject string, from, to uuid.UUID, units int64) error {
	owners := s.active[subject]
	if owners == nil || owners[from] < units {
		return fmt.Errorf("transfer %d units of %s exceeds %d held by %s", units, subject, owners[from], from)
	}
	owners[from] -= units
	if owners[from] == 0 {
		delete(owners, from)
	}
	owners[to] += units
	return nil
}

func (s *Simulator) BeginWithdrawal(staker uuid.UUID, subject string, escrow uuid.UUID, units int64) (time.Time, error) {
	owners := s.active[subject]
	if owners == nil || owners[staker] < units {
		return time.Time{}, fmt.Errorf("withdraw %d units of %s exceeds %d held by %s", units, subject, owners[staker], staker)
	}
	owners[staker] -= units
	if owners[staker] == 0 {
		delete(owners, staker)
	}
	maturity := s.now().Add(s.unbonding)
	s.pending[escrow] = &escrowState{
		subject:  subject,
		maturity: maturity,
		owners:   map[uuid.UUID]int64{staker: units},
	}
	return maturity, nil
}

func (s *Simulator) PendingValuation(owner, escrow uuid.UUID) (int64, error) {
	es, ok := s.pending[escrow]
	if !ok {
		return 0, nil
	}
	return s.valueOf(es.subject, es.owners[owner]), nil
}

func (s *Simulator) PendingUnits(owner, escrow uuid.UUID) (int64, error) {
	es, ok := s.pending[escrow]
	if !ok {
		return 0, nil
	}
	return es.owners[owner], nil
}

func (s *Simulator) TransferPendingUnits(escrow uuid.UUID, from, to uuid.UUID, units int64) error {
	es, ok := s.pending[escrow]
	if !ok {
		return fmt.Errorf("unknown escrow %s", escrow)
	}
	if es.owners[from] < units {
		return fmt.Errorf("transfer %d pending units exceeds %d held by %s in %s", units, es.owners[from], from, escrow)
	}
	es.owners[from] -= units
	if es.owners[from] == 0 {
		delete(es.owners, from)
	}
	es.owners[to] += units
	return nil
}

func (s *Simulator) FinalizeWithdrawal(owner, escrow uuid.UUID) error {
	es, ok := s.pending[escrow]
	if !ok {
		return fmt.Errorf("unknown escrow %s", escrow)
	}
	if s.now().Before(es.maturity) {
		return fmt.Errorf("escrow %s matures at %s", escrow, es.maturity)
	}
	if s.frozen[es.subject] {
		return fmt.Errorf("subject %s is frozen", es.subject)
	}
	units := es.owners[owner]
	if units > 0 {
		s.payout(owner, s.valueOf(es.subject, units))
		delete(es.owners, owner)
	}
	if len(es.owners) == 0 {
		delete(s.pending, escrow)
	}
	return nil
}

func (s *Simulator) Liquidate(owner uuid.UUID, subject string, units int64) error {
	owners := s.active[subject]
	if owners == nil || owners[owner] < units {
		return fmt.Errorf("liquidate %d units of %s exceeds %d held by %s", units, subject, owners[owner], owner)
	}
	owners[owner] -= units
	if owners[owner] == 0 {
		delete(owners, owner)
	}
	if value := s.valueOf(subject, units); value > 0 {
		s.payout(owner, value)
	}
	return nil
}

// LiquidatePending settles at the current rate regardless of maturity;
// early exit from an unbonding position carries no penalty here.
func (s *Simulator) LiquidatePending(owner, escrow uuid.UUID, units int64) error {
	es, ok := s.pending[escrow]
	if !ok {
		return fmt.Errorf("unknown escrow %s", escrow)
	}
	if es.owners[owner] < units {
		return fmt.Errorf("liquidate %d pending units exceeds %d held by %s in %s", units, es.owners[owner], owner, escrow)
	}
	es.owners[owner] -= units
	if es.owners[owner] == 0 {
		delete(es.owners, owner)
	}
	if len(es.owners) == 0 {
		delete(s.pending, escrow)
	}
	if value := s.valueOf(es.subject, units); value > 0 {
		s.payout(owner, value)
	}
	return nil
}

func (s *Simulator) Frozen(subject string) (bool, error) {
	return s.frozen[subject], nil
}

// --- RewardsSource ---

func (s *Simulator) ClaimEpoch(claimer uuid.UUID, subject string, epoch int64) error {
	key := rewardKey{Subject: subject, Epoch: epoch}
	amount := s.rewards[key]
	if amount == 0 {
		return nil
	}
	delete(s.rewards, key)
	s.balances[claimer] += amount
	return nil
}

// --- SubAccountFactory ---

func (s *Simulator) DeriveUserEscrow(vaultID, user uuid.UUID) uuid.UUID {
	return vault.DeriveUserEscrowID(vaultID, user)
}

func (s *Simulator) EnsureUserEscrow(id uuid.UUID) error {
	s.accounts[id] = true
	return nil
}

// CreateWithdrawalEscrow derives the next escrow address from a counter
// so replaying the same command sequence yields the same addresses.
func (s *Simulator) CreateWithdrawalEscrow(vaultID uuid.UUID, subject string) (uuid.UUID, error) {
	s.escrowSeq++
	id := uuid.NewSHA1(vaultID, []byte(fmt.Sprintf("withdrawal:%s:%d", subject, s.escrowSeq)))
	s.accounts[id] = true
	return id, nil
}

// RetireWithdrawalEscrow releases the account handle. Pending units held
// by third parties survive retirement: they settle through
// LiquidatePending, not through the retired handle.
func (s *Simulator) RetireWithdrawalEscrow(id uuid.UUID) error {
	delete(s.accounts, id)
	return nil
}
