package vault

import (
	"fmt"

	"github.com/google/uuid"
)

// ShareLedger tracks ownership units minted against the pooled assets:
// balances, total supply, and owner→spender allowances.
type ShareLedger struct {
	balances    map[uuid.UUID]int64
	allowances  map[allowanceKey]int64
	totalSupply int64
}

type allowanceKey struct {
	Owner   uuid.UUID
	Spender uuid.UUID
}

func NewShareLedger() *ShareLedger {
	return &ShareLedger{
		balances:   make(map[uuid.UUID]int64),
		allowances: make(map[allowanceKey]int64),
	}
}

func (sl *ShareLedger) TotalSupply() int64 {
	return sl.totalSupply
}

func (sl *ShareLedger) BalanceOf(owner uuid.UUID) int64 {
	return sl.balances[owner]
}

// MaxRedeem is the owner's redeemable maximum: the full share balance.
func (sl *ShareLedger) MaxRedeem(owner uuid.UUID) int64 {
	return sl.balances[owner]
}

func (sl *ShareLedger) Mint(to uuid.UUID, amount int64) {
	if amount <= 0 {
		return
	}
	sl.balances[to] += amount
	sl.totalSupply += amount
}

func (sl *ShareLedger) Burn(from uuid.UUID, amount int64) error {
	if amount <= 0 {
		return nil
	}
	if sl.balances[from] < amount {
		return fmt.Errorf("burn %d exceeds balance %d of %s", amount, sl.balances[from], from)
	}
	sl.balances[from] -= amount
	if sl.balances[from] == 0 {
		delete(sl.balances, from)
	}
	sl.totalSupply -= amount
	return nil
}

func (sl *ShareLedger) Approve(owner, spender uuid.UUID, amount int64) {
	key := allowanceKey{Owner: owner, Spender: spender}
	if amount <= 0 {
		delete(sl.allowances, key)
		return
	}
	sl.allowances[key] = amount
}

func (sl *ShareLedger) Allowance(owner, spender uuid.UUID) int64 {
	return sl.allowances[allowanceKey{Owner: owner, Spender: spender}]
}

// SpendAllowance consumes spender's allowance over owner's shares.
func (sl *ShareLedger) SpendAllowance(owner, spender uuid.UUID, amount int64) error {
	key := allowanceKey{Owner: owner, Spender: spender}
	current := sl.allowances[key]
	if current < amount {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientAllowance, current, amount)
	}
	remaining := current - amount
	if remaining == 0 {
		delete(sl.allowances, key)
	} else {
		sl.allowances[key] = remaining
	}
	return nil
}

// Snapshot returns copies of the ledger maps for persistence.
func (sl *ShareLedger) Snapshot() (balances map[uuid.UUID]int64, allowances map[uuid.UUID]map[uuid.UUID]int64, supply int64) {
	balances = make(map[uuid.UUID]int64, len(sl.balances))
	for k, v := range sl.balances {
		balances[k] = v
	}
	allowances = make(map[uuid.UUID]map[uuid.UUID]int64)
	for k, v := range sl.allowances {
		inner := allowances[k.Owner]
		if inner == nil {
			inner = make(map[uuid.UUID]int64)
			allowances[k.Owner] = inner
		}
		inner[k.Spender] = v
	}
	return balances, allowances, sl.totalSupply
}

// Restore overwrites ledger state from a snapshot.
func (sl *ShareLedger) Restore(balances map[uuid.UUID]int64, allowances map[uuid.UUID]map[uuid.UUID]int64, supply int64) {
	sl.balances = make(map[uuid.UUID]int64, len(balances))
	for k, v := range balances {
		sl.balances[k] = v
	}
	sl.allowances = make(map[allowanceKey]int64)
	for owner, inner := range allowances {
		for spender, v := range inner {
			sl.allowances[allowanceKey{Owner: owner, Spender: spender}] = v
		}
	}
	sl.totalSupply = supply
}
