package vault_test

import (
	"errors"
	"testing"

	"StakeVault/internal/vault"

	"github.com/google/uuid"
)

func TestShareLedger_MintAndBurn(t *testing.T) {
	sl := vault.NewShareLedger()
	owner := uuid.New()

	sl.Mint(owner, 1000)
	if sl.BalanceOf(owner) != 1000 || sl.TotalSupply() != 1000 {
		t.Fatalf("after mint: balance %d supply %d", sl.BalanceOf(owner), sl.TotalSupply())
	}

	if err := sl.Burn(owner, 400); err != nil {
		t.Fatalf("Burn failed: %v", err)
	}
	if sl.BalanceOf(owner) != 600 || sl.TotalSupply() != 600 {
		t.Errorf("after burn: balance %d supply %d", sl.BalanceOf(owner), sl.TotalSupply())
	}
}

func TestShareLedger_BurnExceedsBalance(t *testing.T) {
	sl := vault.NewShareLedger()
	owner := uuid.New()
	sl.Mint(owner, 100)

	if err := sl.Burn(owner, 200); err == nil {
		t.Fatal("expected error burning more than the balance")
	}
	if sl.BalanceOf(owner) != 100 || sl.TotalSupply() != 100 {
		t.Error("failed burn must not change balances")
	}
}

func TestShareLedger_SpendAllowance(t *testing.T) {
	sl := vault.NewShareLedger()
	owner, spender := uuid.New(), uuid.New()
	sl.Mint(owner, 1000)

	if err := sl.SpendAllowance(owner, spender, 1); !errors.Is(err, vault.ErrInsufficientAllowance) {
		t.Errorf("expected ErrInsufficientAllowance, got %v", err)
	}

	sl.Approve(owner, spender, 300)
	if err := sl.SpendAllowance(owner, spender, 200); err != nil {
		t.Fatalf("SpendAllowance failed: %v", err)
	}
	if got := sl.Allowance(owner, spender); got != 100 {
		t.Errorf("expected remaining allowance 100, got %d", got)
	}
	if err := sl.SpendAllowance(owner, spender, 101); !errors.Is(err, vault.ErrInsufficientAllowance) {
		t.Errorf("expected ErrInsufficientAllowance, got %v", err)
	}
}

func TestShareLedger_MaxRedeemIsFullBalance(t *testing.T) {
	sl := vault.NewShareLedger()
	owner := uuid.New()
	sl.Mint(owner, 750)

	if got := sl.MaxRedeem(owner); got != 750 {
		t.Errorf("MaxRedeem = %d, want 750", got)
	}
	if got := sl.MaxRedeem(uuid.New()); got != 0 {
		t.Errorf("MaxRedeem for stranger = %d, want 0", got)
	}
}
