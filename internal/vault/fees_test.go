package vault_test

import (
	"errors"
	"testing"

	"StakeVault/internal/vault"

	"github.com/google/uuid"
)

func TestFeeSplit_FloorsFee(t *testing.T) {
	fc, err := vault.NewFeeCalculator(300, uuid.New())
	if err != nil {
		t.Fatalf("NewFeeCalculator failed: %v", err)
	}

	// 3% of 1001 floors to 30; the remainder goes to the payout side.
	fee, net := fc.Split(1001)
	if fee != 30 {
		t.Errorf("expected fee 30, got %d", fee)
	}
	if net != 971 {
		t.Errorf("expected net 971, got %d", net)
	}
	if fee+net != 1001 {
		t.Errorf("split must conserve the amount: %d + %d != 1001", fee, net)
	}
}

func TestFeeSplit_ZeroAndNegative(t *testing.T) {
	fc, _ := vault.NewFeeCalculator(300, uuid.New())

	for _, amount := range []int64{0, -5} {
		fee, net := fc.Split(amount)
		if fee != 0 || net != 0 {
			t.Errorf("Split(%d) = (%d, %d), want (0, 0)", amount, fee, net)
		}
	}
}

func TestFeeSplit_ZeroRate(t *testing.T) {
	fc, _ := vault.NewFeeCalculator(0, uuid.New())

	fee, net := fc.Split(1000)
	if fee != 0 || net != 1000 {
		t.Errorf("Split(1000) at 0bp = (%d, %d), want (0, 1000)", fee, net)
	}
}

func TestSetBasisPoints_RejectsOutOfRange(t *testing.T) {
	fc, _ := vault.NewFeeCalculator(300, uuid.New())

	for _, bp := range []int64{-1, vault.FullValueDenominator, vault.FullValueDenominator + 1} {
		if err := fc.SetBasisPoints(bp); !errors.Is(err, vault.ErrInvalidFee) {
			t.Errorf("SetBasisPoints(%d) = %v, want ErrInvalidFee", bp, err)
		}
	}
	if fc.BasisPoints() != 300 {
		t.Errorf("rejected update must not change the rate, got %d", fc.BasisPoints())
	}
}

func TestSetBasisPoints_AcceptsBoundary(t *testing.T) {
	fc, _ := vault.NewFeeCalculator(300, uuid.New())

	if err := fc.SetBasisPoints(vault.FullValueDenominator - 1); err != nil {
		t.Errorf("SetBasisPoints(max-1) failed: %v", err)
	}
	if err := fc.SetBasisPoints(0); err != nil {
		t.Errorf("SetBasisPoints(0) failed: %v", err)
	}
}

func TestSetTreasury_RejectsZeroIdentity(t *testing.T) {
	fc, _ := vault.NewFeeCalculator(300, uuid.New())

	if err := fc.SetTreasury(uuid.Nil); !errors.Is(err, vault.ErrInvalidTreasury) {
		t.Errorf("SetTreasury(Nil) = %v, want ErrInvalidTreasury", err)
	}
}

func TestNewFeeCalculator_RejectsBadConfig(t *testing.T) {
	if _, err := vault.NewFeeCalculator(vault.FullValueDenominator, uuid.New()); !errors.Is(err, vault.ErrInvalidFee) {
		t.Errorf("expected ErrInvalidFee, got %v", err)
	}
	if _, err := vault.NewFeeCalculator(300, uuid.Nil); !errors.Is(err, vault.ErrInvalidTreasury) {
		t.Errorf("expected ErrInvalidTreasury, got %v", err)
	}
}
