package ledger

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// AccountScope represents the top-level account namespace
type AccountScope uint8

const (
	AccountScopeVault AccountScope = iota
	AccountScopeSubject
	AccountScopeUser
	AccountScopeExternal
)

// AccountSubType represents the account purpose
type AccountSubType uint8

const (
	// Vault sub-types
	SubTypeIdle AccountSubType = iota

	// Subject sub-types
	SubTypeStaked

	// User sub-types
	SubTypeClaim

	// External boundary sub-types
	SubTypeExternalDeposits
	SubTypeExternalPayouts
	SubTypeExternalTreasury
	SubTypeExternalYield
)

// AccountKey identifies a balance bucket. Entity is the subject id for
// subject accounts, the user/escrow UUID string for user accounts, and
// empty for vault and external accounts.
type AccountKey struct {
	Scope   AccountScope
	Entity  string
	SubType AccountSubType
}

// NewVaultIdleKey is the vault's directly-held idle asset balance.
func NewVaultIdleKey() AccountKey {
	return AccountKey{Scope: AccountScopeVault, SubType: SubTypeIdle}
}

// NewSubjectStakedKey mirrors a subject's cached valuation, covering both
// the active claim and any withdrawal-in-progress escrow.
func NewSubjectStakedKey(subject string) AccountKey {
	return AccountKey{Scope: AccountScopeSubject, Entity: subject, SubType: SubTypeStaked}
}

// NewUserClaimKey accrues the value routed into a user's escrow between
// redeem and claim.
func NewUserClaimKey(user uuid.UUID) AccountKey {
	return AccountKey{Scope: AccountScopeUser, Entity: user.String(), SubType: SubTypeClaim}
}

// NewExternalKey creates a boundary account outside the vault's custody.
func NewExternalKey(subType AccountSubType) AccountKey {
	return AccountKey{Scope: AccountScopeExternal, SubType: subType}
}

// AccountPath returns the string representation for storage/logging.
func (k AccountKey) AccountPath() string {
	switch k.Scope {
	case AccountScopeVault:
		return "vault:" + k.subTypeName()
	case AccountScopeSubject:
		return fmt.Sprintf("subject:%s:%s", k.Entity, k.subTypeName())
	case AccountScopeUser:
		return fmt.Sprintf("user:%s:%s", k.Entity, k.subTypeName())
	case AccountScopeExternal:
		return "external:" + k.subTypeName()
	}
	return "unknown"
}

func (k AccountKey) subTypeName() string {
	switch k.SubType {
	case SubTypeIdle:
		return "idle"
	case SubTypeStaked:
		return "staked"
	case SubTypeClaim:
		return "claim"
	case SubTypeExternalDeposits:
		return "deposits"
	case SubTypeExternalPayouts:
		return "payouts"
	case SubTypeExternalTreasury:
		return "treasury"
	case SubTypeExternalYield:
		return "yield"
	default:
		return "unknown"
	}
}

// ParseAccountPath is the inverse of AccountPath; used on snapshot restore.
func ParseAccountPath(path string) (AccountKey, error) {
	parts := strings.Split(path, ":")

	switch parts[0] {
	case "vault":
		if len(parts) == 2 && parts[1] == "idle" {
			return NewVaultIdleKey(), nil
		}
	case "subject":
		if len(parts) == 3 && parts[2] == "staked" {
			return NewSubjectStakedKey(parts[1]), nil
		}
	case "user":
		if len(parts) == 3 && parts[2] == "claim" {
			uid, err := uuid.Parse(parts[1])
			if err != nil {
				return AccountKey{}, fmt.Errorf("parse user id in %q: %w", path, err)
			}
			return NewUserClaimKey(uid), nil
		}
	case "external":
		if len(parts) == 2 {
			switch parts[1] {
			case "deposits":
				return NewExternalKey(SubTypeExternalDeposits), nil
			case "payouts":
				return NewExternalKey(SubTypeExternalPayouts), nil
			case "treasury":
				return NewExternalKey(SubTypeExternalTreasury), nil
			case "yield":
				return NewExternalKey(SubTypeExternalYield), nil
			}
		}
	}
	return AccountKey{}, fmt.Errorf("unrecognized account path %q", path)
}
