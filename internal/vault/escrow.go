package vault

import "github.com/google/uuid"

// SubjectClaim is a pending claim on a subject's active delegation,
// denominated in delegated-claim units.
type SubjectClaim struct {
	Subject string
	Units   int64
}

// EscrowClaim is a pending claim on a withdrawal-in-progress escrow.
type EscrowClaim struct {
	Escrow  uuid.UUID
	Subject string
	Units   int64
}

// UserEscrow accumulates one user's cross-subject redemption claims
// between redeem and claim. The Account sub-address is a deterministic
// function of (vault, user), so each user's pending claim is isolated
// from every other user's.
type UserEscrow struct {
	User          uuid.UUID
	Account       uuid.UUID
	SubjectClaims []SubjectClaim
	EscrowClaims  []EscrowClaim
}

func NewUserEscrow(user, account uuid.UUID) *UserEscrow {
	return &UserEscrow{
		User:    user,
		Account: account,
	}
}

// AddSubjectClaim records a slice, merging with an existing claim on the
// same subject so repeated redeems stay compact.
func (ue *UserEscrow) AddSubjectClaim(subject string, units int64) {
	if units <= 0 {
		return
	}
	for i := range ue.SubjectClaims {
		if ue.SubjectClaims[i].Subject == subject {
			ue.SubjectClaims[i].Units += units
			return
		}
	}
	ue.SubjectClaims = append(ue.SubjectClaims, SubjectClaim{Subject: subject, Units: units})
}

// AddEscrowClaim records a slice on a withdrawal escrow.
func (ue *UserEscrow) AddEscrowClaim(escrow uuid.UUID, subject string, units int64) {
	if units <= 0 {
		return
	}
	for i := range ue.EscrowClaims {
		if ue.EscrowClaims[i].Escrow == escrow {
			ue.EscrowClaims[i].Units += units
			return
		}
	}
	ue.EscrowClaims = append(ue.EscrowClaims, EscrowClaim{Escrow: escrow, Subject: subject, Units: units})
}

// Clone returns an independent copy. Snapshots are serialized off the
// processing goroutine, so they must not alias live records.
func (ue *UserEscrow) Clone() *UserEscrow {
	cp := &UserEscrow{User: ue.User, Account: ue.Account}
	if len(ue.SubjectClaims) > 0 {
		cp.SubjectClaims = append([]SubjectClaim(nil), ue.SubjectClaims...)
	}
	if len(ue.EscrowClaims) > 0 {
		cp.EscrowClaims = append([]EscrowClaim(nil), ue.EscrowClaims...)
	}
	return cp
}

// Empty reports whether anything is awaiting liquidation.
func (ue *UserEscrow) Empty() bool {
	return len(ue.SubjectClaims) == 0 && len(ue.EscrowClaims) == 0
}

// Clear removes all recorded pairs. Once cleared a second claim yields
// zero; this is what makes claiming idempotent.
func (ue *UserEscrow) Clear() {
	ue.SubjectClaims = ue.SubjectClaims[:0]
	ue.EscrowClaims = ue.EscrowClaims[:0]
}
