package vault

import "github.com/google/uuid"

// FullValueDenominator is the basis-point denominator: 10_000 bp = 100%.
const FullValueDenominator int64 = 10_000

// FeeCalculator deducts the operator fee from redemption payouts and
// routes it to the treasury.
type FeeCalculator struct {
	basisPoints int64
	treasury    uuid.UUID
}

func NewFeeCalculator(basisPoints int64, treasury uuid.UUID) (*FeeCalculator, error) {
	fc := &FeeCalculator{}
	if err := fc.SetBasisPoints(basisPoints); err != nil {
		return nil, err
	}
	if err := fc.SetTreasury(treasury); err != nil {
		return nil, err
	}
	return fc, nil
}

// Split divides amount into (fee, net) with floor division. Residual
// rounding always favors the payout side.
func (fc *FeeCalculator) Split(amount int64) (fee int64, net int64) {
	if amount <= 0 {
		return 0, 0
	}
	fee = amount * fc.basisPoints / FullValueDenominator
	return fee, amount - fee
}

func (fc *FeeCalculator) SetBasisPoints(bp int64) error {
	if bp < 0 || bp >= FullValueDenominator {
		return ErrInvalidFee
	}
	fc.basisPoints = bp
	return nil
}

func (fc *FeeCalculator) SetTreasury(treasury uuid.UUID) error {
	if treasury == uuid.Nil {
		return ErrInvalidTreasury
	}
	fc.treasury = treasury
	return nil
}

func (fc *FeeCalculator) BasisPoints() int64 {
	return fc.basisPoints
}

func (fc *FeeCalculator) Treasury() uuid.UUID {
	return fc.treasury
}
