package math

import (
	"math/big"
	"sync"
)

// All proportional accounting uses floor division: residual dust stays in
// the vault and accrues implicitly to the remaining shareholders.
// Intermediate products run through big.Int to avoid int64 overflow on
// amount * supply terms.

var intPool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getInt() *big.Int {
	return intPool.Get().(*big.Int)
}

func putInt(v *big.Int) {
	v.SetInt64(0) // Clear before returning to pool
	intPool.Put(v)
}

// MulDiv computes floor(a * b / denom). denom must be positive.
func MulDiv(a, b, denom int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	num := getInt()
	den := getInt()
	defer putInt(num)
	defer putInt(den)

	num.SetInt64(a)
	den.SetInt64(b)
	num.Mul(num, den)
	den.SetInt64(denom)
	num.Quo(num, den)
	return num.Int64()
}

// ProRataSlice is the claim carved out of one holding when shareAmount of
// totalSupply shares is redeemed: floor(shareAmount * holding / totalSupply).
// Zero supply yields zero.
func ProRataSlice(shareAmount, holding, totalSupply int64) int64 {
	if totalSupply <= 0 || shareAmount <= 0 || holding <= 0 {
		return 0
	}
	return MulDiv(shareAmount, holding, totalSupply)
}

// SharesForDeposit converts a measured asset delta into minted shares at
// the current price per share. The first deposit (or an empty vault)
// mints 1:1.
func SharesForDeposit(assets, totalShares, totalAssets int64) int64 {
	if assets <= 0 {
		return 0
	}
	if totalShares == 0 || totalAssets == 0 {
		return assets
	}
	return MulDiv(assets, totalShares, totalAssets)
}
