package money

import (
	"fmt"
	"math/big"
	"sync"
)

// Amounts are int64 fixed-point in minor units.
// Scale 100 gives two decimal places: 5 whole units == 500.
const (
	DecimalPrecision = 2
	Scale            = 100
)

// BasisPointDenominator is parts-per-10000 used for fractional shares.
const BasisPointDenominator = 10_000

// Int128 pool for intermediate products that may overflow int64.
var int128Pool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getInt128() *big.Int {
	return int128Pool.Get().(*big.Int)
}

func putInt128(v *big.Int) {
	v.SetInt64(0)
	int128Pool.Put(v)
}

// ApplyBasisPoints computes amount * bps / 10000, truncated toward zero.
// The intermediate product uses int128 to prevent overflow.
func ApplyBasisPoints(amount int64, bps int64) int64 {
	product := getInt128()
	product.Mul(big.NewInt(amount), big.NewInt(bps))
	product.Quo(product, big.NewInt(BasisPointDenominator))
	result := product.Int64()
	putInt128(product)
	return result
}

// SplitEvenly computes floor(amount / parts). The remainder
// (amount mod parts) is the caller's to account for.
func SplitEvenly(amount int64, parts int) int64 {
	if parts <= 0 {
		return 0
	}
	return amount / int64(parts)
}

// Format renders a fixed-point amount as a decimal string, e.g. 10450 -> "104.50".
func Format(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/Scale, amount%Scale)
}

// FromUnits converts whole units to minor units.
func FromUnits(units int64) int64 {
	return units * Scale
}
