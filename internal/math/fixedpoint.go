// internal/math/fixedpoint.go
package math

import (
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
)

const (
	// BpsDenominator is 100% expressed in basis points.
	BpsDenominator = 10_000

	// SecondsPerYear is the proration base for annualized rates (365 days).
	SecondsPerYear = 31_536_000
)

// RoundingMode selects how MulDiv resolves a non-zero remainder.
type RoundingMode int

const (
	RoundDown RoundingMode = iota // Floor (default for all accounting)
	RoundUp
)

// Pow10 returns 10^decimals as an Int.
func Pow10(decimals uint8) sdkmath.Int {
	return sdkmath.NewIntFromBigInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}

// MulDiv computes a * b / denominator with a single division at the end.
// The product is held at full precision so small amounts are never
// truncated before the final division.
func MulDiv(a, b, denominator sdkmath.Int, mode RoundingMode) sdkmath.Int {
	return MulDivN([]sdkmath.Int{a, b}, denominator, mode)
}

// MulDivN multiplies every factor and divides once by denominator.
func MulDivN(factors []sdkmath.Int, denominator sdkmath.Int, mode RoundingMode) sdkmath.Int {
	if denominator.IsZero() {
		panic(fmt.Sprintf("muldiv: zero denominator (factors=%v)", factors))
	}

	numerator := big.NewInt(1)
	for _, f := range factors {
		numerator.Mul(numerator, f.BigInt())
	}

	quotient := new(big.Int)
	remainder := new(big.Int)
	quotient.QuoRem(numerator, denominator.BigInt(), remainder)

	if mode == RoundUp && remainder.Sign() != 0 {
		quotient.Add(quotient, big.NewInt(1))
	}

	return sdkmath.NewIntFromBigInt(quotient)
}

// Prorate computes amount * rateBps * seconds / SecondsPerYear / BpsDenominator,
// floored once at the end.
func Prorate(amount sdkmath.Int, rateBps uint64, seconds int64) sdkmath.Int {
	if seconds <= 0 || rateBps == 0 || !amount.IsPositive() {
		return sdkmath.ZeroInt()
	}
	return MulDivN(
		[]sdkmath.Int{amount, sdkmath.NewIntFromUint64(rateBps), sdkmath.NewInt(seconds)},
		sdkmath.NewInt(SecondsPerYear*BpsDenominator),
		RoundDown,
	)
}

// ApplyBps returns amount * bps / BpsDenominator (floor).
func ApplyBps(amount sdkmath.Int, bps uint64) sdkmath.Int {
	if bps == 0 || !amount.IsPositive() {
		return sdkmath.ZeroInt()
	}
	return MulDiv(amount, sdkmath.NewIntFromUint64(bps), sdkmath.NewInt(BpsDenominator), RoundDown)
}

// SaturatingSubBps returns max(rate - exemption, 0).
func SaturatingSubBps(rate, exemption uint64) uint64 {
	if exemption >= rate {
		return 0
	}
	return rate - exemption
}

// SaturatingSub returns max(a - b, 0).
func SaturatingSub(a, b sdkmath.Int) sdkmath.Int {
	if b.GTE(a) {
		return sdkmath.ZeroInt()
	}
	return a.Sub(b)
}

// ComputeWeightedAverage returns (oldWeight*oldValue + addWeight*addValue) / (oldWeight+addWeight),
// floored. Used for the entry share price and the deposit lock checkpoint.
func ComputeWeightedAverage(oldWeight, oldValue, addWeight, addValue sdkmath.Int) sdkmath.Int {
	if oldWeight.IsZero() {
		return addValue
	}
	total := oldWeight.Add(addWeight)
	if total.IsZero() {
		return oldValue
	}

	term1 := new(big.Int).Mul(oldWeight.BigInt(), oldValue.BigInt())
	term2 := new(big.Int).Mul(addWeight.BigInt(), addValue.BigInt())
	numerator := term1.Add(term1, term2)

	return sdkmath.NewIntFromBigInt(numerator.Quo(numerator, total.BigInt()))
}
