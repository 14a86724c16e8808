// Package units converts operator-facing decimal amounts into on-chain integers.
package units

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	etherDecimals = 18
	gweiDecimals  = 9
	bipsDecimals  = 4
)

// BipsOne is a multiplier of 1.0 expressed in basis points.
const BipsOne int64 = 10_000

// ParseEther converts an ether amount such as "0.05" to wei.
func ParseEther(s string) (*big.Int, error) {
	return parseScaled(s, etherDecimals)
}

// ParseGwei converts a gwei amount such as "42.5" to wei.
func ParseGwei(s string) (*big.Int, error) {
	return parseScaled(s, gweiDecimals)
}

// ParseBips converts a multiplier such as "1.25" to basis points.
func ParseBips(s string) (int64, error) {
	v, err := parseScaled(s, bipsDecimals)
	if err != nil {
		return 0, err
	}
	if !v.IsInt64() {
		return 0, fmt.Errorf("multiplier %q out of range", s)
	}
	return v.Int64(), nil
}

// FormatEther renders wei as a decimal ether string for logs.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -etherDecimals).String()
}

// FormatGwei renders wei as a decimal gwei string for logs.
func FormatGwei(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -gweiDecimals).String()
}

// MulBips returns v * bips / 10000, rounded up so a boost never lands below the exact product.
func MulBips(v *big.Int, bips int64) *big.Int {
	num := new(big.Int).Mul(v, big.NewInt(bips))
	den := big.NewInt(BipsOne)
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}

// GasWithHeadroom scales an estimated gas limit by bips. Multipliers below 1.0 are ignored.
func GasWithHeadroom(estimate uint64, bips int64) uint64 {
	if bips <= BipsOne {
		return estimate
	}
	scaled := MulBips(new(big.Int).SetUint64(estimate), bips)
	if !scaled.IsUint64() {
		return estimate
	}
	return scaled.Uint64()
}

func parseScaled(s string, decimals int32) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("amount %q is negative", s)
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", s, decimals)
	}
	return scaled.BigInt(), nil
}
