package domain

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"

	"github.com/parlaycity/core/internal/parlaymath"
)

// AssetDecimals is the stable asset's decimal precision; all amounts are
// integers in the 10^−6 base unit.
const AssetDecimals = 6

// ──────────────────────────────────────────────────────────────────────────────
// Boundary parsing — decimal strings in, base-unit integers out.  Monetary
// values never pass through floating point.
// ──────────────────────────────────────────────────────────────────────────────

// ParseAmount converts a decimal string ("50", "50.25") into base units.
// Rejects negative values and values with more than AssetDecimals fractional
// digits.  Zero parses successfully — callers that need a positive amount
// check for the definite-zero case explicitly.
func ParseAmount(s string) (sdkmath.Int, error) {
	if s == "" {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: empty amount", ErrInvalidArgument)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: amount %q: %v", ErrInvalidArgument, s, err)
	}
	if d.IsNegative() {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: negative amount %q", ErrInvalidArgument, s)
	}
	if d.Exponent() < -AssetDecimals {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: amount %q exceeds %d decimals", ErrInvalidArgument, s, AssetDecimals)
	}
	base := d.Shift(AssetDecimals)
	n, ok := sdkmath.NewIntFromString(base.String())
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: amount %q not an integer number of base units", ErrInvalidArgument, s)
	}
	return n, nil
}

// FormatAmount renders base units back into a decimal string.
func FormatAmount(n sdkmath.Int) string {
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return n.String()
	}
	return d.Shift(-AssetDecimals).String()
}

// ParseProbability converts a decimal probability string ("0.5") into PPM,
// clamped into [1, PPM−1] after rounding so degenerate legs cannot be
// created.
func ParseProbability(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty probability", ErrInvalidArgument)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: probability %q: %v", ErrInvalidArgument, s, err)
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		return 0, fmt.Errorf("%w: probability %q out of [0, 1]", ErrInvalidArgument, s)
	}
	ppm := d.Shift(6).Round(0).IntPart()
	return parlaymath.ClampProbabilityPPM(ppm), nil
}
