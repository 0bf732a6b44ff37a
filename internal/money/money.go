// Package money converts between a gateway's native monetary unit and the
// ledger's canonical unit (kobo, the NGN minor unit, as an int64).
//
// These two functions are the only place unit conversion is allowed to
// happen; adapters call them at their verify/initialize boundary and every
// other component works in canonical units exclusively.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Unit describes how a gateway represents NGN amounts on the wire.
// MinorDigits is the number of decimal digits between the unit and the
// canonical minor unit: 0 means the unit already is kobo, 2 means major
// naira with two decimal places.
type Unit struct {
	Currency    string
	MinorDigits int32
}

var (
	// NGNKobo is the canonical unit itself (Paystack wire format).
	NGNKobo = Unit{Currency: "NGN", MinorDigits: 0}
	// NGNNaira is the major unit with two decimals (Monnify wire format).
	NGNNaira = Unit{Currency: "NGN", MinorDigits: 2}
)

// ToCanonical converts a native-unit amount to canonical kobo, rounding
// half-up exactly once. Rejects amounts that do not fit an int64.
func ToCanonical(amount decimal.Decimal, unit Unit) (int64, error) {
	scaled := amount.Shift(unit.MinorDigits).Round(0)
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("money: amount %s out of range for unit %s", amount, unit.Currency)
	}
	return scaled.IntPart(), nil
}

// FromCanonical converts a canonical kobo amount to the gateway's native
// unit. The conversion is exact; no rounding occurs in this direction.
func FromCanonical(amount int64, unit Unit) decimal.Decimal {
	return decimal.NewFromInt(amount).Shift(-unit.MinorDigits)
}
