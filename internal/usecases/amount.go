package usecases

import (
	"math/big"

	"github.com/shopspring/decimal"

	domainerrors "onepay.payagent/internal/domain/errors"
)

// ToMinorUnits converts a decimal amount into integer base units of an asset.
// Digits beyond the asset's precision are truncated so the payer is never overcharged.
func ToMinorUnits(amount decimal.Decimal, decimals uint8) (*big.Int, error) {
	if !amount.IsPositive() {
		return nil, domainerrors.InvalidAmount("amount must be greater than 0")
	}
	units := amount.Shift(int32(decimals)).Floor().BigInt()
	if units.Sign() == 0 {
		return nil, domainerrors.InvalidAmount("amount is below the asset's smallest unit")
	}
	return units, nil
}

// FromMinorUnits renders base units back into a decimal amount
func FromMinorUnits(units *big.Int, decimals uint8) decimal.Decimal {
	if units == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(units, -int32(decimals))
}
