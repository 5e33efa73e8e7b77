/*
This file contains common utility functions for converting on-chain integer
amounts (base units) to decimal amounts, with explicit precision handling.
*/

package utils

import (
	"errors"
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
)

// BigIntToDec converts an on-chain base-unit amount to a decimal amount.
// precision is the token's decimal count (18 for HP and BSC USDT).
func BigIntToDec(amount *big.Int, precision int) (sdkmath.LegacyDec, error) {
	if precision < 0 || precision > 18 {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: %d (must be between 0 and 18)", ErrInvalidPrecision, precision)
	}
	if amount == nil {
		return sdkmath.LegacyDec{}, ErrAmountNil
	}
	if amount.Sign() < 0 {
		return sdkmath.LegacyDec{}, ErrAmountNegative
	}
	return sdkmath.LegacyNewDecFromBigIntWithPrec(amount, int64(precision)), nil
}
