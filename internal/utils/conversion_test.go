package utils

import (
	"math/big"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestBigIntToDec(t *testing.T) {
	// 11.55 USDT in 18-decimal base units.
	raw, ok := new(big.Int).SetString("11550000000000000000", 10)
	require.True(t, ok)

	dec, err := BigIntToDec(raw, 18)
	require.NoError(t, err)
	require.True(t, dec.Equal(sdkmath.LegacyNewDecWithPrec(1155, 2)), "got %s", dec)

	whole, err := BigIntToDec(big.NewInt(42), 0)
	require.NoError(t, err)
	require.True(t, whole.Equal(sdkmath.LegacyNewDec(42)))

	_, err = BigIntToDec(nil, 18)
	require.ErrorIs(t, err, ErrAmountNil)

	_, err = BigIntToDec(big.NewInt(-1), 18)
	require.ErrorIs(t, err, ErrAmountNegative)

	_, err = BigIntToDec(big.NewInt(1), 19)
	require.ErrorIs(t, err, ErrInvalidPrecision)

	_, err = BigIntToDec(big.NewInt(1), -1)
	require.ErrorIs(t, err, ErrInvalidPrecision)
}
