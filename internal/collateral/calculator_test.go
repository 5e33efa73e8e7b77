package collateral

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/happy-paisa/hpe/internal/types"
)

func TestCollateralNeededAtObservedPeg(t *testing.T) {
	calc, err := NewCalculator(PegRateUSDTPerHP)
	require.NoError(t, err)

	// 1 HP at peg 11 and ratio 105 requires 11.55 USDT.
	needed, err := calc.CollateralNeeded(sdkmath.LegacyNewDec(1), 105)
	require.NoError(t, err)
	require.True(t, needed.Equal(sdkmath.LegacyNewDecWithPrec(1155, 2)), "got %s", needed)

	// At ratio 100 there is no premium.
	needed, err = calc.CollateralNeeded(sdkmath.LegacyNewDec(1), 100)
	require.NoError(t, err)
	require.True(t, needed.Equal(sdkmath.LegacyNewDec(11)), "got %s", needed)
}

func TestUSDTReturnOnBurnPaysBaseRateOnly(t *testing.T) {
	calc, err := NewCalculator(PegRateUSDTPerHP)
	require.NoError(t, err)

	returned, err := calc.USDTReturnOnBurn(sdkmath.LegacyNewDec(1))
	require.NoError(t, err)
	require.True(t, returned.Equal(sdkmath.LegacyNewDec(11)), "got %s", returned)
}

func TestMintBurnAsymmetryFundsProfit(t *testing.T) {
	calc, err := NewCalculator(PegRateUSDTPerHP)
	require.NoError(t, err)

	amounts := []sdkmath.LegacyDec{
		sdkmath.LegacyNewDecWithPrec(1, 3), // 0.001
		sdkmath.LegacyNewDec(1),
		sdkmath.LegacyNewDec(250),
		sdkmath.LegacyNewDecWithPrec(123456789, 4),
	}
	for _, amount := range amounts {
		needed, err := calc.CollateralNeeded(amount, 105)
		require.NoError(t, err)
		returned, err := calc.USDTReturnOnBurn(amount)
		require.NoError(t, err)
		require.True(t, needed.GT(returned), "collateral %s must exceed burn payout %s for %s HP", needed, returned, amount)
	}

	// With no over-collateralization the two sides are equal.
	needed, err := calc.CollateralNeeded(sdkmath.LegacyNewDec(7), 100)
	require.NoError(t, err)
	returned, err := calc.USDTReturnOnBurn(sdkmath.LegacyNewDec(7))
	require.NoError(t, err)
	require.True(t, needed.Equal(returned))
}

func TestCalculatorRejectsNonPositiveAmounts(t *testing.T) {
	calc, err := NewCalculator(PegRateUSDTPerHP)
	require.NoError(t, err)

	for _, amount := range []sdkmath.LegacyDec{sdkmath.LegacyZeroDec(), sdkmath.LegacyNewDec(-3), {}} {
		_, err := calc.CollateralNeeded(amount, 105)
		require.ErrorIs(t, err, types.ErrInvalidAmount)

		_, err = calc.USDTReturnOnBurn(amount)
		require.ErrorIs(t, err, types.ErrInvalidAmount)
	}
}

func TestValidateReserveRatioBounds(t *testing.T) {
	require.NoError(t, ValidateReserveRatio(100))
	require.NoError(t, ValidateReserveRatio(105))
	require.NoError(t, ValidateReserveRatio(200))
	require.ErrorIs(t, ValidateReserveRatio(99), types.ErrInvalidRatio)
	require.ErrorIs(t, ValidateReserveRatio(201), types.ErrInvalidRatio)
	require.ErrorIs(t, ValidateReserveRatio(250), types.ErrInvalidRatio)
}
