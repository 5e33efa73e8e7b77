package collateral

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/happy-paisa/hpe/internal/types"
)

func newTestAccountant(t *testing.T, ratio int64) *Accountant {
	t.Helper()
	acct, err := NewAccountant(PegRateUSDTPerHP, ratio)
	require.NoError(t, err)
	return acct
}

func TestAvailableProfitFromExcessCollateral(t *testing.T) {
	acct := newTestAccountant(t, 105)

	// Supply 100, collateral 1200: profit = 1200 - 100×11×1.05 = 45.
	require.NoError(t, acct.Restore(sdkmath.LegacyNewDec(100), sdkmath.LegacyNewDec(1200), 105))
	require.True(t, acct.AvailableProfit().Equal(sdkmath.LegacyNewDec(45)), "got %s", acct.AvailableProfit())
}

func TestAvailableProfitNeverNegativeNorAboveCollateral(t *testing.T) {
	acct := newTestAccountant(t, 105)

	// Under-collateralized: profit floors at zero.
	require.NoError(t, acct.Restore(sdkmath.LegacyNewDec(100), sdkmath.LegacyNewDec(1000), 105))
	require.True(t, acct.AvailableProfit().IsZero())

	// Zero supply: the full collateral is excess but still bounded by it.
	require.NoError(t, acct.Restore(sdkmath.LegacyZeroDec(), sdkmath.LegacyNewDec(500), 105))
	require.True(t, acct.AvailableProfit().Equal(sdkmath.LegacyNewDec(500)))
	require.True(t, acct.AvailableProfit().LTE(acct.TotalCollateralUSDT()))
}

func TestCollateralizationRatioZeroSupply(t *testing.T) {
	acct := newTestAccountant(t, 105)
	require.True(t, acct.CollateralizationRatio().IsZero())

	require.NoError(t, acct.Restore(sdkmath.LegacyNewDec(100), sdkmath.LegacyNewDec(1155), 105))
	require.True(t, acct.CollateralizationRatio().Equal(sdkmath.LegacyNewDec(105)), "got %s", acct.CollateralizationRatio())
}

func TestMintThenBurnRoundTrip(t *testing.T) {
	acct := newTestAccountant(t, 105)
	calc := acct.Calculator()

	amount := sdkmath.LegacyNewDec(10)
	deposited, err := acct.CollateralNeeded(amount)
	require.NoError(t, err)
	require.NoError(t, acct.RecordMint(amount, deposited))

	returned, err := calc.USDTReturnOnBurn(amount)
	require.NoError(t, err)
	require.NoError(t, acct.RecordBurn(amount, returned))

	// Supply returns exactly to its pre-mint value.
	require.True(t, acct.TotalSupplyHP().IsZero())
	// The collateral keeps the premium: deposited − returned = 10×11×0.05 = 5.5.
	require.True(t, acct.TotalCollateralUSDT().Equal(deposited.Sub(returned)))
	require.True(t, acct.TotalCollateralUSDT().Equal(sdkmath.LegacyNewDecWithPrec(55, 1)))
}

func TestWithdrawProfitBounds(t *testing.T) {
	acct := newTestAccountant(t, 105)
	require.NoError(t, acct.Restore(sdkmath.LegacyNewDec(100), sdkmath.LegacyNewDec(1200), 105))

	available := acct.AvailableProfit()

	// One cent above the available profit is rejected.
	over := available.Add(sdkmath.LegacyNewDecWithPrec(1, 2))
	err := acct.WithdrawProfit(types.RoleOwner, over)
	require.ErrorIs(t, err, types.ErrExceedsAvailableProfit)

	// Exactly the available profit succeeds and leaves the supply untouched.
	require.NoError(t, acct.WithdrawProfit(types.RoleOwner, available))
	require.True(t, acct.TotalSupplyHP().Equal(sdkmath.LegacyNewDec(100)))
	require.True(t, acct.AvailableProfit().IsZero())
}

func TestWithdrawProfitRequiresOwner(t *testing.T) {
	acct := newTestAccountant(t, 105)
	require.NoError(t, acct.Restore(sdkmath.LegacyNewDec(100), sdkmath.LegacyNewDec(1200), 105))

	err := acct.WithdrawProfit(types.RoleHolder, sdkmath.LegacyNewDec(1))
	require.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestSetReserveRatioValidation(t *testing.T) {
	acct := newTestAccountant(t, 105)

	require.ErrorIs(t, acct.SetReserveRatio(types.RoleOwner, 250), types.ErrInvalidRatio)
	require.ErrorIs(t, acct.SetReserveRatio(types.RoleOwner, 99), types.ErrInvalidRatio)
	require.ErrorIs(t, acct.SetReserveRatio(types.RoleHolder, 110), types.ErrUnauthorized)
	require.NoError(t, acct.SetReserveRatio(types.RoleOwner, 110))
	require.Equal(t, int64(110), acct.ReserveRatioPercent())
}

func TestRatioChangeRetroactivelyMovesProfit(t *testing.T) {
	// No grandfathering: changing the ratio immediately recomputes the
	// profit for already-minted supply, in both directions.
	acct := newTestAccountant(t, 105)
	require.NoError(t, acct.Restore(sdkmath.LegacyNewDec(100), sdkmath.LegacyNewDec(1200), 105))
	require.True(t, acct.AvailableProfit().Equal(sdkmath.LegacyNewDec(45)))

	// Lowering the ratio frees collateral: 1200 - 100×11×1.00 = 100.
	require.NoError(t, acct.SetReserveRatio(types.RoleOwner, 100))
	require.True(t, acct.AvailableProfit().Equal(sdkmath.LegacyNewDec(100)), "got %s", acct.AvailableProfit())

	// Raising it above the held collateral makes a previously valid
	// withdrawal invalid.
	require.NoError(t, acct.SetReserveRatio(types.RoleOwner, 110))
	require.True(t, acct.AvailableProfit().IsZero())
	err := acct.WithdrawProfit(types.RoleOwner, sdkmath.LegacyNewDec(45))
	require.ErrorIs(t, err, types.ErrExceedsAvailableProfit)
}

func TestRecordBurnGuardsTrackedState(t *testing.T) {
	acct := newTestAccountant(t, 105)
	require.NoError(t, acct.RecordMint(sdkmath.LegacyNewDec(1), sdkmath.LegacyNewDecWithPrec(1155, 2)))

	err := acct.RecordBurn(sdkmath.LegacyNewDec(2), sdkmath.LegacyNewDec(22))
	require.ErrorIs(t, err, types.ErrInvalidAmount)
}
