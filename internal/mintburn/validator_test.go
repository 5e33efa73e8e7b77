package mintburn

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/happy-paisa/hpe/internal/collateral"
	"github.com/happy-paisa/hpe/internal/types"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	acct, err := collateral.NewAccountant(collateral.PegRateUSDTPerHP, 105)
	require.NoError(t, err)
	v, err := NewValidator(acct)
	require.NoError(t, err)
	return v
}

func dec(i int64) sdkmath.LegacyDec {
	return sdkmath.LegacyNewDec(i)
}

func TestPrepareMintWithSufficientAllowance(t *testing.T) {
	v := newTestValidator(t)

	plan, err := v.PrepareMint(dec(1), dec(100), dec(50))
	require.NoError(t, err)
	require.True(t, plan.RequiredUSDT.Equal(sdkmath.LegacyNewDecWithPrec(1155, 2)), "got %s", plan.RequiredUSDT)
	require.False(t, plan.NeedsApproval)
	require.True(t, plan.ApprovalUSDT.IsZero())
}

func TestPrepareMintAddsApprovalWithHeadroom(t *testing.T) {
	v := newTestValidator(t)

	// Allowance below the required 11.55 triggers an approval step for
	// double the requirement.
	plan, err := v.PrepareMint(dec(1), dec(100), dec(5))
	require.NoError(t, err)
	require.True(t, plan.NeedsApproval)
	require.True(t, plan.ApprovalUSDT.Equal(sdkmath.LegacyNewDecWithPrec(2310, 2)), "got %s", plan.ApprovalUSDT)
}

func TestPrepareMintRejections(t *testing.T) {
	v := newTestValidator(t)

	_, err := v.PrepareMint(dec(0), dec(100), dec(100))
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = v.PrepareMint(dec(-1), dec(100), dec(100))
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	// 10 HP needs 115.5 USDT; 100 is not enough.
	_, err = v.PrepareMint(dec(10), dec(100), dec(1000))
	require.ErrorIs(t, err, types.ErrInsufficientBalance)
}

func TestPrepareBurn(t *testing.T) {
	v := newTestValidator(t)

	plan, err := v.PrepareBurn(dec(2), dec(10))
	require.NoError(t, err)
	require.True(t, plan.ExpectedUSDT.Equal(dec(22)), "got %s", plan.ExpectedUSDT)

	_, err = v.PrepareBurn(dec(11), dec(10))
	require.ErrorIs(t, err, types.ErrInsufficientBalance)

	_, err = v.PrepareBurn(dec(0), dec(10))
	require.ErrorIs(t, err, types.ErrInvalidAmount)
}

func TestPrepareTransfer(t *testing.T) {
	v := newTestValidator(t)

	plan, err := v.PrepareTransfer(dec(3), dec(10), "0x2222222222222222222222222222222222222222")
	require.NoError(t, err)
	require.True(t, plan.HPAmount.Equal(dec(3)))

	_, err = v.PrepareTransfer(dec(3), dec(10), "")
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = v.PrepareTransfer(dec(30), dec(10), "0x2222222222222222222222222222222222222222")
	require.ErrorIs(t, err, types.ErrInsufficientBalance)
}
