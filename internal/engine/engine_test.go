package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/happy-paisa/hpe/internal/collateral"
	"github.com/happy-paisa/hpe/internal/pricing"
	"github.com/happy-paisa/hpe/internal/staking"
	"github.com/happy-paisa/hpe/internal/types"
)

const testAccount = "0x1111111111111111111111111111111111111111"

// fakeGateway serves canned balances and confirmation results.
type fakeGateway struct {
	hpBalance   sdkmath.LegacyDec
	usdtBalance sdkmath.LegacyDec
	allowance   sdkmath.LegacyDec
	supply      sdkmath.LegacyDec
	collateral  sdkmath.LegacyDec
	confirmed   map[string]bool
}

func (f *fakeGateway) GetBalance(_ context.Context, _ string, asset types.Asset) (sdkmath.LegacyDec, error) {
	switch asset {
	case types.AssetHP:
		return f.hpBalance, nil
	case types.AssetUSDT:
		return f.usdtBalance, nil
	default:
		return sdkmath.LegacyZeroDec(), nil
	}
}

func (f *fakeGateway) GetAllowance(_ context.Context, _ string) (sdkmath.LegacyDec, error) {
	return f.allowance, nil
}

func (f *fakeGateway) HPTotalSupply(_ context.Context) (sdkmath.LegacyDec, error) {
	return f.supply, nil
}

func (f *fakeGateway) CollateralBalance(_ context.Context) (sdkmath.LegacyDec, error) {
	return f.collateral, nil
}

func (f *fakeGateway) ConfirmTransaction(_ context.Context, txHash string) (bool, error) {
	return f.confirmed[txHash], nil
}

func (f *fakeGateway) Close() error { return nil }

// memStore records every write the engine makes. Setting insertErr or
// updateErr makes the corresponding write fail.
type memStore struct {
	economySaves int
	stakes       map[string]*types.StakeRecord
	receipts     []types.OperationReceipt

	insertErr error
	updateErr error
}

func newMemStore() *memStore {
	return &memStore{stakes: make(map[string]*types.StakeRecord)}
}

func (m *memStore) SaveEconomy(_, _ sdkmath.LegacyDec, _ int64) error {
	m.economySaves++
	return nil
}

func (m *memStore) InsertStake(rec *types.StakeRecord) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	snapshot := *rec
	m.stakes[rec.ID] = &snapshot
	return nil
}

func (m *memStore) UpdateStake(rec *types.StakeRecord) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	snapshot := *rec
	m.stakes[rec.ID] = &snapshot
	return nil
}

func (m *memStore) SaveReceipt(receipt *types.OperationReceipt) error {
	m.receipts = append(m.receipts, *receipt)
	return nil
}

func newTestEngine(t *testing.T, gw *fakeGateway, store *memStore) *Engine {
	t.Helper()
	acct, err := collateral.NewAccountant(collateral.PegRateUSDTPerHP, 105)
	require.NoError(t, err)
	ledger, err := staking.NewLedger(staking.DefaultParams())
	require.NoError(t, err)

	eng, err := New(Config{
		Gateway:    gw,
		Accountant: acct,
		Ledger:     ledger,
		PriceFeed:  pricing.StaticFeed{Price: sdkmath.LegacyNewDec(2)},
		Store:      store,
	})
	require.NoError(t, err)
	return eng
}

func TestPlanMintUsesLiveBalances(t *testing.T) {
	gw := &fakeGateway{
		usdtBalance: sdkmath.LegacyNewDec(100),
		allowance:   sdkmath.LegacyZeroDec(),
	}
	eng := newTestEngine(t, gw, newMemStore())

	plan, err := eng.PlanMint(context.Background(), testAccount, sdkmath.LegacyNewDec(1))
	require.NoError(t, err)
	require.True(t, plan.RequiredUSDT.Equal(sdkmath.LegacyNewDecWithPrec(1155, 2)))
	require.True(t, plan.NeedsApproval)
	require.True(t, plan.ApprovalUSDT.Equal(sdkmath.LegacyNewDecWithPrec(2310, 2)))

	// Planning never mutates the accountant.
	require.True(t, eng.ReserveSummary().TotalSupplyHP.IsZero())
}

func TestConfirmMintRequiresMinedTransaction(t *testing.T) {
	gw := &fakeGateway{confirmed: map[string]bool{}}
	store := newMemStore()
	eng := newTestEngine(t, gw, store)

	err := eng.ConfirmMint(context.Background(), testAccount, sdkmath.LegacyNewDec(1), sdkmath.LegacyDec{}, "0xdead")
	require.Error(t, err)
	require.True(t, eng.ReserveSummary().TotalSupplyHP.IsZero())
	require.Empty(t, store.receipts)

	gw.confirmed["0xdead"] = true
	require.NoError(t, eng.ConfirmMint(context.Background(), testAccount, sdkmath.LegacyNewDec(1), sdkmath.LegacyDec{}, "0xdead"))

	summary := eng.ReserveSummary()
	require.True(t, summary.TotalSupplyHP.Equal(sdkmath.LegacyNewDec(1)))
	require.True(t, summary.TotalCollateralUSDT.Equal(sdkmath.LegacyNewDecWithPrec(1155, 2)))
	require.Equal(t, 1, store.economySaves)
	require.Len(t, store.receipts, 1)
	require.Equal(t, types.OpMint, store.receipts[0].Type)
}

func TestConfirmBurnKeepsPremium(t *testing.T) {
	gw := &fakeGateway{confirmed: map[string]bool{"0xmint": true, "0xburn": true}}
	store := newMemStore()
	eng := newTestEngine(t, gw, store)

	ctx := context.Background()
	require.NoError(t, eng.ConfirmMint(ctx, testAccount, sdkmath.LegacyNewDec(10), sdkmath.LegacyDec{}, "0xmint"))
	require.NoError(t, eng.ConfirmBurn(ctx, testAccount, sdkmath.LegacyNewDec(10), "0xburn"))

	summary := eng.ReserveSummary()
	require.True(t, summary.TotalSupplyHP.IsZero())
	// 10 HP deposited 115.5, burn returned 110: premium 5.5 stays.
	require.True(t, summary.TotalCollateralUSDT.Equal(sdkmath.LegacyNewDecWithPrec(55, 1)), "got %s", summary.TotalCollateralUSDT)
}

func TestStakeFlowPersistsRecord(t *testing.T) {
	gw := &fakeGateway{hpBalance: sdkmath.LegacyNewDec(100)}
	store := newMemStore()
	eng := newTestEngine(t, gw, store)

	rec, err := eng.Stake(context.Background(), testAccount, sdkmath.LegacyNewDec(50))
	require.NoError(t, err)
	require.Contains(t, store.stakes, rec.ID)

	// Balance 100 HP but 50 already staked at $2: $900 headroom remains,
	// capped by the balance.
	overview, err := eng.StakingOverview(context.Background(), testAccount)
	require.NoError(t, err)
	require.True(t, overview.TotalStaked.Equal(sdkmath.LegacyNewDec(50)))
	require.Len(t, overview.Stakes, 1)

	// The USD cap is re-validated server-side: staking another 500 HP at $2
	// would exceed $1000 (and the balance).
	_, err = eng.Stake(context.Background(), testAccount, sdkmath.LegacyNewDec(500))
	require.Error(t, err)
}

func TestConfirmMintRecordsPlannedDeposit(t *testing.T) {
	gw := &fakeGateway{confirmed: map[string]bool{"0xmint": true}}
	eng := newTestEngine(t, gw, newMemStore())

	// Plan at ratio 105: 1 HP requires 11.55 USDT. The ratio then changes
	// before the wallet's transaction confirms.
	planned := sdkmath.LegacyNewDecWithPrec(1155, 2)
	require.NoError(t, eng.SetReserveRatio(types.RoleOwner, 110))

	require.NoError(t, eng.ConfirmMint(context.Background(), testAccount, sdkmath.LegacyNewDec(1), planned, "0xmint"))

	// The recorded collateral is what actually went on-chain, not a
	// recomputation at the new ratio (which would be 12.10).
	summary := eng.ReserveSummary()
	require.True(t, summary.TotalCollateralUSDT.Equal(planned), "got %s", summary.TotalCollateralUSDT)
}

func TestStakePersistenceFailureLeavesLedgerClean(t *testing.T) {
	gw := &fakeGateway{hpBalance: sdkmath.LegacyNewDec(500)}
	store := newMemStore()
	eng := newTestEngine(t, gw, store)

	store.insertErr = errors.New("connection refused")
	_, err := eng.Stake(context.Background(), testAccount, sdkmath.LegacyNewDec(400))
	require.Error(t, err)

	// The failed stake must not linger in memory, or it would eat into the
	// account's USD cap without a matching database row.
	overview, err := eng.StakingOverview(context.Background(), testAccount)
	require.NoError(t, err)
	require.True(t, overview.TotalStaked.IsZero())
	require.Empty(t, overview.Stakes)

	store.insertErr = nil
	rec, err := eng.Stake(context.Background(), testAccount, sdkmath.LegacyNewDec(400))
	require.NoError(t, err)
	require.Contains(t, store.stakes, rec.ID)
}

func TestClaimPersistenceFailureKeepsStakeClaimable(t *testing.T) {
	gw := &fakeGateway{hpBalance: sdkmath.LegacyNewDec(100)}
	store := newMemStore()
	eng := newTestEngine(t, gw, store)

	rec, err := eng.Stake(context.Background(), testAccount, sdkmath.LegacyNewDec(10))
	require.NoError(t, err)

	// Mature the stake.
	rec.StartTime = rec.StartTime.Add(-31 * 24 * time.Hour)
	rec.EndTime = rec.EndTime.Add(-31 * 24 * time.Hour)

	store.updateErr = errors.New("connection refused")
	_, err = eng.ClaimStake(context.Background(), rec.ID)
	require.Error(t, err)

	// The record must stay Active in memory so the holder can retry; a
	// one-way completion here would strand the payout until restart.
	require.Equal(t, types.StakeActive, rec.Status)
	require.Equal(t, types.StakeActive, store.stakes[rec.ID].Status)

	store.updateErr = nil
	payout, err := eng.ClaimStake(context.Background(), rec.ID)
	require.NoError(t, err)
	require.True(t, payout.GT(sdkmath.LegacyNewDec(10)))
	require.Equal(t, types.StakeCompleted, store.stakes[rec.ID].Status)
}

func TestEarlyUnstakePersistenceFailureKeepsStakeActive(t *testing.T) {
	gw := &fakeGateway{hpBalance: sdkmath.LegacyNewDec(100)}
	store := newMemStore()
	eng := newTestEngine(t, gw, store)

	rec, err := eng.Stake(context.Background(), testAccount, sdkmath.LegacyNewDec(10))
	require.NoError(t, err)

	store.updateErr = errors.New("connection refused")
	_, err = eng.OwnerUnstakeEarly(context.Background(), types.RoleOwner, rec.ID)
	require.Error(t, err)
	require.Equal(t, types.StakeActive, rec.Status)
	require.False(t, rec.EarlyWithdrawal)

	store.updateErr = nil
	_, err = eng.OwnerUnstakeEarly(context.Background(), types.RoleOwner, rec.ID)
	require.NoError(t, err)
	require.True(t, store.stakes[rec.ID].EarlyWithdrawal)
}

func TestOwnerOperationsRequireCapability(t *testing.T) {
	gw := &fakeGateway{confirmed: map[string]bool{"0xw": true}}
	eng := newTestEngine(t, gw, newMemStore())

	err := eng.SetReserveRatio(types.RoleHolder, 110)
	require.ErrorIs(t, err, types.ErrUnauthorized)

	err = eng.WithdrawProfit(context.Background(), types.RoleHolder, sdkmath.LegacyNewDec(1), "0xw")
	require.ErrorIs(t, err, types.ErrUnauthorized)
}

func TestReconcileAdoptsChainFigures(t *testing.T) {
	gw := &fakeGateway{
		supply:     sdkmath.LegacyNewDec(100),
		collateral: sdkmath.LegacyNewDec(1200),
	}
	store := newMemStore()
	eng := newTestEngine(t, gw, store)

	require.NoError(t, eng.Reconcile(context.Background()))

	summary := eng.ReserveSummary()
	require.True(t, summary.TotalSupplyHP.Equal(sdkmath.LegacyNewDec(100)))
	require.True(t, summary.TotalCollateralUSDT.Equal(sdkmath.LegacyNewDec(1200)))
	require.True(t, summary.AvailableProfit.Equal(sdkmath.LegacyNewDec(45)))
	require.Equal(t, 1, store.economySaves)
}
