/*

Engine orchestration.

The engine owns the single authoritative Accountant and Ledger instances and
serializes every state mutation behind one mutex. The plan/confirm split is
strict: Plan* methods read balances and produce plans without mutating
anything; Confirm* methods verify the on-chain transaction actually succeeded
and only then record the operation. A failed or retried transaction therefore
never double-counts.

*/

package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/happy-paisa/hpe/internal/chain"
	"github.com/happy-paisa/hpe/internal/collateral"
	"github.com/happy-paisa/hpe/internal/logger"
	"github.com/happy-paisa/hpe/internal/mintburn"
	"github.com/happy-paisa/hpe/internal/pricing"
	"github.com/happy-paisa/hpe/internal/staking"
	"github.com/happy-paisa/hpe/internal/types"
)

var engineLogger = logger.GetForComponent("engine")

// Store is the persistence surface the engine writes through.
type Store interface {
	SaveEconomy(totalSupplyHP, totalCollateralUSDT sdkmath.LegacyDec, reserveRatioPercent int64) error
	InsertStake(rec *types.StakeRecord) error
	UpdateStake(rec *types.StakeRecord) error
	SaveReceipt(receipt *types.OperationReceipt) error
}

// Config wires the engine's dependencies. All fields are required.
type Config struct {
	Gateway    chain.Gateway
	Accountant *collateral.Accountant
	Ledger     *staking.Ledger
	PriceFeed  pricing.PriceFeed
	Store      Store
}

// Engine ties the validator, accountant and ledger together behind a single
// writer and exposes the operations the web layer serves.
type Engine struct {
	mu sync.Mutex

	gateway    chain.Gateway
	accountant *collateral.Accountant
	ledger     *staking.Ledger
	priceFeed  pricing.PriceFeed
	store      Store
	validator  *mintburn.Validator
}

// New creates an engine after validating the injected dependencies.
func New(cfg Config) (*Engine, error) {
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if cfg.Accountant == nil {
		return nil, fmt.Errorf("accountant is required")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if cfg.PriceFeed == nil {
		return nil, fmt.Errorf("price feed is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	validator, err := mintburn.NewValidator(cfg.Accountant)
	if err != nil {
		return nil, err
	}

	return &Engine{
		gateway:    cfg.Gateway,
		accountant: cfg.Accountant,
		ledger:     cfg.Ledger,
		priceFeed:  cfg.PriceFeed,
		store:      cfg.Store,
		validator:  validator,
	}, nil
}

// PlanMint validates a mint request against the holder's live USDT balance
// and allowance, returning the plan the wallet should execute.
func (e *Engine) PlanMint(ctx context.Context, account string, hpAmount sdkmath.LegacyDec) (*types.MintPlan, error) {
	usdtBalance, err := e.gateway.GetBalance(ctx, account, types.AssetUSDT)
	if err != nil {
		return nil, fmt.Errorf("failed to read USDT balance: %w", err)
	}
	allowance, err := e.gateway.GetAllowance(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to read USDT allowance: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validator.PrepareMint(hpAmount, usdtBalance, allowance)
}

// PlanBurn validates a burn request against the holder's live HP balance.
func (e *Engine) PlanBurn(ctx context.Context, account string, hpAmount sdkmath.LegacyDec) (*types.BurnPlan, error) {
	hpBalance, err := e.gateway.GetBalance(ctx, account, types.AssetHP)
	if err != nil {
		return nil, fmt.Errorf("failed to read HP balance: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validator.PrepareBurn(hpAmount, hpBalance)
}

// PlanTransfer validates an HP transfer against the holder's live HP balance.
func (e *Engine) PlanTransfer(ctx context.Context, account string, hpAmount sdkmath.LegacyDec, recipient string) (*types.TransferPlan, error) {
	hpBalance, err := e.gateway.GetBalance(ctx, account, types.AssetHP)
	if err != nil {
		return nil, fmt.Errorf("failed to read HP balance: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.validator.PrepareTransfer(hpAmount, hpBalance, recipient)
}

// ConfirmMint records a mint after its transaction confirmed on-chain.
// depositedUSDT is the collateral figure from the executed plan; when the
// caller omits it, the requirement is recomputed at the current ratio, which
// can differ from the on-chain deposit if the ratio changed since planning.
func (e *Engine) ConfirmMint(ctx context.Context, account string, hpAmount, depositedUSDT sdkmath.LegacyDec, txHash string) error {
	if err := e.requireConfirmed(ctx, txHash); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	deposited := depositedUSDT
	if deposited.IsNil() {
		var err error
		deposited, err = e.accountant.CollateralNeeded(hpAmount)
		if err != nil {
			return err
		}
	}
	if err := e.accountant.RecordMint(hpAmount, deposited); err != nil {
		return err
	}
	e.persistEconomy()
	e.saveReceipt(types.OpMint, account, hpAmount, deposited, txHash, "")
	return nil
}

// ConfirmBurn records a burn after its transaction confirmed on-chain.
func (e *Engine) ConfirmBurn(ctx context.Context, account string, hpAmount sdkmath.LegacyDec, txHash string) error {
	if err := e.requireConfirmed(ctx, txHash); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	returned, err := e.accountant.Calculator().USDTReturnOnBurn(hpAmount)
	if err != nil {
		return err
	}
	if err := e.accountant.RecordBurn(hpAmount, returned); err != nil {
		return err
	}
	e.persistEconomy()
	e.saveReceipt(types.OpBurn, account, hpAmount, returned, txHash, "")
	return nil
}

// Stake creates a new stake for the account against its live HP balance and
// the current HP/USD price, persisting the record before returning it.
func (e *Engine) Stake(ctx context.Context, account string, hpAmount sdkmath.LegacyDec) (*types.StakeRecord, error) {
	hpBalance, err := e.gateway.GetBalance(ctx, account, types.AssetHP)
	if err != nil {
		return nil, fmt.Errorf("failed to read HP balance: %w", err)
	}
	price, err := e.priceFeed.CurrentPrice()
	if err != nil {
		return nil, fmt.Errorf("failed to read HP/USD price: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.ledger.Stake(account, hpAmount, hpBalance, price)
	if err != nil {
		return nil, err
	}
	if err := e.store.InsertStake(rec); err != nil {
		e.ledger.Discard(rec.ID)
		return nil, fmt.Errorf("stake could not be persisted: %w", err)
	}
	e.saveReceipt(types.OpStake, account, rec.AmountHP, rec.ValueUSDAtStake, "", rec.ID)
	return rec, nil
}

// ClaimStake completes a matured stake and returns the HP to release.
func (e *Engine) ClaimStake(ctx context.Context, recordID string) (sdkmath.LegacyDec, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	payout, rec, err := e.ledger.Claim(recordID)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	if err := e.store.UpdateStake(rec); err != nil {
		e.reactivateStake(rec.ID)
		return sdkmath.LegacyDec{}, fmt.Errorf("claim could not be persisted: %w", err)
	}
	e.saveReceipt(types.OpClaim, rec.Owner, payout, sdkmath.LegacyDec{}, "", rec.ID)
	return payout, nil
}

// OwnerUnstakeEarly completes a stake before maturity. Owner capability only.
func (e *Engine) OwnerUnstakeEarly(ctx context.Context, role types.Role, recordID string) (sdkmath.LegacyDec, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	payout, rec, err := e.ledger.OwnerUnstakeEarly(role, recordID)
	if err != nil {
		return sdkmath.LegacyDec{}, err
	}
	if err := e.store.UpdateStake(rec); err != nil {
		e.reactivateStake(rec.ID)
		return sdkmath.LegacyDec{}, fmt.Errorf("early unstake could not be persisted: %w", err)
	}
	e.saveReceipt(types.OpEarlyUnstake, rec.Owner, payout, sdkmath.LegacyDec{}, "", rec.ID)
	return payout, nil
}

// WithdrawProfit records an owner profit withdrawal after its transaction
// confirmed on-chain.
func (e *Engine) WithdrawProfit(ctx context.Context, role types.Role, amount sdkmath.LegacyDec, txHash string) error {
	if err := e.requireConfirmed(ctx, txHash); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.accountant.WithdrawProfit(role, amount); err != nil {
		return err
	}
	e.persistEconomy()
	e.saveReceipt(types.OpProfitWithdrawal, "owner", sdkmath.LegacyDec{}, amount, txHash, "")
	return nil
}

// SetReserveRatio changes the required reserve ratio. Owner capability only.
// The change is effective immediately for subsequent profit computations.
func (e *Engine) SetReserveRatio(role types.Role, reserveRatioPercent int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.accountant.SetReserveRatio(role, reserveRatioPercent); err != nil {
		return err
	}
	e.persistEconomy()
	e.saveReceipt(types.OpRatioChange, "owner", sdkmath.LegacyDec{}, sdkmath.LegacyDec{}, "",
		fmt.Sprintf("reserve ratio set to %d", reserveRatioPercent))
	return nil
}

// ReserveSummary returns the dashboard snapshot of the economy state.
func (e *Engine) ReserveSummary() collateral.ReserveSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.accountant.Summary()
}

// StakingOverview assembles the per-account staking summary.
func (e *Engine) StakingOverview(ctx context.Context, account string) (types.StakingOverview, error) {
	hpBalance, err := e.gateway.GetBalance(ctx, account, types.AssetHP)
	if err != nil {
		return types.StakingOverview{}, fmt.Errorf("failed to read HP balance: %w", err)
	}
	price, err := e.priceFeed.CurrentPrice()
	if err != nil {
		return types.StakingOverview{}, fmt.Errorf("failed to read HP/USD price: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Overview(account, hpBalance, price)
}

// Reconcile overwrites the tracked supply and collateral with the
// authoritative on-chain figures and persists the result.
func (e *Engine) Reconcile(ctx context.Context) error {
	supply, err := e.gateway.HPTotalSupply(ctx)
	if err != nil {
		return fmt.Errorf("failed to read HP total supply: %w", err)
	}
	collateralUSDT, err := e.gateway.CollateralBalance(ctx)
	if err != nil {
		return fmt.Errorf("failed to read collateral balance: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.accountant.Restore(supply, collateralUSDT, e.accountant.ReserveRatioPercent()); err != nil {
		return err
	}
	e.persistEconomy()

	engineLogger.Info().
		Str("totalSupplyHP", supply.String()).
		Str("totalCollateralUSDT", collateralUSDT.String()).
		Msg("Reconciled economy state from chain")
	return nil
}

// RunLoop reconciles immediately, then on every tick until the context ends.
func (e *Engine) RunLoop(ctx context.Context, interval time.Duration) {
	if err := e.Reconcile(ctx); err != nil {
		engineLogger.Error().Err(err).Msg("Initial reconcile failed")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			engineLogger.Info().Msg("Engine loop stopping")
			return
		case <-ticker.C:
			if err := e.Reconcile(ctx); err != nil {
				engineLogger.Error().Err(err).Msg("Reconcile failed")
			}
		}
	}
}

// reactivateStake unwinds a ledger completion whose persistence failed so the
// stake remains claimable on retry.
func (e *Engine) reactivateStake(recordID string) {
	if err := e.ledger.Reactivate(recordID); err != nil {
		engineLogger.Error().Err(err).Str("stakeId", recordID).Msg("Failed to reactivate stake after persistence error")
	}
}

// requireConfirmed rejects recording until the transaction is mined successfully.
func (e *Engine) requireConfirmed(ctx context.Context, txHash string) error {
	if txHash == "" {
		return fmt.Errorf("transaction hash is required")
	}
	ok, err := e.gateway.ConfirmTransaction(ctx, txHash)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("transaction %s has not confirmed successfully", txHash)
	}
	return nil
}

// persistEconomy writes the current economy snapshot through the store.
// Persistence failures are logged, not fatal: the chain remains the authority
// and the next reconcile rewrites the row.
func (e *Engine) persistEconomy() {
	err := e.store.SaveEconomy(
		e.accountant.TotalSupplyHP(),
		e.accountant.TotalCollateralUSDT(),
		e.accountant.ReserveRatioPercent(),
	)
	if err != nil {
		engineLogger.Error().Err(err).Msg("Failed to persist economy state")
	}
}

func (e *Engine) saveReceipt(op types.OperationType, account string, amountHP, amountUSDT sdkmath.LegacyDec, txHash, message string) {
	receipt := &types.OperationReceipt{
		Type:       op,
		Account:    account,
		AmountHP:   amountHP,
		AmountUSDT: amountUSDT,
		TxHash:     txHash,
		Success:    true,
		Message:    message,
		Timestamp:  time.Now().UTC(),
	}
	if err := e.store.SaveReceipt(receipt); err != nil {
		engineLogger.Error().Err(err).Str("opType", string(op)).Msg("Failed to save operation receipt")
	}
}
