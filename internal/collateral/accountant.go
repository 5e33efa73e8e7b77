package collateral

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/happy-paisa/hpe/internal/logger"
	"github.com/happy-paisa/hpe/internal/types"
)

var acctLogger = logger.GetForComponent("reserve_accountant")

// Accountant owns the token economy state: total HP supply, total USDT
// collateral and the mutable reserve ratio. It is the single writer of that
// state; callers serialize access (one in-flight operation at a time) and
// invoke Record* only after the corresponding on-chain operation confirmed.
type Accountant struct {
	totalSupplyHP       sdkmath.LegacyDec
	totalCollateralUSDT sdkmath.LegacyDec
	reserveRatioPercent int64
	calc                Calculator
}

// ReserveSummary is a read-only snapshot of the economy state plus the
// derived reserve figures shown on the owner dashboard.
type ReserveSummary struct {
	TotalSupplyHP          sdkmath.LegacyDec `json:"total_supply_hp"`
	TotalCollateralUSDT    sdkmath.LegacyDec `json:"total_collateral_usdt"`
	ReserveRatioPercent    int64             `json:"reserve_ratio_percent"`
	PegRateUSDTPerHP       sdkmath.LegacyDec `json:"peg_rate_usdt_per_hp"`
	CollateralizationRatio sdkmath.LegacyDec `json:"collateralization_ratio_percent"`
	RequiredCollateral     sdkmath.LegacyDec `json:"required_collateral_usdt"`
	AvailableProfit        sdkmath.LegacyDec `json:"available_profit_usdt"`
}

// NewAccountant creates an accountant with zero supply and collateral.
func NewAccountant(pegRate sdkmath.LegacyDec, reserveRatioPercent int64) (*Accountant, error) {
	calc, err := NewCalculator(pegRate)
	if err != nil {
		return nil, err
	}
	if err := ValidateReserveRatio(reserveRatioPercent); err != nil {
		return nil, err
	}
	return &Accountant{
		totalSupplyHP:       sdkmath.LegacyZeroDec(),
		totalCollateralUSDT: sdkmath.LegacyZeroDec(),
		reserveRatioPercent: reserveRatioPercent,
		calc:                calc,
	}, nil
}

// Calculator returns the collateral calculator bound to this accountant's peg.
func (a *Accountant) Calculator() Calculator {
	return a.calc
}

// ReserveRatioPercent returns the current required over-collateralization.
func (a *Accountant) ReserveRatioPercent() int64 {
	return a.reserveRatioPercent
}

// TotalSupplyHP returns the tracked HP supply.
func (a *Accountant) TotalSupplyHP() sdkmath.LegacyDec {
	return a.totalSupplyHP
}

// TotalCollateralUSDT returns the tracked USDT collateral.
func (a *Accountant) TotalCollateralUSDT() sdkmath.LegacyDec {
	return a.totalCollateralUSDT
}

// CollateralNeeded returns the USDT required to mint hpAmount at the current ratio.
func (a *Accountant) CollateralNeeded(hpAmount sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	return a.calc.CollateralNeeded(hpAmount, a.reserveRatioPercent)
}

// CollateralizationRatio returns collateral / (supply × peg) × 100,
// defined as 0 when supply is zero.
func (a *Accountant) CollateralizationRatio() sdkmath.LegacyDec {
	if a.totalSupplyHP.IsZero() {
		return sdkmath.LegacyZeroDec()
	}
	base := a.totalSupplyHP.Mul(a.calc.PegRate())
	return a.totalCollateralUSDT.Quo(base).MulInt64(100)
}

// RequiredCollateral returns supply × peg × ratio/100, the reserve floor the
// collateral must not drop below.
func (a *Accountant) RequiredCollateral() sdkmath.LegacyDec {
	return a.totalSupplyHP.Mul(a.calc.PegRate()).MulInt64(a.reserveRatioPercent).QuoInt64(100)
}

// AvailableProfit returns the excess collateral above the required reserve.
// This is the only USDT the owner may withdraw without breaching the reserve
// invariant. Never negative and never more than the total collateral.
func (a *Accountant) AvailableProfit() sdkmath.LegacyDec {
	profit := a.totalCollateralUSDT.Sub(a.RequiredCollateral())
	if profit.IsNegative() {
		return sdkmath.LegacyZeroDec()
	}
	return profit
}

// RecordMint applies a confirmed mint: supply and collateral both grow.
// The caller has already verified usdtDeposited == CollateralNeeded(hpAmount).
func (a *Accountant) RecordMint(hpAmount, usdtDeposited sdkmath.LegacyDec) error {
	if err := validateAmount(hpAmount); err != nil {
		return err
	}
	if err := validateAmount(usdtDeposited); err != nil {
		return err
	}
	a.totalSupplyHP = a.totalSupplyHP.Add(hpAmount)
	a.totalCollateralUSDT = a.totalCollateralUSDT.Add(usdtDeposited)
	acctLogger.Info().
		Str("hpMinted", hpAmount.String()).
		Str("usdtDeposited", usdtDeposited.String()).
		Str("totalSupply", a.totalSupplyHP.String()).
		Str("totalCollateral", a.totalCollateralUSDT.String()).
		Msg("Recorded confirmed mint")
	return nil
}

// RecordBurn applies a confirmed burn: supply and collateral both shrink.
// The caller has already verified usdtReturned == USDTReturnOnBurn(hpAmount).
func (a *Accountant) RecordBurn(hpAmount, usdtReturned sdkmath.LegacyDec) error {
	if err := validateAmount(hpAmount); err != nil {
		return err
	}
	if err := validateAmount(usdtReturned); err != nil {
		return err
	}
	if hpAmount.GT(a.totalSupplyHP) {
		return fmt.Errorf("%w: burn of %s HP exceeds tracked supply %s", types.ErrInvalidAmount, hpAmount, a.totalSupplyHP)
	}
	if usdtReturned.GT(a.totalCollateralUSDT) {
		return fmt.Errorf("%w: payout of %s USDT exceeds tracked collateral %s", types.ErrInvalidAmount, usdtReturned, a.totalCollateralUSDT)
	}
	a.totalSupplyHP = a.totalSupplyHP.Sub(hpAmount)
	a.totalCollateralUSDT = a.totalCollateralUSDT.Sub(usdtReturned)
	acctLogger.Info().
		Str("hpBurned", hpAmount.String()).
		Str("usdtReturned", usdtReturned.String()).
		Str("totalSupply", a.totalSupplyHP.String()).
		Str("totalCollateral", a.totalCollateralUSDT.String()).
		Msg("Recorded confirmed burn")
	return nil
}

// SetReserveRatio changes the required reserve ratio. Owner only, [100,200].
// Takes effect immediately for subsequent AvailableProfit calls; there is no
// grandfathering of already-minted supply.
func (a *Accountant) SetReserveRatio(role types.Role, reserveRatioPercent int64) error {
	if role != types.RoleOwner {
		return fmt.Errorf("%w: set reserve ratio", types.ErrUnauthorized)
	}
	if err := ValidateReserveRatio(reserveRatioPercent); err != nil {
		return err
	}
	acctLogger.Warn().
		Int64("oldRatio", a.reserveRatioPercent).
		Int64("newRatio", reserveRatioPercent).
		Msg("Reserve ratio changed")
	a.reserveRatioPercent = reserveRatioPercent
	return nil
}

// WithdrawProfit removes excess collateral. Owner only; the amount must not
// exceed AvailableProfit. Supply is untouched.
func (a *Accountant) WithdrawProfit(role types.Role, amount sdkmath.LegacyDec) error {
	if role != types.RoleOwner {
		return fmt.Errorf("%w: withdraw profit", types.ErrUnauthorized)
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	if amount.GT(a.AvailableProfit()) {
		return fmt.Errorf("%w: requested %s, available %s", types.ErrExceedsAvailableProfit, amount, a.AvailableProfit())
	}
	a.totalCollateralUSDT = a.totalCollateralUSDT.Sub(amount)
	acctLogger.Info().
		Str("withdrawn", amount.String()).
		Str("remainingCollateral", a.totalCollateralUSDT.String()).
		Msg("Profit withdrawn")
	return nil
}

// Restore overwrites the tracked supply and collateral with authoritative
// figures read from chain or from the persisted state at startup.
func (a *Accountant) Restore(totalSupplyHP, totalCollateralUSDT sdkmath.LegacyDec, reserveRatioPercent int64) error {
	if totalSupplyHP.IsNil() || totalSupplyHP.IsNegative() {
		return fmt.Errorf("%w: supply %s", types.ErrInvalidAmount, totalSupplyHP)
	}
	if totalCollateralUSDT.IsNil() || totalCollateralUSDT.IsNegative() {
		return fmt.Errorf("%w: collateral %s", types.ErrInvalidAmount, totalCollateralUSDT)
	}
	if err := ValidateReserveRatio(reserveRatioPercent); err != nil {
		return err
	}
	a.totalSupplyHP = totalSupplyHP
	a.totalCollateralUSDT = totalCollateralUSDT
	a.reserveRatioPercent = reserveRatioPercent
	return nil
}

// Summary returns the dashboard snapshot of the economy state.
func (a *Accountant) Summary() ReserveSummary {
	return ReserveSummary{
		TotalSupplyHP:          a.totalSupplyHP,
		TotalCollateralUSDT:    a.totalCollateralUSDT,
		ReserveRatioPercent:    a.reserveRatioPercent,
		PegRateUSDTPerHP:       a.calc.PegRate(),
		CollateralizationRatio: a.CollateralizationRatio(),
		RequiredCollateral:     a.RequiredCollateral(),
		AvailableProfit:        a.AvailableProfit(),
	}
}
