/*

Mint/burn/transfer validation.

The validator only produces plans; it never touches the accountant. State is
recorded exclusively after the external transaction layer confirms on-chain
success, so a failed or retried transaction can never double-count.

*/

package mintburn

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/happy-paisa/hpe/internal/collateral"
	"github.com/happy-paisa/hpe/internal/logger"
	"github.com/happy-paisa/hpe/internal/types"
)

var validatorLogger = logger.GetForComponent("mint_burn_validator")

// ApprovalHeadroomMultiplier over-approves USDT spending relative to the
// required collateral so holders are not asked to approve again on every mint.
const ApprovalHeadroomMultiplier = 2

// Validator checks mint and burn requests against balances, allowances and the
// current reserve ratio before the transaction layer submits anything.
type Validator struct {
	accountant *collateral.Accountant
}

// NewValidator wires the validator to the accountant whose ratio and peg it reads.
func NewValidator(accountant *collateral.Accountant) (*Validator, error) {
	if accountant == nil {
		return nil, fmt.Errorf("accountant is required")
	}
	return &Validator{accountant: accountant}, nil
}

// PrepareMint validates a mint request and returns the plan the transaction
// layer should execute: an optional USDT approval step followed by the mint.
func (v *Validator) PrepareMint(hpAmount, holderUSDTBalance, holderAllowance sdkmath.LegacyDec) (*types.MintPlan, error) {
	required, err := v.accountant.CollateralNeeded(hpAmount)
	if err != nil {
		return nil, err
	}
	if holderUSDTBalance.IsNil() || holderUSDTBalance.LT(required) {
		return nil, fmt.Errorf("%w: minting %s HP requires %s USDT, balance is %s",
			types.ErrInsufficientBalance, hpAmount, required, holderUSDTBalance)
	}

	plan := &types.MintPlan{
		HPAmount:     hpAmount,
		RequiredUSDT: required,
		ApprovalUSDT: sdkmath.LegacyZeroDec(),
	}
	if holderAllowance.IsNil() || holderAllowance.LT(required) {
		plan.NeedsApproval = true
		plan.ApprovalUSDT = required.MulInt64(ApprovalHeadroomMultiplier)
	}

	validatorLogger.Debug().
		Str("hpAmount", hpAmount.String()).
		Str("requiredUSDT", required.String()).
		Bool("needsApproval", plan.NeedsApproval).
		Msg("Mint plan prepared")
	return plan, nil
}

// PrepareBurn validates a burn request and returns the expected USDT payout.
// Only the base peg is paid out; the reserve premium stays in the collateral.
func (v *Validator) PrepareBurn(hpAmount, holderHPBalance sdkmath.LegacyDec) (*types.BurnPlan, error) {
	expected, err := v.accountant.Calculator().USDTReturnOnBurn(hpAmount)
	if err != nil {
		return nil, err
	}
	if holderHPBalance.IsNil() || holderHPBalance.LT(hpAmount) {
		return nil, fmt.Errorf("%w: burning %s HP with balance %s",
			types.ErrInsufficientBalance, hpAmount, holderHPBalance)
	}

	validatorLogger.Debug().
		Str("hpAmount", hpAmount.String()).
		Str("expectedUSDT", expected.String()).
		Msg("Burn plan prepared")
	return &types.BurnPlan{HPAmount: hpAmount, ExpectedUSDT: expected}, nil
}

// PrepareTransfer validates a plain HP transfer to another account.
func (v *Validator) PrepareTransfer(hpAmount, holderHPBalance sdkmath.LegacyDec, recipient string) (*types.TransferPlan, error) {
	if hpAmount.IsNil() || !hpAmount.IsPositive() {
		return nil, fmt.Errorf("%w: transfer amount %s", types.ErrInvalidAmount, hpAmount)
	}
	if recipient == "" {
		return nil, fmt.Errorf("%w: recipient is required", types.ErrInvalidAmount)
	}
	if holderHPBalance.IsNil() || holderHPBalance.LT(hpAmount) {
		return nil, fmt.Errorf("%w: transferring %s HP with balance %s",
			types.ErrInsufficientBalance, hpAmount, holderHPBalance)
	}
	return &types.TransferPlan{HPAmount: hpAmount, Recipient: recipient}, nil
}
