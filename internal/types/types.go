/*

This file contains the shared domain types for the Happy Paisa engine: assets,
stake records, operation plans and receipts. All money amounts are sdkmath
LegacyDec; float64 appears only at display edges.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// Asset identifies a balance class reachable through the chain gateway.
type Asset string

const (
	AssetHP     Asset = "HP"
	AssetUSDT   Asset = "USDT"
	AssetNative Asset = "BNB" // gas token of the target network
)

// Role is an explicit capability passed into privileged operations.
// Owner-gated calls reject any other role; there is no ambient role state.
type Role int

const (
	RoleHolder Role = iota
	RoleOwner
)

// StakeStatus is the lifecycle state of a stake record.
// Active -> Completed is the only transition; Completed is terminal.
type StakeStatus string

const (
	StakeActive    StakeStatus = "ACTIVE"
	StakeCompleted StakeStatus = "COMPLETED"
)

// WithdrawnBy records which side closed a stake.
type WithdrawnBy string

const (
	WithdrawnByHolder WithdrawnBy = "HOLDER"
	WithdrawnByOwner  WithdrawnBy = "OWNER"
)

// StakeRecord is one stake position. Records are never deleted; completed
// records are retained as history.
type StakeRecord struct {
	ID              string            `json:"id"`
	Owner           string            `json:"owner"`
	AmountHP        sdkmath.LegacyDec `json:"amount_hp"`
	ValueUSDAtStake sdkmath.LegacyDec `json:"value_usd_at_stake"`
	StartTime       time.Time         `json:"start_time"`
	EndTime         time.Time         `json:"end_time"`
	APRBps          int64             `json:"apr_bps"` // fixed at creation, 600 = 6%
	Status          StakeStatus       `json:"status"`
	EarlyWithdrawal bool              `json:"early_withdrawal"`
	WithdrawnBy     WithdrawnBy       `json:"withdrawn_by,omitempty"`
}

// IsActive reports whether the record can still transition.
func (r *StakeRecord) IsActive() bool {
	return r.Status == StakeActive
}

// MintPlan describes a validated mint the transaction layer may submit.
// Producing a plan mutates nothing; state is recorded only after the
// on-chain transaction confirms.
type MintPlan struct {
	HPAmount      sdkmath.LegacyDec `json:"hp_amount"`
	RequiredUSDT  sdkmath.LegacyDec `json:"required_usdt"`
	NeedsApproval bool              `json:"needs_approval"`
	// ApprovalUSDT is 2x RequiredUSDT when an approval step is needed, to
	// spare the holder repeated approvals on subsequent mints.
	ApprovalUSDT sdkmath.LegacyDec `json:"approval_usdt"`
}

// BurnPlan describes a validated burn and the expected USDT payout.
type BurnPlan struct {
	HPAmount     sdkmath.LegacyDec `json:"hp_amount"`
	ExpectedUSDT sdkmath.LegacyDec `json:"expected_usdt"`
}

// TransferPlan describes a validated HP transfer.
type TransferPlan struct {
	HPAmount  sdkmath.LegacyDec `json:"hp_amount"`
	Recipient string            `json:"recipient"`
}

// OperationType classifies persisted operation receipts.
type OperationType string

const (
	OpMint             OperationType = "MINT"
	OpBurn             OperationType = "BURN"
	OpStake            OperationType = "STAKE"
	OpClaim            OperationType = "CLAIM"
	OpEarlyUnstake     OperationType = "EARLY_UNSTAKE"
	OpProfitWithdrawal OperationType = "PROFIT_WITHDRAWAL"
	OpRatioChange      OperationType = "RATIO_CHANGE"
)

// OperationReceipt is the persisted outcome of one confirmed operation.
type OperationReceipt struct {
	ReceiptID  int64             `json:"receipt_id,omitempty"` // auto-incremented by DB
	Type       OperationType     `json:"type"`
	Account    string            `json:"account"`
	AmountHP   sdkmath.LegacyDec `json:"amount_hp"`
	AmountUSDT sdkmath.LegacyDec `json:"amount_usdt"`
	TxHash     string            `json:"tx_hash,omitempty"`
	Success    bool              `json:"success"`
	Message    string            `json:"message,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// StakeView is one stake record decorated with accrual figures for display.
type StakeView struct {
	Record         StakeRecord       `json:"record"`
	EarnedReward   sdkmath.LegacyDec `json:"earned_reward"`
	ExpectedReward sdkmath.LegacyDec `json:"expected_reward"`
}

// StakingOverview is the per-account staking summary served to the UI.
type StakingOverview struct {
	Account           string            `json:"account"`
	Stakes            []StakeView       `json:"stakes"`
	TotalStaked       sdkmath.LegacyDec `json:"total_staked"`
	TotalPendingHP    sdkmath.LegacyDec `json:"total_pending_rewards"`
	AvailableCapacity sdkmath.LegacyDec `json:"available_capacity_hp"`
	NextUnlock        *time.Time        `json:"next_unlock,omitempty"`
}
