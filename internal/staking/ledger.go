/*

Service-owned staking ledger.

The original system kept stake records in browser local storage, which made the
30-day lock a UI convention. Here the ledger is the single authoritative writer:
records live in memory, are persisted through the state store on every
transition, and are never deleted (completed records are history).

*/

package staking

import (
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"

	"github.com/happy-paisa/hpe/internal/logger"
	"github.com/happy-paisa/hpe/internal/types"
)

var ledgerLogger = logger.GetForComponent("staking_ledger")

const (
	secondsPerDay = 86400
	daysPerYear   = 365
	bpsDivisor    = 10000
)

// Params fixes the staking terms applied to newly created records.
// Existing records keep the terms they were created with.
type Params struct {
	// APRBps is the annualized reward rate in basis points (600 = 6%).
	APRBps int64
	// LockPeriodDays is how long a stake accrues reward and cannot be claimed.
	LockPeriodDays int64
	// MaxStakeValueUSD caps the total USD value one account may have actively staked.
	MaxStakeValueUSD sdkmath.LegacyDec
}

// DefaultParams are the observed production terms: 6% APR, 30-day lock, $1000 cap.
func DefaultParams() Params {
	return Params{
		APRBps:           600,
		LockPeriodDays:   30,
		MaxStakeValueUSD: sdkmath.LegacyNewDec(1000),
	}
}

// Ledger holds every stake record keyed by account, in insertion order.
// It performs no locking of its own; the owning engine serializes access.
type Ledger struct {
	params   Params
	byAcct   map[string][]*types.StakeRecord
	byID     map[string]*types.StakeRecord
	accounts []string // insertion order of first appearance, for deterministic iteration

	now func() time.Time
}

// NewLedger creates an empty ledger with the given terms.
func NewLedger(params Params) (*Ledger, error) {
	if params.APRBps <= 0 {
		return nil, fmt.Errorf("APR bps must be positive, got %d", params.APRBps)
	}
	if params.LockPeriodDays <= 0 {
		return nil, fmt.Errorf("lock period days must be positive, got %d", params.LockPeriodDays)
	}
	if params.MaxStakeValueUSD.IsNil() || !params.MaxStakeValueUSD.IsPositive() {
		return nil, fmt.Errorf("max stake value must be positive, got %s", params.MaxStakeValueUSD)
	}
	return &Ledger{
		params: params,
		byAcct: make(map[string][]*types.StakeRecord),
		byID:   make(map[string]*types.StakeRecord),
		now:    time.Now,
	}, nil
}

// Params returns the terms applied to new stakes.
func (l *Ledger) Params() Params {
	return l.params
}

// Restore loads previously persisted records, preserving their order.
// Used once at startup before the ledger serves any request.
func (l *Ledger) Restore(records []types.StakeRecord) error {
	for i := range records {
		rec := records[i]
		if rec.ID == "" || rec.Owner == "" {
			return fmt.Errorf("stake record %d is missing id or owner", i)
		}
		if _, exists := l.byID[rec.ID]; exists {
			return fmt.Errorf("duplicate stake record id %s", rec.ID)
		}
		l.append(&rec)
	}
	ledgerLogger.Info().Int("records", len(records)).Msg("Staking ledger restored from store")
	return nil
}

func (l *Ledger) append(rec *types.StakeRecord) {
	if _, seen := l.byAcct[rec.Owner]; !seen {
		l.accounts = append(l.accounts, rec.Owner)
	}
	l.byAcct[rec.Owner] = append(l.byAcct[rec.Owner], rec)
	l.byID[rec.ID] = rec
}

// StakedValueUSD returns the USD value of the account's Active stakes at the
// given current price.
func (l *Ledger) StakedValueUSD(account string, priceUSD sdkmath.LegacyDec) sdkmath.LegacyDec {
	total := sdkmath.LegacyZeroDec()
	for _, rec := range l.byAcct[account] {
		if rec.IsActive() {
			total = total.Add(rec.AmountHP.Mul(priceUSD))
		}
	}
	return total
}

// AvailableCapacity returns how much more HP the account may stake:
// min(holder balance, max(0, (cap − active staked value) / price)).
func (l *Ledger) AvailableCapacity(account string, balanceHP, priceUSD sdkmath.LegacyDec) (sdkmath.LegacyDec, error) {
	if priceUSD.IsNil() || !priceUSD.IsPositive() {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: price %s", types.ErrInvalidAmount, priceUSD)
	}
	if balanceHP.IsNil() || balanceHP.IsNegative() {
		return sdkmath.LegacyDec{}, fmt.Errorf("%w: balance %s", types.ErrInvalidAmount, balanceHP)
	}
	headroomUSD := l.params.MaxStakeValueUSD.Sub(l.StakedValueUSD(account, priceUSD))
	if headroomUSD.IsNegative() {
		headroomUSD = sdkmath.LegacyZeroDec()
	}
	capacityHP := headroomUSD.Quo(priceUSD)
	if balanceHP.LT(capacityHP) {
		return balanceHP, nil
	}
	return capacityHP, nil
}

// Stake creates a new Active record for the account. The UI clamps input to
// AvailableCapacity before submission, but the ledger re-validates the balance
// and USD cap independently.
func (l *Ledger) Stake(account string, amountHP, balanceHP, priceUSD sdkmath.LegacyDec) (*types.StakeRecord, error) {
	if amountHP.IsNil() || !amountHP.IsPositive() {
		return nil, fmt.Errorf("%w: stake amount %s", types.ErrInvalidAmount, amountHP)
	}
	if priceUSD.IsNil() || !priceUSD.IsPositive() {
		return nil, fmt.Errorf("%w: price %s", types.ErrInvalidAmount, priceUSD)
	}
	if amountHP.GT(balanceHP) {
		return nil, fmt.Errorf("%w: staking %s HP with balance %s", types.ErrInsufficientBalance, amountHP, balanceHP)
	}

	valueUSD := amountHP.Mul(priceUSD)
	if valueUSD.GT(l.params.MaxStakeValueUSD) {
		return nil, fmt.Errorf("%w: stake worth %s USD, cap is %s", types.ErrExceedsStakeCap, valueUSD, l.params.MaxStakeValueUSD)
	}
	combinedUSD := valueUSD.Add(l.StakedValueUSD(account, priceUSD))
	if combinedUSD.GT(l.params.MaxStakeValueUSD) {
		return nil, fmt.Errorf("%w: combined active stakes worth %s USD, cap is %s", types.ErrExceedsStakeCap, combinedUSD, l.params.MaxStakeValueUSD)
	}

	now := l.now().UTC()
	rec := &types.StakeRecord{
		ID:              uuid.NewString(),
		Owner:           account,
		AmountHP:        amountHP,
		ValueUSDAtStake: valueUSD,
		StartTime:       now,
		EndTime:         now.Add(time.Duration(l.params.LockPeriodDays) * 24 * time.Hour),
		APRBps:          l.params.APRBps,
		Status:          types.StakeActive,
	}
	l.append(rec)

	ledgerLogger.Info().
		Str("account", account).
		Str("stakeId", rec.ID).
		Str("amountHP", amountHP.String()).
		Str("valueUSD", valueUSD.String()).
		Time("unlocksAt", rec.EndTime).
		Msg("Stake created")
	return rec, nil
}

// CurrentReward returns the reward accrued by the record as of the given time.
// Accrual is linear per day, not compounding, and stops exactly at the lock
// period even if the stake is left unclaimed.
func CurrentReward(rec *types.StakeRecord, asOf time.Time) sdkmath.LegacyDec {
	if !asOf.After(rec.StartTime) {
		return sdkmath.LegacyZeroDec()
	}
	elapsedSecs := int64(asOf.Sub(rec.StartTime) / time.Second)
	lockSecs := int64(rec.EndTime.Sub(rec.StartTime) / time.Second)
	if elapsedSecs > lockSecs {
		elapsedSecs = lockSecs
	}
	days := sdkmath.LegacyNewDec(elapsedSecs).QuoInt64(secondsPerDay)
	// amount × (bps/10000) / 365 × days
	return rec.AmountHP.MulInt64(rec.APRBps).QuoInt64(bpsDivisor).QuoInt64(daysPerYear).Mul(days)
}

// Claim completes a matured stake for its holder. Fails StillLocked before the
// end time. Returns the total HP to release: principal plus the full-term reward.
func (l *Ledger) Claim(recordID string) (sdkmath.LegacyDec, *types.StakeRecord, error) {
	rec, ok := l.byID[recordID]
	if !ok {
		return sdkmath.LegacyDec{}, nil, fmt.Errorf("%w: %s", types.ErrNotFound, recordID)
	}
	if !rec.IsActive() {
		return sdkmath.LegacyDec{}, nil, fmt.Errorf("%w: %s", types.ErrNotActive, recordID)
	}
	now := l.now().UTC()
	if now.Before(rec.EndTime) {
		return sdkmath.LegacyDec{}, nil, fmt.Errorf("%w: unlocks at %s", types.ErrStillLocked, rec.EndTime.Format(time.RFC3339))
	}

	finalReward := CurrentReward(rec, rec.EndTime)
	rec.Status = types.StakeCompleted
	rec.WithdrawnBy = types.WithdrawnByHolder
	payout := rec.AmountHP.Add(finalReward)

	ledgerLogger.Info().
		Str("account", rec.Owner).
		Str("stakeId", rec.ID).
		Str("principal", rec.AmountHP.String()).
		Str("reward", finalReward.String()).
		Msg("Stake claimed")
	return payout, rec, nil
}

// OwnerUnstakeEarly completes a stake before maturity. Owner capability only.
// The principal is not forfeited but accrual is truncated at call time.
func (l *Ledger) OwnerUnstakeEarly(role types.Role, recordID string) (sdkmath.LegacyDec, *types.StakeRecord, error) {
	if role != types.RoleOwner {
		return sdkmath.LegacyDec{}, nil, fmt.Errorf("%w: early unstake", types.ErrUnauthorized)
	}
	rec, ok := l.byID[recordID]
	if !ok {
		return sdkmath.LegacyDec{}, nil, fmt.Errorf("%w: %s", types.ErrNotFound, recordID)
	}
	if !rec.IsActive() {
		return sdkmath.LegacyDec{}, nil, fmt.Errorf("%w: %s", types.ErrNotActive, recordID)
	}

	now := l.now().UTC()
	partialReward := CurrentReward(rec, now)
	rec.Status = types.StakeCompleted
	rec.EarlyWithdrawal = true
	rec.WithdrawnBy = types.WithdrawnByOwner
	payout := rec.AmountHP.Add(partialReward)

	ledgerLogger.Warn().
		Str("account", rec.Owner).
		Str("stakeId", rec.ID).
		Str("principal", rec.AmountHP.String()).
		Str("partialReward", partialReward.String()).
		Msg("Stake withdrawn early by owner")
	return payout, rec, nil
}

// Discard removes a record whose persistence failed before it was ever
// observable. It unwinds Stake only; completed records are history and stay.
func (l *Ledger) Discard(recordID string) {
	rec, ok := l.byID[recordID]
	if !ok {
		return
	}
	delete(l.byID, recordID)
	recs := l.byAcct[rec.Owner]
	for i := range recs {
		if recs[i].ID == recordID {
			l.byAcct[rec.Owner] = append(recs[:i], recs[i+1:]...)
			break
		}
	}
	ledgerLogger.Warn().Str("stakeId", recordID).Msg("Discarded unpersisted stake record")
}

// Reactivate unwinds a completion whose persistence failed. A record only ever
// transitions out of Active, so the prior state is fully determined and the
// stake stays claimable.
func (l *Ledger) Reactivate(recordID string) error {
	rec, ok := l.byID[recordID]
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrNotFound, recordID)
	}
	rec.Status = types.StakeActive
	rec.EarlyWithdrawal = false
	rec.WithdrawnBy = ""
	ledgerLogger.Warn().Str("stakeId", recordID).Msg("Reactivated unpersisted stake completion")
	return nil
}

// Get returns the record with the given id.
func (l *Ledger) Get(recordID string) (*types.StakeRecord, error) {
	rec, ok := l.byID[recordID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, recordID)
	}
	return rec, nil
}

// Records returns every record for the account, completed ones included,
// in insertion order.
func (l *Ledger) Records(account string) []types.StakeRecord {
	recs := l.byAcct[account]
	out := make([]types.StakeRecord, 0, len(recs))
	for _, rec := range recs {
		out = append(out, *rec)
	}
	return out
}

// TotalStaked returns the summed principal of the account's Active stakes.
func (l *Ledger) TotalStaked(account string) sdkmath.LegacyDec {
	total := sdkmath.LegacyZeroDec()
	for _, rec := range l.byAcct[account] {
		if rec.IsActive() {
			total = total.Add(rec.AmountHP)
		}
	}
	return total
}

// TotalPendingRewards returns the summed accrued reward of the account's
// Active stakes as of the given time.
func (l *Ledger) TotalPendingRewards(account string, asOf time.Time) sdkmath.LegacyDec {
	total := sdkmath.LegacyZeroDec()
	for _, rec := range l.byAcct[account] {
		if rec.IsActive() {
			total = total.Add(CurrentReward(rec, asOf))
		}
	}
	return total
}

// NextUnlock returns the earliest end time among the account's Active stakes.
// The second return is false when the account has no active stake.
func (l *Ledger) NextUnlock(account string) (time.Time, bool) {
	var next time.Time
	found := false
	for _, rec := range l.byAcct[account] {
		if !rec.IsActive() {
			continue
		}
		if !found || rec.EndTime.Before(next) {
			next = rec.EndTime
			found = true
		}
	}
	return next, found
}

// Overview assembles the per-account staking summary served to the UI.
func (l *Ledger) Overview(account string, balanceHP, priceUSD sdkmath.LegacyDec) (types.StakingOverview, error) {
	capacity, err := l.AvailableCapacity(account, balanceHP, priceUSD)
	if err != nil {
		return types.StakingOverview{}, err
	}
	now := l.now().UTC()

	overview := types.StakingOverview{
		Account:           account,
		TotalStaked:       l.TotalStaked(account),
		TotalPendingHP:    l.TotalPendingRewards(account, now),
		AvailableCapacity: capacity,
	}
	for _, rec := range l.byAcct[account] {
		overview.Stakes = append(overview.Stakes, types.StakeView{
			Record:         *rec,
			EarnedReward:   CurrentReward(rec, now),
			ExpectedReward: CurrentReward(rec, rec.EndTime),
		})
	}
	if next, ok := l.NextUnlock(account); ok {
		overview.NextUnlock = &next
	}
	return overview, nil
}
