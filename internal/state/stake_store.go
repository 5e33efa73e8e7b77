package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/happy-paisa/hpe/internal/types"
)

// InsertStakeRecord persists a newly created stake record.
func InsertStakeRecord(rec *types.StakeRecord) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
		INSERT INTO stake_records (
			id, owner_account, amount_hp, value_usd_at_stake,
			start_time, end_time, apr_bps, status, early_withdrawal, withdrawn_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err := DB.Exec(stmt,
		rec.ID, rec.Owner, rec.AmountHP.String(), rec.ValueUSDAtStake.String(),
		rec.StartTime, rec.EndTime, rec.APRBps, string(rec.Status),
		rec.EarlyWithdrawal, nullableString(string(rec.WithdrawnBy)),
	)
	if err != nil {
		return fmt.Errorf("failed to insert stake record %s: %w", rec.ID, err)
	}
	return nil
}

// UpdateStakeRecord writes through a stake transition (Active -> Completed).
func UpdateStakeRecord(rec *types.StakeRecord) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
		UPDATE stake_records
		SET status = $2, early_withdrawal = $3, withdrawn_by = $4
		WHERE id = $1;
	`
	res, err := DB.Exec(stmt, rec.ID, string(rec.Status), rec.EarlyWithdrawal, nullableString(string(rec.WithdrawnBy)))
	if err != nil {
		return fmt.Errorf("failed to update stake record %s: %w", rec.ID, err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("stake record %s not found in store", rec.ID)
	}
	return nil
}

// LoadAllStakeRecords reads every persisted stake record in creation order,
// completed records included. Used once at startup to restore the ledger.
func LoadAllStakeRecords() ([]types.StakeRecord, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT id, owner_account, amount_hp, value_usd_at_stake,
		       start_time, end_time, apr_bps, status, early_withdrawal, withdrawn_by
		FROM stake_records
		ORDER BY created_at, id;
	`
	rows, err := DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query stake records: %w", err)
	}
	defer rows.Close()

	var records []types.StakeRecord
	for rows.Next() {
		var rec types.StakeRecord
		var amountStr, valueStr, status string
		var withdrawnBy sql.NullString

		err := rows.Scan(
			&rec.ID, &rec.Owner, &amountStr, &valueStr,
			&rec.StartTime, &rec.EndTime, &rec.APRBps, &status,
			&rec.EarlyWithdrawal, &withdrawnBy,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stake record: %w", err)
		}

		rec.AmountHP, err = decFromDB(amountStr)
		if err != nil {
			return nil, fmt.Errorf("stake record %s: invalid amount: %w", rec.ID, err)
		}
		rec.ValueUSDAtStake, err = decFromDB(valueStr)
		if err != nil {
			return nil, fmt.Errorf("stake record %s: invalid stake value: %w", rec.ID, err)
		}
		rec.Status = types.StakeStatus(status)
		if withdrawnBy.Valid {
			rec.WithdrawnBy = types.WithdrawnBy(withdrawnBy.String)
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during stake record iteration: %w", err)
	}

	log.Info().Int("count", len(records)).Msg("Loaded stake records from store")
	return records, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
