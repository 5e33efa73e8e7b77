package state

import (
	"database/sql"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/happy-paisa/hpe/internal/types"
)

// SaveOperationReceipt persists the outcome of one confirmed operation.
func SaveOperationReceipt(receipt *types.OperationReceipt) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	stmt := `
		INSERT INTO operation_receipts (
			op_timestamp, op_type, account, amount_hp, amount_usdt, tx_hash, success, message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING receipt_id;
	`
	err := DB.QueryRow(stmt,
		receipt.Timestamp, string(receipt.Type), receipt.Account,
		decOrNull(receipt.AmountHP), decOrNull(receipt.AmountUSDT),
		nullableString(receipt.TxHash), receipt.Success, nullableString(receipt.Message),
	).Scan(&receipt.ReceiptID)
	if err != nil {
		return fmt.Errorf("failed to save operation receipt: %w", err)
	}
	return nil
}

// GetRecentReceipts retrieves recent operation receipts, newest first.
func GetRecentReceipts(limit int) ([]types.OperationReceipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	if limit <= 0 || limit > 100 {
		limit = 20 // Default limit
	}

	query := `
		SELECT receipt_id, op_timestamp, op_type, account, amount_hp, amount_usdt, tx_hash, success, message
		FROM operation_receipts
		ORDER BY op_timestamp DESC
		LIMIT $1;
	`
	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query operation receipts: %w", err)
	}
	defer rows.Close()

	var receipts []types.OperationReceipt
	for rows.Next() {
		var r types.OperationReceipt
		var opType string
		var amountHP, amountUSDT, txHash, message sql.NullString

		err := rows.Scan(&r.ReceiptID, &r.Timestamp, &opType, &r.Account,
			&amountHP, &amountUSDT, &txHash, &r.Success, &message)
		if err != nil {
			log.Error().Err(err).Msg("Failed to scan operation receipt row")
			continue // Skip this row and continue with others
		}

		r.Type = types.OperationType(opType)
		if amountHP.Valid {
			if r.AmountHP, err = decFromDB(amountHP.String); err != nil {
				log.Error().Err(err).Int64("receipt", r.ReceiptID).Msg("Invalid HP amount in receipt")
				continue
			}
		}
		if amountUSDT.Valid {
			if r.AmountUSDT, err = decFromDB(amountUSDT.String); err != nil {
				log.Error().Err(err).Int64("receipt", r.ReceiptID).Msg("Invalid USDT amount in receipt")
				continue
			}
		}
		r.TxHash = txHash.String
		r.Message = message.String

		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during receipt iteration: %w", err)
	}

	return receipts, nil
}

func decOrNull(d sdkmath.LegacyDec) sql.NullString {
	if d.IsNil() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
