package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wallet-flow-tracker/internal/models"
)

// PnLRepository persists per-position PnL entries in ClickHouse
type PnLRepository struct {
	db *ClickHouseDB
}

// NewPnLRepository creates a new PnL repository
func NewPnLRepository(db *ClickHouseDB) *PnLRepository {
	return &PnLRepository{db: db}
}

// BatchInsert inserts PnL entries for a run
func (r *PnLRepository) BatchInsert(ctx context.Context, runID uuid.UUID, entries []models.PnLEntry) error {
	if len(entries) == 0 {
		return nil
	}

	query := `
		INSERT INTO pnl_entries (
			run_id, position_id, wallet_label, address, blockchain, coin, protocol,
			timestamp, usd_value, previous_value, pnl_since_last_update,
			pnl_percentage, days_since_last_update, is_new_position, update_sequence
		)
	`

	batch, err := r.db.Conn().PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, entry := range entries {
		err := batch.Append(
			runID.String(),
			entry.PositionID,
			entry.Key.WalletLabel,
			entry.Key.Address,
			entry.Key.Blockchain,
			entry.Key.Coin,
			entry.Key.Protocol,
			entry.Timestamp,
			entry.USDValue,
			entry.PreviousValue,
			entry.PnLSinceLastUpdate,
			entry.PnLPercentage,
			entry.DaysSinceLastUpdate,
			entry.IsNewPosition,
			uint32(entry.UpdateSequence),
		)
		if err != nil {
			return fmt.Errorf("failed to append pnl entry to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// ListByPosition retrieves the stored timeline for one position
func (r *PnLRepository) ListByPosition(ctx context.Context, positionID string) ([]models.PnLEntry, error) {
	query := `
		SELECT position_id, wallet_label, address, blockchain, coin, protocol,
			   timestamp, usd_value, previous_value, pnl_since_last_update,
			   pnl_percentage, days_since_last_update, is_new_position, update_sequence
		FROM pnl_entries
		WHERE position_id = ?
		ORDER BY timestamp ASC, update_sequence ASC
	`

	rows, err := r.db.Conn().Query(ctx, query, positionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pnl entries: %w", err)
	}
	defer rows.Close()

	var entries []models.PnLEntry
	for rows.Next() {
		var entry models.PnLEntry
		var sequence uint32
		err := rows.Scan(
			&entry.PositionID,
			&entry.Key.WalletLabel,
			&entry.Key.Address,
			&entry.Key.Blockchain,
			&entry.Key.Coin,
			&entry.Key.Protocol,
			&entry.Timestamp,
			&entry.USDValue,
			&entry.PreviousValue,
			&entry.PnLSinceLastUpdate,
			&entry.PnLPercentage,
			&entry.DaysSinceLastUpdate,
			&entry.IsNewPosition,
			&sequence,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pnl entry: %w", err)
		}
		entry.UpdateSequence = int(sequence)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// DailyTotals sums stored PnL per snapshot timestamp over a time range
func (r *PnLRepository) DailyTotals(ctx context.Context, from, to time.Time) ([]models.DailyPnL, error) {
	query := `
		SELECT toStartOfDay(timestamp) AS day,
			   sum(pnl_since_last_update) AS total_pnl,
			   count() AS position_count
		FROM pnl_entries
		WHERE timestamp >= ? AND timestamp < ?
		GROUP BY day
		ORDER BY day ASC
	`

	rows, err := r.db.Conn().Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily pnl: %w", err)
	}
	defer rows.Close()

	var totals []models.DailyPnL
	for rows.Next() {
		var daily models.DailyPnL
		var count uint64
		if err := rows.Scan(&daily.Date, &daily.TotalPnL, &count); err != nil {
			return nil, fmt.Errorf("failed to scan daily pnl: %w", err)
		}
		daily.PositionCount = int(count)
		if count > 0 {
			daily.AveragePnL = daily.TotalPnL.Div(decimal.NewFromInt(int64(count)))
		}
		totals = append(totals, daily)
	}
	return totals, rows.Err()
}
