package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wallet-flow-tracker/internal/models"
	"github.com/wallet-flow-tracker/internal/types"
)

// FlowRepository persists classified flow records in ClickHouse
type FlowRepository struct {
	db *ClickHouseDB
}

// NewFlowRepository creates a new flow repository
func NewFlowRepository(db *ClickHouseDB) *FlowRepository {
	return &FlowRepository{db: db}
}

// BatchInsert inserts classified flow records for a run
func (r *FlowRepository) BatchInsert(ctx context.Context, runID uuid.UUID, records []models.FlowRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO flow_records (
			run_id, tx_hash, timestamp, token_symbol, amount_usd,
			from_address, to_address, wallet_address, wallet_label,
			direction, flow_class, paired_leg, confidence,
			counterparty_label, note, historical_price, sign_passed_through
		)
	`

	batch, err := r.db.Conn().PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, rec := range records {
		err := batch.Append(
			runID.String(),
			rec.TxHash,
			rec.Timestamp,
			rec.TokenSymbol,
			rec.AmountUSD,
			rec.From,
			rec.To,
			rec.Wallet,
			rec.WalletLabel,
			string(rec.Direction),
			string(rec.Class),
			int32(rec.PairedLeg),
			int32(rec.Confidence),
			rec.CounterpartyLabel,
			rec.Note,
			rec.HistoricalPrice,
			rec.SignPassedThrough,
		)
		if err != nil {
			return fmt.Errorf("failed to append flow record to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// ListByWallet retrieves flow records for a wallet, newest first
func (r *FlowRepository) ListByWallet(ctx context.Context, wallet string, limit int) ([]models.FlowRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT tx_hash, timestamp, token_symbol, amount_usd,
			   from_address, to_address, wallet_address, wallet_label,
			   direction, flow_class, paired_leg, confidence,
			   counterparty_label, note, historical_price, sign_passed_through
		FROM flow_records
		WHERE wallet_address = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`

	rows, err := r.db.Conn().Query(ctx, query, models.NormalizeAddress(wallet), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query flow records: %w", err)
	}
	defer rows.Close()

	var records []models.FlowRecord
	for rows.Next() {
		var rec models.FlowRecord
		var direction, class string
		var pairedLeg, confidence int32
		err := rows.Scan(
			&rec.TxHash,
			&rec.Timestamp,
			&rec.TokenSymbol,
			&rec.AmountUSD,
			&rec.From,
			&rec.To,
			&rec.Wallet,
			&rec.WalletLabel,
			&direction,
			&class,
			&pairedLeg,
			&confidence,
			&rec.CounterpartyLabel,
			&rec.Note,
			&rec.HistoricalPrice,
			&rec.SignPassedThrough,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow record: %w", err)
		}
		rec.Direction = types.Direction(direction)
		rec.Class = types.FlowClass(class)
		rec.PairedLeg = int(pairedLeg)
		rec.Confidence = int(confidence)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// NetExternalByWallet sums signed external flow per wallet over a time range
func (r *FlowRepository) NetExternalByWallet(ctx context.Context, from, to time.Time) (map[string]decimal.Decimal, error) {
	query := `
		SELECT wallet_address, sum(amount_usd) AS net_external
		FROM flow_records
		WHERE flow_class IN ('EXTERNAL_IN', 'EXTERNAL_OUT')
		  AND timestamp >= ? AND timestamp < ?
		GROUP BY wallet_address
	`

	rows, err := r.db.Conn().Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query net external flow: %w", err)
	}
	defer rows.Close()

	result := make(map[string]decimal.Decimal)
	for rows.Next() {
		var wallet string
		var net decimal.Decimal
		if err := rows.Scan(&wallet, &net); err != nil {
			return nil, fmt.Errorf("failed to scan net external flow: %w", err)
		}
		result[wallet] = net
	}
	return result, rows.Err()
}
