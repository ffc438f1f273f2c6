// Package normalize converts raw transaction rows into canonical transfers.
package normalize

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wallet-flow-tracker/internal/errors"
	"github.com/wallet-flow-tracker/internal/ingest"
	"github.com/wallet-flow-tracker/internal/logging"
	"github.com/wallet-flow-tracker/internal/models"
	"github.com/wallet-flow-tracker/internal/types"
)

// Normalizer turns RawTransfer rows into Transfers, dropping malformed rows
// into the run report instead of failing the batch.
type Normalizer struct {
	report *models.RunReport
}

// NewNormalizer creates a normalizer that records drops on the given report.
func NewNormalizer(report *models.RunReport) *Normalizer {
	return &Normalizer{report: report}
}

// Normalize converts one raw row. It returns a MalformedRecord error when the
// hash, the timestamp, or both addresses are absent; callers drop such rows
// and count them.
func (n *Normalizer) Normalize(raw models.RawTransfer, rowIndex int) (models.Transfer, error) {
	hash := strings.TrimSpace(raw.TxHash)
	if hash == "" {
		return models.Transfer{}, errors.NewMalformedRecordError("missing transaction hash", rowIndex)
	}

	timestamp, ok := ingest.ParseTimestamp(raw.TimestampUTC)
	if !ok {
		return models.Transfer{}, errors.NewMalformedRecordError("missing or unparseable timestamp", rowIndex)
	}

	from := models.NormalizeAddress(raw.FromAddress)
	to := models.NormalizeAddress(raw.ToAddress)
	if from == "" && to == "" {
		return models.Transfer{}, errors.NewMalformedRecordError("both counterparty addresses absent", rowIndex)
	}

	// Historical-price-derived value wins over the point-in-time value: the
	// point-in-time column reflects whenever the collector happened to run,
	// not when the transfer happened.
	usd := ingest.ParseCurrency(raw.HistoricalValueUSD)
	historical := usd.IsPositive()
	if !historical {
		usd = ingest.ParseCurrency(raw.USDValueFull)
	}

	direction := ingest.ParseDirection(raw.AmountDirection, raw.AmountFull)

	signed, passedThrough := applyDirection(usd, direction, raw.AmountFull)

	return models.Transfer{
		TxHash:            hash,
		Timestamp:         timestamp,
		TokenSymbol:       strings.TrimSpace(raw.TokenSymbol),
		AmountUSD:         signed,
		From:              from,
		To:                to,
		Wallet:            models.NormalizeAddress(raw.WalletAddress),
		Direction:         direction,
		HistoricalPrice:   historical,
		SignPassedThrough: passedThrough,
	}, nil
}

// applyDirection resolves the signed amount. IN forces positive, OUT forces
// negative. NEUTRAL and UNKNOWN pass the raw sign through and flag the
// transfer for downstream scrutiny.
func applyDirection(usd decimal.Decimal, direction types.Direction, amountFull string) (decimal.Decimal, bool) {
	switch direction {
	case types.DirectionIn:
		return usd.Abs(), false
	case types.DirectionOut:
		return usd.Abs().Neg(), false
	default:
		if strings.HasPrefix(strings.TrimSpace(amountFull), "-") {
			return usd.Abs().Neg(), true
		}
		return usd, true
	}
}

// NormalizeAll converts a batch, dropping malformed rows with a counted
// warning each. The batch never fails on a bad row.
func (n *Normalizer) NormalizeAll(ctx context.Context, raws []models.RawTransfer) []models.Transfer {
	logger := logging.FromContext(ctx)

	transfers := make([]models.Transfer, 0, len(raws))
	dropped := 0
	for i, raw := range raws {
		transfer, err := n.Normalize(raw, i)
		if err != nil {
			dropped++
			if n.report != nil {
				if category, ok := errors.WarningCategoryOf(err); ok {
					n.report.Add(category, err.Error())
				}
			}
			continue
		}
		transfers = append(transfers, transfer)
	}

	if dropped > 0 {
		logger.WithFields(map[string]interface{}{
			"dropped": dropped,
			"total":   len(raws),
		}).Warn("Dropped malformed transaction rows")
	}

	return transfers
}
