package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallet-flow-tracker/internal/config"
	apperrors "github.com/wallet-flow-tracker/internal/errors"
	"github.com/wallet-flow-tracker/internal/logging"
	"github.com/wallet-flow-tracker/internal/lookup"
	"github.com/wallet-flow-tracker/internal/models"
	"github.com/wallet-flow-tracker/internal/types"
)

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		InternalBalanceEpsilonUSD: "0.01",
		SwapValueTolerance:        0.15,
		SwapAbsoluteToleranceUSD:  "10",
		TopPerformers:             10,
	}
}

func newTestService(contracts []string) *ReportService {
	wallets := models.NewWalletSet(map[string]string{
		"0xaaa": "Main",
		"0xbbb": "Cold",
	})
	book := models.NewCounterpartyBook([]models.Counterparty{
		{Address: "0xeee", Name: "Coinbase", Kind: types.CounterpartyExchange},
	})
	return NewReportService(
		wallets,
		book,
		lookup.NewStaticLookup(contracts),
		nil,
		testPipelineConfig(),
		logging.NewLogger(logging.LevelError, logging.FormatText),
	)
}

func rawTransfer(hash, wallet, from, to, direction, usdValue string) models.RawTransfer {
	return models.RawTransfer{
		WalletAddress:      wallet,
		TxHash:             hash,
		TimestampUTC:       "2025-03-14 12:00:00",
		TokenSymbol:        "ETH",
		AmountDirection:    direction,
		AmountFull:         "1.0 ETH",
		USDValueFull:       usdValue,
		HistoricalValueUSD: usdValue,
		FromAddress:        from,
		ToAddress:          to,
	}
}

func TestAnalyze_FullPipeline(t *testing.T) {
	svc := newTestService([]string{"0xccc"})

	transfers := []models.RawTransfer{
		// Genuine deposit from a known exchange.
		rawTransfer("0xh1", "0xaaa", "0xeee", "0xaaa", "in", "$2,000.00"),
		// Internal move observed from both wallets.
		rawTransfer("0xh2", "0xaaa", "0xaaa", "0xbbb", "out", "$100.00"),
		rawTransfer("0xh2", "0xbbb", "0xaaa", "0xbbb", "in", "$100.00"),
		// Swap through a contract: must stay out of the external figure.
		rawTransfer("0xh3", "0xaaa", "0xaaa", "0xccc", "out", "$254.36"),
		rawTransfer("0xh3", "0xaaa", "0xccc", "0xaaa", "in", "$253.10"),
	}
	snapshots := []models.RawSnapshot{
		{
			WalletLabel: "Main", Address: "0xaaa", Blockchain: "eth",
			Coin: "ETH", Protocol: "Wallet",
			USDValue: "$100.00", Timestamp: "2025-03-14 12:00:00",
		},
		{
			WalletLabel: "Main", Address: "0xaaa", Blockchain: "eth",
			Coin: "ETH", Protocol: "Wallet",
			USDValue: "$150.00", Timestamp: "2025-03-15 12:00:00",
		},
	}

	result, err := svc.Analyze(context.Background(), transfers, snapshots)
	require.NoError(t, err)

	require.Len(t, result.FlowRecords, 5)
	assert.Equal(t, types.FlowExternalIn, result.FlowRecords[0].Class)
	assert.Equal(t, "Coinbase", result.FlowRecords[0].CounterpartyLabel)
	assert.Equal(t, types.FlowInternal, result.FlowRecords[1].Class)
	assert.Equal(t, types.FlowInternal, result.FlowRecords[2].Class)
	assert.Equal(t, types.FlowNeutral, result.FlowRecords[3].Class)
	assert.Equal(t, types.FlowNeutral, result.FlowRecords[4].Class)

	require.NotNil(t, result.FlowSummary)
	assert.True(t, result.FlowSummary.NetExternal.Equal(result.FlowSummary.TotalExternalIn),
		"only the exchange deposit moves the external figure")
	assert.Equal(t, "2000", result.FlowSummary.NetExternal.String())
	assert.False(t, result.FlowSummary.ConsistencyWarning)

	require.Len(t, result.Positions, 1)
	require.Len(t, result.PnLEntries, 2)
	assert.True(t, result.PnLEntries[0].IsNewPosition)
	assert.Equal(t, "50", result.PnLEntries[1].PnLSinceLastUpdate.String())

	require.NotNil(t, result.Report)
	assert.False(t, result.Report.FinishedAt.IsZero())
	assert.Zero(t, result.Report.Total())
}

func TestAnalyze_FlowsOnly(t *testing.T) {
	svc := newTestService(nil)

	result, err := svc.Analyze(context.Background(), []models.RawTransfer{
		rawTransfer("0xh1", "0xaaa", "0xeee", "0xaaa", "in", "$500.00"),
	}, nil)
	require.NoError(t, err)

	assert.Len(t, result.FlowRecords, 1)
	assert.NotNil(t, result.FlowSummary)
	assert.Nil(t, result.PnLSummary)
	assert.Empty(t, result.Positions)
}

func TestAnalyze_MalformedTransfersCounted(t *testing.T) {
	svc := newTestService(nil)

	bad := rawTransfer("", "0xaaa", "0xeee", "0xaaa", "in", "$500.00")
	good := rawTransfer("0xh1", "0xaaa", "0xeee", "0xaaa", "in", "$500.00")

	result, err := svc.Analyze(context.Background(), []models.RawTransfer{bad, good}, nil)
	require.NoError(t, err)

	assert.Len(t, result.FlowRecords, 1)
	assert.Equal(t, 1, result.Report.Count(types.WarnMalformedRecord))
}

func TestAnalyze_EmptyWalletSetFails(t *testing.T) {
	svc := NewReportService(
		models.NewWalletSet(nil), nil, nil, nil,
		testPipelineConfig(),
		logging.NewLogger(logging.LevelError, logging.FormatText),
	)

	_, err := svc.Analyze(context.Background(), []models.RawTransfer{
		rawTransfer("0xh1", "0xaaa", "0xeee", "0xaaa", "in", "$500.00"),
	}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsFatal(err))
}
