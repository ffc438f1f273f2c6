package position

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallet-flow-tracker/internal/models"
)

var trackerTime = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func testPosition(wallet, coin string, values []string, step time.Duration) *models.Position {
	key := models.PositionKey{
		WalletLabel: wallet,
		Address:     "0xaaa",
		Blockchain:  "eth",
		Coin:        coin,
		Protocol:    "Wallet",
	}
	snapshots := make([]models.Snapshot, 0, len(values))
	for i, v := range values {
		snapshots = append(snapshots, models.Snapshot{
			Key:       key,
			USDValue:  usd(v),
			Timestamp: trackerTime.Add(time.Duration(i) * step),
			Sequence:  i,
		})
	}
	return &models.Position{Key: key, Snapshots: snapshots}
}

func TestCompute_Timeline(t *testing.T) {
	tracker := NewTracker(0)
	pos := testPosition("Main", "ETH", []string{"100", "150", "120"}, 24*time.Hour)

	entries := tracker.Compute(context.Background(), []*models.Position{pos})
	require.Len(t, entries, 3)

	first := entries[0]
	assert.True(t, first.IsNewPosition)
	assert.True(t, first.PnLSinceLastUpdate.IsZero())
	assert.True(t, first.PreviousValue.IsZero())
	assert.Nil(t, first.PnLPercentage, "a new position has no base to compute a percentage from")
	assert.Equal(t, 0, first.UpdateSequence)

	second := entries[1]
	assert.False(t, second.IsNewPosition)
	assert.True(t, second.PnLSinceLastUpdate.Equal(usd("50")))
	assert.True(t, second.PreviousValue.Equal(usd("100")))
	require.NotNil(t, second.PnLPercentage)
	assert.InDelta(t, 50.0, *second.PnLPercentage, 1e-9)
	assert.InDelta(t, 1.0, second.DaysSinceLastUpdate, 1e-9)

	third := entries[2]
	assert.True(t, third.PnLSinceLastUpdate.Equal(usd("-30")))
	require.NotNil(t, third.PnLPercentage)
	assert.InDelta(t, -20.0, *third.PnLPercentage, 1e-9)
}

func TestCompute_FractionalDays(t *testing.T) {
	tracker := NewTracker(0)
	pos := testPosition("Main", "ETH", []string{"100", "110"}, 6*time.Hour)

	entries := tracker.Compute(context.Background(), []*models.Position{pos})
	require.Len(t, entries, 2)
	assert.InDelta(t, 0.25, entries[1].DaysSinceLastUpdate, 1e-9)
}

func TestCompute_Ordering(t *testing.T) {
	tracker := NewTracker(0)

	// Two positions with interleaved timestamps; entries must come back in
	// global time order, ties broken by position id.
	eth := testPosition("Main", "ETH", []string{"100", "150"}, 48*time.Hour)
	usdc := testPosition("Main", "USDC", []string{"50", "55"}, 24*time.Hour)

	entries := tracker.Compute(context.Background(), []*models.Position{eth, usdc})
	require.Len(t, entries, 4)

	for i := 1; i < len(entries); i++ {
		prev, curr := entries[i-1], entries[i]
		ordered := prev.Timestamp.Before(curr.Timestamp) ||
			(prev.Timestamp.Equal(curr.Timestamp) && prev.PositionID <= curr.PositionID)
		assert.True(t, ordered, "entry %d out of order", i)
	}
}

func TestCompute_Empty(t *testing.T) {
	tracker := NewTracker(0)
	assert.Empty(t, tracker.Compute(context.Background(), nil))
}

func TestSummarize(t *testing.T) {
	tracker := NewTracker(0)

	positions := []*models.Position{
		testPosition("Main", "ETH", []string{"100", "150", "120"}, 24*time.Hour),
		testPosition("Main", "USDC", []string{"50", "50"}, 24*time.Hour),
		testPosition("Cold", "BTC", []string{"1000", "900"}, 24*time.Hour),
	}
	entries := tracker.Compute(context.Background(), positions)

	summary := tracker.Summarize(positions, entries)

	assert.Equal(t, 3, summary.TotalPositions)
	assert.Equal(t, 3, summary.NewPositions)
	// ETH +50 and -30, BTC -100; the flat USDC update has no PnL.
	assert.Equal(t, 3, summary.PositionsWithPnL)
	assert.Equal(t, 1, summary.Profitable)
	assert.Equal(t, 2, summary.Losing)
	assert.InDelta(t, 100.0/3.0, summary.WinRate, 1e-9)
	assert.True(t, summary.TotalPnL.Equal(usd("-80")))

	require.Contains(t, summary.PerWallet, "Main")
	require.Contains(t, summary.PerWallet, "Cold")
	assert.True(t, summary.PerWallet["Main"].TotalPnL.Equal(usd("20")))
	assert.True(t, summary.PerWallet["Cold"].TotalPnL.Equal(usd("-100")))
	assert.True(t, summary.PerWallet["Cold"].AveragePnL.Equal(usd("-100")))
}

func TestSummarize_Performers(t *testing.T) {
	tracker := NewTracker(2)

	positions := []*models.Position{
		testPosition("Main", "ETH", []string{"100", "160"}, 24*time.Hour),  // +60
		testPosition("Main", "USDC", []string{"50", "55"}, 24*time.Hour),   // +5
		testPosition("Cold", "BTC", []string{"1000", "900"}, 24*time.Hour), // -100
	}
	entries := tracker.Compute(context.Background(), positions)

	summary := tracker.Summarize(positions, entries)

	require.Len(t, summary.TopPerformers, 2)
	assert.Equal(t, "ETH", summary.TopPerformers[0].Key.Coin)
	assert.True(t, summary.TopPerformers[0].CumulativePnL.Equal(usd("60")))
	assert.Equal(t, "USDC", summary.TopPerformers[1].Key.Coin)

	require.Len(t, summary.BottomPerformers, 2)
	assert.Equal(t, "BTC", summary.BottomPerformers[0].Key.Coin)
	assert.True(t, summary.BottomPerformers[0].CumulativePnL.Equal(usd("-100")))
}

func TestSummarize_DailyBuckets(t *testing.T) {
	tracker := NewTracker(0)

	pos := testPosition("Main", "ETH", []string{"100", "150", "120"}, 24*time.Hour)
	entries := tracker.Compute(context.Background(), []*models.Position{pos})

	summary := tracker.Summarize([]*models.Position{pos}, entries)

	require.Len(t, summary.Daily, 2, "the zero-PnL opening entry makes no bucket")
	assert.True(t, summary.Daily[0].Date.Before(summary.Daily[1].Date))
	assert.True(t, summary.Daily[0].TotalPnL.Equal(usd("50")))
	assert.True(t, summary.Daily[1].TotalPnL.Equal(usd("-30")))
}

func TestSummarize_NoEntries(t *testing.T) {
	tracker := NewTracker(0)
	summary := tracker.Summarize(nil, nil)

	assert.Zero(t, summary.TotalPositions)
	assert.Zero(t, summary.WinRate)
	assert.Empty(t, summary.TopPerformers)
	assert.Empty(t, summary.BottomPerformers)
}
