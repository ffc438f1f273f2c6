package position

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/wallet-flow-tracker/internal/logging"
	"github.com/wallet-flow-tracker/internal/models"
)

const hoursPerDay = 24.0

// Tracker computes incremental PnL along matched position timelines.
type Tracker struct {
	// topN is how many top/bottom performers summaries carry.
	topN int
}

// NewTracker creates a tracker. topN falls back to 10.
func NewTracker(topN int) *Tracker {
	if topN <= 0 {
		topN = 10
	}
	return &Tracker{topN: topN}
}

// Compute derives one PnLEntry per observation. The first observation of a
// position is flagged new with zero PnL and an implicit prior value of zero.
// Every later observation carries the value change since its predecessor.
// Entries come back ordered by timestamp, then position id for determinism.
func (t *Tracker) Compute(ctx context.Context, positions []*models.Position) []models.PnLEntry {
	logger := logging.FromContext(ctx)

	var entries []models.PnLEntry
	for _, pos := range positions {
		entries = append(entries, t.computePosition(pos)...)
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		}
		return entries[i].PositionID < entries[j].PositionID
	})

	logger.WithFields(map[string]interface{}{
		"positions": len(positions),
		"entries":   len(entries),
	}).Debug("Computed position PnL entries")

	return entries
}

func (t *Tracker) computePosition(pos *models.Position) []models.PnLEntry {
	entries := make([]models.PnLEntry, 0, len(pos.Snapshots))
	id := pos.ID()

	for i, snap := range pos.Snapshots {
		entry := models.PnLEntry{
			PositionID:     id,
			Key:            pos.Key,
			Timestamp:      snap.Timestamp,
			USDValue:       snap.USDValue,
			UpdateSequence: snap.Sequence,
		}

		if i == 0 {
			entry.IsNewPosition = true
			entry.PreviousValue = decimal.Zero
			entry.PnLSinceLastUpdate = decimal.Zero
			// PnLPercentage stays nil: there is no prior value to divide by.
		} else {
			prev := pos.Snapshots[i-1]
			entry.PreviousValue = prev.USDValue
			entry.PnLSinceLastUpdate = snap.USDValue.Sub(prev.USDValue)
			if prev.USDValue.IsPositive() {
				pct, _ := entry.PnLSinceLastUpdate.
					Div(prev.USDValue).
					Mul(decimal.NewFromInt(100)).
					Float64()
				entry.PnLPercentage = &pct
			}
			entry.DaysSinceLastUpdate = snap.Timestamp.Sub(prev.Timestamp).Hours() / hoursPerDay
		}

		entries = append(entries, entry)
	}
	return entries
}

// Summarize produces the statistics the reporting layer consumes.
func (t *Tracker) Summarize(positions []*models.Position, entries []models.PnLEntry) *models.PnLSummary {
	summary := &models.PnLSummary{
		TotalPositions: len(positions),
		PerWallet:      make(map[string]*models.WalletPnL),
	}

	daily := make(map[int64]*models.DailyPnL)

	for i := range entries {
		entry := &entries[i]
		summary.TotalPnL = summary.TotalPnL.Add(entry.PnLSinceLastUpdate)
		if entry.IsNewPosition {
			summary.NewPositions++
		}
		if entry.PnLSinceLastUpdate.IsZero() {
			continue
		}

		summary.PositionsWithPnL++
		if entry.PnLSinceLastUpdate.IsPositive() {
			summary.Profitable++
		} else {
			summary.Losing++
		}

		wallet, ok := summary.PerWallet[entry.Key.WalletLabel]
		if !ok {
			wallet = &models.WalletPnL{WalletLabel: entry.Key.WalletLabel}
			summary.PerWallet[entry.Key.WalletLabel] = wallet
		}
		wallet.TotalPnL = wallet.TotalPnL.Add(entry.PnLSinceLastUpdate)
		wallet.PositionCount++

		dayKey := entry.Timestamp.Unix()
		day, ok := daily[dayKey]
		if !ok {
			day = &models.DailyPnL{Date: entry.Timestamp}
			daily[dayKey] = day
		}
		day.TotalPnL = day.TotalPnL.Add(entry.PnLSinceLastUpdate)
		day.PositionCount++
	}

	if summary.PositionsWithPnL > 0 {
		summary.WinRate = float64(summary.Profitable) / float64(summary.PositionsWithPnL) * 100
	}

	for _, wallet := range summary.PerWallet {
		if wallet.PositionCount > 0 {
			wallet.AveragePnL = wallet.TotalPnL.Div(decimal.NewFromInt(int64(wallet.PositionCount)))
		}
	}

	summary.Daily = make([]models.DailyPnL, 0, len(daily))
	for _, day := range daily {
		if day.PositionCount > 0 {
			day.AveragePnL = day.TotalPnL.Div(decimal.NewFromInt(int64(day.PositionCount)))
		}
		summary.Daily = append(summary.Daily, *day)
	}
	sort.Slice(summary.Daily, func(i, j int) bool {
		return summary.Daily[i].Date.Before(summary.Daily[j].Date)
	})

	summary.TopPerformers, summary.BottomPerformers = t.rankPerformers(positions)

	return summary
}

// rankPerformers sorts positions by cumulative PnL descending and ascending.
func (t *Tracker) rankPerformers(positions []*models.Position) (top, bottom []models.PositionPerformance) {
	performances := make([]models.PositionPerformance, 0, len(positions))
	for _, pos := range positions {
		if len(pos.Snapshots) == 0 {
			continue
		}
		performances = append(performances, models.PositionPerformance{
			PositionID:    pos.ID(),
			Key:           pos.Key,
			CumulativePnL: pos.CumulativePnL(),
			LatestValue:   pos.Latest().USDValue,
			Updates:       len(pos.Snapshots),
		})
	}

	sort.SliceStable(performances, func(i, j int) bool {
		return performances[i].CumulativePnL.GreaterThan(performances[j].CumulativePnL)
	})

	n := t.topN
	if n > len(performances) {
		n = len(performances)
	}
	top = append(top, performances[:n]...)

	bottom = make([]models.PositionPerformance, 0, n)
	for i := len(performances) - 1; i >= len(performances)-n; i-- {
		bottom = append(bottom, performances[i])
	}
	return top, bottom
}
