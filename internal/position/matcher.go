// Package position links portfolio snapshots into per-position timelines and
// computes incremental PnL along each timeline.
package position

import (
	"context"
	"sort"

	"github.com/wallet-flow-tracker/internal/errors"
	"github.com/wallet-flow-tracker/internal/ingest"
	"github.com/wallet-flow-tracker/internal/logging"
	"github.com/wallet-flow-tracker/internal/models"
	"github.com/wallet-flow-tracker/internal/types"
)

// Matcher builds a stable identity per holding and links each observation to
// its predecessor across time-ordered snapshots.
type Matcher struct {
	report *models.RunReport
}

// NewMatcher creates a matcher that records data-quality findings on report.
func NewMatcher(report *models.RunReport) *Matcher {
	return &Matcher{report: report}
}

// Match parses raw snapshot rows and groups them into positions, each with a
// strictly time-ordered observation list. Rows without a parseable timestamp
// are dropped and counted; rows with a non-positive USD value are dropped
// quietly (a position that is absent from a snapshot is closed, not zero).
// When several rows share the same (position, timestamp), the last-seen row
// wins - later collection runs are assumed more complete - and the collision
// is counted as a duplicate-position warning.
func (m *Matcher) Match(ctx context.Context, raws []models.RawSnapshot) []*models.Position {
	logger := logging.FromContext(ctx)

	malformed := 0
	zeroValue := 0
	timelines := make(map[models.PositionKey][]models.Snapshot)

	for i, raw := range raws {
		timestamp, ok := ingest.ParseTimestamp(raw.SourceFileTimestamp)
		if !ok {
			timestamp, ok = ingest.ParseTimestamp(raw.Timestamp)
		}
		if !ok {
			malformed++
			if m.report != nil {
				err := errors.NewMalformedRecordError("snapshot row without parseable timestamp", i)
				m.report.Add(types.WarnMalformedRecord, err.Message)
			}
			continue
		}

		usdValue := ingest.ParseCurrency(raw.USDValue)
		if !usdValue.IsPositive() {
			zeroValue++
			continue
		}

		key := models.PositionKey{
			WalletLabel: raw.WalletLabel,
			Address:     models.NormalizeAddress(raw.Address),
			Blockchain:  raw.Blockchain,
			Coin:        raw.Coin,
			Protocol:    raw.Protocol,
		}
		timelines[key] = append(timelines[key], models.Snapshot{
			Key:       key,
			Price:     ingest.ParseCurrency(raw.Price),
			Amount:    ingest.ParseCurrency(raw.Amount),
			USDValue:  usdValue,
			Timestamp: timestamp,
		})
	}

	positions := make([]*models.Position, 0, len(timelines))
	for key, snapshots := range timelines {
		positions = append(positions, &models.Position{
			Key:       key,
			Snapshots: m.orderTimeline(key, snapshots),
		})
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].ID() < positions[j].ID()
	})

	if malformed > 0 || zeroValue > 0 {
		logger.WithFields(map[string]interface{}{
			"malformed": malformed,
			"zeroValue": zeroValue,
			"positions": len(positions),
		}).Warn("Dropped snapshot rows while matching positions")
	}

	return positions
}

// orderTimeline sorts one position's observations ascending by timestamp,
// resolves same-timestamp duplicates last-seen-wins, and assigns sequence
// numbers.
func (m *Matcher) orderTimeline(key models.PositionKey, snapshots []models.Snapshot) []models.Snapshot {
	// Stable sort keeps input order within equal timestamps, so the
	// last-seen duplicate ends up last and wins below.
	sort.SliceStable(snapshots, func(i, j int) bool {
		return snapshots[i].Timestamp.Before(snapshots[j].Timestamp)
	})

	deduped := snapshots[:0]
	for i := range snapshots {
		if len(deduped) > 0 && deduped[len(deduped)-1].Timestamp.Equal(snapshots[i].Timestamp) {
			if m.report != nil {
				err := errors.NewDuplicatePositionError(key.ID(), snapshots[i].Timestamp.Format("2006-01-02 15:04:05"))
				m.report.Add(types.WarnDuplicatePosition, err.Message)
			}
			deduped[len(deduped)-1] = snapshots[i]
			continue
		}
		deduped = append(deduped, snapshots[i])
	}

	for i := range deduped {
		deduped[i].Sequence = i
	}
	return deduped
}
