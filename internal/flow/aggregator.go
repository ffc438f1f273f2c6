package flow

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/wallet-flow-tracker/internal/errors"
	"github.com/wallet-flow-tracker/internal/logging"
	"github.com/wallet-flow-tracker/internal/models"
	"github.com/wallet-flow-tracker/internal/types"
)

// Aggregator sums classified flows into a FlowSummary. Aggregation is a pure
// function of its input: running it twice on the same records yields the same
// summary.
type Aggregator struct {
	// epsilon is the tolerance on the internal-balance-zero invariant.
	epsilon decimal.Decimal
	report  *models.RunReport
}

// NewAggregator creates an aggregator. A non-positive epsilon falls back to
// one cent.
func NewAggregator(epsilonUSD decimal.Decimal, report *models.RunReport) *Aggregator {
	if !epsilonUSD.IsPositive() {
		epsilonUSD = decimal.RequireFromString("0.01")
	}
	return &Aggregator{epsilon: epsilonUSD, report: report}
}

// Aggregate produces the external-investment figure and the per-wallet
// breakdown. Internal flows must net to zero across the wallet set; when they
// do not, the summary is still returned but flagged, because a residual means
// a classification bug, not something to paper over.
func (a *Aggregator) Aggregate(ctx context.Context, records []models.FlowRecord) *models.FlowSummary {
	logger := logging.FromContext(ctx)

	summary := &models.FlowSummary{
		PerWallet:   make(map[string]*models.WalletFlowStats),
		RecordCount: len(records),
	}

	for i := range records {
		rec := &records[i]
		stats := a.walletStats(summary, rec)

		switch rec.Class {
		case types.FlowExternalIn:
			summary.ExternalIns++
			summary.TotalExternalIn = summary.TotalExternalIn.Add(rec.AmountUSD)
			stats.Deposits++
			stats.ExternalIn = stats.ExternalIn.Add(rec.AmountUSD)
		case types.FlowExternalOut:
			summary.ExternalOuts++
			summary.TotalExternalOut = summary.TotalExternalOut.Add(rec.AmountUSD.Abs())
			stats.Withdrawals++
			stats.ExternalOut = stats.ExternalOut.Add(rec.AmountUSD.Abs())
		case types.FlowInternal:
			summary.Internals++
			summary.InternalBalance = summary.InternalBalance.Add(rec.AmountUSD)
			stats.InternalTransfers++
			if rec.AmountUSD.IsNegative() {
				stats.InternalOut = stats.InternalOut.Add(rec.AmountUSD.Abs())
			} else {
				stats.InternalIn = stats.InternalIn.Add(rec.AmountUSD)
			}
		case types.FlowNeutral:
			summary.Neutrals++
			if rec.PairedLeg >= 0 {
				stats.SwapLegs++
			} else {
				stats.NeutralTransfers++
			}
		}

		if stats.FirstActivity.IsZero() || rec.Timestamp.Before(stats.FirstActivity) {
			stats.FirstActivity = rec.Timestamp
		}
		if rec.Timestamp.After(stats.LastActivity) {
			stats.LastActivity = rec.Timestamp
		}
	}

	summary.NetExternal = summary.TotalExternalIn.Sub(summary.TotalExternalOut)
	for _, stats := range summary.PerWallet {
		stats.NetInvestment = stats.ExternalIn.Sub(stats.ExternalOut)
	}

	if summary.InternalBalance.Abs().GreaterThan(a.epsilon) {
		summary.ConsistencyWarning = true
		violation := errors.NewConsistencyViolationError(summary.InternalBalance.String())
		logger.WithField("residualUsd", summary.InternalBalance.String()).
			Error("Internal flows do not net to zero")
		if a.report != nil {
			a.report.Add(types.WarnConsistencyViolation, violation.Message)
		}
	}

	return summary
}

func (a *Aggregator) walletStats(summary *models.FlowSummary, rec *models.FlowRecord) *models.WalletFlowStats {
	if rec.Wallet == "" {
		return &models.WalletFlowStats{} // discarded scratch entry
	}
	stats, ok := summary.PerWallet[rec.Wallet]
	if !ok {
		stats = &models.WalletFlowStats{
			WalletAddress: rec.Wallet,
			WalletLabel:   rec.WalletLabel,
		}
		summary.PerWallet[rec.Wallet] = stats
	}
	return stats
}
