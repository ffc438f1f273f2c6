// Package service composes the normalization, classification and PnL
// pipelines into complete analysis runs.
package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/wallet-flow-tracker/internal/classify"
	"github.com/wallet-flow-tracker/internal/config"
	"github.com/wallet-flow-tracker/internal/flow"
	"github.com/wallet-flow-tracker/internal/logging"
	"github.com/wallet-flow-tracker/internal/lookup"
	"github.com/wallet-flow-tracker/internal/models"
	"github.com/wallet-flow-tracker/internal/normalize"
	"github.com/wallet-flow-tracker/internal/position"
	"github.com/wallet-flow-tracker/internal/storage"
)

// AnalysisResult is the complete outcome of one run: classified flows, the
// position PnL ledger, and the itemized run report.
type AnalysisResult struct {
	FlowRecords []models.FlowRecord `json:"flowRecords"`
	FlowSummary *models.FlowSummary `json:"flowSummary"`

	Positions  []*models.Position `json:"positions"`
	PnLEntries []models.PnLEntry  `json:"pnlEntries"`
	PnLSummary *models.PnLSummary `json:"pnlSummary"`

	Report *models.RunReport `json:"report"`
}

// ReportService runs flow and position analysis over collected data. Stateful
// collaborators (registry, lookup, cache) are injected once; each run builds
// its own classifier so wallet membership is always evaluated fresh.
type ReportService struct {
	wallets  *models.WalletSet
	book     *models.CounterpartyBook
	contract lookup.ContractLookup
	cache    classify.KindCache
	pipeline config.PipelineConfig

	flowRepo *storage.FlowRepository
	pnlRepo  *storage.PnLRepository

	logger *logging.Logger
}

// NewReportService creates a report service. The counterparty book, contract
// lookup, kind cache and repositories may all be nil; analysis degrades
// gracefully without them.
func NewReportService(
	wallets *models.WalletSet,
	book *models.CounterpartyBook,
	contract lookup.ContractLookup,
	cache classify.KindCache,
	pipeline config.PipelineConfig,
	logger *logging.Logger,
) *ReportService {
	return &ReportService{
		wallets:  wallets,
		book:     book,
		contract: contract,
		cache:    cache,
		pipeline: pipeline,
		logger:   logger,
	}
}

// WithRepositories enables persistence of run results
func (s *ReportService) WithRepositories(flowRepo *storage.FlowRepository, pnlRepo *storage.PnLRepository) *ReportService {
	s.flowRepo = flowRepo
	s.pnlRepo = pnlRepo
	return s
}

// Analyze runs the full pipeline over raw transfers and snapshots. Either
// input may be empty; the corresponding result fields stay zero-valued.
func (s *ReportService) Analyze(ctx context.Context, transfers []models.RawTransfer, snapshots []models.RawSnapshot) (*AnalysisResult, error) {
	report := models.NewRunReport()
	result := &AnalysisResult{Report: report}

	logger := s.logger.WithField("run_id", report.RunID.String())
	logger.WithFields(map[string]interface{}{
		"transfers": len(transfers),
		"snapshots": len(snapshots),
		"wallets":   s.wallets.Size(),
	}).Info("Starting analysis run")

	if len(transfers) > 0 {
		if err := s.analyzeFlows(ctx, transfers, report, result); err != nil {
			return nil, err
		}
	}

	if len(snapshots) > 0 {
		s.analyzePositions(ctx, snapshots, report, result)
	}

	report.Finish()

	logger.WithFields(map[string]interface{}{
		"flow_records": len(result.FlowRecords),
		"pnl_entries":  len(result.PnLEntries),
		"warnings":     report.Total(),
	}).Info("Analysis run complete")

	if err := s.persist(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *ReportService) analyzeFlows(ctx context.Context, transfers []models.RawTransfer, report *models.RunReport, result *AnalysisResult) error {
	kinds, err := classify.NewClassifier(s.wallets, s.contract, s.cache, report)
	if err != nil {
		return err
	}

	normalized := normalize.NewNormalizer(report).NormalizeAll(ctx, transfers)

	classifier := flow.NewClassifier(kinds, s.wallets, s.book, flow.ClassifierConfig{
		SwapValueTolerance:       s.pipeline.SwapValueTolerance,
		SwapAbsoluteToleranceUSD: parseDecimal(s.pipeline.SwapAbsoluteToleranceUSD),
	})
	result.FlowRecords = classifier.ClassifyFlows(ctx, normalized)

	aggregator := flow.NewAggregator(parseDecimal(s.pipeline.InternalBalanceEpsilonUSD), report)
	result.FlowSummary = aggregator.Aggregate(ctx, result.FlowRecords)
	return nil
}

func (s *ReportService) analyzePositions(ctx context.Context, snapshots []models.RawSnapshot, report *models.RunReport, result *AnalysisResult) {
	matcher := position.NewMatcher(report)
	result.Positions = matcher.Match(ctx, snapshots)

	tracker := position.NewTracker(s.pipeline.TopPerformers)
	result.PnLEntries = tracker.Compute(ctx, result.Positions)
	result.PnLSummary = tracker.Summarize(result.Positions, result.PnLEntries)
}

func (s *ReportService) persist(ctx context.Context, result *AnalysisResult) error {
	if s.flowRepo != nil && len(result.FlowRecords) > 0 {
		if err := s.flowRepo.BatchInsert(ctx, result.Report.RunID, result.FlowRecords); err != nil {
			return err
		}
	}
	if s.pnlRepo != nil && len(result.PnLEntries) > 0 {
		if err := s.pnlRepo.BatchInsert(ctx, result.Report.RunID, result.PnLEntries); err != nil {
			return err
		}
	}
	return nil
}

func parseDecimal(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}
