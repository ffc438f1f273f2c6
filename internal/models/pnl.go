package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PnLEntry is the derived record for one position transition. Entries are
// computed fresh on every run and only ever appended, never mutated.
type PnLEntry struct {
	PositionID  string      `json:"positionId" ch:"position_id"`
	Key         PositionKey `json:"key"`
	Timestamp   time.Time   `json:"timestamp" ch:"timestamp"`

	USDValue           decimal.Decimal `json:"usdValue" ch:"usd_value"`
	PreviousValue      decimal.Decimal `json:"previousValue" ch:"previous_value"`
	PnLSinceLastUpdate decimal.Decimal `json:"pnlSinceLastUpdate" ch:"pnl_since_last_update"`
	// PnLPercentage is nil when the previous value is zero or missing:
	// division by zero is "undefined", not a misleading 0%.
	PnLPercentage       *float64 `json:"pnlPercentage" ch:"pnl_percentage"`
	DaysSinceLastUpdate float64  `json:"daysSinceLastUpdate" ch:"days_since_last_update"`
	IsNewPosition       bool     `json:"isNewPosition" ch:"is_new_position"`
	UpdateSequence      int      `json:"updateSequence" ch:"update_sequence"`
}

// WalletPnL rolls PnL up to one wallet label.
type WalletPnL struct {
	WalletLabel   string          `json:"walletLabel"`
	TotalPnL      decimal.Decimal `json:"totalPnl"`
	PositionCount int             `json:"positionCount"`
	AveragePnL    decimal.Decimal `json:"averagePnl"`
}

// DailyPnL sums PnL for one snapshot timestamp.
type DailyPnL struct {
	Date          time.Time       `json:"date"`
	TotalPnL      decimal.Decimal `json:"totalPnl"`
	PositionCount int             `json:"positionCount"`
	AveragePnL    decimal.Decimal `json:"averagePnl"`
}

// PositionPerformance ranks one position by its cumulative PnL.
type PositionPerformance struct {
	PositionID    string          `json:"positionId"`
	Key           PositionKey     `json:"key"`
	CumulativePnL decimal.Decimal `json:"cumulativePnl"`
	LatestValue   decimal.Decimal `json:"latestValue"`
	Updates       int             `json:"updates"`
}

// PnLSummary carries the statistics the reporting layer consumes.
type PnLSummary struct {
	TotalPnL         decimal.Decimal `json:"totalPnl"`
	TotalPositions   int             `json:"totalPositions"`
	NewPositions     int             `json:"newPositions"`
	PositionsWithPnL int             `json:"positionsWithPnl"`
	Profitable       int             `json:"profitable"`
	Losing           int             `json:"losing"`
	// WinRate is profitable / positionsWithPnL, zero when nothing moved.
	WinRate float64 `json:"winRate"`

	TopPerformers    []PositionPerformance `json:"topPerformers"`
	BottomPerformers []PositionPerformance `json:"bottomPerformers"`
	PerWallet        map[string]*WalletPnL `json:"perWallet"`
	Daily            []DailyPnL            `json:"daily"`
}
