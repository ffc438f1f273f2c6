package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletFlowStats breaks down classified flows for one tracked wallet.
type WalletFlowStats struct {
	WalletAddress string `json:"walletAddress"`
	WalletLabel   string `json:"walletLabel"`

	ExternalIn  decimal.Decimal `json:"externalIn"`
	ExternalOut decimal.Decimal `json:"externalOut"` // magnitude, always >= 0
	InternalIn  decimal.Decimal `json:"internalIn"`
	InternalOut decimal.Decimal `json:"internalOut"` // magnitude, always >= 0
	// NetInvestment is ExternalIn - ExternalOut: the capital this wallet has
	// genuinely absorbed from outside the wallet set.
	NetInvestment decimal.Decimal `json:"netInvestment"`

	Deposits          int `json:"deposits"`
	Withdrawals       int `json:"withdrawals"`
	InternalTransfers int `json:"internalTransfers"`
	SwapLegs          int `json:"swapLegs"`
	NeutralTransfers  int `json:"neutralTransfers"`

	FirstActivity time.Time `json:"firstActivity"`
	LastActivity  time.Time `json:"lastActivity"`
}

// FlowSummary aggregates classified flows across the whole wallet set.
type FlowSummary struct {
	TotalExternalIn  decimal.Decimal `json:"totalExternalIn"`
	TotalExternalOut decimal.Decimal `json:"totalExternalOut"` // magnitude, always >= 0
	NetExternal      decimal.Decimal `json:"netExternal"`

	// InternalBalance is the signed sum of all INTERNAL amounts. It must be
	// zero within epsilon; a residual means a classification bug and is
	// surfaced, never corrected.
	InternalBalance    decimal.Decimal `json:"internalBalance"`
	ConsistencyWarning bool            `json:"consistencyWarning"`

	PerWallet map[string]*WalletFlowStats `json:"perWallet"`

	RecordCount  int `json:"recordCount"`
	ExternalIns  int `json:"externalIns"`
	ExternalOuts int `json:"externalOuts"`
	Internals    int `json:"internals"`
	Neutrals     int `json:"neutrals"`
}

// TruePnL is the flow-adjusted profit of the whole wallet set: what the
// portfolio is worth now minus what was genuinely put in from outside.
func (fs *FlowSummary) TruePnL(currentPortfolioValue decimal.Decimal) decimal.Decimal {
	return currentPortfolioValue.Sub(fs.NetExternal)
}
