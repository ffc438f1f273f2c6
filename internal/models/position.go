package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RawSnapshot mirrors one row of the portfolio snapshot table produced by the
// collection collaborators. String fields, untrusted until parsed.
type RawSnapshot struct {
	WalletLabel         string `json:"walletLabel"`
	Address             string `json:"address"`
	Blockchain          string `json:"blockchain"`
	Coin                string `json:"coin"`
	Protocol            string `json:"protocol"`
	Price               string `json:"price"`
	Amount              string `json:"amount"`
	USDValue            string `json:"usdValue"`
	Timestamp           string `json:"timestamp"`
	SourceFileTimestamp string `json:"sourceFileTimestamp"`
}

// PositionKey identifies the same logical holding across snapshots.
type PositionKey struct {
	WalletLabel string `json:"walletLabel"`
	Address     string `json:"address"`
	Blockchain  string `json:"blockchain"`
	Coin        string `json:"coin"`
	Protocol    string `json:"protocol"`
}

// ID returns the stable position identifier. The joined tuple is already
// unique and stays human-readable in reports, so no extra hashing is applied.
func (k PositionKey) ID() string {
	return strings.Join([]string{k.WalletLabel, k.Address, k.Blockchain, k.Coin, k.Protocol}, "|")
}

// Snapshot is one parsed observation of a position at a point in time.
type Snapshot struct {
	Key       PositionKey     `json:"key"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	USDValue  decimal.Decimal `json:"usdValue"`
	Timestamp time.Time       `json:"timestamp"`
	// Sequence is the 0-based observation index within this position's
	// timeline, assigned by the matcher.
	Sequence int `json:"sequence"`
}

// Position is a matched holding: a stable identifier plus its time-ordered
// observation history.
type Position struct {
	Key       PositionKey `json:"key"`
	Snapshots []Snapshot  `json:"snapshots"`
}

// ID returns the position identifier.
func (p *Position) ID() string {
	return p.Key.ID()
}

// First returns the earliest observation.
func (p *Position) First() Snapshot {
	return p.Snapshots[0]
}

// Latest returns the most recent observation.
func (p *Position) Latest() Snapshot {
	return p.Snapshots[len(p.Snapshots)-1]
}

// CumulativePnL is the total value change across the whole observed history.
func (p *Position) CumulativePnL() decimal.Decimal {
	return p.Latest().USDValue.Sub(p.First().USDValue)
}
