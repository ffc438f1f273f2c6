// Package flow implements money-flow classification and aggregation: deciding
// which transfers are genuine external capital movements, which are internal
// reshuffling, and which are DeFi swap legs that must never count as either.
package flow

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/wallet-flow-tracker/internal/classify"
	"github.com/wallet-flow-tracker/internal/logging"
	"github.com/wallet-flow-tracker/internal/models"
	"github.com/wallet-flow-tracker/internal/types"
)

// ClassifierConfig tunes swap-leg pairing.
type ClassifierConfig struct {
	// SwapValueTolerance is the relative difference two opposite legs may
	// have and still be considered one swap (slippage, fees).
	SwapValueTolerance float64
	// SwapAbsoluteToleranceUSD applies when one leg has no USD value.
	SwapAbsoluteToleranceUSD decimal.Decimal
}

// DefaultClassifierConfig matches the tolerances the collectors were tuned
// against: 15% relative, $10 absolute.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		SwapValueTolerance:       0.15,
		SwapAbsoluteToleranceUSD: decimal.NewFromInt(10),
	}
}

// Classifier assigns a flow class to every transfer leg.
type Classifier struct {
	kinds   *classify.Classifier
	wallets *models.WalletSet
	book    *models.CounterpartyBook
	cfg     ClassifierConfig
}

// NewClassifier wires the flow classifier. The counterparty book may be nil.
func NewClassifier(kinds *classify.Classifier, wallets *models.WalletSet, book *models.CounterpartyBook, cfg ClassifierConfig) *Classifier {
	return &Classifier{kinds: kinds, wallets: wallets, book: book, cfg: cfg}
}

// ClassifyFlows labels each transfer. Exactly one FlowRecord comes out per
// input leg, in input order, so no (hash, leg) pair is ever produced twice.
//
// Decision order per hash group:
//  1. any contract endpoint in the group => every leg is NEUTRAL. Contract
//     priority beats wallet membership so DeFi legs cannot be miscounted as
//     external - the specific defect this classifier exists to prevent.
//  2. exactly two legs with opposite signs and matching value => one logical
//     event. If it is not an own-to-own move, the pair is a swap and both
//     legs are NEUTRAL rather than an external out plus an external in.
//  3. remaining legs classify individually: both endpoints own => INTERNAL,
//     own vs external wallet => EXTERNAL_IN/OUT by sign.
func (c *Classifier) ClassifyFlows(ctx context.Context, transfers []models.Transfer) []models.FlowRecord {
	logger := logging.FromContext(ctx)

	records := make([]models.FlowRecord, len(transfers))
	groups := make(map[string][]int)
	order := make([]string, 0)
	for i, t := range transfers {
		label, _ := c.wallets.Label(t.Wallet)
		records[i] = models.FlowRecord{
			Transfer:    t,
			WalletLabel: label,
			PairedLeg:   -1,
		}
		if _, seen := groups[t.TxHash]; !seen {
			order = append(order, t.TxHash)
		}
		groups[t.TxHash] = append(groups[t.TxHash], i)
	}

	for _, hash := range order {
		c.classifyGroup(ctx, records, groups[hash])
	}

	logger.WithFields(map[string]interface{}{
		"transfers":  len(transfers),
		"hashGroups": len(groups),
	}).Debug("Classified transfer batch")

	return records
}

// classifyGroup labels all legs sharing one transaction hash.
func (c *Classifier) classifyGroup(ctx context.Context, records []models.FlowRecord, legs []int) {
	if c.groupTouchesContract(ctx, records, legs) {
		for _, i := range legs {
			records[i].Class = types.FlowNeutral
			records[i].Confidence = 95
			records[i].Note = "contract interaction (swap/pool leg)"
		}
		c.pairLegs(records, legs)
		return
	}

	if pair, ok := c.findSwapPair(records, legs); ok {
		a, b := pair[0], pair[1]
		if c.bothEndpointsOwn(ctx, records[a]) && c.bothEndpointsOwn(ctx, records[b]) {
			// An own-to-own move observed from both wallets. The legs stay
			// INTERNAL so the matching debit and credit net to zero.
			c.markInternal(records, a)
			c.markInternal(records, b)
		} else {
			confidence := c.swapConfidence(records[a], records[b])
			for _, i := range pair {
				records[i].Class = types.FlowNeutral
				records[i].Confidence = confidence
				records[i].Note = "swap pair, one logical event"
			}
		}
		records[a].PairedLeg = b
		records[b].PairedLeg = a

		for _, i := range legs {
			if i != a && i != b {
				c.classifyLeg(ctx, records, i)
			}
		}
		return
	}

	for _, i := range legs {
		c.classifyLeg(ctx, records, i)
	}
}

// classifyLeg applies the per-leg decision table.
func (c *Classifier) classifyLeg(ctx context.Context, records []models.FlowRecord, i int) {
	rec := &records[i]

	if rec.AmountUSD.IsZero() || rec.Direction == types.DirectionNeutral {
		rec.Class = types.FlowNeutral
		rec.Confidence = 95
		rec.Note = "zero-value or neutral transfer"
		return
	}

	if c.bothEndpointsOwn(ctx, *rec) {
		c.markInternal(records, i)
		return
	}

	// The tracked wallet side is own by construction; the counterparty is a
	// foreign wallet here (contracts were handled at group level, and an
	// unavailable lookup already failed closed to external_wallet).
	rec.Confidence = 85
	if rec.SignPassedThrough {
		rec.Confidence = 50
	}
	counterparty := c.counterpartyOf(*rec)
	if cp, ok := c.book.Lookup(counterparty); ok {
		rec.CounterpartyLabel = cp.Name
	}
	if rec.AmountUSD.IsPositive() {
		rec.Class = types.FlowExternalIn
		rec.Note = "external deposit"
	} else {
		rec.Class = types.FlowExternalOut
		rec.Note = "external withdrawal"
	}
}

func (c *Classifier) markInternal(records []models.FlowRecord, i int) {
	records[i].Class = types.FlowInternal
	records[i].Confidence = 95
	records[i].Note = "transfer between own wallets"
}

// pairLegs cross-references the two legs of one logical event when the group
// has an unambiguous opposite-sign pair.
func (c *Classifier) pairLegs(records []models.FlowRecord, legs []int) {
	if pair, ok := c.findSwapPair(records, legs); ok {
		records[pair[0]].PairedLeg = pair[1]
		records[pair[1]].PairedLeg = pair[0]
	}
}

// groupTouchesContract reports whether any endpoint of any leg in the hash
// group resolves to a deployed contract.
func (c *Classifier) groupTouchesContract(ctx context.Context, records []models.FlowRecord, legs []int) bool {
	for _, i := range legs {
		if c.kinds.Classify(ctx, records[i].From) == types.KindContract {
			return true
		}
		if c.kinds.Classify(ctx, records[i].To) == types.KindContract {
			return true
		}
	}
	return false
}

// bothEndpointsOwn reports whether both sides of a leg are in the wallet set.
// Empty addresses never qualify.
func (c *Classifier) bothEndpointsOwn(ctx context.Context, rec models.FlowRecord) bool {
	if rec.From == "" || rec.To == "" {
		return false
	}
	return c.kinds.Classify(ctx, rec.From) == types.KindOwnWallet &&
		c.kinds.Classify(ctx, rec.To) == types.KindOwnWallet
}

// counterpartyOf returns the non-wallet endpoint of a leg.
func (c *Classifier) counterpartyOf(rec models.FlowRecord) string {
	if rec.Wallet != "" && rec.Wallet == rec.From {
		return rec.To
	}
	if rec.Wallet != "" && rec.Wallet == rec.To {
		return rec.From
	}
	if rec.AmountUSD.IsPositive() {
		return rec.From
	}
	return rec.To
}

// findSwapPair looks for exactly two legs with opposite signs and matching
// absolute value. Only an unambiguous pair counts: with more than two
// value-bearing legs the group is multi-hop and legs classify individually.
// A two-leg group where one side lost its USD value upstream can still pair
// when the other side is within the absolute tolerance.
func (c *Classifier) findSwapPair(records []models.FlowRecord, legs []int) ([2]int, bool) {
	var valued []int
	for _, i := range legs {
		if !records[i].AmountUSD.IsZero() {
			valued = append(valued, i)
		}
	}

	var a, b int
	switch {
	case len(valued) == 2:
		a, b = valued[0], valued[1]
		if records[a].AmountUSD.Sign() == records[b].AmountUSD.Sign() {
			return [2]int{}, false
		}
	case len(valued) == 1 && len(legs) == 2:
		a = valued[0]
		b = legs[0]
		if b == a {
			b = legs[1]
		}
	default:
		return [2]int{}, false
	}

	if !c.valuesSimilar(records[a].AmountUSD.Abs(), records[b].AmountUSD.Abs()) {
		return [2]int{}, false
	}
	return [2]int{a, b}, true
}

// valuesSimilar allows for slippage and fees between the two legs of a swap.
func (c *Classifier) valuesSimilar(a, b decimal.Decimal) bool {
	if a.IsZero() && b.IsZero() {
		return true
	}
	if a.IsZero() || b.IsZero() {
		return a.Sub(b).Abs().LessThan(c.cfg.SwapAbsoluteToleranceUSD)
	}
	avg := a.Add(b).Div(decimal.NewFromInt(2))
	diff, _ := a.Sub(b).Abs().Div(avg).Float64()
	return diff <= c.cfg.SwapValueTolerance
}

// swapConfidence scores how sure we are that two legs form one swap.
func (c *Classifier) swapConfidence(a, b models.FlowRecord) int {
	confidence := 50

	// Same transaction hash, so maximum time proximity.
	confidence += 30

	outVal := a.AmountUSD.Abs()
	inVal := b.AmountUSD.Abs()
	if outVal.IsPositive() && inVal.IsPositive() {
		avg := outVal.Add(inVal).Div(decimal.NewFromInt(2))
		diff, _ := outVal.Sub(inVal).Abs().Div(avg).Float64()
		switch {
		case diff <= 0.02:
			confidence += 25
		case diff <= 0.05:
			confidence += 15
		case diff <= 0.15:
			confidence += 10
		}
	}

	if a.HistoricalPrice && b.HistoricalPrice {
		confidence += 15
	}

	if confidence > 95 {
		confidence = 95
	}
	return confidence
}
