package flow

import (
	"context"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"github.com/wallet-flow-tracker/internal/models"
	"github.com/wallet-flow-tracker/internal/types"
)

func centsToUSD(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// legsFromCents builds one hash group of transfers between a tracked wallet
// and a fixed counterparty, one leg per cent amount.
func legsFromCents(hash string, cents []int64) []models.Transfer {
	transfers := make([]models.Transfer, 0, len(cents))
	for _, c := range cents {
		dir := types.DirectionIn
		from, to := "0xddd", "0xaaa"
		if c < 0 {
			dir = types.DirectionOut
			from, to = "0xaaa", "0xddd"
		}
		transfers = append(transfers, models.Transfer{
			TxHash:    hash,
			Timestamp: testTime,
			AmountUSD: centsToUSD(c),
			From:      from,
			To:        to,
			Wallet:    "0xaaa",
			Direction: dir,
		})
	}
	return transfers
}

func TestClassifyFlowsProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("contract-touching groups are entirely neutral", prop.ForAll(
		func(cents []int64) bool {
			c := newTestClassifier(t, []string{"0xddd"}, nil)
			records := c.ClassifyFlows(context.Background(), legsFromCents("0xh", cents))
			for _, rec := range records {
				if rec.Class != types.FlowNeutral {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(3, gen.Int64Range(-1_000_000, 1_000_000)),
	))

	properties.Property("classification is deterministic", prop.ForAll(
		func(cents []int64) bool {
			c := newTestClassifier(t, nil, nil)
			transfers := legsFromCents("0xh", cents)
			first := c.ClassifyFlows(context.Background(), transfers)
			second := c.ClassifyFlows(context.Background(), transfers)
			for i := range first {
				if first[i].Class != second[i].Class || first[i].Confidence != second[i].Confidence {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(-1_000_000, 1_000_000)),
	))

	properties.Property("one record per leg, in input order", prop.ForAll(
		func(groups uint8, legsPerGroup uint8) bool {
			c := newTestClassifier(t, nil, nil)
			var transfers []models.Transfer
			for g := 0; g < int(groups)%5+1; g++ {
				hash := fmt.Sprintf("0xh%d", g)
				for l := 0; l < int(legsPerGroup)%4+1; l++ {
					transfers = append(transfers, legsFromCents(hash, []int64{int64(l+1) * 100})...)
				}
			}
			records := c.ClassifyFlows(context.Background(), transfers)
			if len(records) != len(transfers) {
				return false
			}
			for i := range records {
				if records[i].TxHash != transfers[i].TxHash {
					return false
				}
			}
			return true
		},
		gen.UInt8(),
		gen.UInt8(),
	))

	properties.Property("confidence stays within 0 and 95", prop.ForAll(
		func(cents []int64) bool {
			c := newTestClassifier(t, nil, nil)
			records := c.ClassifyFlows(context.Background(), legsFromCents("0xh", cents))
			for _, rec := range records {
				if rec.Confidence < 0 || rec.Confidence > 95 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int64Range(-1_000_000, 1_000_000)),
	))

	properties.TestingRun(t)
}

func TestAggregateProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	classes := []types.FlowClass{
		types.FlowExternalIn, types.FlowExternalOut, types.FlowInternal, types.FlowNeutral,
	}

	recordsFrom := func(cents []int64) []models.FlowRecord {
		records := make([]models.FlowRecord, 0, len(cents))
		for i, c := range cents {
			class := classes[i%len(classes)]
			amount := centsToUSD(c)
			// Keep signs consistent with the class the classifier would assign.
			switch class {
			case types.FlowExternalIn:
				amount = amount.Abs()
			case types.FlowExternalOut:
				amount = amount.Abs().Neg()
			}
			records = append(records, models.FlowRecord{
				Transfer: models.Transfer{
					Wallet:    "0xaaa",
					AmountUSD: amount,
					Timestamp: testTime,
				},
				Class:     class,
				PairedLeg: -1,
			})
		}
		return records
	}

	properties.Property("net external equals the sum of signed external amounts", prop.ForAll(
		func(cents []int64) bool {
			records := recordsFrom(cents)
			summary := NewAggregator(decimal.Zero, nil).Aggregate(context.Background(), records)

			expected := decimal.Zero
			for i := range records {
				expected = expected.Add(records[i].NetExternal())
			}
			return summary.NetExternal.Equal(expected)
		},
		gen.SliceOf(gen.Int64Range(-1_000_000, 1_000_000)),
	))

	properties.Property("class counters cover every record", prop.ForAll(
		func(cents []int64) bool {
			records := recordsFrom(cents)
			summary := NewAggregator(decimal.Zero, nil).Aggregate(context.Background(), records)
			counted := summary.ExternalIns + summary.ExternalOuts + summary.Internals + summary.Neutrals
			return counted == len(records) && summary.RecordCount == len(records)
		},
		gen.SliceOf(gen.Int64Range(-1_000_000, 1_000_000)),
	))

	properties.Property("aggregation is repeatable", prop.ForAll(
		func(cents []int64) bool {
			records := recordsFrom(cents)
			first := NewAggregator(decimal.Zero, nil).Aggregate(context.Background(), records)
			second := NewAggregator(decimal.Zero, nil).Aggregate(context.Background(), records)
			return first.NetExternal.Equal(second.NetExternal) &&
				first.InternalBalance.Equal(second.InternalBalance) &&
				first.ConsistencyWarning == second.ConsistencyWarning
		},
		gen.SliceOf(gen.Int64Range(-1_000_000, 1_000_000)),
	))

	properties.TestingRun(t)
}
