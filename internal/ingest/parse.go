// Package ingest parses the tabular inputs handed over by the collection
// collaborators: the transaction table, the snapshot table, and the wallet
// registry. Collectors are sloppy about formats, so everything here is
// permissive about what it accepts and strict about what it emits.
package ingest

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wallet-flow-tracker/internal/types"
)

// currencyReplacer strips the decorations collectors leave on USD columns.
var currencyReplacer = strings.NewReplacer("$", "", ",", "", " ", "")

// ParseCurrency extracts a decimal USD value from strings like "$1,234.56".
// Empty, N/A and unparseable values come back as zero: a missing price is a
// zero-value row, not a reason to stop the batch.
func ParseCurrency(value string) decimal.Decimal {
	cleaned := currencyReplacer.Replace(strings.TrimSpace(value))
	if cleaned == "" || cleaned == "N/A" || cleaned == "None" || cleaned == "nan" {
		return decimal.Zero
	}
	parsed, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return parsed
}

// timestampLayouts are tried in order. The underscore layout is the
// collector's snapshot-file naming scheme (DD-MM-YYYY_HH-MM-SS).
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02-01-2006_15-04-05",
	"2006-01-02",
}

// ParseTimestamp parses the timestamp formats seen across collector outputs.
// A trailing .csv extension is tolerated because snapshot timestamps are
// often lifted straight from filenames.
func ParseTimestamp(value string) (time.Time, bool) {
	cleaned := strings.TrimSuffix(strings.TrimSpace(value), ".csv")
	if cleaned == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, cleaned); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseDirection standardizes the direction vocabulary collectors use. When
// the direction column is unusable the sign of the raw amount is consulted.
func ParseDirection(direction, amountFull string) types.Direction {
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "positive", "+", "in":
		return types.DirectionIn
	case "negative", "-", "out":
		return types.DirectionOut
	case "neutral", "0":
		return types.DirectionNeutral
	}

	amount := strings.TrimSpace(amountFull)
	switch {
	case strings.HasPrefix(amount, "+"):
		return types.DirectionIn
	case strings.HasPrefix(amount, "-"):
		return types.DirectionOut
	case amount == "0" || strings.HasPrefix(amount, "0 "):
		return types.DirectionNeutral
	}

	return types.DirectionUnknown
}
