package normalize

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallet-flow-tracker/internal/models"
	"github.com/wallet-flow-tracker/internal/types"
)

func validRaw() models.RawTransfer {
	return models.RawTransfer{
		WalletAddress:   "0xAAA",
		TxHash:          "0x123",
		TimestampUTC:    "2026-03-15 14:30:00",
		TokenSymbol:     "ETH",
		AmountDirection: "positive",
		AmountFull:      "+1.5 ETH",
		USDValueFull:    "$3000.00",
		FromAddress:     "0xBBB",
		ToAddress:       "0xAAA",
	}
}

func TestNormalize_Malformed(t *testing.T) {
	n := NewNormalizer(nil)

	t.Run("missing hash", func(t *testing.T) {
		raw := validRaw()
		raw.TxHash = "  "
		_, err := n.Normalize(raw, 0)
		assert.Error(t, err)
	})

	t.Run("unparseable timestamp", func(t *testing.T) {
		raw := validRaw()
		raw.TimestampUTC = "not a time"
		_, err := n.Normalize(raw, 0)
		assert.Error(t, err)
	})

	t.Run("both addresses absent", func(t *testing.T) {
		raw := validRaw()
		raw.FromAddress = ""
		raw.ToAddress = ""
		_, err := n.Normalize(raw, 0)
		assert.Error(t, err)
	})

	t.Run("one address is enough", func(t *testing.T) {
		raw := validRaw()
		raw.FromAddress = ""
		_, err := n.Normalize(raw, 0)
		assert.NoError(t, err)
	})
}

func TestNormalize_ValueSelection(t *testing.T) {
	n := NewNormalizer(nil)

	t.Run("historical value preferred", func(t *testing.T) {
		raw := validRaw()
		raw.USDValueFull = "$3000.00"
		raw.HistoricalValueUSD = "$2950.00"

		tr, err := n.Normalize(raw, 0)
		require.NoError(t, err)
		assert.True(t, tr.AmountUSD.Equal(decimal.RequireFromString("2950")))
		assert.True(t, tr.HistoricalPrice)
	})

	t.Run("falls back to point-in-time value", func(t *testing.T) {
		raw := validRaw()
		raw.HistoricalValueUSD = ""

		tr, err := n.Normalize(raw, 0)
		require.NoError(t, err)
		assert.True(t, tr.AmountUSD.Equal(decimal.RequireFromString("3000")))
		assert.False(t, tr.HistoricalPrice)
	})

	t.Run("non-positive historical ignored", func(t *testing.T) {
		raw := validRaw()
		raw.HistoricalValueUSD = "N/A"

		tr, err := n.Normalize(raw, 0)
		require.NoError(t, err)
		assert.True(t, tr.AmountUSD.Equal(decimal.RequireFromString("3000")))
		assert.False(t, tr.HistoricalPrice)
	})
}

func TestNormalize_DirectionSign(t *testing.T) {
	n := NewNormalizer(nil)

	t.Run("in forces positive", func(t *testing.T) {
		raw := validRaw()
		raw.AmountDirection = "positive"
		raw.USDValueFull = "-3000" // sloppy collector sign

		tr, err := n.Normalize(raw, 0)
		require.NoError(t, err)
		assert.True(t, tr.AmountUSD.IsPositive())
		assert.False(t, tr.SignPassedThrough)
	})

	t.Run("out forces negative", func(t *testing.T) {
		raw := validRaw()
		raw.AmountDirection = "negative"

		tr, err := n.Normalize(raw, 0)
		require.NoError(t, err)
		assert.True(t, tr.AmountUSD.IsNegative())
		assert.Equal(t, types.DirectionOut, tr.Direction)
	})

	t.Run("unknown passes sign through flagged", func(t *testing.T) {
		raw := validRaw()
		raw.AmountDirection = ""
		raw.AmountFull = "1.5 ETH" // no sign prefix either

		tr, err := n.Normalize(raw, 0)
		require.NoError(t, err)
		assert.Equal(t, types.DirectionUnknown, tr.Direction)
		assert.True(t, tr.SignPassedThrough)
		assert.True(t, tr.AmountUSD.IsPositive())
	})

	t.Run("neutral keeps raw negative sign", func(t *testing.T) {
		raw := validRaw()
		raw.AmountDirection = "neutral"
		raw.AmountFull = "-1.5 ETH"

		tr, err := n.Normalize(raw, 0)
		require.NoError(t, err)
		assert.Equal(t, types.DirectionNeutral, tr.Direction)
		assert.True(t, tr.SignPassedThrough)
		assert.True(t, tr.AmountUSD.IsNegative())
	})
}

func TestNormalizeAll_DropsAndCounts(t *testing.T) {
	report := models.NewRunReport()
	n := NewNormalizer(report)

	bad := validRaw()
	bad.TxHash = ""

	transfers := n.NormalizeAll(context.Background(), []models.RawTransfer{validRaw(), bad, validRaw()})

	assert.Len(t, transfers, 2)
	assert.Equal(t, 1, report.Count(types.WarnMalformedRecord))
}

func TestNormalize_AddressesLowercased(t *testing.T) {
	n := NewNormalizer(nil)
	raw := validRaw()
	raw.FromAddress = "0xAbCd"
	raw.ToAddress = " 0xDEAD "
	raw.WalletAddress = "0xDEAD"

	tr, err := n.Normalize(raw, 0)
	require.NoError(t, err)
	assert.Equal(t, "0xabcd", tr.From)
	assert.Equal(t, "0xdead", tr.To)
	assert.Equal(t, "0xdead", tr.Wallet)
}
