package models

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wallet-flow-tracker/internal/types"
)

// RawTransfer mirrors one row of the transaction table handed over by the
// collection collaborators. Every field is a string straight out of the CSV;
// nothing is trusted until the normalizer has seen it.
type RawTransfer struct {
	WalletAddress      string `json:"walletAddress"`
	TxHash             string `json:"txHash"`
	TimestampUTC       string `json:"timestampUtc"`
	TokenSymbol        string `json:"tokenSymbol"`
	AmountDirection    string `json:"amountDirection"`
	AmountFull         string `json:"amountFull"`
	USDValueFull       string `json:"usdValueFull"`
	HistoricalValueUSD string `json:"historicalValueUsd"`
	FromAddress        string `json:"fromAddress"`
	ToAddress          string `json:"toAddress"`
}

// Transfer is one canonical leg of an on-chain transaction. Two transfers
// sharing a TxHash with opposite signed amounts represent the two legs of one
// event and must be resolved together.
type Transfer struct {
	TxHash      string          `json:"txHash" ch:"tx_hash"`
	Timestamp   time.Time       `json:"timestamp" ch:"timestamp"`
	TokenSymbol string          `json:"tokenSymbol" ch:"token_symbol"`
	AmountUSD   decimal.Decimal `json:"amountUsd" ch:"amount_usd"`
	From        string          `json:"from" ch:"from_address"`
	To          string          `json:"to" ch:"to_address"`
	// Wallet is the tracked wallet this leg is attached to, normalized.
	Wallet    string          `json:"wallet" ch:"wallet_address"`
	Direction types.Direction `json:"direction" ch:"direction"`
	// HistoricalPrice is true when AmountUSD came from a historical-price
	// derived field rather than a point-in-time value.
	HistoricalPrice bool `json:"historicalPrice" ch:"historical_price"`
	// SignPassedThrough marks NEUTRAL/UNKNOWN-direction legs whose sign was
	// taken from the raw amount and deserves downstream scrutiny.
	SignPassedThrough bool `json:"signPassedThrough,omitempty" ch:"sign_passed_through"`
}

// FlowRecord is a Transfer annotated with its flow class and pairing metadata.
type FlowRecord struct {
	Transfer

	Class types.FlowClass `json:"flowClass" ch:"flow_class"`
	// WalletLabel is the label of the tracked wallet this leg belongs to.
	WalletLabel string `json:"walletLabel" ch:"wallet_label"`
	// PairedLeg is the index (within the same FlowRecord slice) of the
	// opposite leg of the same logical event, or -1 when unpaired.
	PairedLeg int `json:"pairedLeg" ch:"paired_leg"`
	// Confidence scores how sure the classifier is about this label, 0-95.
	Confidence int `json:"confidence" ch:"confidence"`
	// CounterpartyLabel names a known external party on EXTERNAL flows.
	CounterpartyLabel string `json:"counterpartyLabel,omitempty" ch:"counterparty_label"`
	Note              string `json:"note,omitempty" ch:"note"`
}

// NetExternal returns this record's contribution to net external investment:
// the signed USD amount for EXTERNAL flows, zero for everything else.
func (fr *FlowRecord) NetExternal() decimal.Decimal {
	switch fr.Class {
	case types.FlowExternalIn, types.FlowExternalOut:
		return fr.AmountUSD
	default:
		return decimal.Zero
	}
}

// IsExternal reports whether this record represents genuine external flow.
func (fr *FlowRecord) IsExternal() bool {
	return fr.Class == types.FlowExternalIn || fr.Class == types.FlowExternalOut
}
