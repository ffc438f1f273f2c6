package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/wallet-flow-tracker/internal/models"
)

// header index lookup, tolerant of column order changes between collector
// versions.
type headerIndex map[string]int

func readHeader(r *csv.Reader) (headerIndex, error) {
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index := make(headerIndex, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.ToLower(name))] = i
	}
	return index, nil
}

func (h headerIndex) get(row []string, column string) string {
	i, ok := h[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// first returns the first populated value among the named columns.
func (h headerIndex) first(row []string, columns ...string) string {
	for _, column := range columns {
		if v := h.get(row, column); v != "" {
			return v
		}
	}
	return ""
}

// ReadTransfers reads the transaction table. Column aliases cover the two
// collector generations that produced these files.
func ReadTransfers(r io.Reader) ([]models.RawTransfer, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := readHeader(reader)
	if err != nil {
		return nil, err
	}

	var transfers []models.RawTransfer
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read transaction row: %w", err)
		}

		transfers = append(transfers, models.RawTransfer{
			WalletAddress:      header.get(row, "wallet_address"),
			TxHash:             header.first(row, "transaction_hash", "tx_hash", "hash"),
			TimestampUTC:       header.first(row, "timestamp_utc", "timestamp"),
			TokenSymbol:        header.first(row, "token_symbol", "asset"),
			AmountDirection:    header.get(row, "amount_direction"),
			AmountFull:         header.get(row, "amount_full"),
			USDValueFull:       header.first(row, "usd_final", "usd_value_full", "usd_value"),
			HistoricalValueUSD: header.get(row, "historical_value_usd"),
			FromAddress:        header.first(row, "from_address_clean", "from_address"),
			ToAddress:          header.first(row, "to_address_clean", "to_address"),
		})
	}
	return transfers, nil
}

// ReadSnapshots reads the portfolio snapshot table.
func ReadSnapshots(r io.Reader) ([]models.RawSnapshot, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := readHeader(reader)
	if err != nil {
		return nil, err
	}

	var snapshots []models.RawSnapshot
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read snapshot row: %w", err)
		}

		snapshots = append(snapshots, models.RawSnapshot{
			WalletLabel:         header.get(row, "wallet_label"),
			Address:             header.get(row, "address"),
			Blockchain:          header.get(row, "blockchain"),
			Coin:                header.get(row, "coin"),
			Protocol:            header.get(row, "protocol"),
			Price:               header.get(row, "price"),
			Amount:              header.get(row, "amount"),
			USDValue:            header.get(row, "usd_value"),
			Timestamp:           header.get(row, "timestamp"),
			SourceFileTimestamp: header.first(row, "source_file_timestamp", "timestamp"),
		})
	}
	return snapshots, nil
}

// ReadWalletRegistry reads the address -> label registry.
func ReadWalletRegistry(r io.Reader) (map[string]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := readHeader(reader)
	if err != nil {
		return nil, err
	}

	wallets := make(map[string]string)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read registry row: %w", err)
		}

		address := header.get(row, "address")
		if address == "" {
			continue
		}
		label := header.first(row, "label", "wallet_label", "name")
		if label == "" {
			label = address
		}
		wallets[address] = label
	}
	return wallets, nil
}
