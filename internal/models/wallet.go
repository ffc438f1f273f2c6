package models

import (
	"sort"
	"strings"

	"github.com/wallet-flow-tracker/internal/types"
)

// NormalizeAddress lowercases and trims an address so membership checks are
// case-insensitive. Addresses arrive mixed-case from different collectors.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// WalletSet is an immutable set of addresses the user controls, mapped to
// human labels. Membership in this set is the basis for INTERNAL classification.
type WalletSet struct {
	labels map[string]string
}

// NewWalletSet builds a wallet set from an address -> label mapping.
// Addresses are normalized; later duplicates overwrite earlier labels.
func NewWalletSet(wallets map[string]string) *WalletSet {
	labels := make(map[string]string, len(wallets))
	for address, label := range wallets {
		normalized := NormalizeAddress(address)
		if normalized == "" {
			continue
		}
		labels[normalized] = label
	}
	return &WalletSet{labels: labels}
}

// Contains reports whether the address belongs to the tracked wallet set.
func (ws *WalletSet) Contains(address string) bool {
	_, ok := ws.labels[NormalizeAddress(address)]
	return ok
}

// Label returns the label of a tracked wallet, if present.
func (ws *WalletSet) Label(address string) (string, bool) {
	label, ok := ws.labels[NormalizeAddress(address)]
	return label, ok
}

// Size returns the number of tracked wallets.
func (ws *WalletSet) Size() int {
	return len(ws.labels)
}

// Addresses returns the normalized tracked addresses in sorted order.
func (ws *WalletSet) Addresses() []string {
	addresses := make([]string, 0, len(ws.labels))
	for address := range ws.labels {
		addresses = append(addresses, address)
	}
	sort.Strings(addresses)
	return addresses
}

// Counterparty is a known external party (exchange deposit address, friend's
// wallet) used to label genuine external flows.
type Counterparty struct {
	Address string                 `json:"address"`
	Name    string                 `json:"name"`
	Kind    types.CounterpartyKind `json:"kind"`
}

// CounterpartyBook looks up known counterparties by address. Optional: an
// empty book just means external flows stay unlabeled.
type CounterpartyBook struct {
	entries map[string]Counterparty
}

// NewCounterpartyBook builds a counterparty book, normalizing addresses.
func NewCounterpartyBook(counterparties []Counterparty) *CounterpartyBook {
	entries := make(map[string]Counterparty, len(counterparties))
	for _, cp := range counterparties {
		normalized := NormalizeAddress(cp.Address)
		if normalized == "" {
			continue
		}
		cp.Address = normalized
		entries[normalized] = cp
	}
	return &CounterpartyBook{entries: entries}
}

// Lookup returns the counterparty registered for an address, if any.
func (cb *CounterpartyBook) Lookup(address string) (Counterparty, bool) {
	if cb == nil {
		return Counterparty{}, false
	}
	cp, ok := cb.entries[NormalizeAddress(address)]
	return cp, ok
}

// Size returns the number of known counterparties.
func (cb *CounterpartyBook) Size() int {
	if cb == nil {
		return 0
	}
	return len(cb.entries)
}
