// Package types provides common type definitions for the wallet flow tracker.
package types

// AddressKind represents what kind of account an address resolves to.
type AddressKind string

const (
	// KindOwnWallet means the address is part of the tracked wallet set
	KindOwnWallet AddressKind = "own_wallet"
	// KindExternalWallet means the address is an externally-owned account outside the wallet set
	KindExternalWallet AddressKind = "external_wallet"
	// KindContract means the address has deployed code (DeFi protocol, router, pool)
	KindContract AddressKind = "contract"
)

// FlowClass labels a transfer leg after classification.
type FlowClass string

const (
	// FlowExternalIn represents capital entering the wallet set from outside
	FlowExternalIn FlowClass = "EXTERNAL_IN"
	// FlowExternalOut represents capital leaving the wallet set to the outside
	FlowExternalOut FlowClass = "EXTERNAL_OUT"
	// FlowInternal represents a move between two addresses in the wallet set
	FlowInternal FlowClass = "INTERNAL"
	// FlowNeutral represents a swap/pool leg or zero-value transfer that must
	// not count toward external investment
	FlowNeutral FlowClass = "NEUTRAL"
)

// Direction represents the raw direction attached to a transfer leg upstream.
type Direction string

const (
	// DirectionIn represents an incoming transfer (positive amount)
	DirectionIn Direction = "IN"
	// DirectionOut represents an outgoing transfer (negative amount)
	DirectionOut Direction = "OUT"
	// DirectionNeutral represents a zero-value or self-referential transfer
	DirectionNeutral Direction = "NEUTRAL"
	// DirectionUnknown means upstream could not determine a direction
	DirectionUnknown Direction = "UNKNOWN"
)

// WarningCategory buckets non-fatal data-quality findings of a run.
type WarningCategory string

const (
	// WarnMalformedRecord counts rows dropped for missing hash/timestamp/addresses
	WarnMalformedRecord WarningCategory = "malformed_record"
	// WarnClassificationUnavailable counts contract lookups that failed closed
	WarnClassificationUnavailable WarningCategory = "classification_unavailable"
	// WarnConsistencyViolation flags a non-zero internal balance
	WarnConsistencyViolation WarningCategory = "consistency_violation"
	// WarnDuplicatePosition counts same-timestamp snapshot collisions
	WarnDuplicatePosition WarningCategory = "duplicate_position"
)

// CounterpartyKind labels a known external counterparty.
type CounterpartyKind string

const (
	// CounterpartyExchange marks a centralized exchange deposit address
	CounterpartyExchange CounterpartyKind = "exchange"
	// CounterpartyFriend marks a known third-party wallet
	CounterpartyFriend CounterpartyKind = "friend"
)
