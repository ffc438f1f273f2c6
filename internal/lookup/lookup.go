// Package lookup provides the contract-lookup collaborator: given an address,
// does it have deployed code? Availability is uncertain by nature, so callers
// must treat a lookup error as "unknown", never as "contract".
package lookup

import "context"

// ContractLookup answers whether an address is a deployed contract.
// Implementations go to the network; the classifier injects one so its own
// decision logic stays deterministic and testable offline.
type ContractLookup interface {
	IsContract(ctx context.Context, address string) (bool, error)
}

// ContractLookupFunc adapts a plain function to the ContractLookup interface.
type ContractLookupFunc func(ctx context.Context, address string) (bool, error)

// IsContract implements ContractLookup.
func (f ContractLookupFunc) IsContract(ctx context.Context, address string) (bool, error) {
	return f(ctx, address)
}

// StaticLookup answers from a fixed set of known contract addresses. Used when
// no RPC endpoint is configured and in tests.
type StaticLookup struct {
	contracts map[string]bool
}

// NewStaticLookup builds a lookup over a known-contract registry.
func NewStaticLookup(contracts []string) *StaticLookup {
	set := make(map[string]bool, len(contracts))
	for _, address := range contracts {
		set[normalize(address)] = true
	}
	return &StaticLookup{contracts: set}
}

// IsContract implements ContractLookup.
func (s *StaticLookup) IsContract(_ context.Context, address string) (bool, error) {
	return s.contracts[normalize(address)], nil
}
