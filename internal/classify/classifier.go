// Package classify decides what kind of account an address is: one of the
// user's own wallets, a foreign wallet, or a deployed contract. The decision
// feeds the flow classifier, which is why a wrong answer here turns directly
// into a wrong profit figure downstream.
package classify

import (
	"context"
	"sync"

	"github.com/wallet-flow-tracker/internal/errors"
	"github.com/wallet-flow-tracker/internal/logging"
	"github.com/wallet-flow-tracker/internal/lookup"
	"github.com/wallet-flow-tracker/internal/models"
	"github.com/wallet-flow-tracker/internal/types"
)

// KindCache persists Contract/ExternalWallet classifications across runs.
// Own-wallet membership is never stored here: it depends on the wallet set,
// which can change between runs.
type KindCache interface {
	GetKind(ctx context.Context, address string) (types.AddressKind, bool, error)
	SetKind(ctx context.Context, address string, kind types.AddressKind) error
}

// Classifier classifies addresses against one wallet set. Build a fresh
// Classifier per run so membership is always evaluated against the current
// registry.
type Classifier struct {
	wallets *models.WalletSet
	lookup  lookup.ContractLookup
	cache   KindCache // optional
	report  *models.RunReport

	mu   sync.RWMutex
	memo map[string]types.AddressKind
}

// NewClassifier creates a classifier for one run. The contract lookup may be
// nil, in which case every non-own address classifies as external_wallet.
func NewClassifier(wallets *models.WalletSet, contractLookup lookup.ContractLookup, cache KindCache, report *models.RunReport) (*Classifier, error) {
	if wallets == nil || wallets.Size() == 0 {
		return nil, errors.NewEmptyWalletSetError()
	}
	return &Classifier{
		wallets: wallets,
		lookup:  contractLookup,
		cache:   cache,
		report:  report,
		memo:    make(map[string]types.AddressKind),
	}, nil
}

// Classify returns the kind of an address. Own-wallet membership wins over
// everything; the contract lookup is only consulted for foreign addresses.
// When the lookup collaborator is unavailable the classifier fails closed to
// external_wallet and records a data-quality warning - it never assumes
// contract, because that would silently neutralize genuine external flows.
func (c *Classifier) Classify(ctx context.Context, address string) types.AddressKind {
	normalized := models.NormalizeAddress(address)
	if normalized == "" {
		return types.KindExternalWallet
	}

	// Membership is re-evaluated every call and never memoized: the memo
	// outlives nothing, but keeping membership out of it makes the rule
	// obvious.
	if c.wallets.Contains(normalized) {
		return types.KindOwnWallet
	}

	c.mu.RLock()
	kind, ok := c.memo[normalized]
	c.mu.RUnlock()
	if ok {
		return kind
	}

	kind = c.resolveForeign(ctx, normalized)

	c.mu.Lock()
	c.memo[normalized] = kind
	c.mu.Unlock()

	return kind
}

// resolveForeign decides contract vs external wallet for a non-own address.
func (c *Classifier) resolveForeign(ctx context.Context, normalized string) types.AddressKind {
	logger := logging.FromContext(ctx)

	if c.cache != nil {
		kind, found, err := c.cache.GetKind(ctx, normalized)
		if err != nil {
			logger.WithError(err).WithField("address", normalized).Warn("Kind cache read failed")
		} else if found {
			return kind
		}
	}

	if c.lookup == nil {
		return types.KindExternalWallet
	}

	isContract, err := c.lookup.IsContract(ctx, normalized)
	if err != nil {
		// Fail closed: unknown means external wallet, surfaced as a warning
		// rather than halting the pipeline.
		catErr := errors.NewClassificationUnavailableError(normalized, err)
		logger.WithError(catErr).Warn("Contract lookup unavailable, degrading to external_wallet")
		if c.report != nil {
			c.report.Add(types.WarnClassificationUnavailable, catErr.Message)
		}
		return types.KindExternalWallet
	}

	kind := types.KindExternalWallet
	if isContract {
		kind = types.KindContract
	}

	if c.cache != nil {
		if err := c.cache.SetKind(ctx, normalized, kind); err != nil {
			logger.WithError(err).WithField("address", normalized).Warn("Kind cache write failed")
		}
	}

	return kind
}

// MemoSize returns how many foreign addresses have been memoized this run.
func (c *Classifier) MemoSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.memo)
}
