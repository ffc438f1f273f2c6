package lookup

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/wallet-flow-tracker/internal/retry"
)

func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// EthLookup checks code presence through a JSON-RPC node.
type EthLookup struct {
	client   *ethclient.Client
	retryCfg *retry.Config
}

// NewEthLookup dials the RPC endpoint and verifies it is reachable.
func NewEthLookup(ctx context.Context, rpcURL string) (*EthLookup, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("rpc endpoint cannot be empty")
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial rpc endpoint: %w", err)
	}

	if _, err := client.ChainID(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("rpc endpoint not responding: %w", err)
	}

	return &EthLookup{
		client:   client,
		retryCfg: retry.DefaultConfig(),
	}, nil
}

// IsContract reports whether the address has deployed code at the latest block.
func (e *EthLookup) IsContract(ctx context.Context, address string) (bool, error) {
	if !common.IsHexAddress(address) {
		return false, fmt.Errorf("not a hex address: %s", address)
	}

	var code []byte
	err := retry.Do(ctx, e.retryCfg, func(ctx context.Context, _ int) error {
		var callErr error
		code, callErr = e.client.CodeAt(ctx, common.HexToAddress(address), nil)
		return callErr
	})
	if err != nil {
		return false, fmt.Errorf("code lookup failed for %s: %w", address, err)
	}

	return len(code) > 0, nil
}

// Close releases the underlying RPC connection.
func (e *EthLookup) Close() {
	e.client.Close()
}
