package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/wallet-flow-tracker/internal/errors"
	"github.com/wallet-flow-tracker/internal/models"
	"github.com/wallet-flow-tracker/internal/types"
)

// Ethereum address regex pattern (0x followed by 40 hexadecimal characters)
var ethereumAddressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// WalletRepository persists the tracked wallet registry and the
// counterparty book in Postgres
type WalletRepository struct {
	db *PostgresDB
}

// NewWalletRepository creates a new wallet repository
func NewWalletRepository(db *PostgresDB) *WalletRepository {
	return &WalletRepository{db: db}
}

// ValidateAddress validates an Ethereum address format
func ValidateAddress(address string) error {
	if !ethereumAddressRegex.MatchString(address) {
		return apperrors.NewInvalidParameterError("address",
			fmt.Sprintf("invalid address format: %s (must be 0x followed by 40 hexadecimal characters)", address))
	}
	return nil
}

// UpsertWallet creates or updates a registry entry
func (r *WalletRepository) UpsertWallet(ctx context.Context, address, label string) error {
	if err := ValidateAddress(address); err != nil {
		return err
	}
	address = strings.ToLower(address)
	if label == "" {
		label = address
	}

	query := `
		INSERT INTO wallets (address, label)
		VALUES ($1, $2)
		ON CONFLICT (address)
		DO UPDATE SET label = EXCLUDED.label, updated_at = now()
	`

	if _, err := r.db.Pool().Exec(ctx, query, address, label); err != nil {
		return fmt.Errorf("failed to upsert wallet: %w", err)
	}
	return nil
}

// GetWallet retrieves the label for an address, or "" when untracked
func (r *WalletRepository) GetWallet(ctx context.Context, address string) (string, error) {
	if err := ValidateAddress(address); err != nil {
		return "", err
	}
	address = strings.ToLower(address)

	var label string
	query := `SELECT label FROM wallets WHERE address = $1`
	err := r.db.Pool().QueryRow(ctx, query, address).Scan(&label)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get wallet: %w", err)
	}
	return label, nil
}

// DeleteWallet removes an address from the registry
func (r *WalletRepository) DeleteWallet(ctx context.Context, address string) error {
	if err := ValidateAddress(address); err != nil {
		return err
	}
	address = strings.ToLower(address)

	query := `DELETE FROM wallets WHERE address = $1`
	result, err := r.db.Pool().Exec(ctx, query, address)
	if err != nil {
		return fmt.Errorf("failed to delete wallet: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("wallet not found: %s", address)
	}
	return nil
}

// LoadWalletSet loads the whole registry as a wallet set. An empty registry
// is a fatal configuration error, not an empty result.
func (r *WalletRepository) LoadWalletSet(ctx context.Context) (*models.WalletSet, error) {
	query := `SELECT address, label FROM wallets ORDER BY address`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet registry: %w", err)
	}
	defer rows.Close()

	labels := make(map[string]string)
	for rows.Next() {
		var address, label string
		if err := rows.Scan(&address, &label); err != nil {
			return nil, fmt.Errorf("failed to scan wallet: %w", err)
		}
		labels[address] = label
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load wallet registry: %w", err)
	}

	if len(labels) == 0 {
		return nil, apperrors.NewEmptyWalletSetError()
	}
	return models.NewWalletSet(labels), nil
}

// UpsertCounterparty records a known external counterparty
func (r *WalletRepository) UpsertCounterparty(ctx context.Context, cp models.Counterparty) error {
	if err := ValidateAddress(cp.Address); err != nil {
		return err
	}

	query := `
		INSERT INTO counterparties (address, name, kind)
		VALUES ($1, $2, $3)
		ON CONFLICT (address)
		DO UPDATE SET name = EXCLUDED.name, kind = EXCLUDED.kind, updated_at = now()
	`

	_, err := r.db.Pool().Exec(ctx, query, strings.ToLower(cp.Address), cp.Name, cp.Kind)
	if err != nil {
		return fmt.Errorf("failed to upsert counterparty: %w", err)
	}
	return nil
}

// LoadCounterpartyBook loads all known counterparties. An empty book is fine:
// counterparty labels are an enrichment, not a requirement.
func (r *WalletRepository) LoadCounterpartyBook(ctx context.Context) (*models.CounterpartyBook, error) {
	query := `SELECT address, name, kind FROM counterparties ORDER BY address`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load counterparties: %w", err)
	}
	defer rows.Close()

	var entries []models.Counterparty
	for rows.Next() {
		var cp models.Counterparty
		var kind string
		if err := rows.Scan(&cp.Address, &cp.Name, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan counterparty: %w", err)
		}
		cp.Kind = types.CounterpartyKind(kind)
		entries = append(entries, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load counterparties: %w", err)
	}

	return models.NewCounterpartyBook(entries), nil
}
