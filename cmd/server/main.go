// Package main provides the reporting API server entry point.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/wallet-flow-tracker/internal/api"
	"github.com/wallet-flow-tracker/internal/classify"
	"github.com/wallet-flow-tracker/internal/config"
	"github.com/wallet-flow-tracker/internal/logging"
	"github.com/wallet-flow-tracker/internal/lookup"
	"github.com/wallet-flow-tracker/internal/service"
	"github.com/wallet-flow-tracker/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()

	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to ClickHouse")
	}
	defer func() { _ = clickhouse.Close() }()

	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer func() { _ = redis.Close() }()

	logger.Info("Database connections established")

	// Repositories
	walletRepo := storage.NewWalletRepository(postgres)
	flowRepo := storage.NewFlowRepository(clickhouse)
	pnlRepo := storage.NewPnLRepository(clickhouse)

	ctx := context.Background()

	// Wallet registry: empty means classification is meaningless, refuse to start.
	wallets, err := walletRepo.LoadWalletSet(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load wallet registry")
	}
	book, err := walletRepo.LoadCounterpartyBook(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load counterparty book")
	}
	logger.WithFields(map[string]interface{}{
		"wallets":        wallets.Size(),
		"counterparties": book.Size(),
	}).Info("Registry loaded")

	contractLookup := buildContractLookup(ctx, cfg)
	var kindCache classify.KindCache = storage.NewRedisKindCache(redis, cfg.Lookup.CacheTTL)

	reportService := service.NewReportService(
		wallets,
		book,
		contractLookup,
		kindCache,
		cfg.Pipeline,
		logger,
	).WithRepositories(flowRepo, pnlRepo)

	serverConfig := api.DefaultServerConfig(cfg.Server.Host, cfg.Server.Port)
	server := api.NewServer(serverConfig, reportService, walletRepo, flowRepo, pnlRepo)

	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Error("Server stopped")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("API server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Graceful shutdown failed")
	}
}

// buildContractLookup picks the code-presence lookup: RPC node first, the
// rate-limited Etherscan proxy as fallback, none when nothing is configured.
// Without a lookup every unknown address degrades to external_wallet.
func buildContractLookup(ctx context.Context, cfg *config.Config) lookup.ContractLookup {
	logger := logging.GetGlobalLogger()

	if cfg.Lookup.RPCEndpoint != "" {
		eth, err := lookup.NewEthLookup(ctx, cfg.Lookup.RPCEndpoint)
		if err == nil {
			logger.Info("Contract lookup using JSON-RPC node")
			return eth
		}
		logger.WithError(err).Warn("RPC contract lookup unavailable, trying Etherscan")
	}

	if cfg.Lookup.EtherscanAPIKey != "" {
		es, err := lookup.NewEtherscanLookup(cfg.Lookup.EtherscanAPIKey, cfg.Lookup.EtherscanRPS)
		if err == nil {
			logger.Info("Contract lookup using Etherscan proxy")
			return es
		}
		logger.WithError(err).Warn("Etherscan contract lookup unavailable")
	}

	logger.Warn("No contract lookup configured, unknown addresses degrade to external_wallet")
	return nil
}
