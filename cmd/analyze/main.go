// Package main provides the batch analysis CLI: classify collected transfer
// and snapshot CSVs against a wallet registry and emit the full report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/wallet-flow-tracker/internal/config"
	"github.com/wallet-flow-tracker/internal/ingest"
	"github.com/wallet-flow-tracker/internal/logging"
	"github.com/wallet-flow-tracker/internal/lookup"
	"github.com/wallet-flow-tracker/internal/models"
	"github.com/wallet-flow-tracker/internal/service"
)

func main() {
	var (
		walletsPath   = flag.String("wallets", "", "Wallet registry CSV (address,label), required")
		transfersPath = flag.String("transfers", "", "Transfer history CSV")
		snapshotsPath = flag.String("snapshots", "", "Portfolio snapshot CSV")
		contractsPath = flag.String("contracts", "", "Known contract addresses, one per line")
		outputPath    = flag.String("out", "", "Write the JSON report here instead of stdout")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(
		logging.ParseLogLevel(cfg.Logging.Level),
		logging.ParseLogFormat(cfg.Logging.Format),
	)
	logger := logging.GetGlobalLogger()

	if *walletsPath == "" {
		logger.Fatal("-wallets is required: classification is meaningless without a registry")
	}
	if *transfersPath == "" && *snapshotsPath == "" {
		logger.Fatal("Nothing to do: pass -transfers and/or -snapshots")
	}

	wallets, err := loadWallets(*walletsPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load wallet registry")
	}

	var transfers []models.RawTransfer
	if *transfersPath != "" {
		if transfers, err = loadTransfers(*transfersPath); err != nil {
			logger.WithError(err).Fatal("Failed to read transfers")
		}
	}

	var snapshots []models.RawSnapshot
	if *snapshotsPath != "" {
		if snapshots, err = loadSnapshots(*snapshotsPath); err != nil {
			logger.WithError(err).Fatal("Failed to read snapshots")
		}
	}

	var contractLookup lookup.ContractLookup
	if *contractsPath != "" {
		known, err := loadContractList(*contractsPath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to read contract list")
		}
		contractLookup = lookup.NewStaticLookup(known)
	} else if cfg.Lookup.RPCEndpoint != "" {
		eth, err := lookup.NewEthLookup(context.Background(), cfg.Lookup.RPCEndpoint)
		if err != nil {
			logger.WithError(err).Warn("RPC contract lookup unavailable, unknown addresses degrade to external_wallet")
		} else {
			contractLookup = eth
			defer eth.Close()
		}
	}

	reportService := service.NewReportService(wallets, nil, contractLookup, nil, cfg.Pipeline, logger)

	result, err := reportService.Analyze(context.Background(), transfers, snapshots)
	if err != nil {
		logger.WithError(err).Fatal("Analysis failed")
	}

	out := os.Stdout
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create output file")
		}
		defer func() { _ = f.Close() }()
		out = f
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		logger.WithError(err).Fatal("Failed to write report")
	}

	if result.Report.Total() > 0 {
		logger.Warnf("Run completed with %d warnings", result.Report.Total())
	}
}

func loadWallets(path string) (*models.WalletSet, error) {
	f, err := os.Open(path) // #nosec G304 - user-supplied CLI path
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	registry, err := ingest.ReadWalletRegistry(f)
	if err != nil {
		return nil, err
	}
	return models.NewWalletSet(registry), nil
}

func loadTransfers(path string) ([]models.RawTransfer, error) {
	f, err := os.Open(path) // #nosec G304 - user-supplied CLI path
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ingest.ReadTransfers(f)
}

func loadSnapshots(path string) ([]models.RawSnapshot, error) {
	f, err := os.Open(path) // #nosec G304 - user-supplied CLI path
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	snapshots, err := ingest.ReadSnapshots(f)
	if err != nil {
		return nil, err
	}

	// Snapshot exports carry the capture time in the filename.
	stamp := filepath.Base(path)
	for i := range snapshots {
		if snapshots[i].SourceFileTimestamp == "" {
			snapshots[i].SourceFileTimestamp = stamp
		}
	}
	return snapshots, nil
}

func loadContractList(path string) ([]string, error) {
	data, err := os.ReadFile(path) // #nosec G304 - user-supplied CLI path
	if err != nil {
		return nil, err
	}

	var contracts []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			contracts = append(contracts, line)
		}
	}
	return contracts, nil
}
