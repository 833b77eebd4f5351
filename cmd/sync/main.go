package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/we-promise/sure-sub001/internal/config"
	"github.com/we-promise/sure-sub001/internal/database"
	"github.com/we-promise/sure-sub001/internal/enrich"
	enrichStore "github.com/we-promise/sure-sub001/internal/enrich/store"
	"github.com/we-promise/sure-sub001/internal/ingest"
	"github.com/we-promise/sure-sub001/internal/ledger"
	ledgerStore "github.com/we-promise/sure-sub001/internal/ledger/store"
	"github.com/we-promise/sure-sub001/internal/provider/simplefin"
	"github.com/we-promise/sure-sub001/internal/syncer"
	syncerStore "github.com/we-promise/sure-sub001/internal/syncer/store"
)

func main() {
	_ = godotenv.Load()

	var (
		connectionID   = flag.String("connection", "", "connection id to sync")
		lookbackMonths = flag.Int("lookback", 0, "backfill depth in months, 0 uses SYNC_LOOKBACK_MONTHS")
	)
	flag.Parse()

	if *connectionID == "" {
		slog.Error("missing -connection flag")
		os.Exit(1)
	}

	id, err := uuid.Parse(*connectionID)
	if err != nil {
		slog.Error("invalid connection id", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if *lookbackMonths == 0 {
		*lookbackMonths = cfg.Sync.LookbackMonths
	}

	ctx := context.Background()

	db, err := database.New(ctx, cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var (
		ledgerRepo    = ledgerStore.New(db)
		ledgerService = ledger.NewService(ledgerRepo)
		enrichService = enrich.NewService(enrichStore.New(db))
		ingestService = ingest.NewService(ledgerRepo)
		anchorManager = ledger.NewAnchorManager(ledgerRepo)
		client        = simplefin.NewClient(cfg.SimpleFin.AccessURL)
		mapper        = simplefin.NewMapper()
	)

	processor := syncer.NewProcessor(
		client, mapper, ingestService, enrichService, anchorManager,
		simplefin.Name, cfg.Sync.FetchTimeout,
	)

	orchestrator := syncer.NewOrchestrator(
		client, mapper, ledgerService, processor, syncerStore.New(db),
		syncer.Options{
			MaxConcurrentAccounts: cfg.Sync.MaxConcurrentAccounts,
			AbsoluteLookbackCap:   time.Now().AddDate(0, -cfg.Sync.MaxLookbackMonths, 0),
		},
		slog.Default(),
	)

	conn := syncer.Connection{
		ID:            id,
		ProviderName:  simplefin.Name,
		LookbackStart: time.Now().AddDate(0, -*lookbackMonths, 0),
		MaxWindowDays: cfg.Sync.MaxWindowDays,
	}

	summary, err := orchestrator.Run(ctx, conn)
	if err != nil {
		slog.Error("sync failed", "connection", id, "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(summary); err != nil {
		slog.Error("encoding summary", "error", err)
		os.Exit(1)
	}
}
