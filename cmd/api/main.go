package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/we-promise/sure-sub001/internal/config"
	"github.com/we-promise/sure-sub001/internal/database"
	"github.com/we-promise/sure-sub001/internal/enrich"
	enrichStore "github.com/we-promise/sure-sub001/internal/enrich/store"
	"github.com/we-promise/sure-sub001/internal/events"
	eventsKafka "github.com/we-promise/sure-sub001/internal/events/kafka"
	sureHttp "github.com/we-promise/sure-sub001/internal/http"
	entryHandler "github.com/we-promise/sure-sub001/internal/http/entry"
	importHandler "github.com/we-promise/sure-sub001/internal/http/importfile"
	syncHandler "github.com/we-promise/sure-sub001/internal/http/sync"
	"github.com/we-promise/sure-sub001/internal/importer"
	"github.com/we-promise/sure-sub001/internal/ingest"
	"github.com/we-promise/sure-sub001/internal/ledger"
	ledgerStore "github.com/we-promise/sure-sub001/internal/ledger/store"
	"github.com/we-promise/sure-sub001/internal/provider/simplefin"
	"github.com/we-promise/sure-sub001/internal/syncer"
	syncerStore "github.com/we-promise/sure-sub001/internal/syncer/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(context.Background(), cfg.ConnectionString())
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
		importService = importer.NewService()
	)

	var (
		client = simplefin.NewClient(cfg.SimpleFin.AccessURL)
		mapper = simplefin.NewMapper()
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

	var publisher events.Publisher = events.Noop{}
	if cfg.Kafka.Enabled {
		kafkaPublisher := eventsKafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaPublisher.Close()

		publisher = kafkaPublisher
	}

	var (
		syncH   = syncHandler.NewHandler(orchestrator, publisher, simplefin.Name, cfg.Sync.LookbackMonths, cfg.Sync.MaxWindowDays)
		entryH  = entryHandler.NewHandler(ledgerService)
		importH = importHandler.NewHandler(importService, ledgerService, ingestService, enrichService, anchorManager)
	)

	router := sureHttp.New(syncH, entryH, importH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
