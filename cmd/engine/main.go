package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"BeliefSentinel/internal/audit"
	"BeliefSentinel/internal/config"
	"BeliefSentinel/internal/dispatch"
	"BeliefSentinel/internal/encryptor"
	"BeliefSentinel/internal/engine"
	"BeliefSentinel/internal/ledger"
	"BeliefSentinel/internal/oracle"
	"BeliefSentinel/internal/store"
	"BeliefSentinel/internal/vault"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] BeliefSentinel starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init encrypted store
	if err := os.MkdirAll(filepath.Dir(cfg.Store.SQLitePath), 0o755); err != nil {
		log.Fatalf("[FATAL] create data dir: %v", err)
	}
	backend, err := store.NewSQLiteBackend(cfg.Store.SQLitePath)
	if err != nil {
		log.Fatalf("[FATAL] open store: %v", err)
	}
	enc, err := store.New(backend, cfg.Store.Secret)
	if err != nil {
		log.Fatalf("[FATAL] init encrypted store: %v", err)
	}
	defer enc.Close()

	if err := enc.MigrateLegacy(filepath.Dir(cfg.Store.SQLitePath)); err != nil {
		log.Printf("[WARN] legacy store migration: %v", err)
	}

	// Init services
	kv := vault.New(enc)
	auditLog := audit.NewLog(enc)
	activity := audit.NewFeed()
	feed := oracle.New(cfg.Sources, cfg.Proxy)
	lc := ledger.NewHTTPClient(cfg.Ledger.BaseURL, cfg.Ledger.APIKey)
	dirEnc := encryptor.NewHTTP(cfg.Encryptor.Endpoint)

	dispatcher := &dispatch.Dispatcher{
		Ledger:    lc,
		Vault:     kv,
		Encrypter: dirEnc,
		Audit:     auditLog,
		Activity:  activity,
		Book:      dispatch.NewBook(),
		Stats:     dispatch.NewStatsBook(enc),
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng := engine.New(ctx, lc, feed, dispatcher, auditLog, activity, cfg.ScanInterval())
	eng.Run()
	defer eng.Shutdown()

	// Start every active agent registered to the configured owner.
	if owner := os.Getenv("OWNER_ADDRESS"); owner != "" {
		ids, err := lc.OwnerAgentIDs(ctx, owner)
		if err != nil {
			log.Printf("[ERROR] read owner agents: %v", err)
		}
		for _, id := range ids {
			profile, err := lc.Agent(ctx, id)
			if err != nil {
				log.Printf("[ERROR] read agent %d: %v", id, err)
				continue
			}
			if !profile.Active {
				continue
			}
			if profile.AutoExecute && !kv.Has(id) {
				addr, err := kv.Create(id)
				if err != nil {
					log.Printf("[ERROR] create delegate wallet for agent %d: %v", id, err)
					continue
				}
				log.Printf("[INFO] created delegate wallet for agent %d: %s", id, addr)
			}
			if err := eng.StartAgent(id, profile); err != nil {
				log.Printf("[ERROR] start agent %d: %v", id, err)
			}
		}
	} else {
		log.Println("[WARN] OWNER_ADDRESS not set, no agents started")
	}

	log.Println("[INFO] BeliefSentinel is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	for _, id := range eng.RunningAgents() {
		eng.StopAgent(id)
	}
	cancel()
	log.Println("[INFO] BeliefSentinel stopped")
}
