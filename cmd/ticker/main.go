package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"TickerFeed/internal/cache"
	"TickerFeed/internal/collector"
	"TickerFeed/internal/config"
	"TickerFeed/internal/display"
	"TickerFeed/internal/notifier"
	"TickerFeed/internal/recorder"
	"TickerFeed/internal/scheduler"
	"TickerFeed/internal/state"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] TickerFeed starting...")

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
	instruments := cfg.InstrumentList()

	// Init providers
	routing := collector.NewRouting(cfg.ProviderSettings())
	log.Printf("[INFO] providers: batch %s, single %s", routing.Batch.Name(), routing.Single.Name())

	// Init series cache
	store, err := cache.Open(cfg.CacheDir)
	if err != nil {
		log.Fatalf("[FATAL] open cache: %v", err)
	}

	// Init recorder
	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init engine
	table := state.NewTable(instruments)
	engine := scheduler.New(ctx, cfg.Periods(), instruments, routing, table, store, rec)

	// Display rotation
	rotator := display.NewRotator(table, &display.TextRenderer{Out: os.Stdout, Width: 32},
		cfg.Display.BaseTime, instruments)
	go rotator.Run(ctx)

	// Config hot reload
	watcher := config.NewWatcher(cfgPath, func(next *config.Config) {
		list := next.InstrumentList()
		engine.Reconfigure(list, collector.NewRouting(next.ProviderSettings()), next.Periods())
		rotator.SetInstruments(list)
	})
	if _, err := engine.Cron.AddFunc(fmt.Sprintf("@every %s", cfg.Schedule.ConfigWatch), watcher.Check); err != nil {
		log.Fatalf("[FATAL] register config watch: %v", err)
	}

	if err := engine.Start(); err != nil {
		log.Fatalf("[FATAL] start engine: %v", err)
	}
	defer engine.Stop()

	// Start Telegram polling
	if cfg.Telegram.BotToken != "" {
		tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		go tn.StartPolling(ctx, engine.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	log.Println("[INFO] TickerFeed is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] TickerFeed stopped")
}
