package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tradebot/goledger/internal/kvstore"
	"github.com/tradebot/goledger/internal/ledger"
	"github.com/tradebot/goledger/internal/server"
	"github.com/tradebot/goledger/pkg/config"
	"github.com/tradebot/goledger/pkg/logger"
)

func main() {
	// Load .env (best-effort). If missing, fall back to real env vars.
	_ = godotenv.Load()

	getenv := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}

	var (
		configPath = flag.String("config", getenv("GOLEDGER_CONFIG", "config.yaml"), "config file path")
		listenAddr = flag.String("listen", getenv("GOLEDGER_LISTEN", ""), "HTTP listen address (overrides config)")
		dataDir    = flag.String("data", getenv("GOLEDGER_DATA", ""), "badger data directory (overrides config)")
	)
	flag.Parse()

	config.SetConfigPath(*configPath)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if *listenAddr != "" {
		cfg.Listen = *listenAddr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}

	store, err := kvstore.Open(kvstore.OpenOptions{Path: cfg.DataDir})
	if err != nil {
		log.Fatalf("open store failed: %v", err)
	}
	defer store.Close()

	svc := ledger.NewService(store)
	perf := ledger.NewAggregator(store)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	svc.StartReconciler(bgCtx, cfg.ReconcileInterval.Std())

	srv, err := server.New(server.Config{
		StreamInterval: cfg.StreamInterval.Std(),
	}, svc, perf, store)
	if err != nil {
		log.Fatalf("init server failed: %v", err)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infof("ledger server listening on %s", cfg.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("http server error: %v", err)
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	<-stopCh

	bgCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)

	fmt.Println("server stopped")
}
