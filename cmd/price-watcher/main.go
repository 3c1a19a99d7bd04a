package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tradebot/goledger/internal/pricefeed"
	"github.com/tradebot/goledger/pkg/config"
	"github.com/tradebot/goledger/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	getenv := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return def
	}

	var (
		configPath = flag.String("config", getenv("GOLEDGER_CONFIG", "config.yaml"), "config file path")
		serverURL  = flag.String("server", getenv("GOLEDGER_SERVER_URL", ""), "ledger server base URL (overrides config)")
		interval   = flag.Duration("interval", 0, "poll interval (overrides config)")
	)
	flag.Parse()

	config.SetConfigPath(*configPath)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
	}
	pollInterval := cfg.PollInterval.Std()
	if *interval > 0 {
		pollInterval = *interval
	}

	if err := logger.Init(logger.Config{Level: cfg.Log.Level}); err != nil {
		log.Fatalf("init logger failed: %v", err)
	}

	// 启动横幅
	fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("📈 持仓价格监控程序\n")
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
	fmt.Printf("服务地址: %s\n", cfg.ServerURL)
	fmt.Printf("轮询间隔: %s\n", pollInterval)
	fmt.Printf("启动时间: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-stopCh
		cancel()
	}()

	watcher := pricefeed.NewWatcher(cfg.ServerURL, pollInterval)
	watcher.Run(ctx)

	fmt.Println("price watcher stopped")
}
