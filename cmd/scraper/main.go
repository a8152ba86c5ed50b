package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ge-tracker/internal/config"
	"ge-tracker/internal/database"
	"ge-tracker/internal/logger"
	"ge-tracker/internal/market"
	"ge-tracker/internal/services/ingest"
	"ge-tracker/internal/services/osrs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var (
	interval   = flag.Duration("interval", 0, "time between runs (default SCRAPER_INTERVAL)")
	once       = flag.Bool("once", false, "run the selected jobs once and exit")
	runCatalog = flag.Bool("catalog", true, "sync the item catalog")
	runPrices  = flag.Bool("prices", true, "record latest prices")
	runIcons   = flag.Bool("icons", false, "download missing item icons")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()
	if *interval > 0 {
		cfg.Scraper.Interval = *interval
	}
	if cfg.Scraper.Interval <= 0 {
		cfg.Scraper.Interval = 10 * time.Minute
	}

	zl, err := logger.New(cfg.Logger, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zl.Sync()

	db, err := database.Initialize(cfg.Database, zl)
	if err != nil {
		zl.Fatal("connect database", zap.Error(err))
	}

	client, err := osrs.NewClient(cfg.Upstream, zl)
	if err != nil {
		zl.Fatal("init upstream client", zap.Error(err))
	}
	icons := osrs.NewIconFetcher(cfg.Upstream, cfg.Scraper.IconDir, cfg.Scraper.Concurrency, zl)
	svc := ingest.New(market.NewStore(db, zl), client, icons, cfg.Scraper, zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zl.Info("scraper started",
		zap.Int("pid", os.Getpid()),
		zap.Duration("interval", cfg.Scraper.Interval),
		zap.Bool("catalog", *runCatalog),
		zap.Bool("prices", *runPrices),
		zap.Bool("icons", *runIcons),
	)

	if err := runOnce(ctx, svc, zl); err != nil && *once {
		zl.Error("scrape failed", zap.Error(err))
		os.Exit(1)
	}
	if *once {
		return
	}

	ticker := time.NewTicker(cfg.Scraper.Interval)
	defer ticker.Stop()
	for iteration := 2; ; iteration++ {
		select {
		case <-ctx.Done():
			zl.Info("shutting down")
			return
		case <-ticker.C:
			zl.Info("scrape", zap.Int("iteration", iteration))
			if err := runOnce(ctx, svc, zl); err != nil {
				zl.Error("scrape failed", zap.Error(err))
			}
		}
	}
}

// runOnce runs the selected jobs in order and returns the first failure.
// Later jobs still run so one bad endpoint does not starve the others.
func runOnce(ctx context.Context, svc *ingest.Service, zl *zap.Logger) error {
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}

	if *runCatalog {
		_, err := svc.SyncCatalog(ctx)
		keep(err)
	}
	if *runPrices {
		_, err := svc.SyncPrices(ctx, nil)
		keep(err)
	}
	if *runIcons {
		_, err := svc.SyncIcons(ctx)
		keep(err)
	}
	if first != nil {
		zl.Warn("run finished with errors", zap.Error(first))
	}
	return first
}
