package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/hongminglow/sales-dashboard-be/internal/archive"
	"github.com/hongminglow/sales-dashboard-be/internal/cache"
	"github.com/hongminglow/sales-dashboard-be/internal/config"
	"github.com/hongminglow/sales-dashboard-be/internal/dataset"
	"github.com/hongminglow/sales-dashboard-be/internal/events"
	"github.com/hongminglow/sales-dashboard-be/internal/logging"
	"github.com/hongminglow/sales-dashboard-be/internal/server"
	"github.com/hongminglow/sales-dashboard-be/internal/sheets"
	"github.com/hongminglow/sales-dashboard-be/internal/storage"
	"github.com/hongminglow/sales-dashboard-be/internal/storage/memory"
	"github.com/hongminglow/sales-dashboard-be/internal/storage/postgres"
	"github.com/hongminglow/sales-dashboard-be/internal/syncer"
)

type stores struct {
	users storage.UserStore
	sales storage.SalesStore
	logs  storage.SyncLogStore
	db    interface{ Ping(context.Context) error }
	close func()
}

func main() {
	loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	catalog, err := dataset.Load()
	if err != nil {
		log.Fatalf("load dataset definitions: %v", err)
	}
	def, err := catalog.Get(cfg.Dataset)
	if err != nil {
		log.Fatalf("select dataset: %v", err)
	}

	ctx := context.Background()
	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}
	defer st.close()

	source, err := newSource(ctx, cfg)
	if err != nil {
		log.Fatalf("init sheets importer: %v", err)
	}

	var opts []syncer.Option
	var reports *cache.ReportCache
	if cfg.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn(ctx, "report cache disabled", "error", err)
		} else {
			defer rdb.Close()
			reports = cache.New(rdb, "reports:"+def.Name, cfg.CacheTTL, logger)
			opts = append(opts, syncer.WithInvalidator(reports))
		}
	}
	if cfg.AMQPURL != "" {
		opts = append(opts, syncer.WithNotifier(events.NewPublisher(cfg.AMQPURL, cfg.SyncQueue)))
	}
	if cfg.S3.Enabled() {
		archiver, err := archive.NewS3Archiver(ctx, cfg.S3)
		if err != nil {
			logger.Warn(ctx, "snapshot archive disabled", "error", err)
		} else {
			opts = append(opts, syncer.WithArchiver(archiver))
		}
	}

	sync := syncer.New(source, def, st.sales, st.logs, logger, opts...)

	srv := server.New(cfg, server.Deps{
		Users:   st.users,
		Sales:   st.sales,
		Dataset: def,
		Syncer:  sync,
		Cache:   reports,
		DB:      st.db,
		Log:     logger,
	})

	go func() {
		logger.Info(ctx, "sales dashboard backend listening", "addr", cfg.HTTPAddress(), "dataset", def.Name, "storage", cfg.StorageDriver)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error(ctxShutdown, "graceful shutdown error", "error", err)
	}
}

func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.StorageDriver == config.DriverMemory {
		m := memory.New()
		return stores{users: m, sales: m, logs: m, close: func() {}}, nil
	}
	pg, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return stores{}, err
	}
	return stores{users: pg, sales: pg, logs: pg, db: pg, close: pg.Close}, nil
}

// unconfiguredSource fails every sync until SPREADSHEET_ID is set.
type unconfiguredSource struct{}

func (unconfiguredSource) FetchRows(context.Context) ([]map[string]string, error) {
	return nil, errors.New("spreadsheet not configured: set SPREADSHEET_ID")
}

func newSource(ctx context.Context, cfg config.Config) (syncer.Source, error) {
	if cfg.SpreadsheetID == "" {
		return unconfiguredSource{}, nil
	}
	return sheets.NewImporter(ctx, cfg.ServiceAccountFile, cfg.SpreadsheetID, cfg.SheetRange)
}

func loadLocalEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found; relying on existing environment")
	}
}
