package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/skylane/sentinel/internal/api"
	"github.com/skylane/sentinel/internal/config"
	"github.com/skylane/sentinel/internal/detector"
	"github.com/skylane/sentinel/internal/dispatch"
	"github.com/skylane/sentinel/internal/engine"
	"github.com/skylane/sentinel/internal/storage/sqlite"
)

// envConfig holds deployment settings; thresholds live in the YAML config.
type envConfig struct {
	Addr        string        `env:"SENTINEL_ADDR" envDefault:":8080"`
	DBPath      string        `env:"SENTINEL_DB_PATH" envDefault:"sentinel.db"`
	ConfigPath  string        `env:"SENTINEL_CONFIG" envDefault:"configs/detectors.yaml"`
	RunInterval time.Duration `env:"SENTINEL_RUN_INTERVAL" envDefault:"0"`
}

func main() {
	var envCfg envConfig
	if err := env.Parse(&envCfg); err != nil {
		slog.Error("failed to parse environment", "err", err)
		os.Exit(1)
	}

	addr := flag.String("addr", envCfg.Addr, "HTTP listen address")
	dbPath := flag.String("db", envCfg.DBPath, "Path to SQLite database")
	cfgPath := flag.String("config", envCfg.ConfigPath, "Path to detectors YAML config")
	runEvery := flag.Duration("run-every", envCfg.RunInterval, "Scheduled run interval (0 disables)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()
	if err := config.Validate(cfg); err != nil {
		slog.Error("config validation failed", "err", err)
		os.Exit(1)
	}

	// ── Storage ───────────────────────────────────────────────────────────────
	store, err := sqlite.Open(*dbPath)
	if err != nil {
		slog.Error("failed to open store", "err", err)
		os.Exit(1)
	}
	defer store.Close()

	// ── Detector registry and engine ─────────────────────────────────────────
	reg := detector.FromConfig(cfg.Detectors, store)
	slog.Info("detectors registered", "names", reg.Names())

	eng := engine.New(reg)
	disp := dispatch.New(store, eng, cfg.Engine.BatchSize)

	// ── Hot-reload watcher ────────────────────────────────────────────────────
	loader.OnChange(func(newCfg *config.Config) {
		if err := config.Validate(newCfg); err != nil {
			slog.Warn("hot-reload skipped: config invalid", "err", err)
			return
		}
		eng.SwapRegistry(detector.FromConfig(newCfg.Detectors, store))
		disp.SetBatchSize(newCfg.Engine.BatchSize)
		slog.Info("detector config hot-reloaded")
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Scheduled runs ────────────────────────────────────────────────────────
	if *runEvery > 0 {
		go func() {
			ticker := time.NewTicker(*runEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if _, err := disp.Run(ctx); err != nil {
						slog.Error("scheduled run failed", "err", err)
					}
				case <-ctx.Done():
					return
				}
			}
		}()
		slog.Info("scheduled runs enabled", "interval", *runEvery)
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	handler := api.New(disp, loader)
	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down…")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	cancel()
	slog.Info("goodbye")
}
