package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xelth-com/clamflow-labels/internal/config"
	"github.com/xelth-com/clamflow-labels/internal/database"
	"github.com/xelth-com/clamflow-labels/internal/handlers"
	"github.com/xelth-com/clamflow-labels/internal/labels"
	"github.com/xelth-com/clamflow-labels/internal/logger"
	"github.com/xelth-com/clamflow-labels/internal/services/printer"
	"github.com/xelth-com/clamflow-labels/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	// 2. Logger
	log, err := logger.New(cfg.Logger.Mode, cfg.Logger.Level)
	if err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer log.Sync()

	// 3. Database (embedded postgres, external postgres or sqlite)
	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", "error", err)
	}
	// db.Close() is called in the shutdown path below

	if err := db.Migrate(); err != nil {
		log.Warn("schema migration failed", "error", err)
	} else {
		log.Info("schema synchronized")
	}

	// 4. Label engine
	gen := labels.NewGenerator(printer.NewQRRenderer(), log.With("component", "generator"),
		labels.WithConcurrency(cfg.Label.BatchConcurrency),
		labels.WithMaxQuantity(cfg.Label.MaxBatchQuantity),
		labels.WithQRDefaults(cfg.Label.QRSize, cfg.Label.QRBackground),
		labels.WithTimeLayouts(cfg.Label.DateLayout, cfg.Label.TimeLayout),
	)

	// 5. Websocket hub
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	hub := websocket.NewHub(log.With("component", "ws"))
	go hub.Run(ctx)

	// 6. Router
	router := handlers.NewRouter(handlers.Deps{
		DB:        db,
		Generator: gen,
		Hub:       hub,
		Log:       log.With("component", "http"),
		Sheet: printer.SheetConfig{
			Cols: cfg.Label.SheetCols,
			Rows: cfg.Label.SheetRows,
		},
		FrontendDir:    cfg.Server.FrontendDir,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Info("server starting", "port", cfg.Server.Port, "env", cfg.NodeEnv, "db", cfg.Database.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	sig := <-shutdown
	log.Info("shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", "error", err)
	}
	stop()

	// closing the database also stops embedded postgres
	if err := db.Close(); err != nil {
		log.Error("database close error", "error", err)
	}
	log.Info("shutdown complete")
}
