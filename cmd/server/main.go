package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/agritrace/internal/config"
	"github.com/mamadbah2/agritrace/internal/repository/mongodb"
	"github.com/mamadbah2/agritrace/internal/repository/sheets"
	"github.com/mamadbah2/agritrace/internal/scheduler"
	"github.com/mamadbah2/agritrace/internal/server/handlers"
	"github.com/mamadbah2/agritrace/internal/server/router"
	"github.com/mamadbah2/agritrace/internal/service/accounts"
	reportingsvc "github.com/mamadbah2/agritrace/internal/service/reporting"
	trackingsvc "github.com/mamadbah2/agritrace/internal/service/tracking"
	"github.com/mamadbah2/agritrace/internal/session"
	"github.com/mamadbah2/agritrace/pkg/clients/provider"
	"github.com/mamadbah2/agritrace/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.LogLevel))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	mongoRepo, err := mongodb.NewMongoDBRepository(context.Background(), cfg.MongoDB.URI, cfg.MongoDB.DBName)
	if err != nil {
		baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
	}
	defer func() {
		if err := mongoRepo.Close(context.Background()); err != nil {
			baseLogger.Error("failed to close mongodb connection", zap.Error(err))
		}
	}()

	providerClient := provider.NewClient(cfg.Chain)
	sessionMgr := session.NewManager(providerClient, baseLogger.Named("session"))

	trackingSvc, err := trackingsvc.NewService(providerClient, sessionMgr, cfg.Chain, mongoRepo, baseLogger.Named("svc.tracking"))
	if err != nil {
		baseLogger.Fatal("failed to init tracking service", zap.Error(err))
	}

	// Silent auto-reconnect: when the agent reports an already-authorized
	// identity, initialize without prompting. Failure is logged only.
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 10*time.Second)
	sessionMgr.Resume(startupCtx)
	cancelStartup()

	sessionMgr.Watch(cfg.Chain.WatchInterval)
	defer sessionMgr.Close()
	go trackingSvc.ConsumeEvents()

	accountSvc := accounts.NewService(mongoRepo, cfg.Auth, baseLogger.Named("svc.accounts"))

	accountHandler := handlers.NewAccountHandler(accountSvc, baseLogger.Named("handlers.accounts"))
	batchHandler := handlers.NewBatchHandler(trackingSvc, sessionMgr, baseLogger.Named("handlers.batches"))
	engine := router.New(accountHandler, batchHandler, cfg.Auth.JWTSecret, baseLogger.Named("router"))

	if cfg.Reporting.Enabled {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(context.Background(), cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}

		reportingSvc := reportingsvc.NewService(sheetsRepo, mongoRepo, trackingSvc, baseLogger.Named("svc.reporting"))
		sched := scheduler.NewScheduler(cfg.Reporting, reportingSvc, baseLogger.Named("scheduler"))
		sched.Start()
		defer sched.Stop()
	} else {
		baseLogger.Info("snapshot reporting disabled")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
