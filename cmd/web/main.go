package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AdamBeresnev/code-duels/internal/config"
	"github.com/AdamBeresnev/code-duels/internal/db"
	"github.com/AdamBeresnev/code-duels/internal/judge"
	"github.com/AdamBeresnev/code-duels/internal/middleware"
	"github.com/AdamBeresnev/code-duels/internal/realtime"
	"github.com/AdamBeresnev/code-duels/internal/scheduler"
	"github.com/AdamBeresnev/code-duels/internal/service"
	"github.com/AdamBeresnev/code-duels/internal/store"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	database, err := db.InitDB(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.RunMigrations(database.DB, db.MigrationsSource); err != nil {
		return err
	}

	middleware.InitAuth(cfg)

	sessionManager := scs.New()
	sessionManager.Lifetime = cfg.SessionLifetime
	sessionManager.Store = sqlite3store.New(database.DB)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := realtime.NewHub()
	go hub.Run(ctx)

	var j judge.Judge = judge.Unavailable{}
	if cfg.Judge0URL != "" {
		j = judge.NewJudge0Client(cfg.Judge0URL, cfg.Judge0APIKey)
	} else {
		logger.Warn("JUDGE0_API_URL not set, submissions will fail")
	}

	userStore := store.NewUserStore(database)
	duelService := service.NewDuelService(
		database,
		store.NewDuelStore(database),
		store.NewQuestionStore(database),
		userStore,
		j,
		service.NewXPLedger(database, store.NewLedgerStore(database)),
		service.WithNotifier(hub),
		service.WithTiming(service.Timing{
			MatchGracePeriod: cfg.MatchGracePeriod,
			WaitingTTL:       cfg.WaitingTTL,
			ActiveIdleTTL:    cfg.ActiveIdleTTL,
		}),
	)

	jobs, err := scheduler.New(duelService, scheduler.Intervals{
		MatchSweep: cfg.MatchSweepInterval,
		Cleanup:    cfg.CleanupInterval,
	})
	if err != nil {
		return err
	}
	jobs.Start()
	defer func() {
		if err := jobs.Shutdown(); err != nil {
			logger.Error("failed to stop scheduler", "error", err)
		}
	}()

	router := newRouter(&app{
		cfg:            cfg,
		sessionManager: sessionManager,
		users:          service.NewUserService(database, userStore),
		duels:          duelService,
		hub:            hub,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second, // submissions wait on the sandbox
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", "address", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
