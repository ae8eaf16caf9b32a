package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"doorkeeper/internal/app/server/api"
	"doorkeeper/internal/config"
	"doorkeeper/internal/domain/card"
	"doorkeeper/internal/domain/event"
	"doorkeeper/internal/infrastructure/migration"
	"doorkeeper/internal/infrastructure/storage/flash"
	"doorkeeper/internal/infrastructure/storage/sqlite"
	"doorkeeper/internal/utils/logger"
)

func main() {
	conf := config.MustLoad()
	log := logger.New(conf.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fsys := flash.NewOS(conf.Storage.DataDir, log)
	store := card.NewStore(fsys, log,
		card.WithFiles(conf.Storage.HeaderFile, conf.Storage.CardsFile),
		card.WithCapacity(conf.Storage.MaxCards),
	)

	if err := store.Init(ctx); err != nil {
		if !errors.Is(err, card.ErrCorruptState) {
			log.Error("card store init failed", "error", err)
			os.Exit(1)
		}
		// reads keep working; POST /cards/reset or /cards/format recovers
		log.Error("card database is corrupt", "error", err)
	} else if err := store.LoadDefaults(ctx); err != nil {
		log.Warn("default cards not loaded", "error", err)
	}

	var journal event.Servicer
	if conf.Journal.Path != "" {
		db, err := sqlite.New(conf, migration.DefaultEngine)
		if err != nil {
			log.Error("journal unavailable", "path", conf.Journal.Path, "error", err)
			os.Exit(1)
		}
		defer db.Close()
		journal = event.NewService(sqlite.NewEventRepository(db, log), log)
	}

	srv := &http.Server{
		Addr:    conf.Server.RunAddress,
		Handler: api.New(conf, store, journal, log),
	}

	go func() {
		log.Info("server started", "addr", conf.Server.RunAddress, "data_dir", conf.Storage.DataDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	log.Info("server stopped")
}
