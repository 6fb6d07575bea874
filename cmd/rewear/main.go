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

	"rewear/internal/app"
	"rewear/internal/config"
	"rewear/internal/pkg/logger"
	"rewear/internal/service"
	"rewear/internal/storage"
)

func main() {
	var l *logger.Logger
	var err error
	if l, err = logger.CreateLogger(config.LogLevel); err != nil {
		log.Fatal("Failed to create logger:", err)
	}

	db, err := openStorage(l)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	app := app.NewApp(db, l)

	if config.SeedDemoData {
		const seedTimeout = time.Minute
		seedCtx, cancel := context.WithTimeout(context.Background(), seedTimeout)
		_, err = app.Seed(seedCtx)
		cancel()
		if err != nil {
			log.Fatal("Failed to seed demo data:", err)
		}
	}

	sweeper, err := app.NewSessionSweeper(config.SessionSweepSchedule)
	if err != nil {
		log.Fatal(err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	service := service.NewService(app, config.ServerRunAddress, l)

	const readHeaderTimeout = 5 * time.Second
	server := &http.Server{Addr: config.ServerRunAddress, Handler: service.NewRouter(), ReadHeaderTimeout: readHeaderTimeout}

	serverCtx, serverStopCtx := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		const shutdownTimeout = 30 * time.Second
		shutdownCtx, cancel := context.WithTimeout(serverCtx, shutdownTimeout)
		defer cancel()

		go func() {
			<-shutdownCtx.Done()
			if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		err := server.Shutdown(shutdownCtx)
		if err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	l.Sugar().Infof("Listening on %s", config.ServerRunAddress)
	err = server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}

	<-serverCtx.Done()
}

// openStorage connects to PostgreSQL when DATABASE_URI is set and keeps everything in memory otherwise.
func openStorage(l *logger.Logger) (storage.Storage, error) {
	if config.DatabaseURI == "" {
		l.Info("DATABASE_URI is empty, using in-memory storage")
		return storage.NewMemory(l), nil
	}
	return storage.NewPostgreSQL(config.DatabaseURI, l)
}
