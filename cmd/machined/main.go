// Command machined runs the replication daemon: an HTTP-fronted process
// that holds machines in memory, replicates their append-only logs
// between Writer and Reader instances over Redis, and folds a small
// Lisp-like interpreter over each machine's inputs.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/evalnet/machined/internal/config"
	"github.com/evalnet/machined/internal/daemon"
	"github.com/evalnet/machined/internal/httpapi"
	"github.com/evalnet/machined/internal/pubsub"
	"github.com/evalnet/machined/internal/storage"
)

func newLogger() *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	log, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return log
}

func main() {
	log := newLogger().Named("main")
	defer func() { _ = log.Sync() }()

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatal("parsing configuration", zap.Error(err))
	}

	st := storage.NewRedisClient(cfg.RedisAddr, log)
	ps := pubsub.NewRedisClient(cfg.RedisAddr, log)

	d := daemon.New(log, st, ps, daemon.Options{
		FollowFilePath: cfg.FollowFileName(),
		AckTimeout:     cfg.AckTimeout,
		PollTick:       cfg.PollTick,
		HighFreqWindow: cfg.HighFreqWindow,
	})

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()
	if err := d.Start(startCtx); err != nil {
		log.Fatal("starting daemon", zap.Error(err))
	}

	router := httpapi.NewRouter(log, d.Engine)
	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Port),
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
		ErrorLog:       zap.NewStdLog(log.Named("http.server")),
	}

	go func() {
		log.Info("listening", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown", zap.Error(err))
	}
	if err := d.Shutdown(shutdownCtx); err != nil {
		log.Error("daemon shutdown", zap.Error(err))
	}
}
