package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/bookdigest/internal/api"
	"github.com/dgallion1/bookdigest/internal/config"
	"github.com/dgallion1/bookdigest/internal/container"
	"github.com/dgallion1/bookdigest/internal/logger"
	"github.com/dgallion1/bookdigest/internal/pipeline"
)

func main() {
	envFile := flag.String("env", ".env", "path to a .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	log := logger.New(logger.FromStrings(cfg.LogLevel, cfg.LogFormat))
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize services.
	c, err := container.New(cfg, log)
	if err != nil {
		log.Error("initialize services", "error", err)
		os.Exit(1)
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, c.Library, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, c.LLM, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // summaries of long chapters take several completion rounds
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		c.Close()
	}()

	log.Info("starting bookdigest",
		"port", cfg.Port,
		"provider", cfg.LLMProvider,
		"model", c.LLM.Model(),
		"summary_store", cfg.SummaryStore,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
