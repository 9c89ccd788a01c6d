package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/msgsplit/internal/api"
	"github.com/dgallion1/msgsplit/internal/config"
	"github.com/dgallion1/msgsplit/internal/deliver"
	"github.com/dgallion1/msgsplit/internal/pipeline"
	"github.com/dgallion1/msgsplit/internal/stats"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := config.LoadDotEnv(); err != nil {
		log.Error("load .env", "error", err)
		os.Exit(1)
	}
	cfg := config.Load()
	if path := os.Getenv("MSGSPLIT_PROFILE"); path != "" {
		p, err := config.LoadProfile(path)
		if err != nil {
			log.Error("load profile", "error", err)
			os.Exit(1)
		}
		cfg = p.Apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize delivery sink, if any.
	var sink deliver.Sink
	var webhook *deliver.WebhookSink
	switch {
	case cfg.TelegramToken != "":
		tg, err := deliver.NewTelegramSink(cfg.TelegramToken, cfg.TelegramChatID, cfg.TelegramAPIURL, cfg.DeliveryTimeout)
		if err != nil {
			log.Error("telegram sink", "error", err)
			os.Exit(1)
		}
		sink = tg
	case cfg.WebhookURL != "":
		webhook = deliver.NewWebhookSink(cfg.WebhookURL, cfg.WebhookAPIKey, cfg.DeliveryTimeout)
		sink = webhook
	}
	if sink != nil {
		log.Info("delivery enabled", "sink", sink.Name())
	}

	// Initialize pipeline.
	rec := stats.NewRecorder(time.Hour)
	orch := pipeline.NewOrchestrator(cfg, sink, rec, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, rec, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown. Stop accepting requests before the pipeline stops
	// taking jobs.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}

		orch.Stop()

		if webhook != nil {
			webhook.Close()
		}
	}()

	log.Info("starting msgsplit", "port", cfg.Port, "max_len", cfg.MaxLen, "workers", cfg.WorkerCount)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
}
