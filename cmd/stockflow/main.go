package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockflow/internal/ai"
	"stockflow/internal/config"
	"stockflow/internal/extract"
	"stockflow/internal/logging"
	"stockflow/internal/monitor"
	"stockflow/internal/notify"
	"stockflow/internal/nse"
	"stockflow/internal/server"
	"stockflow/internal/store"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stockflow: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.Logging)
	log.Info().Str("config", *configPath).Msg("starting stockflow")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Storage, log)
	if err != nil {
		log.Fatal().Err(err).Msg("opening store failed")
	}
	defer st.Close()

	client, err := nse.NewClient(cfg.NSE.AnnouncementsURL, cfg.NSE.Timeout, log)
	if err != nil {
		log.Fatal().Err(err).Msg("building NSE client failed")
	}
	directory := nse.LoadDirectory(cfg.NSE.SymbolCachePath)
	source := nse.NewCachingSource(client, directory)

	var summarizer monitor.Summarizer
	if cfg.AI.APIKey != "" {
		gemini, err := ai.NewGemini(ctx, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout)
		if err != nil {
			log.Fatal().Err(err).Msg("building Gemini client failed")
		}
		summarizer = gemini
	} else {
		log.Warn().Msg("no Gemini API key configured, critical alerts will use the fallback summary")
	}

	extractor := extract.NewFetcher(cfg.AI.Timeout, log)

	opts := notify.RouterOpts{SendsPerSecond: 5}
	if cfg.Telegram.Enabled {
		tg, err := notify.NewTelegramSender(cfg.Telegram.BotToken)
		if err != nil {
			log.Fatal().Err(err).Msg("building Telegram sender failed")
		}
		opts.Telegram = tg
	}
	if cfg.WhatsApp.Enabled {
		opts.WhatsApp = notify.NewWhatsAppSender(cfg.WhatsApp.AccountSID, cfg.WhatsApp.AuthToken, cfg.WhatsApp.FromNumber)
	}
	if cfg.Email.Enabled {
		opts.Email = notify.NewEmailSender(cfg.Email)
	}
	router := notify.NewRouter(opts, log)

	composer := monitor.NewComposer(summarizer, extractor, log)
	svc := monitor.New(source, st, composer, router, log)

	scheduler := monitor.NewScheduler(svc, cfg.Monitor.CheckIntervalMinutes, log)
	if err := scheduler.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("starting scheduler failed")
	}

	srv := server.New(cfg.Server.Listen, svc, directory, log)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	scheduler.Stop()
	log.Info().Msg("stockflow stopped")
}
