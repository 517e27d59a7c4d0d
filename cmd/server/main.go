package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gnemet/LessonForge/internal/ai"
	"github.com/gnemet/LessonForge/internal/config"
	"github.com/gnemet/LessonForge/internal/i18n"
	"github.com/gnemet/LessonForge/internal/images"
	"github.com/gnemet/LessonForge/internal/logger"
	"github.com/gnemet/LessonForge/internal/observer"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.Logging.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := ai.NewClient(ctx, &cfg.AI, log)
	if err != nil {
		if !errors.Is(err, ai.ErrMissingAPIKey) {
			log.Fatal("AI client", "error", err)
		}
		// Serve anyway; the first generation shows the message.
		log.Warn("AI credentials missing", "error", err)
		client = ai.Unavailable(err)
	}
	defer client.Close()

	a, err := newApp(cfg, log, client, images.NewFetcher(cfg.Images))
	if err != nil {
		log.Fatal("Templates", "dir", cfg.Application.Templates, "error", err)
	}

	go a.store.Run(ctx, 10*time.Minute, func(n int) {
		log.Debug("Expired sessions removed", "count", n, "active", a.store.Len())
	})

	if cfg.Application.DevReload {
		obs := observer.NewObserver(log, observer.DefaultDebounce)
		obs.Watch(cfg.Application.Templates, []string{".html"}, a.views.Reload)
		obs.Watch(cfg.Application.Resources, []string{".json"}, func() error {
			return i18n.Init(cfg.Application.Resources)
		})
		go func() {
			if err := obs.Start(ctx, nil); err != nil {
				log.Error("Observer stopped", "error", err)
				return
			}
			log.Debug("Observer stopped", "reloads", obs.Reloads())
		}()
	}

	srv := &http.Server{
		Addr:              cfg.Application.Addr(),
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("LessonForge starting", "addr", "http://"+srv.Addr, "provider", client.Name(), "version", cfg.Application.Version)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("Server failed", "error", err)
	}
	a.runs.Wait()
	log.Info("LessonForge stopped")
}
